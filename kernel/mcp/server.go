package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/chunga-ict/pylo/kernel/engine"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const statusURI = "pylo://status"

// PyloMCPServer exposes run history and the commit and sync operations of one
// inventory to MCP clients. Without an inventory only the read tools work.
type PyloMCPServer struct {
	server     *server.MCPServer
	store      store.ResourceStore
	reconciler *engine.Reconciler
	inventory  *model.Inventory
}

func NewPyloMCPServer(s store.ResourceStore, reconciler *engine.Reconciler, inv *model.Inventory) *PyloMCPServer {
	srv := server.NewMCPServer(
		"pylo PAN-OS HA",
		"v1.0.0",
		server.WithResourceCapabilities(true, true),
		server.WithToolCapabilities(true),
	)

	ps := &PyloMCPServer{
		server:     srv,
		store:      s,
		reconciler: reconciler,
		inventory:  inv,
	}

	ps.registerTools()
	ps.registerResources()

	return ps
}

func (ps *PyloMCPServer) ServeStdio() error {
	return server.ServeStdio(ps.server)
}

func (ps *PyloMCPServer) registerTools() {
	ps.server.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the ids of recorded deployment runs, oldest first"),
	), ps.listRunsHandler)

	ps.server.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the full report of a deployment run"),
		mcp.WithString("run_id",
			mcp.Description("Run id as returned by list_runs"),
			mcp.Required(),
		),
	), ps.getRunHandler)

	ps.server.AddTool(mcp.NewTool("get_devices",
		mcp.WithDescription("Get the last known commit and sync state of every device of an inventory"),
		mcp.WithString("inventory_id",
			mcp.Description("Inventory id, defaults to the loaded inventory"),
		),
	), ps.getDevicesHandler)

	ps.server.AddTool(mcp.NewTool("commit_all",
		mcp.WithDescription("Commit the candidate configuration on every member of the pair and wait for the jobs"),
	), ps.commitAllHandler)

	ps.server.AddTool(mcp.NewTool("sync_device",
		mcp.WithDescription("Make sure the running configuration of a member is synchronized to its HA peer"),
		mcp.WithString("host",
			mcp.Description("Device host as listed in the inventory"),
			mcp.Required(),
		),
	), ps.syncDeviceHandler)
}

func (ps *PyloMCPServer) registerResources() {
	resource := mcp.NewResource(statusURI, "pylo Status",
		mcp.WithResourceDescription("Latest deployment run and the device states it left behind"),
		mcp.WithMIMEType("application/json"),
	)
	ps.server.AddResource(resource, ps.statusHandler)
}

func (ps *PyloMCPServer) listRunsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runIds, err := ps.store.ListRuns()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	return jsonResult(map[string]any{"count": len(runIds), "runs": runIds})
}

func (ps *PyloMCPServer) getRunHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runId, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id argument is required"), nil
	}
	report, err := ps.store.GetRun(runId)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (ps *PyloMCPServer) getDevicesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inventoryId := request.GetString("inventory_id", "")
	if inventoryId == "" && ps.inventory != nil {
		inventoryId = ps.inventory.Id
	}
	if inventoryId == "" {
		return mcp.NewToolResultError("inventory_id argument is required when no inventory is loaded"), nil
	}
	devices, err := ps.store.GetDevices(inventoryId)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get devices: %v", err)), nil
	}
	states := make([]model.DeviceState, 0, len(devices))
	for _, state := range devices {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Host < states[j].Host })
	return jsonResult(map[string]any{"inventory_id": inventoryId, "count": len(states), "devices": states})
}

func (ps *PyloMCPServer) commitAllHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if ps.reconciler == nil || ps.inventory == nil {
		return mcp.NewToolResultError("no inventory loaded"), nil
	}
	mctx := model.NewContext(ps.inventory, "")
	devices, err := ps.reconciler.OpenSessions(ctx, ps.inventory.Devices)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := ps.reconciler.Commits(mctx).RunCommits(ctx, devices, ps.inventory.Timing.CommitBudget)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"run_id":        mctx.RunId,
		"all_committed": result.AllCommitted(),
		"settled":       result.Settled(),
		"result":        result,
	})
}

func (ps *PyloMCPServer) syncDeviceHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if ps.reconciler == nil || ps.inventory == nil {
		return mcp.NewToolResultError("no inventory loaded"), nil
	}
	host, err := request.RequireString("host")
	if err != nil {
		return mcp.NewToolResultError("host argument is required"), nil
	}
	dev, err := ps.inventory.GetDevice(host)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sessions, err := ps.reconciler.OpenSessions(ctx, []*model.Device{dev})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcome := ps.reconciler.SyncEngine(model.NewContext(ps.inventory, "")).EnsureSynchronized(ctx, sessions[0])
	return jsonResult(outcome)
}

func (ps *PyloMCPServer) statusHandler(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runIds, err := ps.store.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	latest, err := store.LatestRun(ps.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	status := map[string]any{"count": len(runIds)}
	if latest != nil {
		status["latest"] = map[string]any{
			"run_id":       latest.RunId,
			"inventory_id": latest.InventoryId,
			"state":        latest.State,
			"active_host":  latest.ActiveHost,
			"devices":      latest.DeviceStates(),
		}
	}
	data, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      statusURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
