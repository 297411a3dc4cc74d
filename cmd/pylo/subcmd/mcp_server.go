/*
	(c) Copyright NetFoundry Inc. Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package subcmd

import (
	"io"

	"github.com/chunga-ict/pylo/kernel/engine"
	"github.com/chunga-ict/pylo/kernel/mcp"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewMCPServerCommand())
}

func NewMCPServerCommand() *cobra.Command {
	mcpCmd := &MCPServerCommand{}

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start an MCP server exposing run history and pair operations",
		Long: `Start an MCP (Model Context Protocol) server on stdio that exposes pylo
run history and HA pair operations to AI assistants.

The server provides tools for:
  - list_runs: List recorded deployment runs
  - get_run: Get the report of a run
  - get_devices: Get the last known state of every device
  - commit_all: Commit on every member and wait for the jobs (needs an inventory)
  - sync_device: Synchronize a member to its HA peer (needs an inventory)

And resources:
  - pylo://status: Latest run and device states`,
		Args: cobra.NoArgs,
		RunE: mcpCmd.run,
	}

	mcpCmd.Inventory.bind(cmd)
	cmd.Flags().BoolVar(&mcpCmd.UseMemoryStore, "memory", false, "use in-memory store (for testing)")

	return cmd
}

type MCPServerCommand struct {
	Inventory      InventoryFlags
	UseMemoryStore bool
}

func (m *MCPServerCommand) run(cmd *cobra.Command, args []string) error {
	var (
		resourceStore store.ResourceStore
		reconciler    *engine.Reconciler
		inv           *model.Inventory
	)

	if m.Inventory.InventoryPath != "" || m.Inventory.LegacyManifest != "" {
		// stdout carries the protocol, nothing else may be written to it
		env, err := openEnvironment(&m.Inventory, io.Discard, false)
		if err != nil {
			return err
		}
		defer env.Close()
		resourceStore, reconciler, inv = env.store, env.reconciler, env.inventory
	}

	if m.UseMemoryStore {
		logrus.Info("using in-memory store")
		resourceStore = store.NewMemoryStore()
		if reconciler != nil {
			reconciler.Store = resourceStore
		}
	} else if resourceStore == nil {
		dir, err := m.Inventory.stateDir(nil)
		if err != nil {
			return err
		}
		resourceStore = store.NewFileStore(dir)
	}

	logrus.Info("starting MCP server on stdio...")
	server := mcp.NewPyloMCPServer(resourceStore, reconciler, inv)
	return server.ServeStdio()
}
