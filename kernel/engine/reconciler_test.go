package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/panos"
	"github.com/chunga-ict/pylo/kernel/store"
)

type recordingSink struct {
	reports []*model.DeploymentReport
}

func (s *recordingSink) Label() string {
	return "recording"
}

func (s *recordingSink) Publish(_ context.Context, report *model.DeploymentReport) error {
	s.reports = append(s.reports, report)
	return nil
}

func TestReconciler_Converge(t *testing.T) {
	client := newFakeClient()
	client.jobs["fw1"] = []jobStep{running(50), finished(model.JobResultOk)}
	client.jobs["fw2"] = []jobStep{finished(model.JobResultOk)}
	client.ha["fw1"] = []haStep{
		{local: "active", state: model.SyncNotSynchronized},
		{local: "active", state: model.SyncNotSynchronized},
		{local: "active", state: model.SyncSynchronized},
	}
	client.ha["fw2"] = []haStep{{local: "passive", state: model.SyncNotSynchronized}}

	memStore := store.NewMemoryStore()
	sink := &recordingSink{}
	r := NewReconciler(memStore, client, ReconcilerOptions{Sinks: []ReportSink{sink}})

	ctx := model.NewContext(createTestInventory("converge-test", "fw2", "fw1"), "")
	report, err := r.Reconcile(context.Background(), ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if report.State != model.RunConverged {
		t.Errorf("expected state converged, got %s", report.State)
	}
	if report.ActiveHost != "fw1" {
		t.Errorf("expected active fw1, got %s", report.ActiveHost)
	}
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}

	// 2 ha ports + enable + group + interface, then zones on the active member only
	if len(client.applied["fw1"]) != 6 {
		t.Errorf("expected 6 requests on fw1, got %d", len(client.applied["fw1"]))
	}
	if len(client.applied["fw2"]) != 5 {
		t.Errorf("expected 5 requests on fw2, got %d", len(client.applied["fw2"]))
	}
	if client.triggerCalls["fw1"] != 1 || client.triggerCalls["fw2"] != 0 {
		t.Errorf("expected exactly one trigger on the active member, got %v", client.triggerCalls)
	}
	if client.startCalls["fw1"] != 2 || client.startCalls["fw2"] != 1 {
		t.Errorf("unexpected commit calls: %v", client.startCalls)
	}

	network := report.Phase(model.PhaseNetwork)
	if len(network.Skipped) != 5 {
		t.Errorf("expected 5 skipped network domains, got %v", network.Skipped)
	}
	if report.Sync["fw1"].Verdict != model.VerdictSynchronized {
		t.Errorf("expected fw1 synchronized, got %s", report.Sync["fw1"].Verdict)
	}

	if _, err := memStore.GetRun(report.RunId); err != nil {
		t.Errorf("run should be stored: %v", err)
	}
	states, _ := memStore.GetDevices("converge-test")
	if !states["fw1"].Active || states["fw2"].Commit != model.VerdictCommitted {
		t.Errorf("unexpected device states: %+v", states)
	}
	if len(sink.reports) != 1 {
		t.Errorf("expected report published once, got %d", len(sink.reports))
	}
}

func TestReconciler_HACommitFailureDegrades(t *testing.T) {
	client := newFakeClient()
	client.jobs["fw1"] = []jobStep{finished(model.JobResultOk)}
	client.jobs["fw2"] = []jobStep{finished(model.JobResultFailed)}

	memStore := store.NewMemoryStore()
	r := NewReconciler(memStore, client, ReconcilerOptions{})

	report, err := r.Reconcile(context.Background(), model.NewContext(createTestInventory("degraded-test", "fw1", "fw2"), ""))
	if err == nil {
		t.Fatal("expected error when a member fails to commit")
	}
	if report.State != model.RunDegraded {
		t.Errorf("expected state degraded, got %s", report.State)
	}
	if len(report.Phases) != 1 {
		t.Errorf("network phase should not run, got %d phases", len(report.Phases))
	}
	if client.haCalls["fw1"] != 0 {
		t.Error("active discovery should not run after a failed commit")
	}
	if _, err := memStore.GetRun(report.RunId); err != nil {
		t.Errorf("degraded run should still be stored: %v", err)
	}
}

func TestReconciler_NoActiveMember(t *testing.T) {
	client := newFakeClient()
	client.jobs["fw1"] = []jobStep{finished(model.JobResultOk)}
	client.jobs["fw2"] = []jobStep{finished(model.JobResultOk)}
	client.ha["fw1"] = []haStep{{local: "passive"}}
	client.ha["fw2"] = []haStep{{local: "initial"}}

	r := NewReconciler(store.NewMemoryStore(), client, ReconcilerOptions{})
	report, err := r.Reconcile(context.Background(), model.NewContext(createTestInventory("no-active", "fw1", "fw2"), ""))
	if err == nil {
		t.Fatal("expected error without an active member")
	}
	if report.State != model.RunAborted {
		t.Errorf("expected state aborted, got %s", report.State)
	}
}

func TestReconciler_RejectedConfig(t *testing.T) {
	client := newFakeClient()
	client.rejectAt = "/config/devices/entry[@name='localhost.localdomain']/deviceconfig/high-availability"

	r := NewReconciler(nil, client, ReconcilerOptions{})
	report, err := r.Reconcile(context.Background(), model.NewContext(createTestInventory("rejected", "fw1"), ""))
	if err == nil {
		t.Fatal("expected error for rejected config")
	}
	if client.startCalls["fw1"] != 0 {
		t.Error("nothing should be committed after a rejected request")
	}
	if report.Phases[0].Applied["fw1"] != 2 {
		t.Errorf("expected the two ha ports applied, got %d", report.Phases[0].Applied["fw1"])
	}
}

func TestReconciler_DryRun(t *testing.T) {
	client := newFakeClient()
	memStore := store.NewMemoryStore()
	r := NewReconciler(memStore, client, ReconcilerOptions{})

	ctx := model.NewContext(createTestInventory("dry-run", "fw1", "fw2"), "").WithDryRun(true)
	report, err := r.Reconcile(context.Background(), ctx)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if report.State != model.RunPlanned {
		t.Errorf("expected state planned, got %s", report.State)
	}
	if report.Phase(model.PhaseHA).Applied["fw2"] != 5 {
		t.Errorf("expected 5 planned ha requests, got %d", report.Phase(model.PhaseHA).Applied["fw2"])
	}
	if len(client.applied) != 0 || len(client.startCalls) != 0 {
		t.Error("dry run must not touch devices")
	}
	runs, _ := memStore.ListRuns()
	if len(runs) != 0 {
		t.Error("dry run must not be stored")
	}
}

func TestReconciler_Idempotent(t *testing.T) {
	client := newFakeClient()
	client.jobs["fw1"] = []jobStep{finished(model.JobResultOk)}
	client.ha["fw1"] = []haStep{{local: "active", state: model.SyncSynchronized}}

	r := NewReconciler(store.NewMemoryStore(), client, ReconcilerOptions{})
	inv := createTestInventory("idempotent-test", "fw1")

	// First reconcile
	first, _ := r.Reconcile(context.Background(), model.NewContext(inv, ""))
	// Second reconcile finds the pair already converged
	second, _ := r.Reconcile(context.Background(), model.NewContext(inv, ""))

	if first.State != model.RunConverged || second.State != model.RunConverged {
		t.Errorf("expected both runs converged, got %s and %s", first.State, second.State)
	}
	if client.triggerCalls["fw1"] != 0 {
		t.Error("a synchronized pair should never be triggered")
	}
}

func TestReconciler_ForgetsRemovedDevices(t *testing.T) {
	client := newFakeClient()
	client.jobs["fw1"] = []jobStep{finished(model.JobResultOk)}
	client.ha["fw1"] = []haStep{{local: "active", state: model.SyncSynchronized}}

	memStore := store.NewMemoryStore()
	_ = memStore.SaveDevice("prune-test", model.DeviceState{Host: "fw-old"})

	r := NewReconciler(memStore, client, ReconcilerOptions{})
	if _, err := r.Reconcile(context.Background(), model.NewContext(createTestInventory("prune-test", "fw1"), "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	devices, _ := memStore.GetDevices("prune-test")
	if _, found := devices["fw-old"]; found {
		t.Error("expected fw-old to be forgotten")
	}
	if _, found := devices["fw1"]; !found {
		t.Error("expected fw1 to be recorded")
	}
}

func createTestInventory(id string, hosts ...string) *model.Inventory {
	inv := &model.Inventory{
		Id: id,
		Templates: map[string]string{
			"ha-group":     "<group><peer-ip>{{.PeerIp}}</peer-ip></group>",
			"ha-interface": "<ha1><ip-address>{{.Ha1Ip}}</ip-address></ha1>",
			"zones":        "<entry name='trust'/>",
		},
		Timing: model.Timing{
			CommitBudget:     time.Second,
			CommitRoundDelay: time.Millisecond,
			SyncAttempts:     3,
			SyncInterval:     time.Millisecond,
		},
	}
	for i, h := range hosts {
		inv.Devices = append(inv.Devices, &model.Device{
			Host: h,
			HA:   model.HAParams{Priority: 100 + i*10, PeerIp: "1.1.1." + string(rune('1'+i))},
		})
	}
	return inv
}

// xmlApiDevice answers PAN-OS XML API requests with a canned body per request type.
func xmlApiDevice(t *testing.T, replies map[string]string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		reply, found := replies[r.PostForm.Get("type")]
		if !found {
			reply = `<response status="error" code="400"><msg>unknown request</msg></response>`
		}
		_, _ = fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func haReply(local string) string {
	return `<response status="success"><result><enabled>yes</enabled><group>
		<local-info><state>` + local + `</state></local-info>
		<running-sync>synchronized</running-sync>
	</group></result></response>`
}

func TestReconciler_RerunWithNothingToCommit(t *testing.T) {
	common := map[string]string{
		"keygen": `<response status="success"><result><key>KEY</key></result></response>`,
		"config": `<response status="success" code="20"><msg>command succeeded</msg></response>`,
		"commit": `<response status="success" code="19"><msg>There are no changes to commit.</msg></response>`,
	}
	withHA := func(local string) map[string]string {
		replies := map[string]string{"op": haReply(local)}
		for k, v := range common {
			replies[k] = v
		}
		return replies
	}
	active := xmlApiDevice(t, withHA("active"))
	passive := xmlApiDevice(t, withHA("passive"))

	client, err := panos.NewClient(panos.ClientConfig{Scheme: "http"})
	if err != nil {
		t.Fatalf("unable to create client: %v", err)
	}
	r := NewReconciler(store.NewMemoryStore(), client, ReconcilerOptions{})

	ctx := model.NewContext(createTestInventory("rerun-test", passive, active), "")
	report, err := r.Reconcile(context.Background(), ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if report.State != model.RunConverged {
		t.Errorf("expected state converged, got %s", report.State)
	}
	if report.ActiveHost != active {
		t.Errorf("expected active %s, got %s", active, report.ActiveHost)
	}
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}
	for _, phase := range report.Phases {
		if phase.Commit == nil || !phase.Commit.Settled() {
			t.Errorf("expected %s phase commit to be settled", phase.Phase)
			continue
		}
		if len(phase.Commit.Unchanged) != len(phase.Commit.Verdicts) {
			t.Errorf("expected every %s phase member unchanged, got %v", phase.Phase, phase.Commit.Unchanged)
		}
	}
	if outcome := report.Sync[active]; outcome.Verdict != model.VerdictSynchronized || outcome.Triggered {
		t.Errorf("unexpected sync outcome: %+v", outcome)
	}
}
