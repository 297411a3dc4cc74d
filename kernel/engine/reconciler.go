package engine

import (
	"context"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/store"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ReconcilerOptions struct {
	Log      logrus.FieldLogger
	Observer CommitObserver
	Sinks    []ReportSink
}

// Reconciler converges an HA pair onto its inventory: HA settings on every
// member, network configuration on the active member, then replication to the
// passive peer.
type Reconciler struct {
	Store   store.ResourceStore
	Client  SessionClient
	Sinks   []ReportSink
	log     logrus.FieldLogger
	observe CommitObserver
}

func NewReconciler(s store.ResourceStore, client SessionClient, opts ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		Store:   s,
		Client:  client,
		Sinks:   opts.Sinks,
		log:     opts.Log,
		observe: opts.Observer,
	}
	if r.log == nil {
		r.log = pfxlog.Logger().Entry
	}
	return r
}

func (r *Reconciler) Commits(ctx *model.Context) *CommitOrchestrator {
	return NewCommitOrchestrator(r.Client, CommitOptions{
		RoundDelay: ctx.Inventory.Timing.CommitRoundDelay,
		Log:        r.log.WithField("runId", ctx.RunId),
		Observer:   r.observe,
	})
}

func (r *Reconciler) SyncEngine(ctx *model.Context) *SyncEngine {
	return NewSyncEngine(r.Client, SyncOptions{
		Attempts: ctx.Inventory.Timing.SyncAttempts,
		Interval: ctx.Inventory.Timing.SyncInterval,
		Log:      r.log.WithField("runId", ctx.RunId),
	})
}

// Reconcile runs the whole deployment and always returns a report; the error
// is set when the run could not reach the sync step.
func (r *Reconciler) Reconcile(ctx context.Context, mctx *model.Context) (*model.DeploymentReport, error) {
	inv := mctx.Inventory
	report := &model.DeploymentReport{
		RunId:       mctx.RunId,
		InventoryId: inv.Id,
		Started:     time.Now(),
	}
	log := r.log.WithField("runId", mctx.RunId).WithField("inventory", inv.Id)

	if mctx.DryRun {
		err := r.plan(mctx, report)
		report.Finished = time.Now()
		return report, err
	}

	err := r.converge(ctx, mctx, report, log)
	if err != nil {
		report.Error = err.Error()
		if report.State == "" {
			report.State = model.RunAborted
		}
	}
	report.Finished = time.Now()
	r.record(ctx, report, model.Hosts(inv.Devices), log)
	return report, err
}

func (r *Reconciler) converge(ctx context.Context, mctx *model.Context, report *model.DeploymentReport, log logrus.FieldLogger) error {
	inv := mctx.Inventory

	devices, err := r.OpenSessions(ctx, inv.Devices)
	if err != nil {
		return err
	}

	haPhase, err := r.applyPhase(ctx, model.PhaseHA, devices, inv, log)
	report.Phases = append(report.Phases, haPhase)
	if err != nil {
		return err
	}
	if err := r.commitPhase(ctx, mctx, haPhase, devices); err != nil {
		report.State = model.RunDegraded
		return err
	}

	active, err := r.FindActive(ctx, devices)
	if err != nil {
		return err
	}
	report.ActiveHost = active.Host
	log.Infof("active member is [%s]", active.Host)

	members := []*model.Device{active}
	networkPhase, err := r.applyPhase(ctx, model.PhaseNetwork, members, inv, log)
	report.Phases = append(report.Phases, networkPhase)
	if err != nil {
		return err
	}
	if err := r.commitPhase(ctx, mctx, networkPhase, members); err != nil {
		report.State = model.RunDegraded
		return err
	}

	report.Sync = r.SyncEngine(mctx).SyncAll(ctx, members)
	report.State = model.RunConverged
	for _, outcome := range report.Sync {
		if outcome.Verdict != model.VerdictSynchronized {
			report.State = model.RunDegraded
		}
	}
	return nil
}

// OpenSessions generates a session key for every device that lacks one.
func (r *Reconciler) OpenSessions(ctx context.Context, devices []*model.Device) ([]*model.Device, error) {
	var out []*model.Device
	for _, dev := range devices {
		if dev.HasSession() {
			out = append(out, dev)
			continue
		}
		key, err := r.Client.Keygen(ctx, dev)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open session on [%s]", dev.Host)
		}
		out = append(out, dev.WithApiKey(key))
	}
	return out, nil
}

func (r *Reconciler) applyPhase(ctx context.Context, phase model.Phase, devices []*model.Device, inv *model.Inventory, log logrus.FieldLogger) (*model.PhaseReport, error) {
	pr := &model.PhaseReport{
		Phase:   phase,
		Hosts:   model.Hosts(devices),
		Applied: make(map[string]int),
	}
	for _, domain := range model.DomainTypesFor(phase) {
		if !domain.Enabled(inv) {
			pr.Skipped = append(pr.Skipped, domain.Label())
			continue
		}
		for _, dev := range devices {
			requests, err := domain.Requests(dev, inv)
			if err != nil {
				return pr, errors.Wrapf(err, "unable to build %s for [%s]", domain.Label(), dev.Host)
			}
			for _, req := range requests {
				accepted, err := r.Client.ApplyConfig(ctx, dev, req.XPath, req.Element)
				if err != nil {
					return pr, errors.Wrapf(err, "unable to apply %s", domain.Label())
				}
				if !accepted {
					return pr, errors.Errorf("[%s] rejected %s at %s", dev.Host, domain.Label(), req.XPath)
				}
				pr.Applied[dev.Host]++
			}
			log.WithField("host", dev.Host).Infof("%s configured", domain.Label())
		}
	}
	return pr, nil
}

func (r *Reconciler) commitPhase(ctx context.Context, mctx *model.Context, pr *model.PhaseReport, devices []*model.Device) error {
	if len(pr.Applied) == 0 {
		return nil
	}
	result, err := r.Commits(mctx).RunCommits(ctx, devices, mctx.Inventory.Timing.CommitBudget)
	if err != nil {
		return err
	}
	pr.Commit = result
	if !result.Settled() {
		return errors.Errorf("%s phase commit did not complete on every member", pr.Phase)
	}
	if len(result.Unchanged) > 0 {
		r.log.Infof("%s phase: nothing to commit on %v", pr.Phase, result.Unchanged)
	}
	return nil
}

// FindActive returns the member that reports itself active.
func (r *Reconciler) FindActive(ctx context.Context, devices []*model.Device) (*model.Device, error) {
	for _, dev := range devices {
		state, err := r.Client.QueryHAState(ctx, dev)
		if err != nil {
			r.log.WithField("host", dev.Host).WithError(err).Warn("unable to query ha state")
			continue
		}
		if state.IsActive() {
			return dev, nil
		}
	}
	return nil, errors.New("no member of the pair reports itself active")
}

func (r *Reconciler) plan(mctx *model.Context, report *model.DeploymentReport) error {
	inv := mctx.Inventory
	report.State = model.RunPlanned
	for _, phase := range []model.Phase{model.PhaseHA, model.PhaseNetwork} {
		pr := &model.PhaseReport{Phase: phase, Hosts: model.Hosts(inv.Devices), Applied: make(map[string]int)}
		for _, domain := range model.DomainTypesFor(phase) {
			if !domain.Enabled(inv) {
				pr.Skipped = append(pr.Skipped, domain.Label())
				continue
			}
			for _, dev := range inv.Devices {
				requests, err := domain.Requests(dev, inv)
				if err != nil {
					return errors.Wrapf(err, "unable to build %s for [%s]", domain.Label(), dev.Host)
				}
				pr.Applied[dev.Host] += len(requests)
			}
		}
		report.Phases = append(report.Phases, pr)
	}
	return nil
}

// record persists the run and its device states, forgetting devices that are no
// longer part of the inventory, then publishes the report.
func (r *Reconciler) record(ctx context.Context, report *model.DeploymentReport, hosts []string, log logrus.FieldLogger) {
	if r.Store != nil {
		if err := r.Store.SaveRun(report); err != nil {
			log.WithError(err).Error("unable to save run")
		}
		for _, state := range report.DeviceStates() {
			if err := r.Store.SaveDevice(report.InventoryId, state); err != nil {
				log.WithError(err).Errorf("unable to save state for [%s]", state.Host)
			}
		}
		r.prune(report.InventoryId, hosts, log)
	}
	for _, sink := range r.Sinks {
		if err := sink.Publish(ctx, report); err != nil {
			log.WithError(err).Warnf("unable to publish report to %s", sink.Label())
		}
	}
}

func (r *Reconciler) prune(inventoryId string, hosts []string, log logrus.FieldLogger) {
	known, err := r.Store.GetDevices(inventoryId)
	if err != nil {
		log.WithError(err).Warn("unable to list recorded devices")
		return
	}
	current := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		current[h] = struct{}{}
	}
	for host := range known {
		if _, found := current[host]; found {
			continue
		}
		if err := r.Store.DeleteDevice(inventoryId, host); err != nil {
			log.WithError(err).Warnf("unable to forget [%s]", host)
			continue
		}
		log.Infof("forgot [%s], no longer in the inventory", host)
	}
}
