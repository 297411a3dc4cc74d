package engine

import (
	"context"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/poll"
	"github.com/michaelquigley/pfxlog"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type SyncOptions struct {
	Attempts int
	Interval time.Duration
	Log      logrus.FieldLogger
}

// SyncEngine drives the running-config replication of an HA member toward
// synchronized.
type SyncEngine struct {
	client   DeviceClient
	attempts int
	interval time.Duration
	log      logrus.FieldLogger
}

type syncStep int

const (
	stepChecking syncStep = iota
	stepTriggering
	stepWaiting
)

func NewSyncEngine(client DeviceClient, opts SyncOptions) *SyncEngine {
	e := &SyncEngine{
		client:   client,
		attempts: opts.Attempts,
		interval: opts.Interval,
		log:      opts.Log,
	}
	if e.attempts <= 0 {
		e.attempts = model.DefaultSyncAttempts
	}
	if e.interval <= 0 {
		e.interval = model.DefaultSyncInterval
	}
	if e.log == nil {
		e.log = pfxlog.Logger().Entry
	}
	return e
}

// EnsureSynchronized checks the sync state of dev, triggers a sync-to-remote when
// the peer is out of date and waits for convergence. A member that is already
// synchronized is left alone.
func (e *SyncEngine) EnsureSynchronized(ctx context.Context, dev *model.Device) model.SyncOutcome {
	outcome := model.SyncOutcome{Host: dev.Host, LastState: model.SyncUnknown}
	log := e.log.WithField("host", dev.Host)

	step := stepChecking
	for {
		switch step {
		case stepChecking:
			state, err := e.client.QueryHAState(ctx, dev)
			if err != nil {
				return e.unresolved(ctx, outcome, err, log)
			}
			outcome.LastState = state.Sync
			switch state.Sync {
			case model.SyncSynchronized:
				log.Info("running config already synchronized")
				outcome.Verdict = model.VerdictSynchronized
				return outcome
			case model.SyncInProgress:
				step = stepWaiting
			case model.SyncNotSynchronized:
				step = stepTriggering
			default:
				return e.unresolved(ctx, outcome, errors.Errorf("sync state is %s", state.Sync), log)
			}

		case stepTriggering:
			outcome.Triggered = true
			accepted, err := e.client.TriggerSync(ctx, dev)
			if err != nil {
				return e.unresolved(ctx, outcome, err, log)
			}
			if !accepted {
				return e.unresolved(ctx, outcome, errors.New("sync-to-remote rejected"), log)
			}
			log.Info("sync-to-remote initiated")
			step = stepWaiting

		case stepWaiting:
			return e.wait(ctx, dev, outcome, log)
		}
	}
}

func (e *SyncEngine) wait(ctx context.Context, dev *model.Device, outcome model.SyncOutcome, log logrus.FieldLogger) model.SyncOutcome {
	schedule := poll.Fixed(ctx, e.interval, e.attempts)
	for schedule.Next() {
		outcome.Attempts = schedule.Attempts()
		state, err := e.client.QueryHAState(ctx, dev)
		if err != nil {
			log.WithError(err).Warnf("sync check %d/%d failed", outcome.Attempts, e.attempts)
			continue
		}
		outcome.LastState = state.Sync
		log.Infof("sync check %d/%d: %s", outcome.Attempts, e.attempts, state.Sync)
		if state.Sync == model.SyncSynchronized {
			outcome.Verdict = model.VerdictSynchronized
			return outcome
		}
	}

	outcome.Verdict = model.VerdictSyncTimedOut
	outcome.Error = "not synchronized within the convergence window"
	log.Warnf("running config not synchronized after %d checks", outcome.Attempts)
	return outcome
}

// unresolved classifies a failure outside the waiting window. Running out of
// time is a timeout, anything else is a failed sync.
func (e *SyncEngine) unresolved(ctx context.Context, outcome model.SyncOutcome, err error, log logrus.FieldLogger) model.SyncOutcome {
	outcome.Error = err.Error()
	if ctx.Err() != nil {
		outcome.Verdict = model.VerdictSyncTimedOut
		log.WithError(err).Warn("deadline reached before sync converged")
		return outcome
	}
	outcome.Verdict = model.VerdictSyncFailed
	log.WithError(err).Error("sync failed")
	return outcome
}

// SyncAll runs one engine per device concurrently and waits for every one of
// them to reach a terminal state. Outcomes are keyed by host; a host listed more
// than once is synchronized once.
func (e *SyncEngine) SyncAll(ctx context.Context, devices []*model.Device) map[string]model.SyncOutcome {
	results := cmap.New[model.SyncOutcome]()
	seen := make(map[string]struct{}, len(devices))
	var g errgroup.Group
	for _, dev := range devices {
		if _, found := seen[dev.Host]; found {
			e.log.WithField("host", dev.Host).Warn("duplicate host, skipping")
			continue
		}
		seen[dev.Host] = struct{}{}
		g.Go(func() error {
			results.Set(dev.Host, e.EnsureSynchronized(ctx, dev))
			return nil
		})
	}
	_ = g.Wait()
	return results.Items()
}
