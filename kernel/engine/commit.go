package engine

import (
	"context"
	"time"

	"github.com/chunga-ict/pylo/kernel/jobs"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/poll"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CommitOptions struct {
	// RoundDelay is slept once per polling round, however many jobs are live.
	RoundDelay time.Duration
	Log        logrus.FieldLogger
	Observer   CommitObserver
}

// CommitOrchestrator starts a commit on a set of devices and polls the resulting
// jobs until each one is resolved or the time budget runs out.
type CommitOrchestrator struct {
	client     DeviceClient
	roundDelay time.Duration
	log        logrus.FieldLogger
	observer   CommitObserver
}

func NewCommitOrchestrator(client DeviceClient, opts CommitOptions) *CommitOrchestrator {
	o := &CommitOrchestrator{
		client:     client,
		roundDelay: opts.RoundDelay,
		log:        opts.Log,
		observer:   opts.Observer,
	}
	if o.roundDelay <= 0 {
		o.roundDelay = model.DefaultCommitRoundDelay
	}
	if o.log == nil {
		o.log = pfxlog.Logger().Entry
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}
	return o
}

// RunCommits returns exactly one verdict per device. Devices whose commit could
// not be started, or whose job was still running when the budget ran out, are
// classified as communication errors. The only errors returned are invalid
// input and job registry contract violations.
func (o *CommitOrchestrator) RunCommits(ctx context.Context, devices []*model.Device, budget time.Duration) (*model.CommitResult, error) {
	if budget <= 0 {
		return nil, errors.Errorf("commit time budget must be positive, got %s", budget)
	}
	byHost := make(map[string]*model.Device, len(devices))
	for _, dev := range devices {
		if _, dup := byHost[dev.Host]; dup {
			return nil, errors.Errorf("device [%s] listed more than once", dev.Host)
		}
		byHost[dev.Host] = dev
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	verdicts := make(map[string]model.CommitVerdict, len(devices))
	var unchanged []string
	registry := jobs.NewRegistry()

	for _, dev := range devices {
		log := o.log.WithField("host", dev.Host)
		jobId, err := o.client.StartCommit(ctx, dev)
		if err == nil && jobId == "" {
			err = model.NewMalformedResponseError(dev.Host, "commit", "no job id returned")
		}
		if errors.Is(err, model.ErrNothingToCommit) {
			log.Info("no changes to commit, no job started")
			verdicts[dev.Host] = model.VerdictCommunicationError
			unchanged = append(unchanged, dev.Host)
			continue
		}
		if err != nil {
			log.WithError(err).Error("unable to start commit")
			verdicts[dev.Host] = model.VerdictCommunicationError
			continue
		}
		if err := registry.Insert(dev.Host, jobId); err != nil {
			return nil, err
		}
		log.WithField("jobId", jobId).Info("commit started")
		o.observer.JobStarted(dev.Host, jobId)
	}

	rounds := 0
	schedule := poll.Fixed(ctx, o.roundDelay, 0)
	for !registry.IsEmpty() {
		rounds++
		if err := o.pollRound(ctx, registry, byHost, verdicts); err != nil {
			return nil, err
		}
		if registry.IsEmpty() {
			break
		}
		o.log.Debugf("round %d: %d/%d commits resolved", rounds, len(verdicts), len(devices))
		if !schedule.Next() {
			break
		}
	}

	for _, job := range registry.Live() {
		o.log.WithField("host", job.Host).WithField("jobId", job.JobId).
			Warnf("commit unresolved after %s (last progress %d%%)", budget, job.Progress)
		verdicts[job.Host] = model.VerdictCommunicationError
		o.observer.JobFinished(job.Host, job.JobId, model.VerdictCommunicationError)
	}

	return &model.CommitResult{
		Verdicts:  verdicts,
		Jobs:      registry.Archive(),
		Unchanged: unchanged,
		Rounds:    rounds,
		Elapsed:   time.Since(start),
	}, nil
}

func (o *CommitOrchestrator) pollRound(ctx context.Context, registry *jobs.Registry, byHost map[string]*model.Device, verdicts map[string]model.CommitVerdict) error {
	for _, job := range registry.Live() {
		if ctx.Err() != nil {
			return nil
		}
		log := o.log.WithField("host", job.Host).WithField("jobId", job.JobId)

		report, err := o.client.QueryJob(ctx, byHost[job.Host], job.JobId)
		if err != nil {
			log.WithError(err).Warn("unable to query commit job, retrying next round")
			continue
		}

		if !report.Finished() {
			if err := registry.Refresh(job.Host, job.JobId, report.Progress); err != nil {
				return err
			}
			log.Infof("commit running, progress %d%%", report.Progress)
			o.observer.JobProgress(job.Host, job.JobId, report.Progress)
			continue
		}

		if err := registry.MarkFinished(job.Host, job.JobId, report.Result); err != nil {
			return err
		}
		if report.Result == model.JobResultOk {
			log.Info("commit completed")
			verdicts[job.Host] = model.VerdictCommitted
		} else {
			log.Errorf("commit failed with result [%s]: %s", report.Result, report.Detail)
			verdicts[job.Host] = model.VerdictCommitFailed
		}
		o.observer.JobFinished(job.Host, job.JobId, verdicts[job.Host])
	}
	return nil
}
