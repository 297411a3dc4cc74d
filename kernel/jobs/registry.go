// Package jobs tracks the asynchronous commit jobs a single orchestration run is
// waiting on.
package jobs

import (
	"github.com/chunga-ict/pylo/kernel/model"
)

// Registry holds live jobs in insertion order and archives them once they finish.
// It is not safe for concurrent use; its owner is the single poll loop of one run.
type Registry struct {
	order   []model.JobKey
	live    map[model.JobKey]*model.CommitJob
	archive map[model.JobKey]model.CommitJob
}

func NewRegistry() *Registry {
	return &Registry{
		live:    make(map[model.JobKey]*model.CommitJob),
		archive: make(map[model.JobKey]model.CommitJob),
	}
}

func (r *Registry) Insert(host, jobId string) error {
	key := model.JobKey{Host: host, JobId: jobId}
	if _, found := r.live[key]; found {
		return &model.DuplicateJobError{Key: key}
	}
	if _, found := r.archive[key]; found {
		return &model.DuplicateJobError{Key: key}
	}
	r.live[key] = &model.CommitJob{Host: host, JobId: jobId, Status: model.JobRunning}
	r.order = append(r.order, key)
	return nil
}

// Refresh records the latest progress of a job that is still running.
func (r *Registry) Refresh(host, jobId string, progress int) error {
	job, found := r.live[model.JobKey{Host: host, JobId: jobId}]
	if !found {
		return &model.UnknownJobError{Key: model.JobKey{Host: host, JobId: jobId}}
	}
	job.Progress = progress
	return nil
}

// MarkFinished removes the job from the live set and archives it with its result.
func (r *Registry) MarkFinished(host, jobId string, result model.JobResult) error {
	key := model.JobKey{Host: host, JobId: jobId}
	job, found := r.live[key]
	if !found {
		return &model.UnknownJobError{Key: key}
	}
	delete(r.live, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	job.Status = model.JobFinished
	job.Result = result
	if result == model.JobResultOk {
		job.Progress = 100
	}
	r.archive[key] = *job
	return nil
}

func (r *Registry) IsEmpty() bool {
	return len(r.live) == 0
}

func (r *Registry) Len() int {
	return len(r.live)
}

// Live returns copies of the live jobs in insertion order.
func (r *Registry) Live() []model.CommitJob {
	out := make([]model.CommitJob, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.live[key])
	}
	return out
}

func (r *Registry) Archived(host, jobId string) (model.CommitJob, bool) {
	job, found := r.archive[model.JobKey{Host: host, JobId: jobId}]
	return job, found
}

// Archive returns the finished jobs keyed by host.
func (r *Registry) Archive() map[string]model.CommitJob {
	out := make(map[string]model.CommitJob, len(r.archive))
	for key, job := range r.archive {
		out[key.Host] = job
	}
	return out
}
