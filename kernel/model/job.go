package model

import "fmt"

type JobStatus string

const (
	JobRunning  JobStatus = "running"
	JobFinished JobStatus = "finished"
)

type JobResult string

const (
	JobResultUnknown JobResult = "unknown"
	JobResultOk      JobResult = "ok"
	JobResultFailed  JobResult = "failed"
)

// JobReport is a single observation of a remote job.
type JobReport struct {
	Status   JobStatus
	Progress int
	Result   JobResult
	Detail   string
}

func (r *JobReport) Finished() bool {
	return r.Status == JobFinished
}

// CommitJob tracks one asynchronous commit accepted by a device. Result is only
// meaningful once Status is JobFinished.
type CommitJob struct {
	Host     string    `json:"host"`
	JobId    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Result   JobResult `json:"result,omitempty"`
}

func (j *CommitJob) Key() JobKey {
	return JobKey{Host: j.Host, JobId: j.JobId}
}

// JobKey identifies a commit job across devices; job ids are only unique per device.
type JobKey struct {
	Host  string
	JobId string
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s/%s", k.Host, k.JobId)
}
