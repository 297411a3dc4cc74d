package engine

import (
	"context"

	"github.com/chunga-ict/pylo/kernel/model"
)

// DeviceClient is the management API surface the engines drive. Every failure
// is either a *model.CommunicationError or a *model.MalformedResponseError.
type DeviceClient interface {
	StartCommit(ctx context.Context, dev *model.Device) (string, error)
	QueryJob(ctx context.Context, dev *model.Device, jobId string) (*model.JobReport, error)
	QueryHAState(ctx context.Context, dev *model.Device) (*model.HAState, error)
	TriggerSync(ctx context.Context, dev *model.Device) (bool, error)
	ApplyConfig(ctx context.Context, dev *model.Device, xpath, element string) (bool, error)
}

// SessionClient can also establish the session key the other calls need.
type SessionClient interface {
	DeviceClient
	Keygen(ctx context.Context, dev *model.Device) (string, error)
}

// CommitObserver is told about job progress, e.g. to drive progress bars.
type CommitObserver interface {
	JobStarted(host, jobId string)
	JobProgress(host, jobId string, progress int)
	JobFinished(host, jobId string, verdict model.CommitVerdict)
}

// ReportSink receives the final report of every run.
type ReportSink interface {
	Label() string
	Publish(ctx context.Context, report *model.DeploymentReport) error
}

type noopObserver struct{}

func (noopObserver) JobStarted(string, string)                       {}
func (noopObserver) JobProgress(string, string, int)                 {}
func (noopObserver) JobFinished(string, string, model.CommitVerdict) {}
