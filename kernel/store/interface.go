package store

import (
	"github.com/chunga-ict/pylo/kernel/model"
)

// StateStore keeps the reports of past deployment runs.
type StateStore interface {
	GetRun(runId string) (*model.DeploymentReport, error)
	SaveRun(report *model.DeploymentReport) error
	// ListRuns returns every run id in ascending order, oldest first.
	ListRuns() ([]string, error)
}

// ResourceStore extends StateStore with device-level tracking.
type ResourceStore interface {
	StateStore
	GetDevices(inventoryId string) (map[string]model.DeviceState, error)
	SaveDevice(inventoryId string, state model.DeviceState) error
	DeleteDevice(inventoryId, host string) error
}

// LatestRun returns the most recent run. Run ids are time ordered, so the
// greatest id is the newest.
func LatestRun(s StateStore) (*model.DeploymentReport, error) {
	runIds, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runIds) == 0 {
		return nil, nil
	}
	return s.GetRun(runIds[len(runIds)-1])
}
