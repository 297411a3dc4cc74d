package store

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/chunga-ict/pylo/kernel/model"
)

// MemoryStore keeps runs and device states in process. It backs dry runs and
// tests where nothing should touch the state directory.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*model.DeploymentReport
	devices map[string]map[string]model.DeviceState // inventoryId -> host -> state
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*model.DeploymentReport),
		devices: make(map[string]map[string]model.DeviceState),
	}
}

func (s *MemoryStore) GetRun(runId string) (*model.DeploymentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if report, found := s.runs[runId]; found {
		return report, nil
	}
	return nil, fmt.Errorf("run [%s] not found", runId)
}

func (s *MemoryStore) SaveRun(report *model.DeploymentReport) error {
	if report.RunId == "" {
		return fmt.Errorf("run for inventory [%s] has no id", report.InventoryId)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[report.RunId] = report
	return nil
}

func (s *MemoryStore) ListRuns() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.runs)), nil
}

// GetDevices returns a copy of the device states recorded for an inventory.
func (s *MemoryStore) GetDevices(inventoryId string) (map[string]model.DeviceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]model.DeviceState, len(s.devices[inventoryId]))
	maps.Copy(states, s.devices[inventoryId])
	return states, nil
}

func (s *MemoryStore) SaveDevice(inventoryId string, state model.DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, found := s.devices[inventoryId]
	if !found {
		states = make(map[string]model.DeviceState)
		s.devices[inventoryId] = states
	}
	states[state.Host] = state
	return nil
}

// DeleteDevice forgets a host; an inventory with no hosts left is dropped.
func (s *MemoryStore) DeleteDevice(inventoryId, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.devices[inventoryId], host)
	if len(s.devices[inventoryId]) == 0 {
		delete(s.devices, inventoryId)
	}
	return nil
}
