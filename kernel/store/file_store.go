package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chunga-ict/pylo/kernel/model"
)

// FileStore keeps one JSON file per run under <root>/runs and one device state
// file per inventory under <root>/devices.
type FileStore struct {
	Root string
	mu   sync.RWMutex
}

func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (s *FileStore) GetRun(runId string) (*model.DeploymentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.runPath(runId))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("run [%s] not found", runId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	report := &model.DeploymentReport{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return report, nil
}

func (s *FileStore) SaveRun(report *model.DeploymentReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJson(s.runPath(report.RunId), report)
}

func (s *FileStore) ListRuns() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.Root, "runs"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var runIds []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		runIds = append(runIds, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(runIds)
	return runIds, nil
}

// GetDevices returns all device states for an inventory from file.
func (s *FileStore) GetDevices(inventoryId string) (map[string]model.DeviceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getDevicesUnsafe(inventoryId)
}

// SaveDevice saves a single device state to file.
func (s *FileStore) SaveDevice(inventoryId string, state model.DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.getDevicesUnsafe(inventoryId)
	if err != nil {
		return err
	}

	devices[state.Host] = state
	return writeJson(s.devicesPath(inventoryId), devices)
}

// DeleteDevice removes a device from the store.
func (s *FileStore) DeleteDevice(inventoryId, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.getDevicesUnsafe(inventoryId)
	if err != nil {
		return err
	}

	delete(devices, host)
	return writeJson(s.devicesPath(inventoryId), devices)
}

func (s *FileStore) runPath(runId string) string {
	return filepath.Join(s.Root, "runs", runId+".json")
}

func (s *FileStore) devicesPath(inventoryId string) string {
	return filepath.Join(s.Root, "devices", inventoryId+".json")
}

func (s *FileStore) getDevicesUnsafe(inventoryId string) (map[string]model.DeviceState, error) {
	data, err := os.ReadFile(s.devicesPath(inventoryId))
	if os.IsNotExist(err) {
		return make(map[string]model.DeviceState), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read devices: %w", err)
	}

	var devices map[string]model.DeviceState
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("failed to parse devices: %w", err)
	}
	return devices, nil
}

func writeJson(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
