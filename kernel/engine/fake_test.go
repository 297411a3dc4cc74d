package engine

import (
	"context"
	"sync"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
)

// --- fakes ---

type jobStep struct {
	report *model.JobReport
	err    error
}

type haStep struct {
	state model.SyncState
	local string
	err   error
}

// fakeClient scripts device replies per host. When a script runs out the last
// entry repeats.
type fakeClient struct {
	mu sync.Mutex

	startErr map[string]error
	jobIds   map[string]string
	jobs     map[string][]jobStep
	ha       map[string][]haStep
	trigger  map[string]bool
	keys     map[string]string
	rejectAt string

	startCalls   map[string]int
	queryCalls   map[string]int
	haCalls      map[string]int
	triggerCalls map[string]int
	applied      map[string][]model.ConfigRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		startErr:     make(map[string]error),
		jobIds:       make(map[string]string),
		jobs:         make(map[string][]jobStep),
		ha:           make(map[string][]haStep),
		trigger:      make(map[string]bool),
		keys:         make(map[string]string),
		startCalls:   make(map[string]int),
		queryCalls:   make(map[string]int),
		haCalls:      make(map[string]int),
		triggerCalls: make(map[string]int),
		applied:      make(map[string][]model.ConfigRequest),
	}
}

func running(progress int) jobStep {
	return jobStep{report: &model.JobReport{Status: model.JobRunning, Progress: progress}}
}

func finished(result model.JobResult) jobStep {
	return jobStep{report: &model.JobReport{Status: model.JobFinished, Progress: 100, Result: result}}
}

func transient(host string) jobStep {
	return jobStep{err: model.NewCommunicationError(host, "show jobs", errors.New("connection reset"))}
}

func (f *fakeClient) StartCommit(_ context.Context, dev *model.Device) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls[dev.Host]++
	if err := f.startErr[dev.Host]; err != nil {
		return "", err
	}
	if id, found := f.jobIds[dev.Host]; found {
		return id, nil
	}
	return "1", nil
}

func (f *fakeClient) QueryJob(_ context.Context, dev *model.Device, _ string) (*model.JobReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.queryCalls[dev.Host]
	f.queryCalls[dev.Host]++
	script := f.jobs[dev.Host]
	if len(script) == 0 {
		return nil, errors.New("no job script")
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n].report, script[n].err
}

func (f *fakeClient) QueryHAState(_ context.Context, dev *model.Device) (*model.HAState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.haCalls[dev.Host]
	f.haCalls[dev.Host]++
	script := f.ha[dev.Host]
	if len(script) == 0 {
		return nil, model.NewCommunicationError(dev.Host, "show ha state", errors.New("no ha script"))
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	step := script[n]
	if step.err != nil {
		return nil, step.err
	}
	return &model.HAState{Enabled: true, LocalState: step.local, Sync: step.state}, nil
}

func (f *fakeClient) TriggerSync(_ context.Context, dev *model.Device) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggerCalls[dev.Host]++
	accepted, found := f.trigger[dev.Host]
	if !found {
		return true, nil
	}
	return accepted, nil
}

func (f *fakeClient) ApplyConfig(_ context.Context, dev *model.Device, xpath, element string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectAt != "" && f.rejectAt == xpath {
		return false, nil
	}
	f.applied[dev.Host] = append(f.applied[dev.Host], model.ConfigRequest{XPath: xpath, Element: element})
	return true, nil
}

func (f *fakeClient) Keygen(_ context.Context, dev *model.Device) (string, error) {
	if key, found := f.keys[dev.Host]; found {
		return key, nil
	}
	return "key-" + dev.Host, nil
}

func (f *fakeClient) queries(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls[host]
}

// --- helpers ---

func devices(hosts ...string) []*model.Device {
	var out []*model.Device
	for _, h := range hosts {
		out = append(out, &model.Device{Host: h, ApiKey: "key"})
	}
	return out
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	progress map[string][]int
	finished map[string]model.CommitVerdict
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{progress: make(map[string][]int), finished: make(map[string]model.CommitVerdict)}
}

func (o *recordingObserver) JobStarted(host, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, host)
}

func (o *recordingObserver) JobProgress(host, _ string, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress[host] = append(o.progress[host], progress)
}

func (o *recordingObserver) JobFinished(host, _ string, verdict model.CommitVerdict) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[host] = verdict
}
