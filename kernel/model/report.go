package model

import (
	"sort"
	"time"
)

type RunState string

const (
	RunPlanned   RunState = "planned"
	RunConverged RunState = "converged"
	RunDegraded  RunState = "degraded"
	RunAborted   RunState = "aborted"
)

// DeploymentReport is the persisted record of one deployment run.
type DeploymentReport struct {
	RunId       string                 `json:"runId"`
	InventoryId string                 `json:"inventoryId"`
	State       RunState               `json:"state"`
	Started     time.Time              `json:"started"`
	Finished    time.Time              `json:"finished"`
	Phases      []*PhaseReport         `json:"phases,omitempty"`
	ActiveHost  string                 `json:"activeHost,omitempty"`
	Sync        map[string]SyncOutcome `json:"sync,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

type PhaseReport struct {
	Phase   Phase          `json:"phase"`
	Hosts   []string       `json:"hosts"`
	Applied map[string]int `json:"applied"`
	Skipped []string       `json:"skipped,omitempty"`
	Commit  *CommitResult  `json:"commit,omitempty"`
}

func (r *DeploymentReport) Phase(phase Phase) *PhaseReport {
	for _, p := range r.Phases {
		if p.Phase == phase {
			return p
		}
	}
	return nil
}

// DeviceStates flattens the report into the latest known state of every host.
func (r *DeploymentReport) DeviceStates() []DeviceState {
	states := make(map[string]*DeviceState)
	get := func(host string) *DeviceState {
		s, found := states[host]
		if !found {
			s = &DeviceState{Host: host, RunId: r.RunId, UpdatedAt: r.Finished}
			states[host] = s
		}
		return s
	}
	for _, p := range r.Phases {
		for _, host := range p.Hosts {
			get(host)
		}
		if p.Commit == nil {
			continue
		}
		for host, v := range p.Commit.Verdicts {
			get(host).Commit = v
		}
	}
	for host, outcome := range r.Sync {
		get(host).Sync = outcome.Verdict
	}
	if r.ActiveHost != "" {
		get(r.ActiveHost).Active = true
	}

	out := make([]DeviceState, 0, len(states))
	for _, s := range states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// DeviceState is the last known outcome for a single device.
type DeviceState struct {
	Host      string        `json:"host"`
	RunId     string        `json:"runId"`
	Active    bool          `json:"active"`
	Commit    CommitVerdict `json:"commit,omitempty"`
	Sync      SyncVerdict   `json:"sync,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
