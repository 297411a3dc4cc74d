package model

import (
	"sort"
	"time"
)

type CommitVerdict string

const (
	VerdictCommitted          CommitVerdict = "committed"
	VerdictCommitFailed       CommitVerdict = "commit-failed"
	VerdictCommunicationError CommitVerdict = "communication-error"
)

type SyncVerdict string

const (
	VerdictSynchronized SyncVerdict = "synchronized"
	VerdictSyncTimedOut SyncVerdict = "sync-timed-out"
	VerdictSyncFailed   SyncVerdict = "sync-failed"
)

// CommitResult is the outcome of one commit orchestration: exactly one verdict
// per device that was handed in, plus the jobs that reached a terminal state.
type CommitResult struct {
	Verdicts map[string]CommitVerdict `json:"verdicts"`
	Jobs     map[string]CommitJob     `json:"jobs,omitempty"`
	// Unchanged lists hosts that had nothing to commit. Their verdict stays
	// VerdictCommunicationError since no job ever ran.
	Unchanged []string      `json:"unchanged,omitempty"`
	Rounds    int           `json:"rounds"`
	Elapsed   time.Duration `json:"elapsed"`
}

func (r *CommitResult) Verdict(host string) CommitVerdict {
	return r.Verdicts[host]
}

func (r *CommitResult) AllCommitted() bool {
	if len(r.Verdicts) == 0 {
		return false
	}
	for _, v := range r.Verdicts {
		if v != VerdictCommitted {
			return false
		}
	}
	return true
}

// Settled reports whether every device either committed or had nothing to commit.
func (r *CommitResult) Settled() bool {
	if len(r.Verdicts) == 0 {
		return false
	}
	unchanged := make(map[string]struct{}, len(r.Unchanged))
	for _, h := range r.Unchanged {
		unchanged[h] = struct{}{}
	}
	for host, v := range r.Verdicts {
		if _, found := unchanged[host]; found {
			continue
		}
		if v != VerdictCommitted {
			return false
		}
	}
	return true
}

// Hosts returns the hosts of the result in sorted order.
func (r *CommitResult) Hosts() []string {
	hosts := make([]string, 0, len(r.Verdicts))
	for h := range r.Verdicts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

type SyncOutcome struct {
	Host      string      `json:"host"`
	Verdict   SyncVerdict `json:"verdict"`
	Attempts  int         `json:"attempts"`
	Triggered bool        `json:"triggered"`
	LastState SyncState   `json:"lastState"`
	Error     string      `json:"error,omitempty"`
}
