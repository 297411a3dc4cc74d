package model

import "strings"

type SyncState string

const (
	SyncSynchronized    SyncState = "synchronized"
	SyncInProgress      SyncState = "in-progress"
	SyncNotSynchronized SyncState = "not-synchronized"
	SyncUnknown         SyncState = "unknown"
)

// ParseSyncState maps the running-sync text reported by PAN-OS onto a SyncState.
// Several releases word the in-progress state differently.
func ParseSyncState(text string) SyncState {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "synchronized":
		return SyncSynchronized
	case "synchronization in progress", "sync in progress", "syncing":
		return SyncInProgress
	case "not synchronized", "not-synchronized":
		return SyncNotSynchronized
	default:
		return SyncUnknown
	}
}

// HAState is what a device reports about itself and its peer.
type HAState struct {
	Enabled    bool
	LocalState string
	PeerState  string
	Sync       SyncState
}

func (s *HAState) IsActive() bool {
	return strings.EqualFold(s.LocalState, "active")
}
