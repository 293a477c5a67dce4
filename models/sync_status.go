// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncStatus is the process-wide singleton sync state.
//
// CurrentOperationID is non-empty exactly while a sync is running and is
// the single-flight guard. LastOperationID keeps pointing at the most recent
// terminal operation.
type SyncStatus struct {
	LastSyncTime       *time.Time `json:"last_sync_time,omitempty"`
	RemoteAvailable    bool       `json:"remote_available"`
	AutoSyncEnabled    bool       `json:"auto_sync_enabled"`
	CurrentOperationID string     `json:"current_operation_id,omitempty"`
	LastOperationID    string     `json:"last_operation_id,omitempty"`
}

// DefaultSyncStatus is the state used before the first sync.
func DefaultSyncStatus() SyncStatus {
	return SyncStatus{AutoSyncEnabled: true}
}

// Readiness values reported in [SyncStatusReport].
const (
	ReadinessReady   = "ready"
	ReadinessSyncing = "syncing"
	ReadinessOffline = "offline"
)

// SyncStatusReport is what status queries return: the persisted status plus
// the operations it points at and counters derived from the local store.
type SyncStatusReport struct {
	SyncStatus

	CurrentOperation *SyncOperation `json:"current_operation,omitempty"`
	LastOperation    *SyncOperation `json:"last_operation,omitempty"`

	PendingChanges      int    `json:"pending_changes"`
	UnresolvedConflicts int    `json:"unresolved_conflicts"`
	Readiness           string `json:"readiness"`
}
