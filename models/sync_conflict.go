// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownResolution is returned by [ParseConflictResolution].
var ErrUnknownResolution = errors.New("unknown conflict resolution")

// ConflictResolution selects which side wins a [SyncConflict].
type ConflictResolution string

const (
	ResolutionUseLocal  ConflictResolution = "useLocal"
	ResolutionUseRemote ConflictResolution = "useRemote"
	ResolutionMerge     ConflictResolution = "merge"
)

// ParseConflictResolution converts s into a [ConflictResolution].
func ParseConflictResolution(s string) (ConflictResolution, error) {
	switch r := ConflictResolution(s); r {
	case ResolutionUseLocal, ResolutionUseRemote, ResolutionMerge:
		return r, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownResolution, s)
}

// SyncConflict records a divergence between an unsynced local change and a
// newer remote version of the same entity.
type SyncConflict struct {
	ID         string     `json:"id"`
	EntityID   string     `json:"entity_id"`
	EntityType EntityType `json:"entity_type"`

	// LocalSnapshot is the JSON encoding of the local entity at detection.
	LocalSnapshot json.RawMessage `json:"local_snapshot"`
	// RemoteSnapshot is nil when the remote side deleted the record.
	RemoteSnapshot *RemoteRecord `json:"remote_snapshot,omitempty"`
	// LocalDeleted is set when the local side was a pending delete.
	LocalDeleted bool `json:"local_deleted"`

	LocalModifiedAt  time.Time `json:"local_modified_at"`
	RemoteModifiedAt time.Time `json:"remote_modified_at"`

	Resolved   bool                `json:"resolved"`
	Resolution *ConflictResolution `json:"resolution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
