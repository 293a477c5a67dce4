// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncRecord links a local entity to its remote identity. One exists for
// every entity that has been synced at least once.
type SyncRecord struct {
	EntityType EntityType `json:"entity_type"`
	LocalID    string     `json:"local_id"`

	RemoteID         string `json:"remote_id"`
	RemoteVersionTag string `json:"remote_version_tag"`

	LastSynced time.Time `json:"last_synced"`

	// Deleted is the tombstone flag: the local entity is pending deletion
	// and the row is removed once the remote delete is confirmed.
	Deleted bool `json:"deleted"`
}
