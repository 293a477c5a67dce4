// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// RemoteRecord is the wire form of an entity: a stable id, named fields and a
// modification timestamp.
type RemoteRecord struct {
	RecordType EntityType `json:"record_type"`
	RemoteID   string     `json:"remote_id"`

	// VersionTag is the server-assigned version. On push it carries the tag
	// the client last saw; an empty tag skips the optimistic check.
	VersionTag string `json:"version_tag,omitempty"`

	// ParentRemoteID references the parent record (a favorite item's folder).
	ParentRemoteID string `json:"parent_remote_id,omitempty"`

	ModifiedAt time.Time       `json:"modified_at"`
	Fields     json.RawMessage `json:"fields"`
}

// ChangeToken is an opaque cursor into one record type's change history.
// Nothing is assumed about its contents; nil means "from the beginning".
type ChangeToken []byte

// ChangeSet is one page of a record type's change feed.
type ChangeSet struct {
	Changed    []RemoteRecord `json:"changed"`
	DeletedIDs []string       `json:"deleted_ids"`
	NewToken   ChangeToken    `json:"new_token"`
	// MoreComing tells the caller to fetch again with NewToken before the
	// feed is exhausted.
	MoreComing bool `json:"more_coming"`
}

// Len is the number of items the change set contributes to progress.
func (c ChangeSet) Len() int {
	return len(c.Changed) + len(c.DeletedIDs)
}

// RecordChange is one entry of a server-side change feed.
type RecordChange struct {
	Record  RemoteRecord
	Deleted bool
	Seq     int64
}
