// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownEntityType is returned when a record type string does not name
// one of the synchronized entity kinds.
var ErrUnknownEntityType = errors.New("unknown entity type")

// EntityType identifies a kind of synchronized entity. The same value is used
// as the remote record type.
type EntityType string

const (
	// EntityFolder identifies [Folder] entities.
	EntityFolder EntityType = "folder"
	// EntityFavoriteItem identifies [FavoriteItem] entities.
	EntityFavoriteItem EntityType = "favoriteItem"
	// EntityUser identifies the [UserProfile] entity.
	EntityUser EntityType = "user"
)

// EntityTypes lists every synchronized entity kind, parents before children.
// Downloads walk the types in this order so that a favorite item always finds
// its folder already applied.
var EntityTypes = []EntityType{EntityFolder, EntityFavoriteItem, EntityUser}

// ParseEntityType converts s into an [EntityType].
func ParseEntityType(s string) (EntityType, error) {
	switch t := EntityType(s); t {
	case EntityFolder, EntityFavoriteItem, EntityUser:
		return t, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
}

// EntitySyncStatus is the per-entity sync state scanned by the change tracker.
type EntitySyncStatus string

const (
	// StatusSynced means local and remote agree.
	StatusSynced EntitySyncStatus = "synced"
	// StatusPendingUpload marks a local create or edit not yet pushed.
	StatusPendingUpload EntitySyncStatus = "pendingUpload"
	// StatusPendingDelete marks a tombstoned entity whose remote delete is
	// not yet confirmed.
	StatusPendingDelete EntitySyncStatus = "pendingDelete"
	// StatusConflict marks an entity blocked by an unresolved [SyncConflict].
	StatusConflict EntitySyncStatus = "conflict"
)

// Entity is the type-agnostic view of a locally stored domain object that
// takes part in synchronization. It is implemented by *Folder,
// *FavoriteItem and *UserProfile.
type Entity interface {
	// GetID returns the local primary key.
	GetID() string
	// GetType returns the entity kind.
	GetType() EntityType
	GetSyncStatus() EntitySyncStatus
	SetSyncStatus(status EntitySyncStatus)
	GetLastModified() time.Time
	// GetParentID returns the local id of the parent entity, or "" when the
	// kind has no parent.
	GetParentID() string
	SetParentID(id string)
	// RecordFields encodes the entity's named fields for a remote record.
	RecordFields() (json.RawMessage, error)
	// ApplyRecordFields overwrites the named fields with the ones decoded
	// from a remote record and sets the last modification time.
	ApplyRecordFields(fields json.RawMessage, modifiedAt time.Time) error
}

// NewEntity returns an empty entity of type t with the given local id.
func NewEntity(t EntityType, id string) (Entity, error) {
	switch t {
	case EntityFolder:
		return &Folder{ID: id}, nil
	case EntityFavoriteItem:
		return &FavoriteItem{ID: id}, nil
	case EntityUser:
		return &UserProfile{ID: id}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
}

// CloneEntity returns a deep copy of e.
func CloneEntity(e Entity) Entity {
	switch v := e.(type) {
	case *Folder:
		c := *v
		return &c
	case *FavoriteItem:
		c := *v
		if v.Note != nil {
			note := *v.Note
			c.Note = &note
		}
		return &c
	case *UserProfile:
		c := *v
		if v.Email != nil {
			email := *v.Email
			c.Email = &email
		}
		return &c
	}

	return e
}

// Snapshot serializes the full local state of e for conflict bookkeeping.
func Snapshot(e Entity) (json.RawMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s %s: %w", e.GetType(), e.GetID(), err)
	}

	return data, nil
}
