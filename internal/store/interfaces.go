// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-favsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// EntityRepository is the local store of folders, favorite items and the
// user profile.
type EntityRepository interface {
	// QueryPending returns entities of type t carrying the given status.
	QueryPending(ctx context.Context, t models.EntityType, status models.EntitySyncStatus) ([]models.Entity, error)
	// GetByID returns ErrEntityNotFound for an unknown id.
	GetByID(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	List(ctx context.Context, t models.EntityType) ([]models.Entity, error)
	Upsert(ctx context.Context, e models.Entity) error
	Delete(ctx context.Context, t models.EntityType, id string) error
	// CountUnsynced counts entities of every type not in the synced state.
	CountUnsynced(ctx context.Context) (int, error)
}

// SyncMetadataRepository persists the sync engine's own bookkeeping.
type SyncMetadataRepository interface {
	GetStatus(ctx context.Context) (models.SyncStatus, error)
	SaveStatus(ctx context.Context, status models.SyncStatus) error

	SaveOperation(ctx context.Context, op models.SyncOperation) error
	GetOperation(ctx context.Context, id string) (models.SyncOperation, error)
	ListOperationsByStatus(ctx context.Context, statuses ...models.OperationStatus) ([]models.SyncOperation, error)

	GetSyncRecord(ctx context.Context, t models.EntityType, localID string) (models.SyncRecord, error)
	GetSyncRecordByRemoteID(ctx context.Context, t models.EntityType, remoteID string) (models.SyncRecord, error)
	UpsertSyncRecord(ctx context.Context, rec models.SyncRecord) error
	DeleteSyncRecord(ctx context.Context, t models.EntityType, localID string) error

	// GetChangeToken returns nil when type t has never been fetched.
	GetChangeToken(ctx context.Context, t models.EntityType) (models.ChangeToken, error)
	SaveChangeTokens(ctx context.Context, tokens map[models.EntityType]models.ChangeToken) error

	SaveConflict(ctx context.Context, c models.SyncConflict) error
	GetConflict(ctx context.Context, id string) (models.SyncConflict, error)
	// FindOpenConflict returns the unresolved conflict of an entity.
	FindOpenConflict(ctx context.Context, t models.EntityType, entityID string) (models.SyncConflict, error)
	ListConflicts(ctx context.Context, unresolvedOnly bool) ([]models.SyncConflict, error)
	CountUnresolvedConflicts(ctx context.Context) (int, error)
}

// Storage groups the repositories of one consistent view: the committed
// state, or a transaction's.
type Storage interface {
	Entities() EntityRepository
	Metadata() SyncMetadataRepository
}

// Transactor runs fn inside a write transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error
}

// LocalStorage is the client's complete local store.
type LocalStorage interface {
	Storage
	Transactor

	// Lock makes the caller the only owner of the store. It fails fast with
	// ErrStorageLocked instead of waiting for the current owner.
	Lock() error
	// Unlock gives up ownership. Unlocking a store that is not held is a no-op.
	Unlock() error

	Close() error
}

// RecordRepository is the record server's per-user record store.
type RecordRepository interface {
	// Push stores rec under versionTag. A non-empty rec.VersionTag must match
	// the live record's tag or ErrVersionConflict is returned.
	Push(ctx context.Context, userID int64, rec models.RemoteRecord, versionTag string) (models.RemoteRecord, error)
	// Delete tombstones a live record; ErrRecordNotFound otherwise.
	Delete(ctx context.Context, userID int64, t models.EntityType, remoteID string) error
	// Changes returns up to limit changes of type t after sequence afterSeq.
	Changes(ctx context.Context, userID int64, t models.EntityType, afterSeq int64, limit int) ([]models.RecordChange, error)
	Ping(ctx context.Context) error
}
