// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

type conflictResolver struct {
	storage store.LocalStorage
	ids     utils.IDGenerator
	merges  map[models.EntityType]MergeFunc

	now    func() time.Time
	logger *logger.Logger
}

// NewConflictResolver returns a resolver using merges for the merge
// resolution. A type without a MergeFunc resolves merge as useRemote.
func NewConflictResolver(storage store.LocalStorage, ids utils.IDGenerator, merges map[models.EntityType]MergeFunc, log *logger.Logger) ConflictResolver {
	return newConflictResolver(storage, ids, merges, time.Now, log)
}

func newConflictResolver(storage store.LocalStorage, ids utils.IDGenerator, merges map[models.EntityType]MergeFunc, now func() time.Time, log *logger.Logger) *conflictResolver {
	if merges == nil {
		merges = make(map[models.EntityType]MergeFunc)
	}

	return &conflictResolver{storage: storage, ids: ids, merges: merges, now: now, logger: log}
}

// ── reconcile ────────────────────────────────────────────────────────────────

func (r *conflictResolver) Reconcile(ctx context.Context, tx store.Storage, t models.EntityType, rec models.RemoteRecord) (bool, *models.SyncConflict, error) {
	rec.RecordType = t

	link, err := tx.Metadata().GetSyncRecordByRemoteID(ctx, t, rec.RemoteID)
	if errors.Is(err, store.ErrSyncRecordNotFound) {
		return r.reconcileUnlinked(ctx, tx, rec)
	}
	if err != nil {
		return false, nil, mapStoreError(err)
	}

	local, err := tx.Entities().GetByID(ctx, t, link.LocalID)
	if errors.Is(err, store.ErrEntityNotFound) {
		entity, err := models.NewEntity(t, link.LocalID)
		if err != nil {
			return false, nil, err
		}
		return true, nil, r.apply(ctx, tx, entity, rec)
	}
	if err != nil {
		return false, nil, mapStoreError(err)
	}

	switch local.GetSyncStatus() {
	case models.StatusConflict:
		conflict, err := r.refreshConflict(ctx, tx, local, &rec)
		return false, conflict, err

	case models.StatusPendingUpload, models.StatusPendingDelete:
		if !rec.ModifiedAt.After(link.LastSynced) {
			// The local edit is newer. Taking the remote version tag lets the
			// next push overwrite the stale record instead of being refused.
			r.logger.Debug().Str("func", "conflictResolver.Reconcile").
				Str("entity_type", string(t)).
				Str("remote_id", rec.RemoteID).
				Msg("stale remote record discarded")
			if rec.VersionTag == "" || rec.VersionTag == link.RemoteVersionTag {
				return false, nil, nil
			}
			link.RemoteVersionTag = rec.VersionTag
			return false, nil, mapStoreError(tx.Metadata().UpsertSyncRecord(ctx, link))
		}
		conflict, err := r.recordConflict(ctx, tx, local, &rec)
		return false, conflict, err
	}

	return true, nil, r.apply(ctx, tx, local, rec)
}

// reconcileUnlinked handles a record no local entity is linked to. Normally
// that is a remote-origin insert stored under local id = remote id. When an
// unsynced local entity already carries that id, the record is the echo of a
// first push whose acknowledgement was lost, or a genuine conflict.
func (r *conflictResolver) reconcileUnlinked(ctx context.Context, tx store.Storage, rec models.RemoteRecord) (bool, *models.SyncConflict, error) {
	local, err := tx.Entities().GetByID(ctx, rec.RecordType, rec.RemoteID)
	if errors.Is(err, store.ErrEntityNotFound) {
		entity, err := models.NewEntity(rec.RecordType, rec.RemoteID)
		if err != nil {
			return false, nil, err
		}
		return true, nil, r.apply(ctx, tx, entity, rec)
	}
	if err != nil {
		return false, nil, mapStoreError(err)
	}

	if local.GetSyncStatus() == models.StatusSynced {
		return true, nil, r.apply(ctx, tx, local, rec)
	}

	if local.GetSyncStatus() == models.StatusPendingUpload && local.GetLastModified().Equal(rec.ModifiedAt) {
		return false, nil, mapStoreError(tx.Metadata().UpsertSyncRecord(ctx, models.SyncRecord{
			EntityType:       rec.RecordType,
			LocalID:          local.GetID(),
			RemoteID:         rec.RemoteID,
			RemoteVersionTag: rec.VersionTag,
			LastSynced:       r.now(),
		}))
	}

	if local.GetSyncStatus() == models.StatusConflict {
		conflict, err := r.refreshConflict(ctx, tx, local, &rec)
		return false, conflict, err
	}

	conflict, err := r.recordConflict(ctx, tx, local, &rec)
	return false, conflict, err
}

func (r *conflictResolver) ReconcileDeletion(ctx context.Context, tx store.Storage, t models.EntityType, remoteID string) (bool, *models.SyncConflict, error) {
	link, err := tx.Metadata().GetSyncRecordByRemoteID(ctx, t, remoteID)
	if errors.Is(err, store.ErrSyncRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, mapStoreError(err)
	}

	local, err := tx.Entities().GetByID(ctx, t, link.LocalID)
	if errors.Is(err, store.ErrEntityNotFound) {
		return true, nil, mapStoreError(tx.Metadata().DeleteSyncRecord(ctx, t, link.LocalID))
	}
	if err != nil {
		return false, nil, mapStoreError(err)
	}

	switch local.GetSyncStatus() {
	case models.StatusPendingUpload:
		conflict, err := r.recordConflict(ctx, tx, local, nil)
		return false, conflict, err
	case models.StatusConflict:
		conflict, err := r.refreshConflict(ctx, tx, local, nil)
		return false, conflict, err
	}

	return true, nil, r.remove(ctx, tx, t, link.LocalID)
}

// apply overwrites e with rec and marks it synced.
func (r *conflictResolver) apply(ctx context.Context, tx store.Storage, e models.Entity, rec models.RemoteRecord) error {
	if err := e.ApplyRecordFields(rec.Fields, rec.ModifiedAt); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrInvalidDataProvided, rec.RecordType, rec.RemoteID, err)
	}

	if rec.ParentRemoteID != "" {
		parentID, err := r.localParentID(ctx, tx, rec.ParentRemoteID)
		if err != nil {
			return err
		}
		e.SetParentID(parentID)
	}

	e.SetSyncStatus(models.StatusSynced)
	if err := tx.Entities().Upsert(ctx, e); err != nil {
		return mapStoreError(err)
	}

	link, err := tx.Metadata().GetSyncRecord(ctx, e.GetType(), e.GetID())
	switch {
	case errors.Is(err, store.ErrSyncRecordNotFound):
	case err != nil:
		return mapStoreError(err)
	case rec.VersionTag != "" && link.RemoteID == rec.RemoteID && link.RemoteVersionTag == rec.VersionTag && !link.Deleted:
		// Same version applied again.
		return nil
	}

	return mapStoreError(tx.Metadata().UpsertSyncRecord(ctx, models.SyncRecord{
		EntityType:       e.GetType(),
		LocalID:          e.GetID(),
		RemoteID:         rec.RemoteID,
		RemoteVersionTag: rec.VersionTag,
		LastSynced:       r.now(),
	}))
}

// localParentID maps a folder's remote id to its local id. A folder that has
// not arrived yet gets the remote id, which is the id it will be stored under.
func (r *conflictResolver) localParentID(ctx context.Context, tx store.Storage, parentRemoteID string) (string, error) {
	link, err := tx.Metadata().GetSyncRecordByRemoteID(ctx, models.EntityFolder, parentRemoteID)
	if errors.Is(err, store.ErrSyncRecordNotFound) {
		return parentRemoteID, nil
	}
	if err != nil {
		return "", mapStoreError(err)
	}
	return link.LocalID, nil
}

func (r *conflictResolver) remove(ctx context.Context, tx store.Storage, t models.EntityType, localID string) error {
	if err := tx.Entities().Delete(ctx, t, localID); err != nil {
		return mapStoreError(err)
	}
	return mapStoreError(tx.Metadata().DeleteSyncRecord(ctx, t, localID))
}

// recordConflict stores a new conflict for local against remote (nil for a
// remote delete) and blocks the entity.
func (r *conflictResolver) recordConflict(ctx context.Context, tx store.Storage, local models.Entity, remote *models.RemoteRecord) (*models.SyncConflict, error) {
	snapshot, err := models.Snapshot(local)
	if err != nil {
		return nil, err
	}

	now := r.now()
	conflict := models.SyncConflict{
		ID:              r.ids.Generate(),
		EntityID:        local.GetID(),
		EntityType:      local.GetType(),
		LocalSnapshot:   snapshot,
		RemoteSnapshot:  remote,
		LocalDeleted:    local.GetSyncStatus() == models.StatusPendingDelete,
		LocalModifiedAt: local.GetLastModified(),
		CreatedAt:       now,
	}
	conflict.RemoteModifiedAt = now
	if remote != nil {
		conflict.RemoteModifiedAt = remote.ModifiedAt
	}

	if err = tx.Metadata().SaveConflict(ctx, conflict); err != nil {
		return nil, mapStoreError(err)
	}

	local.SetSyncStatus(models.StatusConflict)
	if err = tx.Entities().Upsert(ctx, local); err != nil {
		return nil, mapStoreError(err)
	}

	return &conflict, nil
}

// refreshConflict points the entity's open conflict at the latest remote
// state.
func (r *conflictResolver) refreshConflict(ctx context.Context, tx store.Storage, local models.Entity, remote *models.RemoteRecord) (*models.SyncConflict, error) {
	conflict, err := tx.Metadata().FindOpenConflict(ctx, local.GetType(), local.GetID())
	if errors.Is(err, store.ErrConflictNotFound) {
		r.logger.Warn().Str("func", "conflictResolver.refreshConflict").
			Str("entity_type", string(local.GetType())).
			Str("entity_id", local.GetID()).
			Msg("entity in conflict without an open conflict, recording a new one")
		local.SetSyncStatus(models.StatusPendingUpload)
		return r.recordConflict(ctx, tx, local, remote)
	}
	if err != nil {
		return nil, mapStoreError(err)
	}

	conflict.RemoteSnapshot = remote
	conflict.RemoteModifiedAt = r.now()
	if remote != nil {
		conflict.RemoteModifiedAt = remote.ModifiedAt
	}

	if err = tx.Metadata().SaveConflict(ctx, conflict); err != nil {
		return nil, mapStoreError(err)
	}
	return &conflict, nil
}

// ── resolve ──────────────────────────────────────────────────────────────────

func (r *conflictResolver) ResolveConflict(ctx context.Context, id string, resolution models.ConflictResolution) (models.SyncConflict, error) {
	log := r.logger.With().Str("func", "conflictResolver.ResolveConflict").
		Str("conflict_id", id).
		Str("resolution", string(resolution)).Logger()

	var resolved models.SyncConflict
	err := r.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		conflict, err := tx.Metadata().GetConflict(ctx, id)
		if err != nil {
			return mapStoreError(err)
		}
		if conflict.Resolved {
			return fmt.Errorf("%w: %s", ErrConflictAlreadyResolved, id)
		}

		local, err := r.conflictEntity(ctx, tx, conflict)
		if err != nil {
			return err
		}

		switch resolution {
		case models.ResolutionUseLocal:
			err = r.keepLocal(ctx, tx, conflict, local)
		case models.ResolutionUseRemote:
			err = r.takeRemote(ctx, tx, conflict, local)
		case models.ResolutionMerge:
			merge, ok := r.merges[conflict.EntityType]
			if !ok {
				log.Warn().Str("entity_type", string(conflict.EntityType)).Msg("no merge strategy registered, using remote version")
				err = r.takeRemote(ctx, tx, conflict, local)
				break
			}
			var merged models.Entity
			if merged, err = merge(local, conflict.RemoteSnapshot); err != nil {
				return fmt.Errorf("merge %s %s: %w", conflict.EntityType, conflict.EntityID, err)
			}
			err = r.keepLocal(ctx, tx, conflict, merged)
		default:
			return fmt.Errorf("%w: %q", models.ErrUnknownResolution, resolution)
		}
		if err != nil {
			return err
		}

		conflict.Resolved = true
		conflict.Resolution = &resolution
		if err = tx.Metadata().SaveConflict(ctx, conflict); err != nil {
			return mapStoreError(err)
		}

		resolved = conflict
		return nil
	})
	if err != nil {
		log.Err(err).Msg("resolving conflict failed")
		return models.SyncConflict{}, err
	}

	log.Info().Str("entity_id", resolved.EntityID).Msg("conflict resolved")
	return resolved, nil
}

// conflictEntity loads the conflicted entity, falling back to the local
// snapshot when the row is gone.
func (r *conflictResolver) conflictEntity(ctx context.Context, tx store.Storage, c models.SyncConflict) (models.Entity, error) {
	local, err := tx.Entities().GetByID(ctx, c.EntityType, c.EntityID)
	if err == nil {
		return local, nil
	}
	if !errors.Is(err, store.ErrEntityNotFound) {
		return nil, mapStoreError(err)
	}

	local, err = models.NewEntity(c.EntityType, c.EntityID)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(c.LocalSnapshot, local); err != nil {
		return nil, fmt.Errorf("%w: local snapshot of %s: %w", ErrInvalidDataProvided, c.EntityID, err)
	}
	return local, nil
}

// keepLocal re-queues e for upload (or for deletion when the local side was
// a delete). The link's version tag moves to the remote snapshot's so that
// the next push overwrites it, and a re-delivery of that snapshot is stale.
func (r *conflictResolver) keepLocal(ctx context.Context, tx store.Storage, c models.SyncConflict, e models.Entity) error {
	status := models.StatusPendingUpload
	if c.LocalDeleted {
		status = models.StatusPendingDelete
	}
	e.SetSyncStatus(status)

	if err := tx.Entities().Upsert(ctx, e); err != nil {
		return mapStoreError(err)
	}

	link, err := tx.Metadata().GetSyncRecord(ctx, c.EntityType, c.EntityID)
	if errors.Is(err, store.ErrSyncRecordNotFound) {
		if c.RemoteSnapshot == nil {
			return nil
		}
		link = models.SyncRecord{EntityType: c.EntityType, LocalID: c.EntityID, RemoteID: c.RemoteSnapshot.RemoteID}
	} else if err != nil {
		return mapStoreError(err)
	}

	link.Deleted = c.LocalDeleted
	if c.RemoteSnapshot != nil {
		link.RemoteVersionTag = c.RemoteSnapshot.VersionTag
		if c.RemoteSnapshot.ModifiedAt.After(link.LastSynced) {
			link.LastSynced = c.RemoteSnapshot.ModifiedAt
		}
	}

	return mapStoreError(tx.Metadata().UpsertSyncRecord(ctx, link))
}

// takeRemote applies the remote snapshot, or the remote delete.
func (r *conflictResolver) takeRemote(ctx context.Context, tx store.Storage, c models.SyncConflict, e models.Entity) error {
	if c.RemoteSnapshot == nil {
		return r.remove(ctx, tx, c.EntityType, c.EntityID)
	}
	return r.apply(ctx, tx, e, *c.RemoteSnapshot)
}

func (r *conflictResolver) ListConflicts(ctx context.Context, unresolvedOnly bool) ([]models.SyncConflict, error) {
	conflicts, err := r.storage.Metadata().ListConflicts(ctx, unresolvedOnly)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return conflicts, nil
}

// MergeFolder takes the name of the side edited last and the creation time
// of the remote folder. The local default flag and sort order are kept. A
// remote delete keeps the local folder.
func MergeFolder(local models.Entity, remote *models.RemoteRecord) (models.Entity, error) {
	folder, ok := local.(*models.Folder)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, local.GetType())
	}
	if remote == nil {
		return folder, nil
	}

	var theirs models.Folder
	if err := theirs.ApplyRecordFields(remote.Fields, remote.ModifiedAt); err != nil {
		return nil, err
	}

	merged := models.CloneEntity(folder).(*models.Folder)
	if !folder.LastModified.After(remote.ModifiedAt) {
		merged.Name = theirs.Name
		merged.LastModified = remote.ModifiedAt
	}
	if !theirs.CreatedAt.IsZero() {
		merged.CreatedAt = theirs.CreatedAt
	}

	return merged, nil
}

// MergeFavoriteItem keeps the remote word data and the local note when the
// remote one is empty. A remote delete keeps the local item.
func MergeFavoriteItem(local models.Entity, remote *models.RemoteRecord) (models.Entity, error) {
	item, ok := local.(*models.FavoriteItem)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, local.GetType())
	}
	if remote == nil {
		return item, nil
	}

	merged := models.CloneEntity(item).(*models.FavoriteItem)
	if err := merged.ApplyRecordFields(remote.Fields, remote.ModifiedAt); err != nil {
		return nil, err
	}
	if merged.Note == nil || *merged.Note == "" {
		merged.Note = item.Note
	}
	if item.LastModified.After(merged.LastModified) {
		merged.LastModified = item.LastModified
	}

	return merged, nil
}
