// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
	"golang.org/x/sync/errgroup"
)

// uploadChains are pushed concurrently. Types inside a chain go in order, so
// a favorite item is pushed only after its folder. Deletes walk a chain
// backwards.
var uploadChains = [][]models.EntityType{
	{models.EntityFolder, models.EntityFavoriteItem},
	{models.EntityUser},
}

var errParentNotSynced = errors.New("parent entity has no remote identity yet")

// remoteUploader pushes pending local changes to the remote.
type remoteUploader struct {
	storage store.LocalStorage
	remote  adapter.RemoteClient
	tracker *changeTracker

	now    func() time.Time
	logger *logger.Logger
}

func newRemoteUploader(storage store.LocalStorage, remote adapter.RemoteClient, now func() time.Time, log *logger.Logger) *remoteUploader {
	return &remoteUploader{
		storage: storage,
		remote:  remote,
		tracker: newChangeTracker(storage),
		now:     now,
		logger:  log,
	}
}

// UploadPending pushes every pending upload and delete. The first failure
// cancels the other chain and is returned; records pushed before it stay
// synced.
func (u *remoteUploader) UploadPending(ctx context.Context, progress *operationTracker) error {
	pending, err := u.tracker.Collect(ctx)
	if err != nil {
		return err
	}

	if err = progress.AddTotal(ctx, pending.Total()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, chain := range uploadChains {
		g.Go(func() error {
			return u.uploadChain(gctx, chain, pending, progress)
		})
	}

	return g.Wait()
}

// uploadChain counts only records the remote accepted. Postponed and refused
// ones stay pending and are left out of itemsProcessed.
func (u *remoteUploader) uploadChain(ctx context.Context, chain []models.EntityType, pending PendingChanges, progress *operationTracker) error {
	for _, t := range chain {
		skipped := 0
		for _, e := range pending.Uploads[t] {
			pushed, err := u.push(ctx, e)
			if err != nil {
				return err
			}
			if !pushed {
				skipped++
				continue
			}
			if err = progress.Advance(ctx, 1); err != nil {
				return err
			}
		}
		if skipped > 0 {
			u.logger.Info().Str("func", "remoteUploader.uploadChain").
				Str("entity_type", string(t)).
				Int("skipped", skipped).
				Msg("records left pending for the next sync")
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		for _, e := range pending.Deletes[chain[i]] {
			if err := u.delete(ctx, e); err != nil {
				return err
			}
			if err := progress.Advance(ctx, 1); err != nil {
				return err
			}
		}
	}

	return nil
}

// push reports whether the remote accepted e.
func (u *remoteUploader) push(ctx context.Context, e models.Entity) (bool, error) {
	log := u.logger.With().Str("func", "remoteUploader.push").
		Str("entity_type", string(e.GetType())).
		Str("entity_id", e.GetID()).Logger()

	rec, err := u.buildRecord(ctx, e)
	if errors.Is(err, errParentNotSynced) {
		log.Warn().Str("parent_id", e.GetParentID()).Msg("parent is not synced, upload postponed")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	remoteID, versionTag, err := u.remote.Push(ctx, rec)
	if errors.Is(err, adapter.ErrVersionConflict) {
		// The newer remote version arrives in the download phase and becomes
		// a conflict there.
		log.Info().Msg("remote version is newer, entity left pending")
		return false, nil
	}
	if err != nil {
		log.Err(err).Msg("push failed")
		return false, mapRemoteError(err)
	}

	syncedAt := u.now()
	return true, u.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		current, err := tx.Entities().GetByID(ctx, e.GetType(), e.GetID())
		switch {
		case errors.Is(err, store.ErrEntityNotFound):
		case err != nil:
			return mapStoreError(err)
		case current.GetSyncStatus() == models.StatusPendingUpload && current.GetLastModified().Equal(e.GetLastModified()):
			current.SetSyncStatus(models.StatusSynced)
			if err = tx.Entities().Upsert(ctx, current); err != nil {
				return mapStoreError(err)
			}
		}

		return mapStoreError(tx.Metadata().UpsertSyncRecord(ctx, models.SyncRecord{
			EntityType:       e.GetType(),
			LocalID:          e.GetID(),
			RemoteID:         remoteID,
			RemoteVersionTag: versionTag,
			LastSynced:       syncedAt,
		}))
	})
}

// buildRecord assembles the push record of e. The remote id is the linked one
// or, on first push, the local id; the version tag is the last one seen.
func (u *remoteUploader) buildRecord(ctx context.Context, e models.Entity) (models.RemoteRecord, error) {
	fields, err := e.RecordFields()
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	rec := models.RemoteRecord{
		RecordType: e.GetType(),
		RemoteID:   e.GetID(),
		ModifiedAt: e.GetLastModified(),
		Fields:     fields,
	}

	link, err := u.storage.Metadata().GetSyncRecord(ctx, e.GetType(), e.GetID())
	switch {
	case errors.Is(err, store.ErrSyncRecordNotFound):
	case err != nil:
		return models.RemoteRecord{}, mapStoreError(err)
	default:
		rec.RemoteID = link.RemoteID
		rec.VersionTag = link.RemoteVersionTag
	}

	if e.GetType() == models.EntityFavoriteItem {
		parent, err := u.storage.Metadata().GetSyncRecord(ctx, models.EntityFolder, e.GetParentID())
		if errors.Is(err, store.ErrSyncRecordNotFound) {
			return models.RemoteRecord{}, errParentNotSynced
		}
		if err != nil {
			return models.RemoteRecord{}, mapStoreError(err)
		}
		rec.ParentRemoteID = parent.RemoteID
	}

	return rec, nil
}

func (u *remoteUploader) delete(ctx context.Context, e models.Entity) error {
	link, err := u.storage.Metadata().GetSyncRecord(ctx, e.GetType(), e.GetID())
	switch {
	case errors.Is(err, store.ErrSyncRecordNotFound):
		// Never synced: nothing to delete remotely.
	case err != nil:
		return mapStoreError(err)
	default:
		err = u.remote.Delete(ctx, e.GetType(), link.RemoteID)
		if err != nil && !errors.Is(err, adapter.ErrNotFound) {
			u.logger.Err(err).Str("func", "remoteUploader.delete").
				Str("entity_type", string(e.GetType())).
				Str("remote_id", link.RemoteID).
				Msg("remote delete failed")
			return mapRemoteError(err)
		}
	}

	return u.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		if err := tx.Metadata().DeleteSyncRecord(ctx, e.GetType(), e.GetID()); err != nil {
			return mapStoreError(err)
		}
		return mapStoreError(tx.Entities().Delete(ctx, e.GetType(), e.GetID()))
	})
}
