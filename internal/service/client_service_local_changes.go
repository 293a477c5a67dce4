// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

// DefaultFolderName names the folder created for items saved without one.
const DefaultFolderName = "Favorites"

type localChangeService struct {
	storage store.LocalStorage
	ids     utils.IDGenerator

	now    func() time.Time
	logger *logger.Logger
}

func NewLocalChangeService(storage store.LocalStorage, ids utils.IDGenerator, log *logger.Logger) LocalChangeService {
	return newLocalChangeService(storage, ids, time.Now, log)
}

func newLocalChangeService(storage store.LocalStorage, ids utils.IDGenerator, now func() time.Time, log *logger.Logger) *localChangeService {
	return &localChangeService{storage: storage, ids: ids, now: now, logger: log}
}

func (s *localChangeService) SaveFolder(ctx context.Context, folder *models.Folder) error {
	if folder == nil || folder.Name == "" {
		return fmt.Errorf("%w: folder name is required", ErrInvalidDataProvided)
	}

	now := s.now()
	if folder.ID == "" {
		folder.ID = s.ids.Generate()
		folder.CreatedAt = now
	}
	folder.LastModified = now

	return s.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		if folder.IsDefault {
			if err := s.clearDefault(ctx, tx, folder.ID, now); err != nil {
				return err
			}
		}
		return s.markDirty(ctx, tx, folder)
	})
}

// clearDefault drops the default flag from every folder but keepID.
func (s *localChangeService) clearDefault(ctx context.Context, tx store.Storage, keepID string, now time.Time) error {
	folders, err := tx.Entities().List(ctx, models.EntityFolder)
	if err != nil {
		return mapStoreError(err)
	}

	for _, e := range folders {
		f := e.(*models.Folder)
		if f.ID == keepID || !f.IsDefault {
			continue
		}
		f.IsDefault = false
		f.LastModified = now
		if err = s.markDirty(ctx, tx, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *localChangeService) SaveFavorite(ctx context.Context, item *models.FavoriteItem) error {
	if item == nil || item.WordID == "" || item.Word == "" {
		return fmt.Errorf("%w: word id and word are required", ErrInvalidDataProvided)
	}

	now := s.now()
	if item.ID == "" {
		item.ID = s.ids.Generate()
		item.AddedAt = now
	}
	item.LastModified = now

	return s.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		if item.FolderID == "" {
			folderID, err := s.defaultFolder(ctx, tx, now)
			if err != nil {
				return err
			}
			item.FolderID = folderID
		} else if _, err := tx.Entities().GetByID(ctx, models.EntityFolder, item.FolderID); err != nil {
			return mapStoreError(err)
		}

		return s.markDirty(ctx, tx, item)
	})
}

// defaultFolder returns the id of the default folder, creating it when the
// user has none.
func (s *localChangeService) defaultFolder(ctx context.Context, tx store.Storage, now time.Time) (string, error) {
	folders, err := tx.Entities().List(ctx, models.EntityFolder)
	if err != nil {
		return "", mapStoreError(err)
	}

	for _, e := range folders {
		if f := e.(*models.Folder); f.IsDefault && f.SyncStatus != models.StatusPendingDelete {
			return f.ID, nil
		}
	}

	folder := &models.Folder{
		ID:           s.ids.Generate(),
		Name:         DefaultFolderName,
		IsDefault:    true,
		CreatedAt:    now,
		LastModified: now,
	}
	if err = s.markDirty(ctx, tx, folder); err != nil {
		return "", err
	}

	s.logger.Info().Str("func", "localChangeService.defaultFolder").Str("folder_id", folder.ID).Msg("default folder created")
	return folder.ID, nil
}

func (s *localChangeService) Profile(ctx context.Context) (*models.UserProfile, error) {
	profiles, err := s.storage.Entities().List(ctx, models.EntityUser)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(profiles) > 0 {
		return profiles[0].(*models.UserProfile), nil
	}

	return &models.UserProfile{Settings: models.DefaultUserSettings()}, nil
}

func (s *localChangeService) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil || profile.Nickname == "" {
		return fmt.Errorf("%w: nickname is required", ErrInvalidDataProvided)
	}

	now := s.now()
	if profile.ID == "" {
		profile.ID = s.ids.Generate()
		profile.CreatedAt = now
	}
	profile.LastModified = now

	return s.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		return s.markDirty(ctx, tx, profile)
	})
}

func (s *localChangeService) MarkDeleted(ctx context.Context, t models.EntityType, id string) error {
	if _, err := models.ParseEntityType(string(t)); err != nil {
		return err
	}

	return s.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		e, err := tx.Entities().GetByID(ctx, t, id)
		if err != nil {
			return mapStoreError(err)
		}

		if t == models.EntityFolder {
			items, err := tx.Entities().List(ctx, models.EntityFavoriteItem)
			if err != nil {
				return mapStoreError(err)
			}
			for _, item := range items {
				if item.GetParentID() != id || item.GetSyncStatus() == models.StatusPendingDelete {
					continue
				}
				if err = s.tombstone(ctx, tx, item); err != nil {
					return err
				}
			}
		}

		return s.tombstone(ctx, tx, e)
	})
}

func (s *localChangeService) tombstone(ctx context.Context, tx store.Storage, e models.Entity) error {
	if e.GetSyncStatus() == models.StatusConflict {
		return fmt.Errorf("%w: %s %s", ErrConflictUnresolved, e.GetType(), e.GetID())
	}

	e.SetSyncStatus(models.StatusPendingDelete)
	if err := tx.Entities().Upsert(ctx, e); err != nil {
		return mapStoreError(err)
	}

	return s.setLinkDeleted(ctx, tx, e, true)
}

// markDirty saves e as a pending upload. An entity blocked by a conflict
// stays in conflict.
func (s *localChangeService) markDirty(ctx context.Context, tx store.Storage, e models.Entity) error {
	status := models.StatusPendingUpload

	current, err := tx.Entities().GetByID(ctx, e.GetType(), e.GetID())
	switch {
	case errors.Is(err, store.ErrEntityNotFound):
	case err != nil:
		return mapStoreError(err)
	case current.GetSyncStatus() == models.StatusConflict:
		status = models.StatusConflict
	}

	e.SetSyncStatus(status)
	if err = tx.Entities().Upsert(ctx, e); err != nil {
		return mapStoreError(err)
	}

	if current != nil && current.GetSyncStatus() == models.StatusPendingDelete {
		return s.setLinkDeleted(ctx, tx, e, false)
	}
	return nil
}

// setLinkDeleted flips the tombstone flag of e's sync record, if it has one.
func (s *localChangeService) setLinkDeleted(ctx context.Context, tx store.Storage, e models.Entity, deleted bool) error {
	link, err := tx.Metadata().GetSyncRecord(ctx, e.GetType(), e.GetID())
	if errors.Is(err, store.ErrSyncRecordNotFound) {
		return nil
	}
	if err != nil {
		return mapStoreError(err)
	}

	link.Deleted = deleted
	return mapStoreError(tx.Metadata().UpsertSyncRecord(ctx, link))
}

func (s *localChangeService) Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	e, err := s.storage.Entities().GetByID(ctx, t, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return e, nil
}

func (s *localChangeService) List(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	if _, err := models.ParseEntityType(string(t)); err != nil {
		return nil, err
	}

	entities, err := s.storage.Entities().List(ctx, t)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return entities, nil
}
