// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
)

// remoteFetcher pulls remote change feeds and hands every record to the
// conflict resolver.
type remoteFetcher struct {
	storage  store.LocalStorage
	remote   adapter.RemoteClient
	resolver ConflictResolver

	logger *logger.Logger
}

func newRemoteFetcher(storage store.LocalStorage, remote adapter.RemoteClient, resolver ConflictResolver, log *logger.Logger) *remoteFetcher {
	return &remoteFetcher{storage: storage, remote: remote, resolver: resolver, logger: log}
}

// DownloadChanges walks the feed of every type, parents first. The new tokens
// are saved together, and only after every type succeeded; a failure leaves
// all tokens where they were so that a retry re-reads the same changes.
func (f *remoteFetcher) DownloadChanges(ctx context.Context, progress *operationTracker) error {
	tokens := make(map[models.EntityType]models.ChangeToken, len(models.EntityTypes))

	for _, t := range models.EntityTypes {
		token, err := f.fetchType(ctx, t, progress)
		if err != nil {
			return err
		}
		tokens[t] = token
	}

	return f.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		return mapStoreError(tx.Metadata().SaveChangeTokens(ctx, tokens))
	})
}

func (f *remoteFetcher) fetchType(ctx context.Context, t models.EntityType, progress *operationTracker) (models.ChangeToken, error) {
	log := f.logger.With().Str("func", "remoteFetcher.fetchType").Str("entity_type", string(t)).Logger()

	token, err := f.storage.Metadata().GetChangeToken(ctx, t)
	if err != nil {
		return nil, mapStoreError(err)
	}

	for {
		changes, err := f.remote.FetchChanges(ctx, t, token)
		if err != nil {
			log.Err(err).Msg("fetching changes failed")
			return nil, mapRemoteError(err)
		}

		if err = progress.AddTotal(ctx, changes.Len()); err != nil {
			return nil, err
		}

		for _, rec := range changes.Changed {
			if err = f.apply(ctx, t, rec, progress); err != nil {
				return nil, err
			}
		}
		for _, remoteID := range changes.DeletedIDs {
			if err = f.applyDeletion(ctx, t, remoteID, progress); err != nil {
				return nil, err
			}
		}

		if !changes.MoreComing {
			return changes.NewToken, nil
		}
		if bytes.Equal(changes.NewToken, token) {
			return nil, fmt.Errorf("%w: %s feed did not advance", ErrRemoteTransport, t)
		}
		token = changes.NewToken
	}
}

func (f *remoteFetcher) apply(ctx context.Context, t models.EntityType, rec models.RemoteRecord, progress *operationTracker) error {
	rec.RecordType = t

	var conflict *models.SyncConflict
	err := f.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		var err error
		_, conflict, err = f.resolver.Reconcile(ctx, tx, t, rec)
		return err
	})
	if err != nil {
		return mapStoreError(err)
	}

	if conflict != nil {
		f.logger.Info().Str("func", "remoteFetcher.apply").
			Str("conflict_id", conflict.ID).
			Str("entity_type", string(t)).
			Str("entity_id", conflict.EntityID).
			Msg("conflict recorded")
	}

	return progress.Advance(ctx, 1)
}

func (f *remoteFetcher) applyDeletion(ctx context.Context, t models.EntityType, remoteID string, progress *operationTracker) error {
	err := f.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		_, _, err := f.resolver.ReconcileDeletion(ctx, tx, t, remoteID)
		return err
	})
	if err != nil {
		return mapStoreError(err)
	}

	return progress.Advance(ctx, 1)
}
