// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
)

// syncGuard is the single-flight lock over the persisted status row.
// CurrentOperationID is the lock itself; the mutex serializes the
// read-modify-write of the row within this process and the transaction makes
// it atomic with the operation row.
type syncGuard struct {
	mu      sync.Mutex
	storage store.LocalStorage
}

func newSyncGuard(storage store.LocalStorage) *syncGuard {
	return &syncGuard{storage: storage}
}

// Acquire saves op and makes it current, or returns ErrOperationInProgress.
func (g *syncGuard) Acquire(ctx context.Context, op models.SyncOperation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		status, err := tx.Metadata().GetStatus(ctx)
		if err != nil {
			return mapStoreError(err)
		}
		if status.CurrentOperationID != "" {
			return fmt.Errorf("%w: %s", ErrOperationInProgress, status.CurrentOperationID)
		}

		if err = tx.Metadata().SaveOperation(ctx, op); err != nil {
			return mapStoreError(err)
		}

		status.CurrentOperationID = op.ID
		return mapStoreError(tx.Metadata().SaveStatus(ctx, status))
	})
}

// Release saves the terminal op, clears the current pointer and records op
// as the last operation in one transaction. lastSync is stored only for a
// completed operation.
func (g *syncGuard) Release(ctx context.Context, op models.SyncOperation, lastSync time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		if err := tx.Metadata().SaveOperation(ctx, op); err != nil {
			return mapStoreError(err)
		}

		status, err := tx.Metadata().GetStatus(ctx)
		if err != nil {
			return mapStoreError(err)
		}

		if status.CurrentOperationID == op.ID {
			status.CurrentOperationID = ""
		}
		status.LastOperationID = op.ID
		if op.Status == models.OperationCompleted {
			status.LastSyncTime = &lastSync
		}

		return mapStoreError(tx.Metadata().SaveStatus(ctx, status))
	})
}

// Update applies fn to the status row under the guard.
func (g *syncGuard) Update(ctx context.Context, fn func(status *models.SyncStatus)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		status, err := tx.Metadata().GetStatus(ctx)
		if err != nil {
			return mapStoreError(err)
		}

		fn(&status)
		return mapStoreError(tx.Metadata().SaveStatus(ctx, status))
	})
}

// Current returns the id of the running operation, "" when idle.
func (g *syncGuard) Current(ctx context.Context) (string, error) {
	status, err := g.storage.Metadata().GetStatus(ctx)
	if err != nil {
		return "", mapStoreError(err)
	}
	return status.CurrentOperationID, nil
}
