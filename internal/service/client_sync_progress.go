// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
)

const progressBufferSize = 16

// progressBroadcaster fans operation snapshots out to subscribers.
// Intermediate snapshots are dropped for a subscriber whose buffer is full;
// a terminal snapshot evicts the oldest buffered one if needed, is always
// delivered, and closes the channel.
type progressBroadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan models.SyncOperation
	nextID int
}

func newProgressBroadcaster() *progressBroadcaster {
	return &progressBroadcaster{subs: make(map[int]chan models.SyncOperation)}
}

func (b *progressBroadcaster) Subscribe() (<-chan models.SyncOperation, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan models.SyncOperation, progressBufferSize)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *progressBroadcaster) Publish(op models.SyncOperation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		if !op.IsTerminal() {
			select {
			case ch <- op:
			default:
			}
			continue
		}

		for delivered := false; !delivered; {
			select {
			case ch <- op:
				delivered = true
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
		delete(b.subs, id)
		close(ch)
	}
}

// operationTracker owns the in-flight SyncOperation of a pipeline run: it
// counts work, persists every change and publishes the snapshot.
type operationTracker struct {
	mu sync.Mutex
	op models.SyncOperation

	storage  store.Transactor
	progress *progressBroadcaster
	logger   *logger.Logger
}

func newOperationTracker(op models.SyncOperation, storage store.Transactor, progress *progressBroadcaster, log *logger.Logger) *operationTracker {
	return &operationTracker{op: op, storage: storage, progress: progress, logger: log}
}

// Start moves the operation to running.
func (t *operationTracker) Start(ctx context.Context) error {
	return t.update(ctx, func(op *models.SyncOperation) {
		op.Status = models.OperationRunning
	})
}

// AddTotal grows the expected amount of work by n.
func (t *operationTracker) AddTotal(ctx context.Context, n int) error {
	if n == 0 {
		return nil
	}
	return t.update(ctx, func(op *models.SyncOperation) {
		op.TotalItems += n
	})
}

// Advance marks n more items as processed.
func (t *operationTracker) Advance(ctx context.Context, n int) error {
	return t.update(ctx, func(op *models.SyncOperation) {
		op.ItemsProcessed += n
	})
}

func (t *operationTracker) Snapshot() models.SyncOperation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.op
}

// Finish makes the operation terminal in memory and returns it; persisting
// the terminal state is the checkpoint's job.
func (t *operationTracker) Finish(runErr error, end time.Time) models.SyncOperation {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.op.EndTime = &end
	if runErr != nil {
		msg := runErr.Error()
		t.op.Status = models.OperationFailed
		t.op.ErrorMessage = &msg
	} else {
		t.op.Status = models.OperationCompleted
		t.op.Progress = 1
		t.op.ErrorMessage = nil
	}

	return t.op
}

func (t *operationTracker) update(ctx context.Context, fn func(op *models.SyncOperation)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.op
	fn(&next)
	next.Progress = progressOf(next)

	err := t.storage.WithinTx(ctx, func(ctx context.Context, tx store.Storage) error {
		return tx.Metadata().SaveOperation(ctx, next)
	})
	if err != nil {
		t.logger.Err(err).Str("func", "operationTracker.update").Str("operation_id", next.ID).Msg("failed to persist operation progress")
		return mapStoreError(err)
	}

	t.op = next
	t.progress.Publish(next)
	return nil
}

func progressOf(op models.SyncOperation) float64 {
	if op.TotalItems <= 0 {
		return 0
	}

	p := float64(op.ItemsProcessed) / float64(op.TotalItems)
	return min(p, 1)
}
