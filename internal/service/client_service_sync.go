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
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/internal/workers"
	"github.com/MKhiriev/go-favsync/models"
)

// interruptedMessage is the error message of operations failed by
// RecoverInterrupted.
const interruptedMessage = "interrupted"

// TaskSubmitter is the part of the serial worker the orchestrator needs.
type TaskSubmitter interface {
	Submit(task workers.Task) error
}

type clientSyncService struct {
	storage  store.LocalStorage
	remote   adapter.RemoteClient
	worker   TaskSubmitter
	guard    *syncGuard
	uploader *remoteUploader
	fetcher  *remoteFetcher
	resolver ConflictResolver
	progress *progressBroadcaster
	ids      utils.IDGenerator

	strictConflicts bool

	now    func() time.Time
	logger *logger.Logger
}

// NewClientSyncService wires the sync orchestrator. Pipelines run on worker.
func NewClientSyncService(storage store.LocalStorage, remote adapter.RemoteClient, resolver ConflictResolver, worker TaskSubmitter, ids utils.IDGenerator, strictConflicts bool, log *logger.Logger) SyncService {
	return newClientSyncService(storage, remote, resolver, worker, ids, strictConflicts, time.Now, log)
}

func newClientSyncService(storage store.LocalStorage, remote adapter.RemoteClient, resolver ConflictResolver, worker TaskSubmitter, ids utils.IDGenerator, strictConflicts bool, now func() time.Time, log *logger.Logger) *clientSyncService {
	return &clientSyncService{
		storage:         storage,
		remote:          remote,
		worker:          worker,
		guard:           newSyncGuard(storage),
		uploader:        newRemoteUploader(storage, remote, now, log),
		fetcher:         newRemoteFetcher(storage, remote, resolver, log),
		resolver:        resolver,
		progress:        newProgressBroadcaster(),
		ids:             ids,
		strictConflicts: strictConflicts,
		now:             now,
		logger:          log,
	}
}

// ── start ────────────────────────────────────────────────────────────────────

func (s *clientSyncService) StartSync(ctx context.Context) (models.SyncOperation, error) {
	log := s.logger.With().Str("func", "clientSyncService.StartSync").Logger()

	current, err := s.guard.Current(ctx)
	if err != nil {
		return models.SyncOperation{}, err
	}
	if current != "" {
		return models.SyncOperation{}, fmt.Errorf("%w: %s", ErrOperationInProgress, current)
	}

	if !s.remote.CheckAvailability(ctx) {
		log.Warn().Msg("remote is unavailable, sync not started")
		return models.SyncOperation{}, ErrRemoteUnavailable
	}

	if s.strictConflicts {
		open, err := s.storage.Metadata().CountUnresolvedConflicts(ctx)
		if err != nil {
			return models.SyncOperation{}, mapStoreError(err)
		}
		if open > 0 {
			return models.SyncOperation{}, fmt.Errorf("%w: %d open", ErrConflictUnresolved, open)
		}
	}

	op := models.NewSyncOperation(s.ids.Generate(), s.now())
	if err = s.guard.Acquire(ctx, op); err != nil {
		return models.SyncOperation{}, err
	}

	// Published before the worker can report any progress of op.
	s.progress.Publish(op)

	if err = s.worker.Submit(func(ctx context.Context) { s.run(ctx, op) }); err != nil {
		log.Err(err).Str("operation_id", op.ID).Msg("failed to enqueue sync")
		s.checkpoint(context.WithoutCancel(ctx), newOperationTracker(op, s.storage, s.progress, s.logger), err)
		return models.SyncOperation{}, fmt.Errorf("enqueue sync: %w", err)
	}

	log.Info().Str("operation_id", op.ID).Msg("sync enqueued")
	return op, nil
}

// run is the pipeline: upload, download, checkpoint. A phase error skips the
// remaining phases and fails the operation.
func (s *clientSyncService) run(ctx context.Context, op models.SyncOperation) {
	log := s.logger.With().Str("func", "clientSyncService.run").Str("operation_id", op.ID).Logger()
	tracker := newOperationTracker(op, s.storage, s.progress, s.logger)

	err := tracker.Start(ctx)
	if err == nil {
		log.Debug().Msg("upload phase")
		err = s.uploader.UploadPending(ctx, tracker)
	}
	if err == nil {
		log.Debug().Msg("download phase")
		err = s.fetcher.DownloadChanges(ctx, tracker)
	}

	s.checkpoint(context.WithoutCancel(ctx), tracker, err)
}

// checkpoint makes the operation terminal and releases the guard.
func (s *clientSyncService) checkpoint(ctx context.Context, tracker *operationTracker, runErr error) {
	end := s.now()
	op := tracker.Finish(runErr, end)

	log := s.logger.With().Str("func", "clientSyncService.checkpoint").
		Str("operation_id", op.ID).
		Str("status", string(op.Status)).Logger()

	if err := s.guard.Release(ctx, op, end); err != nil {
		log.Err(err).Msg("failed to persist terminal operation, it will be recovered on restart")
	}

	if runErr != nil {
		log.Err(runErr).Msg("sync failed")
	} else {
		log.Info().Int("items", op.ItemsProcessed).Msg("sync completed")
	}

	s.progress.Publish(op)
}

// ── queries ──────────────────────────────────────────────────────────────────

func (s *clientSyncService) GetStatus(ctx context.Context) (models.SyncStatusReport, error) {
	available := s.remote.CheckAvailability(ctx)
	if err := s.guard.Update(ctx, func(status *models.SyncStatus) {
		status.RemoteAvailable = available
	}); err != nil {
		return models.SyncStatusReport{}, err
	}

	meta := s.storage.Metadata()
	status, err := meta.GetStatus(ctx)
	if err != nil {
		return models.SyncStatusReport{}, mapStoreError(err)
	}

	report := models.SyncStatusReport{SyncStatus: status}
	if report.CurrentOperation, err = s.optionalOperation(ctx, status.CurrentOperationID); err != nil {
		return models.SyncStatusReport{}, err
	}
	if report.LastOperation, err = s.optionalOperation(ctx, status.LastOperationID); err != nil {
		return models.SyncStatusReport{}, err
	}
	if report.PendingChanges, err = s.storage.Entities().CountUnsynced(ctx); err != nil {
		return models.SyncStatusReport{}, mapStoreError(err)
	}
	if report.UnresolvedConflicts, err = meta.CountUnresolvedConflicts(ctx); err != nil {
		return models.SyncStatusReport{}, mapStoreError(err)
	}

	switch {
	case status.CurrentOperationID != "":
		report.Readiness = models.ReadinessSyncing
	case !status.RemoteAvailable:
		report.Readiness = models.ReadinessOffline
	default:
		report.Readiness = models.ReadinessReady
	}

	return report, nil
}

func (s *clientSyncService) optionalOperation(ctx context.Context, id string) (*models.SyncOperation, error) {
	if id == "" {
		return nil, nil
	}

	op, err := s.storage.Metadata().GetOperation(ctx, id)
	if errors.Is(err, store.ErrOperationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &op, nil
}

func (s *clientSyncService) GetProgress(ctx context.Context, id string) (models.SyncOperation, error) {
	op, err := s.storage.Metadata().GetOperation(ctx, id)
	if err != nil {
		return models.SyncOperation{}, mapStoreError(err)
	}
	return op, nil
}

func (s *clientSyncService) SetAutoSync(ctx context.Context, enabled bool) error {
	return s.guard.Update(ctx, func(status *models.SyncStatus) {
		status.AutoSyncEnabled = enabled
	})
}

func (s *clientSyncService) AutoSyncEnabled(ctx context.Context) (bool, error) {
	status, err := s.storage.Metadata().GetStatus(ctx)
	if err != nil {
		return false, mapStoreError(err)
	}
	return status.AutoSyncEnabled, nil
}

// ── conflicts ────────────────────────────────────────────────────────────────

func (s *clientSyncService) ResolveConflict(ctx context.Context, id string, resolution models.ConflictResolution) (models.SyncConflict, error) {
	return s.resolver.ResolveConflict(ctx, id, resolution)
}

func (s *clientSyncService) ListConflicts(ctx context.Context, unresolvedOnly bool) ([]models.SyncConflict, error) {
	return s.resolver.ListConflicts(ctx, unresolvedOnly)
}

// ── observation ──────────────────────────────────────────────────────────────

func (s *clientSyncService) Subscribe() (<-chan models.SyncOperation, func()) {
	return s.progress.Subscribe()
}

func (s *clientSyncService) Await(ctx context.Context, id string) (models.SyncOperation, error) {
	for {
		// Subscribe before reading so that a terminal snapshot published in
		// between is not missed.
		updates, unsubscribe := s.progress.Subscribe()

		op, err := s.GetProgress(ctx, id)
		if err != nil {
			unsubscribe()
			return models.SyncOperation{}, err
		}
		if op.IsTerminal() {
			unsubscribe()
			return op, nil
		}

		op, done, err := awaitTerminal(ctx, updates, id)
		unsubscribe()
		if err != nil || done {
			return op, err
		}
	}
}

// awaitTerminal reads updates until operation id is terminal. done is false
// when the channel closed on another operation's terminal snapshot.
func awaitTerminal(ctx context.Context, updates <-chan models.SyncOperation, id string) (models.SyncOperation, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return models.SyncOperation{}, false, ctx.Err()
		case op, ok := <-updates:
			if !ok {
				return models.SyncOperation{}, false, nil
			}
			if op.ID == id && op.IsTerminal() {
				return op, true, nil
			}
		}
	}
}

// ── recovery ─────────────────────────────────────────────────────────────────

func (s *clientSyncService) AcquireOwnership(ctx context.Context) (func(), error) {
	if err := s.storage.Lock(); err != nil {
		return nil, mapStoreError(err)
	}

	release := func() {
		if err := s.storage.Unlock(); err != nil {
			s.logger.Err(err).Str("func", "clientSyncService.AcquireOwnership").Msg("failed to release local store")
		}
	}

	if err := s.RecoverInterrupted(ctx); err != nil {
		release()
		return nil, err
	}

	return release, nil
}

// RecoverInterrupted fails operations left pending or running and clears the
// current operation pointer. Only the owner of the store may call it.
func (s *clientSyncService) RecoverInterrupted(ctx context.Context) error {
	log := s.logger.With().Str("func", "clientSyncService.RecoverInterrupted").Logger()

	ops, err := s.storage.Metadata().ListOperationsByStatus(ctx, models.OperationPending, models.OperationRunning)
	if err != nil {
		return mapStoreError(err)
	}

	end := s.now()
	msg := interruptedMessage
	for _, op := range ops {
		op.Status = models.OperationFailed
		op.EndTime = &end
		op.ErrorMessage = &msg

		if err = s.guard.Release(ctx, op, end); err != nil {
			return err
		}
		log.Warn().Str("operation_id", op.ID).Msg("interrupted sync marked failed")
	}

	return s.guard.Update(ctx, func(status *models.SyncStatus) {
		status.CurrentOperationID = ""
	})
}
