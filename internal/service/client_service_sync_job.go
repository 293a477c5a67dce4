package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/models"
)

// autoSyncTarget is the part of SyncService the job drives.
type autoSyncTarget interface {
	StartSync(ctx context.Context) (models.SyncOperation, error)
	AutoSyncEnabled(ctx context.Context) (bool, error)
}

type clientSyncJob struct {
	syncService autoSyncTarget
	interval    time.Duration
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob that calls syncService.StartSync on
// a ticker. If interval is zero or negative it defaults to
// config.DefaultSyncInterval. The job is idle until Run is called.
func NewClientSyncJob(syncService autoSyncTarget, interval time.Duration, log *logger.Logger) SyncJob {
	if interval <= 0 {
		interval = config.DefaultSyncInterval
	}
	return &clientSyncJob{syncService: syncService, interval: interval, logger: log}
}

// Run implements SyncJob. It stops any previously running job, then launches
// a background goroutine that starts a sync every interval while auto-sync is
// enabled. The goroutine exits when ctx is cancelled or Stop is called.
func (j *clientSyncJob) Run(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(j.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			}
		}
	}()
}

func (j *clientSyncJob) tick(ctx context.Context) {
	log := j.logger.With().Str("func", "clientSyncJob.tick").Logger()

	enabled, err := j.syncService.AutoSyncEnabled(ctx)
	if err != nil {
		log.Err(err).Msg("failed to read auto-sync flag")
		return
	}
	if !enabled {
		return
	}

	op, err := j.syncService.StartSync(ctx)
	switch {
	case errors.Is(err, ErrOperationInProgress), errors.Is(err, ErrRemoteUnavailable), errors.Is(err, ErrConflictUnresolved):
		log.Debug().Err(err).Msg("auto-sync skipped")
	case err != nil:
		log.Err(err).Msg("auto-sync failed to start")
	default:
		log.Debug().Str("operation_id", op.ID).Msg("auto-sync started")
	}
}

// Stop implements SyncJob. It cancels the background goroutine's context and
// blocks until the goroutine has fully exited. Safe to call when the job is not
// running (no-op in that case).
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
