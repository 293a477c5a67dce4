package service

import (
	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/internal/workers"
	"github.com/MKhiriev/go-favsync/models"
)

type ClientServices struct {
	SyncService  SyncService
	LocalChanges LocalChangeService
	SyncJob      SyncJob

	// Worker runs sync pipelines; it must be started before StartSync
	// results can progress.
	Worker *workers.Serial
}

// DefaultMergeFuncs are the merge strategies registered by
// NewClientServices.
func DefaultMergeFuncs() map[models.EntityType]MergeFunc {
	return map[models.EntityType]MergeFunc{
		models.EntityFolder:       MergeFolder,
		models.EntityFavoriteItem: MergeFavoriteItem,
	}
}

func NewClientServices(localStore store.LocalStorage, remote adapter.RemoteClient, cfg *config.ClientConfig, log *logger.Logger) *ClientServices {
	ids := utils.NewUUIDGenerator()
	worker := workers.NewSerial(cfg.Workers.QueueSize, log)

	resolver := NewConflictResolver(localStore, ids, DefaultMergeFuncs(), log)
	syncSvc := NewClientSyncService(localStore, remote, resolver, worker, ids, cfg.Sync.StrictConflicts, log)

	return &ClientServices{
		SyncService:  syncSvc,
		LocalChanges: NewLocalChangeService(localStore, ids, log),
		SyncJob:      NewClientSyncJob(syncSvc, cfg.Workers.SyncInterval, log),
		Worker:       worker,
	}
}
