package service

import (
	"context"

	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
)

// SyncService is the sync orchestrator: the entry point for starting a sync,
// observing it and handling its conflicts.
type SyncService interface {
	// StartSync creates a pending operation, makes it the current one and
	// enqueues the sync pipeline on the background worker. It returns without
	// waiting for the pipeline.
	//
	// Returns ErrOperationInProgress while another operation is current,
	// ErrRemoteUnavailable when the remote does not answer, and, under the
	// strict conflict policy, ErrConflictUnresolved while open conflicts
	// exist.
	StartSync(ctx context.Context) (models.SyncOperation, error)

	// GetStatus returns the persisted status with a freshly checked remote
	// availability, the current and last operations and derived counters.
	GetStatus(ctx context.Context) (models.SyncStatusReport, error)

	// GetProgress returns the operation with the given id, or
	// ErrEntityNotFound.
	GetProgress(ctx context.Context, id string) (models.SyncOperation, error)

	SetAutoSync(ctx context.Context, enabled bool) error
	AutoSyncEnabled(ctx context.Context) (bool, error)

	ResolveConflict(ctx context.Context, id string, resolution models.ConflictResolution) (models.SyncConflict, error)
	ListConflicts(ctx context.Context, unresolvedOnly bool) ([]models.SyncConflict, error)

	// Subscribe returns a channel of operation snapshots and a function that
	// cancels the subscription. The channel is closed after the next terminal
	// snapshot has been delivered.
	Subscribe() (<-chan models.SyncOperation, func())

	// Await blocks until operation id is terminal or ctx is done.
	Await(ctx context.Context, id string) (models.SyncOperation, error)

	// AcquireOwnership locks the local store for this process, then fails
	// operations a previous owner left pending or running and clears the
	// current operation pointer. It must be called before the background
	// worker starts; release gives the store up again.
	//
	// Returns ErrStorageBusy without touching any operation while another
	// process owns the store.
	AcquireOwnership(ctx context.Context) (release func(), err error)
}

// ConflictResolver reconciles incoming remote changes with local state and
// resolves the conflicts it records.
type ConflictResolver interface {
	// Reconcile applies rec inside tx unless the local entity has unsynced
	// changes. applied is false for a stale record and for a new or refreshed
	// conflict, which is then returned.
	Reconcile(ctx context.Context, tx store.Storage, t models.EntityType, rec models.RemoteRecord) (applied bool, conflict *models.SyncConflict, err error)

	// ReconcileDeletion applies a remote delete inside tx.
	ReconcileDeletion(ctx context.Context, tx store.Storage, t models.EntityType, remoteID string) (applied bool, conflict *models.SyncConflict, err error)

	// ResolveConflict applies resolution to the open conflict id.
	ResolveConflict(ctx context.Context, id string, resolution models.ConflictResolution) (models.SyncConflict, error)

	ListConflicts(ctx context.Context, unresolvedOnly bool) ([]models.SyncConflict, error)
}

// MergeFunc combines the local entity of a conflict with its remote snapshot.
// remote is nil when the remote side deleted the record. The returned entity
// is saved as a pending upload.
type MergeFunc func(local models.Entity, remote *models.RemoteRecord) (models.Entity, error)

// LocalChangeService is what editing screens call: every write marks the
// entity dirty so that the next sync picks it up.
type LocalChangeService interface {
	// SaveFolder creates (empty ID) or updates a folder. Marking a folder as
	// default clears the flag on every other folder.
	SaveFolder(ctx context.Context, folder *models.Folder) error

	// SaveFavorite creates or updates a favorite item. An empty FolderID
	// selects the default folder, which is created when missing.
	SaveFavorite(ctx context.Context, item *models.FavoriteItem) error

	// Profile returns the stored user profile, or a new unsaved one with
	// default settings.
	Profile(ctx context.Context) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error

	// MarkDeleted tombstones an entity; deleting a folder also tombstones its
	// items. Entities in conflict cannot be deleted.
	MarkDeleted(ctx context.Context, t models.EntityType, id string) error

	Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	List(ctx context.Context, t models.EntityType) ([]models.Entity, error)
}

// SyncJob periodically starts a sync while auto-sync is enabled.
// It satisfies workers.Worker.
type SyncJob interface {
	Run(ctx context.Context)
	Stop()
}
