package service

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resolverEpoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T, clock *testClock) (*conflictResolver, store.LocalStorage) {
	t.Helper()

	storage := store.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	return newConflictResolver(storage, &sequentialIDs{prefix: "conflict"}, DefaultMergeFuncs(), clock.Now, logger.Nop()), storage
}

func reconcile(t *testing.T, r *conflictResolver, storage store.LocalStorage, rec models.RemoteRecord) (bool, *models.SyncConflict) {
	t.Helper()

	var (
		applied  bool
		conflict *models.SyncConflict
	)
	err := storage.WithinTx(context.Background(), func(ctx context.Context, tx store.Storage) error {
		var err error
		applied, conflict, err = r.Reconcile(ctx, tx, rec.RecordType, rec)
		return err
	})
	require.NoError(t, err)
	return applied, conflict
}

func reconcileDeletion(t *testing.T, r *conflictResolver, storage store.LocalStorage, et models.EntityType, remoteID string) (bool, *models.SyncConflict) {
	t.Helper()

	var (
		applied  bool
		conflict *models.SyncConflict
	)
	err := storage.WithinTx(context.Background(), func(ctx context.Context, tx store.Storage) error {
		var err error
		applied, conflict, err = r.ReconcileDeletion(ctx, tx, et, remoteID)
		return err
	})
	require.NoError(t, err)
	return applied, conflict
}

func getEntity(t *testing.T, storage store.LocalStorage, et models.EntityType, id string) models.Entity {
	t.Helper()

	e, err := storage.Entities().GetByID(context.Background(), et, id)
	require.NoError(t, err)
	return e
}

// ── Reconcile ────────────────────────────────────────────────────────────────

func TestReconcile_RemoteInsert(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	rec := folderRecord(t, "r-1", "Travel", resolverEpoch)
	rec.VersionTag = "v1"

	applied, conflict := reconcile(t, r, storage, rec)

	assert.True(t, applied)
	assert.Nil(t, conflict)

	folder := getEntity(t, storage, models.EntityFolder, "r-1").(*models.Folder)
	assert.Equal(t, "Travel", folder.Name)
	assert.Equal(t, models.StatusSynced, folder.SyncStatus)
	assert.True(t, folder.LastModified.Equal(resolverEpoch))

	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", link.RemoteID)
	assert.Equal(t, "v1", link.RemoteVersionTag)
}

// TestReconcile_Idempotent applies the same record twice, with the clock
// moving in between, and expects the same local state.
func TestReconcile_Idempotent(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	rec := folderRecord(t, "r-1", "Travel", resolverEpoch)
	rec.VersionTag = "v1"

	reconcile(t, r, storage, rec)
	first := getEntity(t, storage, models.EntityFolder, "r-1")
	firstLink, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "r-1")
	require.NoError(t, err)

	applied, conflict := reconcile(t, r, storage, rec)
	assert.True(t, applied)
	assert.Nil(t, conflict)

	assert.Equal(t, first, getEntity(t, storage, models.EntityFolder, "r-1"))
	secondLink, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "r-1")
	require.NoError(t, err)
	assert.Equal(t, firstLink, secondLink)

	folders, err := storage.Entities().List(context.Background(), models.EntityFolder)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestReconcile_MapsParentFolder(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	seedLinked(t, storage, &models.Folder{ID: "local-folder", Name: "Kanji"}, models.StatusSynced, "remote-folder", resolverEpoch)

	fields, err := (&models.FavoriteItem{WordID: "w-1", Word: "字"}).RecordFields()
	require.NoError(t, err)

	reconcile(t, r, storage, models.RemoteRecord{
		RecordType:     models.EntityFavoriteItem,
		RemoteID:       "remote-item",
		ParentRemoteID: "remote-folder",
		ModifiedAt:     resolverEpoch,
		Fields:         fields,
	})

	item := getEntity(t, storage, models.EntityFavoriteItem, "remote-item")
	assert.Equal(t, "local-folder", item.GetParentID())
}

func TestReconcile_PendingEntity(t *testing.T) {
	lastSynced := resolverEpoch.Add(time.Hour)

	tests := []struct {
		name         string
		remoteAt     time.Time
		wantConflict bool
	}{
		{name: "older remote is stale", remoteAt: lastSynced.Add(-time.Minute)},
		{name: "same instant is stale", remoteAt: lastSynced},
		{name: "newer remote conflicts", remoteAt: lastSynced.Add(time.Minute), wantConflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, storage := newTestResolver(t, newTestClock())
			local := &models.Folder{ID: "f-1", Name: "local", LastModified: lastSynced.Add(time.Second)}
			seedLinked(t, storage, local, models.StatusPendingUpload, "r-1", lastSynced)

			applied, conflict := reconcile(t, r, storage, folderRecord(t, "r-1", "remote", tt.remoteAt))
			assert.False(t, applied)

			folder := getEntity(t, storage, models.EntityFolder, "f-1").(*models.Folder)
			assert.Equal(t, "local", folder.Name, "local data must not be overwritten")

			if !tt.wantConflict {
				assert.Nil(t, conflict)
				assert.Equal(t, models.StatusPendingUpload, folder.SyncStatus)
				return
			}

			require.NotNil(t, conflict)
			assert.Equal(t, models.StatusConflict, folder.SyncStatus)
			assert.Equal(t, "f-1", conflict.EntityID)
			require.NotNil(t, conflict.RemoteSnapshot)
			assert.Equal(t, "r-1", conflict.RemoteSnapshot.RemoteID)
			assert.False(t, conflict.LocalDeleted)
			assert.JSONEq(t, mustSnapshot(t, local), string(conflict.LocalSnapshot))

			open, err := storage.Metadata().CountUnresolvedConflicts(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, open)
		})
	}
}

// TestReconcile_StaleRecordAdvancesVersionTag delivers a remote record
// written before the last sync but pushed after it: the local edit is kept
// and the link takes the remote tag so the next push is accepted.
func TestReconcile_StaleRecordAdvancesVersionTag(t *testing.T) {
	lastSynced := resolverEpoch.Add(time.Hour)
	r, storage := newTestResolver(t, newTestClock())
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "local", LastModified: lastSynced.Add(time.Second)}, models.StatusPendingUpload, "r-1", lastSynced)

	rec := folderRecord(t, "r-1", "remote", lastSynced.Add(-time.Minute))
	rec.VersionTag = "v2"
	applied, conflict := reconcile(t, r, storage, rec)

	assert.False(t, applied)
	assert.Nil(t, conflict)

	folder := getEntity(t, storage, models.EntityFolder, "f-1").(*models.Folder)
	assert.Equal(t, "local", folder.Name)
	assert.Equal(t, models.StatusPendingUpload, folder.SyncStatus)

	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", link.RemoteVersionTag)
	assert.True(t, link.LastSynced.Equal(lastSynced), "last sync time must not move")
}

func mustSnapshot(t *testing.T, e models.Entity) string {
	t.Helper()

	snapshot, err := models.Snapshot(e)
	require.NoError(t, err)
	return string(snapshot)
}

// TestReconcile_ConflictIsRefreshed delivers a second remote version while a
// conflict is open: no second conflict appears, the open one points at the
// newest remote state.
func TestReconcile_ConflictIsRefreshed(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "local", LastModified: resolverEpoch}, models.StatusPendingUpload, "r-1", resolverEpoch)

	_, first := reconcile(t, r, storage, folderRecord(t, "r-1", "remote 1", resolverEpoch.Add(time.Minute)))
	require.NotNil(t, first)

	_, second := reconcile(t, r, storage, folderRecord(t, "r-1", "remote 2", resolverEpoch.Add(2*time.Minute)))
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	conflicts, err := r.ListConflicts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.True(t, conflicts[0].RemoteModifiedAt.Equal(resolverEpoch.Add(2*time.Minute)))
}

// TestReconcile_PushEcho receives the record of a first push whose
// acknowledgement was lost: the entity gets linked instead of conflicting.
func TestReconcile_PushEcho(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	local := &models.Folder{ID: "f-1", Name: "mine", LastModified: resolverEpoch, SyncStatus: models.StatusPendingUpload}
	require.NoError(t, storage.Entities().Upsert(context.Background(), local))

	rec := folderRecord(t, "f-1", "mine", resolverEpoch)
	rec.VersionTag = "v7"
	applied, conflict := reconcile(t, r, storage, rec)

	assert.False(t, applied)
	assert.Nil(t, conflict)

	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "v7", link.RemoteVersionTag)
	assert.Equal(t, models.StatusPendingUpload, getEntity(t, storage, models.EntityFolder, "f-1").GetSyncStatus())
}

func TestReconcileDeletion(t *testing.T) {
	t.Run("unknown record is ignored", func(t *testing.T) {
		r, storage := newTestResolver(t, newTestClock())

		applied, conflict := reconcileDeletion(t, r, storage, models.EntityFolder, "nobody")
		assert.False(t, applied)
		assert.Nil(t, conflict)
	})

	t.Run("synced entity is removed", func(t *testing.T) {
		r, storage := newTestResolver(t, newTestClock())
		seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "x"}, models.StatusSynced, "r-1", resolverEpoch)

		applied, conflict := reconcileDeletion(t, r, storage, models.EntityFolder, "r-1")
		assert.True(t, applied)
		assert.Nil(t, conflict)

		_, err := storage.Entities().GetByID(context.Background(), models.EntityFolder, "f-1")
		assert.ErrorIs(t, err, store.ErrEntityNotFound)
		_, err = storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
		assert.ErrorIs(t, err, store.ErrSyncRecordNotFound)
	})

	t.Run("pending local delete is confirmed", func(t *testing.T) {
		r, storage := newTestResolver(t, newTestClock())
		seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "x"}, models.StatusPendingDelete, "r-1", resolverEpoch)

		applied, _ := reconcileDeletion(t, r, storage, models.EntityFolder, "r-1")
		assert.True(t, applied)
	})

	t.Run("pending upload conflicts with a delete", func(t *testing.T) {
		r, storage := newTestResolver(t, newTestClock())
		seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "edited"}, models.StatusPendingUpload, "r-1", resolverEpoch)

		applied, conflict := reconcileDeletion(t, r, storage, models.EntityFolder, "r-1")
		assert.False(t, applied)
		require.NotNil(t, conflict)
		assert.Nil(t, conflict.RemoteSnapshot)
		assert.Equal(t, models.StatusConflict, getEntity(t, storage, models.EntityFolder, "f-1").GetSyncStatus())
	})
}

// ── ResolveConflict ──────────────────────────────────────────────────────────

// seedConflict leaves f-1 in conflict with a newer remote version named
// remoteName.
func seedConflict(t *testing.T, r *conflictResolver, storage store.LocalStorage, remoteName string) *models.SyncConflict {
	t.Helper()

	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "local", LastModified: resolverEpoch}, models.StatusPendingUpload, "r-1", resolverEpoch)
	rec := folderRecord(t, "r-1", remoteName, resolverEpoch.Add(time.Minute))
	rec.VersionTag = "v2"

	_, conflict := reconcile(t, r, storage, rec)
	require.NotNil(t, conflict)
	return conflict
}

func TestResolveConflict_UseLocal(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	conflict := seedConflict(t, r, storage, "remote")

	resolved, err := r.ResolveConflict(context.Background(), conflict.ID, models.ResolutionUseLocal)
	require.NoError(t, err)

	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, models.ResolutionUseLocal, *resolved.Resolution)

	folder := getEntity(t, storage, models.EntityFolder, "f-1").(*models.Folder)
	assert.Equal(t, "local", folder.Name)
	assert.Equal(t, models.StatusPendingUpload, folder.SyncStatus)

	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", link.RemoteVersionTag)

	// A late re-delivery of the same remote version is now stale.
	rec := folderRecord(t, "r-1", "remote", resolverEpoch.Add(time.Minute))
	_, again := reconcile(t, r, storage, rec)
	assert.Nil(t, again)
}

func TestResolveConflict_UseRemote(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	conflict := seedConflict(t, r, storage, "remote")

	_, err := r.ResolveConflict(context.Background(), conflict.ID, models.ResolutionUseRemote)
	require.NoError(t, err)

	folder := getEntity(t, storage, models.EntityFolder, "f-1").(*models.Folder)
	assert.Equal(t, "remote", folder.Name)
	assert.Equal(t, models.StatusSynced, folder.SyncStatus)

	open, err := storage.Metadata().CountUnresolvedConflicts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, open)
}

func TestResolveConflict_RemoteDelete(t *testing.T) {
	t.Run("useLocal keeps the entity", func(t *testing.T) {
		r, storage := newTestResolver(t, newTestClock())
		seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "edited"}, models.StatusPendingUpload, "r-1", resolverEpoch)
		_, conflict := reconcileDeletion(t, r, storage, models.EntityFolder, "r-1")
		require.NotNil(t, conflict)

		_, err := r.ResolveConflict(context.Background(), conflict.ID, models.ResolutionUseLocal)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingUpload, getEntity(t, storage, models.EntityFolder, "f-1").GetSyncStatus())
	})

	t.Run("useRemote removes the entity", func(t *testing.T) {
		r, storage := newTestResolver(t, newTestClock())
		seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "edited"}, models.StatusPendingUpload, "r-1", resolverEpoch)
		_, conflict := reconcileDeletion(t, r, storage, models.EntityFolder, "r-1")
		require.NotNil(t, conflict)

		_, err := r.ResolveConflict(context.Background(), conflict.ID, models.ResolutionUseRemote)
		require.NoError(t, err)

		_, err = storage.Entities().GetByID(context.Background(), models.EntityFolder, "f-1")
		assert.ErrorIs(t, err, store.ErrEntityNotFound)
	})
}

func TestResolveConflict_MergeWithoutStrategyTakesRemote(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	conflict := seedConflict(t, r, storage, "remote")

	bare := newConflictResolver(storage, &sequentialIDs{prefix: "bare"}, nil, newTestClock().Now, logger.Nop())
	_, err := bare.ResolveConflict(context.Background(), conflict.ID, models.ResolutionMerge)
	require.NoError(t, err)

	folder := getEntity(t, storage, models.EntityFolder, "f-1").(*models.Folder)
	assert.Equal(t, "remote", folder.Name)
	assert.Equal(t, models.StatusSynced, folder.SyncStatus)
}

func TestResolveConflict_MergeFavoriteKeepsLocalNote(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	note := "seen in a manga"
	local := &models.FavoriteItem{
		ID: "i-1", FolderID: "f-1", WordID: "w-1", Word: "猫", Meaning: "cat",
		Note: &note, LastModified: resolverEpoch,
	}
	seedLinked(t, storage, local, models.StatusPendingUpload, "r-item", resolverEpoch)

	fields, err := (&models.FavoriteItem{WordID: "w-1", Word: "猫", Reading: "ねこ", Meaning: "cat; feline"}).RecordFields()
	require.NoError(t, err)
	_, conflict := reconcile(t, r, storage, models.RemoteRecord{
		RecordType: models.EntityFavoriteItem,
		RemoteID:   "r-item",
		ModifiedAt: resolverEpoch.Add(time.Minute),
		Fields:     fields,
	})
	require.NotNil(t, conflict)

	_, err = r.ResolveConflict(context.Background(), conflict.ID, models.ResolutionMerge)
	require.NoError(t, err)

	item := getEntity(t, storage, models.EntityFavoriteItem, "i-1").(*models.FavoriteItem)
	assert.Equal(t, "ねこ", item.Reading)
	assert.Equal(t, "cat; feline", item.Meaning)
	require.NotNil(t, item.Note)
	assert.Equal(t, note, *item.Note)
	assert.Equal(t, "f-1", item.FolderID)
	assert.Equal(t, models.StatusPendingUpload, item.SyncStatus)
}

// TestResolveConflict_MergeFolder keeps the newer local name and the
// remote creation time, and queues the merged folder for upload.
func TestResolveConflict_MergeFolder(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	local := &models.Folder{ID: "f-1", Name: "Kanji N3", SortOrder: 4, CreatedAt: resolverEpoch.Add(time.Hour), LastModified: resolverEpoch.Add(2 * time.Minute)}
	seedLinked(t, storage, local, models.StatusPendingUpload, "r-1", resolverEpoch)

	fields, err := (&models.Folder{Name: "Kanji", SortOrder: 1, CreatedAt: resolverEpoch}).RecordFields()
	require.NoError(t, err)
	_, conflict := reconcile(t, r, storage, models.RemoteRecord{
		RecordType: models.EntityFolder,
		RemoteID:   "r-1",
		VersionTag: "v2",
		ModifiedAt: resolverEpoch.Add(time.Minute),
		Fields:     fields,
	})
	require.NotNil(t, conflict)

	_, err = r.ResolveConflict(context.Background(), conflict.ID, models.ResolutionMerge)
	require.NoError(t, err)

	folder := getEntity(t, storage, models.EntityFolder, "f-1").(*models.Folder)
	assert.Equal(t, "Kanji N3", folder.Name)
	assert.True(t, folder.CreatedAt.Equal(resolverEpoch))
	assert.Equal(t, 4, folder.SortOrder)
	assert.Equal(t, models.StatusPendingUpload, folder.SyncStatus)

	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", link.RemoteVersionTag)
}

func TestResolveConflict_Errors(t *testing.T) {
	r, storage := newTestResolver(t, newTestClock())
	conflict := seedConflict(t, r, storage, "remote")
	ctx := context.Background()

	_, err := r.ResolveConflict(ctx, "missing", models.ResolutionUseLocal)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = r.ResolveConflict(ctx, conflict.ID, models.ConflictResolution("coinFlip"))
	assert.ErrorIs(t, err, models.ErrUnknownResolution)

	_, err = r.ResolveConflict(ctx, conflict.ID, models.ResolutionUseRemote)
	require.NoError(t, err)

	_, err = r.ResolveConflict(ctx, conflict.ID, models.ResolutionUseLocal)
	assert.ErrorIs(t, err, ErrConflictAlreadyResolved)
}

// ── MergeFavoriteItem ────────────────────────────────────────────────────────

func TestMergeFavoriteItem(t *testing.T) {
	note := "mine"
	local := &models.FavoriteItem{ID: "i-1", WordID: "w", Word: "犬", Note: &note, LastModified: resolverEpoch.Add(time.Hour)}

	t.Run("remote delete keeps local", func(t *testing.T) {
		merged, err := MergeFavoriteItem(local, nil)
		require.NoError(t, err)
		assert.Same(t, local, merged)
	})

	t.Run("remote note wins when set", func(t *testing.T) {
		remoteNote := "theirs"
		fields, err := (&models.FavoriteItem{WordID: "w", Word: "犬", Note: &remoteNote}).RecordFields()
		require.NoError(t, err)

		merged, err := MergeFavoriteItem(local, &models.RemoteRecord{Fields: fields, ModifiedAt: resolverEpoch})
		require.NoError(t, err)

		item := merged.(*models.FavoriteItem)
		assert.Equal(t, "theirs", *item.Note)
		assert.True(t, item.LastModified.Equal(local.LastModified))
		assert.Equal(t, "mine", *local.Note, "local must not be mutated")
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := MergeFavoriteItem(&models.Folder{ID: "f"}, nil)
		assert.ErrorIs(t, err, ErrUnknownEntityType)
	})
}

func TestMergeFolder(t *testing.T) {
	local := &models.Folder{ID: "f-1", Name: "mine", CreatedAt: resolverEpoch.Add(time.Hour), LastModified: resolverEpoch.Add(time.Hour)}

	remoteAt := func(t *testing.T, name string, at time.Time) *models.RemoteRecord {
		t.Helper()
		fields, err := (&models.Folder{Name: name, CreatedAt: resolverEpoch}).RecordFields()
		require.NoError(t, err)
		return &models.RemoteRecord{RecordType: models.EntityFolder, Fields: fields, ModifiedAt: at}
	}

	t.Run("newer local name wins", func(t *testing.T) {
		merged, err := MergeFolder(local, remoteAt(t, "theirs", resolverEpoch))
		require.NoError(t, err)

		folder := merged.(*models.Folder)
		assert.Equal(t, "mine", folder.Name)
		assert.True(t, folder.CreatedAt.Equal(resolverEpoch))
		assert.True(t, folder.LastModified.Equal(local.LastModified))
	})

	t.Run("newer remote name wins", func(t *testing.T) {
		later := resolverEpoch.Add(2 * time.Hour)
		merged, err := MergeFolder(local, remoteAt(t, "theirs", later))
		require.NoError(t, err)

		folder := merged.(*models.Folder)
		assert.Equal(t, "theirs", folder.Name)
		assert.True(t, folder.LastModified.Equal(later))
		assert.Equal(t, "mine", local.Name, "local must not be mutated")
	})

	t.Run("remote delete keeps local", func(t *testing.T) {
		merged, err := MergeFolder(local, nil)
		require.NoError(t, err)
		assert.Same(t, local, merged)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := MergeFolder(&models.FavoriteItem{ID: "i"}, nil)
		assert.ErrorIs(t, err, ErrUnknownEntityType)
	})
}
