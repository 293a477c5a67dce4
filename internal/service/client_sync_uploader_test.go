package service

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/mock"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestUploader(t *testing.T) (*remoteUploader, store.LocalStorage, *mock.MockRemoteClient, *operationTracker) {
	t.Helper()

	storage := store.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	remote := mock.NewMockRemoteClient(gomock.NewController(t))
	clock := newTestClock()
	tracker := newOperationTracker(models.NewSyncOperation("op-1", resolverEpoch), storage, newProgressBroadcaster(), logger.Nop())

	return newRemoteUploader(storage, remote, clock.Now, logger.Nop()), storage, remote, tracker
}

func TestUploader_DeleteOfMissingRemoteRecordSucceeds(t *testing.T) {
	u, storage, remote, tracker := newTestUploader(t)
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "x"}, models.StatusPendingDelete, "r-1", resolverEpoch)

	remote.EXPECT().Delete(gomock.Any(), models.EntityFolder, "r-1").Return(adapter.ErrNotFound)

	require.NoError(t, u.UploadPending(context.Background(), tracker))

	_, err := storage.Entities().GetByID(context.Background(), models.EntityFolder, "f-1")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
	_, err = storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
	assert.ErrorIs(t, err, store.ErrSyncRecordNotFound)
	assert.Equal(t, 1, tracker.Snapshot().ItemsProcessed)
}

func TestUploader_DeleteFailureKeepsTombstone(t *testing.T) {
	u, storage, remote, tracker := newTestUploader(t)
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "x"}, models.StatusPendingDelete, "r-1", resolverEpoch)

	remote.EXPECT().Delete(gomock.Any(), models.EntityFolder, "r-1").Return(adapter.ErrInternalServerError)

	err := u.UploadPending(context.Background(), tracker)
	assert.ErrorIs(t, err, ErrRemoteTransport)
	assert.Equal(t, models.StatusPendingDelete, getEntity(t, storage, models.EntityFolder, "f-1").GetSyncStatus())
}

func TestUploader_PushSendsLinkAndParent(t *testing.T) {
	u, storage, remote, tracker := newTestUploader(t)
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "x"}, models.StatusSynced, "r-folder", resolverEpoch)
	seedLinked(t, storage, &models.FavoriteItem{ID: "i-1", FolderID: "f-1", WordID: "w", Word: "空", LastModified: resolverEpoch}, models.StatusPendingUpload, "r-item", resolverEpoch)

	remote.EXPECT().Push(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec models.RemoteRecord) (string, string, error) {
		assert.Equal(t, models.EntityFavoriteItem, rec.RecordType)
		assert.Equal(t, "r-item", rec.RemoteID)
		assert.Equal(t, "v1", rec.VersionTag)
		assert.Equal(t, "r-folder", rec.ParentRemoteID)
		assert.True(t, rec.ModifiedAt.Equal(resolverEpoch))
		return "r-item", "v2", nil
	})

	require.NoError(t, u.UploadPending(context.Background(), tracker))

	assert.Equal(t, models.StatusSynced, getEntity(t, storage, models.EntityFavoriteItem, "i-1").GetSyncStatus())
	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFavoriteItem, "i-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", link.RemoteVersionTag)
}

func TestUploader_ItemOfUnsyncedFolderIsPostponed(t *testing.T) {
	u, storage, remote, tracker := newTestUploader(t)
	item := &models.FavoriteItem{ID: "i-1", FolderID: "f-unsynced", WordID: "w", Word: "海", SyncStatus: models.StatusPendingUpload}
	require.NoError(t, storage.Entities().Upsert(context.Background(), item))

	remote.EXPECT().Push(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, u.UploadPending(context.Background(), tracker))
	assert.Equal(t, models.StatusPendingUpload, getEntity(t, storage, models.EntityFavoriteItem, "i-1").GetSyncStatus())

	op := tracker.Snapshot()
	assert.Equal(t, 1, op.TotalItems)
	assert.Zero(t, op.ItemsProcessed, "a postponed record is not processed")
}

func TestUploader_VersionConflictLeavesEntityPending(t *testing.T) {
	u, storage, remote, tracker := newTestUploader(t)
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "x"}, models.StatusPendingUpload, "r-1", resolverEpoch)

	remote.EXPECT().Push(gomock.Any(), gomock.Any()).Return("", "", adapter.ErrVersionConflict)

	require.NoError(t, u.UploadPending(context.Background(), tracker))
	assert.Equal(t, models.StatusPendingUpload, getEntity(t, storage, models.EntityFolder, "f-1").GetSyncStatus())

	link, err := storage.Metadata().GetSyncRecord(context.Background(), models.EntityFolder, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "v1", link.RemoteVersionTag)
	assert.Zero(t, tracker.Snapshot().ItemsProcessed, "a refused push is not processed")
}

func TestUploader_CountsOnlyAcceptedPushes(t *testing.T) {
	u, storage, remote, tracker := newTestUploader(t)
	seedLinked(t, storage, &models.Folder{ID: "f-1", Name: "refused"}, models.StatusPendingUpload, "r-1", resolverEpoch)
	seedLinked(t, storage, &models.Folder{ID: "f-2", Name: "accepted"}, models.StatusPendingUpload, "r-2", resolverEpoch)

	remote.EXPECT().Push(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec models.RemoteRecord) (string, string, error) {
		if rec.RemoteID == "r-1" {
			return "", "", adapter.ErrVersionConflict
		}
		return rec.RemoteID, "v2", nil
	}).Times(2)

	require.NoError(t, u.UploadPending(context.Background(), tracker))

	op := tracker.Snapshot()
	assert.Equal(t, 2, op.TotalItems)
	assert.Equal(t, 1, op.ItemsProcessed)
}
