package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/mock"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testUserID int64 = 7

func newTestRecordService(t *testing.T, pageSize int) (*recordService, *mock.MockRecordRepository) {
	t.Helper()

	repo := mock.NewMockRecordRepository(gomock.NewController(t))
	return &recordService{
		repo:     repo,
		ids:      &sequentialIDs{prefix: "tag"},
		pageSize: pageSize,
		now:      func() time.Time { return resolverEpoch },
		logger:   logger.Nop(),
	}, repo
}

// ── Push ─────────────────────────────────────────────────────────────────────

func TestRecordService_Push(t *testing.T) {
	s, repo := newTestRecordService(t, 10)
	rec := models.RemoteRecord{
		RecordType: models.EntityFolder,
		RemoteID:   "r-1",
		Fields:     json.RawMessage(`{"name":"x"}`),
	}

	want := rec
	want.ModifiedAt = resolverEpoch
	stored := want
	stored.VersionTag = "tag-1"
	repo.EXPECT().Push(gomock.Any(), testUserID, want, "tag-1").Return(stored, nil)

	got, err := s.Push(context.Background(), testUserID, rec)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestRecordService_Push_KeepsClientModifiedAt(t *testing.T) {
	s, repo := newTestRecordService(t, 10)
	modified := resolverEpoch.Add(-time.Hour)
	rec := models.RemoteRecord{RecordType: models.EntityUser, RemoteID: "u", ModifiedAt: modified}

	repo.EXPECT().Push(gomock.Any(), testUserID, rec, "tag-1").Return(rec, nil)

	_, err := s.Push(context.Background(), testUserID, rec)
	require.NoError(t, err)
}

func TestRecordService_Push_VersionConflict(t *testing.T) {
	s, repo := newTestRecordService(t, 10)
	repo.EXPECT().Push(gomock.Any(), testUserID, gomock.Any(), gomock.Any()).
		Return(models.RemoteRecord{}, store.ErrVersionConflict)

	_, err := s.Push(context.Background(), testUserID, models.RemoteRecord{RecordType: models.EntityFolder, RemoteID: "r", VersionTag: "old"})
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

// ── Delete ───────────────────────────────────────────────────────────────────

func TestRecordService_Delete(t *testing.T) {
	s, repo := newTestRecordService(t, 10)
	repo.EXPECT().Delete(gomock.Any(), testUserID, models.EntityFolder, "r-1").Return(nil)
	repo.EXPECT().Delete(gomock.Any(), testUserID, models.EntityFolder, "gone").Return(store.ErrRecordNotFound)

	require.NoError(t, s.Delete(context.Background(), testUserID, models.EntityFolder, "r-1"))
	assert.ErrorIs(t, s.Delete(context.Background(), testUserID, models.EntityFolder, "gone"), store.ErrRecordNotFound)
}

// ── Changes ──────────────────────────────────────────────────────────────────

func change(id string, seq int64, deleted bool) models.RecordChange {
	return models.RecordChange{
		Record:  models.RemoteRecord{RecordType: models.EntityFolder, RemoteID: id},
		Deleted: deleted,
		Seq:     seq,
	}
}

func TestRecordService_Changes_Page(t *testing.T) {
	s, repo := newTestRecordService(t, 2)
	repo.EXPECT().Changes(gomock.Any(), testUserID, models.EntityFolder, int64(4), 3).
		Return([]models.RecordChange{change("a", 5, false), change("b", 6, true), change("c", 8, false)}, nil)

	set, err := s.Changes(context.Background(), testUserID, models.EntityFolder, adapter.SeqToken(4), 0)
	require.NoError(t, err)

	assert.True(t, set.MoreComing)
	require.Len(t, set.Changed, 1)
	assert.Equal(t, "a", set.Changed[0].RemoteID)
	assert.Equal(t, []string{"b"}, set.DeletedIDs)
	assert.Equal(t, adapter.SeqToken(6), set.NewToken)
}

func TestRecordService_Changes_LastPage(t *testing.T) {
	s, repo := newTestRecordService(t, 100)
	repo.EXPECT().Changes(gomock.Any(), testUserID, models.EntityFolder, int64(0), 6).
		Return([]models.RecordChange{change("a", 1, false)}, nil)

	set, err := s.Changes(context.Background(), testUserID, models.EntityFolder, nil, 5)
	require.NoError(t, err)

	assert.False(t, set.MoreComing)
	assert.Equal(t, adapter.SeqToken(1), set.NewToken)
}

func TestRecordService_Changes_EmptyKeepsToken(t *testing.T) {
	s, repo := newTestRecordService(t, 100)
	repo.EXPECT().Changes(gomock.Any(), testUserID, models.EntityUser, int64(9), 101).Return(nil, nil)

	set, err := s.Changes(context.Background(), testUserID, models.EntityUser, adapter.SeqToken(9), 1000)
	require.NoError(t, err)

	assert.Zero(t, set.Len())
	assert.False(t, set.MoreComing)
	assert.Equal(t, adapter.SeqToken(9), set.NewToken)
}

func TestRecordService_Changes_Errors(t *testing.T) {
	s, repo := newTestRecordService(t, 10)
	ctx := context.Background()

	_, err := s.Changes(ctx, testUserID, models.EntityFolder, models.ChangeToken("not-a-seq"), 1)
	assert.ErrorIs(t, err, ErrInvalidChangeToken)

	repo.EXPECT().Changes(gomock.Any(), testUserID, models.EntityFolder, int64(0), 2).Return(nil, store.ErrExecutingQuery)
	_, err = s.Changes(ctx, testUserID, models.EntityFolder, nil, 1)
	assert.ErrorIs(t, err, store.ErrExecutingQuery)
}

func TestRecordService_Ping(t *testing.T) {
	s, repo := newTestRecordService(t, 10)
	repo.EXPECT().Ping(gomock.Any()).Return(nil)

	assert.NoError(t, s.Ping(context.Background()))
}
