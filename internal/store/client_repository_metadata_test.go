package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-favsync/models"
)

func newTestMetadataRepo(t *testing.T) (*metadataRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &metadataRepository{q: db}, mock
}

// ── status ───────────────────────────────────────────────────────────────────

func TestMetadataRepository_GetStatus_DefaultWhenMissing(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sync_status").WillReturnError(sql.ErrNoRows)

	status, err := repo.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSyncStatus(), status)
}

func TestMetadataRepository_GetStatus_Scans(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	last := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM sync_status WHERE id = ?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(syncStatusColumns).AddRow(last, true, false, "op-2", "op-1"))

	status, err := repo.GetStatus(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastSyncTime)
	assert.True(t, last.Equal(*status.LastSyncTime))
	assert.True(t, status.RemoteAvailable)
	assert.False(t, status.AutoSyncEnabled)
	assert.Equal(t, "op-2", status.CurrentOperationID)
	assert.Equal(t, "op-1", status.LastOperationID)
}

func TestMetadataRepository_SaveStatus(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectExec("INSERT INTO sync_status (.+) ON CONFLICT\\(id\\)").
		WithArgs(1, nil, false, true, "", "op-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveStatus(context.Background(), models.SyncStatus{AutoSyncEnabled: true, LastOperationID: "op-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ── operations ───────────────────────────────────────────────────────────────

func TestMetadataRepository_GetOperation_NotFound(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sync_operations").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetOperation(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestMetadataRepository_GetOperation_FailedOperation(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	start := time.Now().UTC().Add(-time.Minute)
	end := start.Add(30 * time.Second)

	mock.ExpectQuery("SELECT (.+) FROM sync_operations WHERE id = ?").
		WithArgs("op-1").
		WillReturnRows(sqlmock.NewRows(operationColumns).
			AddRow("op-1", "full", "failed", start, end, 0.5, 2, 4, "network down"))

	op, err := repo.GetOperation(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.OperationFailed, op.Status)
	require.NotNil(t, op.EndTime)
	require.NotNil(t, op.ErrorMessage)
	assert.Equal(t, "network down", *op.ErrorMessage)
	assert.Equal(t, 2, op.ItemsProcessed)
	assert.Equal(t, 4, op.TotalItems)
}

func TestMetadataRepository_ListOperationsByStatus(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	start := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM sync_operations WHERE status IN").
		WithArgs("pending", "running").
		WillReturnRows(sqlmock.NewRows(operationColumns).
			AddRow("op-1", "full", "running", start, nil, 0.0, 0, 3, nil))

	ops, err := repo.ListOperationsByStatus(context.Background(), models.OperationPending, models.OperationRunning)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Nil(t, ops[0].EndTime)
	assert.Nil(t, ops[0].ErrorMessage)
}

// ── sync records ─────────────────────────────────────────────────────────────

func TestMetadataRepository_GetSyncRecordByRemoteID(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	synced := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM sync_records WHERE").
		WithArgs("folder", "r-1").
		WillReturnRows(sqlmock.NewRows(syncRecordColumns).AddRow("folder", "f1", "r-1", "v3", synced, false))

	rec, err := repo.GetSyncRecordByRemoteID(context.Background(), models.EntityFolder, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "f1", rec.LocalID)
	assert.Equal(t, "v3", rec.RemoteVersionTag)
}

func TestMetadataRepository_GetSyncRecord_NotFound(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sync_records").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSyncRecord(context.Background(), models.EntityFolder, "f1")
	assert.ErrorIs(t, err, ErrSyncRecordNotFound)
}

// ── change tokens ────────────────────────────────────────────────────────────

func TestMetadataRepository_GetChangeToken_NilWhenMissing(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectQuery("SELECT token FROM change_tokens").WithArgs("folder").WillReturnError(sql.ErrNoRows)

	token, err := repo.GetChangeToken(context.Background(), models.EntityFolder)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestMetadataRepository_SaveChangeTokens_OneStatementPerType(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectExec("INSERT INTO change_tokens").WithArgs("folder", []byte("3")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO change_tokens").WithArgs("user", []byte("9")).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveChangeTokens(context.Background(), map[models.EntityType]models.ChangeToken{
		models.EntityFolder: models.ChangeToken("3"),
		models.EntityUser:   models.ChangeToken("9"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ── conflicts ────────────────────────────────────────────────────────────────

func TestMetadataRepository_FindOpenConflict_DecodesSnapshots(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	now := time.Now().UTC()

	remote, err := json.Marshal(models.RemoteRecord{
		RecordType: models.EntityFolder,
		RemoteID:   "f1",
		VersionTag: "v2",
		ModifiedAt: now,
		Fields:     json.RawMessage(`{"name":"Remote"}`),
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM sync_conflicts WHERE").
		WithArgs("f1", "folder", false).
		WillReturnRows(sqlmock.NewRows(conflictColumns).
			AddRow("c1", "f1", "folder", `{"id":"f1","name":"Local"}`, string(remote), false, now, now, false, nil, now))

	c, err := repo.FindOpenConflict(context.Background(), models.EntityFolder, "f1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.JSONEq(t, `{"id":"f1","name":"Local"}`, string(c.LocalSnapshot))
	require.NotNil(t, c.RemoteSnapshot)
	assert.Equal(t, "v2", c.RemoteSnapshot.VersionTag)
	assert.Nil(t, c.Resolution)
}

func TestMetadataRepository_FindOpenConflict_None(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sync_conflicts").WillReturnRows(sqlmock.NewRows(conflictColumns))

	_, err := repo.FindOpenConflict(context.Background(), models.EntityFolder, "f1")
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestMetadataRepository_SaveConflict_RemoteDeletion(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)
	now := time.Now()
	resolution := models.ResolutionUseLocal

	mock.ExpectExec("INSERT INTO sync_conflicts").
		WithArgs("c1", "i1", "favoriteItem", `{}`, nil, false, sqlmock.AnyArg(), sqlmock.AnyArg(), true, "useLocal", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveConflict(context.Background(), models.SyncConflict{
		ID:               "c1",
		EntityID:         "i1",
		EntityType:       models.EntityFavoriteItem,
		LocalSnapshot:    json.RawMessage(`{}`),
		LocalModifiedAt:  now,
		RemoteModifiedAt: now,
		Resolved:         true,
		Resolution:       &resolution,
		CreatedAt:        now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataRepository_CountUnresolvedConflicts(t *testing.T) {
	repo, mock := newTestMetadataRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM sync_conflicts WHERE resolved = ?").
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	n, err := repo.CountUnresolvedConflicts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
