// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-favsync/models"
)

// SQLite accepts the default "?" placeholders, so the client builders use
// squirrel's default format.

const (
	tableSyncStatus     = "sync_status"
	tableSyncOperations = "sync_operations"
	tableSyncRecords    = "sync_records"
	tableChangeTokens   = "change_tokens"
	tableSyncConflicts  = "sync_conflicts"

	syncStatusRowID = 1
)

var (
	syncStatusColumns = []string{"last_sync_time", "remote_available", "auto_sync_enabled", "current_operation_id", "last_operation_id"}
	operationColumns  = []string{"id", "kind", "status", "start_time", "end_time", "progress", "items_processed", "total_items", "error_message"}
	syncRecordColumns = []string{"entity_type", "local_id", "remote_id", "remote_version_tag", "last_synced", "deleted"}
	conflictColumns   = []string{"id", "entity_id", "entity_type", "local_snapshot", "remote_snapshot", "local_deleted", "local_modified_at", "remote_modified_at", "resolved", "resolution", "created_at"}
)

// upsertSuffix renders "ON CONFLICT(<keys>) DO UPDATE SET col = excluded.col"
// for every non-key column.
func upsertSuffix(keys []string, columns []string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if !isKey[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}

	return "ON CONFLICT(" + strings.Join(keys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// ── entities ─────────────────────────────────────────────────────────────────

func buildSelectEntitiesQuery(table entityTable, status *models.EntitySyncStatus) (string, []any, error) {
	builder := sq.Select(table.columns...).From(table.name)
	if status != nil {
		builder = builder.Where(sq.Eq{"sync_status": string(*status)})
	}

	return builder.OrderBy("last_modified", "id").ToSql()
}

func buildSelectEntityByIDQuery(table entityTable, id string) (string, []any, error) {
	return sq.Select(table.columns...).From(table.name).Where(sq.Eq{"id": id}).ToSql()
}

func buildUpsertEntityQuery(table entityTable, values []any) (string, []any, error) {
	return sq.Insert(table.name).
		Columns(table.columns...).
		Values(values...).
		Suffix(upsertSuffix([]string{"id"}, table.columns)).
		ToSql()
}

func buildDeleteEntityQuery(table entityTable, id string) (string, []any, error) {
	return sq.Delete(table.name).Where(sq.Eq{"id": id}).ToSql()
}

func buildCountUnsyncedQuery(table entityTable) (string, []any, error) {
	return sq.Select("COUNT(*)").From(table.name).Where(sq.NotEq{"sync_status": string(models.StatusSynced)}).ToSql()
}

// ── status ───────────────────────────────────────────────────────────────────

func buildSelectSyncStatusQuery() (string, []any, error) {
	return sq.Select(syncStatusColumns...).From(tableSyncStatus).Where(sq.Eq{"id": syncStatusRowID}).ToSql()
}

func buildUpsertSyncStatusQuery(status models.SyncStatus) (string, []any, error) {
	columns := append([]string{"id"}, syncStatusColumns...)

	return sq.Insert(tableSyncStatus).
		Columns(columns...).
		Values(syncStatusRowID, utcPtr(status.LastSyncTime), status.RemoteAvailable, status.AutoSyncEnabled, status.CurrentOperationID, status.LastOperationID).
		Suffix(upsertSuffix([]string{"id"}, columns)).
		ToSql()
}

// ── operations ───────────────────────────────────────────────────────────────

func buildUpsertOperationQuery(op models.SyncOperation) (string, []any, error) {
	return sq.Insert(tableSyncOperations).
		Columns(operationColumns...).
		Values(op.ID, string(op.Kind), string(op.Status), op.StartTime.UTC(), utcPtr(op.EndTime), op.Progress, op.ItemsProcessed, op.TotalItems, op.ErrorMessage).
		Suffix(upsertSuffix([]string{"id"}, operationColumns)).
		ToSql()
}

func buildSelectOperationQuery(id string) (string, []any, error) {
	return sq.Select(operationColumns...).From(tableSyncOperations).Where(sq.Eq{"id": id}).ToSql()
}

func buildSelectOperationsByStatusQuery(statuses []models.OperationStatus) (string, []any, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	return sq.Select(operationColumns...).
		From(tableSyncOperations).
		Where(sq.Eq{"status": values}).
		OrderBy("start_time").
		ToSql()
}

// ── sync records ─────────────────────────────────────────────────────────────

func buildSelectSyncRecordQuery(t models.EntityType, localID string) (string, []any, error) {
	return sq.Select(syncRecordColumns...).
		From(tableSyncRecords).
		Where(sq.Eq{"entity_type": string(t), "local_id": localID}).
		ToSql()
}

func buildSelectSyncRecordByRemoteIDQuery(t models.EntityType, remoteID string) (string, []any, error) {
	return sq.Select(syncRecordColumns...).
		From(tableSyncRecords).
		Where(sq.Eq{"entity_type": string(t), "remote_id": remoteID}).
		ToSql()
}

func buildUpsertSyncRecordQuery(rec models.SyncRecord) (string, []any, error) {
	return sq.Insert(tableSyncRecords).
		Columns(syncRecordColumns...).
		Values(string(rec.EntityType), rec.LocalID, rec.RemoteID, rec.RemoteVersionTag, rec.LastSynced.UTC(), rec.Deleted).
		Suffix(upsertSuffix([]string{"entity_type", "local_id"}, syncRecordColumns)).
		ToSql()
}

func buildDeleteSyncRecordQuery(t models.EntityType, localID string) (string, []any, error) {
	return sq.Delete(tableSyncRecords).Where(sq.Eq{"entity_type": string(t), "local_id": localID}).ToSql()
}

// ── change tokens ────────────────────────────────────────────────────────────

func buildSelectChangeTokenQuery(t models.EntityType) (string, []any, error) {
	return sq.Select("token").From(tableChangeTokens).Where(sq.Eq{"record_type": string(t)}).ToSql()
}

func buildUpsertChangeTokenQuery(t models.EntityType, token models.ChangeToken) (string, []any, error) {
	columns := []string{"record_type", "token"}

	return sq.Insert(tableChangeTokens).
		Columns(columns...).
		Values(string(t), []byte(token)).
		Suffix(upsertSuffix([]string{"record_type"}, columns)).
		ToSql()
}

// ── conflicts ────────────────────────────────────────────────────────────────

func buildUpsertConflictQuery(values []any) (string, []any, error) {
	return sq.Insert(tableSyncConflicts).
		Columns(conflictColumns...).
		Values(values...).
		Suffix(upsertSuffix([]string{"id"}, conflictColumns)).
		ToSql()
}

func buildSelectConflictsQuery(where sq.Sqlizer) (string, []any, error) {
	builder := sq.Select(conflictColumns...).From(tableSyncConflicts)
	if where != nil {
		builder = builder.Where(where)
	}

	return builder.OrderBy("created_at", "id").ToSql()
}

func buildCountUnresolvedConflictsQuery() (string, []any, error) {
	return sq.Select("COUNT(*)").From(tableSyncConflicts).Where(sq.Eq{"resolved": false}).ToSql()
}
