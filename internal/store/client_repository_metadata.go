// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/models"
)

// metadataRepository is the SQLite implementation of [SyncMetadataRepository].
type metadataRepository struct {
	q querier
}

func newMetadataRepository(q querier) SyncMetadataRepository {
	return &metadataRepository{q: q}
}

func (r *metadataRepository) exec(ctx context.Context, fn, query string, args []any, buildErr error) error {
	if buildErr != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
	}

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", fn).Msg("failed to execute statement")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// ── status ───────────────────────────────────────────────────────────────────

func (r *metadataRepository) GetStatus(ctx context.Context) (models.SyncStatus, error) {
	query, args, err := buildSelectSyncStatusQuery()
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		status   models.SyncStatus
		lastSync sql.NullTime
	)
	err = r.q.QueryRowContext(ctx, query, args...).Scan(
		&lastSync,
		&status.RemoteAvailable,
		&status.AutoSyncEnabled,
		&status.CurrentOperationID,
		&status.LastOperationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSyncStatus(), nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.GetStatus").Msg("failed to scan sync status")
		return models.SyncStatus{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if lastSync.Valid {
		status.LastSyncTime = &lastSync.Time
	}

	return status, nil
}

func (r *metadataRepository) SaveStatus(ctx context.Context, status models.SyncStatus) error {
	query, args, err := buildUpsertSyncStatusQuery(status)
	return r.exec(ctx, "metadataRepository.SaveStatus", query, args, err)
}

// ── operations ───────────────────────────────────────────────────────────────

func scanOperation(row scanner) (models.SyncOperation, error) {
	var (
		op      models.SyncOperation
		endTime sql.NullTime
		errMsg  sql.NullString
	)

	err := row.Scan(&op.ID, &op.Kind, &op.Status, &op.StartTime, &endTime, &op.Progress, &op.ItemsProcessed, &op.TotalItems, &errMsg)
	if err != nil {
		return models.SyncOperation{}, err
	}

	if endTime.Valid {
		op.EndTime = &endTime.Time
	}
	if errMsg.Valid {
		op.ErrorMessage = &errMsg.String
	}

	return op, nil
}

func (r *metadataRepository) SaveOperation(ctx context.Context, op models.SyncOperation) error {
	query, args, err := buildUpsertOperationQuery(op)
	return r.exec(ctx, "metadataRepository.SaveOperation", query, args, err)
}

func (r *metadataRepository) GetOperation(ctx context.Context, id string) (models.SyncOperation, error) {
	query, args, err := buildSelectOperationQuery(id)
	if err != nil {
		return models.SyncOperation{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	op, err := scanOperation(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncOperation{}, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.GetOperation").Str("id", id).Msg("failed to scan operation")
		return models.SyncOperation{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return op, nil
}

func (r *metadataRepository) ListOperationsByStatus(ctx context.Context, statuses ...models.OperationStatus) ([]models.SyncOperation, error) {
	query, args, err := buildSelectOperationsByStatusQuery(statuses)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.ListOperationsByStatus").Msg("failed to query operations")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var ops []models.SyncOperation
	for rows.Next() {
		op, scanErr := scanOperation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		ops = append(ops, op)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return ops, nil
}

// ── sync records ─────────────────────────────────────────────────────────────

func (r *metadataRepository) getSyncRecord(ctx context.Context, query string, args []any) (models.SyncRecord, error) {
	var rec models.SyncRecord

	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&rec.EntityType,
		&rec.LocalID,
		&rec.RemoteID,
		&rec.RemoteVersionTag,
		&rec.LastSynced,
		&rec.Deleted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncRecord{}, ErrSyncRecordNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.getSyncRecord").Msg("failed to scan sync record")
		return models.SyncRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return rec, nil
}

func (r *metadataRepository) GetSyncRecord(ctx context.Context, t models.EntityType, localID string) (models.SyncRecord, error) {
	query, args, err := buildSelectSyncRecordQuery(t, localID)
	if err != nil {
		return models.SyncRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.getSyncRecord(ctx, query, args)
}

func (r *metadataRepository) GetSyncRecordByRemoteID(ctx context.Context, t models.EntityType, remoteID string) (models.SyncRecord, error) {
	query, args, err := buildSelectSyncRecordByRemoteIDQuery(t, remoteID)
	if err != nil {
		return models.SyncRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.getSyncRecord(ctx, query, args)
}

func (r *metadataRepository) UpsertSyncRecord(ctx context.Context, rec models.SyncRecord) error {
	query, args, err := buildUpsertSyncRecordQuery(rec)
	return r.exec(ctx, "metadataRepository.UpsertSyncRecord", query, args, err)
}

func (r *metadataRepository) DeleteSyncRecord(ctx context.Context, t models.EntityType, localID string) error {
	query, args, err := buildDeleteSyncRecordQuery(t, localID)
	return r.exec(ctx, "metadataRepository.DeleteSyncRecord", query, args, err)
}

// ── change tokens ────────────────────────────────────────────────────────────

func (r *metadataRepository) GetChangeToken(ctx context.Context, t models.EntityType) (models.ChangeToken, error) {
	query, args, err := buildSelectChangeTokenQuery(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var token []byte
	err = r.q.QueryRowContext(ctx, query, args...).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.GetChangeToken").Str("record_type", string(t)).Msg("failed to scan change token")
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return token, nil
}

func (r *metadataRepository) SaveChangeTokens(ctx context.Context, tokens map[models.EntityType]models.ChangeToken) error {
	for t, token := range tokens {
		query, args, err := buildUpsertChangeTokenQuery(t, token)
		if err = r.exec(ctx, "metadataRepository.SaveChangeTokens", query, args, err); err != nil {
			return err
		}
	}

	return nil
}

// ── conflicts ────────────────────────────────────────────────────────────────

func conflictValues(c models.SyncConflict) ([]any, error) {
	var remote sql.NullString
	if c.RemoteSnapshot != nil {
		data, err := json.Marshal(c.RemoteSnapshot)
		if err != nil {
			return nil, fmt.Errorf("encode remote snapshot: %w", err)
		}
		remote = sql.NullString{String: string(data), Valid: true}
	}

	var resolution sql.NullString
	if c.Resolution != nil {
		resolution = sql.NullString{String: string(*c.Resolution), Valid: true}
	}

	return []any{
		c.ID,
		c.EntityID,
		string(c.EntityType),
		string(c.LocalSnapshot),
		remote,
		c.LocalDeleted,
		c.LocalModifiedAt.UTC(),
		c.RemoteModifiedAt.UTC(),
		c.Resolved,
		resolution,
		c.CreatedAt.UTC(),
	}, nil
}

func scanConflict(row scanner) (models.SyncConflict, error) {
	var (
		c          models.SyncConflict
		local      string
		remote     sql.NullString
		resolution sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.EntityID,
		&c.EntityType,
		&local,
		&remote,
		&c.LocalDeleted,
		&c.LocalModifiedAt,
		&c.RemoteModifiedAt,
		&c.Resolved,
		&resolution,
		&c.CreatedAt,
	)
	if err != nil {
		return models.SyncConflict{}, err
	}

	c.LocalSnapshot = json.RawMessage(local)
	if remote.Valid {
		var rec models.RemoteRecord
		if err = json.Unmarshal([]byte(remote.String), &rec); err != nil {
			return models.SyncConflict{}, fmt.Errorf("decode remote snapshot of conflict %s: %w", c.ID, err)
		}
		c.RemoteSnapshot = &rec
	}
	if resolution.Valid {
		res := models.ConflictResolution(resolution.String)
		c.Resolution = &res
	}

	return c, nil
}

func (r *metadataRepository) SaveConflict(ctx context.Context, c models.SyncConflict) error {
	values, err := conflictValues(c)
	if err != nil {
		return err
	}

	query, args, err := buildUpsertConflictQuery(values)
	return r.exec(ctx, "metadataRepository.SaveConflict", query, args, err)
}

func (r *metadataRepository) selectConflicts(ctx context.Context, where sq.Sqlizer) ([]models.SyncConflict, error) {
	query, args, err := buildSelectConflictsQuery(where)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.selectConflicts").Msg("failed to query conflicts")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var conflicts []models.SyncConflict
	for rows.Next() {
		c, scanErr := scanConflict(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		conflicts = append(conflicts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return conflicts, nil
}

func (r *metadataRepository) GetConflict(ctx context.Context, id string) (models.SyncConflict, error) {
	conflicts, err := r.selectConflicts(ctx, sq.Eq{"id": id})
	if err != nil {
		return models.SyncConflict{}, err
	}
	if len(conflicts) == 0 {
		return models.SyncConflict{}, fmt.Errorf("%w: %s", ErrConflictNotFound, id)
	}

	return conflicts[0], nil
}

func (r *metadataRepository) FindOpenConflict(ctx context.Context, t models.EntityType, entityID string) (models.SyncConflict, error) {
	conflicts, err := r.selectConflicts(ctx, sq.Eq{"entity_type": string(t), "entity_id": entityID, "resolved": false})
	if err != nil {
		return models.SyncConflict{}, err
	}
	if len(conflicts) == 0 {
		return models.SyncConflict{}, ErrConflictNotFound
	}

	return conflicts[len(conflicts)-1], nil
}

func (r *metadataRepository) ListConflicts(ctx context.Context, unresolvedOnly bool) ([]models.SyncConflict, error) {
	var where sq.Sqlizer
	if unresolvedOnly {
		where = sq.Eq{"resolved": false}
	}

	return r.selectConflicts(ctx, where)
}

func (r *metadataRepository) CountUnresolvedConflicts(ctx context.Context) (int, error) {
	query, args, err := buildCountUnresolvedConflictsQuery()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var n int
	if err = r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metadataRepository.CountUnresolvedConflicts").Msg("failed to count conflicts")
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return n, nil
}

// utcPtr normalises an optional timestamp before it is written.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
