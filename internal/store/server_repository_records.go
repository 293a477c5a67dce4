// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/models"
)

// recordRepository is the PostgreSQL-backed implementation of
// [RecordRepository]. Every write bumps the record's position in the
// per-user change feed by taking the next value of records_seq. Writes of one
// user are serialized on an advisory lock held until commit, so a feed reader
// that remembers the last seq it saw never skips a change committed late.
type recordRepository struct {
	*DB
}

// NewRecordRepository constructs a [RecordRepository] on db.
func NewRecordRepository(db *DB) RecordRepository {
	return &recordRepository{DB: db}
}

func (r *recordRepository) Push(ctx context.Context, userID int64, rec models.RemoteRecord, versionTag string) (models.RemoteRecord, error) {
	log := logger.FromContext(ctx)

	feedQuery, feedArgs, err := buildFeedLockQuery(userID)
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	lockQuery, lockArgs, err := buildLockRecordQuery(userID, rec.RecordType, rec.RemoteID)
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	upsertQuery, upsertArgs, err := buildUpsertRecordQuery(userID, rec, versionTag)
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	err = r.withRetry(ctx, func(ctx context.Context) error {
		tx, txErr := r.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("%w: %w", ErrBeginningTransaction, txErr)
		}
		defer tx.Rollback()

		if _, lockErr := tx.ExecContext(ctx, feedQuery, feedArgs...); lockErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, lockErr)
		}

		var (
			storedTag string
			deleted   bool
		)
		scanErr := tx.QueryRowContext(ctx, lockQuery, lockArgs...).Scan(&storedTag, &deleted)
		switch {
		case errors.Is(scanErr, sql.ErrNoRows):
		case scanErr != nil:
			return fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		case !deleted && rec.VersionTag != "" && rec.VersionTag != storedTag:
			return fmt.Errorf("%w: %s %s has version %s, got %s", ErrVersionConflict, rec.RecordType, rec.RemoteID, storedTag, rec.VersionTag)
		}

		if _, execErr := tx.ExecContext(ctx, upsertQuery, upsertArgs...); execErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
		}

		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrVersionConflict) {
			log.Err(err).
				Str("func", "recordRepository.Push").
				Int64("user_id", userID).
				Str("record_type", string(rec.RecordType)).
				Str("remote_id", rec.RemoteID).
				Str("sqlstate", postgresError(err)).
				Msg("failed to push record")
		}
		return models.RemoteRecord{}, err
	}

	rec.VersionTag = versionTag
	return rec, nil
}

func (r *recordRepository) Delete(ctx context.Context, userID int64, t models.EntityType, remoteID string) error {
	log := logger.FromContext(ctx)

	feedQuery, feedArgs, err := buildFeedLockQuery(userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	query, args, err := buildTombstoneRecordQuery(userID, t, remoteID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var affected int64
	err = r.withRetry(ctx, func(ctx context.Context) error {
		tx, txErr := r.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("%w: %w", ErrBeginningTransaction, txErr)
		}
		defer tx.Rollback()

		if _, execErr := tx.ExecContext(ctx, feedQuery, feedArgs...); execErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, execErr)
		}

		res, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, execErr)
		}
		if affected, execErr = res.RowsAffected(); execErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Delete").
			Int64("user_id", userID).
			Str("record_type", string(t)).
			Str("remote_id", remoteID).
			Str("sqlstate", postgresError(err)).
			Msg("failed to delete record")
		return err
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, t, remoteID)
	}

	return nil
}

func (r *recordRepository) Changes(ctx context.Context, userID int64, t models.EntityType, afterSeq int64, limit int) ([]models.RecordChange, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectChangesQuery(userID, t, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var changes []models.RecordChange
	err = r.withRetry(ctx, func(ctx context.Context) error {
		rows, queryErr := r.QueryContext(ctx, query, args...)
		if queryErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, queryErr)
		}
		defer rows.Close()

		changes = make([]models.RecordChange, 0, limit)
		for rows.Next() {
			var (
				change models.RecordChange
				fields []byte
			)
			scanErr := rows.Scan(
				&change.Record.RecordType,
				&change.Record.RemoteID,
				&change.Record.VersionTag,
				&change.Record.ParentRemoteID,
				&change.Record.ModifiedAt,
				&fields,
				&change.Deleted,
				&change.Seq,
			)
			if scanErr != nil {
				return fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
			}
			change.Record.Fields = fields
			changes = append(changes, change)
		}

		if rowsErr := rows.Err(); rowsErr != nil {
			return fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Changes").
			Int64("user_id", userID).
			Str("record_type", string(t)).
			Int64("after_seq", afterSeq).
			Msg("failed to read change feed")
		return nil, err
	}

	return changes, nil
}

func (r *recordRepository) Ping(ctx context.Context) error {
	return r.PingContext(ctx)
}
