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

// entityRepository is the SQLite implementation of [EntityRepository]. It
// runs on whatever querier it is given: the connection pool for reads of the
// committed state, a *sql.Tx inside [Transactor.WithinTx].
type entityRepository struct {
	q querier
}

func newEntityRepository(q querier) EntityRepository {
	return &entityRepository{q: q}
}

func (r *entityRepository) QueryPending(ctx context.Context, t models.EntityType, status models.EntitySyncStatus) ([]models.Entity, error) {
	return r.selectEntities(ctx, "entityRepository.QueryPending", t, &status)
}

func (r *entityRepository) List(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	return r.selectEntities(ctx, "entityRepository.List", t, nil)
}

func (r *entityRepository) selectEntities(ctx context.Context, fn string, t models.EntityType, status *models.EntitySyncStatus) ([]models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query, args, err := buildSelectEntitiesQuery(table, status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Str("entity_type", string(t)).Msg("failed to query entities")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		e, scanErr := table.scan(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Str("entity_type", string(t)).Msg("failed to scan entity row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		entities = append(entities, e)
	}

	if err = rows.Err(); err != nil {
		log.Err(err).Str("func", fn).Str("entity_type", string(t)).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entities, nil
}

func (r *entityRepository) GetByID(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query, args, err := buildSelectEntityByIDQuery(table, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	e, err := table.scan(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrEntityNotFound, t, id)
	}
	if err != nil {
		log.Err(err).Str("func", "entityRepository.GetByID").Str("entity_type", string(t)).Str("id", id).Msg("failed to scan entity row")
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return e, nil
}

func (r *entityRepository) Upsert(ctx context.Context, e models.Entity) error {
	log := logger.FromContext(ctx)

	table, err := tableFor(e.GetType())
	if err != nil {
		return err
	}

	values, err := table.values(e)
	if err != nil {
		return err
	}

	query, args, err := buildUpsertEntityQuery(table, values)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "entityRepository.Upsert").
			Str("entity_type", string(e.GetType())).
			Str("id", e.GetID()).
			Msg("failed to upsert entity")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *entityRepository) Delete(ctx context.Context, t models.EntityType, id string) error {
	log := logger.FromContext(ctx)

	table, err := tableFor(t)
	if err != nil {
		return err
	}

	query, args, err := buildDeleteEntityQuery(table, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "entityRepository.Delete").Str("entity_type", string(t)).Str("id", id).Msg("failed to delete entity")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *entityRepository) CountUnsynced(ctx context.Context) (int, error) {
	total := 0
	for _, t := range models.EntityTypes {
		query, args, err := buildCountUnsyncedQuery(entityTables[t])
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}

		var n int
		if err = r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			logger.FromContext(ctx).Err(err).Str("func", "entityRepository.CountUnsynced").Str("entity_type", string(t)).Msg("failed to count entities")
			return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		total += n
	}

	return total, nil
}
