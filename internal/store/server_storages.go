// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
)

// ServerStorages groups the record server's repositories.
type ServerStorages struct {
	RecordRepository RecordRepository

	db *DB
}

// NewServerStorages connects to PostgreSQL, applies the server migrations and
// wires the repositories.
func NewServerStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*ServerStorages, error) {
	log.Info().Msg("creating new storages...")

	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ServerStorages{
		RecordRepository: NewRecordRepository(db),
		db:               db,
	}, nil
}

// Close releases the database connection pool.
func (s *ServerStorages) Close() error {
	return s.db.Close()
}
