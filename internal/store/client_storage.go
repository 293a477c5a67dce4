// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
)

// sqliteStorage is the SQLite-backed [LocalStorage].
type sqliteStorage struct {
	db    *DB
	owner *ownerLock
}

// NewClientStorages initialises the client storage layer.
//
// A DSN of [config.MemoryAddress] selects the in-process map store; any other
// value opens (and creates when missing) an SQLite database at that path and
// applies the embedded client migrations. The SQLite store is owned through
// an advisory lock on "<dsn>.lock", so two processes cannot both drive syncs
// against one database file.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (LocalStorage, error) {
	log.Info().Str("dsn", cfg.DB.DSN).Msg("creating new storages...")

	if cfg.DB.DSN == config.MemoryAddress {
		return NewMemoryStorage(), nil
	}

	db, err := NewConnectSQLite(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	owner := &ownerLock{}
	if cfg.DB.DSN != sqliteInMemory {
		owner = newFileOwnerLock(cfg.DB.DSN + ".lock")
	}

	return &sqliteStorage{db: db, owner: owner}, nil
}

// NewSQLiteStorage wraps an already migrated connection. Its Lock only
// excludes other owners within this process.
func NewSQLiteStorage(db *DB) LocalStorage {
	return &sqliteStorage{db: db, owner: &ownerLock{}}
}

func (s *sqliteStorage) Entities() EntityRepository {
	return newEntityRepository(s.db)
}

func (s *sqliteStorage) Metadata() SyncMetadataRepository {
	return newMetadataRepository(s.db)
}

// sqliteTx exposes the repositories of one open transaction.
type sqliteTx struct {
	entities EntityRepository
	metadata SyncMetadataRepository
}

func (t sqliteTx) Entities() EntityRepository       { return t.entities }
func (t sqliteTx) Metadata() SyncMetadataRepository { return t.metadata }

func (s *sqliteStorage) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error {
	log := logger.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "sqliteStorage.WithinTx").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if err = fn(ctx, sqliteTx{entities: newEntityRepository(tx), metadata: newMetadataRepository(tx)}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).Str("func", "sqliteStorage.WithinTx").Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (s *sqliteStorage) Lock() error   { return s.owner.Lock() }
func (s *sqliteStorage) Unlock() error { return s.owner.Unlock() }

func (s *sqliteStorage) Close() error {
	return errors.Join(s.owner.Unlock(), s.db.Close())
}
