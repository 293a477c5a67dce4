// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrEntityNotFound is returned when a folder, favorite item or profile
	// with the requested local id does not exist.
	ErrEntityNotFound = errors.New("entity was not found")

	// ErrOperationNotFound is returned for an unknown sync operation id.
	ErrOperationNotFound = errors.New("sync operation was not found")

	// ErrSyncRecordNotFound is returned when no SyncRecord links the
	// requested local or remote id.
	ErrSyncRecordNotFound = errors.New("sync record was not found")

	// ErrConflictNotFound is returned for an unknown conflict id, or when an
	// entity has no open conflict.
	ErrConflictNotFound = errors.New("sync conflict was not found")

	// ErrRecordNotFound is returned by the record server when a remote record
	// does not exist or is already deleted.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrVersionConflict is returned when an optimistic-locking check fails:
	// the version tag supplied by the client does not match the stored one,
	// meaning another device has modified the record since the client last
	// synchronized.
	ErrVersionConflict = errors.New("record version conflict occurred")

	// ErrStorageLocked is returned by [LocalStorage.Lock] while another
	// owner, usually another client process, holds the local store.
	ErrStorageLocked = errors.New("local storage is locked by another process")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning a result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when iterating a multi-row result fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
