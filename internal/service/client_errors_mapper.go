// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/store"
)

// serviceErrors are the sentinels that already carry their final meaning and
// pass through the mappers untouched.
var serviceErrors = []error{
	ErrOperationInProgress,
	ErrRemoteUnavailable,
	ErrEntityNotFound,
	ErrConflictUnresolved,
	ErrStorageBusy,
	ErrRemoteTransport,
	ErrPersistence,
	ErrConflictAlreadyResolved,
	ErrUnknownEntityType,
	ErrInvalidDataProvided,
}

func isServiceError(err error) bool {
	for _, target := range serviceErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// mapRemoteError translates a remote client failure into ErrRemoteTransport.
func mapRemoteError(err error) error {
	if err == nil || isServiceError(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrRemoteTransport, err)
}

// mapStoreError translates a local store failure into a service error.
// Lookups of unknown ids become ErrEntityNotFound and a store held by another
// process ErrStorageBusy. Everything else is ErrPersistence.
func mapStoreError(err error) error {
	if err == nil || isServiceError(err) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrEntityNotFound),
		errors.Is(err, store.ErrOperationNotFound),
		errors.Is(err, store.ErrConflictNotFound):
		return fmt.Errorf("%w: %w", ErrEntityNotFound, err)
	case errors.Is(err, store.ErrStorageLocked):
		return fmt.Errorf("%w: %w", ErrStorageBusy, err)
	}

	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
