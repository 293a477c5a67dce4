package service

import (
	"errors"

	"github.com/MKhiriev/go-favsync/models"
)

// Sync engine errors. Callers match them with [errors.Is]; the underlying
// cause stays wrapped after the sentinel.
var (
	ErrOperationInProgress = errors.New("sync operation already in progress")
	ErrRemoteUnavailable   = errors.New("remote backend is unavailable")
	ErrEntityNotFound      = errors.New("entity not found")
	ErrConflictUnresolved  = errors.New("unresolved sync conflicts")

	// ErrStorageBusy is returned when another process owns the local store.
	ErrStorageBusy = errors.New("local store is used by another process")

	// ErrRemoteTransport wraps every failure reported by the remote client.
	ErrRemoteTransport = errors.New("remote transport error")
	// ErrPersistence wraps every failure reported by the local store.
	ErrPersistence = errors.New("local persistence error")

	ErrConflictAlreadyResolved = errors.New("sync conflict already resolved")
	ErrUnknownEntityType       = models.ErrUnknownEntityType

	// ErrInvalidDataProvided is returned for entities or records missing a
	// required field.
	ErrInvalidDataProvided = errors.New("invalid data provided")
)

// Record server errors.
var (
	ErrVersionIsNotSpecified   = errors.New("app version is not specified")
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrInvalidChangeToken      = errors.New("invalid change token")
)
