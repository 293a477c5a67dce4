// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the client's view of the record server.
//
// The primary abstraction is [RemoteClient], which decouples the sync engine
// from the transport. The package ships an HTTP/REST implementation backed by
// resty ([NewHTTPRemoteClient]) and an in-process implementation
// ([NewMemoryRemote]) used for offline demos and tests.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrVersionConflict] for 409, [ErrNotFound] for 404).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-favsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_client_mock.go -package=mock

// RemoteClient is the record-oriented remote backend.
type RemoteClient interface {
	// CheckAvailability reports whether the backend answers at all.
	CheckAvailability(ctx context.Context) bool

	// Push creates or overwrites rec. A non-empty rec.VersionTag must match
	// the server's current tag, otherwise [ErrVersionConflict] is returned.
	// The server's remote id and new version tag are returned.
	Push(ctx context.Context, rec models.RemoteRecord) (remoteID, versionTag string, err error)

	// Delete removes a record. [ErrNotFound] means it is already gone.
	Delete(ctx context.Context, t models.EntityType, remoteID string) error

	// FetchChanges returns the changes of type t after token. A nil token
	// starts from the beginning of the feed.
	FetchChanges(ctx context.Context, t models.EntityType, token models.ChangeToken) (models.ChangeSet, error)
}
