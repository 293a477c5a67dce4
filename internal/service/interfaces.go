package service

import (
	"context"

	"github.com/MKhiriev/go-favsync/models"
)

// RecordService is the record server's view of a user's records.
type RecordService interface {
	// Push validates rec, assigns it a new version tag and stores it.
	// A stale rec.VersionTag yields store.ErrVersionConflict.
	Push(ctx context.Context, userID int64, rec models.RemoteRecord) (models.RemoteRecord, error)
	Delete(ctx context.Context, userID int64, t models.EntityType, remoteID string) error
	// Changes returns one page of the change feed of type t after token.
	// A limit outside (0, page size] selects the page size.
	Changes(ctx context.Context, userID int64, t models.EntityType, token models.ChangeToken, limit int) (models.ChangeSet, error)
	Ping(ctx context.Context) error
}

type AuthService interface {
	// CreateToken issues a bearer token for userID.
	CreateToken(ctx context.Context, userID int64) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// RecordServiceWrapper defines middleware composition for RecordService.
// Implementations wrap an existing RecordService to add behavior such as
// logging or validating.
type RecordServiceWrapper interface {
	Wrap(RecordService) RecordService // returns a decorated RecordService applying additional behavior
}
