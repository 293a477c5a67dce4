package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/validators"
	"github.com/MKhiriev/go-favsync/models"
)

// RecordValidationService checks requests before they reach the wrapped
// RecordService. Validation failures are reported as ErrUnknownEntityType or
// ErrInvalidDataProvided.
type RecordValidationService struct {
	inner     RecordService
	validator validators.Validator
}

func NewRecordValidationService() RecordServiceWrapper {
	return &RecordValidationService{
		validator: validators.NewRecordValidator(),
	}
}

func (v *RecordValidationService) Push(ctx context.Context, userID int64, rec models.RemoteRecord) (models.RemoteRecord, error) {
	if err := v.validate(ctx, rec); err != nil {
		return models.RemoteRecord{}, err
	}

	return v.inner.Push(ctx, userID, rec)
}

func (v *RecordValidationService) Delete(ctx context.Context, userID int64, t models.EntityType, remoteID string) error {
	rec := models.RemoteRecord{RecordType: t, RemoteID: remoteID}
	if err := v.validate(ctx, rec, validators.FieldRecordType, validators.FieldRemoteID); err != nil {
		return err
	}

	return v.inner.Delete(ctx, userID, t, remoteID)
}

func (v *RecordValidationService) Changes(ctx context.Context, userID int64, t models.EntityType, token models.ChangeToken, limit int) (models.ChangeSet, error) {
	if err := v.validate(ctx, t); err != nil {
		return models.ChangeSet{}, err
	}

	return v.inner.Changes(ctx, userID, t, token, limit)
}

func (v *RecordValidationService) Ping(ctx context.Context) error {
	return v.inner.Ping(ctx)
}

func (v *RecordValidationService) Wrap(inner RecordService) RecordService {
	v.inner = inner
	return v
}

func (v *RecordValidationService) validate(ctx context.Context, obj any, fields ...string) error {
	err := v.validator.Validate(ctx, obj, fields...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownEntityType):
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
}
