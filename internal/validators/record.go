package validators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MKhiriev/go-favsync/models"
)

// Field name constants used to restrict validation to a subset of a
// [models.RemoteRecord].
const (
	// FieldRecordType targets the record type, which must be a known entity type.
	FieldRecordType = "record_type"

	// FieldRemoteID targets the remote identifier.
	FieldRemoteID = "remote_id"

	// FieldParent targets the parent reference: required for favorite items,
	// forbidden for the other types.
	FieldParent = "parent_remote_id"

	// FieldFields targets the JSON document of named fields.
	FieldFields = "fields"

	// FieldVersionTag targets the optimistic concurrency tag sent by the client.
	FieldVersionTag = "version_tag"

	// FieldModifiedAt targets the client modification time.
	FieldModifiedAt = "modified_at"
)

const (
	maxIDLength = 128
	// maxClockSkew bounds how far ahead of the server clock a client
	// modification time may be.
	maxClockSkew = 24 * time.Hour
)

var allRecordFields = []string{FieldRecordType, FieldRemoteID, FieldParent, FieldFields, FieldVersionTag, FieldModifiedAt}

type RecordValidator struct {
	now func() time.Time
}

func NewRecordValidator() Validator {
	return &RecordValidator{now: time.Now}
}

// Validate accepts a [models.RemoteRecord] (or a pointer to one) and a bare
// [models.EntityType]. With no fields every rule applies.
func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.RemoteRecord:
		return v.validateRecord(ctx, value, fields...)
	case *models.RemoteRecord:
		if value == nil {
			return ErrUnsupportedType
		}
		return v.validateRecord(ctx, *value, fields...)

	case models.EntityType:
		return validateRecordType(value)

	default:
		return ErrUnsupportedType
	}
}

func (v *RecordValidator) validateRecord(_ context.Context, rec models.RemoteRecord, fields ...string) error {
	if len(fields) == 0 {
		fields = allRecordFields
	}

	for _, field := range fields {
		var err error
		switch field {
		case FieldRecordType:
			err = validateRecordType(rec.RecordType)
		case FieldRemoteID:
			err = validateID(rec.RemoteID)
		case FieldParent:
			err = validateParent(rec.RecordType, rec.ParentRemoteID)
		case FieldFields:
			err = validateFields(rec.Fields)
		case FieldVersionTag:
			if len(rec.VersionTag) > maxIDLength {
				err = ErrVersionTagTooLong
			}
		case FieldModifiedAt:
			if rec.ModifiedAt.After(v.now().Add(maxClockSkew)) {
				err = fmt.Errorf("%w: %s", ErrModifiedAtInFuture, rec.ModifiedAt.Format(time.RFC3339))
			}
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownField, field)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func validateRecordType(t models.EntityType) error {
	_, err := models.ParseEntityType(string(t))
	return err
}

func validateID(id string) error {
	if id == "" {
		return ErrEmptyRemoteID
	}
	if len(id) > maxIDLength {
		return ErrRemoteIDTooLong
	}
	return nil
}

func validateParent(t models.EntityType, parent string) error {
	if t == models.EntityFavoriteItem {
		if parent == "" {
			return ErrMissingParent
		}
		return validateID(parent)
	}
	if parent != "" {
		return fmt.Errorf("%w: %s", ErrUnexpectedParent, t)
	}
	return nil
}

// validateFields accepts an absent document or a JSON object.
func validateFields(fields json.RawMessage) error {
	if len(fields) == 0 {
		return nil
	}
	if !json.Valid(fields) {
		return ErrInvalidFields
	}
	if trimmed := bytes.TrimSpace(fields); len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrInvalidFields
	}
	return nil
}
