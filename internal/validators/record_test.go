package validators

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-favsync/models"
)

var validatorNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestValidator() *RecordValidator {
	return &RecordValidator{now: func() time.Time { return validatorNow }}
}

func validFolder() models.RemoteRecord {
	return models.RemoteRecord{
		RecordType: models.EntityFolder,
		RemoteID:   "f-1",
		ModifiedAt: validatorNow,
		Fields:     json.RawMessage(`{"name":"Home"}`),
	}
}

func validItem() models.RemoteRecord {
	return models.RemoteRecord{
		RecordType:     models.EntityFavoriteItem,
		RemoteID:       "i-1",
		ParentRemoteID: "f-1",
		VersionTag:     "tag-1",
		Fields:         json.RawMessage(`{"word":"猫"}`),
	}
}

func TestRecordValidator_Valid(t *testing.T) {
	v := newTestValidator()
	ctx := context.Background()

	assert.NoError(t, v.Validate(ctx, validFolder()))
	item := validItem()
	assert.NoError(t, v.Validate(ctx, &item))
	assert.NoError(t, v.Validate(ctx, models.RemoteRecord{RecordType: models.EntityUser, RemoteID: "u"}), "fields are optional")
}

func TestRecordValidator_Rules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *models.RemoteRecord)
		wantErr error
	}{
		{"unknown type", func(r *models.RemoteRecord) { r.RecordType = "word" }, models.ErrUnknownEntityType},
		{"empty id", func(r *models.RemoteRecord) { r.RemoteID = "" }, ErrEmptyRemoteID},
		{"long id", func(r *models.RemoteRecord) { r.RemoteID = strings.Repeat("x", maxIDLength+1) }, ErrRemoteIDTooLong},
		{"broken json", func(r *models.RemoteRecord) { r.Fields = json.RawMessage(`{`) }, ErrInvalidFields},
		{"json array", func(r *models.RemoteRecord) { r.Fields = json.RawMessage(`[1]`) }, ErrInvalidFields},
		{"folder with parent", func(r *models.RemoteRecord) { r.ParentRemoteID = "x" }, ErrUnexpectedParent},
		{"long version tag", func(r *models.RemoteRecord) { r.VersionTag = strings.Repeat("v", maxIDLength+1) }, ErrVersionTagTooLong},
		{"future modification", func(r *models.RemoteRecord) { r.ModifiedAt = validatorNow.Add(48 * time.Hour) }, ErrModifiedAtInFuture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validFolder()
			tt.mutate(&rec)

			assert.ErrorIs(t, newTestValidator().Validate(context.Background(), rec), tt.wantErr)
		})
	}
}

func TestRecordValidator_ItemNeedsParent(t *testing.T) {
	item := validItem()
	item.ParentRemoteID = ""

	assert.ErrorIs(t, newTestValidator().Validate(context.Background(), item), ErrMissingParent)
}

func TestRecordValidator_FieldScoping(t *testing.T) {
	v := newTestValidator()
	ctx := context.Background()

	rec := validFolder()
	rec.RemoteID = ""
	rec.Fields = json.RawMessage(`{`)

	assert.NoError(t, v.Validate(ctx, rec, FieldRecordType))
	assert.ErrorIs(t, v.Validate(ctx, rec, FieldFields), ErrInvalidFields)
	assert.ErrorIs(t, v.Validate(ctx, rec, FieldRecordType, FieldRemoteID), ErrEmptyRemoteID)
	assert.ErrorIs(t, v.Validate(ctx, rec, "color"), ErrUnknownField)
}

func TestRecordValidator_EntityType(t *testing.T) {
	v := newTestValidator()

	require.NoError(t, v.Validate(context.Background(), models.EntityUser))
	assert.ErrorIs(t, v.Validate(context.Background(), models.EntityType("word")), models.ErrUnknownEntityType)
}

func TestRecordValidator_UnsupportedType(t *testing.T) {
	v := newTestValidator()

	assert.ErrorIs(t, v.Validate(context.Background(), 42), ErrUnsupportedType)
	assert.ErrorIs(t, v.Validate(context.Background(), (*models.RemoteRecord)(nil)), ErrUnsupportedType)
}
