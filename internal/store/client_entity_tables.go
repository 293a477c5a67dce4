// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-favsync/models"
)

// entityTable maps one entity kind onto its SQLite table. The first column is
// always the primary key.
type entityTable struct {
	name    string
	columns []string
	scan    func(row scanner) (models.Entity, error)
	values  func(e models.Entity) ([]any, error)
}

var entityTables = map[models.EntityType]entityTable{
	models.EntityFolder: {
		name:    "folders",
		columns: []string{"id", "name", "is_default", "sort_order", "created_at", "last_modified", "sync_status"},
		scan: func(row scanner) (models.Entity, error) {
			var f models.Folder
			err := row.Scan(&f.ID, &f.Name, &f.IsDefault, &f.SortOrder, &f.CreatedAt, &f.LastModified, &f.SyncStatus)
			return &f, err
		},
		values: func(e models.Entity) ([]any, error) {
			f, ok := e.(*models.Folder)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a folder", models.ErrUnknownEntityType, e)
			}
			return []any{f.ID, f.Name, f.IsDefault, f.SortOrder, f.CreatedAt.UTC(), f.LastModified.UTC(), string(f.SyncStatus)}, nil
		},
	},
	models.EntityFavoriteItem: {
		name:    "favorite_items",
		columns: []string{"id", "folder_id", "word_id", "word", "reading", "meaning", "note", "added_at", "last_modified", "sync_status"},
		scan: func(row scanner) (models.Entity, error) {
			var (
				i    models.FavoriteItem
				note sql.NullString
			)
			err := row.Scan(&i.ID, &i.FolderID, &i.WordID, &i.Word, &i.Reading, &i.Meaning, &note, &i.AddedAt, &i.LastModified, &i.SyncStatus)
			if note.Valid {
				i.Note = &note.String
			}
			return &i, err
		},
		values: func(e models.Entity) ([]any, error) {
			i, ok := e.(*models.FavoriteItem)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a favorite item", models.ErrUnknownEntityType, e)
			}
			return []any{i.ID, i.FolderID, i.WordID, i.Word, i.Reading, i.Meaning, nullString(i.Note), i.AddedAt.UTC(), i.LastModified.UTC(), string(i.SyncStatus)}, nil
		},
	},
	models.EntityUser: {
		name:    "user_profiles",
		columns: []string{"id", "nickname", "email", "settings", "created_at", "last_modified", "sync_status"},
		scan: func(row scanner) (models.Entity, error) {
			var (
				u        models.UserProfile
				email    sql.NullString
				settings string
			)
			if err := row.Scan(&u.ID, &u.Nickname, &email, &settings, &u.CreatedAt, &u.LastModified, &u.SyncStatus); err != nil {
				return nil, err
			}
			if email.Valid {
				u.Email = &email.String
			}
			if err := json.Unmarshal([]byte(settings), &u.Settings); err != nil {
				return nil, fmt.Errorf("decode settings of profile %s: %w", u.ID, err)
			}
			return &u, nil
		},
		values: func(e models.Entity) ([]any, error) {
			u, ok := e.(*models.UserProfile)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a user profile", models.ErrUnknownEntityType, e)
			}
			settings, err := json.Marshal(u.Settings)
			if err != nil {
				return nil, err
			}
			return []any{u.ID, u.Nickname, nullString(u.Email), string(settings), u.CreatedAt.UTC(), u.LastModified.UTC(), string(u.SyncStatus)}, nil
		},
	},
}

func tableFor(t models.EntityType) (entityTable, error) {
	table, ok := entityTables[t]
	if !ok {
		return entityTable{}, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, t)
	}
	return table, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
