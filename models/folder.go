// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// Folder groups favorite items. Exactly one folder per user is expected to
// carry IsDefault; items saved without an explicit folder land there.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`

	LastModified time.Time        `json:"last_modified"`
	SyncStatus   EntitySyncStatus `json:"sync_status"`
}

// folderFields is the remote record payload of a [Folder].
type folderFields struct {
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Folder) GetID() string                         { return f.ID }
func (f *Folder) GetType() EntityType                   { return EntityFolder }
func (f *Folder) GetSyncStatus() EntitySyncStatus       { return f.SyncStatus }
func (f *Folder) SetSyncStatus(status EntitySyncStatus) { f.SyncStatus = status }
func (f *Folder) GetLastModified() time.Time            { return f.LastModified }
func (f *Folder) GetParentID() string                   { return "" }
func (f *Folder) SetParentID(string)                    {}

func (f *Folder) RecordFields() (json.RawMessage, error) {
	return json.Marshal(folderFields{
		Name:      f.Name,
		IsDefault: f.IsDefault,
		SortOrder: f.SortOrder,
		CreatedAt: f.CreatedAt,
	})
}

func (f *Folder) ApplyRecordFields(fields json.RawMessage, modifiedAt time.Time) error {
	var v folderFields
	if err := json.Unmarshal(fields, &v); err != nil {
		return err
	}

	f.Name = v.Name
	f.IsDefault = v.IsDefault
	f.SortOrder = v.SortOrder
	f.CreatedAt = v.CreatedAt
	f.LastModified = modifiedAt
	return nil
}
