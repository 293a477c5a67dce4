// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// FavoriteItem is a dictionary word saved by the user into a [Folder].
// FolderID is the local id of the owning folder; on the wire the reference is
// carried as the folder's remote id.
type FavoriteItem struct {
	ID       string  `json:"id"`
	FolderID string  `json:"folder_id"`
	WordID   string  `json:"word_id"`
	Word     string  `json:"word"`
	Reading  string  `json:"reading"`
	Meaning  string  `json:"meaning"`
	Note     *string `json:"note,omitempty"`

	AddedAt      time.Time        `json:"added_at"`
	LastModified time.Time        `json:"last_modified"`
	SyncStatus   EntitySyncStatus `json:"sync_status"`
}

type favoriteItemFields struct {
	WordID  string    `json:"word_id"`
	Word    string    `json:"word"`
	Reading string    `json:"reading"`
	Meaning string    `json:"meaning"`
	Note    *string   `json:"note,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

func (i *FavoriteItem) GetID() string                         { return i.ID }
func (i *FavoriteItem) GetType() EntityType                   { return EntityFavoriteItem }
func (i *FavoriteItem) GetSyncStatus() EntitySyncStatus       { return i.SyncStatus }
func (i *FavoriteItem) SetSyncStatus(status EntitySyncStatus) { i.SyncStatus = status }
func (i *FavoriteItem) GetLastModified() time.Time            { return i.LastModified }
func (i *FavoriteItem) GetParentID() string                   { return i.FolderID }
func (i *FavoriteItem) SetParentID(id string)                 { i.FolderID = id }

func (i *FavoriteItem) RecordFields() (json.RawMessage, error) {
	return json.Marshal(favoriteItemFields{
		WordID:  i.WordID,
		Word:    i.Word,
		Reading: i.Reading,
		Meaning: i.Meaning,
		Note:    i.Note,
		AddedAt: i.AddedAt,
	})
}

func (i *FavoriteItem) ApplyRecordFields(fields json.RawMessage, modifiedAt time.Time) error {
	var v favoriteItemFields
	if err := json.Unmarshal(fields, &v); err != nil {
		return err
	}

	i.WordID = v.WordID
	i.Word = v.Word
	i.Reading = v.Reading
	i.Meaning = v.Meaning
	i.Note = v.Note
	i.AddedAt = v.AddedAt
	i.LastModified = modifiedAt
	return nil
}
