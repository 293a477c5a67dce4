// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// UserSettings holds per-user preferences that travel with the profile.
type UserSettings struct {
	DarkMode             bool `json:"dark_mode"`
	FontSize             int  `json:"font_size"`
	AutoSync             bool `json:"auto_sync"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// DefaultUserSettings returns the settings of a freshly created profile.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		FontSize:             16,
		AutoSync:             true,
		NotificationsEnabled: true,
	}
}

// UserProfile is the single profile record of the local user.
type UserProfile struct {
	ID        string       `json:"id"`
	Nickname  string       `json:"nickname"`
	Email     *string      `json:"email,omitempty"`
	Settings  UserSettings `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`

	LastModified time.Time        `json:"last_modified"`
	SyncStatus   EntitySyncStatus `json:"sync_status"`
}

type userProfileFields struct {
	Nickname  string       `json:"nickname"`
	Email     *string      `json:"email,omitempty"`
	Settings  UserSettings `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`
}

func (u *UserProfile) GetID() string                         { return u.ID }
func (u *UserProfile) GetType() EntityType                   { return EntityUser }
func (u *UserProfile) GetSyncStatus() EntitySyncStatus       { return u.SyncStatus }
func (u *UserProfile) SetSyncStatus(status EntitySyncStatus) { u.SyncStatus = status }
func (u *UserProfile) GetLastModified() time.Time            { return u.LastModified }
func (u *UserProfile) GetParentID() string                   { return "" }
func (u *UserProfile) SetParentID(string)                    {}

func (u *UserProfile) RecordFields() (json.RawMessage, error) {
	return json.Marshal(userProfileFields{
		Nickname:  u.Nickname,
		Email:     u.Email,
		Settings:  u.Settings,
		CreatedAt: u.CreatedAt,
	})
}

func (u *UserProfile) ApplyRecordFields(fields json.RawMessage, modifiedAt time.Time) error {
	var v userProfileFields
	if err := json.Unmarshal(fields, &v); err != nil {
		return err
	}

	u.Nickname = v.Nickname
	u.Email = v.Email
	u.Settings = v.Settings
	u.CreatedAt = v.CreatedAt
	u.LastModified = modifiedAt
	return nil
}
