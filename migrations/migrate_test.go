// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package migrations

import (
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrateServer_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	_ = mock // no expectations: every statement goose issues fails

	err = MigrateServer(db)
	if err == nil {
		t.Fatal("expected error from MigrateServer, got nil")
	}

	if !strings.Contains(err.Error(), "migration error") {
		t.Errorf("expected wrapped migration error, got: %v", err)
	}
}

func TestMigrate_NilDB(t *testing.T) {
	var db *sql.DB

	for name, migrate := range map[string]func(*sql.DB) error{
		"client": MigrateClient,
		"server": MigrateServer,
	} {
		t.Run(name, func(t *testing.T) {
			err := migrate(db)
			if err == nil {
				t.Fatal("expected error when db is nil, got nil")
			}

			if !strings.Contains(err.Error(), "db is nil") {
				t.Errorf("expected 'db is nil' error, got: %v", err)
			}
		})
	}
}

func TestEmbeddedMigrations_Present(t *testing.T) {
	for _, dir := range []string{"client", "server"} {
		entries, err := fs.ReadDir(embedMigrations, dir)
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		if len(entries) == 0 {
			t.Errorf("expected migrations in %s", dir)
		}
		for _, e := range entries {
			data, err := fs.ReadFile(embedMigrations, dir+"/"+e.Name())
			if err != nil {
				t.Fatalf("read %s: %v", e.Name(), err)
			}
			if !strings.Contains(string(data), "-- +goose Up") {
				t.Errorf("%s/%s lacks a goose Up annotation", dir, e.Name())
			}
		}
	}
}
