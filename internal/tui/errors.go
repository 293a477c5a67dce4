// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"
	"strings"

	"github.com/MKhiriev/go-favsync/internal/service"
)

var (
	// ErrDetached is returned by [TUI.WatchProgress] when the user leaves
	// the progress view before the operation finished.
	ErrDetached = errors.New("detached from sync progress")
	// ErrNoSyncService is returned by [New] when the services carry no sync
	// orchestrator.
	ErrNoSyncService = errors.New("sync service is not configured")
)

// HumanizeError turns engine and transport errors into a short line for the
// terminal.
func HumanizeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, service.ErrOperationInProgress):
		return "A sync is already running"
	case errors.Is(err, service.ErrRemoteUnavailable):
		return "No network or the record server is unavailable"
	case errors.Is(err, service.ErrConflictUnresolved):
		return "Resolve open conflicts before syncing (see: conflicts)"
	case errors.Is(err, service.ErrStorageBusy):
		return "Another client process is using this database"
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "dial tcp") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "network is unreachable") ||
		strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "context deadline exceeded") {
		return "No network or the record server is unavailable"
	}

	return err.Error()
}
