// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "errors"

var (
	// ErrUsage is returned for a missing command or malformed arguments.
	ErrUsage = errors.New("usage")
	// ErrUnknownCommand is returned for a command name that is not known.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrSyncFailed is returned by the sync command when the operation ended
	// in the failed state.
	ErrSyncFailed = errors.New("sync failed")
)
