// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the favsync command line application.
//
// It dispatches one command per process run onto the client services: sync
// and daemon start the background sync worker, every other command reads or
// edits local state and exits.
package client
