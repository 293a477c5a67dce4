// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// OperationStatus is the lifecycle state of a [SyncOperation].
//
// Allowed transitions: pending → running → completed | failed.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationRunning   OperationStatus = "running"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
)

// OperationKind describes what a sync operation covers.
type OperationKind string

// OperationKindFull is a complete upload + download + checkpoint cycle.
const OperationKindFull OperationKind = "full"

// SyncOperation is one sync attempt. It is created when a sync starts,
// updated while work completes and becomes terminal exactly once. Rows are
// never deleted so the last attempt stays visible in status output.
type SyncOperation struct {
	ID     string          `json:"id"`
	Kind   OperationKind   `json:"kind"`
	Status OperationStatus `json:"status"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Progress is ItemsProcessed / TotalItems, in [0, 1].
	Progress       float64 `json:"progress"`
	ItemsProcessed int     `json:"items_processed"`
	TotalItems     int     `json:"total_items"`

	// ErrorMessage is set only when Status is OperationFailed.
	ErrorMessage *string `json:"error_message,omitempty"`
}

// NewSyncOperation returns a pending full sync operation.
func NewSyncOperation(id string, now time.Time) SyncOperation {
	return SyncOperation{
		ID:        id,
		Kind:      OperationKindFull,
		Status:    OperationPending,
		StartTime: now,
	}
}

// IsTerminal reports whether the operation has completed or failed.
func (o SyncOperation) IsTerminal() bool {
	return o.Status == OperationCompleted || o.Status == OperationFailed
}

// EstimatedTimeRemaining extrapolates the elapsed time per processed item to
// the items still outstanding. ok is false when there is nothing to
// extrapolate from.
func (o SyncOperation) EstimatedTimeRemaining(now time.Time) (remaining time.Duration, ok bool) {
	if o.Status != OperationRunning || o.ItemsProcessed == 0 || o.TotalItems <= o.ItemsProcessed {
		return 0, false
	}

	elapsed := now.Sub(o.StartTime)
	perItem := elapsed / time.Duration(o.ItemsProcessed)

	return perItem * time.Duration(o.TotalItems-o.ItemsProcessed), true
}
