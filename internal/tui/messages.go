package tui

import "github.com/MKhiriev/go-favsync/models"

// snapshotMsg carries one operation snapshot from the progress feed.
type snapshotMsg struct {
	op models.SyncOperation
}

// feedClosedMsg is sent once the progress feed channel is closed.
type feedClosedMsg struct{}
