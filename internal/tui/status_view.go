package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MKhiriev/go-favsync/models"
)

// RenderStatus renders the sync status page.
func RenderStatus(report models.SyncStatusReport, now time.Time) string {
	var b strings.Builder

	b.WriteString(row("Readiness:", renderReadiness(report.Readiness)))
	b.WriteString(row("Remote available:", yesNo(report.RemoteAvailable)))
	b.WriteString(row("Auto-sync:", onOff(report.AutoSyncEnabled)))
	b.WriteString(row("Last sync:", timeOrDash(report.LastSyncTime)))
	b.WriteString(row("Pending changes:", report.PendingChanges))

	conflicts := fmt.Sprint(report.UnresolvedConflicts)
	if report.UnresolvedConflicts > 0 {
		conflicts = warnStyle.Render(conflicts)
	}
	b.WriteString(row("Open conflicts:", conflicts))

	if report.CurrentOperation != nil {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Current operation"))
		b.WriteString("\n")
		b.WriteString(renderOperationRows(*report.CurrentOperation, now))
	}
	if report.LastOperation != nil {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Last operation"))
		b.WriteString("\n")
		b.WriteString(renderOperationRows(*report.LastOperation, now))
	}

	return renderPage("SYNC STATUS", b.String())
}

// RenderOperation renders a single operation snapshot.
func RenderOperation(op models.SyncOperation, now time.Time) string {
	return renderPage("OPERATION "+op.ID, renderOperationRows(op, now))
}

func renderOperationRows(op models.SyncOperation, now time.Time) string {
	var b strings.Builder

	b.WriteString(row("ID:", op.ID))
	b.WriteString(row("Status:", renderOperationStatus(op.Status)))
	b.WriteString(row("Started:", timeOrDash(&op.StartTime)))
	b.WriteString(row("Finished:", timeOrDash(op.EndTime)))
	b.WriteString(row("Progress:", fmt.Sprintf("%.0f%% (%d/%d)", op.Progress*100, op.ItemsProcessed, op.TotalItems)))
	if eta, ok := op.EstimatedTimeRemaining(now); ok {
		b.WriteString(row("Time remaining:", "~"+eta.Round(time.Second).String()))
	}
	if op.ErrorMessage != nil {
		b.WriteString(row("Error:", errorStyle.Render(*op.ErrorMessage)))
	}

	return b.String()
}

// RenderConflicts renders the conflict list, newest first.
func RenderConflicts(conflicts []models.SyncConflict) string {
	if len(conflicts) == 0 {
		return renderPage("CONFLICTS", okStyle.Render("No conflicts"))
	}

	sorted := append([]models.SyncConflict(nil), conflicts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var b strings.Builder
	for _, c := range sorted {
		mark := conflictMark
		resolution := "open"
		if c.Resolved {
			mark = " "
			resolution = "resolved"
			if c.Resolution != nil {
				resolution += ": " + string(*c.Resolution)
			}
		}

		remote := "deleted remotely"
		if c.RemoteSnapshot != nil {
			remote = "changed remotely " + c.RemoteModifiedAt.Local().Format(time.DateTime)
		}
		local := "changed locally " + c.LocalModifiedAt.Local().Format(time.DateTime)
		if c.LocalDeleted {
			local = "deleted locally"
		}

		fmt.Fprintf(&b, "%s %s  %s %s\n", mark, c.ID, c.EntityType, c.EntityID)
		fmt.Fprintf(&b, "    %s, %s (%s)\n", local, remote, resolution)
	}

	return renderPage("CONFLICTS", b.String())
}

// RenderEntities renders a list of local entities of one type.
func RenderEntities(t models.EntityType, entities []models.Entity) string {
	var b strings.Builder

	for _, e := range entities {
		status := string(e.GetSyncStatus())
		if e.GetSyncStatus() == models.StatusConflict {
			status = warnStyle.Render(status)
		}
		fmt.Fprintf(&b, "%-36s  %-30s  %s\n", e.GetID(), fitText(describeEntity(e), 30), status)
	}

	return renderPage(strings.ToUpper(string(t))+"S", b.String())
}

func describeEntity(e models.Entity) string {
	switch v := e.(type) {
	case *models.Folder:
		if v.IsDefault {
			return v.Name + " (default)"
		}
		return v.Name
	case *models.FavoriteItem:
		return v.Word + " [" + v.Reading + "] " + v.Meaning
	case *models.UserProfile:
		return v.Nickname
	}
	return ""
}

func renderReadiness(readiness string) string {
	switch readiness {
	case models.ReadinessReady:
		return okStyle.Render(readiness)
	case models.ReadinessOffline:
		return errorStyle.Render(readiness)
	}
	return warnStyle.Render(readiness)
}

func renderOperationStatus(status models.OperationStatus) string {
	switch status {
	case models.OperationCompleted:
		return okStyle.Render(string(status))
	case models.OperationFailed:
		return errorStyle.Render(string(status))
	}
	return warnStyle.Render(string(status))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
