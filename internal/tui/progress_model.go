package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-favsync/models"
)

const progressBarWidth = 40

// progressModel follows one sync operation on the progress feed until the
// operation is terminal, the feed closes or the user detaches.
type progressModel struct {
	op      models.SyncOperation
	updates <-chan models.SyncOperation

	bar     progress.Model
	spinner spinner.Model
	now     func() time.Time

	detached bool
}

func newProgressModel(op models.SyncOperation, updates <-chan models.SyncOperation, now func() time.Time) progressModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	return progressModel{
		op:      op,
		updates: updates,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth)),
		spinner: s,
		now:     now,
	}
}

// waitForSnapshot reads the next snapshot of the feed.
func waitForSnapshot(updates <-chan models.SyncOperation) tea.Cmd {
	return func() tea.Msg {
		op, ok := <-updates
		if !ok {
			return feedClosedMsg{}
		}
		return snapshotMsg{op: op}
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.updates))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.detach) {
			m.detached = true
			return m, tea.Quit
		}
		return m, nil

	case snapshotMsg:
		// the feed is shared by every operation
		if msg.op.ID != m.op.ID {
			return m, waitForSnapshot(m.updates)
		}
		m.op = msg.op
		if m.op.IsTerminal() {
			return m, tea.Quit
		}
		return m, waitForSnapshot(m.updates)

	case feedClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder

	switch m.op.Status {
	case models.OperationCompleted:
		b.WriteString(okStyle.Render("✓ Sync completed"))
	case models.OperationFailed:
		b.WriteString(errorStyle.Render("✗ Sync failed: " + valueOrDash(m.op.ErrorMessage)))
	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" Syncing (")
		b.WriteString(string(m.op.Status))
		b.WriteString(")")
	}
	b.WriteString("\n")

	b.WriteString(m.bar.ViewAs(m.op.Progress))
	b.WriteString(fmt.Sprintf("  %d/%d", m.op.ItemsProcessed, m.op.TotalItems))
	if eta, ok := m.op.EstimatedTimeRemaining(m.now()); ok {
		b.WriteString("  ~" + eta.Round(time.Second).String() + " left")
	}
	b.WriteString("\n")

	if !m.op.IsTerminal() {
		b.WriteString(helpStyle.Render("q: hide progress"))
		b.WriteString("\n")
	}

	return appStyle.Render(b.String())
}
