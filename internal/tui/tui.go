package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/models"
)

// progressSource is the part of service.SyncService the progress view reads.
type progressSource interface {
	Subscribe() (<-chan models.SyncOperation, func())
	GetProgress(ctx context.Context, id string) (models.SyncOperation, error)
	Await(ctx context.Context, id string) (models.SyncOperation, error)
}

type TUI struct {
	sync progressSource

	in  io.Reader
	out io.Writer

	now    func() time.Time
	logger *logger.Logger
}

// New returns a TUI that reads keys from in and draws on out. A nil in
// disables keyboard input.
func New(services *service.ClientServices, in io.Reader, out io.Writer, log *logger.Logger) (*TUI, error) {
	if services == nil || services.SyncService == nil {
		return nil, ErrNoSyncService
	}

	return &TUI{
		sync:   services.SyncService,
		in:     in,
		out:    out,
		now:    time.Now,
		logger: log,
	}, nil
}

// WatchProgress draws a progress bar for op until it is terminal and returns
// the final snapshot. It returns ErrDetached with the latest snapshot when
// the user leaves early.
func (t *TUI) WatchProgress(ctx context.Context, op models.SyncOperation) (models.SyncOperation, error) {
	updates, unsubscribe := t.sync.Subscribe()
	defer unsubscribe()

	// the operation may have finished before the subscription
	latest, err := t.sync.GetProgress(ctx, op.ID)
	if err != nil {
		return op, err
	}
	if latest.IsTerminal() {
		return latest, nil
	}

	model := newProgressModel(latest, updates, t.now)
	finalModel, err := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	).Run()
	if err != nil {
		return latest, fmt.Errorf("progress view: %w", err)
	}

	result, ok := finalModel.(progressModel)
	if !ok {
		return latest, tea.ErrProgramKilled
	}
	if result.detached {
		return result.op, ErrDetached
	}
	if result.op.IsTerminal() {
		return result.op, nil
	}

	// the feed closed on an earlier terminal snapshot; read the outcome
	return t.sync.Await(ctx, op.ID)
}

// Print writes a rendered page to the output.
func (t *TUI) Print(page string) {
	if _, err := io.WriteString(t.out, page); err != nil {
		t.logger.Err(err).Str("func", "TUI.Print").Msg("failed to write output")
	}
}
