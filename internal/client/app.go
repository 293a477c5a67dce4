package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/internal/tui"
	"github.com/MKhiriev/go-favsync/internal/workers"
	"github.com/MKhiriev/go-favsync/models"
)

// view is the part of the terminal UI the commands draw on.
type view interface {
	WatchProgress(ctx context.Context, op models.SyncOperation) (models.SyncOperation, error)
	Print(page string)
}

type App struct {
	services *service.ClientServices
	ui       view

	buildInfo models.AppBuildInfo
	commands  map[string]command

	logger *logger.Logger
}

func NewApp(services *service.ClientServices, ui view, buildInfo models.AppBuildInfo, log *logger.Logger) (*App, error) {
	if services == nil || ui == nil {
		return nil, errors.New("client app requires services and ui")
	}

	a := &App{
		services:  services,
		ui:        ui,
		buildInfo: buildInfo,
		logger:    log,
	}
	a.commands = a.commandTable()

	return a, nil
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s", ErrUsage, a.usage())
	}

	name, rest := args[0], args[1:]
	// two-word commands: "folder add", "favorite add", "profile set"
	if len(rest) > 0 {
		if _, ok := a.commands[name+" "+rest[0]]; ok {
			name, rest = name+" "+rest[0], rest[1:]
		}
	}

	cmd, ok := a.commands[name]
	if !ok {
		return fmt.Errorf("%w: %q\n%s", ErrUnknownCommand, args[0], a.usage())
	}
	if len(rest) < cmd.minArgs || (cmd.maxArgs >= 0 && len(rest) > cmd.maxArgs) {
		return fmt.Errorf("%w: %s %s", ErrUsage, name, cmd.args)
	}

	log := a.logger.With().Str("command", name).Logger()
	log.Debug().Strs("args", rest).Msg("running command")

	if err := cmd.run(ctx, rest); err != nil {
		log.Err(err).Msg("command failed")
		return err
	}
	return nil
}

// startWorker takes ownership of the local store, recovering operations
// interrupted by an earlier owner, and starts the serial sync worker. The
// returned function stops it and gives the store up.
func (a *App) startWorker(ctx context.Context, extra ...workers.Worker) (func(), error) {
	release, err := a.services.SyncService.AcquireOwnership(ctx)
	if err != nil {
		return nil, humanize(fmt.Errorf("take over local store: %w", err))
	}

	all := workers.NewWorkers(append([]workers.Worker{a.services.Worker}, extra...)...)
	all.Run(ctx)

	return func() {
		all.Stop()
		release()
	}, nil
}

// humanize wraps err with a terminal-friendly message while keeping it
// matchable with errors.Is.
func humanize(err error) error {
	msg := tui.HumanizeError(err)
	if msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
