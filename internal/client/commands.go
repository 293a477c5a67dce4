package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MKhiriev/go-favsync/internal/tui"
	"github.com/MKhiriev/go-favsync/models"
)

type command struct {
	args    string
	minArgs int
	// maxArgs is -1 for no upper bound.
	maxArgs int
	run     func(ctx context.Context, args []string) error
}

func (a *App) commandTable() map[string]command {
	return map[string]command{
		"sync":         {args: "", maxArgs: 0, run: a.runSync},
		"status":       {args: "", maxArgs: 0, run: a.status},
		"progress":     {args: "<operation id>", minArgs: 1, maxArgs: 1, run: a.progress},
		"autosync":     {args: "on|off", minArgs: 1, maxArgs: 1, run: a.autoSync},
		"conflicts":    {args: "[all]", maxArgs: 1, run: a.conflicts},
		"resolve":      {args: "<conflict id> useLocal|useRemote|merge", minArgs: 2, maxArgs: 2, run: a.resolve},
		"daemon":       {args: "", maxArgs: 0, run: a.daemon},
		"folder add":   {args: "<name> [default]", minArgs: 1, maxArgs: 2, run: a.addFolder},
		"favorite add": {args: "<folder id|-> <word id> <word> <reading> <meaning> [note]", minArgs: 5, maxArgs: 6, run: a.addFavorite},
		"profile set":  {args: "<nickname> [email]", minArgs: 1, maxArgs: 2, run: a.setProfile},
		"delete":       {args: "<type> <id>", minArgs: 2, maxArgs: 2, run: a.deleteEntity},
		"list":         {args: "<type>", minArgs: 1, maxArgs: 1, run: a.list},
		"version":      {args: "", maxArgs: 0, run: a.version},
	}
}

func (a *App) usage() string {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s\n", name, a.commands[name].args)
	}
	return b.String()
}

// ── sync ──

func (a *App) runSync(ctx context.Context, _ []string) error {
	stop, err := a.startWorker(ctx)
	if err != nil {
		return err
	}
	defer stop()

	op, err := a.services.SyncService.StartSync(ctx)
	if err != nil {
		return humanize(err)
	}

	final, err := a.ui.WatchProgress(ctx, op)
	if errors.Is(err, tui.ErrDetached) {
		// the pipeline runs in this process, so it is awaited without a view
		final, err = a.services.SyncService.Await(ctx, op.ID)
	}
	if err != nil {
		return err
	}

	a.ui.Print(tui.RenderOperation(final, time.Now()))
	if final.Status == models.OperationFailed {
		return fmt.Errorf("%w: %s", ErrSyncFailed, valueOf(final.ErrorMessage))
	}
	return nil
}

// daemon runs the serial worker and the auto-sync job until ctx is done. A
// first sync is started right away when auto-sync is enabled.
func (a *App) daemon(ctx context.Context, _ []string) error {
	stop, err := a.startWorker(ctx, a.services.SyncJob)
	if err != nil {
		return err
	}
	defer stop()

	enabled, err := a.services.SyncService.AutoSyncEnabled(ctx)
	if err != nil {
		return err
	}
	if enabled {
		if op, err := a.services.SyncService.StartSync(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("initial sync not started")
		} else {
			a.logger.Info().Str("operation_id", op.ID).Msg("initial sync started")
		}
	}

	a.logger.Info().Msg("daemon running")
	<-ctx.Done()
	a.logger.Info().Msg("daemon stopping")

	return nil
}

func (a *App) status(ctx context.Context, _ []string) error {
	report, err := a.services.SyncService.GetStatus(ctx)
	if err != nil {
		return err
	}

	a.ui.Print(tui.RenderStatus(report, time.Now()))
	return nil
}

func (a *App) progress(ctx context.Context, args []string) error {
	op, err := a.services.SyncService.GetProgress(ctx, args[0])
	if err != nil {
		return err
	}

	a.ui.Print(tui.RenderOperation(op, time.Now()))
	return nil
}

func (a *App) autoSync(ctx context.Context, args []string) error {
	var enabled bool
	switch args[0] {
	case "on":
		enabled = true
	case "off":
	default:
		return fmt.Errorf("%w: autosync on|off", ErrUsage)
	}

	if err := a.services.SyncService.SetAutoSync(ctx, enabled); err != nil {
		return err
	}

	a.ui.Print(fmt.Sprintf("auto-sync %s\n", args[0]))
	return nil
}

// ── conflicts ──

func (a *App) conflicts(ctx context.Context, args []string) error {
	all := len(args) == 1 && args[0] == "all"
	if len(args) == 1 && !all {
		return fmt.Errorf("%w: conflicts [all]", ErrUsage)
	}

	conflicts, err := a.services.SyncService.ListConflicts(ctx, !all)
	if err != nil {
		return err
	}

	a.ui.Print(tui.RenderConflicts(conflicts))
	return nil
}

func (a *App) resolve(ctx context.Context, args []string) error {
	resolution, err := models.ParseConflictResolution(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	conflict, err := a.services.SyncService.ResolveConflict(ctx, args[0], resolution)
	if err != nil {
		return err
	}

	a.ui.Print(fmt.Sprintf("conflict %s resolved with %s; the change is uploaded on the next sync\n", conflict.ID, resolution))
	return nil
}

// ── local edits ──

func (a *App) addFolder(ctx context.Context, args []string) error {
	folder := &models.Folder{Name: args[0]}
	if len(args) == 2 {
		if args[1] != "default" {
			return fmt.Errorf("%w: folder add <name> [default]", ErrUsage)
		}
		folder.IsDefault = true
	}

	if err := a.services.LocalChanges.SaveFolder(ctx, folder); err != nil {
		return err
	}

	a.ui.Print(folder.ID + "\n")
	return nil
}

func (a *App) addFavorite(ctx context.Context, args []string) error {
	item := &models.FavoriteItem{
		WordID:  args[1],
		Word:    args[2],
		Reading: args[3],
		Meaning: args[4],
	}
	if args[0] != "-" {
		item.FolderID = args[0]
	}
	if len(args) == 6 {
		item.Note = &args[5]
	}

	if err := a.services.LocalChanges.SaveFavorite(ctx, item); err != nil {
		return err
	}

	a.ui.Print(item.ID + "\n")
	return nil
}

func (a *App) setProfile(ctx context.Context, args []string) error {
	profile, err := a.services.LocalChanges.Profile(ctx)
	if err != nil {
		return err
	}

	profile.Nickname = args[0]
	if len(args) == 2 {
		profile.Email = &args[1]
	}

	if err = a.services.LocalChanges.SaveProfile(ctx, profile); err != nil {
		return err
	}

	a.ui.Print(profile.ID + "\n")
	return nil
}

func (a *App) deleteEntity(ctx context.Context, args []string) error {
	t, err := models.ParseEntityType(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	return a.services.LocalChanges.MarkDeleted(ctx, t, args[1])
}

func (a *App) list(ctx context.Context, args []string) error {
	t, err := models.ParseEntityType(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	entities, err := a.services.LocalChanges.List(ctx, t)
	if err != nil {
		return err
	}

	a.ui.Print(tui.RenderEntities(t, entities))
	return nil
}

func (a *App) version(context.Context, []string) error {
	a.ui.Print(tui.RenderBuildInfo(a.buildInfo))
	return nil
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
