package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/client"
	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/tui"
	"github.com/MKhiriev/go-favsync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, client.ErrUsage) || errors.Is(err, client.ErrUnknownCommand) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetClientConfig()
	if err != nil {
		return fmt.Errorf("error getting configs: %w", err)
	}

	log := logger.NewClientLogger("favsync-client", cfg.LogFile)
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	log.Info().
		Str("version", buildInfo.BuildVersion()).
		Str("date", buildInfo.BuildDate()).
		Str("commit", buildInfo.BuildCommit()).
		Msg("favsync client starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	remote, err := adapter.NewRemoteClient(cfg.Adapter, cfg.App, log)
	if err != nil {
		return fmt.Errorf("create remote client: %w", err)
	}

	localStorage, err := store.NewClientStorages(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("create local storage: %w", err)
	}
	defer localStorage.Close()

	services := service.NewClientServices(localStorage, remote, cfg, log)

	ui, err := tui.New(services, os.Stdin, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("error creating ui: %w", err)
	}

	app, err := client.NewApp(services, ui, buildInfo, log)
	if err != nil {
		return fmt.Errorf("init client app error: %w", err)
	}

	return app.Run(ctx, flag.Args())
}
