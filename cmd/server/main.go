package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/handler"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/server"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	log := logger.NewLogger("favsync-server")
	cfg, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	// "token <userID>" issues a bearer token for a client and exits
	if args := flag.Args(); len(args) > 0 {
		if err = runCommand(cfg, args, log); err != nil {
			log.Fatal().Err(err).Msg("command failed")
		}
		return
	}

	printBuildInfo()
	log.Debug().Str("address", cfg.Server.HTTPAddress).Msg("received configs")

	utils.InitHasherPool(cfg.App.HashKey)

	storages, err := store.NewServerStorages(context.Background(), cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	services, err := service.NewServices(storages, cfg, buildInfo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	handlers, err := handler.NewHandlers(services, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func runCommand(cfg *config.ServerConfig, args []string, log *logger.Logger) error {
	if args[0] != "token" || len(args) != 2 {
		return fmt.Errorf("usage: server [flags] token <userID>")
	}

	userID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user id %q", args[1])
	}

	token, err := service.NewAuthService(cfg.App, log).CreateToken(context.Background(), userID)
	if err != nil {
		return err
	}

	fmt.Println(token.String())
	return nil
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
