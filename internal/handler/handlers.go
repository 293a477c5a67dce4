package handler

import (
	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/handler/http"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, cfg *config.ServerConfig, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	if cfg.Server.HTTPAddress == "" {
		return nil, errNoHandlersAreCreated
	}

	return &Handlers{
		HTTP: http.NewHandler(services, cfg.App.HashKey, logger),
	}, nil
}
