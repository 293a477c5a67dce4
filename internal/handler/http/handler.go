package http

import (
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
)

type Handler struct {
	services *service.Services

	// hashKey enables the HashSHA256 body check on pushes when non-empty.
	hashKey string

	logger *logger.Logger
}

func NewHandler(services *service.Services, hashKey string, logger *logger.Logger) *Handler {
	logger.Info().Bool("integrity_check", hashKey != "").Msg("http handler created")
	return &Handler{
		services: services,
		hashKey:  hashKey,
		logger:   logger,
	}
}
