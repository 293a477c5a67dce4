package service

import (
	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

type Services struct {
	AuthService    AuthService
	RecordService  RecordService
	AppInfoService AppInfoService
}

func NewServices(storages *store.ServerStorages, cfg *config.ServerConfig, build models.AppBuildInfo, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(cfg.App, build, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		AuthService: NewAuthService(cfg.App, logger),
		RecordService: NewRecordValidationService().Wrap(
			NewRecordService(storages.RecordRepository, utils.NewUUIDGenerator(), cfg.Server.ChangesPageSize, logger),
		),
		AppInfoService: appInfo,
	}, nil
}
