// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// Server defaults applied when a source leaves the value unset.
const (
	DefaultServerRequestTimeout = 15 * time.Second
	DefaultChangesPageSize      = 500
	DefaultTokenDuration        = 30 * 24 * time.Hour
)

// ServerConfig is the record server's view of [StructuredConfig].
type ServerConfig struct {
	App     App
	Server  Server
	Storage Storage
}

// GetServerConfig builds and validates the record server configuration.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := newServerConfig(cfg)
	return serverCfg, serverCfg.validate()
}

func newServerConfig(cfg *StructuredConfig) *ServerConfig {
	serverCfg := &ServerConfig{
		App:     cfg.App,
		Server:  cfg.Server,
		Storage: cfg.Storage,
	}

	if serverCfg.Server.RequestTimeout == 0 {
		serverCfg.Server.RequestTimeout = DefaultServerRequestTimeout
	}
	if serverCfg.Server.ChangesPageSize == 0 {
		serverCfg.Server.ChangesPageSize = DefaultChangesPageSize
	}
	if serverCfg.App.TokenDuration == 0 {
		serverCfg.App.TokenDuration = DefaultTokenDuration
	}

	return serverCfg
}
