// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// Client defaults applied when a source leaves the value unset.
const (
	DefaultClientRequestTimeout = 30 * time.Second
	DefaultSyncInterval         = time.Hour
	DefaultWorkerQueueSize      = 4
	DefaultAdapterRetryCount    = 2
)

// MemoryAddress selects the in-process implementation: the loopback remote
// when used as the adapter address, the map store when used as the DSN.
const MemoryAddress = "memory"

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// HashKey is the HMAC key used by the client for payload integrity checks.
	HashKey string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the record server address, or [MemoryAddress].
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
	// Token is the bearer token sent with every record request.
	Token string
	// RetryCount is the retry budget for idempotent requests.
	RetryCount int
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite file path, or ":memory:" for a throwaway store.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the auto-sync job fires.
	SyncInterval time.Duration
	// QueueSize bounds the serial sync worker queue.
	QueueSize int
}

// ClientSync contains sync engine policy.
type ClientSync struct {
	// StrictConflicts blocks StartSync while conflicts are unresolved.
	StrictConflicts bool
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
	// Sync contains sync engine policy.
	Sync ClientSync
	// LogFile is the client log file path.
	LogFile string
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, fills defaults and validates the resulting
// [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			HashKey: cfg.App.HashKey,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			Token:          cfg.Adapter.Token,
			RetryCount:     cfg.Adapter.RetryCount,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Workers: ClientWorkers{
			SyncInterval: cfg.Workers.SyncInterval,
			QueueSize:    cfg.Workers.QueueSize,
		},
		Sync:    ClientSync{StrictConflicts: cfg.Sync.StrictConflicts},
		LogFile: cfg.Log.FilePath,
	}

	if clientCfg.Adapter.RequestTimeout == 0 {
		clientCfg.Adapter.RequestTimeout = DefaultClientRequestTimeout
	}
	if clientCfg.Adapter.RetryCount == 0 {
		clientCfg.Adapter.RetryCount = DefaultAdapterRetryCount
	}
	if clientCfg.Workers.SyncInterval == 0 {
		clientCfg.Workers.SyncInterval = DefaultSyncInterval
	}
	if clientCfg.Workers.QueueSize == 0 {
		clientCfg.Workers.QueueSize = DefaultWorkerQueueSize
	}

	return clientCfg
}
