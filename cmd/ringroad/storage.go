package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/storage"
	"github.com/ringroad/nasch/internal/storage/csvfile"
	"github.com/ringroad/nasch/internal/storage/memory"
	pgstorage "github.com/ringroad/nasch/internal/storage/postgres"
	sqlitestorage "github.com/ringroad/nasch/internal/storage/sqlite"
	wsstorage "github.com/ringroad/nasch/internal/storage/websocket"
	"github.com/ringroad/nasch/pkg/core"
)

func initStorage(storageCfg config.StorageConfig) (storage.Backend, error) {
	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "", "csv":
		if storageCfg.CSV.OutputDir == "" {
			storageCfg.CSV.OutputDir = filepath.Join(executableDir(), csvfile.DefaultDir)
		}
		Logger.Info("CSV storage backend initialized", "dir", storageCfg.CSV.OutputDir)
		return csvfile.New(storageCfg.CSV), nil

	case "memory":
		Logger.Info("Memory storage backend initialized", "dir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, "", storageCfg.BatchSize, ZeroLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		if storageCfg.SQLite.DumpPath == "" {
			Logger.Warn("SQLite dump path not set, frames stay in memory only")
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			Config:    config.GetDatabaseConfig(),
			BatchSize: storageCfg.BatchSize,
			Logger:    ZeroLogger,
		}), nil

	case "websocket":
		Logger.Info("WebSocket storage backend initialized", "url", storageCfg.WebSocket.ServerURL)
		return wsstorage.New(storageCfg.WebSocket, Logger), nil

	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", core.ErrConfiguration, storageCfg.Type)
	}
}

// executableDir returns the directory of the running binary, or the working
// directory when it cannot be determined.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
