// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
package postgres

import (
	"fmt"

	"github.com/ringroad/nasch/internal/config"
	"github.com/ringroad/nasch/internal/database"
	gormstorage "github.com/ringroad/nasch/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	// DB is used as is when set; otherwise Init connects using Config.
	DB        *gorm.DB
	Config    config.DatabaseConfig
	BatchSize int
	Logger    zerolog.Logger
}

// Backend wraps the GORM backend and owns the Postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps   Dependencies
	ownsDB bool
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects (unless a DB was injected) and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		var err error
		db, err = database.OpenPostgres(b.deps.Config, b.deps.Logger)
		if err != nil {
			return err
		}
		b.ownsDB = true
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        db,
		BatchSize: b.deps.BatchSize,
		Logger:    b.deps.Logger,
	})
	return b.Backend.Init()
}

// Close writes queued frames and closes the connection it opened.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if !b.ownsDB {
		return nil
	}

	sqlDB, err := b.Backend.DB().DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
