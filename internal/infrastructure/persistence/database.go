// Package persistence stores the reconciliation journal of printed but
// unrecorded labels.
package persistence

import (
	"fmt"
	"time"

	"github.com/erp/labelstation/internal/infrastructure/config"
	"github.com/erp/labelstation/internal/infrastructure/logger"
	"github.com/erp/labelstation/internal/infrastructure/persistence/models"
	"github.com/erp/labelstation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database holds the journal connection
type Database struct {
	DB     *gorm.DB
	driver string
}

// Options tune how the journal database is opened
type Options struct {
	Logger  *zap.Logger
	Tracing telemetry.DBTracingConfig
}

// NewDatabase opens the journal with the driver named in cfg
func NewDatabase(cfg *config.JournalConfig, opts Options) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", cfg.Driver)
	}
	return newDatabase(dialector, cfg, opts)
}

func newDatabase(dialector gorm.Dialector, cfg *config.JournalConfig, opts Options) (*Database, error) {
	zl := opts.Logger
	if zl == nil {
		zl = zap.NewNop()
	}
	gormLogger := logger.NewGormLogger(zl, logger.MapGormLogLevel(cfg.LogLevel),
		logger.WithSlowThreshold(cfg.SlowThreshold))

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	driver := dialector.Name()
	if driver == "sqlite" {
		// one connection keeps in-memory databases shared and avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	tracing := opts.Tracing
	if tracing.DBSystem == "" {
		tracing.DBSystem = dbSystem(driver)
	}
	if err := telemetry.RegisterDBTracing(db, tracing, zl); err != nil {
		return nil, fmt.Errorf("failed to register journal tracing: %w", err)
	}

	zl.Info("journal database opened", zap.String("driver", driver))
	return &Database{DB: db, driver: driver}, nil
}

func dbSystem(driver string) string {
	if driver == "postgres" {
		return "postgresql"
	}
	return driver
}

// Migrate creates or updates the journal tables
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(&models.ReconciliationEntryModel{}); err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}
	return nil
}

// Driver returns the dialect name
func (d *Database) Driver() string {
	return d.driver
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
