package persistence

import (
	"fmt"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// slowQueryThreshold marks record store queries worth a warning
const slowQueryThreshold = 200 * time.Millisecond

// Database holds the SQL connection behind the GORM record store
type Database struct {
	DB     *gorm.DB
	Driver string
}

// NewDatabase opens the SQL database selected by store.driver (postgres or
// sqlite), logs queries through zap and registers otelgorm when enabled.
func NewDatabase(cfg *config.Config, zapLogger *zap.Logger) (*Database, error) {
	var (
		dialector gorm.Dialector
		dbSystem  string
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		dialector, dbSystem = postgres.Open(cfg.Database.DSN()), "postgresql"
	case config.StoreSQLite:
		dialector, dbSystem = sqlite.Open(cfg.Store.SQLitePath), "sqlite"
	default:
		return nil, fmt.Errorf("store driver %q has no SQL database", cfg.Store.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.Log.Level), slowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem:         dbSystem,
		WithoutVariables: true,
	}, zapLogger); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Store.Driver == config.StorePostgres {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTime) * time.Minute)
	} else {
		// sqlite allows one writer
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, Driver: cfg.Store.Driver}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
