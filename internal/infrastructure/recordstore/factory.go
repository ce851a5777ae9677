// Package recordstore opens the ledger record store selected by store.driver.
package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/cache"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/docstore"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/persistence"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/resilience"
	"go.uber.org/zap"
)

// Store is a record store that also reports collection versions
type Store interface {
	ledger.RecordStore
	ledger.Versioner
}

// AuditSink keeps audit reports; only the SQL drivers provide one
type AuditSink interface {
	SaveAudit(ctx context.Context, report *ledger.AuditReport) error
}

// Opened is the result of Open. Close releases every connection it holds.
type Opened struct {
	Store  Store
	Sink   AuditSink
	Driver string
	closer []func() error
}

// Close releases the connections behind the store
func (o *Opened) Close() error {
	var errs []error
	for i := len(o.closer) - 1; i >= 0; i-- {
		errs = append(errs, o.closer[i]())
	}
	return errors.Join(errs...)
}

// Factory builds record stores from configuration
type Factory struct {
	cfg      *config.Config
	logger   *zap.Logger
	reporter resilience.StateReporter
	breaker  bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithBreaker wraps remote stores in a circuit breaker reporting to reporter.
// reporter may be nil.
func WithBreaker(reporter resilience.StateReporter) FactoryOption {
	return func(f *Factory) {
		f.breaker = true
		f.reporter = reporter
	}
}

// NewFactory creates a factory for cfg
func NewFactory(cfg *config.Config, opts ...FactoryOption) *Factory {
	f := &Factory{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open connects to the configured driver. The memory driver never fails and
// is never wrapped in a breaker.
func (f *Factory) Open(ctx context.Context) (*Opened, error) {
	driver := f.cfg.Store.Driver
	opened := &Opened{Driver: driver}

	var store Store
	switch driver {
	case config.StoreMemory, "":
		opened.Driver = config.StoreMemory
		opened.Store = persistence.NewMemoryRecordStore()
		f.logger.Warn("Using the memory record store; data is lost on exit")
		return opened, nil

	case config.StorePostgres, config.StoreSQLite:
		db, err := persistence.NewDatabase(f.cfg, f.logger)
		if err != nil {
			return nil, err
		}
		opened.closer = append(opened.closer, db.Close)

		records := persistence.NewGormRecordStore(db.DB)
		audits := persistence.NewGormAuditStore(db.DB)
		// postgres tables come from cmd/migrate
		if driver == config.StoreSQLite {
			if err := records.AutoMigrate(ctx); err != nil {
				_ = opened.Close()
				return nil, fmt.Errorf("migrate record store: %w", err)
			}
			if err := audits.AutoMigrate(ctx); err != nil {
				_ = opened.Close()
				return nil, fmt.Errorf("migrate audit store: %w", err)
			}
		}
		store = records
		opened.Sink = audits

	case config.StoreRedis:
		rs, err := cache.NewRedisRecordStore(ctx, f.cfg.Redis, f.cfg.Store.KeyPrefix)
		if err != nil {
			return nil, err
		}
		opened.closer = append(opened.closer, rs.Close)
		store = rs

	case config.StoreMongo:
		client, err := docstore.Connect(ctx, f.cfg.Mongo)
		if err != nil {
			return nil, err
		}
		opened.closer = append(opened.closer, func() error {
			return client.Disconnect(context.Background())
		})
		store = docstore.NewMongoRecordStore(client.Database(f.cfg.Mongo.Database))

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	if f.breaker {
		store = resilience.NewBreakerRecordStore(store, "record_store_"+driver, f.cfg.Breaker, f.reporter, f.logger)
	}
	opened.Store = store

	f.logger.Info("Record store opened", zap.String("driver", driver))
	return opened, nil
}
