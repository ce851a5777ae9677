package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/event"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/recordstore"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/scheduler"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/telemetry"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/handler"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/middleware"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.FromAppConfig(cfg.Log)
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry comes first so the OTLP log core can join the main logger
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log, err := logger.New(logCfg, providers.Logs.ZapCore(zapcore.InfoLevel))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	_ = bootLog.Sync()
	defer func() { _ = log.Sync() }()

	log.Info("Starting Meeza ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("store", cfg.Store.Driver),
	)

	var prom *telemetry.PrometheusRegistry
	if cfg.Telemetry.PrometheusEnabled {
		prom = telemetry.NewPrometheusRegistry("meeza")
	}

	// Record store, guarded by the circuit breaker
	factoryOpts := []recordstore.FactoryOption{recordstore.WithLogger(log)}
	if prom != nil {
		factoryOpts = append(factoryOpts, recordstore.WithBreaker(prom))
	} else {
		factoryOpts = append(factoryOpts, recordstore.WithBreaker(nil))
	}
	openCtx, cancelOpen := context.WithTimeout(ctx, cfg.Store.Timeout+10*time.Second)
	opened, err := recordstore.NewFactory(cfg, factoryOpts...).Open(openCtx)
	cancelOpen()
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err))
	}
	defer func() {
		if err := opened.Close(); err != nil {
			log.Error("Error closing record store", zap.Error(err))
		}
	}()

	// Event bus: every event is logged, and forwarded to Kafka when enabled
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewLogHandler(log))
	var forwarder *event.KafkaForwarder
	if cfg.Events.KafkaEnabled {
		forwarder = event.NewKafkaForwarder(event.NewKafkaWriter(cfg.Events), cfg.App.Name, log)
		bus.Subscribe(forwarder)
		log.Info("Forwarding ledger events to Kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	serviceOpts := []ledger.Option{ledger.WithEventPublisher(bus)}
	metrics, err := telemetry.NewLedgerMetrics(providers.Meter.Meter("meeza/ledger"), prom)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	serviceOpts = append(serviceOpts, ledger.WithMetrics(metrics))

	svc := ledger.NewService(opened.Store, log, serviceOpts...)
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Store.Timeout)
	loaded, err := svc.Load(loadCtx)
	cancelLoad()
	if err != nil {
		log.Fatal("Failed to load ledger collections", zap.Error(err))
	}
	log.Info("Ledger loaded",
		zap.Any("loaded", loaded.Loaded),
		zap.Any("dropped", loaded.Dropped),
		zap.Strings("corrupt", loaded.NotArrays),
		zap.Int("opening_entries", loaded.OpeningEntries),
	)

	// Scheduled audit
	var audits *scheduler.AuditScheduler
	if cfg.Audit.Enabled {
		auditOpts := []scheduler.AuditSchedulerOption{}
		if prom != nil {
			auditOpts = append(auditOpts, scheduler.WithFindingsGauge(prom))
		}
		if opened.Sink != nil {
			auditOpts = append(auditOpts, scheduler.WithAuditSink(opened.Sink))
		}
		audits = scheduler.NewAuditScheduler(cfg.Audit, svc, log, auditOpts...)
		if err := audits.Start(ctx); err != nil {
			log.Fatal("Failed to start audit scheduler", zap.Error(err))
		}
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, opened.Store, cfg.Store.Timeout)
	engine, stopEngine := router.NewEngine(router.EngineConfig{
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     providers.Tracer.IsEnabled(),
		Prometheus:  prom,
		Health:      systemHandler.Health,
		Logger:      log,
	})
	defer stopEngine()

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterLedger(r, router.Handlers{
		Items:     handler.NewItemHandler(svc),
		Sales:     handler.NewSaleHandler(svc),
		Purchases: handler.NewPurchaseHandler(svc),
		Suppliers: handler.NewSupplierHandler(svc),
		Admin:     handler.NewAdminHandler(svc, opened.Store),
		System:    systemHandler,
	})
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if audits != nil {
		if err := audits.Stop(shutdownCtx); err != nil {
			log.Warn("Audit scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			log.Warn("Failed to close Kafka writer", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
