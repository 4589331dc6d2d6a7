package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/infrastructure/auth"
	"github.com/erp/labelstation/internal/infrastructure/config"
	"github.com/erp/labelstation/internal/infrastructure/event"
	"github.com/erp/labelstation/internal/infrastructure/inventory"
	"github.com/erp/labelstation/internal/infrastructure/logger"
	"github.com/erp/labelstation/internal/infrastructure/persistence"
	"github.com/erp/labelstation/internal/infrastructure/printing"
	"github.com/erp/labelstation/internal/infrastructure/telemetry"
	"github.com/erp/labelstation/internal/interfaces/http/handler"
	"github.com/erp/labelstation/internal/interfaces/http/middleware"
	"github.com/erp/labelstation/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Station:    cfg.Printer.Device,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers. Each one is a no-op when its signal is disabled.
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := baseLog
	if logProvider.IsEnabled() {
		log = telemetry.NewBridgedLogger(baseLog, telemetry.NewZapOTELCore(
			cfg.Telemetry.ServiceName, logProvider, logger.ParseLevel(cfg.Telemetry.LogsLevel)))
	}
	defer func() { _ = log.Sync() }()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.TracesEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	metrics, err := telemetry.NewLabelMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to create station metrics", zap.Error(err))
	}

	log.Info("Starting label station",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Reconciliation journal
	db, err := persistence.NewDatabase(&cfg.Journal, persistence.Options{
		Logger: log,
		Tracing: telemetry.DBTracingConfig{
			Enabled:          cfg.Telemetry.DBTraceEnabled,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		},
	})
	if err != nil {
		log.Fatal("Failed to open reconciliation journal", zap.Error(err))
	}
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate reconciliation journal", zap.Error(err))
	}
	log.Info("Reconciliation journal ready", zap.String("driver", db.Driver()))

	// Backend collaborators
	session := auth.NewSession()
	authClient := auth.NewClient(&auth.ClientConfig{
		BaseURL:    cfg.Backend.AuthURL,
		LoginPath:  cfg.Backend.LoginPath,
		LogoutPath: cfg.Backend.LogoutPath,
		Timeout:    cfg.Backend.Timeout,
		Logger:     log,
	}, session)
	inventoryClient := inventory.NewClient(&inventory.Config{
		BaseURL:            cfg.Backend.BaseURL,
		PurchaseOrdersPath: cfg.Backend.PurchaseOrdersPath,
		LineItemsPath:      cfg.Backend.LineItemsPath,
		WarehousesPath:     cfg.Backend.WarehousesPath,
		StocksPath:         cfg.Backend.StocksPath,
		Timeout:            cfg.Backend.Timeout,
		RetryCount:         cfg.Backend.RetryCount,
		Logger:             log,
	}, session)

	// Printer
	transport, err := printing.SelectTransport(printing.TransportConfig{
		Backend: cfg.Printer.Backend,
		CUPS: printing.CUPSConfig{
			LPPath:         cfg.Printer.LPPath,
			LPStatPath:     cfg.Printer.LPStatPath,
			CancelPath:     cfg.Printer.CancelPath,
			CommandTimeout: cfg.Printer.CommandTimeout,
		},
		Simulated: printing.SimulatedConfig{Delay: cfg.Printer.SimulatedDelay},
		Logger:    log,
	})
	if err != nil {
		log.Fatal("Failed to select printer transport", zap.Error(err))
	}
	monitor := printing.NewMonitor(transport, &printing.MonitorConfig{
		PollInterval:    cfg.Printer.PollInterval,
		MaxUnknownReads: cfg.Printer.MaxUnknownReads,
		SimulatedDelay:  cfg.Printer.SimulatedDelay,
		Logger:          log,
		Metrics:         metrics,
	})

	notices := app.NewNoticeBoard(cfg.Batch.NoticeLimit)
	renderer := printing.NewZPLRenderer()
	rasterizer := printing.NewRasterizer(&printing.RasterizerConfig{
		Endpoint:          cfg.Preview.Endpoint,
		DotsPerMM:         cfg.Preview.DotsPerMM,
		WidthMM:           cfg.Preview.WidthMM,
		HeightMM:          cfg.Preview.HeightMM,
		Timeout:           cfg.Preview.Timeout,
		RequestsPerSecond: cfg.Preview.RequestsPerSecond,
		Burst:             cfg.Preview.Burst,
		Logger:            log,
		Notifier:          notices,
		Metrics:           metrics,
	})

	// Application services
	journal := app.NewReconciliationService(
		persistence.NewGormReconciliationRepository(db.DB), inventoryClient, log)

	eventBus := event.NewInMemoryEventBus(log)
	unrecorded := app.NewUnrecordedLabelHandler(journal, notices, log)
	eventBus.Subscribe(unrecorded, unrecorded.EventTypes()...)
	batchMetrics := app.NewBatchMetricsHandler(metrics)
	eventBus.Subscribe(batchMetrics, batchMetrics.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	defaults := app.NewStationDefaults(cfg.Printer.Device, nil)
	orchestrator := app.NewOrchestrator(app.OrchestratorDeps{
		Transport: transport,
		Monitor:   monitor,
		Renderer:  renderer,
		Inventory: inventoryClient,
		Session:   session,
		Events:    eventBus,
		Defaults:  defaults,
		Notifier:  notices,
		Tags:      labeling.NewTagGenerator(nil),
		Metrics:   metrics,
		Logger:    log,
	})
	runner := app.NewRunner(orchestrator, &app.RunnerConfig{Logger: log})

	sessions := app.NewSessionService(authClient, log)
	receiving := app.NewReceivingService(inventoryClient, log)
	preview := app.NewPreviewService(renderer, rasterizer, defaults, log)
	batches := app.NewBatchService(inventoryClient, transport, runner, defaults, &app.BatchServiceConfig{
		MaxQuantity: cfg.Batch.MaxQuantity,
		Logger:      log,
	})

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSOrigins

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Meter:  meter,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.TracesEnabled,
		},
		CORS:           cors,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		LoginLimiter:   middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow),
		Session:        sessions,
	}, router.Handlers{
		Session:   handler.NewSessionHandler(sessions),
		Receiving: handler.NewReceivingHandler(receiving),
		Label:     handler.NewLabelHandler(preview, batches),
		Batch: handler.NewBatchHandler(batches,
			handler.WithSSEHeartbeat(cfg.HTTP.SSEHeartbeat),
			handler.WithBatchLogger(log)),
		Reconciliation: handler.NewReconciliationHandler(journal, notices),
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"journal": func(context.Context) error { return db.Ping() },
		}),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down label station...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn("Batch did not finish before shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing journal", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"meter":  meterProvider.Shutdown,
		"tracer": tracerProvider.Shutdown,
		"logs":   logProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Label station exited gracefully")
}
