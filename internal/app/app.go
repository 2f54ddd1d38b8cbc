package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"districtpulse/internal/analytics"
	"districtpulse/internal/config"
	"districtpulse/internal/infrastructure"
	"districtpulse/internal/ingest"
	"districtpulse/internal/quality"
	"districtpulse/internal/rules"
	"districtpulse/internal/services"
	"districtpulse/internal/store"
	transport "districtpulse/internal/transport/http"
	"districtpulse/internal/validation"
	ws "districtpulse/internal/websocket"
	"districtpulse/pkg/contracts"
)

// Application is the dependency container for the server binary.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Engine        *services.EngineService
	Hub           *ws.Hub
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication loads configuration and wires every component together.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", contracts.Version))

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	monitor, err := quality.NewMonitor(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create quality monitor: %w", err)
	}

	var source ingest.RowSource
	switch cfg.Snapshot.Format {
	case "xlsx":
		source = ingest.NewExcelSource(cfg.Snapshot.Dir, logger)
	default:
		source = ingest.NewCSVSource(cfg.Snapshot.Dir, logger)
	}

	hub := ws.NewHub(logger)

	engine := services.NewEngineService(
		store.New(logger),
		validation.NewRowValidator(logger),
		rules.NewEngine(rules.DefaultConfig()),
		analytics.NewEngine(cfg.Engine.Analytics, nil),
		monitor,
		source,
		hub,
		logger,
	)

	router := transport.NewRouter(engine, hub, providers.PrometheusHTTP, cfg.Server, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		Config:        cfg,
		Logger:        logger,
		Engine:        engine,
		Hub:           hub,
		Server:        server,
		OTelProviders: providers,
	}, nil
}

// Run starts the hub and HTTP server, performs the initial ingestion cycle
// and blocks until shutdown.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.Hub.Run(ctx)

	// Best-effort warm start; an empty or missing snapshot directory is not
	// fatal, the store just stays empty until the first POST /api/rebuild.
	if _, err := a.Engine.RebuildFromSource(ctx); err != nil {
		a.Logger.Warn("initial ingestion skipped",
			slog.String("error", err.Error()))
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	a.Hub.Stop()
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	infrastructure.CloseLogFile()

	// Give the batched trace exporter a moment to flush.
	time.Sleep(100 * time.Millisecond)
	return nil
}
