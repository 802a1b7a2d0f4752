package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	"github.com/Kamar-Folarin/ticket-sync/internal/db"
	"github.com/Kamar-Folarin/ticket-sync/internal/jira"
	"github.com/Kamar-Folarin/ticket-sync/internal/orchestrator"
	"github.com/Kamar-Folarin/ticket-sync/internal/telemetry"
)

const serviceName = "ticket-sync"

// app holds the components shared by the serve and sync commands.
type app struct {
	cfg               *config.Config
	logger            *logrus.Logger
	store             *db.Store
	orchestrator      *orchestrator.Orchestrator
	telemetryShutdown telemetry.Shutdown
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(cfg.LogFormat, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openStore opens the configured backend, falling back to the alternate one,
// and migrates it.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*db.Store, error) {
	adapter, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, adapter, logger); err != nil {
		adapter.Close()
		return nil, err
	}
	return db.NewStore(adapter, &cfg.Sync.Batch, logger), nil
}

// newApp wires storage, the Jira client and the orchestrator, and recovers
// runs left unfinished by a previous process.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client := jira.NewClient(cfg.Jira, logger)
	orch := orchestrator.New(orchestrator.Dependencies{
		Source:  client,
		Tickets: store.Tickets,
		Runs:    store.Runs,
		Clients: store.Clients,
		Storage: store,
		Metrics: telemetry.NewSyncMetrics(),
	}, cfg.Sync, logger)

	if _, err := orch.RecoverInterrupted(ctx); err != nil {
		logger.WithError(err).Warn("Failed to recover interrupted sync runs")
	}

	return &app{
		cfg:               cfg,
		logger:            logger,
		store:             store,
		orchestrator:      orch,
		telemetryShutdown: shutdownTelemetry,
	}, nil
}

// close stops active runs, then releases storage and flushes telemetry.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Sync.ShutdownTimeout)
	defer cancel()

	if err := a.orchestrator.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("Sync runs did not stop in time")
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close database")
	}
	if err := a.telemetryShutdown(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to flush telemetry")
	}
}
