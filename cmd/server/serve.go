package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/ticket-sync/internal/api"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the scheduled syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.WithField("backend", store.Backend()).Info("Migrations applied")
		return nil
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	registerSchedules(a)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(a.orchestrator, a.store.Tickets, a.cfg.Sync, logger)
	router := api.SetupRouter(handler, logger)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	// Streams end with this context so Shutdown does not wait on open SSE connections.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	server := &http.Server{
		Addr:        ":" + a.cfg.Port,
		Handler:     corsHandler,
		ReadTimeout: 15 * time.Second,
		// Progress streams stay open for minutes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return streamCtx },
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", a.cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Sync.ShutdownTimeout)
	defer cancel()

	if err := a.orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Sync runs did not stop in time")
	}
	cancelStreams()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
	return nil
}

// registerSchedules installs the recurring jobs configured by interval.
func registerSchedules(a *app) {
	jobs := map[models.SyncType]time.Duration{
		models.SyncTypeFull:        a.cfg.Sync.FullInterval,
		models.SyncTypeIncremental: a.cfg.Sync.IncrementalInterval,
	}
	for syncType, interval := range jobs {
		if interval <= 0 {
			continue
		}
		if err := a.orchestrator.Schedule(syncType, interval); err != nil {
			a.logger.WithFields(logrus.Fields{
				"sync_type": syncType,
				"interval":  interval.String(),
			}).WithError(err).Error("Failed to schedule sync")
		}
	}
}
