package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
)

type backendOpener struct {
	name string
	open func(ctx context.Context) (Adapter, error)
}

// Open connects to the configured backend, retrying with exponential backoff
// for up to cfg.ConnectTimeout. When the primary backend cannot be reached the
// alternate one is opened instead. Only when both fail is an error returned.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (Adapter, error) {
	backends := candidates(cfg)

	for i, b := range backends {
		log := logger.WithFields(logrus.Fields{
			"backend": b.name,
			"action":  "open_storage",
		})

		adapter, err := connectWithBackoff(ctx, b, cfg.ConnectTimeout)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize storage backend")
			continue
		}

		if i > 0 {
			log.Warn("Primary storage backend unavailable, using fallback")
		} else {
			log.Info("Storage backend initialized")
		}
		return adapter, nil
	}

	return nil, apperrors.ErrStorageUnavailable
}

func candidates(cfg config.DatabaseConfig) []backendOpener {
	postgres := backendOpener{
		name: config.BackendPostgres,
		open: func(ctx context.Context) (Adapter, error) {
			return OpenPostgres(ctx, cfg.ConnectionString)
		},
	}
	sqlite := backendOpener{
		name: config.BackendSQLite,
		open: func(ctx context.Context) (Adapter, error) {
			return OpenSQLite(ctx, cfg.SQLitePath)
		},
	}

	var out []backendOpener
	if cfg.Backend == config.BackendPostgres {
		out = append(out, postgres)
		if cfg.SQLitePath != "" {
			out = append(out, sqlite)
		}
		return out
	}

	out = append(out, sqlite)
	if cfg.ConnectionString != "" {
		out = append(out, postgres)
	}
	return out
}

func connectWithBackoff(ctx context.Context, b backendOpener, timeout time.Duration) (Adapter, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = timeout

	var policy backoff.BackOff = bo
	if timeout <= 0 {
		policy = &backoff.StopBackOff{}
	}

	var adapter Adapter
	err := backoff.Retry(func() error {
		a, err := b.open(ctx)
		if err != nil {
			return err
		}
		adapter = a
		return nil
	}, backoff.WithContext(policy, ctx))
	return adapter, err
}
