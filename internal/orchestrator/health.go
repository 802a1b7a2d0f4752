package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// Health probes the remote source and the storage backend concurrently.
// Storage failures make the report unhealthy; remote failures only degrade it.
func (o *Orchestrator) Health(ctx context.Context) *models.HealthReport {
	timeout := o.config.HealthTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := &models.HealthReport{
		CheckedAt: o.now(),
		Schedules: o.scheduleNames(),
	}
	report.ActiveRuns = len(o.ActiveRuns())

	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		err := o.source.Ping(ctx)
		report.Remote = componentHealth(start, err)
		return nil
	})
	g.Go(func() error {
		report.Storage = o.storageHealth(ctx)
		return nil
	})
	_ = g.Wait()

	switch {
	case !report.Storage.Healthy:
		report.Status = models.HealthUnhealthy
	case !report.Remote.Healthy:
		report.Status = models.HealthDegraded
	default:
		report.Status = models.HealthHealthy
	}

	if report.Storage.Healthy {
		if last, err := o.runs.LastSuccessful(ctx); err == nil && last != nil && last.CompletedAt != nil {
			report.LastSuccessfulRun = last.CompletedAt
			secs := report.CheckedAt.Sub(*last.CompletedAt).Seconds()
			report.SecondsSinceLastSuccess = &secs
		}
	}

	return report
}

func (o *Orchestrator) storageHealth(ctx context.Context) models.StorageHealth {
	start := time.Now()
	health := models.StorageHealth{Backend: o.storage.Backend()}

	if err := o.storage.Ping(ctx); err != nil {
		health.ComponentHealth = componentHealth(start, err)
		return health
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := o.tickets.CountTickets(gctx)
		health.Tickets = n
		return err
	})
	g.Go(func() error {
		n, err := o.runs.Count(gctx)
		health.Runs = n
		return err
	})
	health.ComponentHealth = componentHealth(start, g.Wait())
	return health
}

func componentHealth(start time.Time, err error) models.ComponentHealth {
	h := models.ComponentHealth{
		Healthy:   err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		h.Error = err.Error()
	}
	return h
}
