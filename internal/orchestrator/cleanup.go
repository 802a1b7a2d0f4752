package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

const day = 24 * time.Hour

// Cleanup removes terminal runs older than SyncHistoryDays and tickets not
// synced for TicketDays. In dry-run mode it only counts them. Non-positive
// retention values fall back to the configured defaults.
func (o *Orchestrator) Cleanup(ctx context.Context, opts models.CleanupOptions) (*models.CleanupResult, error) {
	if opts.SyncHistoryDays <= 0 {
		opts.SyncHistoryDays = o.config.Retention.SyncHistoryDays
	}
	if opts.TicketDays <= 0 {
		opts.TicketDays = o.config.Retention.TicketDays
	}

	now := o.now()
	result := &models.CleanupResult{
		DryRun:        opts.DryRun,
		SyncRunCutoff: now.Add(-time.Duration(opts.SyncHistoryDays) * day),
		TicketCutoff:  now.Add(-time.Duration(opts.TicketDays) * day),
	}

	var err error
	if opts.DryRun {
		if result.SyncRunsDeleted, err = o.runs.CountBefore(ctx, result.SyncRunCutoff); err != nil {
			return nil, fmt.Errorf("failed to count old sync runs: %w", err)
		}
		if result.TicketsDeleted, err = o.tickets.CountStale(ctx, result.TicketCutoff); err != nil {
			return nil, fmt.Errorf("failed to count stale tickets: %w", err)
		}
	} else {
		if result.SyncRunsDeleted, err = o.runs.DeleteBefore(ctx, result.SyncRunCutoff); err != nil {
			return nil, fmt.Errorf("failed to delete old sync runs: %w", err)
		}
		if result.TicketsDeleted, err = o.tickets.DeleteStale(ctx, result.TicketCutoff); err != nil {
			return nil, fmt.Errorf("failed to delete stale tickets: %w", err)
		}
	}

	o.logger.WithFields(logrus.Fields{
		"action":            "cleanup",
		"dry_run":           opts.DryRun,
		"sync_runs_deleted": result.SyncRunsDeleted,
		"tickets_deleted":   result.TicketsDeleted,
	}).Info("Cleanup finished")

	return result, nil
}
