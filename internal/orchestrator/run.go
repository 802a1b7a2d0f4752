package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// persistTimeout bounds the terminal write, which runs even after shutdown
// cancelled the run context.
const persistTimeout = 10 * time.Second

var errCancelled = errors.New("sync run cancelled")

// runHandle is the in-memory state of an active run.
type runHandle struct {
	mu        sync.RWMutex
	run       *models.SyncRun
	cancelled atomic.Bool
	done      chan struct{}
}

func newRunHandle(run *models.SyncRun) *runHandle {
	return &runHandle{
		run:  run,
		done: make(chan struct{}),
	}
}

// snapshot returns a copy safe to hand out.
func (h *runHandle) snapshot() *models.SyncRun {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cp := *h.run
	cp.Progress = h.run.Progress.Clone()
	if h.run.CompletedAt != nil {
		t := *h.run.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func (h *runHandle) updateProgress(fn func(p *models.SyncProgress)) {
	h.mu.Lock()
	fn(&h.run.Progress)
	h.mu.Unlock()
}

func (h *runHandle) recordError(msg string) {
	h.updateProgress(func(p *models.SyncProgress) {
		p.Errors = append(p.Errors, msg)
	})
}

// execute is the body of a run. It owns h until it calls finish.
func (o *Orchestrator) execute(ctx context.Context, h *runHandle, since *time.Time, filter map[string]bool) {
	runID := h.run.ID
	syncType := h.run.Type
	logger := o.logger.WithFields(logrus.Fields{
		"sync_id":   runID,
		"sync_type": syncType,
	})

	ctx, span := o.metrics.StartRun(ctx, runID, string(syncType))
	finish := func(status models.RunStatus, cause error) {
		o.finish(h, status, cause)
		o.metrics.FinishRun(ctx, span, string(syncType), string(status), cause)
	}

	projects, err := o.source.FetchProjects(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch projects")
		finish(models.RunStatusFailed, fmt.Errorf("failed to fetch projects: %w", err))
		return
	}

	if filter != nil {
		selected := projects[:0:0]
		for _, p := range projects {
			if filter[normalizeKey(p.Key)] {
				selected = append(selected, p)
			}
		}
		projects = selected
	}

	h.updateProgress(func(p *models.SyncProgress) {
		p.TotalProjects = len(projects)
	})
	o.checkpoint(h)

	for _, project := range projects {
		if h.cancelled.Load() {
			finish(models.RunStatusCancelled, nil)
			return
		}

		plog := logger.WithField("project", project.Key)
		h.updateProgress(func(p *models.SyncProgress) {
			p.CurrentProject = project.Key
		})

		var clientID *int64
		id, created, err := o.clients.UpsertForProject(ctx, project)
		if err != nil {
			plog.WithError(err).Warn("Failed to resolve client for project")
			h.recordError(fmt.Sprintf("%s: failed to resolve client: %v", project.Key, err))
		} else {
			clientID = &id
			h.updateProgress(func(p *models.SyncProgress) {
				if created {
					p.ClientsCreated++
				} else {
					p.ClientsUpdated++
				}
			})
		}

		err = o.source.FetchTickets(ctx, project.Key, since, func(page []*models.Ticket) error {
			if h.cancelled.Load() {
				return errCancelled
			}
			return o.persistPage(ctx, h, project.Key, clientID, page)
		})

		switch {
		case errors.Is(err, errCancelled):
			finish(models.RunStatusCancelled, nil)
			return
		case err != nil && ctx.Err() != nil:
			plog.WithError(err).Warn("Sync run interrupted by shutdown")
			finish(models.RunStatusCancelled, nil)
			return
		case err != nil:
			// A partially fetched project must not become the incremental watermark.
			plog.WithError(err).Error("Failed to fetch project tickets")
			finish(models.RunStatusFailed, fmt.Errorf("%s: %w", project.Key, err))
			return
		}

		h.updateProgress(func(p *models.SyncProgress) {
			p.ProcessedProjects++
		})
		o.checkpoint(h)
	}

	if h.cancelled.Load() {
		finish(models.RunStatusCancelled, nil)
		return
	}
	finish(models.RunStatusCompleted, nil)
}

// persistPage writes one page of tickets and publishes the new progress.
func (o *Orchestrator) persistPage(ctx context.Context, h *runHandle, project string, clientID *int64, page []*models.Ticket) error {
	if len(page) == 0 {
		return nil
	}
	for _, t := range page {
		if clientID != nil {
			t.ClientID = clientID
		}
	}

	start := time.Now()
	result, err := o.tickets.BatchUpsert(ctx, page)
	if err != nil {
		return err
	}
	o.metrics.RecordPage(ctx, project, result.Processed, len(result.Errors), time.Since(start))

	h.updateProgress(func(p *models.SyncProgress) {
		p.TotalTickets += result.Total
		p.ProcessedTickets += result.Processed
		p.FailedTickets += result.Failed
		for _, be := range result.Errors {
			p.Errors = append(p.Errors, fmt.Sprintf("%s: batch at offset %d (%s) failed: %s",
				project, be.Offset, strings.Join(be.Keys, ", "), be.Message))
		}
	})
	o.checkpoint(h)
	return nil
}

// checkpoint publishes a progress event and persists the snapshot.
func (o *Orchestrator) checkpoint(h *runHandle) {
	snap := h.snapshot()
	o.broker.Publish(models.SnapshotEvent(snap, o.now()))

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := o.runs.Update(ctx, snap); err != nil {
		o.logger.WithField("sync_id", snap.ID).WithError(err).Warn("Failed to persist sync progress")
	}
}

// finish moves the run to its terminal status, persists it, publishes the
// terminal event and releases the single-flight slot.
func (o *Orchestrator) finish(h *runHandle, status models.RunStatus, cause error) {
	now := o.now()
	h.mu.Lock()
	h.run.Status = status
	h.run.CompletedAt = &now
	h.run.Progress.CurrentProject = ""
	if cause != nil {
		h.run.Error = cause.Error()
	}
	h.mu.Unlock()
	snap := h.snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := o.runs.Update(ctx, snap); err != nil {
		o.logger.WithField("sync_id", snap.ID).WithError(err).Error("Failed to persist terminal sync status")
	}

	o.broker.Publish(models.SnapshotEvent(snap, now))
	o.release(snap.ID)
	close(h.done)

	o.logger.WithFields(logrus.Fields{
		"sync_id":           snap.ID,
		"status":            status,
		"processed_tickets": snap.Progress.ProcessedTickets,
		"failed_tickets":    snap.Progress.FailedTickets,
		"duration":          snap.Duration(now).String(),
	}).Info("Sync run finished")
}

func splitKeys(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
