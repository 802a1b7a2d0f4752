package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/events"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
	"github.com/Kamar-Folarin/ticket-sync/internal/telemetry"
)

// interruptedMessage is recorded on runs a previous process left unfinished.
const interruptedMessage = "interrupted: the service stopped before the run finished"

// Dependencies are the collaborators of an Orchestrator. Metrics is optional.
type Dependencies struct {
	Source  TicketSource
	Tickets TicketRepository
	Runs    RunRepository
	Clients ClientRepository
	Storage StorageProbe
	Broker  *events.Broker
	Metrics *telemetry.SyncMetrics
}

// Orchestrator owns the lifecycle of sync runs. At most one run is active at
// any time.
type Orchestrator struct {
	source  TicketSource
	tickets TicketRepository
	runs    RunRepository
	clients ClientRepository
	storage StorageProbe
	broker  *events.Broker
	metrics *telemetry.SyncMetrics
	config  *config.SyncConfig
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.RWMutex
	active   map[string]*runHandle
	shutdown bool

	schedMu   sync.RWMutex
	schedules map[models.SyncType]*scheduledJob

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

var _ Service = (*Orchestrator)(nil)

// New creates a new orchestrator
func New(deps Dependencies, cfg *config.SyncConfig, logger *logrus.Logger) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	if deps.Broker == nil {
		deps.Broker = events.NewBroker()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NewSyncMetrics()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		source:     deps.Source,
		tickets:    deps.Tickets,
		runs:       deps.Runs,
		clients:    deps.Clients,
		storage:    deps.Storage,
		broker:     deps.Broker,
		metrics:    deps.Metrics,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
		active:     make(map[string]*runHandle),
		schedules:  make(map[models.SyncType]*scheduledJob),
		baseCtx:    baseCtx,
		baseCancel: cancel,
	}
}

// StartFullSync starts a run that fetches every ticket
func (o *Orchestrator) StartFullSync(ctx context.Context, options map[string]interface{}) (*models.SyncRun, error) {
	return o.StartSync(ctx, models.SyncTypeFull, options)
}

// StartIncrementalSync starts a run that fetches tickets updated since the
// last successful run, or every ticket when there is none
func (o *Orchestrator) StartIncrementalSync(ctx context.Context, options map[string]interface{}) (*models.SyncRun, error) {
	return o.StartSync(ctx, models.SyncTypeIncremental, options)
}

// StartSync reserves the sync slot, persists the run and launches it in the
// background. The returned run is a snapshot taken at launch.
func (o *Orchestrator) StartSync(ctx context.Context, syncType models.SyncType, options map[string]interface{}) (*models.SyncRun, error) {
	if !syncType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown sync type %q", syncType), nil)
	}

	logger := o.logger.WithFields(logrus.Fields{
		"sync_type": syncType,
		"action":    "start_sync",
	})

	run := &models.SyncRun{
		ID:        uuid.NewString(),
		Type:      syncType,
		Status:    models.RunStatusPending,
		Options:   options,
		StartedAt: o.now(),
		Progress:  models.SyncProgress{Errors: []string{}},
	}
	h := newRunHandle(run)

	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrUnavailable, "sync engine is shutting down", nil)
	}
	for id := range o.active {
		o.mu.Unlock()
		logger.WithField("sync_id", id).Warn("Sync already in progress")
		return nil, apperrors.NewSyncInProgressError(id)
	}
	o.active[run.ID] = h
	o.mu.Unlock()

	logger = logger.WithField("sync_id", run.ID)

	since, err := o.resolveSince(ctx, syncType)
	if err != nil {
		o.release(run.ID)
		logger.WithError(err).Error("Failed to resolve incremental window")
		return nil, err
	}

	if err := o.runs.Create(ctx, run); err != nil {
		o.release(run.ID)
		logger.WithError(err).Error("Failed to persist sync run")
		return nil, fmt.Errorf("failed to create sync run: %w", err)
	}

	h.mu.Lock()
	h.run.Status = models.RunStatusRunning
	h.mu.Unlock()
	snapshot := h.snapshot()
	if err := o.runs.Update(ctx, snapshot); err != nil {
		logger.WithError(err).Warn("Failed to persist running status")
	}

	logger.WithField("since", since).Info("Starting sync run")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(o.baseCtx, h, since, projectFilter(options))
	}()

	return snapshot, nil
}

// resolveSince returns the lower bound of an incremental run: the completion
// time of the last successful run, or nil for a full fetch.
func (o *Orchestrator) resolveSince(ctx context.Context, syncType models.SyncType) (*time.Time, error) {
	if syncType != models.SyncTypeIncremental {
		return nil, nil
	}
	last, err := o.runs.LastSuccessful(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last successful sync run: %w", err)
	}
	if last == nil || last.CompletedAt == nil {
		o.logger.Info("No successful sync run yet, incremental sync fetches everything")
		return nil, nil
	}
	since := *last.CompletedAt
	return &since, nil
}

func (o *Orchestrator) release(runID string) {
	o.mu.Lock()
	delete(o.active, runID)
	o.mu.Unlock()
}

// CancelSync flags an active run for cancellation. The run stops at the next
// project or page boundary.
func (o *Orchestrator) CancelSync(ctx context.Context, runID string) error {
	o.mu.RLock()
	h, ok := o.active[runID]
	o.mu.RUnlock()
	if !ok {
		return apperrors.NewResourceNotFoundError("active sync run", runID)
	}

	// finish persists the terminal status before it releases the handle.
	h.mu.RLock()
	status := h.run.Status
	h.mu.RUnlock()
	if status.Terminal() {
		return apperrors.NewResourceNotFoundError("active sync run", runID)
	}

	h.cancelled.Store(true)
	o.logger.WithFields(logrus.Fields{
		"sync_id": runID,
		"action":  "cancel_sync",
	}).Info("Cancellation requested")
	return nil
}

// GetRun returns the live snapshot of an active run, or the persisted run
func (o *Orchestrator) GetRun(ctx context.Context, runID string) (*models.SyncRun, error) {
	o.mu.RLock()
	h, ok := o.active[runID]
	o.mu.RUnlock()
	if ok {
		return h.snapshot(), nil
	}
	return o.runs.Get(ctx, runID)
}

func (o *Orchestrator) ActiveRuns() []*models.SyncRun {
	o.mu.RLock()
	defer o.mu.RUnlock()

	runs := make([]*models.SyncRun, 0, len(o.active))
	for _, h := range o.active {
		runs = append(runs, h.snapshot())
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs
}

func (o *Orchestrator) RecentRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = o.config.HistoryLimit
	}
	return o.runs.ListRecent(ctx, limit)
}

// Statistics aggregates the runs started within window
func (o *Orchestrator) Statistics(ctx context.Context, window time.Duration) (*models.RunStatistics, error) {
	runs, err := o.runs.ListSince(ctx, o.now().Add(-window))
	if err != nil {
		return nil, err
	}

	stats := &models.RunStatistics{
		WindowDays: int(window / (24 * time.Hour)),
		TotalRuns:  len(runs),
	}

	var totalDuration time.Duration
	finished := 0
	for _, run := range runs {
		switch run.Status {
		case models.RunStatusCompleted:
			stats.Completed++
		case models.RunStatusFailed:
			stats.Failed++
		case models.RunStatusCancelled:
			stats.Cancelled++
		default:
			stats.Running++
		}
		if run.CompletedAt != nil {
			totalDuration += run.Duration(o.now())
			finished++
		}
		stats.TicketsProcessed += run.Progress.ProcessedTickets
	}
	if finished > 0 {
		stats.AverageDurationSeconds = totalDuration.Seconds() / float64(finished)
	}

	last, err := o.runs.LastSuccessful(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		stats.LastSuccessfulAt = last.CompletedAt
	}
	return stats, nil
}

// Subscribe registers for the progress events of runID. The subscription
// ends with ctx.
func (o *Orchestrator) Subscribe(ctx context.Context, runID string) *events.Subscription {
	return o.broker.Subscribe(ctx, runID)
}

// RecoverInterrupted fails persisted runs that a previous process left
// pending or running. Call it before the first run starts.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := o.runs.MarkInterrupted(ctx, o.now(), interruptedMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.logger.WithField("runs", n).Warn("Marked interrupted sync runs as failed")
	}
	return n, nil
}

// Shutdown stops the schedules, cancels active runs and waits for them to
// finish or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.StopAllSchedules()

	o.mu.Lock()
	o.shutdown = true
	for _, h := range o.active {
		h.cancelled.Store(true)
	}
	o.mu.Unlock()
	o.baseCancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for sync runs to stop: %w", ctx.Err())
	}
}

// projectFilter reads the optional "projects" option: a list of keys or a
// comma separated string.
func projectFilter(options map[string]interface{}) map[string]bool {
	raw, ok := options["projects"]
	if !ok {
		return nil
	}

	var keys []string
	switch v := raw.(type) {
	case string:
		keys = splitKeys(v)
	case []string:
		keys = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
	}

	if len(keys) == 0 {
		return nil
	}
	filter := make(map[string]bool, len(keys))
	for _, k := range keys {
		filter[normalizeKey(k)] = true
	}
	return filter
}
