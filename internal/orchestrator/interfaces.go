package orchestrator

import (
	"context"
	"time"

	"github.com/Kamar-Folarin/ticket-sync/internal/events"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// TicketSource is the remote project tracker
type TicketSource interface {
	// FetchProjects lists the projects to synchronize
	FetchProjects(ctx context.Context) ([]models.Project, error)

	// FetchTickets pages through a project's tickets updated at or after since
	// (all tickets when since is nil) and hands each page to handle
	FetchTickets(ctx context.Context, projectKey string, since *time.Time, handle func([]*models.Ticket) error) error

	// Ping checks that the source is reachable with the configured credentials
	Ping(ctx context.Context) error
}

// TicketRepository persists tickets
type TicketRepository interface {
	BatchUpsert(ctx context.Context, tickets []*models.Ticket) (*models.BatchResult, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
	CountStale(ctx context.Context, before time.Time) (int64, error)
	CountTickets(ctx context.Context) (int64, error)
}

// RunRepository persists sync run history
type RunRepository interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Update(ctx context.Context, run *models.SyncRun) error
	Get(ctx context.Context, id string) (*models.SyncRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.SyncRun, error)
	LastSuccessful(ctx context.Context) (*models.SyncRun, error)
	CountBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	MarkInterrupted(ctx context.Context, at time.Time, message string) (int64, error)
}

// ClientRepository resolves remote projects to owning clients
type ClientRepository interface {
	UpsertForProject(ctx context.Context, project models.Project) (id int64, created bool, err error)
}

// StorageProbe reports storage reachability for health checks
type StorageProbe interface {
	Ping(ctx context.Context) error
	Backend() string
}

// Service is the sync engine as seen by the control surface
type Service interface {
	// StartSync reserves the single sync slot and launches a run in the background
	StartSync(ctx context.Context, syncType models.SyncType, options map[string]interface{}) (*models.SyncRun, error)

	// CancelSync requests cancellation of an active run
	CancelSync(ctx context.Context, runID string) error

	// GetRun returns a run from the active registry or the history
	GetRun(ctx context.Context, runID string) (*models.SyncRun, error)

	// ActiveRuns returns snapshots of the runs in flight
	ActiveRuns() []*models.SyncRun

	// RecentRuns returns the newest persisted runs
	RecentRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)

	// Statistics aggregates the run history over the window
	Statistics(ctx context.Context, window time.Duration) (*models.RunStatistics, error)

	// Subscribe returns a subscription to the progress events of a run
	Subscribe(ctx context.Context, runID string) *events.Subscription

	// Schedule registers a recurring job, replacing any job of the same type
	Schedule(syncType models.SyncType, interval time.Duration) error

	// Unschedule removes a recurring job and reports whether one existed
	Unschedule(syncType models.SyncType) bool

	// Schedules lists the registered recurring jobs
	Schedules() []models.ScheduleInfo

	// Health probes the remote source and the storage backend
	Health(ctx context.Context) *models.HealthReport

	// Cleanup deletes, or counts in dry-run mode, old runs and stale tickets
	Cleanup(ctx context.Context, opts models.CleanupOptions) (*models.CleanupResult, error)
}
