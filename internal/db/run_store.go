package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

const runColumns = "id, sync_type, status, progress, options, started_at, completed_at, error_message"

const terminalStatuses = "('completed', 'failed', 'cancelled')"

// RunStore persists sync run history. Rows in a terminal status are never updated.
type RunStore struct {
	db Adapter
}

func NewRunStore(adapter Adapter) *RunStore {
	return &RunStore{db: adapter}
}

func encodeRun(run *models.SyncRun) (progress, options string, err error) {
	p := run.Progress
	if p.Errors == nil {
		p.Errors = []string{}
	}
	progressJSON, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal progress: %w", err)
	}

	opts := run.Options
	if opts == nil {
		opts = map[string]interface{}{}
	}
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(progressJSON), string(optionsJSON), nil
}

// Create inserts a new run
func (s *RunStore) Create(ctx context.Context, run *models.SyncRun) error {
	progress, options, err := encodeRun(run)
	if err != nil {
		return err
	}

	_, err = s.db.Execute(ctx, `INSERT INTO sync_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Type, run.Status, progress, options, run.StartedAt, run.CompletedAt, run.Error)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}
	return nil
}

// Update writes status, progress, completion time and error of an active run.
func (s *RunStore) Update(ctx context.Context, run *models.SyncRun) error {
	progress, _, err := encodeRun(run)
	if err != nil {
		return err
	}

	n, err := s.db.Execute(ctx, `UPDATE sync_runs
		SET status = ?, progress = ?, completed_at = ?, error_message = ?
		WHERE id = ? AND status NOT IN `+terminalStatuses,
		run.Status, progress, run.CompletedAt, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	if n == 0 {
		return apperrors.New(apperrors.ErrConflict, fmt.Sprintf("sync run %s is not active", run.ID), nil)
	}
	return nil
}

// Get returns a run by id
func (s *RunStore) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	row, err := s.db.QueryOne(ctx, "SELECT "+runColumns+" FROM sync_runs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}
	if row == nil {
		return nil, apperrors.NewResourceNotFoundError("sync run", id)
	}
	return runFromRow(row)
}

// ListRecent returns the newest runs first
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	rows, err := s.db.QueryAll(ctx, "SELECT "+runColumns+" FROM sync_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runsFromRows(rows)
}

// ListSince returns runs started at or after since
func (s *RunStore) ListSince(ctx context.Context, since time.Time) ([]*models.SyncRun, error) {
	rows, err := s.db.QueryAll(ctx, "SELECT "+runColumns+" FROM sync_runs WHERE started_at >= ? ORDER BY started_at DESC", since)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runsFromRows(rows)
}

// LastSuccessful returns the most recently completed run, or nil if none exists.
func (s *RunStore) LastSuccessful(ctx context.Context) (*models.SyncRun, error) {
	row, err := s.db.QueryOne(ctx, "SELECT "+runColumns+` FROM sync_runs
		WHERE status = ? AND completed_at IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1`, models.RunStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to get last successful sync run: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return runFromRow(row)
}

// CountBefore counts terminal runs started before the cutoff
func (s *RunStore) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	row, err := s.db.QueryOne(ctx, `SELECT COUNT(*) AS n FROM sync_runs
		WHERE started_at < ? AND status IN `+terminalStatuses, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync runs: %w", err)
	}
	return row.Int64("n"), nil
}

// DeleteBefore removes terminal runs started before the cutoff
func (s *RunStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.db.Execute(ctx, `DELETE FROM sync_runs
		WHERE started_at < ? AND status IN `+terminalStatuses, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sync runs: %w", err)
	}
	return n, nil
}

func (s *RunStore) Count(ctx context.Context) (int64, error) {
	row, err := s.db.QueryOne(ctx, "SELECT COUNT(*) AS n FROM sync_runs")
	if err != nil {
		return 0, fmt.Errorf("failed to count sync runs: %w", err)
	}
	return row.Int64("n"), nil
}

// MarkInterrupted fails every run left pending or running by a previous process.
func (s *RunStore) MarkInterrupted(ctx context.Context, at time.Time, message string) (int64, error) {
	n, err := s.db.Execute(ctx, `UPDATE sync_runs SET status = ?, completed_at = ?, error_message = ?
		WHERE status IN (?, ?)`,
		models.RunStatusFailed, at, message, models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted sync runs: %w", err)
	}
	return n, nil
}

func runsFromRows(rows []Row) ([]*models.SyncRun, error) {
	runs := make([]*models.SyncRun, 0, len(rows))
	for _, row := range rows {
		run, err := runFromRow(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func runFromRow(row Row) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:          row.String("id"),
		Type:        models.SyncType(row.String("sync_type")),
		Status:      models.RunStatus(row.String("status")),
		StartedAt:   row.Time("started_at"),
		CompletedAt: row.NullTime("completed_at"),
		Error:       row.String("error_message"),
	}
	if err := decodeJSONColumn(row, "progress", &run.Progress); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(row, "options", &run.Options); err != nil {
		return nil, err
	}
	if run.Progress.Errors == nil {
		run.Progress.Errors = []string{}
	}
	if len(run.Options) == 0 {
		run.Options = nil
	}
	return run, nil
}
