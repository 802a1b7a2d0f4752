package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

func (t SyncType) Valid() bool {
	return t == SyncTypeFull || t == SyncTypeIncremental
}

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal runs are never modified.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// SyncRun is one orchestrated synchronization attempt.
type SyncRun struct {
	ID          string                 `json:"id"`
	Type        SyncType               `json:"type"`
	Status      RunStatus              `json:"status"`
	Progress    SyncProgress           `json:"progress"`
	Options     map[string]interface{} `json:"options,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Duration is the wall time of the run so far, or of the whole run once terminal.
func (r *SyncRun) Duration(now time.Time) time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// String returns the JSON string representation of the run
func (r *SyncRun) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal sync run: %v"}`, err)
	}
	return string(data)
}

// RunStatistics aggregates run history over a time window.
type RunStatistics struct {
	WindowDays             int        `json:"windowDays"`
	TotalRuns              int        `json:"totalRuns"`
	Completed              int        `json:"completed"`
	Failed                 int        `json:"failed"`
	Cancelled              int        `json:"cancelled"`
	Running                int        `json:"running"`
	AverageDurationSeconds float64    `json:"averageDurationSeconds"`
	TicketsProcessed       int        `json:"ticketsProcessed"`
	LastSuccessfulAt       *time.Time `json:"lastSuccessfulAt,omitempty"`
}

// ScheduleInfo describes a registered recurring job.
type ScheduleInfo struct {
	Name            SyncType  `json:"name"`
	IntervalMinutes float64   `json:"intervalMinutes"`
	NextRun         time.Time `json:"nextRun"`
}
