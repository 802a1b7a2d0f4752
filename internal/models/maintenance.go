package models

import "time"

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type ComponentHealth struct {
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type StorageHealth struct {
	ComponentHealth
	Backend string `json:"backend"`
	Tickets int64  `json:"tickets"`
	Runs    int64  `json:"runs"`
}

type HealthReport struct {
	Status                  HealthStatus    `json:"status"`
	Remote                  ComponentHealth `json:"remote"`
	Storage                 StorageHealth   `json:"storage"`
	LastSuccessfulRun       *time.Time      `json:"lastSuccessfulRun,omitempty"`
	SecondsSinceLastSuccess *float64        `json:"secondsSinceLastSuccess,omitempty"`
	ActiveRuns              int             `json:"activeRuns"`
	Schedules               []SyncType      `json:"schedules"`
	CheckedAt               time.Time       `json:"checkedAt"`
}

// CleanupOptions are the retention knobs of a cleanup request.
type CleanupOptions struct {
	SyncHistoryDays int  `json:"syncHistoryDays"`
	TicketDays      int  `json:"ticketDays"`
	DryRun          bool `json:"dryRun"`
}

type CleanupResult struct {
	DryRun          bool      `json:"dryRun"`
	SyncRunsDeleted int64     `json:"syncRunsDeleted"`
	TicketsDeleted  int64     `json:"ticketsDeleted"`
	SyncRunCutoff   time.Time `json:"syncRunCutoff"`
	TicketCutoff    time.Time `json:"ticketCutoff"`
}
