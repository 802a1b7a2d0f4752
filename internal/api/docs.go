package api

import (
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	Error string `json:"error" example:"Sync already in progress"`
	// Id of the run that caused a conflict, when there is one
	SyncID string `json:"syncId,omitempty" example:"5f0c2a4e-6d1b-4c55-9b43-1f2b7f9e4e10"`
}

// StartSyncRequest starts a sync run
// @Description Request body of POST /sync/start
// @swagger:model StartSyncRequest
type StartSyncRequest struct {
	// Sync type
	Type models.SyncType `json:"type" binding:"required" example:"full" enums:"full,incremental"`
	// Optional run options. "projects" restricts the run to a list of project keys.
	Options map[string]interface{} `json:"options,omitempty"`
}

// StartSyncResponse acknowledges a started run
// @swagger:model StartSyncResponse
type StartSyncResponse struct {
	Status string          `json:"status" example:"started"`
	SyncID string          `json:"syncId" example:"5f0c2a4e-6d1b-4c55-9b43-1f2b7f9e4e10"`
	Type   models.SyncType `json:"type" example:"full"`
}

// CancelSyncResponse acknowledges a cancellation request
// @swagger:model CancelSyncResponse
type CancelSyncResponse struct {
	Status string `json:"status" example:"cancelling"`
	SyncID string `json:"syncId" example:"5f0c2a4e-6d1b-4c55-9b43-1f2b7f9e4e10"`
}

// StatusResponse is the overview of the sync engine
// @Description Active runs, recent history, 7-day statistics and scheduled jobs
// @swagger:model StatusResponse
type StatusResponse struct {
	Active     []*models.SyncRun     `json:"active"`
	Recent     []*models.SyncRun     `json:"recent"`
	Statistics *models.RunStatistics `json:"statistics"`
	Schedules  []models.SyncType     `json:"schedules"`
}

// ScheduleRequest registers, replaces or removes a recurring job
// @swagger:model ScheduleRequest
type ScheduleRequest struct {
	// Sync type the job runs
	Type models.SyncType `json:"type" binding:"required" example:"incremental" enums:"full,incremental"`
	// Interval between runs in minutes
	IntervalMinutes float64 `json:"intervalMinutes" example:"30"`
	// false removes the job. Defaults to true.
	Enabled *bool `json:"enabled,omitempty" example:"true"`
}

// ScheduleResponse lists the recurring jobs
// @swagger:model ScheduleResponse
type ScheduleResponse struct {
	Schedules []models.ScheduleInfo `json:"schedules"`
}

// CleanupRequest controls retention pruning
// @Description All fields are optional. dryRun defaults to true.
// @swagger:model CleanupRequest
type CleanupRequest struct {
	SyncHistoryDays int   `json:"syncHistoryDays" example:"30"`
	TicketDays      int   `json:"ticketDays" example:"90"`
	DryRun          *bool `json:"dryRun,omitempty" example:"true"`
}

func (r CleanupRequest) options() models.CleanupOptions {
	dryRun := true
	if r.DryRun != nil {
		dryRun = *r.DryRun
	}
	return models.CleanupOptions{
		SyncHistoryDays: r.SyncHistoryDays,
		TicketDays:      r.TicketDays,
		DryRun:          dryRun,
	}
}

// TicketListResponse is a filtered page of tickets
// @swagger:model TicketListResponse
type TicketListResponse struct {
	Data  []*models.Ticket `json:"data"`
	Count int              `json:"count" example:"25"`
}
