package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
	"github.com/Kamar-Folarin/ticket-sync/internal/orchestrator"
)

const statisticsWindow = 7 * 24 * time.Hour

// TicketReader is the read side of the ticket store
type TicketReader interface {
	GetTicket(ctx context.Context, key string) (*models.Ticket, error)
	GetTickets(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error)
	GetStatistics(ctx context.Context) (*models.TicketStatistics, error)
}

type Handler struct {
	sync    orchestrator.Service
	tickets TicketReader
	config  *config.SyncConfig
	logger  *logrus.Logger
}

func NewHandler(sync orchestrator.Service, tickets TicketReader, cfg *config.SyncConfig, logger *logrus.Logger) *Handler {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	return &Handler{
		sync:    sync,
		tickets: tickets,
		config:  cfg,
		logger:  logger,
	}
}

// GetStatus godoc
// @Summary Sync engine status
// @Description Active runs, recent history, 7-day statistics and the names of scheduled jobs
// @Tags sync
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 500 {object} ErrorResponse
// @Router /sync/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	recent, err := h.sync.RecentRuns(ctx, h.config.HistoryLimit)
	if err != nil {
		h.handleError(c, err, "Failed to list recent sync runs")
		return
	}
	stats, err := h.sync.Statistics(ctx, statisticsWindow)
	if err != nil {
		h.handleError(c, err, "Failed to compute sync statistics")
		return
	}

	schedules := h.sync.Schedules()
	names := make([]models.SyncType, 0, len(schedules))
	for _, s := range schedules {
		names = append(names, s.Name)
	}

	c.JSON(http.StatusOK, StatusResponse{
		Active:     h.sync.ActiveRuns(),
		Recent:     recent,
		Statistics: stats,
		Schedules:  names,
	})
}

// StartSync godoc
// @Summary Start a sync run
// @Description Starts a full or incremental run in the background. Only one run may be active.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body StartSyncRequest true "Run type and options"
// @Success 200 {object} StartSyncResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Sync already in progress"
// @Failure 500 {object} ErrorResponse
// @Router /sync/start [post]
func (h *Handler) StartSync(c *gin.Context) {
	var req StartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := h.sync.StartSync(c.Request.Context(), req.Type, req.Options)
	if err != nil {
		h.handleError(c, err, "Failed to start sync")
		return
	}

	c.JSON(http.StatusOK, StartSyncResponse{
		Status: "started",
		SyncID: run.ID,
		Type:   run.Type,
	})
}

// GetRun godoc
// @Summary Get a sync run
// @Tags sync
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} models.SyncRun
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sync/{runId} [get]
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.sync.GetRun(c.Request.Context(), c.Param("runId"))
	if err != nil {
		h.handleError(c, err, "Failed to get sync run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// CancelSync godoc
// @Summary Cancel an active sync run
// @Description The run stops at the next project or page boundary
// @Tags sync
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} CancelSyncResponse
// @Failure 404 {object} ErrorResponse
// @Router /sync/{runId}/cancel [post]
func (h *Handler) CancelSync(c *gin.Context) {
	runID := c.Param("runId")
	if err := h.sync.CancelSync(c.Request.Context(), runID); err != nil {
		h.handleError(c, err, "Failed to cancel sync")
		return
	}
	c.JSON(http.StatusOK, CancelSyncResponse{Status: "cancelling", SyncID: runID})
}

// GetSchedules godoc
// @Summary List recurring sync jobs
// @Tags schedule
// @Produce json
// @Success 200 {object} ScheduleResponse
// @Router /sync/schedule [get]
func (h *Handler) GetSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, ScheduleResponse{Schedules: h.sync.Schedules()})
}

// UpdateSchedule godoc
// @Summary Register, replace or remove a recurring sync job
// @Tags schedule
// @Accept json
// @Produce json
// @Param request body ScheduleRequest true "Schedule"
// @Success 200 {object} ScheduleResponse
// @Failure 400 {object} ErrorResponse
// @Router /sync/schedule [post]
func (h *Handler) UpdateSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled != nil && !*req.Enabled {
		if !h.sync.Unschedule(req.Type) {
			respondWithError(c, http.StatusNotFound, "schedule not found: "+string(req.Type))
			return
		}
	} else {
		interval := time.Duration(req.IntervalMinutes * float64(time.Minute))
		if err := h.sync.Schedule(req.Type, interval); err != nil {
			h.handleError(c, err, "Failed to schedule sync")
			return
		}
	}

	c.JSON(http.StatusOK, ScheduleResponse{Schedules: h.sync.Schedules()})
}

// Health godoc
// @Summary Health of the sync engine
// @Description 200 when healthy or degraded, 503 when storage is unreachable
// @Tags maintenance
// @Produce json
// @Success 200 {object} models.HealthReport
// @Failure 503 {object} models.HealthReport
// @Router /sync/health [get]
func (h *Handler) Health(c *gin.Context) {
	report := h.sync.Health(c.Request.Context())
	code := http.StatusOK
	if report.Status == models.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// Cleanup godoc
// @Summary Prune old sync runs and stale tickets
// @Description dryRun defaults to true and only reports what would be deleted
// @Tags maintenance
// @Accept json
// @Produce json
// @Param request body CleanupRequest false "Retention settings"
// @Success 200 {object} models.CleanupResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sync/cleanup [post]
func (h *Handler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sync.Cleanup(c.Request.Context(), req.options())
	if err != nil {
		h.handleError(c, err, "Failed to clean up")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListTickets godoc
// @Summary List synchronized tickets
// @Tags tickets
// @Produce json
// @Param clientId query int false "Owning client"
// @Param status query string false "Status name"
// @Param assignee query string false "Assignee display name"
// @Param updatedSince query string false "RFC3339 lower bound on the remote update time"
// @Param keys query string false "Comma separated ticket keys"
// @Param limit query int false "Maximum number of tickets" default(100)
// @Success 200 {object} TicketListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tickets [get]
func (h *Handler) ListTickets(c *gin.Context) {
	filter, err := parseTicketFilter(c)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, clientMessage(err))
		return
	}

	tickets, err := h.tickets.GetTickets(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err, "Failed to list tickets")
		return
	}
	c.JSON(http.StatusOK, TicketListResponse{Data: tickets, Count: len(tickets)})
}

// GetTicket godoc
// @Summary Get a ticket by key
// @Tags tickets
// @Produce json
// @Param key path string true "Ticket key"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{key} [get]
func (h *Handler) GetTicket(c *gin.Context) {
	ticket, err := h.tickets.GetTicket(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.handleError(c, err, "Failed to get ticket")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// GetTicketStatistics godoc
// @Summary Aggregate ticket statistics
// @Tags tickets
// @Produce json
// @Success 200 {object} models.TicketStatistics
// @Failure 500 {object} ErrorResponse
// @Router /tickets/stats [get]
func (h *Handler) GetTicketStatistics(c *gin.Context) {
	stats, err := h.tickets.GetStatistics(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to compute ticket statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseTicketFilter(c *gin.Context) (models.TicketFilter, error) {
	filter := models.TicketFilter{
		Status:   c.Query("status"),
		Assignee: c.Query("assignee"),
	}

	if v := c.Query("clientId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errors.New("invalid clientId parameter")
		}
		filter.ClientID = &id
	}
	if v := c.Query("updatedSince"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid updatedSince parameter (use RFC3339 format)")
		}
		filter.UpdatedSince = &since
	}
	if v := c.Query("keys"); v != "" {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				filter.Keys = append(filter.Keys, k)
			}
		}
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, errors.New("invalid limit parameter")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// handleError maps typed errors to status codes. Unknown errors are logged
// and reported as 500 with the generic message.
func (h *Handler) handleError(c *gin.Context, err error, message string) {
	var inProgress *apperrors.SyncInProgressError
	switch {
	case errors.As(err, &inProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Sync already in progress", SyncID: inProgress.RunID})
	case apperrors.IsConflict(err):
		respondWithError(c, http.StatusConflict, clientMessage(err))
	case apperrors.IsNotFound(err):
		respondWithError(c, http.StatusNotFound, clientMessage(err))
	case apperrors.IsInvalidInput(err):
		respondWithError(c, http.StatusBadRequest, clientMessage(err))
	case apperrors.IsUnavailable(err):
		respondWithError(c, http.StatusServiceUnavailable, clientMessage(err))
	default:
		h.logger.WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		}).WithError(err).Error(message)
		respondWithError(c, http.StatusInternalServerError, message)
	}
}

// clientMessage strips the error type prefix and cause chain from err.
func clientMessage(err error) string {
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: message})
}
