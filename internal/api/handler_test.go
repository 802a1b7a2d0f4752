package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/events"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

const (
	testRunID  = "run-1"
	otherRunID = "run-0"
)

// MockSyncService is a mock implementation of orchestrator.Service
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) StartSync(ctx context.Context, syncType models.SyncType, options map[string]interface{}) (*models.SyncRun, error) {
	args := m.Called(ctx, syncType, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncService) CancelSync(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func (m *MockSyncService) GetRun(ctx context.Context, runID string) (*models.SyncRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncService) ActiveRuns() []*models.SyncRun {
	args := m.Called()
	return args.Get(0).([]*models.SyncRun)
}

func (m *MockSyncService) RecentRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.SyncRun), args.Error(1)
}

func (m *MockSyncService) Statistics(ctx context.Context, window time.Duration) (*models.RunStatistics, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RunStatistics), args.Error(1)
}

func (m *MockSyncService) Subscribe(ctx context.Context, runID string) *events.Subscription {
	args := m.Called(ctx, runID)
	return args.Get(0).(*events.Subscription)
}

func (m *MockSyncService) Schedule(syncType models.SyncType, interval time.Duration) error {
	args := m.Called(syncType, interval)
	return args.Error(0)
}

func (m *MockSyncService) Unschedule(syncType models.SyncType) bool {
	args := m.Called(syncType)
	return args.Bool(0)
}

func (m *MockSyncService) Schedules() []models.ScheduleInfo {
	args := m.Called()
	return args.Get(0).([]models.ScheduleInfo)
}

func (m *MockSyncService) Health(ctx context.Context) *models.HealthReport {
	args := m.Called(ctx)
	return args.Get(0).(*models.HealthReport)
}

func (m *MockSyncService) Cleanup(ctx context.Context, opts models.CleanupOptions) (*models.CleanupResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CleanupResult), args.Error(1)
}

// MockTicketReader is a mock implementation of TicketReader
type MockTicketReader struct {
	mock.Mock
}

func (m *MockTicketReader) GetTicket(ctx context.Context, key string) (*models.Ticket, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketReader) GetTickets(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketReader) GetStatistics(ctx context.Context) (*models.TicketStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketStatistics), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil)) // Discard logs during tests
	return logger
}

func setupTestHandler() (*gin.Engine, *MockSyncService, *MockTicketReader) {
	gin.SetMode(gin.TestMode)
	mockSync := new(MockSyncService)
	mockTickets := new(MockTicketReader)

	cfg := config.DefaultSyncConfig()
	cfg.SSEHeartbeatInterval = 10 * time.Millisecond
	handler := NewHandler(mockSync, mockTickets, cfg, testLogger())
	return SetupRouter(handler, testLogger()), mockSync, mockTickets
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestStartSync(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockRun        *models.SyncRun
		mockError      error
		expectCall     bool
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "started",
			body:           StartSyncRequest{Type: models.SyncTypeFull},
			mockRun:        &models.SyncRun{ID: testRunID, Type: models.SyncTypeFull, Status: models.RunStatusRunning},
			expectCall:     true,
			expectedStatus: http.StatusOK,
			expectedBody:   &StartSyncResponse{Status: "started", SyncID: testRunID, Type: models.SyncTypeFull},
		},
		{
			name:           "already running",
			body:           StartSyncRequest{Type: models.SyncTypeIncremental},
			mockError:      apperrors.NewSyncInProgressError(otherRunID),
			expectCall:     true,
			expectedStatus: http.StatusConflict,
			expectedBody:   &ErrorResponse{Error: "Sync already in progress", SyncID: otherRunID},
		},
		{
			name:           "unknown type",
			body:           StartSyncRequest{Type: "partial"},
			mockError:      apperrors.NewValidationError(`unknown sync type "partial"`, nil),
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   &ErrorResponse{Error: `unknown sync type "partial"`},
		},
		{
			name:           "missing type",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   &ErrorResponse{Error: "invalid request body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockSync, _ := setupTestHandler()
			if tt.expectCall {
				req := tt.body.(StartSyncRequest)
				if tt.mockRun != nil {
					mockSync.On("StartSync", mock.Anything, req.Type, mock.Anything).Return(tt.mockRun, nil)
				} else {
					mockSync.On("StartSync", mock.Anything, req.Type, mock.Anything).Return(nil, tt.mockError)
				}
			}

			w := doRequest(router, http.MethodPost, "/api/v1/sync/start", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var response interface{}
			if tt.expectedStatus == http.StatusOK {
				response = &StartSyncResponse{}
			} else {
				response = &ErrorResponse{}
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), response))
			assert.Equal(t, tt.expectedBody, response)
			mockSync.AssertExpectations(t)
		})
	}
}

func TestStartSync_PassesOptions(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	run := &models.SyncRun{ID: testRunID, Type: models.SyncTypeFull}
	mockSync.On("StartSync", mock.Anything, models.SyncTypeFull, mock.MatchedBy(func(opts map[string]interface{}) bool {
		projects, ok := opts["projects"].([]interface{})
		return ok && len(projects) == 1 && projects[0] == "OPS"
	})).Return(run, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/sync/start", map[string]interface{}{
		"type":    "full",
		"options": map[string]interface{}{"projects": []string{"OPS"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	mockSync.AssertExpectations(t)
}

func TestGetRun(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	run := &models.SyncRun{ID: testRunID, Type: models.SyncTypeFull, Status: models.RunStatusCompleted, Progress: models.SyncProgress{Errors: []string{}}}
	mockSync.On("GetRun", mock.Anything, testRunID).Return(run, nil)
	mockSync.On("GetRun", mock.Anything, "missing").Return(nil, apperrors.NewResourceNotFoundError("sync run", "missing"))

	w := doRequest(router, http.MethodGet, "/api/v1/sync/"+testRunID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var got models.SyncRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, testRunID, got.ID)
	assert.Equal(t, models.RunStatusCompleted, got.Status)

	w = doRequest(router, http.MethodGet, "/api/v1/sync/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "sync run not found: missing", decodeError(t, w).Error)
}

func TestCancelSync(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	mockSync.On("CancelSync", mock.Anything, testRunID).Return(nil)
	mockSync.On("CancelSync", mock.Anything, "missing").Return(apperrors.NewResourceNotFoundError("active sync run", "missing"))

	w := doRequest(router, http.MethodPost, "/api/v1/sync/"+testRunID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp CancelSyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CancelSyncResponse{Status: "cancelling", SyncID: testRunID}, resp)

	w = doRequest(router, http.MethodPost, "/api/v1/sync/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "not found")
	mockSync.AssertExpectations(t)
}

func TestErrorBodiesCarryOnlyTheMessage(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "validation with cause",
			err:            apperrors.NewValidationError("invalid sync options", errors.New("json: cannot unmarshal")),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid sync options",
		},
		{
			name:           "wrapped unavailable",
			err:            fmt.Errorf("failed to start sync: %w", apperrors.New(apperrors.ErrUnavailable, "orchestrator is shutting down", nil)),
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "orchestrator is shutting down",
		},
		{
			name:           "wrapped resource not found",
			err:            fmt.Errorf("lookup: %w", apperrors.NewResourceNotFoundError("sync run", "run-9")),
			expectedStatus: http.StatusNotFound,
			expectedError:  "sync run not found: run-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockSync, _ := setupTestHandler()
			mockSync.On("StartSync", mock.Anything, models.SyncTypeFull, mock.Anything).Return(nil, tt.err)

			w := doRequest(router, http.MethodPost, "/api/v1/sync/start", StartSyncRequest{Type: models.SyncTypeFull})
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, decodeError(t, w).Error)
		})
	}
}

func TestGetStatus(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	active := []*models.SyncRun{{ID: testRunID, Status: models.RunStatusRunning}}
	recent := []*models.SyncRun{{ID: otherRunID, Status: models.RunStatusCompleted}}
	stats := &models.RunStatistics{WindowDays: 7, TotalRuns: 1, Completed: 1}

	mockSync.On("ActiveRuns").Return(active)
	mockSync.On("RecentRuns", mock.Anything, 10).Return(recent, nil)
	mockSync.On("Statistics", mock.Anything, 7*24*time.Hour).Return(stats, nil)
	mockSync.On("Schedules").Return([]models.ScheduleInfo{{Name: models.SyncTypeIncremental, IntervalMinutes: 30}})

	w := doRequest(router, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Active, 1)
	assert.Equal(t, testRunID, resp.Active[0].ID)
	require.Len(t, resp.Recent, 1)
	assert.Equal(t, otherRunID, resp.Recent[0].ID)
	assert.Equal(t, 1, resp.Statistics.Completed)
	assert.Equal(t, []models.SyncType{models.SyncTypeIncremental}, resp.Schedules)
	mockSync.AssertExpectations(t)
}

func TestGetStatus_StorageError(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	mockSync.On("RecentRuns", mock.Anything, 10).Return([]*models.SyncRun(nil), errors.New("disk I/O error"))

	w := doRequest(router, http.MethodGet, "/api/v1/sync/status", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to list recent sync runs", decodeError(t, w).Error)
}

func TestUpdateSchedule(t *testing.T) {
	schedules := []models.ScheduleInfo{{Name: models.SyncTypeFull, IntervalMinutes: 30}}

	t.Run("register", func(t *testing.T) {
		router, mockSync, _ := setupTestHandler()
		mockSync.On("Schedule", models.SyncTypeFull, 30*time.Minute).Return(nil)
		mockSync.On("Schedules").Return(schedules)

		w := doRequest(router, http.MethodPost, "/api/v1/sync/schedule", ScheduleRequest{Type: models.SyncTypeFull, IntervalMinutes: 30})
		assert.Equal(t, http.StatusOK, w.Code)
		var resp ScheduleResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Schedules, 1)
		mockSync.AssertExpectations(t)
	})

	t.Run("invalid interval", func(t *testing.T) {
		router, mockSync, _ := setupTestHandler()
		mockSync.On("Schedule", models.SyncTypeFull, time.Duration(0)).
			Return(apperrors.NewValidationError("schedule interval must be positive", nil))

		w := doRequest(router, http.MethodPost, "/api/v1/sync/schedule", ScheduleRequest{Type: models.SyncTypeFull})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "schedule interval must be positive", decodeError(t, w).Error)
	})

	t.Run("disable", func(t *testing.T) {
		router, mockSync, _ := setupTestHandler()
		disabled := false
		mockSync.On("Unschedule", models.SyncTypeFull).Return(true).Once()
		mockSync.On("Unschedule", models.SyncTypeFull).Return(false).Once()
		mockSync.On("Schedules").Return([]models.ScheduleInfo{})

		req := ScheduleRequest{Type: models.SyncTypeFull, Enabled: &disabled}
		w := doRequest(router, http.MethodPost, "/api/v1/sync/schedule", req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodPost, "/api/v1/sync/schedule", req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		mockSync.AssertExpectations(t)
	})
}

func TestGetSchedules(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	next := time.Date(2024, 3, 20, 1, 0, 0, 0, time.UTC)
	mockSync.On("Schedules").Return([]models.ScheduleInfo{{Name: models.SyncTypeIncremental, IntervalMinutes: 15, NextRun: next}})

	w := doRequest(router, http.MethodGet, "/api/v1/sync/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"schedules":[{"name":"incremental","intervalMinutes":15,"nextRun":"2024-03-20T01:00:00Z"}]}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status         models.HealthStatus
		expectedStatus int
	}{
		{models.HealthHealthy, http.StatusOK},
		{models.HealthDegraded, http.StatusOK},
		{models.HealthUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			router, mockSync, _ := setupTestHandler()
			mockSync.On("Health", mock.Anything).Return(&models.HealthReport{Status: tt.status})

			w := doRequest(router, http.MethodGet, "/api/v1/sync/health", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			var report models.HealthReport
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
			assert.Equal(t, tt.status, report.Status)
		})
	}
}

func TestCleanup(t *testing.T) {
	result := &models.CleanupResult{SyncRunsDeleted: 2, TicketsDeleted: 5}

	t.Run("empty body defaults to dry run", func(t *testing.T) {
		router, mockSync, _ := setupTestHandler()
		mockSync.On("Cleanup", mock.Anything, models.CleanupOptions{DryRun: true}).Return(result, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/cleanup", http.NoBody)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		mockSync.AssertExpectations(t)
	})

	t.Run("explicit live run", func(t *testing.T) {
		router, mockSync, _ := setupTestHandler()
		live := false
		mockSync.On("Cleanup", mock.Anything, models.CleanupOptions{SyncHistoryDays: 7, TicketDays: 14}).Return(result, nil)

		w := doRequest(router, http.MethodPost, "/api/v1/sync/cleanup", CleanupRequest{SyncHistoryDays: 7, TicketDays: 14, DryRun: &live})
		assert.Equal(t, http.StatusOK, w.Code)
		var got models.CleanupResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, int64(5), got.TicketsDeleted)
		mockSync.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		router, _, _ := setupTestHandler()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/cleanup", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListTickets(t *testing.T) {
	router, _, mockTickets := setupTestHandler()
	clientID := int64(3)
	since := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	expected := models.TicketFilter{
		ClientID:     &clientID,
		Status:       "Open",
		Assignee:     "Ada",
		UpdatedSince: &since,
		Keys:         []string{"OPS-1", "OPS-2"},
		Limit:        5,
	}
	tickets := []*models.Ticket{{Key: "OPS-1"}, {Key: "OPS-2"}}
	mockTickets.On("GetTickets", mock.Anything, expected).Return(tickets, nil)

	w := doRequest(router, http.MethodGet,
		"/api/v1/tickets?clientId=3&status=Open&assignee=Ada&updatedSince=2024-03-20T00:00:00Z&keys=OPS-1,%20OPS-2&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TicketListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	mockTickets.AssertExpectations(t)
}

func TestListTickets_InvalidParams(t *testing.T) {
	router, _, _ := setupTestHandler()
	for _, query := range []string{"clientId=abc", "updatedSince=yesterday", "limit=-1"} {
		w := doRequest(router, http.MethodGet, "/api/v1/tickets?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.NotEmpty(t, decodeError(t, w).Error)
	}
}

func TestGetTicket(t *testing.T) {
	router, _, mockTickets := setupTestHandler()
	mockTickets.On("GetTicket", mock.Anything, "OPS-1").Return(&models.Ticket{Key: "OPS-1", Summary: "Broken login"}, nil)
	mockTickets.On("GetTicket", mock.Anything, "OPS-404").Return(nil, apperrors.NewResourceNotFoundError("ticket", "OPS-404"))
	mockTickets.On("GetStatistics", mock.Anything).Return(&models.TicketStatistics{TotalTickets: 1}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/tickets/OPS-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/tickets/OPS-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ticket not found: OPS-404", decodeError(t, w).Error)

	w = doRequest(router, http.MethodGet, "/api/v1/tickets/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	mockTickets.AssertExpectations(t)
}

func TestNoRoute(t *testing.T) {
	router, _, _ := setupTestHandler()
	w := doRequest(router, http.MethodGet, "/api/v2/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", decodeError(t, w).Error)
}

func TestStreamProgress_UnknownRun(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	broker := events.NewBroker()
	mockSync.On("Subscribe", mock.Anything, "missing").Return(broker.Subscribe(context.Background(), "missing"))
	mockSync.On("GetRun", mock.Anything, "missing").Return(nil, apperrors.NewResourceNotFoundError("sync run", "missing"))

	w := doRequest(router, http.MethodGet, "/api/v1/sync/missing/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "sync run not found: missing", decodeError(t, w).Error)
	assert.Equal(t, 0, broker.SubscriberCount("missing"), "the subscription is released")
}

func TestStreamProgress_TerminalSnapshotEndsStream(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	broker := events.NewBroker()
	run := &models.SyncRun{ID: testRunID, Status: models.RunStatusCompleted, Progress: models.SyncProgress{ProcessedTickets: 3, Errors: []string{}}}
	mockSync.On("Subscribe", mock.Anything, testRunID).Return(broker.Subscribe(context.Background(), testRunID))
	mockSync.On("GetRun", mock.Anything, testRunID).Return(run, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/sync/"+testRunID+"/progress", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	frames := parseFrames(w.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, models.EventCompleted, frames[0].Event)
	assert.Equal(t, 3, frames[0].Progress.ProcessedTickets)
	assert.Equal(t, 0, broker.SubscriberCount(testRunID))
}

func TestStreamProgress_ForwardsEventsAndHeartbeats(t *testing.T) {
	router, mockSync, _ := setupTestHandler()
	broker := events.NewBroker()
	run := &models.SyncRun{ID: testRunID, Status: models.RunStatusRunning, Progress: models.SyncProgress{Errors: []string{}}}
	mockSync.On("Subscribe", mock.Anything, testRunID).Return(broker.Subscribe(context.Background(), testRunID))
	mockSync.On("GetRun", mock.Anything, testRunID).Return(run, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		broker.Publish(models.ProgressEvent{Event: models.EventFailed, RunID: testRunID, Status: models.RunStatusFailed, Error: "jira rejected the credentials"})
	}()

	w := doRequest(router, http.MethodGet, "/api/v1/sync/"+testRunID+"/progress", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), heartbeatFrame)

	frames := parseFrames(w.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, models.EventProgress, frames[0].Event)
	assert.Equal(t, models.EventFailed, frames[1].Event)
	assert.Equal(t, "jira rejected the credentials", frames[1].Error)
}

func parseFrames(body string) []models.ProgressEvent {
	var frames []models.ProgressEvent
	for _, chunk := range bytes.Split([]byte(body), []byte("\n\n")) {
		line := bytes.TrimSpace(chunk)
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		var ev models.ProgressEvent
		if err := json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &ev); err == nil {
			frames = append(frames, ev)
		}
	}
	return frames
}
