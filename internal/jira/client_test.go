package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return logger
}

func testConfig(baseURL string) *config.JiraConfig {
	cfg := config.DefaultJiraConfig()
	cfg.BaseURL = baseURL
	cfg.Email = "bot@example.com"
	cfg.APIToken = "secret"
	cfg.PageSize = 2
	cfg.Retry = config.RetryConfig{
		MaxRetries:      2,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      5 * time.Millisecond,
		RetryMultiplier: 2,
	}
	return cfg
}

func issueJSON(key, updated string) map[string]interface{} {
	return map[string]interface{}{
		"id":  "1",
		"key": key,
		"fields": map[string]interface{}{
			"summary":  "Summary " + key,
			"status":   map[string]string{"name": "Open"},
			"project":  map[string]string{"key": "OPS"},
			"updated":  updated,
			"labels":   []string{"a"},
			"assignee": map[string]string{"displayName": "Ada"},
		},
	}
}

func TestClient_FetchTicketsPages(t *testing.T) {
	var calls int32
	var lastJQL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/api/3/myself" {
			_, _ = w.Write([]byte(`{"accountId":"1","timeZone":"America/New_York"}`))
			return
		}
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/rest/api/3/search", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "*all", r.URL.Query().Get("fields"))
		lastJQL = r.URL.Query().Get("jql")

		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		var issues []map[string]interface{}
		switch startAt {
		case 0:
			issues = append(issues,
				issueJSON("OPS-1", "2024-01-01T10:00:00.000+0000"),
				issueJSON("OPS-2", "2024-01-02T10:00:00.000+0000"))
		case 2:
			issues = append(issues, issueJSON("OPS-3", "2024-01-03T10:00:00.000+0000"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"startAt": startAt,
			"total":   3,
			"issues":  issues,
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	since := time.Date(2024, 1, 1, 9, 30, 45, 0, time.UTC)

	var pages [][]*models.Ticket
	err := client.FetchTickets(context.Background(), "OPS", &since, func(tickets []*models.Ticket) error {
		pages = append(pages, tickets)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, pages, 2)
	assert.Len(t, pages[0], 2)
	assert.Equal(t, "OPS-3", pages[1][0].Key)
	assert.Equal(t, "Ada", pages[1][0].Assignee)
	assert.Equal(t, `project = "OPS" AND updated >= "2024-01-01 04:30" ORDER BY updated ASC`, lastJQL,
		"since is written in the user's profile zone")
}

func TestClient_IncrementalWindowWithoutUserZone(t *testing.T) {
	var lastJQL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/api/3/myself" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		lastJQL = r.URL.Query().Get("jql")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"total": 0, "issues": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	since := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, client.FetchTickets(context.Background(), "OPS", &since, func([]*models.Ticket) error { return nil }))

	assert.Equal(t, `project = "OPS" AND updated >= "2023-12-31 19:30" ORDER BY updated ASC`, lastJQL)
}

func TestClient_FetchTicketsHandlerErrorStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"total":  10,
			"issues": []interface{}{issueJSON("OPS-1", "")},
		})
	}))
	defer server.Close()

	stop := errors.New("stop")
	client := NewClient(testConfig(server.URL), testLogger())
	err := client.FetchTickets(context.Background(), "OPS", nil, func([]*models.Ticket) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"accountId":"1"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	err := client.Ping(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.True(t, apperrors.IsUnavailable(err), "exhausted retries mean the remote is unavailable")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_UnauthorizedIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_NotFoundIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	err := client.FetchTickets(context.Background(), "GONE", nil, func([]*models.Ticket) error { return nil })
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, apperrors.IsUnauthorized(err))
	assert.False(t, apperrors.IsUnavailable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := testConfig(url)
	cfg.Retry.MaxRetries = 0
	client := NewClient(cfg, testLogger())
	err := client.Ping(context.Background())
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestClient_BearerAuthWithoutEmail(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Email = ""
	client := NewClient(cfg, testLogger(), WithHTTPClient(server.Client()))
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "Bearer secret", header)
}

func TestClient_FetchProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/project/search", r.URL.Path)
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		page := map[string]interface{}{"startAt": startAt}
		if startAt == 0 {
			page["values"] = []map[string]string{
				{"id": "10", "key": "OPS", "name": "Operations"},
				{"id": "11", "key": "WEB", "name": "Website"},
			}
			page["isLast"] = false
		} else {
			page["values"] = []map[string]string{{"id": "12", "key": "MOB", "name": "Mobile"}}
			page["isLast"] = true
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	projects, err := client.FetchProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "Mobile", projects[2].Name)

	cfg := testConfig(server.URL)
	cfg.ProjectKeys = []string{"mob", "ops", "HIDDEN"}
	client = NewClient(cfg, testLogger())
	projects, err = client.FetchProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "MOB", projects[0].Key)
	assert.Equal(t, "OPS", projects[1].Key)
	assert.Equal(t, models.Project{Key: "HIDDEN", Name: "HIDDEN"}, projects[2])
}

func TestProjectJQL(t *testing.T) {
	assert.Equal(t, `project = "OPS" ORDER BY updated ASC`, ProjectJQL("OPS", nil))

	since := time.Date(2024, 6, 1, 23, 59, 30, 0, time.FixedZone("X", 2*3600))
	assert.Equal(t, `project = "OPS" AND updated >= "2024-06-01 23:59" ORDER BY updated ASC`, ProjectJQL("OPS", &since))
}
