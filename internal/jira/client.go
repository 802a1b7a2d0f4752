package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// jqlTimeLayout is the minute-precision date format accepted in JQL.
const jqlTimeLayout = "2006-01-02 15:04"

// maxZoneOffset widens an incremental window when the user's zone is unknown.
const maxZoneOffset = 14 * time.Hour

// Client reads projects and issues from the Jira REST API v3.
type Client struct {
	baseURL     string
	email       string
	token       string
	projectKeys []string
	pageSize    int
	retry       config.RetryConfig
	client      *http.Client
	logger      *logrus.Logger

	zoneMu   sync.Mutex
	location *time.Location
}

// ClientOption allows configuring the Jira client
type ClientOption func(*Client)

// WithRetryConfig configures retry behavior
func WithRetryConfig(retry config.RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = retry
	}
}

// WithHTTPClient replaces the underlying HTTP client. Bearer auth is layered on top of it.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

// NewClient creates a Jira client. With an email configured requests use
// Basic auth; otherwise the API token is sent as an OAuth2 bearer token.
func NewClient(cfg *config.JiraConfig, logger *logrus.Logger, opts ...ClientOption) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		email:       cfg.Email,
		token:       cfg.APIToken,
		projectKeys: cfg.ProjectKeys,
		pageSize:    pageSize,
		retry:       cfg.Retry,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.email == "" && c.token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"})
		c.client = &http.Client{
			Timeout:   c.client.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: c.client.Transport},
		}
	}

	return c
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.retry.InitialBackoff > 0 {
		b.InitialInterval = c.retry.InitialBackoff
	}
	if c.retry.MaxBackoff > 0 {
		b.MaxInterval = c.retry.MaxBackoff
	}
	if c.retry.RetryMultiplier > 1 {
		b.Multiplier = c.retry.RetryMultiplier
	}
	b.MaxElapsedTime = 0

	retries := c.retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// getJSON performs a GET with retries on 429, 5xx and transport failures and
// decodes the body into result.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ticket-sync/1.0")
		if c.email != "" {
			req.SetBasicAuth(c.email, c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(NewAPIError(resp.StatusCode, string(body), ErrUnauthorized))
		case resp.StatusCode == http.StatusTooManyRequests:
			c.waitRetryAfter(ctx, resp.Header.Get("Retry-After"))
			return NewAPIError(resp.StatusCode, string(body), nil)
		case resp.StatusCode >= 500:
			return NewAPIError(resp.StatusCode, string(body), nil)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(NewAPIError(resp.StatusCode, string(body), nil))
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return backoff.Permanent(NewAPIError(resp.StatusCode, "failed to decode response", err))
			}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("Jira request failed, retrying")
	}

	err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return apperrors.NewUnauthorizedError("jira rejected the credentials", err)
	case errors.As(err, &apiErr) && apiErr.Retryable():
		return apperrors.New(apperrors.ErrUnavailable, "jira is unavailable", err)
	case errors.As(err, &apiErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperrors.New(apperrors.ErrUnavailable, "jira is unreachable", err)
	}
}

// waitRetryAfter sleeps for the Retry-After seconds, capped by the max
// backoff, before the regular backoff delay applies.
func (c *Client) waitRetryAfter(ctx context.Context, header string) {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds <= 0 {
		return
	}
	wait := time.Duration(seconds) * time.Second
	if c.retry.MaxBackoff > 0 && wait > c.retry.MaxBackoff {
		wait = c.retry.MaxBackoff
	}

	c.logger.Warnf("Jira rate limit exceeded. Waiting %v before retry", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Ping checks connectivity and credentials, and refreshes the user's time zone.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.fetchLocation(ctx)
	return err
}

func (c *Client) fetchLocation(ctx context.Context) (*time.Location, error) {
	var me myselfResult
	if err := c.getJSON(ctx, "/rest/api/3/myself", nil, &me); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(me.TimeZone)
	if me.TimeZone == "" || err != nil {
		c.logger.WithField("time_zone", me.TimeZone).Warn("Unknown Jira user time zone, assuming UTC")
		loc = time.UTC
	}

	c.zoneMu.Lock()
	c.location = loc
	c.zoneMu.Unlock()
	return loc, nil
}

// userLocation returns the profile time zone of the authenticated user, which
// JQL reads date literals in.
func (c *Client) userLocation(ctx context.Context) (*time.Location, error) {
	c.zoneMu.Lock()
	loc := c.location
	c.zoneMu.Unlock()
	if loc != nil {
		return loc, nil
	}
	return c.fetchLocation(ctx)
}

// jqlSince converts since into the wall clock JQL expects. When the user's
// zone cannot be read the window is widened by the largest zone offset.
func (c *Client) jqlSince(ctx context.Context, since time.Time) time.Time {
	loc, err := c.userLocation(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read Jira user time zone, widening incremental window")
		return since.UTC().Add(-maxZoneOffset)
	}
	return since.In(loc)
}

// FetchProjects lists the projects to synchronize. When project keys are
// configured only those are returned, in configured order.
func (c *Client) FetchProjects(ctx context.Context) ([]models.Project, error) {
	var all []models.Project
	startAt := 0

	for {
		query := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(c.pageSize)},
		}
		var page projectPage
		if err := c.getJSON(ctx, "/rest/api/3/project/search", query, &page); err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}

		for _, p := range page.Values {
			all = append(all, models.Project{ID: p.ID, Key: p.Key, Name: p.Name})
		}

		if page.IsLast || len(page.Values) == 0 {
			break
		}
		startAt += len(page.Values)
	}

	if len(c.projectKeys) == 0 {
		return all, nil
	}

	byKey := make(map[string]models.Project, len(all))
	for _, p := range all {
		byKey[strings.ToUpper(p.Key)] = p
	}
	selected := make([]models.Project, 0, len(c.projectKeys))
	for _, key := range c.projectKeys {
		p, ok := byKey[strings.ToUpper(key)]
		if !ok {
			c.logger.WithField("project", key).Warn("Configured project not visible to the Jira account")
			p = models.Project{Key: strings.ToUpper(key), Name: strings.ToUpper(key)}
		}
		selected = append(selected, p)
	}
	return selected, nil
}

// ProjectJQL builds the search query for a project, restricted to issues
// updated at or after since when it is set. since is written as wall clock
// time in its own location.
func ProjectJQL(projectKey string, since *time.Time) string {
	jql := fmt.Sprintf("project = %q", projectKey)
	if since != nil {
		jql += fmt.Sprintf(" AND updated >= %q", since.Format(jqlTimeLayout))
	}
	return jql + " ORDER BY updated ASC"
}

// FetchTickets pages through the issues of a project and hands every page
// to handle. An error from handle stops paging and is returned.
func (c *Client) FetchTickets(ctx context.Context, projectKey string, since *time.Time, handle func([]*models.Ticket) error) error {
	logger := c.logger.WithFields(logrus.Fields{
		"project": projectKey,
		"since":   since,
	})
	var from *time.Time
	if since != nil {
		local := c.jqlSince(ctx, *since)
		from = &local
	}
	jql := ProjectJQL(projectKey, from)
	startAt := 0
	fetched := 0

	for {
		query := url.Values{
			"jql":        {jql},
			"fields":     {"*all"},
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(c.pageSize)},
		}

		var result searchResult
		if err := c.getJSON(ctx, "/rest/api/3/search", query, &result); err != nil {
			return fmt.Errorf("failed to search issues of %s: %w", projectKey, err)
		}
		if len(result.Issues) == 0 {
			break
		}

		tickets := make([]*models.Ticket, 0, len(result.Issues))
		for _, issue := range result.Issues {
			ticket, err := IssueToTicket(issue)
			if err != nil {
				logger.WithError(err).Warn("Skipping malformed issue")
				continue
			}
			tickets = append(tickets, ticket)
		}

		if err := handle(tickets); err != nil {
			return err
		}

		fetched += len(result.Issues)
		logger.WithFields(logrus.Fields{
			"start_at": startAt,
			"fetched":  fetched,
			"total":    result.Total,
		}).Debug("Fetched issue page")

		startAt += len(result.Issues)
		if startAt >= result.Total {
			break
		}
	}

	return nil
}
