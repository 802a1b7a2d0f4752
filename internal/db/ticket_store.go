package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/batch"
	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

const (
	defaultTicketLimit = 100
	maxTicketLimit     = 1000
	topClientsLimit    = 10
)

var ticketColumns = []string{
	"ticket_key", "client_id", "project_key", "summary", "description", "status",
	"priority", "issue_type", "assignee", "reporter", "story_points", "sprint",
	"epic_key", "team", "custom_fields", "components", "labels",
	"remote_created_at", "remote_updated_at", "last_synced",
}

// TicketStore persists tickets through an Adapter.
type TicketStore struct {
	db        Adapter
	processor *batch.Processor
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTicketStore(adapter Adapter, processor *batch.Processor, logger *logrus.Logger) *TicketStore {
	return &TicketStore{
		db:        adapter,
		processor: processor,
		logger:    logger,
		now:       time.Now,
	}
}

// conflictClause overwrites every mutable column. A resolved client is never
// replaced by NULL and last_synced never moves backwards.
func (s *TicketStore) conflictClause() string {
	sets := make([]string, 0, len(ticketColumns))
	for _, col := range ticketColumns {
		switch col {
		case "ticket_key":
			continue
		case "client_id":
			sets = append(sets, "client_id = COALESCE(excluded.client_id, tickets.client_id)")
		case "last_synced":
			sets = append(sets, "last_synced = "+s.db.Dialect().Greatest("tickets.last_synced", "excluded.last_synced"))
		default:
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	return "ON CONFLICT (ticket_key) DO UPDATE SET " + strings.Join(sets, ", ")
}

// ticketArgs binds a copy of ticket. last_synced is always the write time; the
// conflict clause keeps the stored value monotonic.
func (s *TicketStore) ticketArgs(ticket *models.Ticket, clientID *int64, syncedAt time.Time) ([]interface{}, error) {
	t := *ticket
	if clientID != nil {
		t.ClientID = clientID
	}
	t.ExtractWellKnown()

	customFields := t.CustomFields
	if customFields == nil {
		customFields = models.CustomFields{}
	}
	fieldsJSON, err := json.Marshal(customFields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom fields of %s: %w", t.Key, err)
	}
	componentsJSON, err := marshalList(t.Components)
	if err != nil {
		return nil, err
	}
	labelsJSON, err := marshalList(t.Labels)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		t.Key, t.ClientID, t.ProjectKey, t.Summary, t.Description, t.Status,
		t.Priority, t.IssueType, t.Assignee, t.Reporter, t.StoryPoints, t.Sprint,
		t.EpicKey, t.Team, string(fieldsJSON), componentsJSON, labelsJSON,
		t.RemoteCreatedAt, t.RemoteUpdatedAt, syncedAt,
	}, nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(data), nil
}

func placeholders(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

// UpsertOne inserts or overwrites a single ticket. clientID, when set,
// replaces the ticket's owning client.
func (s *TicketStore) UpsertOne(ctx context.Context, ticket *models.Ticket, clientID *int64) error {
	if ticket == nil || ticket.Key == "" {
		return apperrors.NewValidationError("ticket key is required", nil)
	}
	args, err := s.ticketArgs(ticket, clientID, s.now())
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO tickets (%s) VALUES %s %s",
		strings.Join(ticketColumns, ", "), placeholders(len(ticketColumns)), s.conflictClause())
	if _, err := s.db.Execute(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert ticket %s: %w", ticket.Key, err)
	}
	return nil
}

// BatchUpsert loads tickets in fixed-size batches. Each batch is staged in a
// temporary table and merged in one statement inside its own transaction.
// Failed batches are reported in the result; the error return is reserved for
// context cancellation.
func (s *TicketStore) BatchUpsert(ctx context.Context, tickets []*models.Ticket) (*models.BatchResult, error) {
	start := time.Now()
	unique := dedupeTickets(tickets)
	result := &models.BatchResult{
		Total:  len(unique),
		Errors: []models.BatchError{},
	}

	syncedAt := s.now()
	report, err := s.processor.Process(ctx, len(unique), func(ctx context.Context, from, to int) error {
		return s.mergeBatch(ctx, unique[from:to], syncedAt)
	})

	result.Processed = report.Processed
	for _, failure := range report.Failures {
		keys := make([]string, 0, failure.End-failure.Start)
		for _, t := range unique[failure.Start:failure.End] {
			keys = append(keys, t.Key)
		}
		result.Failed += len(keys)
		result.Errors = append(result.Errors, models.BatchError{
			Offset:  failure.Start,
			Keys:    keys,
			Message: failure.Err.Error(),
		})

		s.logger.WithFields(logrus.Fields{
			"batch_offset": failure.Start,
			"batch_size":   len(keys),
		}).WithError(failure.Err).Warn("Ticket batch failed")
	}

	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	if secs := elapsed.Seconds(); secs > 0 {
		result.Throughput = float64(result.Processed) / secs
	}

	return result, err
}

func (s *TicketStore) mergeBatch(ctx context.Context, tickets []*models.Ticket, syncedAt time.Time) error {
	stage := "ticket_stage_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	cols := strings.Join(ticketColumns, ", ")

	args := make([]interface{}, 0, len(tickets)*len(ticketColumns))
	rows := make([]string, 0, len(tickets))
	for _, t := range tickets {
		a, err := s.ticketArgs(t, nil, syncedAt)
		if err != nil {
			return err
		}
		args = append(args, a...)
		rows = append(rows, placeholders(len(ticketColumns)))
	}

	return s.db.InTx(ctx, func(q Querier) error {
		create := fmt.Sprintf("CREATE TEMP TABLE %s AS SELECT %s FROM tickets WHERE 1 = 0", stage, cols)
		if _, err := q.Execute(ctx, create); err != nil {
			return err
		}

		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", stage, cols, strings.Join(rows, ", "))
		if _, err := q.Execute(ctx, insert, args...); err != nil {
			return err
		}

		// WHERE true keeps SQLite from parsing ON CONFLICT as a join clause.
		merge := fmt.Sprintf("INSERT INTO tickets (%s) SELECT %s FROM %s WHERE true %s",
			cols, cols, stage, s.conflictClause())
		if _, err := q.Execute(ctx, merge); err != nil {
			return err
		}

		_, err := q.Execute(ctx, "DROP TABLE "+stage)
		return err
	})
}

// dedupeTickets keeps the last occurrence of each key, in first-seen order.
func dedupeTickets(tickets []*models.Ticket) []*models.Ticket {
	index := make(map[string]int, len(tickets))
	out := make([]*models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t == nil {
			continue
		}
		if i, ok := index[t.Key]; ok {
			out[i] = t
			continue
		}
		index[t.Key] = len(out)
		out = append(out, t)
	}
	return out
}

// GetTicket returns the ticket with the given key
func (s *TicketStore) GetTicket(ctx context.Context, key string) (*models.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE ticket_key = ?", strings.Join(ticketColumns, ", "))
	row, err := s.db.QueryOne(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if row == nil {
		return nil, apperrors.NewResourceNotFoundError("ticket", key)
	}
	return ticketFromRow(row)
}

// GetTickets returns tickets matching the filter, most recently updated first
func (s *TicketStore) GetTickets(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	var where []string
	var args []interface{}

	if filter.ClientID != nil {
		where = append(where, "client_id = ?")
		args = append(args, *filter.ClientID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Assignee != "" {
		where = append(where, "assignee = ?")
		args = append(args, filter.Assignee)
	}
	if filter.UpdatedSince != nil {
		where = append(where, "remote_updated_at >= ?")
		args = append(args, *filter.UpdatedSince)
	}
	if len(filter.Keys) > 0 {
		where = append(where, "ticket_key IN "+placeholders(len(filter.Keys)))
		for _, k := range filter.Keys {
			args = append(args, k)
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTicketLimit
	}
	if limit > maxTicketLimit {
		limit = maxTicketLimit
	}

	query := fmt.Sprintf("SELECT %s FROM tickets", strings.Join(ticketColumns, ", "))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY (remote_updated_at IS NULL), remote_updated_at DESC, ticket_key LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	tickets := make([]*models.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := ticketFromRow(row)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func ticketFromRow(row Row) (*models.Ticket, error) {
	t := &models.Ticket{
		Key:             row.String("ticket_key"),
		ClientID:        row.NullInt64("client_id"),
		ProjectKey:      row.String("project_key"),
		Summary:         row.String("summary"),
		Description:     row.String("description"),
		Status:          row.String("status"),
		Priority:        row.String("priority"),
		IssueType:       row.String("issue_type"),
		Assignee:        row.String("assignee"),
		Reporter:        row.String("reporter"),
		StoryPoints:     row.NullFloat64("story_points"),
		Sprint:          row.String("sprint"),
		EpicKey:         row.String("epic_key"),
		Team:            row.String("team"),
		RemoteCreatedAt: row.NullTime("remote_created_at"),
		RemoteUpdatedAt: row.NullTime("remote_updated_at"),
		LastSynced:      row.Time("last_synced"),
	}

	if err := decodeJSONColumn(row, "custom_fields", &t.CustomFields); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(row, "components", &t.Components); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(row, "labels", &t.Labels); err != nil {
		return nil, err
	}
	if t.CustomFields == nil {
		t.CustomFields = models.CustomFields{}
	}
	if t.Components == nil {
		t.Components = []string{}
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	return t, nil
}

func decodeJSONColumn(row Row, col string, dest interface{}) error {
	raw := row.String(col)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", col, err)
	}
	return nil
}

// DeleteStale removes tickets whose last_synced is strictly before the cutoff.
func (s *TicketStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.db.Execute(ctx, "DELETE FROM tickets WHERE last_synced < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale tickets: %w", err)
	}
	return n, nil
}

// CountStale counts the tickets DeleteStale would remove.
func (s *TicketStore) CountStale(ctx context.Context, before time.Time) (int64, error) {
	row, err := s.db.QueryOne(ctx, "SELECT COUNT(*) AS n FROM tickets WHERE last_synced < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale tickets: %w", err)
	}
	return row.Int64("n"), nil
}

func (s *TicketStore) CountTickets(ctx context.Context) (int64, error) {
	row, err := s.db.QueryOne(ctx, "SELECT COUNT(*) AS n FROM tickets")
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return row.Int64("n"), nil
}

// GetStatistics aggregates the ticket table
func (s *TicketStore) GetStatistics(ctx context.Context) (*models.TicketStatistics, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) AS total,
		COUNT(DISTINCT client_id) AS clients,
		COUNT(DISTINCT status) AS statuses,
		MIN(remote_updated_at) AS oldest,
		MAX(remote_updated_at) AS newest,
		AVG(%s) AS avg_epoch
		FROM tickets`, s.db.Dialect().EpochSeconds("remote_updated_at"))

	row, err := s.db.QueryOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tickets: %w", err)
	}

	stats := &models.TicketStatistics{
		TotalTickets:     row.Int64("total"),
		DistinctClients:  row.Int64("clients"),
		DistinctStatuses: row.Int64("statuses"),
		OldestUpdated:    row.NullTime("oldest"),
		NewestUpdated:    row.NullTime("newest"),
		ByStatus:         []models.StatusCount{},
		TopClients:       []models.ClientCount{},
	}
	if avg := row.NullFloat64("avg_epoch"); avg != nil {
		nowEpoch := float64(s.now().UnixNano()) / float64(time.Second)
		stats.AverageAgeDays = (nowEpoch - *avg) / 86400
	}

	statusRows, err := s.db.QueryAll(ctx, `SELECT status, COUNT(*) AS n FROM tickets
		GROUP BY status ORDER BY n DESC, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to group tickets by status: %w", err)
	}
	for _, r := range statusRows {
		stats.ByStatus = append(stats.ByStatus, models.StatusCount{Status: r.String("status"), Count: r.Int64("n")})
	}

	clientRows, err := s.db.QueryAll(ctx, `SELECT t.client_id AS client_id, COALESCE(c.name, '') AS name, COUNT(*) AS n
		FROM tickets t LEFT JOIN clients c ON c.id = t.client_id
		GROUP BY t.client_id, c.name ORDER BY n DESC, name LIMIT ?`, topClientsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to group tickets by client: %w", err)
	}
	for _, r := range clientRows {
		stats.TopClients = append(stats.TopClients, models.ClientCount{
			ClientID: r.NullInt64("client_id"),
			Name:     r.String("name"),
			Count:    r.Int64("n"),
		})
	}

	return stats, nil
}
