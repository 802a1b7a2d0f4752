package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// ClientStore resolves remote projects to owning client rows.
type ClientStore struct {
	db  Adapter
	now func() time.Time
}

func NewClientStore(adapter Adapter) *ClientStore {
	return &ClientStore{db: adapter, now: time.Now}
}

// UpsertForProject returns the id of the client owning the project, creating
// it when missing. created reports whether a new row was inserted.
func (s *ClientStore) UpsertForProject(ctx context.Context, project models.Project) (id int64, created bool, err error) {
	name := project.Name
	if name == "" {
		name = project.Key
	}
	now := s.now()

	row, err := s.db.QueryOne(ctx, "SELECT id FROM clients WHERE project_key = ?", project.Key)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up client: %w", err)
	}
	if row != nil {
		id = row.Int64("id")
		if _, err := s.db.Execute(ctx, "UPDATE clients SET name = ?, updated_at = ? WHERE id = ?", name, now, id); err != nil {
			return 0, false, fmt.Errorf("failed to update client: %w", err)
		}
		return id, false, nil
	}

	row, err = s.db.QueryOne(ctx, `INSERT INTO clients (name, project_key, created_at, updated_at)
		VALUES (?, ?, ?, ?) RETURNING id`, name, project.Key, now, now)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create client: %w", err)
	}
	return row.Int64("id"), true, nil
}

// GetByProjectKey returns the client for a project, or nil when there is none.
func (s *ClientStore) GetByProjectKey(ctx context.Context, projectKey string) (*models.Client, error) {
	row, err := s.db.QueryOne(ctx, `SELECT id, name, project_key, created_at, updated_at
		FROM clients WHERE project_key = ?`, projectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	if row == nil {
		return nil, nil
	}

	c := &models.Client{
		Name:       row.String("name"),
		ProjectKey: row.String("project_key"),
	}
	c.ID = row.Int64("id")
	c.CreatedAt = row.Time("created_at")
	c.UpdatedAt = row.Time("updated_at")
	return c, nil
}
