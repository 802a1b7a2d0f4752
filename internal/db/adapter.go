package db

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
)

// Querier runs statements written with `?` placeholders.
type Querier interface {
	Execute(ctx context.Context, query string, args ...interface{}) (int64, error)
	// QueryOne returns a nil Row when nothing matches.
	QueryOne(ctx context.Context, query string, args ...interface{}) (Row, error)
	QueryAll(ctx context.Context, query string, args ...interface{}) ([]Row, error)
}

// Adapter is the uniform interface over the storage backends.
type Adapter interface {
	Querier
	ExecuteScript(ctx context.Context, script string) error
	TableExists(ctx context.Context, name string) (bool, error)
	// InTx runs fn on a single connection inside a transaction. Temporary
	// tables created by fn are visible to every statement fn issues.
	InTx(ctx context.Context, fn func(q Querier) error) error
	Dialect() Dialect
	DB() *sql.DB
	Ping(ctx context.Context) error
	Close() error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type sqlQuerier struct {
	conn    execer
	dialect Dialect
}

func (q *sqlQuerier) prepare(op, query string, args []interface{}) (string, []interface{}, error) {
	bound := make([]interface{}, len(args))
	for i, arg := range args {
		v, err := q.dialect.BindValue(arg)
		if err != nil {
			return "", nil, apperrors.NewStorageError(op, query, fmt.Errorf("parameter %d: %w", i+1, err))
		}
		bound[i] = v
	}
	return q.dialect.Rebind(query), bound, nil
}

func (q *sqlQuerier) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	stmt, bound, err := q.prepare("execute", query, args)
	if err != nil {
		return 0, err
	}

	res, err := q.conn.ExecContext(ctx, stmt, bound...)
	if err != nil {
		return 0, apperrors.NewStorageError("execute", query, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("execute", query, err)
	}
	return n, nil
}

func (q *sqlQuerier) QueryOne(ctx context.Context, query string, args ...interface{}) (Row, error) {
	rows, err := q.query(ctx, "query one", query, args, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (q *sqlQuerier) QueryAll(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	return q.query(ctx, "query all", query, args, 0)
}

func (q *sqlQuerier) query(ctx context.Context, op, query string, args []interface{}, limit int) ([]Row, error) {
	stmt, bound, err := q.prepare(op, query, args)
	if err != nil {
		return nil, err
	}

	rows, err := q.conn.QueryContext(ctx, stmt, bound...)
	if err != nil {
		return nil, apperrors.NewStorageError(op, query, err)
	}
	defer rows.Close()

	result, err := scanRows(rows, limit)
	if err != nil {
		return nil, apperrors.NewStorageError(op, query, err)
	}
	return result, nil
}

// scanRows reads up to limit rows (all rows when limit is 0).
func scanRows(rows *sql.Rows, limit int) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)

		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, rows.Err()
}

// sqlAdapter implements Adapter on top of database/sql for either dialect.
type sqlAdapter struct {
	sqlQuerier
	db *sql.DB
}

func newSQLAdapter(db *sql.DB, dialect Dialect) *sqlAdapter {
	return &sqlAdapter{
		sqlQuerier: sqlQuerier{conn: db, dialect: dialect},
		db:         db,
	}
}

func (a *sqlAdapter) ExecuteScript(ctx context.Context, script string) error {
	if _, err := a.db.ExecContext(ctx, script); err != nil {
		return apperrors.NewStorageError("execute script", script, err)
	}
	return nil
}

func (a *sqlAdapter) TableExists(ctx context.Context, name string) (bool, error) {
	row, err := a.QueryOne(ctx, a.dialect.TableExistsQuery(), name)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (a *sqlAdapter) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin", "", err)
	}

	if err := fn(&sqlQuerier{conn: tx, dialect: a.dialect}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit", "", err)
	}
	return nil
}

func (a *sqlAdapter) Dialect() Dialect { return a.dialect }

func (a *sqlAdapter) DB() *sql.DB { return a.db }

func (a *sqlAdapter) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return apperrors.NewStorageError("ping", "", err)
	}
	return nil
}

func (a *sqlAdapter) Close() error {
	return a.db.Close()
}
