package db

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// sqliteTimeLayout is fixed width so that text comparison orders like time.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// Dialect hides the differences between the two backends. Callers write
// statements with `?` placeholders and plain Go values.
type Dialect interface {
	Name() string
	// Rebind rewrites `?` placeholders into the backend's native form.
	Rebind(query string) string
	// BindValue converts a Go value into one the backend driver accepts.
	BindValue(v interface{}) (interface{}, error)
	TableExistsQuery() string
	// Greatest returns an expression selecting the larger of two values.
	Greatest(a, b string) string
	// EpochSeconds returns an expression converting a timestamp to unix seconds.
	EpochSeconds(expr string) string

	gooseDialect() string
	migrationsDir() string
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Rebind(query string) string { return rebindDollar(query) }

func (postgresDialect) BindValue(v interface{}) (interface{}, error) {
	v, err := normalizeValue(v)
	if err != nil {
		return nil, err
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC(), nil
	}
	return v, nil
}

func (postgresDialect) TableExistsQuery() string {
	return `SELECT 1 AS present FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ?`
}

func (postgresDialect) Greatest(a, b string) string { return fmt.Sprintf("GREATEST(%s, %s)", a, b) }

func (postgresDialect) EpochSeconds(expr string) string {
	return fmt.Sprintf("EXTRACT(EPOCH FROM %s)", expr)
}

func (postgresDialect) gooseDialect() string  { return "postgres" }
func (postgresDialect) migrationsDir() string { return "migrations/postgres" }

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) BindValue(v interface{}) (interface{}, error) {
	v, err := normalizeValue(v)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return x.UTC().Format(sqliteTimeLayout), nil
	}
	return v, nil
}

func (sqliteDialect) TableExistsQuery() string {
	return `SELECT 1 AS present FROM sqlite_master WHERE type = 'table' AND name = ?`
}

// Scalar MAX with two arguments is SQLite's GREATEST.
func (sqliteDialect) Greatest(a, b string) string { return fmt.Sprintf("MAX(%s, %s)", a, b) }

func (sqliteDialect) EpochSeconds(expr string) string {
	return fmt.Sprintf("((julianday(%s) - 2440587.5) * 86400.0)", expr)
}

func (sqliteDialect) gooseDialect() string  { return "sqlite3" }
func (sqliteDialect) migrationsDir() string { return "migrations/sqlite" }

// normalizeValue reduces a parameter to nil, int64, float64, string, bool,
// []byte or time.Time.
func normalizeValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64, float64, string, bool, []byte, time.Time:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case driver.Valuer:
		val, err := x.Value()
		if err != nil {
			return nil, err
		}
		return normalizeValue(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeValue(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	}
	return nil, fmt.Errorf("unsupported parameter type %T", v)
}

// rebindDollar turns `?` into `$1..$N`, leaving quoted text and comments alone.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	var quote byte
	lineComment, blockComment := false, false
	for i := 0; i < len(query); i++ {
		c := query[i]
		var next byte
		if i+1 < len(query) {
			next = query[i+1]
		}

		switch {
		case lineComment:
			if c == '\n' {
				lineComment = false
			}
		case blockComment:
			if c == '*' && next == '/' {
				blockComment = false
				b.WriteByte(c)
				i++
				c = next
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && next == '-':
			lineComment = true
		case c == '/' && next == '*':
			blockComment = true
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
