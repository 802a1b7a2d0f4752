package db

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row keyed by column name. The accessors absorb the
// differences in how the backends return values.
type Row map[string]interface{}

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) NullInt64(col string) *int64 {
	v, ok := toInt64(r[col])
	if !ok {
		return nil
	}
	return &v
}

func (r Row) Int64(col string) int64 {
	v, _ := toInt64(r[col])
	return v
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	}
	return 0, false
}

func (r Row) NullFloat64(col string) *float64 {
	v, ok := toFloat64(r[col])
	if !ok {
		return nil
	}
	return &v
}

func (r Row) Float64(col string) float64 {
	v, _ := toFloat64(r[col])
	return v
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func (r Row) NullTime(col string) *time.Time {
	v, ok := toTime(r[col])
	if !ok {
		return nil
	}
	return &v
}

func (r Row) Time(col string) time.Time {
	v, _ := toTime(r[col])
	return v
}

func toTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
	case int64:
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}
