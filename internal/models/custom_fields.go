package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FieldKind string

const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
	KindArray  FieldKind = "array"
)

// dateLayouts are tried in order when a string value could be a date.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02",
}

// objectLabelKeys are the properties used to flatten option-like objects
// (select lists, users, sprints) into a string.
var objectLabelKeys = []string{"value", "name", "displayName", "key", "id"}

// FieldValue is one custom field value. Exactly one of the payload fields is
// meaningful, selected by Kind.
type FieldValue struct {
	Kind  FieldKind
	Str   string
	Num   float64
	Date  time.Time
	Items []FieldValue
}

// CustomFields is the schema-less bag of remote custom fields keyed by field id.
type CustomFields map[string]FieldValue

func StringValue(s string) FieldValue { return FieldValue{Kind: KindString, Str: s} }

func NumberValue(n float64) FieldValue { return FieldValue{Kind: KindNumber, Num: n} }

func DateValue(t time.Time) FieldValue { return FieldValue{Kind: KindDate, Date: t.UTC()} }

func ArrayValue(items ...FieldValue) FieldValue { return FieldValue{Kind: KindArray, Items: items} }

// Number returns the numeric value, parsing strings when needed.
func (v FieldValue) Number() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return n, err == nil
	}
	return 0, false
}

// Text renders the value as a string. Arrays render as their last element,
// which for sprint fields is the current sprint.
func (v FieldValue) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		return v.Date.Format(time.RFC3339)
	case KindArray:
		if len(v.Items) == 0 {
			return ""
		}
		return v.Items[len(v.Items)-1].Text()
	}
	return ""
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindDate:
		return json.Marshal(v.Date.Format(time.RFC3339Nano))
	case KindArray:
		items := v.Items
		if items == nil {
			items = []FieldValue{}
		}
		return json.Marshal(items)
	}
	return []byte("null"), nil
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = FieldValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = inferString(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]FieldValue, 0, len(raw))
		for _, r := range raw {
			var item FieldValue
			if err := item.UnmarshalJSON(r); err != nil {
				return err
			}
			if item.Kind != "" {
				items = append(items, item)
			}
		}
		*v = ArrayValue(items...)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for _, key := range objectLabelKeys {
			var s string
			if raw, ok := obj[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
				*v = StringValue(s)
				return nil
			}
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err != nil {
			return err
		}
		*v = StringValue(compact.String())
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = StringValue(strconv.FormatBool(b))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported custom field value %s: %w", data, err)
		}
		*v = NumberValue(n)
	}
	return nil
}

func inferString(s string) FieldValue {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateValue(t)
		}
	}
	return StringValue(s)
}

// UnmarshalJSON drops null values so an absent field and a cleared field look the same.
func (c *CustomFields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(CustomFields, len(raw))
	for key, r := range raw {
		var v FieldValue
		if err := v.UnmarshalJSON(r); err != nil {
			return fmt.Errorf("custom field %s: %w", key, err)
		}
		if v.Kind != "" {
			out[key] = v
		}
	}
	*c = out
	return nil
}
