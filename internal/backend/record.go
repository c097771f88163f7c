// Package backend is a self-contained REST backend for the dashboard. It
// serves every entity under /api with the success/message/data/errors
// envelope, validates writes server-side, runs side actions as status
// transitions and records mutations in an audit log.
//
// Records are stored as JSON objects in a Repository: in memory, or in a
// single PostgreSQL JSONB table.
package backend

import (
	"maps"
	"math"
	"strconv"
	"strings"
)

// Record is one stored entity: a JSON object with snake_case keys.
type Record map[string]any

// ID returns the record's "id".
func (r Record) ID() string { return r.String("id") }

// String returns the value at key as text. Numbers are formatted without
// trailing zeros; nil and missing keys yield "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Number returns the value at key as a float. Numeric strings are parsed;
// anything else is 0.
func (r Record) Number(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Bool returns the value at key as a bool. "true"/"1" strings count as true.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Blank reports whether key is missing, null or whitespace.
func (r Record) Blank(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && strings.TrimSpace(s) == ""
}

// Clone returns a shallow copy. Nested values are replaced, never mutated.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Merge copies every key of patch into r.
func (r Record) Merge(patch Record) {
	for k, v := range patch {
		r[k] = v
	}
}

func roundCents(v float64) float64 {
	if v < 0 {
		return -roundCents(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
