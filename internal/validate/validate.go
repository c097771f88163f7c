// Package validate provides the local, pre-submit validation rules shared by
// every entity form.
//
// Validation is field-scoped: each rule writes at most one message per field,
// and the first failing rule for a field wins. Rules never touch the network.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted date format for form fields.
const DateLayout = "2006-01-02"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Errors maps a form field name to its error message.
type Errors map[string]string

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = msg
}

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Rules accumulates field errors for one validation pass.
type Rules struct {
	errs Errors
}

// New starts a validation pass.
func New() *Rules {
	return &Rules{errs: make(Errors)}
}

// Errors returns the accumulated errors. The result is never nil.
func (r *Rules) Errors() Errors {
	return r.errs
}

// Valid reports whether no rule failed.
func (r *Rules) Valid() bool {
	return len(r.errs) == 0
}

// Check records msg for field when ok is false.
func (r *Rules) Check(field string, ok bool, msg string) *Rules {
	if !ok {
		r.errs.Add(field, msg)
	}
	return r
}

// Required fails when value is blank.
func (r *Rules) Required(field, label, value string) *Rules {
	return r.Check(field, strings.TrimSpace(value) != "", label+" is required")
}

// Email fails when a non-empty value is not an email address.
func (r *Rules) Email(field, value string) *Rules {
	if value == "" {
		return r
	}
	return r.Check(field, IsEmail(value), "Invalid email format")
}

// Numeric fails when a non-empty value is not a number.
func (r *Rules) Numeric(field, label, value string) *Rules {
	if strings.TrimSpace(value) == "" {
		return r
	}
	_, ok := ParseNumber(value)
	return r.Check(field, ok, label+" must be a valid number")
}

// Digits fails when a non-empty value contains anything but 0-9.
func (r *Rules) Digits(field, label, value string) *Rules {
	if value == "" {
		return r
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return r.Check(field, false, label+" must contain only digits")
		}
	}
	return r
}

// Positive fails when a non-empty value is not a number greater than zero.
func (r *Rules) Positive(field, label, value string) *Rules {
	if strings.TrimSpace(value) == "" {
		return r
	}
	n, ok := ParseNumber(value)
	if !ok {
		return r.Check(field, false, label+" must be a valid number")
	}
	return r.Check(field, n > 0, label+" must be greater than zero")
}

// Date fails when a non-empty value is not a YYYY-MM-DD date.
func (r *Rules) Date(field, label, value string) *Rules {
	if value == "" {
		return r
	}
	_, ok := ParseDate(value)
	return r.Check(field, ok, fmt.Sprintf("%s must be a valid date (YYYY-MM-DD)", label))
}

// DateAfter fails when both dates parse and value is not strictly after other.
func (r *Rules) DateAfter(field, msg, value, other string) *Rules {
	v, ok1 := ParseDate(value)
	o, ok2 := ParseDate(other)
	if !ok1 || !ok2 {
		return r
	}
	return r.Check(field, v.After(o), msg)
}

// NotEqual fails when both values are set and equal.
func (r *Rules) NotEqual(field, msg, a, b string) *Rules {
	if a == "" || b == "" {
		return r
	}
	return r.Check(field, a != b, msg)
}

// OneOf fails when a non-empty value is not one of options.
func (r *Rules) OneOf(field, label, value string, options []string) *Rules {
	if value == "" {
		return r
	}
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return r
		}
	}
	return r.Check(field, false, fmt.Sprintf("%s must be one of: %s", label, strings.Join(options, ", ")))
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ParseNumber parses a decimal, ignoring surrounding space and thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DatePart returns the YYYY-MM-DD prefix of a date or timestamp string,
// e.g. "2024-03-01T00:00:00.000000Z" becomes "2024-03-01".
func DatePart(s string) string {
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return s
}
