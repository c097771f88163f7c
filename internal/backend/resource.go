package backend

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// FieldErrors maps snake_case field names to messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Lookup resolves related records while validating and expanding.
type Lookup interface {
	Find(ctx context.Context, kind, id string) Record
	CountWhere(ctx context.Context, kind, field, value string) int
}

// Sequence generates numbers such as INV-0001 for blank fields.
type Sequence struct {
	Field  string
	Prefix string
}

// Transition is a side action: POST /api/<key>/<id>/<name>.
type Transition struct {
	// Allowed reports whether rec may take the transition; Denied is the
	// message returned when it may not.
	Allowed func(rec Record) bool
	Denied  string
	// Apply mutates rec. Field errors reject the request with 422.
	Apply   func(rec, body Record, now time.Time) FieldErrors
	Message string
}

// Resource holds the server-side rules of one entity.
type Resource struct {
	entity.Info

	Search   []string // fields matched by ?search=
	Filters  []string // fields matched exactly by ?<field>=
	Required []string
	Emails   []string
	Numbers  []string
	Dates    []string
	Enums    map[string][]string
	Unique   []string
	Sequence *Sequence
	Defaults Record

	// FilterAny maps a filter to the fields it matches when it names no
	// single field, e.g. account_id on either side of a journal entry.
	FilterAny map[string][]string

	// Check runs cross-field rules after the per-field ones pass.
	Check func(ctx context.Context, l Lookup, rec Record) FieldErrors

	// Prepare derives stored fields (totals, day counts) before a write.
	Prepare func(rec Record)

	// DeleteGuard returns a non-empty message when rec may not be deleted.
	DeleteGuard func(ctx context.Context, l Lookup, rec Record) string

	// Expand adds read-only fields (related names, counts) to responses.
	Expand func(ctx context.Context, l Lookup, rec Record)

	Actions map[string]Transition
}

// attribute turns a wire key into the name used in messages.
func attribute(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// validate normalises rec in place (numeric strings become numbers, dates
// are truncated) and returns every field failure.
func (r *Resource) validate(ctx context.Context, l Lookup, rec Record) FieldErrors {
	errs := make(FieldErrors)

	for _, f := range r.Required {
		if rec.Blank(f) {
			errs.Add(f, fmt.Sprintf("The %s field is required.", attribute(f)))
		}
	}
	for _, f := range r.Emails {
		if rec.Blank(f) || len(errs[f]) > 0 {
			continue
		}
		if !validate.IsEmail(rec.String(f)) {
			errs.Add(f, fmt.Sprintf("The %s must be a valid email address.", attribute(f)))
		}
	}
	for _, f := range r.Numbers {
		if rec.Blank(f) {
			if _, present := rec[f]; present {
				rec[f] = nil
			}
			continue
		}
		switch v := rec[f].(type) {
		case float64:
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
				errs.Add(f, fmt.Sprintf("The %s must be a number.", attribute(f)))
				continue
			}
			rec[f] = n
		default:
			errs.Add(f, fmt.Sprintf("The %s must be a number.", attribute(f)))
		}
	}
	for _, f := range r.Dates {
		if rec.Blank(f) {
			continue
		}
		t, ok := validate.ParseDate(validate.DatePart(rec.String(f)))
		if !ok {
			errs.Add(f, fmt.Sprintf("The %s is not a valid date.", attribute(f)))
			continue
		}
		rec[f] = t.Format(validate.DateLayout)
	}
	for f, options := range r.Enums {
		if rec.Blank(f) {
			continue
		}
		if !slices.Contains(options, rec.String(f)) {
			errs.Add(f, fmt.Sprintf("The selected %s is invalid.", attribute(f)))
		}
	}

	if len(errs) == 0 && r.Check != nil {
		for f, msgs := range r.Check(ctx, l, rec) {
			errs[f] = append(errs[f], msgs...)
		}
	}
	return errs
}

// unique reports fields whose value another record of the kind already uses.
func (r *Resource) unique(rec Record, others []Record) FieldErrors {
	errs := make(FieldErrors)
	for _, f := range r.Unique {
		if rec.Blank(f) {
			continue
		}
		v := strings.ToLower(rec.String(f))
		for _, o := range others {
			if o.ID() != rec.ID() && strings.ToLower(o.String(f)) == v {
				errs.Add(f, fmt.Sprintf("The %s has already been taken.", attribute(f)))
				break
			}
		}
	}
	return errs
}

// nextNumber fills the sequence field when blank.
func (r *Resource) nextNumber(rec Record, others []Record) {
	seq := r.Sequence
	if seq == nil || !rec.Blank(seq.Field) {
		return
	}
	taken := make(map[string]bool, len(others))
	for _, o := range others {
		taken[o.String(seq.Field)] = true
	}
	for n := len(others) + 1; ; n++ {
		candidate := fmt.Sprintf("%s%04d", seq.Prefix, n)
		if !taken[candidate] {
			rec[seq.Field] = candidate
			return
		}
	}
}

// matches applies ?search= and the exact filters to rec.
func (r *Resource) matches(rec Record, search string, filters map[string]string) bool {
	for f, want := range filters {
		fields, ok := r.FilterAny[f]
		if !ok {
			fields = []string{f}
		}
		if !slices.ContainsFunc(fields, func(name string) bool { return rec.String(name) == want }) {
			return false
		}
	}
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range r.Search {
		if strings.Contains(strings.ToLower(rec.String(f)), search) {
			return true
		}
	}
	return false
}

// fromStatus allows a transition only from the listed statuses.
func fromStatus(statuses ...string) func(Record) bool {
	return func(rec Record) bool { return slices.Contains(statuses, rec.String("status")) }
}

// setStatus moves rec to status and stamps stampField, if any, with now.
func setStatus(status, stampField string) func(rec, body Record, now time.Time) FieldErrors {
	return func(rec, _ Record, now time.Time) FieldErrors {
		rec["status"] = status
		if stampField != "" {
			rec[stampField] = now.UTC().Format(time.RFC3339)
		}
		return nil
	}
}
