// Package entity defines the business entities the dashboard manages: their
// wire records, edit forms, local validation rules, field maps, table columns
// and side actions.
//
// Each entity file exposes a typed Definition constructor and registers the
// entity's Info with the package registry from init().
package entity

import (
	"slices"
	"strings"

	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/form"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// Groups shown on the dashboard.
const (
	GroupHR         = "HR"
	GroupAccounting = "Accounting"
	GroupInventory  = "Inventory"
)

// FieldType is the input kind of a form field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldEmail
	FieldTextarea
	// FieldLines is a multi-line field holding one line item per line.
	FieldLines
)

// FieldSpec describes one form input.
type FieldSpec struct {
	Name     string // form field name, e.g. "firstName"
	Label    string // "First Name"
	Type     FieldType
	Required bool
	Options  []string // FieldEnum choices
	Help     string
}

// FilterSpec describes one list filter. Name is the wire query key.
type FilterSpec struct {
	Name    string
	Label   string
	Options []string
}

// Info is the untyped description of an entity.
type Info struct {
	Key         string // URL segment and resource path: "journal-entries"
	ListKey     string // key list responses nest rows under: "journal_entries"
	Group       string // "Accounting"
	Label       string // singular display name: "Journal Entry"
	Plural      string // "Journal Entries"
	Description string
	Filters     []FilterSpec
}

// SideAction is an entity-specific endpoint such as approve or post.
type SideAction[T any] struct {
	Name    string // path segment: POST /api/<entities>/:id/<name>
	Label   string
	Icon    string
	Variant table.ActionVariant
	// Applies reports whether the action is offered for a record.
	Applies func(T) bool
}

// Definition is everything the store, the dashboard and the CLI need to
// know about one entity.
type Definition[T any, F any] struct {
	Info
	PerPage    int
	Fields     []FieldSpec
	FieldMap   *fieldmap.Map
	ID         func(T) string
	NewForm    func() F
	Validate   func(F) validate.Errors
	Payload    func(F) any
	FromRecord func(T) F
	Columns    []table.Column[T]
	Actions    []SideAction[T]
}

// Schema adapts the definition for store.New.
func (d Definition[T, F]) Schema() store.Schema[T, F] {
	return store.Schema[T, F]{
		Entity:     d.Key,
		Label:      strings.ToLower(d.Label),
		PerPage:    d.PerPage,
		Fields:     d.FieldMap,
		ID:         d.ID,
		NewForm:    d.NewForm,
		Validate:   d.Validate,
		Payload:    d.Payload,
		FromRecord: d.FromRecord,
	}
}

// Field returns the FieldSpec of the named form field.
func (d Definition[T, F]) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Action returns the side action with the given name.
func (d Definition[T, F]) Action(name string) (SideAction[T], bool) {
	for _, a := range d.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return SideAction[T]{}, false
}

// wirePayload converts a form into a snake_case request body. Fields listed
// in numbers are sent as numbers when they parse; blank numbers are sent
// as null.
func wirePayload(fm *fieldmap.Map, f any, numbers ...string) map[string]any {
	out := make(map[string]any, len(fm.Fields()))
	for _, name := range fm.Fields() {
		v, ok := form.Get(f, name)
		if !ok {
			continue
		}
		key := fm.ToSnake(name)
		s, isString := v.(string)
		if !isString {
			out[key] = v
			continue
		}
		s = strings.TrimSpace(s)
		if slices.Contains(numbers, name) {
			if s == "" {
				out[key] = nil
			} else if n, ok := validate.ParseNumber(s); ok {
				out[key] = n
			} else {
				out[key] = s
			}
			continue
		}
		out[key] = s
	}
	return out
}
