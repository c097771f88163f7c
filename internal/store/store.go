// Package store implements the client-side state container for one entity:
// the form being edited and its field errors, the fetched records, the
// loading/error flags, server pagination and the active filters, plus the
// async operations that keep that state in step with the REST backend.
//
// One Store is constructed per entity at application start and shared by
// every caller. State is guarded by a mutex and handed out as copies.
//
// Failure semantics: every operation catches its own failures, records a
// user-facing message in State.Error (or field messages in State.Errors) and
// returns the error for callers that want to branch on it. The store stays
// usable after any failure.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/form"
	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/metrics"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// Filter keys with special meaning. Everything else is passed through as an
// entity-specific filter.
const (
	FilterSearch  = "search"
	FilterPage    = "page"
	FilterPerPage = "per_page"
)

// DefaultPerPage is the server page size when the schema sets none.
const DefaultPerPage = 15

// ErrNotFound is returned by GetOne when the backend answers 404.
var ErrNotFound = errors.New("record not found")

// Service is the HTTP collaborator a store talks to. *api.Resource satisfies it.
type Service[T any] interface {
	List(ctx context.Context, query url.Values) (api.Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, body any) (*T, string, error)
	Update(ctx context.Context, id string, body any) (*T, string, error)
	Delete(ctx context.Context, id string) (string, error)
	Action(ctx context.Context, id, action string, body any) (*T, string, error)
}

// Schema describes an entity to the store.
type Schema[T any, F any] struct {
	Entity   string // plural resource name, e.g. "invoices"
	Label    string // singular label for messages, e.g. "invoice"
	PerPage  int
	Fields   *fieldmap.Map
	ID       func(T) string
	NewForm  func() F
	Validate func(F) validate.Errors
	Payload  func(F) any
	// FromRecord maps a wire record to the edit form.
	FromRecord func(T) F
}

// State is a snapshot of a store.
type State[T any, F any] struct {
	FormData   F
	Errors     validate.Errors
	IsOpen     bool
	Records    []T
	Loading    bool
	Error      string
	Message    string // last success message from the server
	Pagination api.Pagination
	Filters    map[string]string
}

// ValidationError carries server field errors already mapped to form names.
type ValidationError struct {
	Fields  validate.Errors
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// Store is the state container for one entity.
type Store[T any, F any] struct {
	schema Schema[T, F]
	svc    Service[T]
	fields []string

	mu         sync.Mutex
	state      State[T, F]
	generation uint64

	listenerMu   sync.Mutex
	listeners    map[int]func(State[T, F])
	nextListener int
}

// New creates a store with an empty form and default filters.
func New[T any, F any](svc Service[T], schema Schema[T, F]) *Store[T, F] {
	if schema.PerPage <= 0 {
		schema.PerPage = DefaultPerPage
	}
	if schema.Fields == nil {
		schema.Fields = fieldmap.FromStruct[F]()
	}
	if schema.NewForm == nil {
		schema.NewForm = func() F {
			var f F
			return f
		}
	}
	s := &Store[T, F]{
		schema:    schema,
		svc:       svc,
		fields:    form.Fields[F](),
		listeners: make(map[int]func(State[T, F])),
	}
	s.state = State[T, F]{
		FormData: schema.NewForm(),
		Errors:   make(validate.Errors),
		Filters:  s.defaultFilters(),
	}
	return s
}

// Entity returns the schema's entity name.
func (s *Store[T, F]) Entity() string {
	return s.schema.Entity
}

// Schema returns the store's schema.
func (s *Store[T, F]) Schema() Schema[T, F] {
	return s.schema
}

// Snapshot returns a copy of the current state.
func (s *Store[T, F]) Snapshot() State[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store[T, F]) copyLocked() State[T, F] {
	st := s.state
	st.Records = slices.Clone(s.state.Records)
	st.Errors = s.state.Errors.Clone()
	st.Filters = make(map[string]string, len(s.state.Filters))
	for k, v := range s.state.Filters {
		st.Filters[k] = v
	}
	return st
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (s *Store[T, F]) Subscribe(fn func(State[T, F])) (cancel func()) {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// update applies fn under the state lock, then notifies subscribers.
func (s *Store[T, F]) update(fn func(st *State[T, F])) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.copyLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store[T, F]) notify(snap State[T, F]) {
	s.listenerMu.Lock()
	fns := make([]func(State[T, F]), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// ---------------------------------------------------------------------------
// Form
// ---------------------------------------------------------------------------

// UpdateField writes value into the form and clears that field's error.
// The field is not re-validated until the next ValidateForm.
func (s *Store[T, F]) UpdateField(field string, value any) error {
	var err error
	s.update(func(st *State[T, F]) {
		if err = form.Set(&st.FormData, field, value); err != nil {
			return
		}
		delete(st.Errors, field)
	})
	return err
}

// UpdateForm applies fn to the form data. Used by entity-specific editors
// such as purchase order line items.
func (s *Store[T, F]) UpdateForm(fn func(f *F)) {
	s.update(func(st *State[T, F]) {
		fn(&st.FormData)
	})
}

// ValidateForm runs the schema's local rules, replaces Errors with the result
// and reports whether the form is valid. No network call is made.
func (s *Store[T, F]) ValidateForm() bool {
	var valid bool
	s.update(func(st *State[T, F]) {
		errs := make(validate.Errors)
		if s.schema.Validate != nil {
			for field, msg := range s.schema.Validate(st.FormData) {
				if s.isField(field) {
					errs[field] = msg
				}
			}
		}
		st.Errors = errs
		valid = len(errs) == 0
	})
	return valid
}

// ResetForm restores the empty form and clears field errors.
func (s *Store[T, F]) ResetForm() {
	s.update(func(st *State[T, F]) {
		st.FormData = s.schema.NewForm()
		st.Errors = make(validate.Errors)
	})
}

// SetOpen records the dialog state. Closing the dialog resets the form.
func (s *Store[T, F]) SetOpen(open bool) {
	s.update(func(st *State[T, F]) {
		st.IsOpen = open
		if !open {
			st.FormData = s.schema.NewForm()
			st.Errors = make(validate.Errors)
		}
	})
}

// LoadForEdit fills the form from a server record and clears field errors.
func (s *Store[T, F]) LoadForEdit(rec T) {
	s.update(func(st *State[T, F]) {
		if s.schema.FromRecord != nil {
			st.FormData = s.schema.FromRecord(rec)
		}
		st.Errors = make(validate.Errors)
	})
}

// ClearError dismisses the error banner.
func (s *Store[T, F]) ClearError() {
	s.update(func(st *State[T, F]) {
		st.Error = ""
	})
}

func (s *Store[T, F]) isField(name string) bool {
	return slices.Contains(s.fields, name)
}

// ---------------------------------------------------------------------------
// Filters
// ---------------------------------------------------------------------------

func (s *Store[T, F]) defaultFilters() map[string]string {
	return map[string]string{
		FilterPage:    "1",
		FilterPerPage: strconv.Itoa(s.schema.PerPage),
	}
}

// SetFilters merges partial into the filters. An empty value removes the key.
// Changing any filter other than the page resets the page to 1. No fetch is
// issued; call FetchRecords afterwards.
func (s *Store[T, F]) SetFilters(partial map[string]string) {
	s.update(func(st *State[T, F]) {
		resetPage := false
		for k, v := range partial {
			if k != FilterPage && st.Filters[k] != v {
				resetPage = true
			}
			if v == "" {
				delete(st.Filters, k)
				continue
			}
			st.Filters[k] = v
		}
		if _, explicit := partial[FilterPage]; resetPage && !explicit {
			st.Filters[FilterPage] = "1"
		}
		if st.Filters[FilterPage] == "" {
			st.Filters[FilterPage] = "1"
		}
		if st.Filters[FilterPerPage] == "" {
			st.Filters[FilterPerPage] = strconv.Itoa(s.schema.PerPage)
		}
	})
}

// SetPage selects the server page for the next fetch.
func (s *Store[T, F]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.SetFilters(map[string]string{FilterPage: strconv.Itoa(page)})
}

// ClearFilters restores the default filters.
func (s *Store[T, F]) ClearFilters() {
	s.update(func(st *State[T, F]) {
		st.Filters = s.defaultFilters()
	})
}

func (s *Store[T, F]) queryLocked() url.Values {
	q := make(url.Values, len(s.state.Filters))
	for k, v := range s.state.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// ---------------------------------------------------------------------------
// Remote operations
// ---------------------------------------------------------------------------

// FetchRecords loads the page selected by the current filters and replaces
// Records and Pagination wholesale. On failure Error is set and the previous
// records are kept.
//
// Each fetch takes a generation number; a response that arrives after a newer
// fetch was issued is discarded instead of overwriting newer state.
func (s *Store[T, F]) FetchRecords(ctx context.Context) error {
	var (
		gen   uint64
		query url.Values
	)
	s.update(func(st *State[T, F]) {
		s.generation++
		gen = s.generation
		query = s.queryLocked()
		st.Loading = true
		st.Error = ""
	})

	page, err := s.svc.List(ctx, query)

	stale := false
	s.update(func(st *State[T, F]) {
		if gen != s.generation {
			stale = true
			return
		}
		st.Loading = false
		if err != nil {
			st.Error = s.message(err, "fetch")
			return
		}
		st.Records = page.Items
		st.Pagination = page.Pagination
	})

	if stale {
		metrics.StaleResponses.WithLabelValues(s.schema.Entity).Inc()
		logging.ForOperation(ctx, s.schema.Entity, "fetch").Debug("discarded stale list response", "generation", gen)
		return nil
	}
	s.record(ctx, "fetch", err)
	return err
}

// GetOne fetches a single record. It does not touch Records.
func (s *Store[T, F]) GetOne(ctx context.Context, id string) (*T, error) {
	s.begin()

	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		if apiErr, ok := api.AsError(err); ok && apiErr.Status == http.StatusNotFound {
			err = fmt.Errorf("%w: %s %s", ErrNotFound, s.schema.Label, id)
		}
		s.update(func(st *State[T, F]) {
			st.Loading = false
			st.Error = s.message(err, "load")
		})
		s.record(ctx, "get", err)
		return nil, err
	}

	s.update(func(st *State[T, F]) { st.Loading = false })
	s.record(ctx, "get", nil)
	return &rec, nil
}

// Create posts data. Local validation is the caller's job (ValidateForm).
// On success the new record is prepended to Records, field errors are
// cleared, and a FetchRecords reconciles the page. Server field errors are
// mapped onto Errors and returned as *ValidationError; the dialog state is
// left alone.
func (s *Store[T, F]) Create(ctx context.Context, data F) (*T, error) {
	s.begin()

	rec, msg, err := s.svc.Create(ctx, s.payload(data))
	if err != nil {
		err = s.fail(ctx, "create", err)
		return nil, err
	}

	s.update(func(st *State[T, F]) {
		st.Loading = false
		st.Errors = make(validate.Errors)
		st.Message = msg
		if rec != nil {
			st.Records = append([]T{*rec}, st.Records...)
		}
	})
	s.record(ctx, "create", nil)

	// Reconciliation failures land in State.Error; the create itself succeeded.
	_ = s.FetchRecords(ctx)
	return rec, nil
}

// Update puts data for id and replaces the matching record in place.
// No refetch is issued.
func (s *Store[T, F]) Update(ctx context.Context, id string, data F) (*T, error) {
	s.begin()

	rec, msg, err := s.svc.Update(ctx, id, s.payload(data))
	if err != nil {
		err = s.fail(ctx, "update", err)
		return nil, err
	}

	s.update(func(st *State[T, F]) {
		st.Loading = false
		st.Errors = make(validate.Errors)
		st.Message = msg
		if rec != nil {
			s.replaceLocked(st, id, *rec)
		}
	})
	s.record(ctx, "update", nil)
	return rec, nil
}

// Delete removes id on the server, drops it from Records, then refetches to
// reconcile pagination. On failure the record stays and Error is set.
func (s *Store[T, F]) Delete(ctx context.Context, id string) error {
	s.begin()

	msg, err := s.svc.Delete(ctx, id)
	if err != nil {
		s.update(func(st *State[T, F]) {
			st.Loading = false
			st.Error = s.message(err, "delete")
		})
		s.record(ctx, "delete", err)
		return err
	}

	s.update(func(st *State[T, F]) {
		st.Loading = false
		st.Message = msg
		st.Records = slices.DeleteFunc(st.Records, func(r T) bool {
			return s.schema.ID(r) == id
		})
	})
	s.record(ctx, "delete", nil)

	_ = s.FetchRecords(ctx)
	return nil
}

// Action invokes a side action (approve, post, pay, record-payment, ...) and
// replaces the record in place when the server returns it.
func (s *Store[T, F]) Action(ctx context.Context, id, action string, body any) (*T, error) {
	s.begin()

	rec, msg, err := s.svc.Action(ctx, id, action, body)
	if err != nil {
		err = s.fail(ctx, action, err)
		return nil, err
	}

	s.update(func(st *State[T, F]) {
		st.Loading = false
		st.Message = msg
		if rec != nil {
			s.replaceLocked(st, id, *rec)
		}
	})
	s.record(ctx, action, nil)
	return rec, nil
}

func (s *Store[T, F]) begin() {
	s.update(func(st *State[T, F]) {
		st.Loading = true
		st.Error = ""
		st.Message = ""
	})
}

func (s *Store[T, F]) payload(data F) any {
	if s.schema.Payload != nil {
		return s.schema.Payload(data)
	}
	return data
}

func (s *Store[T, F]) replaceLocked(st *State[T, F], id string, rec T) {
	for i := range st.Records {
		if s.schema.ID(st.Records[i]) == id {
			st.Records[i] = rec
			return
		}
	}
}

// fail records a mutation failure. Field-keyed server errors become form
// errors plus a summary banner; anything else becomes the banner only.
func (s *Store[T, F]) fail(ctx context.Context, op string, err error) error {
	apiErr, ok := api.AsError(err)
	if !ok || !apiErr.HasFieldErrors() {
		s.update(func(st *State[T, F]) {
			st.Loading = false
			st.Error = s.message(err, op)
		})
		s.record(ctx, op, err)
		return err
	}

	fields, leftovers := s.MapServerErrors(apiErr.FieldErrors)
	summary := apiErr.Message
	if summary == "" {
		summary = "Please correct the highlighted fields"
	}
	if len(leftovers) > 0 {
		summary += ": " + strings.Join(leftovers, "; ")
	}

	s.update(func(st *State[T, F]) {
		st.Loading = false
		st.Errors = fields.Clone()
		st.Error = summary
	})
	s.record(ctx, op, err)
	return &ValidationError{Fields: fields, Message: summary}
}

// MapServerErrors converts snake_case server error keys to form field names.
// The first message of each key is kept. Keys that do not name a form field
// are returned as leftover messages so Errors only ever holds form fields.
func (s *Store[T, F]) MapServerErrors(server map[string][]string) (validate.Errors, []string) {
	fields := make(validate.Errors, len(server))
	var leftovers []string

	keys := make([]string, 0, len(server))
	for k := range server {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		msgs := server[key]
		if len(msgs) == 0 {
			continue
		}
		camel := s.schema.Fields.ToCamel(key)
		if s.isField(camel) {
			fields[camel] = msgs[0]
			continue
		}
		leftovers = append(leftovers, msgs[0])
	}
	return fields, leftovers
}

// message normalises err for the banner: server message, then error text,
// then a generic fallback naming the operation.
func (s *Store[T, F]) message(err error, op string) string {
	if apiErr, ok := api.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fmt.Sprintf("Failed to %s %s", op, s.schema.Label)
}

func (s *Store[T, F]) record(ctx context.Context, op string, err error) {
	metrics.StoreOperations.WithLabelValues(s.schema.Entity, op, metrics.Outcome(err)).Inc()
	if err != nil {
		logging.ForOperation(ctx, s.schema.Entity, op).Warn("store operation failed", "error", err)
	}
}
