package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/config"
	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/metrics"
	mw "github.com/JonMunkholm/bizdash/internal/web/middleware"
)

// Defaults for list pagination.
const (
	DefaultPerPage    = 15
	DefaultMaxPerPage = 100
)

// MaxBodySize caps request bodies.
const MaxBodySize = 1 << 20

// Options tune a Server.
type Options struct {
	MaxPerPage    int
	AuditCapacity int
	// Now is the clock used for timestamps and the overdue sweep.
	Now func() time.Time
	// Security selects trusted proxies and API key checks for /api.
	Security config.SecurityConfig
}

// Server serves the REST API over a Repository.
type Server struct {
	repo      Repository
	resources map[string]*Resource
	audit     *AuditLog
	opts      Options
	router    chi.Router

	// writeMu serialises writes so uniqueness checks and sequence numbers
	// see every committed record.
	writeMu sync.Mutex
}

// New builds a server with every resource from Resources.
func New(repo Repository, opts Options) *Server {
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = DefaultMaxPerPage
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		repo:      repo,
		resources: make(map[string]*Resource),
		audit:     NewAuditLog(opts.AuditCapacity),
		opts:      opts,
	}
	s.audit.now = opts.Now
	for _, res := range Resources() {
		s.resources[res.Key] = res
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Resource returns the rules registered under key.
func (s *Server) Resource(key string) (*Resource, bool) {
	res, ok := s.resources[key]
	return res, ok
}

// Repository returns the store the server writes to.
func (s *Server) Repository() Repository { return s.repo }

// Kinds returns every resource key in registration order.
func (s *Server) Kinds() []string {
	res := Resources()
	keys := make([]string, len(res))
	for i, r := range res {
		keys[i] = r.Key
	}
	return keys
}

// Audit returns the server's audit log.
func (s *Server) Audit() *AuditLog { return s.audit }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(mw.TrustedRealIP(s.opts.Security.TrustedProxies))
	r.Use(logging.Middleware)
	r.Use(metrics.Middleware("backend"))
	r.Use(middleware.Recoverer)
	r.Use(requestMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, api.Envelope[any]{Success: true, Message: "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.opts.Security))
		r.Get("/audit-log", s.handleAuditLog)
		r.Route("/{entity}", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Put("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
			r.Post("/{id}/{action}", s.handleAction)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	return r
}

// requestMetadata adds the client address and user agent for audit entries.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithRequestMetadata(r.Context(), r.RemoteAddr, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// Find returns the record or nil.
func (s *Server) Find(ctx context.Context, kind, id string) Record {
	if id == "" {
		return nil
	}
	rec, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil
	}
	return rec
}

// CountWhere counts records of kind whose field equals value.
func (s *Server) CountWhere(ctx context.Context, kind, field, value string) int {
	recs, err := s.repo.List(ctx, kind)
	if err != nil {
		return 0
	}
	n := 0
	for _, r := range recs {
		if r.String(field) == value {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// invalidError is a 422 with field errors.
type invalidError struct {
	fields FieldErrors
}

func (e *invalidError) Error() string { return "The given data was invalid." }

// conflictError is a 422 without field errors, such as a disallowed transition.
type conflictError struct {
	msg string
}

func (e *conflictError) Error() string { return e.msg }

// serverManaged keys are never taken from request bodies.
var serverManaged = []string{"id", "created_at", "updated_at"}

func clean(body Record) {
	for _, k := range serverManaged {
		delete(body, k)
	}
}

// Create validates body and stores a new record.
func (s *Server) Create(ctx context.Context, res *Resource, body Record) (Record, error) {
	clean(body)
	rec := res.Defaults.Clone()
	if rec == nil {
		rec = make(Record)
	}
	rec.Merge(body)
	rec["id"] = uuid.NewString()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	others, err := s.repo.List(ctx, res.Key)
	if err != nil {
		return nil, err
	}
	res.nextNumber(rec, others)
	if err := s.check(ctx, res, rec, others); err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC().Format(time.RFC3339)
	rec["created_at"] = now
	rec["updated_at"] = now
	if err := s.repo.Insert(ctx, res.Key, rec); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{Action: ActionCreate, Entity: res.Key, RecordID: rec.ID(), NewStatus: rec.String("status")})
	return s.expand(ctx, res, rec), nil
}

// Update merges body into the stored record.
func (s *Server) Update(ctx context.Context, res *Resource, id string, body Record) (Record, error) {
	clean(body)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.repo.Get(ctx, res.Key, id)
	if err != nil {
		return nil, err
	}
	rec := existing.Clone()
	rec.Merge(body)

	others, err := s.repo.List(ctx, res.Key)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, res, rec, others); err != nil {
		return nil, err
	}

	rec["updated_at"] = s.opts.Now().UTC().Format(time.RFC3339)
	if err := s.repo.Update(ctx, res.Key, rec); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{
		Action: ActionUpdate, Entity: res.Key, RecordID: id,
		OldStatus: existing.String("status"), NewStatus: rec.String("status"),
	})
	return s.expand(ctx, res, rec), nil
}

// Delete removes a record unless its resource's guard objects.
func (s *Server) Delete(ctx context.Context, res *Resource, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.repo.Get(ctx, res.Key, id)
	if err != nil {
		return err
	}
	if res.DeleteGuard != nil {
		if msg := res.DeleteGuard(ctx, s, rec); msg != "" {
			return &conflictError{msg: msg}
		}
	}
	if err := s.repo.Delete(ctx, res.Key, id); err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{Action: ActionDelete, Entity: res.Key, RecordID: id, OldStatus: rec.String("status")})
	return nil
}

// Transition runs a side action on a record.
func (s *Server) Transition(ctx context.Context, res *Resource, id, name string, body Record) (Record, string, error) {
	t, ok := res.Actions[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: action %s", ErrNotFound, name)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.repo.Get(ctx, res.Key, id)
	if err != nil {
		return nil, "", err
	}
	if t.Allowed != nil && !t.Allowed(existing) {
		return nil, "", &conflictError{msg: t.Denied}
	}

	rec := existing.Clone()
	now := s.opts.Now()
	if errs := t.Apply(rec, body, now); len(errs) > 0 {
		return nil, "", &invalidError{fields: errs}
	}
	rec["updated_at"] = now.UTC().Format(time.RFC3339)
	if err := s.repo.Update(ctx, res.Key, rec); err != nil {
		return nil, "", err
	}
	s.audit.Log(ctx, AuditEntry{
		Action: ActionTransition, Entity: res.Key, RecordID: id, Name: name,
		OldStatus: existing.String("status"), NewStatus: rec.String("status"),
	})
	return s.expand(ctx, res, rec), t.Message, nil
}

// check validates rec, enforces uniqueness and derives stored fields.
func (s *Server) check(ctx context.Context, res *Resource, rec Record, others []Record) error {
	errs := res.validate(ctx, s, rec)
	for f, msgs := range res.unique(rec, others) {
		errs[f] = append(errs[f], msgs...)
	}
	if len(errs) > 0 {
		return &invalidError{fields: errs}
	}
	if res.Prepare != nil {
		res.Prepare(rec)
	}
	return nil
}

func (s *Server) expand(ctx context.Context, res *Resource, rec Record) Record {
	if res.Expand != nil {
		res.Expand(ctx, s, rec)
	}
	return rec
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) resource(w http.ResponseWriter, r *http.Request) (*Resource, bool) {
	res, ok := s.Resource(chi.URLParam(r, "entity"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Unknown resource")
	}
	return res, ok
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	filters := make(map[string]string)
	for _, f := range res.Filters {
		if v := q.Get(f); v != "" {
			filters[f] = v
		}
	}
	search := strings.TrimSpace(q.Get("search"))

	all, err := s.repo.List(r.Context(), res.Key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	matched := make([]Record, 0, len(all))
	for _, rec := range all {
		rec = s.expand(r.Context(), res, rec)
		if res.matches(rec, search, filters) {
			matched = append(matched, rec)
		}
	}

	page := positiveInt(q.Get("page"), 1)
	perPage := min(positiveInt(q.Get("per_page"), DefaultPerPage), s.opts.MaxPerPage)
	pg := api.Pagination{
		CurrentPage: page,
		LastPage:    max(1, (len(matched)+perPage-1)/perPage),
		PerPage:     perPage,
		Total:       len(matched),
	}
	start, end := len(matched), len(matched)
	if page <= pg.LastPage {
		start = (page - 1) * perPage
		end = min(start+perPage, len(matched))
	}

	writeEnvelope(w, http.StatusOK, api.Envelope[any]{
		Success: true,
		Data: map[string]any{
			res.ListKey:  matched[start:end],
			"pagination": pg,
		},
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	rec, err := s.repo.Get(r.Context(), res.Key, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, notFoundAs(err, res.Label+" not found"))
		return
	}
	writeEnvelope(w, http.StatusOK, api.Envelope[any]{Success: true, Data: s.expand(r.Context(), res, rec)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	body, problem := decodeBody(r, false)
	if problem != "" {
		writeMessage(w, http.StatusBadRequest, problem)
		return
	}
	rec, err := s.Create(r.Context(), res, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, api.Envelope[any]{
		Success: true,
		Message: res.Label + " created successfully",
		Data:    rec,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	body, problem := decodeBody(r, false)
	if problem != "" {
		writeMessage(w, http.StatusBadRequest, problem)
		return
	}
	rec, err := s.Update(r.Context(), res, chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, r, notFoundAs(err, res.Label+" not found"))
		return
	}
	writeEnvelope(w, http.StatusOK, api.Envelope[any]{
		Success: true,
		Message: res.Label + " updated successfully",
		Data:    rec,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	if err := s.Delete(r.Context(), res, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, notFoundAs(err, res.Label+" not found"))
		return
	}
	writeEnvelope(w, http.StatusOK, api.Envelope[any]{
		Success: true,
		Message: res.Label + " deleted successfully",
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	body, problem := decodeBody(r, true)
	if problem != "" {
		writeMessage(w, http.StatusBadRequest, problem)
		return
	}
	rec, msg, err := s.Transition(r.Context(), res, chi.URLParam(r, "id"), chi.URLParam(r, "action"), body)
	if err != nil {
		s.fail(w, r, notFoundAs(err, res.Label+" or action not found"))
		return
	}
	writeEnvelope(w, http.StatusOK, api.Envelope[any]{Success: true, Message: msg, Data: rec})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, total := s.audit.Entries(AuditFilter{
		Entity: q.Get("entity"),
		Action: AuditAction(q.Get("action")),
		Limit:  positiveInt(q.Get("limit"), DefaultAuditLimit),
		Offset: max(0, positiveInt(q.Get("offset"), 0)),
	})
	writeEnvelope(w, http.StatusOK, api.Envelope[any]{
		Success: true,
		Data:    map[string]any{"audit_log": entries, "total": total},
	})
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// notFound carries the user-facing text for a missing record.
type notFound struct {
	msg string
	err error
}

func (e *notFound) Error() string { return e.msg }
func (e *notFound) Unwrap() error { return e.err }

func notFoundAs(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return &notFound{msg: msg, err: err}
	}
	return err
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *invalidError
		conflict *conflictError
		missing  *notFound
	)
	switch {
	case errors.As(err, &invalid):
		writeEnvelope(w, http.StatusUnprocessableEntity, api.Envelope[any]{
			Message: invalid.Error(),
			Errors:  invalid.fields,
		})
	case errors.As(err, &conflict):
		writeMessage(w, http.StatusUnprocessableEntity, conflict.msg)
	case errors.As(err, &missing):
		writeMessage(w, http.StatusNotFound, missing.msg)
	case errors.Is(err, ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	default:
		logging.FromContext(r.Context()).Error("backend request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, api.Envelope[any]{Success: status < 400, Message: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, env api.Envelope[any]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// decodeBody reads a JSON object. An empty body is an empty record when
// optional is set. The returned string describes a malformed body.
func decodeBody(r *http.Request, optional bool) (Record, string) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		return nil, "Could not read request body"
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		if optional {
			return Record{}, ""
		}
		return nil, "Request body is required"
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec == nil {
		return nil, "Request body must be a JSON object"
	}
	return rec, ""
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
