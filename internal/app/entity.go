package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/form"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var (
	// ErrInvalid is returned by Save when local validation fails.
	ErrInvalid = errors.New("form has errors")
	// ErrUnknownAction is returned for an action the entity does not offer.
	ErrUnknownAction = errors.New("unknown action")
)

// Entity is the untyped surface of one entity's store and definition.
type Entity interface {
	Info() entity.Info
	Fields() []entity.FieldSpec
	ActionNames() []string

	// List applies filters, fetches the selected server page and returns a
	// table over it.
	List(ctx context.Context, opts ListOptions) (Listing, error)
	Get(ctx context.Context, id string) (any, error)

	// NewValues and EditValues return form values keyed by field name.
	NewValues() map[string]string
	EditValues(ctx context.Context, id string) (map[string]string, error)

	// Save creates (id == "") or updates a record from form values.
	Save(ctx context.Context, id string, values map[string]string) (SaveResult, error)
	Delete(ctx context.Context, id string) (string, error)
	Action(ctx context.Context, id, action string, values map[string]string) (string, error)
}

// ListOptions selects what List fetches and how the table is paged.
type ListOptions struct {
	Filters   map[string]string
	Reset     bool // clear previous filters before applying Filters
	TablePage int
}

// Listing is one fetched page ready for rendering.
type Listing struct {
	Info       entity.Info
	Table      table.Viewer
	Records    any // []T
	Pagination api.Pagination
	Filters    map[string]string
	Error      string
}

// SaveResult describes a Save for re-rendering the form.
type SaveResult struct {
	Values  map[string]string
	Errors  validate.Errors
	Banner  string // summary shown above the form
	Message string // server success message
	ID      string
	Record  any
}

type binding[T any, F any] struct {
	def          entity.Definition[T, F]
	store        *store.Store[T, F]
	itemsPerPage int
	basePath     string

	// mu serialises multi-step flows (filter then fetch, load then save) on
	// the shared store so callers do not interleave.
	mu sync.Mutex
}

func (b *binding[T, F]) Info() entity.Info           { return b.def.Info }
func (b *binding[T, F]) Fields() []entity.FieldSpec { return b.def.Fields }

func (b *binding[T, F]) ActionNames() []string {
	names := make([]string, len(b.def.Actions))
	for i, a := range b.def.Actions {
		names[i] = a.Name
	}
	return names
}

func (b *binding[T, F]) List(ctx context.Context, opts ListOptions) (Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if opts.Reset {
		b.store.ClearFilters()
	}
	if len(opts.Filters) > 0 {
		b.store.SetFilters(opts.Filters)
	}
	err := b.store.FetchRecords(ctx)
	snap := b.store.Snapshot()

	page := opts.TablePage
	if page < 1 {
		page = 1
	}
	tbl := table.New(snap.Records, b.def.Columns,
		table.WithItemsPerPage[T](b.itemsPerPage),
		table.WithRowID(b.def.ID),
		table.WithActions(b.rowActions()...),
		table.WithPage[T](page),
		table.WithEmptyMessage[T]("No "+strings.ToLower(b.def.Plural)+" found"),
	)
	return Listing{
		Info:       b.def.Info,
		Table:      tbl,
		Records:    snap.Records,
		Pagination: snap.Pagination,
		Filters:    snap.Filters,
		Error:      snap.Error,
	}, err
}

// rowActions builds the edit, delete and side-action menu entries. They are
// links to the dashboard's routes.
func (b *binding[T, F]) rowActions() []table.Action[T] {
	base := strings.TrimRight(b.basePath, "/") + "/" + b.def.Key + "/"
	href := func(suffix string) func(T) string {
		return func(r T) string { return base + url.PathEscape(b.def.ID(r)) + suffix }
	}

	actions := []table.Action[T]{
		{Label: "Edit", Icon: "pencil", Href: href("/edit"), Method: "GET"},
	}
	for _, a := range b.def.Actions {
		a := a
		act := table.Action[T]{
			Label:   a.Label,
			Icon:    a.Icon,
			Variant: a.Variant,
			Href:    href("/actions/" + url.PathEscape(a.Name)),
		}
		if a.Applies != nil {
			act.Hidden = func(r T) bool { return !a.Applies(r) }
		}
		actions = append(actions, act)
	}
	return append(actions, table.Action[T]{
		Label:   "Delete",
		Icon:    "trash",
		Variant: table.ActionDestructive,
		Href:    href("/delete"),
	})
}

func (b *binding[T, F]) Get(ctx context.Context, id string) (any, error) {
	rec, err := b.store.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *binding[T, F]) NewValues() map[string]string {
	return values(b.def.NewForm())
}

func (b *binding[T, F]) EditValues(ctx context.Context, id string) (map[string]string, error) {
	rec, err := b.store.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.LoadForEdit(*rec)
	return values(b.store.Snapshot().FormData), nil
}

// Save runs the dialog flow against the store: load (or reset) the form,
// apply each submitted field, validate locally, then create or update.
func (b *binding[T, F]) Save(ctx context.Context, id string, submitted map[string]string) (SaveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == "" {
		b.store.ResetForm()
	} else {
		rec, err := b.store.GetOne(ctx, id)
		if err != nil {
			return SaveResult{Values: submitted, Banner: b.store.Snapshot().Error}, err
		}
		b.store.LoadForEdit(*rec)
	}
	b.store.SetOpen(true)

	parseErrs := make(validate.Errors)
	for _, spec := range b.def.Fields {
		v, ok := submitted[spec.Name]
		if !ok {
			continue
		}
		if err := b.store.UpdateField(spec.Name, v); err != nil {
			parseErrs[spec.Name] = fieldMessage(spec, err)
		}
	}

	valid := b.store.ValidateForm()
	snap := b.store.Snapshot()
	res := SaveResult{Values: values(snap.FormData), Errors: snap.Errors.Clone()}
	for name, msg := range parseErrs {
		res.Errors[name] = msg
		res.Values[name] = submitted[name]
	}
	if !valid || len(parseErrs) > 0 {
		return res, ErrInvalid
	}

	var (
		rec *T
		err error
	)
	if id == "" {
		rec, err = b.store.Create(ctx, snap.FormData)
	} else {
		rec, err = b.store.Update(ctx, id, snap.FormData)
	}
	after := b.store.Snapshot()
	if err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			res.Errors = ve.Fields.Clone()
			res.Banner = ve.Message
		} else {
			res.Banner = after.Error
		}
		return res, err
	}

	res.Message = after.Message
	res.ID = id
	if rec != nil {
		res.Record = rec
		res.ID = b.def.ID(*rec)
	}
	b.store.SetOpen(false)
	return res, nil
}

func (b *binding[T, F]) Delete(ctx context.Context, id string) (string, error) {
	if err := b.store.Delete(ctx, id); err != nil {
		return "", err
	}
	return b.store.Snapshot().Message, nil
}

func (b *binding[T, F]) Action(ctx context.Context, id, action string, submitted map[string]string) (string, error) {
	if _, ok := b.def.Action(action); !ok {
		return "", fmt.Errorf("%w: %s %s", ErrUnknownAction, b.def.Key, action)
	}
	var body any
	if len(submitted) > 0 {
		m := make(map[string]any, len(submitted))
		for k, v := range submitted {
			if n, ok := validate.ParseNumber(v); ok {
				m[k] = n
			} else {
				m[k] = v
			}
		}
		body = m
	}
	if _, err := b.store.Action(ctx, id, action, body); err != nil {
		return "", err
	}
	return b.store.Snapshot().Message, nil
}

// values renders every form field as text.
func values[F any](f F) map[string]string {
	out := make(map[string]string)
	for _, name := range form.Fields[F]() {
		out[name] = form.String(f, name)
	}
	return out
}

func fieldMessage(spec entity.FieldSpec, err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return spec.Label + ": " + inner.Error()
	}
	return spec.Label + " is invalid"
}
