// Package table is the generic data table engine: it turns a slice of typed
// records plus declarative column, badge and action configuration into
// paginated, render-ready rows.
//
// The engine owns only the current page number. It never fetches or mutates
// records; row actions call back into the caller.
//
// Cell resolution order for a column:
//  1. Column.Cell, when set
//  2. a badge, when UseBadge is set and the accessor yields a string key
//     present in BadgeVariants
//  3. the raw accessor value as text (nil renders as "")
package table

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultItemsPerPage is the page size when none is configured.
const DefaultItemsPerPage = 5

// ActionsHeader is the header of the trailing actions column.
const ActionsHeader = "Actions"

var (
	// ErrRowNotFound is returned by Invoke for an unknown row id.
	ErrRowNotFound = errors.New("table: row not found")
	// ErrActionNotFound is returned by Invoke for an unknown action label.
	ErrActionNotFound = errors.New("table: action not found")
)

// Variant names a badge style.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSecondary   Variant = "secondary"
	VariantOutline     Variant = "outline"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
	VariantDestructive Variant = "destructive"
)

var variants = []Variant{VariantDefault, VariantSecondary, VariantOutline, VariantSuccess, VariantWarning, VariantDestructive}

// ParseVariant returns the Variant named s.
func ParseVariant(s string) (Variant, bool) {
	for _, v := range variants {
		if string(v) == strings.ToLower(strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// ActionVariant distinguishes destructive row actions.
type ActionVariant string

const (
	ActionDefault     ActionVariant = "default"
	ActionDestructive ActionVariant = "destructive"
)

type accessorKind int

const (
	accessorNone accessorKind = iota
	accessorField
	accessorFunc
)

// Accessor derives a column value from a row. It is either a field lookup
// (Field) or a function (Func).
type Accessor[T any] struct {
	kind  accessorKind
	field string
	fn    func(T) any
}

// Field reads the struct field with the given Go name or json tag.
// A name that matches nothing resolves to nil.
func Field[T any](name string) Accessor[T] {
	return Accessor[T]{kind: accessorField, field: name}
}

// Func derives the value by calling fn with the row.
func Func[T any](fn func(T) any) Accessor[T] {
	return Accessor[T]{kind: accessorFunc, fn: fn}
}

// Resolve returns the accessor's value for row.
func (a Accessor[T]) Resolve(row T) any {
	switch a.kind {
	case accessorFunc:
		if a.fn == nil {
			return nil
		}
		return a.fn(row)
	case accessorField:
		return fieldValue(row, a.field)
	default:
		return nil
	}
}

// Column declares one table column.
type Column[T any] struct {
	Header   string
	Accessor Accessor[T]
	// Cell, when set, renders the cell and takes precedence over badges.
	Cell          func(T) string
	UseBadge      bool
	BadgeVariants map[string]Variant
}

// Action declares one entry of the per-row action menu.
type Action[T any] struct {
	Label   string
	Icon    string
	Variant ActionVariant
	OnClick func(T)
	// Href and Method describe the action for renderers that cannot call
	// OnClick directly (HTML). Method defaults to POST.
	Href   func(T) string
	Method string
	// Hidden suppresses the action for rows it does not apply to.
	Hidden func(T) bool
}

// CellView is a resolved cell.
type CellView struct {
	Text  string
	Badge Variant // empty when the cell is not a badge
}

// ActionView is a resolved action for one row.
type ActionView struct {
	Label       string
	Icon        string
	Href        string
	Method      string
	Destructive bool
}

// Row is one render-ready row.
type Row struct {
	ID      string
	Cells   []CellView
	Actions []ActionView
}

// PageURL builds the link for a pagination control.
type PageURL func(page int) string

// Viewer is the untyped, render-ready surface of a Table. Renderers accept
// it so entities of different row types share one rendering path.
type Viewer interface {
	Headers() []string
	ColumnHeaders() []string
	Rows() []Row
	AllRows() []Row
	Len() int
	CurrentPage() int
	TotalPages() int
	ShowPagination() bool
	HasActions() bool
	EmptyMessage() string
}

// Table is a paginated view over data.
type Table[T any] struct {
	data         []T
	columns      []Column[T]
	actions      []Action[T]
	itemsPerPage int
	rowID        func(T) string
	currentPage  int
	emptyMessage string
}

// Option configures a Table.
type Option[T any] func(*Table[T])

// WithActions sets the row action menu.
func WithActions[T any](actions ...Action[T]) Option[T] {
	return func(t *Table[T]) { t.actions = actions }
}

// WithItemsPerPage sets the page size. Non-positive values are ignored.
func WithItemsPerPage[T any](n int) Option[T] {
	return func(t *Table[T]) {
		if n > 0 {
			t.itemsPerPage = n
		}
	}
}

// WithRowID overrides row identity.
func WithRowID[T any](fn func(T) string) Option[T] {
	return func(t *Table[T]) { t.rowID = fn }
}

// WithPage starts the table on page.
func WithPage[T any](page int) Option[T] {
	return func(t *Table[T]) { t.currentPage = page }
}

// WithEmptyMessage sets the text shown when there are no rows.
func WithEmptyMessage[T any](msg string) Option[T] {
	return func(t *Table[T]) { t.emptyMessage = msg }
}

// New builds a table over data.
func New[T any](data []T, columns []Column[T], opts ...Option[T]) *Table[T] {
	t := &Table[T]{
		data:         data,
		columns:      columns,
		itemsPerPage: DefaultItemsPerPage,
		currentPage:  1,
		emptyMessage: "No records found",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Data returns every row, not just the current page.
func (t *Table[T]) Data() []T { return t.data }

// Len returns the number of rows across all pages.
func (t *Table[T]) Len() int { return len(t.data) }

// Columns returns the column definitions.
func (t *Table[T]) Columns() []Column[T] { return t.columns }

// ItemsPerPage returns the page size.
func (t *Table[T]) ItemsPerPage() int { return t.itemsPerPage }

// CurrentPage returns the selected page number.
func (t *Table[T]) CurrentPage() int { return t.currentPage }

// EmptyMessage returns the no-rows text.
func (t *Table[T]) EmptyMessage() string { return t.emptyMessage }

// HasActions reports whether the actions column is rendered.
func (t *Table[T]) HasActions() bool { return len(t.actions) > 0 }

// TotalPages is ceil(len(data) / itemsPerPage).
func (t *Table[T]) TotalPages() int {
	return (len(t.data) + t.itemsPerPage - 1) / t.itemsPerPage
}

// ShowPagination reports whether pagination controls should be rendered.
func (t *Table[T]) ShowPagination() bool {
	return t.TotalPages() > 1
}

// OnPageChange selects page. The value is not bounds-checked; a page outside
// [1, TotalPages] yields no rows.
func (t *Table[T]) OnPageChange(page int) {
	t.currentPage = page
}

// SetData replaces the rows. The current page is clamped into
// [1, max(1, TotalPages)] so a shrinking list never strands the view on a
// page that no longer exists.
func (t *Table[T]) SetData(data []T) {
	t.data = data
	last := max(1, t.TotalPages())
	t.currentPage = min(max(t.currentPage, 1), last)
}

// pageBounds returns the [start, end) indices of the current page, or ok=false
// when the page is out of range.
func (t *Table[T]) pageBounds() (start, end int, ok bool) {
	// Compare pages before multiplying so huge page numbers cannot overflow.
	if t.currentPage < 1 || t.currentPage > t.TotalPages() {
		return 0, 0, false
	}
	start = (t.currentPage - 1) * t.itemsPerPage
	end = min(start+t.itemsPerPage, len(t.data))
	return start, end, true
}

// PageData returns the rows of the current page.
func (t *Table[T]) PageData() []T {
	start, end, ok := t.pageBounds()
	if !ok {
		return []T{}
	}
	return t.data[start:end]
}

// ColumnHeaders returns the column headers without the actions column.
func (t *Table[T]) ColumnHeaders() []string {
	out := make([]string, 0, len(t.columns)+1)
	for _, c := range t.columns {
		out = append(out, c.Header)
	}
	return out
}

// Headers returns the column headers, plus ActionsHeader when actions exist.
func (t *Table[T]) Headers() []string {
	out := t.ColumnHeaders()
	if t.HasActions() {
		out = append(out, ActionsHeader)
	}
	return out
}

// Rows resolves the current page.
func (t *Table[T]) Rows() []Row {
	start, end, ok := t.pageBounds()
	if !ok {
		return []Row{}
	}
	rows := make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, t.resolveRow(t.data[i], i))
	}
	return rows
}

// AllRows resolves every row regardless of pagination.
func (t *Table[T]) AllRows() []Row {
	rows := make([]Row, len(t.data))
	for i, r := range t.data {
		rows[i] = t.resolveRow(r, i)
	}
	return rows
}

func (t *Table[T]) resolveRow(row T, index int) Row {
	r := Row{
		ID:    t.RowID(row, index),
		Cells: make([]CellView, len(t.columns)),
	}
	for i, c := range t.columns {
		r.Cells[i] = ResolveCell(c, row)
	}
	for _, a := range t.actions {
		if a.Hidden != nil && a.Hidden(row) {
			continue
		}
		av := ActionView{
			Label:       a.Label,
			Icon:        a.Icon,
			Method:      a.Method,
			Destructive: a.Variant == ActionDestructive,
		}
		if a.Href != nil {
			av.Href = a.Href(row)
		}
		if av.Method == "" {
			av.Method = "POST"
		}
		r.Actions = append(r.Actions, av)
	}
	return r
}

// RowID returns the row's identity: the WithRowID function, else the ID field
// (or json "id"), else the positional index.
func (t *Table[T]) RowID(row T, index int) string {
	if t.rowID != nil {
		return t.rowID(row)
	}
	if v := fieldValue(row, "ID"); v != nil {
		if s := formatValue(v); s != "" {
			return s
		}
	}
	return strconv.Itoa(index)
}

// Invoke calls the OnClick of the action labelled label for the row whose id
// is rowID. All rows are searched, not only the current page.
func (t *Table[T]) Invoke(rowID, label string) error {
	for i, row := range t.data {
		if t.RowID(row, i) != rowID {
			continue
		}
		for _, a := range t.actions {
			if a.Label != label {
				continue
			}
			if a.Hidden != nil && a.Hidden(row) {
				return fmt.Errorf("%w: %q is not available for row %s", ErrActionNotFound, label, rowID)
			}
			if a.OnClick != nil {
				a.OnClick(row)
			}
			return nil
		}
		return fmt.Errorf("%w: %q", ErrActionNotFound, label)
	}
	return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
}

// ResolveCell applies the column's resolution order to row.
func ResolveCell[T any](c Column[T], row T) CellView {
	if c.Cell != nil {
		return CellView{Text: c.Cell(row)}
	}
	v := c.Accessor.Resolve(row)
	if c.UseBadge {
		if key, ok := stringKey(v); ok {
			if variant, found := c.BadgeVariants[key]; found {
				return CellView{Text: key, Badge: variant}
			}
		}
	}
	return CellView{Text: formatValue(v)}
}

// stringKey returns v as a string when its kind is string.
func stringKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		if rv.Bool() {
			return "Yes"
		}
		return "No"
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(rv.Interface())
}

// fieldValue looks up a struct field by Go name or json tag. Returns nil when
// row is not a struct or no field matches.
func fieldValue(row any, name string) any {
	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	if f, ok := rt.FieldByName(name); ok && f.IsExported() && len(f.Index) == 1 {
		return rv.FieldByIndex(f.Index).Interface()
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name || (name == "ID" && tag == "id") {
			return rv.Field(i).Interface()
		}
	}
	return nil
}
