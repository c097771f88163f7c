// Package app wires one store per entity at start-up and exposes them to the
// dashboard and the CLI, both as typed stores and through the untyped Entity
// interface used for generic pages and commands.
package app

import (
	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/config"
	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/table"
)

// Options tune the tables and server pages of every entity.
type Options struct {
	ItemsPerPage  int                // client-side table page size
	ServerPerPage int                // per_page sent to list endpoints
	Tables        *config.TablesFile // per-entity overrides, may be nil
	BasePath      string             // dashboard mount point for row links
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ItemsPerPage:  cfg.Table.ItemsPerPage,
		ServerPerPage: cfg.Table.ServerPerPage,
		Tables:        cfg.Tables,
	}
}

// Services holds the shared store of every entity.
type Services struct {
	Employees      *store.Store[entity.Employee, entity.EmployeeForm]
	Departments    *store.Store[entity.Department, entity.DepartmentForm]
	LeaveRequests  *store.Store[entity.LeaveRequest, entity.LeaveRequestForm]
	Accounts       *store.Store[entity.Account, entity.AccountForm]
	JournalEntries *store.Store[entity.JournalEntry, entity.JournalEntryForm]
	Invoices       *store.Store[entity.Invoice, entity.InvoiceForm]
	PurchaseOrders *store.Store[entity.PurchaseOrder, entity.PurchaseOrderForm]

	entities map[string]Entity
}

// New constructs exactly one store per entity against client.
func New(client *api.Client, opts Options) *Services {
	s := &Services{entities: make(map[string]Entity)}
	s.Employees = mount(s, client, entity.Employees(), opts)
	s.Departments = mount(s, client, entity.Departments(), opts)
	s.LeaveRequests = mount(s, client, entity.LeaveRequests(), opts)
	s.Accounts = mount(s, client, entity.Accounts(), opts)
	s.JournalEntries = mount(s, client, entity.JournalEntries(), opts)
	s.Invoices = mount(s, client, entity.Invoices(), opts)
	s.PurchaseOrders = mount(s, client, entity.PurchaseOrders(), opts)
	return s
}

func mount[T any, F any](s *Services, client *api.Client, def entity.Definition[T, F], opts Options) *store.Store[T, F] {
	settings := opts.Tables.For(def.Key)

	def.PerPage = firstPositive(settings.PerPage, def.PerPage, opts.ServerPerPage)
	def.Columns = applyBadges(def.Columns, settings.Badges)

	st := store.New[T, F](api.NewResource[T](client, def.Key, def.ListKey), def.Schema())
	s.entities[def.Key] = &binding[T, F]{
		def:          def,
		store:        st,
		itemsPerPage: firstPositive(settings.ItemsPerPage, opts.ItemsPerPage),
		basePath:     opts.BasePath,
	}
	return st
}

// Entity returns the untyped view of one entity.
func (s *Services) Entity(key string) (Entity, bool) {
	e, ok := s.entities[key]
	return e, ok
}

// Entities returns every entity in registry order (group, then key).
func (s *Services) Entities() []Entity {
	out := make([]Entity, 0, len(s.entities))
	for _, info := range entity.All() {
		if e, ok := s.entities[info.Key]; ok {
			out = append(out, e)
		}
	}
	return out
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// applyBadges returns a copy of columns with badge overrides merged in by
// column header. Unknown variants were rejected when the tables file loaded
// and are skipped here.
func applyBadges[T any](columns []table.Column[T], overrides map[string]map[string]string) []table.Column[T] {
	if len(overrides) == 0 {
		return columns
	}
	out := make([]table.Column[T], len(columns))
	for i, c := range columns {
		values, ok := overrides[c.Header]
		if !ok {
			out[i] = c
			continue
		}
		merged := make(map[string]table.Variant, len(c.BadgeVariants)+len(values))
		for k, v := range c.BadgeVariants {
			merged[k] = v
		}
		for k, name := range values {
			if v, ok := table.ParseVariant(name); ok {
				merged[k] = v
			}
		}
		c.UseBadge = true
		c.BadgeVariants = merged
		out[i] = c
	}
	return out
}
