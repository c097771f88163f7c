package web

// views.go holds the view models and URL helpers behind the templ
// components in *.templ.

import (
	"net/url"
	"strconv"

	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// entityCard is one dashboard tile.
type entityCard struct {
	Info  entity.Info
	Total int
	Error string
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func exportURL(base string, query url.Values) string {
	return base + "/export.csv?" + withoutKeys(query, "p", "notice", "error").Encode()
}

// tablePageURL links the table's own pages, which page within the fetched
// rows.
func tablePageURL(base string, query url.Values) table.PageURL {
	return func(p int) string {
		return base + "?" + withValue(query, "p", strconv.Itoa(p)).Encode()
	}
}

func serverPageURL(base string, query url.Values, page int) string {
	return base + "?" + withValue(withoutKeys(query, "p", "notice", "error"), "page", strconv.Itoa(page)).Encode()
}

// ---------------------------------------------------------------------------
// Form
// ---------------------------------------------------------------------------

// formPage is everything the create/edit form needs.
type formPage struct {
	Info   entity.Info
	Fields []entity.FieldSpec
	Action string // form POST target
	Title  string
	Values map[string]string
	Errors validate.Errors
	Banner string
}

func inputType(t entity.FieldType) string {
	switch t {
	case entity.FieldDate:
		return "date"
	case entity.FieldEmail:
		return "email"
	default:
		return "text"
	}
}

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

// auditEntry is one row of the backend's audit-log endpoint.
type auditEntry struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Severity  string `json:"severity"`
	Entity    string `json:"entity"`
	RecordID  string `json:"record_id"`
	Name      string `json:"name"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	CreatedAt string `json:"created_at"`
}

type auditPage struct {
	Entries    []auditEntry
	Total      int
	Page       int
	TotalPages int
	Entity     string
	Action     string
	Error      string
}

var auditActions = []string{"create", "update", "delete", "transition", "sweep"}

// auditColumns drive the audit table and its CSV export.
var auditColumns = []table.Column[auditEntry]{
	{Header: "Time", Accessor: table.Field[auditEntry]("CreatedAt")},
	{Header: "Action", Accessor: table.Field[auditEntry]("Action")},
	{Header: "Severity", Accessor: table.Field[auditEntry]("Severity"), UseBadge: true,
		BadgeVariants: map[string]table.Variant{
			"low":    table.VariantSecondary,
			"medium": table.VariantWarning,
			"high":   table.VariantDestructive,
		}},
	{Header: "Entity", Accessor: table.Field[auditEntry]("Entity")},
	{Header: "Record", Accessor: table.Field[auditEntry]("RecordID")},
	{Header: "Detail", Accessor: table.Func(func(e auditEntry) any {
		switch {
		case e.OldStatus != "" || e.NewStatus != "":
			return e.Name + " " + e.OldStatus + " → " + e.NewStatus
		default:
			return e.Name
		}
	})},
	{Header: "IP", Accessor: table.Field[auditEntry]("IPAddress")},
}

func auditTable(entries []auditEntry) *table.Table[auditEntry] {
	return table.New(entries, auditColumns,
		table.WithItemsPerPage[auditEntry](max(1, len(entries))),
		table.WithRowID(func(e auditEntry) string { return e.ID }),
		table.WithEmptyMessage[auditEntry]("No audit entries found"),
	)
}

// auditQuery carries the active filters into export and page links.
func auditQuery(p auditPage) url.Values {
	q := url.Values{}
	if p.Entity != "" {
		q.Set("entity", p.Entity)
	}
	if p.Action != "" {
		q.Set("action", p.Action)
	}
	return q
}

func auditPageURL(p auditPage, page int) string {
	return "/audit-log?" + withValue(auditQuery(p), "page", strconv.Itoa(page)).Encode()
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

func withValue(q url.Values, key, value string) url.Values {
	out := make(url.Values, len(q)+1)
	for k, v := range q {
		out[k] = v
	}
	out.Set(key, value)
	return out
}

func withoutKeys(q url.Values, keys ...string) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = v
	}
	for _, k := range keys {
		out.Del(k)
	}
	return out
}
