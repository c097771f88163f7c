package web

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/entity"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(t.Context(), &buf))
	return buf.String()
}

func TestLayoutEscapesTitleAndMarksActiveEntry(t *testing.T) {
	out := renderString(t, layout(`<b>Invoices</b>`, "invoices", "Saved & done", "", templ.Raw("<p>body</p>")))

	assert.Contains(t, out, "<title>&lt;b&gt;Invoices&lt;/b&gt; · Business Dashboard</title>")
	assert.Contains(t, out, `<a class="active" href="/invoices">Invoices</a>`)
	assert.Contains(t, out, `<div class="alert alert-success" role="status">Saved &amp; done</div>`)
	assert.NotContains(t, out, "alert-error")
	assert.Contains(t, out, "<p>body</p></main>")
}

func TestFieldRendersErrorsAndNumericInput(t *testing.T) {
	out := renderString(t, field(entity.FieldSpec{Name: "salary", Label: "Salary", Type: entity.FieldNumeric, Required: true},
		`"50"`, "Salary must be a valid number"))

	assert.Contains(t, out, `<div class="field has-error">`)
	assert.Contains(t, out, `<input id="salary" name="salary" type="text" inputmode="decimal" value="&#34;50&#34;">`)
	assert.Contains(t, out, `<span class="required" aria-hidden="true">*</span>`)
	assert.Contains(t, out, `<p class="field-error">Salary must be a valid number</p>`)

	out = renderString(t, field(entity.FieldSpec{Name: "status", Label: "Status", Type: entity.FieldEnum, Options: []string{"draft", "paid"}}, "paid", ""))
	assert.Contains(t, out, `<div class="field">`)
	assert.Contains(t, out, `<option value="paid" selected>paid</option>`)
	assert.Contains(t, out, `<option value="draft">draft</option>`)
}

func TestServerPagesKeepFiltersAndDropOneOffKeys(t *testing.T) {
	query := url.Values{"status": {"paid"}, "notice": {"Saved"}, "p": {"2"}}
	out := renderString(t, serverPages("/invoices", query, api.Pagination{CurrentPage: 2, LastPage: 3, Total: 40}))

	assert.Contains(t, out, `<a href="/invoices?page=1&amp;status=paid">Previous page</a>`)
	assert.Contains(t, out, "<span>Page 2 of 3 (40 records)</span>")
	assert.Contains(t, out, `<a href="/invoices?page=3&amp;status=paid">Next page</a>`)

	assert.Empty(t, renderString(t, serverPages("/invoices", query, api.Pagination{CurrentPage: 1, LastPage: 1})))
}

func TestAuditPagesCarryFilters(t *testing.T) {
	p := auditPage{Page: 1, TotalPages: 2, Total: 30, Entity: "invoices", Action: "delete"}
	out := renderString(t, auditView(p))

	assert.Contains(t, out, `href="/audit-log/export.csv?action=delete&amp;entity=invoices"`)
	assert.Contains(t, out, `<option value="delete" selected>delete</option>`)
	assert.Contains(t, out, `<a href="/audit-log?action=delete&amp;entity=invoices&amp;page=2">Next</a>`)
	assert.NotContains(t, out, ">Previous</a>")
}
