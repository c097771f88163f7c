package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/backend"
	"github.com/JonMunkholm/bizdash/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Security: config.SecurityConfig{EnableCSP: true},
		Tables:   &config.TablesFile{},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	backendSrv := httptest.NewServer(backend.New(backend.NewMemoryRepository(), backend.Options{AuditCapacity: 100}).Handler())
	t.Cleanup(backendSrv.Close)

	client, err := api.NewClient(backendSrv.URL + "/api")
	require.NoError(t, err)
	services := app.New(client, app.Options{ItemsPerPage: 5, ServerPerPage: 15, BasePath: "/"})

	s := NewServer(services, client, cfg)
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	return do(s, httptest.NewRequest(http.MethodGet, path, nil))
}

func getJSON(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	return do(s, req)
}

func postForm(s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(s, req)
}

func invoiceForm(number string) url.Values {
	return url.Values{
		"invoiceNumber": {number},
		"customerName":  {"Acme"},
		"issueDate":     {"2024-06-01"},
		"dueDate":       {"2024-07-01"},
		"paymentTerms":  {"Net 30"},
		"total":         {"1000"},
	}
}

// createInvoice posts the form and returns the new record's id.
func createInvoice(t *testing.T, s *Server, number string) string {
	t.Helper()
	rec := postForm(s, "/invoices", invoiceForm(number))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = getJSON(s, "/invoices?search="+number)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []struct {
			ID            string `json:"id"`
			InvoiceNumber string `json:"invoice_number"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	return body.Data[0].ID
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := get(s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestCSPDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableCSP = false
	s := newTestServer(t, cfg)

	rec := get(s, "/healthz")
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := get(s, "/static/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".data-table")
}

func TestDashboardShowsCounts(t *testing.T) {
	s := newTestServer(t, testConfig())
	createInvoice(t, s, "INV-1")

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Dashboard</h1>")
	assert.Contains(t, body, `<a class="card" href="/invoices"><h3>Invoices</h3><p class="count">1</p>`)
	assert.Contains(t, body, `<a class="card" href="/employees"><h3>Employees</h3><p class="count">0</p>`)
}

func TestUnknownEntity(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := get(s, "/widgets")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "REC001")

	rec = getJSON(s, "/widgets/new")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "REC001", body.Code)
}

func TestCreateRedirectsWithNotice(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := postForm(s, "/invoices", invoiceForm("INV-1"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices?notice=Invoice+created+successfully", rec.Header().Get("Location"))

	rec = get(s, "/invoices?notice=Invoice+created+successfully")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<div class="alert alert-success" role="status">Invoice created successfully</div>`)
	assert.Contains(t, body, "INV-1")
	assert.Contains(t, body, `<span class="badge badge-secondary">draft</span>`)
}

func TestNewFormHasDefaults(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := get(s, "/invoices/new")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>New Invoice</h1>")
	assert.Contains(t, body, `<option value="Net 30" selected>Net 30</option>`)
	assert.Contains(t, body, `<input id="issueDate" name="issueDate" type="date"`)
}

func TestLocalValidationShowsInlineErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	form := invoiceForm("")
	form.Set("dueDate", "2024-05-01")
	rec := postForm(s, "/invoices", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<p class="field-error">Due date must be after issue date</p>`)
	assert.NotContains(t, body, "alert-error")
	assert.Contains(t, body, `value="Acme"`)
}

func TestServerErrorsShowBannerAndInlineErrors(t *testing.T) {
	s := newTestServer(t, testConfig())
	createInvoice(t, s, "INV-1")

	rec := postForm(s, "/invoices", invoiceForm("INV-1"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<div class="alert alert-error" role="alert">The given data was invalid.</div>`)
	assert.Contains(t, body, `<p class="field-error">The invoice number has already been taken.</p>`)
}

func TestSaveErrorsAsJSON(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(invoiceForm("").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := do(s, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "invoiceNumber")
}

func TestEditAndUpdate(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := createInvoice(t, s, "INV-1")

	rec := get(s, "/invoices/"+id+"/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="INV-1"`)

	form := invoiceForm("INV-1")
	form.Set("customerName", "Globex")
	rec = postForm(s, "/invoices/"+id, form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices?notice=Invoice+updated+successfully", rec.Header().Get("Location"))

	rec = get(s, "/invoices/missing/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSideActionsAndDelete(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := createInvoice(t, s, "INV-1")

	rec := postForm(s, "/invoices/"+id+"/actions/send", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices?notice=Invoice+sent", rec.Header().Get("Location"))

	rec = postForm(s, "/invoices/"+id+"/actions/record-payment", url.Values{"amount": {"250"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices?notice=Payment+recorded", rec.Header().Get("Location"))

	// Sending twice is refused by the backend and surfaces as an error banner.
	rec = postForm(s, "/invoices/"+id+"/actions/send", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "Only draft invoices can be sent. (Code: REC003). Review the record and try again", loc.Query().Get("error"))

	rec = postForm(s, "/invoices/"+id+"/actions/refund", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postForm(s, "/invoices/"+id+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices?notice=Invoice+deleted+successfully", rec.Header().Get("Location"))

	rec = get(s, "/invoices")
	assert.Contains(t, rec.Body.String(), "No invoices found")
}

func TestListFiltersAndPaging(t *testing.T) {
	s := newTestServer(t, testConfig())
	for _, n := range []string{"A-1", "A-2", "A-3", "A-4", "A-5", "A-6", "A-7"} {
		postForm(s, "/invoices", invoiceForm(n))
	}

	rec := get(s, "/invoices?p=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<span class="current" aria-current="page">2</span>`)
	assert.Equal(t, 2, strings.Count(body, "<tr data-row-id="))

	rec = get(s, "/invoices?p=3689348814741910324")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, strings.Count(rec.Body.String(), "<tr data-row-id="))

	rec = get(s, "/invoices?status=paid")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="paid" selected>paid</option>`)
	assert.Contains(t, rec.Body.String(), "No invoices found")

	rec = get(s, "/invoices?reset=1")
	assert.Equal(t, 5, strings.Count(rec.Body.String(), "<tr data-row-id="))
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, testConfig())
	for _, n := range []string{"A-1", "A-2", "A-3", "A-4", "A-5", "A-6", "A-7"} {
		postForm(s, "/invoices", invoiceForm(n))
	}

	rec := get(s, "/invoices/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoices_")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Invoice,Customer,Due"))
	// Every fetched row is exported, not only the first table page.
	assert.Len(t, lines, 8)
}

func TestAuditLogPageAndExport(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := createInvoice(t, s, "INV-1")
	postForm(s, "/invoices/"+id+"/delete", nil)

	rec := get(s, "/audit-log")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Audit Log</h1>")
	assert.Contains(t, body, `<span class="badge badge-destructive">high</span>`)
	assert.Equal(t, 2, strings.Count(body, "<tr data-row-id="))

	rec = get(s, "/audit-log?action=delete")
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "<tr data-row-id="))

	rec = getJSON(s, "/audit-log?entity=invoices")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)

	rec = get(s, "/audit-log/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "Time,Action,Severity,Entity,Record,Detail,IP", lines[0])
	assert.Len(t, lines, 3)
}

func TestBackendUnavailable(t *testing.T) {
	client, err := api.NewClient("http://127.0.0.1:1/api", api.WithTimeout(time.Second))
	require.NoError(t, err)
	services := app.New(client, app.Options{ItemsPerPage: 5, BasePath: "/"})
	s := NewServer(services, client, testConfig())

	rec := get(s, "/invoices")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alert-error")
	assert.Contains(t, rec.Body.String(), "No invoices found")

	rec = get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unable to reach the backend")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	s := newTestServer(t, cfg)

	rec := get(s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(s, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE001", body.Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, do(s, req).Code)
}

func TestExportBusy(t *testing.T) {
	cfg := testConfig()
	cfg.Export = config.ExportConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond}
	s := newTestServer(t, cfg)

	require.NoError(t, s.exports.Acquire(t.Context()))
	rec := get(s, "/invoices/export.csv")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE002")

	s.exports.Release()
	rec = get(s, "/invoices/export.csv")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.exports.ActiveCount())
}
