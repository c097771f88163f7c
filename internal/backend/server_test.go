package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bizdash/internal/config"
)

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(NewMemoryRepository(), Options{MaxPerPage: 10, AuditCapacity: 100, Now: func() time.Time { return fixedNow }})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope) Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	return rec
}

func invoiceBody(number string) map[string]any {
	return map[string]any{
		"invoice_number": number,
		"customer_name":  "Acme",
		"issue_date":     "2024-06-01",
		"due_date":       "2024-07-01",
		"total":          1000,
	}
}

func TestCreate_AssignsIDAndDefaults(t *testing.T) {
	_, ts := newTestServer(t)

	status, env := call(t, ts, http.MethodPost, "/api/invoices", invoiceBody(""))
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Invoice created successfully", env.Message)

	rec := decodeData(t, env)
	assert.NotEmpty(t, rec.ID())
	assert.Equal(t, "INV-0001", rec.String("invoice_number"))
	assert.Equal(t, "draft", rec.String("status"))
	assert.Equal(t, 0.0, rec.Number("amount_paid"))
	assert.Equal(t, "2024-06-15T09:30:00Z", rec.String("created_at"))
}

func TestCreate_DuplicateInvoiceNumber(t *testing.T) {
	_, ts := newTestServer(t)

	status, _ := call(t, ts, http.MethodPost, "/api/invoices", invoiceBody("INV-100"))
	require.Equal(t, http.StatusCreated, status)

	status, env := call(t, ts, http.MethodPost, "/api/invoices", invoiceBody("inv-100"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, env.Success)
	assert.Equal(t, []string{"The invoice number has already been taken."}, env.Errors["invoice_number"])
}

func TestCreate_FieldErrorsAreSnakeCase(t *testing.T) {
	_, ts := newTestServer(t)

	status, env := call(t, ts, http.MethodPost, "/api/employees", map[string]any{
		"first_name": "",
		"email":      "not-an-email",
		"hire_date":  "2024-13-45",
		"salary":     "lots",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "The given data was invalid.", env.Message)
	assert.Contains(t, env.Errors, "first_name")
	assert.Contains(t, env.Errors, "last_name")
	assert.Equal(t, []string{"The email must be a valid email address."}, env.Errors["email"])
	assert.Equal(t, []string{"The hire date is not a valid date."}, env.Errors["hire_date"])
	assert.Equal(t, []string{"The salary must be a number."}, env.Errors["salary"])
}

func TestCreate_CrossFieldRules(t *testing.T) {
	_, ts := newTestServer(t)

	body := invoiceBody("")
	body["due_date"] = "2024-06-01"
	status, env := call(t, ts, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The due date must be a date after issue date."}, env.Errors["due_date"])
}

func TestCreate_MalformedBody(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/invoices", bytes.NewBufferString("[1,2]"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestList_PaginationSearchAndFilters(t *testing.T) {
	_, ts := newTestServer(t)

	for i := 0; i < 12; i++ {
		body := invoiceBody("")
		if i%3 == 0 {
			body["customer_name"] = "Globex"
		}
		status, _ := call(t, ts, http.MethodPost, "/api/invoices", body)
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := call(t, ts, http.MethodGet, "/api/invoices?page=2&per_page=5", nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Invoices   []Record `json:"invoices"`
		Pagination struct {
			CurrentPage int `json:"current_page"`
			LastPage    int `json:"last_page"`
			PerPage     int `json:"per_page"`
			Total       int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Invoices, 5)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.LastPage)
	assert.Equal(t, 12, page.Pagination.Total)
	// Newest first.
	assert.Equal(t, "INV-0007", page.Invoices[0].String("invoice_number"))

	_, env = call(t, ts, http.MethodGet, "/api/invoices?search=globex", nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 4, page.Pagination.Total)

	_, env = call(t, ts, http.MethodGet, "/api/invoices?status=paid", nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 0, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.LastPage)
	assert.Empty(t, page.Invoices)

	_, env = call(t, ts, http.MethodGet, "/api/invoices?per_page=500", nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 10, page.Pagination.PerPage, "per_page is capped")

	for _, p := range []string{"4", "3000000000000000000", "9223372036854775807"} {
		status, env = call(t, ts, http.MethodGet, "/api/invoices?per_page=4&page="+p, nil)
		require.Equal(t, http.StatusOK, status, p)
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Empty(t, page.Invoices, p)
		assert.Equal(t, 12, page.Pagination.Total, p)
		assert.Equal(t, 3, page.Pagination.LastPage, p)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, ts := newTestServer(t)

	status, env := call(t, ts, http.MethodGet, "/api/invoices/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Invoice not found", env.Message)

	status, env = call(t, ts, http.MethodGet, "/api/widgets", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Unknown resource", env.Message)
}

func TestUpdate_MergesAndRevalidates(t *testing.T) {
	_, ts := newTestServer(t)

	_, env := call(t, ts, http.MethodPost, "/api/invoices", invoiceBody("INV-1"))
	id := decodeData(t, env).ID()
	call(t, ts, http.MethodPost, "/api/invoices", invoiceBody("INV-2"))

	status, env := call(t, ts, http.MethodPut, "/api/invoices/"+id, map[string]any{"customer_name": "Acme Ltd", "id": "hijack"})
	require.Equal(t, http.StatusOK, status)
	rec := decodeData(t, env)
	assert.Equal(t, id, rec.ID())
	assert.Equal(t, "Acme Ltd", rec.String("customer_name"))
	assert.Equal(t, "INV-1", rec.String("invoice_number"))

	status, env = call(t, ts, http.MethodPut, "/api/invoices/"+id, map[string]any{"invoice_number": "INV-2"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, env.Errors, "invoice_number")
}

func TestActions_InvoicePaymentLifecycle(t *testing.T) {
	s, ts := newTestServer(t)

	_, env := call(t, ts, http.MethodPost, "/api/invoices", invoiceBody(""))
	id := decodeData(t, env).ID()

	status, env := call(t, ts, http.MethodPost, "/api/invoices/"+id+"/record-payment", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Payments can only be recorded against sent invoices.", env.Message)

	status, _ = call(t, ts, http.MethodPost, "/api/invoices/"+id+"/send", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, ts, http.MethodPost, "/api/invoices/"+id+"/record-payment", map[string]any{"amount": 2000})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, env.Errors, "amount")

	status, env = call(t, ts, http.MethodPost, "/api/invoices/"+id+"/record-payment", map[string]any{"amount": 250})
	require.Equal(t, http.StatusOK, status)
	rec := decodeData(t, env)
	assert.Equal(t, "partially_paid", rec.String("status"))
	assert.Equal(t, 250.0, rec.Number("amount_paid"))

	status, env = call(t, ts, http.MethodPost, "/api/invoices/"+id+"/record-payment", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Payment recorded", env.Message)
	rec = decodeData(t, env)
	assert.Equal(t, "paid", rec.String("status"))
	assert.Equal(t, 1000.0, rec.Number("amount_paid"))

	status, _ = call(t, ts, http.MethodPost, "/api/invoices/"+id+"/void", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = call(t, ts, http.MethodPost, "/api/invoices/"+id+"/refund", nil)
	assert.Equal(t, http.StatusNotFound, status)

	entries, total := s.Audit().Entries(AuditFilter{Entity: "invoices", Action: ActionTransition})
	assert.Equal(t, 3, total)
	assert.Equal(t, "paid", entries[0].NewStatus)
	assert.Equal(t, SeverityMedium, entries[0].Severity)
}

func TestDelete_GuardAndSuccess(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()

	deptRes, _ := s.Resource("departments")
	dept, err := s.Create(ctx, deptRes, Record{"code": "ENG", "name": "Engineering"})
	require.NoError(t, err)
	empRes, _ := s.Resource("employees")
	emp, err := s.Create(ctx, empRes, Record{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
		"hire_date": "2024-01-02", "department_id": dept.ID(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", emp.String("department_name"))

	status, env := call(t, ts, http.MethodDelete, "/api/departments/"+dept.ID(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Cannot delete a department that still has employees.", env.Message)

	status, env = call(t, ts, http.MethodDelete, "/api/employees/"+emp.ID(), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Employee deleted successfully", env.Message)

	status, _ = call(t, ts, http.MethodDelete, "/api/departments/"+dept.ID(), nil)
	assert.Equal(t, http.StatusOK, status)

	_, total := s.Audit().Entries(AuditFilter{Action: ActionDelete})
	assert.Equal(t, 2, total)
}

func TestPurchaseOrder_TotalsAreDerived(t *testing.T) {
	s, _ := newTestServer(t)
	res, _ := s.Resource("purchase-orders")

	rec, err := s.Create(context.Background(), res, Record{
		"supplier_name": "Paper Co",
		"order_date":    "2024-06-01",
		"items": []any{
			map[string]any{"description": "Paper", "quantity": 3.0, "unit_price": 2.5},
			map[string]any{"description": "Pens", "quantity": "2", "unit_price": "1.25"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, rec.Number("total"))
	assert.Equal(t, "PO-0001", rec.String("po_number"))

	_, err = s.Create(context.Background(), res, Record{"supplier_name": "Paper Co", "order_date": "2024-06-01"})
	var inv *invalidError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, []string{"The items field is required."}, inv.fields["items"])
}

func TestSeedAndSweepOverdue(t *testing.T) {
	s, ts := newTestServer(t)

	seeded, err := Seed(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = Seed(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, seeded, "second seed is a no-op")

	_, env := call(t, ts, http.MethodGet, "/api/invoices?status=overdue", nil)
	var page struct {
		Invoices []Record `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Invoices, 1)
	assert.Equal(t, "Initech", page.Invoices[0].String("customer_name"))

	n, err := s.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "already swept")
}

func TestAuditLog_Endpoint(t *testing.T) {
	_, ts := newTestServer(t)
	call(t, ts, http.MethodPost, "/api/invoices", invoiceBody(""))

	status, env := call(t, ts, http.MethodGet, "/api/audit-log?entity=invoices", nil)
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Entries []AuditEntry `json:"audit_log"`
		Total   int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, 1, data.Total)
	assert.Equal(t, ActionCreate, data.Entries[0].Action)
	assert.Equal(t, SeverityLow, data.Entries[0].Severity)
	assert.NotEmpty(t, data.Entries[0].IPAddress)
}

func TestAPIKeyRequired(t *testing.T) {
	s := New(NewMemoryRepository(), Options{Security: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	status, env := call(t, ts, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing API key", env.Message)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/invoices", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "k2")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req.Header.Set("X-API-Key", "nope")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Health checks stay open.
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
