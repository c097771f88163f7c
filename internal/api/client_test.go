package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoice struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	Total         float64 `json:"total"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api", WithHeader("X-Tenant", "acme"))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8081/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/api", c.BaseURL())
}

func TestListDecodesNestedRowsAndPagination(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/invoices", r.URL.Path)
		assert.Equal(t, "acme", r.Header.Get("X-Tenant"))
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, `{
			"success": true,
			"data": {
				"invoices": [{"id": "1", "invoice_number": "INV-1", "total": 10.5}],
				"pagination": {"current_page": 2, "last_page": 3, "per_page": 1, "total": 3}
			}
		}`)
	})

	res := NewResource[invoice](c, "invoices", "")
	page, err := res.List(context.Background(), url.Values{"search": {"INV"}, "page": {"2"}})
	require.NoError(t, err)

	assert.Equal(t, "INV", gotQuery.Get("search"))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "INV-1", page.Items[0].InvoiceNumber)
	assert.Equal(t, Pagination{CurrentPage: 2, LastPage: 3, PerPage: 1, Total: 3}, page.Pagination)
}

func TestListAcceptsBareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success": true, "data": [{"id": "a"}, {"id": "b"}]}`)
	})
	page, err := NewResource[invoice](c, "journal-entries", "journal_entries").List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.LastPage)
}

func TestValidationFailureCarriesFieldErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "INV-1", body["invoice_number"])
		writeJSON(w, http.StatusUnprocessableEntity, `{
			"success": false,
			"message": "The given data was invalid.",
			"errors": {"invoice_number": ["The invoice number has already been taken."]}
		}`)
	})

	rec, _, err := NewResource[invoice](c, "invoices", "").Create(context.Background(), map[string]any{"invoice_number": "INV-1"})
	assert.Nil(t, rec)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "The given data was invalid.", apiErr.Error())
	assert.True(t, apiErr.HasFieldErrors())
	assert.Equal(t, []string{"The invoice number has already been taken."}, apiErr.FieldErrors["invoice_number"])
}

func TestSuccessFalseOn200IsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success": false, "message": "Period is closed"}`)
	})
	_, _, err := NewResource[invoice](c, "journal-entries", "").Action(context.Background(), "7", "post", nil)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Period is closed", apiErr.Message)
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	_, err := NewResource[invoice](c, "invoices", "").Get(context.Background(), "1")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "request failed: 502 Bad Gateway", apiErr.Error())
}

func TestMalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `not json`)
	})
	_, err := NewResource[invoice](c, "invoices", "").Get(context.Background(), "1")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEmptyBodyIsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/invoices/a%2Fb", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	})
	msg, err := NewResource[invoice](c, "invoices", "").Delete(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestUpdateReturnsRecordAndMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		writeJSON(w, http.StatusOK, `{"success": true, "message": "Invoice updated", "data": {"id": "1", "total": 99}}`)
	})
	rec, msg, err := NewResource[invoice](c, "invoices", "").Update(context.Background(), "1", map[string]any{"total": 99})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 99.0, rec.Total)
	assert.Equal(t, "Invoice updated", msg)
}

func TestResourceLabel(t *testing.T) {
	assert.Equal(t, "employees", resourceLabel("/employees/42/approve"))
	assert.Equal(t, "invoices", resourceLabel("invoices"))
}
