package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/table"
)

const (
	auditPageSize = 50
	// auditExportLimit bounds a CSV export.
	auditExportLimit = 10000
)

// auditFilter holds the audit-log query parameters.
type auditFilter struct {
	Entity string
	Action string
	Limit  int
	Offset int
}

func parseAuditFilter(r *http.Request) auditFilter {
	q := r.URL.Query()
	return auditFilter{
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
}

// fetchAudit reads one slice of the backend's audit log, newest first.
func (s *Server) fetchAudit(ctx context.Context, f auditFilter) ([]auditEntry, int, error) {
	q := url.Values{
		"limit":  {strconv.Itoa(f.Limit)},
		"offset": {strconv.Itoa(f.Offset)},
	}
	if f.Entity != "" {
		q.Set("entity", f.Entity)
	}
	if f.Action != "" {
		q.Set("action", f.Action)
	}

	env, err := s.client.Do(ctx, http.MethodGet, "audit-log", q, nil)
	if err != nil {
		return nil, 0, err
	}
	var data struct {
		Entries []auditEntry `json:"audit_log"`
		Total   int          `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", api.ErrMalformedResponse, err)
	}
	return data.Entries, data.Total, nil
}

// handleAuditLog renders the audit log page with filtering and pagination.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1)
	f := parseAuditFilter(r)
	f.Limit = auditPageSize
	f.Offset = (page - 1) * auditPageSize

	params := auditPage{Page: page, Entity: f.Entity, Action: f.Action}
	entries, total, err := s.fetchAudit(r.Context(), f)
	if err != nil {
		if wantsJSON(r) {
			s.respondError(w, r, err, 0)
			return
		}
		params.Error = FormatUserError(err)
	}
	params.Entries = entries
	params.Total = total
	params.TotalPages = (total + auditPageSize - 1) / auditPageSize

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"audit_log": entries, "total": total})
		return
	}
	s.render(w, r, http.StatusOK, "Audit Log", "audit", auditView(params))
}

// handleAuditLogExport exports the filtered audit log as CSV.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	f := parseAuditFilter(r)
	f.Limit = auditExportLimit

	entries, _, err := s.fetchAudit(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := table.WriteCSV(w, auditTable(entries)); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}
