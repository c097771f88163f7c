package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/table"
)

// dashboardConcurrency bounds the count requests issued for the dashboard.
const dashboardConcurrency = 4

// handleHealth reports liveness. The backend is not contacted.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboard renders one card per entity with its record count.
// Counts come straight from the API so the stores' filters are untouched.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	entities := s.services.Entities()
	cards := make([]entityCard, len(entities))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(dashboardConcurrency)
	for i, e := range entities {
		cards[i].Info = e.Info()
		g.Go(func() error {
			total, err := s.countRecords(ctx, cards[i].Info.Key)
			if err != nil {
				logging.ForOperation(ctx, cards[i].Info.Key, "count").Warn("count failed", "error", err)
				cards[i].Error = MapError(err).Message
				return nil
			}
			cards[i].Total = total
			return nil
		})
	}
	_ = g.Wait()

	s.render(w, r, http.StatusOK, "Dashboard", "", dashboardView(cards))
}

// countRecords asks for a one-row page and reads the pagination total.
func (s *Server) countRecords(ctx context.Context, key string) (int, error) {
	env, err := s.client.Do(ctx, http.MethodGet, key, url.Values{"per_page": {"1"}}, nil)
	if err != nil {
		return 0, err
	}
	var data struct {
		Pagination api.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, fmt.Errorf("%w: %v", api.ErrMalformedResponse, err)
	}
	return data.Pagination.Total, nil
}

// handleList renders an entity's list page. A failed fetch keeps the page
// usable and shows the error above the previous rows.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()

	listing, err := e.List(r.Context(), app.ListOptions{
		Filters:   parseFilters(r, info),
		Reset:     r.URL.Query().Get("reset") != "",
		TablePage: parseIntParam(r, "p", 1),
	})
	if err != nil {
		logging.ForOperation(r.Context(), info.Key, "list").Warn("list failed", "error", err)
		if listing.Table == nil {
			s.respondError(w, r, err, 0)
			return
		}
		if listing.Error == "" {
			listing.Error = MapError(err).Message
		}
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":       listing.Records,
			"pagination": listing.Pagination,
			"filters":    listing.Filters,
			"error":      listing.Error,
		})
		return
	}
	s.render(w, r, http.StatusOK, info.Plural, info.Key, listView(listing, r.URL.Query()))
}

// handleExport streams the fetched server page as CSV, ignoring the
// table's client-side pagination.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()

	listing, err := e.List(r.Context(), app.ListOptions{Filters: parseFilters(r, info)})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", info.Key, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := table.WriteCSV(w, listing.Table); err != nil {
		logging.ForOperation(r.Context(), info.Key, "export").Error("csv write failed", "error", err)
	}
}
