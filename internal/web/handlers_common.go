// Package web provides HTTP handlers for the dashboard.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/logging"
)

// maxFormSize caps urlencoded form bodies.
const maxFormSize = 1 << 20

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// entityFromURL resolves the {entity} segment. It writes the not-found
// response itself and reports false when there is no such entity.
func (s *Server) entityFromURL(w http.ResponseWriter, r *http.Request) (app.Entity, bool) {
	e, ok := s.services.Entity(chi.URLParam(r, "entity"))
	if !ok {
		s.respondError(w, r, ErrUnknownEntity, http.StatusNotFound)
		return nil, false
	}
	return e, true
}

// parseFilters extracts search, the server page and the entity's filter
// fields from the query. Only keys present in the query are returned, so
// absent filters keep their previous value in the store. The store resets
// the page itself when another filter changes.
func parseFilters(r *http.Request, info entity.Info) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string)

	keys := []string{"search", "page"}
	for _, f := range info.Filters {
		keys = append(keys, f.Name)
	}
	for _, k := range keys {
		if _, ok := q[k]; ok {
			out[k] = strings.TrimSpace(q.Get(k))
		}
	}
	return out
}

// formValues reads the submitted values of the given fields. Fields absent
// from the form are left out so the store keeps their loaded value.
func formValues(w http.ResponseWriter, r *http.Request, fields []entity.FieldSpec) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if vs, ok := r.PostForm[f.Name]; ok && len(vs) > 0 {
			out[f.Name] = vs[0]
		}
	}
	return out, nil
}

// redirectWithNotice sends the browser to target with a one-off success
// notice.
func redirectWithNotice(w http.ResponseWriter, r *http.Request, target, notice string) {
	redirectWith(w, r, target, "notice", notice)
}

// redirectWithError sends the browser to target with a one-off error banner.
func redirectWithError(w http.ResponseWriter, r *http.Request, target, msg string) {
	redirectWith(w, r, target, "error", msg)
}

func redirectWith(w http.ResponseWriter, r *http.Request, target, key, msg string) {
	if msg != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + key + "=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// render writes content inside the layout with the given status. The notice
// and error query parameters set by redirectWith are shown above the content.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, title, active string, content templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	q := r.URL.Query()
	if err := layout(title, active, q.Get("notice"), q.Get("error"), content).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}
