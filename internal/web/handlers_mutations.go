package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// handleNew renders an empty create form with the entity's defaults.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()
	s.render(w, r, http.StatusOK, "New "+info.Label, info.Key, formView(formPage{
		Info:   info,
		Fields: e.Fields(),
		Action: "/" + info.Key,
		Title:  "New " + info.Label,
		Values: e.NewValues(),
	}))
}

// handleEdit renders the edit form loaded from the current record.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()
	id := chi.URLParam(r, "id")

	values, err := e.EditValues(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, http.StatusOK, "Edit "+info.Label, info.Key, formView(formPage{
		Info:   info,
		Fields: e.Fields(),
		Action: "/" + info.Key + "/" + url.PathEscape(id),
		Title:  "Edit " + info.Label,
		Values: values,
	}))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, chi.URLParam(r, "id"))
}

// save creates (id == "") or updates a record. Local validation failures
// re-render the form with inline messages only; server field errors add the
// server's summary banner; any other failure shows the mapped message as the
// banner and keeps the submitted values.
func (s *Server) save(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()
	op := "create"
	if id != "" {
		op = "update"
	}

	submitted, err := formValues(w, r, e.Fields())
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := e.Save(r.Context(), id, submitted)
	if err == nil {
		redirectWithNotice(w, r, "/"+info.Key, res.Message)
		return
	}

	page := formPage{
		Info:   info,
		Fields: e.Fields(),
		Action: "/" + info.Key,
		Title:  "New " + info.Label,
		Values: res.Values,
		Errors: res.Errors,
	}
	if id != "" {
		page.Action += "/" + url.PathEscape(id)
		page.Title = "Edit " + info.Label
	}
	if page.Values == nil {
		page.Values = submitted
	}

	status := http.StatusUnprocessableEntity
	var ve *store.ValidationError
	switch {
	case errors.Is(err, app.ErrInvalid):
	case errors.As(err, &ve):
		page.Banner = res.Banner
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, r, err, http.StatusNotFound)
		return
	default:
		logging.ForOperation(r.Context(), info.Key, op).Warn("save failed", "error", err)
		status = statusFor(err)
		page.Banner = res.Banner
		if page.Banner == "" {
			page.Banner = MapError(err).Message
		}
	}

	if wantsJSON(r) {
		writeJSON(w, status, map[string]any{
			"message": page.Banner,
			"errors":  orEmpty(page.Errors),
		})
		return
	}
	s.render(w, r, status, page.Title, info.Key, formView(page))
}

// handleDelete deletes a record and returns to the list. Failures such as a
// backend delete guard come back as the list's error banner.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()

	msg, err := e.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logging.ForOperation(r.Context(), info.Key, "delete").Warn("delete failed", "error", err)
		if wantsJSON(r) {
			s.respondError(w, r, err, 0)
			return
		}
		redirectWithError(w, r, "/"+info.Key, FormatUserError(err))
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
		return
	}
	redirectWithNotice(w, r, "/"+info.Key, msg)
}

// handleAction runs a side action such as approve or send. Submitted form
// values other than the CSRF token are forwarded as the request body.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityFromURL(w, r)
	if !ok {
		return
	}
	info := e.Info()
	action := chi.URLParam(r, "action")

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	body := make(map[string]string)
	for k, vs := range r.PostForm {
		if k == "csrf_token" || len(vs) == 0 || vs[0] == "" {
			continue
		}
		body[k] = vs[0]
	}

	msg, err := e.Action(r.Context(), chi.URLParam(r, "id"), action, body)
	if err != nil {
		logging.ForOperation(r.Context(), info.Key, action).Warn("action failed", "error", err)
		if wantsJSON(r) || errors.Is(err, app.ErrUnknownAction) {
			s.respondError(w, r, err, 0)
			return
		}
		redirectWithError(w, r, "/"+info.Key, FormatUserError(err))
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
		return
	}
	redirectWithNotice(w, r, "/"+info.Key, msg)
}

func orEmpty(errs validate.Errors) validate.Errors {
	if errs == nil {
		return validate.Errors{}
	}
	return errs
}
