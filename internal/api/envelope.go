// Package api is the REST client for the backend's uniform response envelope.
//
// Every endpoint answers with
//
//	{ "success": bool, "message": "...", "data": ..., "errors": { "field": ["msg"] } }
//
// and list endpoints nest the rows under an entity-specific key next to a
// pagination block:
//
//	{ "data": { "invoices": [...], "pagination": { "current_page": 1, ... } } }
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope[T any] struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    T                   `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Pagination is the server-side pagination block of a list response.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Page is one decoded page of a list response.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// ErrMalformedResponse is returned when a response body is not a valid envelope.
var ErrMalformedResponse = errors.New("api: malformed response")

// Error is a failed request as reported by the server: a non-2xx status or
// an envelope with success=false.
type Error struct {
	Status      int
	Message     string
	FieldErrors map[string][]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status > 0 {
		return fmt.Sprintf("request failed: %d %s", e.Status, http.StatusText(e.Status))
	}
	return "request failed"
}

// HasFieldErrors reports whether the server returned field-keyed validation errors.
func (e *Error) HasFieldErrors() bool {
	return len(e.FieldErrors) > 0
}

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// decodePage decodes list data. The rows live under listKey; a bare array is
// accepted as a single unpaginated page.
func decodePage[T any](raw json.RawMessage, listKey string) (Page[T], error) {
	var page Page[T]
	if isNull(raw) {
		return page, nil
	}

	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return page, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		page.Pagination = Pagination{CurrentPage: 1, LastPage: 1, PerPage: len(page.Items), Total: len(page.Items)}
		return page, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return page, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if items, ok := obj[listKey]; ok && !isNull(items) {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return page, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, listKey, err)
		}
	}
	if p, ok := obj["pagination"]; ok && !isNull(p) {
		if err := json.Unmarshal(p, &page.Pagination); err != nil {
			return page, fmt.Errorf("%w: pagination: %v", ErrMalformedResponse, err)
		}
	}
	return page, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
