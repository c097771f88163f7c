package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "store not found maps correctly",
			err:         fmt.Errorf("get invoices/42: %w", store.ErrNotFound),
			wantCode:    "REC001",
			wantMessage: "The record could not be found",
		},
		{
			name:        "unknown entity maps to not found",
			err:         ErrUnknownEntity,
			wantCode:    "REC001",
			wantMessage: "The record could not be found",
		},
		{
			name:        "unknown action maps correctly",
			err:         fmt.Errorf("%w: invoices refund", app.ErrUnknownAction),
			wantCode:    "REC002",
			wantMessage: "That action is not available",
		},
		{
			name:        "busy export slots map correctly",
			err:         ErrTooManyExports,
			wantCode:    "RATE002",
			wantMessage: "Too many exports are running",
		},
		{
			name:        "missing api key maps correctly",
			err:         &api.Error{Status: http.StatusUnauthorized, Message: "Missing API key"},
			wantCode:    "AUTH001",
			wantMessage: "The backend requires an API key",
		},
		{
			name:        "rejected api key maps correctly",
			err:         &api.Error{Status: http.StatusForbidden, Message: "Invalid API key"},
			wantCode:    "AUTH002",
			wantMessage: "The backend rejected the API key",
		},
		{
			name:        "backend 404 maps to not found",
			err:         &api.Error{Status: http.StatusNotFound, Message: "Invoice not found"},
			wantCode:    "REC001",
			wantMessage: "The record could not be found",
		},
		{
			name:        "backend 5xx maps correctly",
			err:         &api.Error{Status: http.StatusInternalServerError, Message: "Server error"},
			wantCode:    "API005",
			wantMessage: "The backend failed to process the request",
		},
		{
			name:        "backend rejection keeps server message",
			err:         fmt.Errorf("send: %w", &api.Error{Status: http.StatusUnprocessableEntity, Message: "Only draft invoices can be sent."}),
			wantCode:    "REC003",
			wantMessage: "Only draft invoices can be sent.",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("GET invoices: dial tcp 127.0.0.1:8081: connect: connection refused"),
			wantCode:    "API001",
			wantMessage: "Unable to reach the backend",
		},
		{
			name:        "unknown host maps correctly",
			err:         errors.New("dial tcp: lookup api.invalid: no such host"),
			wantCode:    "API002",
			wantMessage: "The backend host could not be found",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded (Client.Timeout exceeded while awaiting headers)"),
			wantCode:    "API003",
			wantMessage: "The backend did not respond in time",
		},
		{
			name:        "malformed response maps correctly",
			err:         fmt.Errorf("%w: invalid character '<'", api.ErrMalformedResponse),
			wantCode:    "API006",
			wantMessage: "The backend sent an unexpected response",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("CONNECTION REFUSED"),
			wantCode:    "API001",
			wantMessage: "Unable to reach the backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	result := FormatUserError(err)

	expected := "Unable to reach the backend (Code: API001). Check that the API server is running"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  store.ErrNotFound,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"unknown action", app.ErrUnknownAction, http.StatusBadRequest},
		{"rejected", &api.Error{Status: 422, Message: "Nope."}, http.StatusUnprocessableEntity},
		{"rate limited", &api.Error{Status: 429}, http.StatusTooManyRequests},
		{"exports busy", ErrTooManyExports, http.StatusServiceUnavailable},
		{"backend down", errors.New("connection refused"), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
