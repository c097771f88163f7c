package web

// messages.go maps errors to user-facing messages with codes for support
// reference. Users can quote the code; support looks it up here.
//
// # Backend Errors (API001-API099)
//
//	API001 - Backend unreachable: the API server refused the connection
//	API002 - Unknown host: API_BASE_URL names a host that does not resolve
//	API003 - Timeout: the backend did not answer in time
//	API004 - Cancelled: the request was cancelled
//	API005 - Backend failure: the backend answered 5xx
//	API006 - Bad response: the backend answered with something other than JSON
//
// # Access Errors (AUTH001-AUTH099)
//
//	AUTH001 - The backend requires an API key and none was sent
//	AUTH002 - The backend rejected the API key
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Not found: the record or entity does not exist
//	REC002 - Unknown action: the entity does not offer the action
//	REC003 - Rejected: the backend refused the change (422)
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests
//	RATE002 - Too many exports: every export slot stayed busy
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the logs for the technical error
//
// Typed errors are checked first; the remaining text patterns are matched
// case-insensitively and the first match wins.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/store"
)

// ErrUnknownEntity is returned for a URL naming no registered entity.
var ErrUnknownEntity = errors.New("unknown entity")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgNotFound = UserMessage{
		Message: "The record could not be found",
		Action:  "It may have been deleted. Return to the list and refresh",
		Code:    "REC001",
	}
	msgUnknownAction = UserMessage{
		Message: "That action is not available",
		Action:  "Choose an action from the row menu",
		Code:    "REC002",
	}
	msgMissingKey = UserMessage{
		Message: "The backend requires an API key",
		Action:  "Set API_KEY for the dashboard",
		Code:    "AUTH001",
	}
	msgInvalidKey = UserMessage{
		Message: "The backend rejected the API key",
		Action:  "Check that API_KEY matches one of the backend's API_KEYS",
		Code:    "AUTH002",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
	msgTooManyExports = UserMessage{
		Message: "Too many exports are running",
		Action:  "Please wait for other downloads to finish and try again",
		Code:    "RATE002",
	}
	msgBackendFailure = UserMessage{
		Message: "The backend failed to process the request",
		Action:  "Please try again. If it persists, check the backend logs",
		Code:    "API005",
	}
)

// errorPatterns match the text of errors no typed check recognised.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the backend",
			Action:  "Check that the API server is running",
			Code:    "API001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The backend host could not be found",
			Action:  "Check API_BASE_URL",
			Code:    "API002",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The backend did not respond in time",
			Action:  "Please try again in a few moments",
			Code:    "API003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The backend did not respond in time",
			Action:  "Please try again in a few moments",
			Code:    "API003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "API004",
		},
	},
	{
		pattern: "malformed response",
		msg: UserMessage{
			Message: "The backend sent an unexpected response",
			Action:  "Check that API_BASE_URL points at the API root",
			Code:    "API006",
		},
	},
	{
		pattern: "rate limit",
		msg:     msgRateLimited,
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Backend 422
// responses keep the backend's own message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrUnknownEntity):
		return msgNotFound
	case errors.Is(err, app.ErrUnknownAction):
		return msgUnknownAction
	case errors.Is(err, ErrTooManyExports):
		return msgTooManyExports
	}

	if apiErr, ok := api.AsError(err); ok {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return msgMissingKey
		case apiErr.Status == http.StatusForbidden:
			return msgInvalidKey
		case apiErr.Status == http.StatusNotFound:
			return msgNotFound
		case apiErr.Status == http.StatusTooManyRequests:
			return msgRateLimited
		case apiErr.Status >= 500:
			return msgBackendFailure
		case apiErr.Message != "":
			return UserMessage{
				Message: apiErr.Message,
				Action:  "Review the record and try again",
				Code:    "REC003",
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// statusFor picks the dashboard's response status for err.
func statusFor(err error) int {
	switch msg := MapError(err); msg.Code {
	case msgNotFound.Code:
		return http.StatusNotFound
	case msgUnknownAction.Code:
		return http.StatusBadRequest
	case "REC003":
		return http.StatusUnprocessableEntity
	case msgRateLimited.Code:
		return http.StatusTooManyRequests
	case msgTooManyExports.Code:
		return http.StatusServiceUnavailable
	case defaultMessage.Code:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
