package backend

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of mutation being audited.
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	// ActionTransition covers side actions such as approve, post or void.
	ActionTransition AuditAction = "transition"
	// ActionSweep is a status change made by the overdue scheduler.
	ActionSweep AuditAction = "sweep"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        string        `json:"id"`
	Action    AuditAction   `json:"action"`
	Severity  AuditSeverity `json:"severity"`
	Entity    string        `json:"entity"`
	RecordID  string        `json:"record_id"`
	Name      string        `json:"name,omitempty"` // side action name
	OldStatus string        `json:"old_status,omitempty"`
	NewStatus string        `json:"new_status,omitempty"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionDelete:
		return SeverityHigh
	case ActionTransition, ActionUpdate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AuditLog keeps the most recent entries up to a fixed capacity.
type AuditLog struct {
	mu       sync.Mutex
	entries  []AuditEntry // oldest first
	capacity int
	now      func() time.Time
}

// NewAuditLog returns a log holding at most capacity entries. A capacity of
// zero disables auditing.
func NewAuditLog(capacity int) *AuditLog {
	return &AuditLog{capacity: capacity, now: time.Now}
}

// Log records entry, filling in id, severity, time and request metadata.
func (l *AuditLog) Log(ctx context.Context, entry AuditEntry) AuditEntry {
	entry.ID = uuid.NewString()
	entry.Severity = determineSeverity(entry.Action)
	entry.IPAddress = IPAddressFromContext(ctx)
	entry.UserAgent = UserAgentFromContext(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	entry.CreatedAt = l.now().UTC()
	if l.capacity <= 0 {
		return entry
	}
	if len(l.entries) >= l.capacity {
		l.entries = slices.Delete(l.entries, 0, len(l.entries)-l.capacity+1)
	}
	l.entries = append(l.entries, entry)
	return entry
}

// AuditFilter contains filtering options for querying the log.
type AuditFilter struct {
	Entity string
	Action AuditAction
	Limit  int
	Offset int
}

// DefaultAuditLimit applies when a filter sets no limit.
const DefaultAuditLimit = 50

// Entries returns matching entries, newest first, and the total match count.
func (l *AuditLog) Entries(filter AuditFilter) ([]AuditEntry, int) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []AuditEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	if filter.Offset >= total {
		return []AuditEntry{}, total
	}
	end := min(filter.Offset+filter.Limit, total)
	return matched[filter.Offset:end], total
}

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
)

// ContextWithRequestMetadata adds the client address and user agent for
// audit entries.
func ContextWithRequestMetadata(ctx context.Context, ip, ua string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// IPAddressFromContext extracts the client address from ctx.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext extracts the user agent from ctx.
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}
