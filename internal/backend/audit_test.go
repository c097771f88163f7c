package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_EvictsOldest(t *testing.T) {
	l := NewAuditLog(3)
	l.now = func() time.Time { return fixedNow }
	for _, id := range []string{"a", "b", "c", "d"} {
		l.Log(context.Background(), AuditEntry{Action: ActionCreate, Entity: "invoices", RecordID: id})
	}

	entries, total := l.Entries(AuditFilter{})
	require.Equal(t, 3, total)
	assert.Equal(t, "d", entries[0].RecordID)
	assert.Equal(t, "b", entries[2].RecordID)
	assert.Equal(t, fixedNow, entries[0].CreatedAt)
}

func TestAuditLog_FilterAndPaging(t *testing.T) {
	l := NewAuditLog(10)
	ctx := ContextWithRequestMetadata(context.Background(), "10.0.0.1", "curl/8")
	l.Log(ctx, AuditEntry{Action: ActionCreate, Entity: "invoices"})
	l.Log(ctx, AuditEntry{Action: ActionDelete, Entity: "invoices"})
	l.Log(ctx, AuditEntry{Action: ActionDelete, Entity: "employees"})

	entries, total := l.Entries(AuditFilter{Action: ActionDelete})
	require.Equal(t, 2, total)
	assert.Equal(t, "employees", entries[0].Entity)
	assert.Equal(t, SeverityHigh, entries[0].Severity)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.Equal(t, "curl/8", entries[0].UserAgent)

	entries, total = l.Entries(AuditFilter{Entity: "invoices", Limit: 1, Offset: 1})
	assert.Equal(t, 2, total)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionCreate, entries[0].Action)

	entries, _ = l.Entries(AuditFilter{Offset: 5})
	assert.Empty(t, entries)
}

func TestAuditLog_ZeroCapacityDisables(t *testing.T) {
	l := NewAuditLog(0)
	e := l.Log(context.Background(), AuditEntry{Action: ActionUpdate})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, SeverityMedium, e.Severity)

	_, total := l.Entries(AuditFilter{})
	assert.Zero(t, total)
}
