package backend

// scheduler.go runs the overdue sweep: invoices that are sent or partially
// paid and past their due date are moved to "overdue". The sweep logs
// failures and keeps running; it stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/JonMunkholm/bizdash/internal/validate"
)

var overdueFrom = []string{"sent", "partially_paid"}

// StartOverdueScheduler sweeps immediately, then every interval, until ctx
// is cancelled.
func (s *Server) StartOverdueScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("overdue scheduler started", "interval", interval)

	s.runOverdueJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("overdue scheduler stopped")
			return
		case <-ticker.C:
			s.runOverdueJob(ctx)
		}
	}
}

func (s *Server) runOverdueJob(ctx context.Context) {
	start := time.Now()
	n, err := s.SweepOverdue(ctx)
	if err != nil {
		slog.Error("overdue sweep failed", "error", err)
		return
	}
	slog.Info("overdue sweep completed",
		"invoices_marked", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// SweepOverdue marks unpaid invoices whose due date has passed as overdue
// and returns how many changed.
func (s *Server) SweepOverdue(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	recs, err := s.repo.List(ctx, "invoices")
	if err != nil {
		return 0, err
	}

	now := s.opts.Now()
	today := now.UTC().Format(validate.DateLayout)
	changed := 0
	for _, rec := range recs {
		if !slices.Contains(overdueFrom, rec.String("status")) {
			continue
		}
		due := validate.DatePart(rec.String("due_date"))
		if due == "" || due >= today {
			continue
		}
		old := rec.String("status")
		rec["status"] = "overdue"
		rec["updated_at"] = now.UTC().Format(time.RFC3339)
		if err := s.repo.Update(ctx, "invoices", rec); err != nil {
			return changed, err
		}
		s.audit.Log(ctx, AuditEntry{
			Action: ActionSweep, Entity: "invoices", RecordID: rec.ID(),
			OldStatus: old, NewStatus: "overdue",
		})
		changed++
	}
	return changed, nil
}
