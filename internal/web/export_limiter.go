package web

// export_limiter.go bounds how many CSV exports run at once.
//
// Exports fetch and encode whole result sets, so a semaphore caps them.
// When every slot is taken a request waits up to maxWait, then fails with
// ErrTooManyExports. WaitForDrain lets shutdown finish running exports.

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrTooManyExports is returned when no export slot frees up in time.
var ErrTooManyExports = errors.New("too many concurrent exports, please try again later")

// DefaultMaxConcurrentExports is the default limit for parallel exports.
const DefaultMaxConcurrentExports = 2

// DefaultExportWait is how long to wait for a slot before rejecting.
const DefaultExportWait = 10 * time.Second

// ExportLimiter is a counting semaphore for export handlers.
type ExportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewExportLimiter allows at most maxConcurrent simultaneous exports.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it (use defer).
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyExports
	}
}

// Release frees a slot taken by Acquire.
func (l *ExportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of running exports.
func (l *ExportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ExportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no export is running or ctx ends.
func (l *ExportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// limitExports wraps an export handler in the server's limiter.
func (s *Server) limitExports(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.exports.Acquire(r.Context()); err != nil {
			w.Header().Set("Retry-After", "5")
			s.respondError(w, r, err, 0)
			return
		}
		defer s.exports.Release()
		next(w, r)
	}
}
