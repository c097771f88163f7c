// Package admin provides administrative operations for the record store.
package admin

import (
	"context"
	"fmt"
	"time"
)

// ResetTimeout is the maximum duration for reset operations.
const ResetTimeout = 30 * time.Second

// Truncater empties every record of one kind.
type Truncater interface {
	Truncate(ctx context.Context, kind string) error
}

// Reset empties the store kind by kind.
type Reset struct {
	Repo  Truncater
	Kinds []string
}

type resetFn func(ctx context.Context) error

// ResetAll truncates every kind and stops at the first failure.
// This is a destructive operation - use with caution.
func (r *Reset) ResetAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	resets := make([]resetFn, 0, len(r.Kinds))
	for _, kind := range r.Kinds {
		resets = append(resets, func(ctx context.Context) error {
			if err := r.Repo.Truncate(ctx, kind); err != nil {
				return fmt.Errorf("reset %s: %w", kind, err)
			}
			return nil
		})
	}
	return runResets(ctx, resets)
}

func runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
