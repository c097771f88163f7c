package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Repository persists records grouped by kind (the resource key).
type Repository interface {
	// List returns every record of kind, newest first.
	List(ctx context.Context, kind string) ([]Record, error)
	Get(ctx context.Context, kind, id string) (Record, error)
	Insert(ctx context.Context, kind string, rec Record) error
	// Update replaces the stored record with the same id.
	Update(ctx context.Context, kind string, rec Record) error
	Delete(ctx context.Context, kind, id string) error
	Count(ctx context.Context, kind string) (int, error)
	// Truncate removes every record of kind.
	Truncate(ctx context.Context, kind string) error
}

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	kinds map[string][]Record // insertion order
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{kinds: make(map[string][]Record)}
}

func (m *MemoryRepository) List(_ context.Context, kind string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.kinds[kind]
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r.Clone()
	}
	return out, nil
}

func (m *MemoryRepository) Get(_ context.Context, kind, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.index(kind, id); i >= 0 {
		return m.kinds[kind][i].Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func (m *MemoryRepository) Insert(_ context.Context, kind string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index(kind, rec.ID()) >= 0 {
		return fmt.Errorf("insert %s: duplicate id %s", kind, rec.ID())
	}
	m.kinds[kind] = append(m.kinds[kind], rec.Clone())
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, kind string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(kind, rec.ID())
	if i < 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, rec.ID())
	}
	m.kinds[kind][i] = rec.Clone()
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(kind, id)
	if i < 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	m.kinds[kind] = slices.Delete(m.kinds[kind], i, i+1)
	return nil
}

func (m *MemoryRepository) Count(_ context.Context, kind string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.kinds[kind]), nil
}

func (m *MemoryRepository) Truncate(_ context.Context, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kinds, kind)
	return nil
}

// index must be called with mu held.
func (m *MemoryRepository) index(kind, id string) int {
	return slices.IndexFunc(m.kinds[kind], func(r Record) bool { return r.ID() == id })
}
