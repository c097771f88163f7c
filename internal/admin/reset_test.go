package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bizdash/internal/backend"
)

type failingTruncater struct {
	failOn string
	seen   []string
}

func (f *failingTruncater) Truncate(_ context.Context, kind string) error {
	f.seen = append(f.seen, kind)
	if kind == f.failOn {
		return errors.New("boom")
	}
	return nil
}

func TestResetAllEmptiesEveryKind(t *testing.T) {
	ctx := context.Background()
	srv := backend.New(backend.NewMemoryRepository(), backend.Options{})
	seeded, err := backend.Seed(ctx, srv)
	require.NoError(t, err)
	require.True(t, seeded)

	repo := srv.Repository()
	n, err := repo.Count(ctx, "invoices")
	require.NoError(t, err)
	require.Positive(t, n)

	r := &Reset{Repo: repo, Kinds: srv.Kinds()}
	require.NoError(t, r.ResetAll(ctx))

	for _, kind := range srv.Kinds() {
		n, err := repo.Count(ctx, kind)
		require.NoError(t, err)
		assert.Zero(t, n, kind)
	}

	seeded, err = backend.Seed(ctx, srv)
	require.NoError(t, err)
	assert.True(t, seeded, "an emptied store is seeded again")
}

func TestResetAllStopsAtFirstFailure(t *testing.T) {
	f := &failingTruncater{failOn: "b"}
	r := &Reset{Repo: f, Kinds: []string{"a", "b", "c"}}

	err := r.ResetAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset b: boom")
	assert.Equal(t, []string{"a", "b"}, f.seen)
}
