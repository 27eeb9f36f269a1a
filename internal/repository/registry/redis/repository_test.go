package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/playerbridge/internal/repository/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *repo {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterList(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "e1"))
	require.NoError(t, r.Register(ctx, "e2"))
	require.NoError(t, r.Register(ctx, "e1"))

	entries, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	ids := []string{entries[0].EmbedID, entries[1].EmbedID}
	assert.ElementsMatch(t, []string{"e1", "e2"}, ids)
	for _, e := range entries {
		assert.False(t, e.RegisteredAt.IsZero())
	}

	ok, err := r.IsRegistered(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnregister(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "e1"))
	require.NoError(t, r.Unregister(ctx, "e1"))
	assert.ErrorIs(t, r.Unregister(ctx, "e1"), registry.ErrVideoNotRegistered)

	ok, err := r.IsRegistered(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "e1"))
	require.NoError(t, r.Clear(ctx))

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
