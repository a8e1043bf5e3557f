package artifact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caches(t *testing.T) map[string]Cache {
	t.Helper()
	bc, err := OpenBadger("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { bc.Close() })
	return map[string]Cache{
		"memory": NewMemoryCache(),
		"badger": bc,
	}
}

func TestCache_LastWriteWinsPerSession(t *testing.T) {
	ctx := context.Background()
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Latest(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, c.Put(ctx, Artifact{ID: "a1", Session: "s1", Title: "first", Data: []byte("<p>1</p>")}))
			require.NoError(t, c.Put(ctx, Artifact{ID: "a2", Session: "s1", Title: "second", Data: []byte("<p>2</p>")}))
			require.NoError(t, c.Put(ctx, Artifact{ID: "b1", Session: "s2", Title: "other"}))

			got, err := c.Latest(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "a2", got.ID)
			assert.Equal(t, []byte("<p>2</p>"), got.Data)

			other, err := c.Latest(ctx, "s2")
			require.NoError(t, err)
			assert.Equal(t, "other", other.Title)
		})
	}
}

func TestCache_RejectsEmptySession(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, c.Put(context.Background(), Artifact{ID: "x"}))
		})
	}
}

func TestBadgerCache_TTL(t *testing.T) {
	bc, err := OpenBadger("", time.Hour)
	require.NoError(t, err)
	defer bc.Close()

	ctx := context.Background()
	require.NoError(t, bc.Put(ctx, Artifact{ID: "a", Session: "s", CreatedAt: time.Now().UTC().Truncate(time.Second)}))
	got, err := bc.Latest(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}
