package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/chefbot/internal/data"
)

func summaries(ids ...int64) []data.RecipeSummary {
	out := make([]data.RecipeSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, data.RecipeSummary{ID: id, Title: fmt.Sprintf("Recipe %d", id)})
	}
	return out
}

// exerciseCache runs the result cache contract against any backend.
func exerciseCache(t *testing.T, cache ResultCache) {
	ctx := context.Background()

	t.Run("EmptyLookup", func(t *testing.T) {
		_, ok, err := cache.Lookup(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		results, err := cache.Results(ctx)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("ReplaceThenLookup", func(t *testing.T) {
		first := summaries(10, 11, 12, 13, 14)
		require.NoError(t, cache.Replace(ctx, first))
		for _, want := range first {
			got, ok, err := cache.Lookup(ctx, want.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)
		}
		_, ok, err := cache.Lookup(ctx, 99)
		require.NoError(t, err)
		assert.False(t, ok)

		results, err := cache.Results(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, results)
	})

	t.Run("ReplaceDiscardsPrevious", func(t *testing.T) {
		require.NoError(t, cache.Replace(ctx, summaries(1, 2, 3)))
		require.NoError(t, cache.Replace(ctx, summaries(4, 5)))
		for _, stale := range []int64{1, 2, 3} {
			_, ok, err := cache.Lookup(ctx, stale)
			require.NoError(t, err)
			assert.False(t, ok, "recipe %d leaked from a superseded search", stale)
		}
		_, ok, err := cache.Lookup(ctx, 5)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("DuplicateIdsKeepFirst", func(t *testing.T) {
		require.NoError(t, cache.Replace(ctx, []data.RecipeSummary{
			{ID: 7, Title: "first"},
			{ID: 7, Title: "second"},
		}))
		got, ok, err := cache.Lookup(ctx, 7)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "first", got.Title)
		results, err := cache.Results(ctx)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, cache.Replace(ctx, summaries(1)))
		require.NoError(t, cache.Clear(ctx))
		_, ok, err := cache.Lookup(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache())
}

func TestMemoryCacheResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	require.NoError(t, cache.Replace(ctx, summaries(1, 2)))
	results, _ := cache.Results(ctx)
	results[0].Title = "mutated"
	got, _, _ := cache.Lookup(ctx, 1)
	assert.Equal(t, "Recipe 1", got.Title)
	again, _ := cache.Results(ctx)
	assert.Equal(t, "Recipe 1", again[0].Title)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("CHEFBOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CHEFBOT_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	conversation := time.Now().UnixNano()
	cache := NewRedisFactory(client, time.Minute)(conversation)
	t.Cleanup(func() { cache.Clear(context.Background()) })
	exerciseCache(t, cache)
}
