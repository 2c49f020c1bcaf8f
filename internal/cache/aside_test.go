package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedTag struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]cachedTag) func() error {
		return func() error {
			calls++
			*dest = []cachedTag{{ID: 1, Slug: "breakfast"}}
			return nil
		}
	}

	var first []cachedTag
	require.NoError(t, Aside(ctx, TagListKey, &first, TagTTL, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(TagListKey))
	assert.Equal(t, TagTTL, mr.TTL(TagListKey))

	var second []cachedTag
	require.NoError(t, Aside(ctx, TagListKey, &second, TagTTL, fetch(&second)))
	assert.Equal(t, 1, calls, "second lookup must be served from redis")
	assert.Equal(t, first, second)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("db down")

	var out []cachedTag
	err := Aside(context.Background(), TagListKey, &out, TagTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(TagListKey))
}

func TestAside_NoClient(t *testing.T) {
	SetClient(nil)
	calls := 0
	var out cachedTag
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), UserKey(1), &out, UserTTL, func() error {
			calls++
			out = cachedTag{ID: 1}
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_RedisDownFallsThrough(t *testing.T) {
	mr := setupMiniredis(t)
	mr.Close()

	var out cachedTag
	err := Aside(context.Background(), UserKey(3), &out, time.Minute, func() error {
		out = cachedTag{ID: 3}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), out.ID)
}

func TestInvalidate(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(5), cachedTag{ID: 5}, UserTTL))
	require.NoError(t, SetJSON(ctx, TagListKey, []cachedTag{{ID: 1}}, TagTTL))
	require.NoError(t, SetJSON(ctx, TagKey(1), cachedTag{ID: 1}, TagTTL))

	InvalidateUser(ctx, 5)
	InvalidateTags(ctx, 1)

	assert.False(t, mr.Exists(UserKey(5)))
	assert.False(t, mr.Exists(TagListKey))
	assert.False(t, mr.Exists(TagKey(1)))
}

func TestKeyFamily(t *testing.T) {
	assert.Equal(t, "user", keyFamily("user:12"))
	assert.Equal(t, "tags", keyFamily("tags:all"))
	assert.Equal(t, "plain", keyFamily("plain"))
}
