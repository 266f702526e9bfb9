package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/utils"
)

func newMemoryCache(t *testing.T) *LayeredCache {
	t.Helper()
	utils.InitCache()
	return NewLayeredCache(nil)
}

func TestLayeredCacheRoundTrip(t *testing.T) {
	c := newMemoryCache(t)

	movie := model.Movie{ID: "tt0111161", Title: "The Shawshank Redemption", Year: 1994}
	c.Set("movie_tt0111161", movie)

	var got model.Movie
	require.True(t, c.Get("movie_tt0111161", time.Hour, &got))
	assert.Equal(t, movie, got)
}

func TestLayeredCacheMissOnUnknownKey(t *testing.T) {
	c := newMemoryCache(t)

	var got model.Movie
	assert.False(t, c.Get("movie_unknown", time.Hour, &got))
}

// TTL 是读取侧语义：同一条目对不同 TTL 的读取方新鲜度不同
func TestLayeredCacheTTLBoundary(t *testing.T) {
	c := newMemoryCache(t)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("popular_movies", []model.Movie{{ID: "1", Title: "Inception"}})

	ttl := time.Hour
	var got []model.Movie

	// TTL 内 1 毫秒，命中
	c.now = func() time.Time { return base.Add(ttl - time.Millisecond) }
	assert.True(t, c.Get("popular_movies", ttl, &got))

	// 刚过 TTL，按未命中处理
	c.now = func() time.Time { return base.Add(ttl + time.Millisecond) }
	got = nil
	assert.False(t, c.Get("popular_movies", ttl, &got))

	// 同一条目用更长的 TTL 读取依然新鲜
	assert.True(t, c.Get("popular_movies", 24*time.Hour, &got))
}

func TestLayeredCacheSetOverwrites(t *testing.T) {
	c := newMemoryCache(t)

	c.Set("search_matrix", []string{"old"})
	c.Set("search_matrix", []string{"new"})

	var got []string
	require.True(t, c.Get("search_matrix", time.Hour, &got))
	assert.Equal(t, []string{"new"}, got)
}
