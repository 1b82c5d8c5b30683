package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute, nil))
	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Second, []string{"t"}))
	_, ok, _ := s.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Stats().Entries)
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0, nil))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0, nil))
	_, _, _ = s.Get(ctx, "a") // a is now most recent
	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0, nil))

	_, ok, _ := s.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = s.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestMemoryStore_InvalidateTags(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	require.NoError(t, s.Set(ctx, "item:1", []byte("x"), time.Minute, []string{ContentIDTag(1, "en-us")}))
	require.NoError(t, s.Set(ctx, "list:posts", []byte("y"), time.Minute, []string{ContentRefTag("posts", "en-us")}))
	require.NoError(t, s.Set(ctx, "sitemap", []byte("z"), time.Minute, []string{SitemapFlatTag("en-us"), "shared"}))
	require.NoError(t, s.Set(ctx, "nested", []byte("w"), time.Minute, []string{SitemapNestedTag("en-us"), "shared"}))

	n, err := s.InvalidateTags(ctx, "shared", "unknown-tag")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, _ := s.Get(ctx, "sitemap")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "item:1")
	assert.True(t, ok)

	n, err = s.InvalidateTags(ctx, ContentIDTag(1, "en-us"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_OverwriteReplacesTags(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	require.NoError(t, s.Set(ctx, "k", []byte("1"), 0, []string{"old"}))
	require.NoError(t, s.Set(ctx, "k", []byte("2"), 0, []string{"new"}))

	n, _ := s.InvalidateTags(ctx, "old")
	assert.Equal(t, 0, n)

	val, ok, _ := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), val)
}

func TestMemoryStore_Flush(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	require.NoError(t, s.Set(ctx, "k", []byte("1"), 0, []string{"t"}))
	require.NoError(t, s.Flush(ctx))

	_, ok, _ := s.Get(ctx, "k")
	assert.False(t, ok)
	n, _ := s.InvalidateTags(ctx, "t")
	assert.Equal(t, 0, n)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%7)
			_ = s.Set(ctx, key, []byte("v"), time.Minute, []string{fmt.Sprintf("t%d", i%3)})
			_, _, _ = s.Get(ctx, key)
			_, _ = s.InvalidateTags(ctx, fmt.Sprintf("t%d", i%5))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Stats().Entries, 7)
}

func TestTags(t *testing.T) {
	assert.Equal(t, "content-posts-en-us", ContentRefTag("posts", "en-us"))
	assert.Equal(t, "content-posts-en-us", ContentRefTag("Posts", "en-us"))
	assert.Equal(t, "content-42-fr-ca", ContentIDTag(42, "fr-ca"))
	assert.Equal(t, "page-7-en-us", PageTag(7, "en-us"))
	assert.Equal(t, "sitemap-flat-en-us", SitemapFlatTag("en-us"))
	assert.Equal(t, "sitemap-nested-en-us", SitemapNestedTag("en-us"))

	assert.Equal(t, TagKindContent, TagKind("content-1-en"))
	assert.Equal(t, TagKindPage, TagKind("page-1-en"))
	assert.Equal(t, TagKindSitemap, TagKind("sitemap-flat-en"))
	assert.Equal(t, "other", TagKind("x"))
}
