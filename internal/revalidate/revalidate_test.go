package revalidate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/metrics"
)

func TestTagsForEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want []string
	}{
		{
			name: "page publish",
			ev:   Event{State: "Published", PageID: 42, LanguageCode: "en-us"},
			want: []string{"page-42-en-us", "sitemap-flat-en-us", "sitemap-nested-en-us"},
		},
		{
			name: "content publish",
			ev:   Event{State: "Published", ReferenceName: "posts", ContentID: 7, LanguageCode: "en-us"},
			want: []string{"content-posts-en-us", "content-7-en-us"},
		},
		{
			name: "content and page together",
			ev:   Event{State: "Published", ReferenceName: "posts", ContentID: 7, PageID: 2, LanguageCode: "fr-ca"},
			want: []string{"content-posts-fr-ca", "content-7-fr-ca", "page-2-fr-ca", "sitemap-flat-fr-ca", "sitemap-nested-fr-ca"},
		},
		{
			name: "mixed case locale",
			ev:   Event{State: "Published", PageID: 1, LanguageCode: "en-US"},
			want: []string{"page-1-en-us", "sitemap-flat-en-us", "sitemap-nested-en-us"},
		},
		{
			name: "reference without content id",
			ev:   Event{State: "Published", ReferenceName: "siteheader", LanguageCode: "en-us"},
			want: []string{"content-siteheader-en-us"},
		},
		{
			name: "mixed case reference name",
			ev:   Event{State: "Published", ReferenceName: "BlogPosts", ContentID: 9, LanguageCode: "en-us"},
			want: []string{"content-blogposts-en-us", "content-9-en-us"},
		},
		{name: "draft", ev: Event{State: "Draft", PageID: 42, LanguageCode: "en-us"}},
		{name: "missing language", ev: Event{State: "Published", PageID: 42}},
		{name: "zero page", ev: Event{State: "Published", PageID: 0, LanguageCode: "en-us"}},
		{name: "negative page", ev: Event{State: "Published", PageID: -3, LanguageCode: "en-us"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TagsForEvent(tt.ev))
		})
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) Reload(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

type failingStore struct{ cache.Store }

func (failingStore) InvalidateTags(context.Context, ...string) (int, error) {
	return 0, errors.New("redis unavailable")
}

func seed(t *testing.T, store cache.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "page", []byte("p"), time.Minute, []string{cache.PageTag(42, "en-us")}))
	require.NoError(t, store.Set(ctx, "flat", []byte("f"), time.Minute, []string{cache.SitemapFlatTag("en-us")}))
	require.NoError(t, store.Set(ctx, "nested", []byte("n"), time.Minute, []string{cache.SitemapNestedTag("en-us")}))
	require.NoError(t, store.Set(ctx, "post", []byte("x"), time.Minute, []string{cache.ContentIDTag(7, "en-us")}))
	require.NoError(t, store.Set(ctx, "fr", []byte("x"), time.Minute, []string{cache.PageTag(42, "fr-ca")}))
}

func TestHandler_PagePublish(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(100)
	seed(t, store)
	notifier := &recordingNotifier{}
	m := metrics.New()
	h := NewHandler(store, notifier, m, nil)

	ack := h.Handle(ctx, Event{State: "Published", PageID: 42, LanguageCode: "en-us"})
	require.NoError(t, ack.Err)
	assert.Equal(t, 3, ack.Invalidated)

	for _, key := range []string{"page", "flat", "nested"} {
		_, ok, _ := store.Get(ctx, key)
		assert.False(t, ok, key)
	}
	for _, key := range []string{"post", "fr"} {
		_, ok, _ := store.Get(ctx, key)
		assert.True(t, ok, key)
	}

	assert.Equal(t, []string{"revalidate"}, notifier.reasons)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheInvalidationsTotal.WithLabelValues(cache.TagKindPage)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheInvalidationsTotal.WithLabelValues(cache.TagKindSitemap)))
}

func TestHandler_DraftIsNoop(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(100)
	seed(t, store)
	notifier := &recordingNotifier{}
	h := NewHandler(store, notifier, nil, nil)

	ack := h.Handle(ctx, Event{State: "Draft", PageID: 42, LanguageCode: "en-us"})
	assert.Empty(t, ack.Tags)
	assert.Equal(t, 5, store.Stats().Entries)
	assert.Empty(t, notifier.reasons)
}

func TestHandler_StoreFailureIsReported(t *testing.T) {
	h := NewHandler(failingStore{}, nil, nil, nil)
	ack := h.Handle(context.Background(), Event{State: "Published", PageID: 1, LanguageCode: "en-us"})
	assert.Error(t, ack.Err)
	assert.Len(t, ack.Tags, 3)
}

func TestHandler_HTTP(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "publish", body: `{"state":"Published","pageID":42,"languageCode":"en-us"}`},
		{name: "draft", body: `{"state":"Draft","pageID":42,"languageCode":"en-us"}`},
		{name: "malformed", body: `{"state":`},
		{name: "wrong types", body: `{"state":"Published","pageID":"abc"}`},
		{name: "empty", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(failingStore{}, nil, nil, nil)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/revalidate", strings.NewReader(tt.body))
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "OK", rec.Body.String())
		})
	}
}

func TestHandler_HTTPInvalidates(t *testing.T) {
	store := cache.NewMemoryStore(100)
	seed(t, store)
	h := NewHandler(store, nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/revalidate",
		strings.NewReader(`{"state":"Published","referenceName":"posts","contentID":7,"languageCode":"en-us"}`))
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok, _ := store.Get(context.Background(), "post")
	assert.False(t, ok)
}
