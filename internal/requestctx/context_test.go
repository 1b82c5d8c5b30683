package requestctx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/sitezone/internal/config"
)

type stubDraft bool

func (s stubDraft) HasDraft(*http.Request) bool { return bool(s) }

func testCMS() config.CMSConfig {
	return config.CMSConfig{Locales: []string{"en-us", "fr-ca"}, Sitemap: "website"}
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		dev    bool
		draft  DraftChecker
		expect Context
	}{
		{
			name:   "defaults to first locale and live",
			url:    "/blog",
			expect: Context{Locale: "en-us", Sitemap: "website"},
		},
		{
			name:   "configured lang parameter",
			url:    "/blog?lang=FR-CA",
			expect: Context{Locale: "fr-ca", Sitemap: "website"},
		},
		{
			name:   "unknown locale falls back",
			url:    "/blog?locale=de-de",
			expect: Context{Locale: "en-us", Sitemap: "website"},
		},
		{
			name:   "draft flag enables preview",
			url:    "/",
			draft:  stubDraft(true),
			expect: Context{Locale: "en-us", Sitemap: "website", IsPreview: true},
		},
		{
			name:   "development mode is always preview",
			url:    "/",
			dev:    true,
			draft:  stubDraft(false),
			expect: Context{Locale: "en-us", Sitemap: "website", IsPreview: true, IsDevelopmentMode: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testCMS(), tt.dev, tt.draft)
			got := r.Resolve(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestContext_PreviewAndMode(t *testing.T) {
	assert.False(t, Context{}.Preview())
	assert.Equal(t, "live", Context{}.Mode())
	assert.True(t, Context{IsPreview: true}.Preview())
	assert.Equal(t, "preview", Context{IsPreview: true}.Mode())
	assert.True(t, Context{IsDevelopmentMode: true}.Preview())
	assert.Equal(t, "development", Context{IsDevelopmentMode: true, IsPreview: true}.Mode())
}

func TestResolver_Default(t *testing.T) {
	r := NewResolver(testCMS(), false, nil)
	assert.Equal(t, Context{Locale: "en-us", Sitemap: "website"}, r.Default())
}
