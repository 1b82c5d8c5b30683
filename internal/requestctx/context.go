// Package requestctx derives the per-request rendering context: which locale
// and sitemap channel to serve, and whether draft content is visible.
package requestctx

import (
	"net/http"
	"strings"

	"github.com/conneroisu/sitezone/internal/config"
)

// Context is an immutable per-request value passed explicitly to every
// content fetch and render call.
type Context struct {
	Locale            string
	Sitemap           string
	IsPreview         bool
	IsDevelopmentMode bool
}

// Preview reports whether draft content should be served. Development mode
// always sees drafts.
func (c Context) Preview() bool {
	return c.IsPreview || c.IsDevelopmentMode
}

// Mode names the render mode for logs and metrics.
func (c Context) Mode() string {
	switch {
	case c.IsDevelopmentMode:
		return "development"
	case c.IsPreview:
		return "preview"
	default:
		return "live"
	}
}

// DraftChecker reports whether a request carries a valid draft flag.
type DraftChecker interface {
	HasDraft(r *http.Request) bool
}

// Resolver builds a Context from an incoming request.
type Resolver struct {
	cms   config.CMSConfig
	dev   bool
	draft DraftChecker
}

// NewResolver creates a resolver. draft may be nil, in which case only
// development mode enables preview.
func NewResolver(cms config.CMSConfig, developmentMode bool, draft DraftChecker) *Resolver {
	return &Resolver{cms: cms, dev: developmentMode, draft: draft}
}

// Resolve reads the locale from the lang or locale query parameter when it
// names a configured locale, falling back to the default locale.
func (r *Resolver) Resolve(req *http.Request) Context {
	q := req.URL.Query()
	locale := r.cms.DefaultLocale()
	for _, name := range []string{"lang", "locale"} {
		if v := strings.ToLower(q.Get(name)); v != "" && r.cms.HasLocale(v) {
			locale = v
			break
		}
	}

	isPreview := r.dev
	if !isPreview && r.draft != nil {
		isPreview = r.draft.HasDraft(req)
	}

	return Context{
		Locale:            locale,
		Sitemap:           r.cms.Sitemap,
		IsPreview:         isPreview,
		IsDevelopmentMode: r.dev,
	}
}

// Default returns the context for background work outside a request, such
// as CLI commands: default locale, configured channel, live content.
func (r *Resolver) Default() Context {
	return Context{
		Locale:            r.cms.DefaultLocale(),
		Sitemap:           r.cms.Sitemap,
		IsDevelopmentMode: r.dev,
	}
}
