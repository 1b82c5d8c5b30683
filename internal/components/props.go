// Package components holds the site's UI components. Each CMS module type
// maps to a Renderer that turns a placed module into a templ.Component.
package components

import (
	"context"

	"github.com/a-h/templ"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/content"
	"github.com/conneroisu/sitezone/internal/page"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

// Kind enumerates every module implementation the site ships.
type Kind int

const (
	KindRichTextArea Kind = iota + 1
	KindHeading
	KindFeaturedPost
	KindPostsListing
	KindPostDetails
	KindTextBlockWithImage
	KindDiagnostic
)

func (k Kind) String() string {
	switch k {
	case KindRichTextArea:
		return "RichTextArea"
	case KindHeading:
		return "Heading"
	case KindFeaturedPost:
		return "FeaturedPost"
	case KindPostsListing:
		return "PostsListing"
	case KindPostDetails:
		return "PostDetails"
	case KindTextBlockWithImage:
		return "TextBlockWithImage"
	case KindDiagnostic:
		return "Diagnostic"
	default:
		return "Unknown"
	}
}

// PostSource loads post listings for components that need more than the
// placed item.
type PostSource interface {
	GetPostListing(ctx context.Context, rc requestctx.Context, skip, take int) ([]content.PostSummary, error)
}

// Props is what every module renderer receives.
type Props struct {
	Module  cms.ZoneModule
	Page    *page.Props
	Content PostSource
}

// Context is the request context of the page being rendered.
func (p Props) Context() requestctx.Context {
	if p.Page == nil {
		return requestctx.Context{}
	}
	return p.Page.Context()
}

// Renderer builds the component for one placed module. Data loading
// happens here; the returned component only writes HTML.
type Renderer interface {
	Kind() Kind
	Render(ctx context.Context, props Props) (templ.Component, error)
}

type rendererFunc struct {
	kind Kind
	fn   func(ctx context.Context, props Props) (templ.Component, error)
}

func (r rendererFunc) Kind() Kind { return r.kind }

func (r rendererFunc) Render(ctx context.Context, props Props) (templ.Component, error) {
	return r.fn(ctx, props)
}

// NewRenderer wraps fn as a Renderer of the given kind.
func NewRenderer(kind Kind, fn func(ctx context.Context, props Props) (templ.Component, error)) Renderer {
	return rendererFunc{kind: kind, fn: fn}
}

// TemplateProps is what a page template receives. Zone renders the named
// content zone of the page.
type TemplateProps struct {
	Page *page.Props
	Zone func(name string) templ.Component
}

// Template renders a whole page body.
type Template func(props TemplateProps) templ.Component
