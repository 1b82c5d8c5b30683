// Package renderer turns assembled page props into HTML: the page template,
// each content zone in CMS order, and the document layout around them.
package renderer

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/sitezone/internal/components"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/page"
	"github.com/conneroisu/sitezone/internal/registry"
)

// PageRenderer renders zones and pages.
type PageRenderer struct {
	resolver  *registry.Resolver
	templates *registry.Registry[components.Template]
	posts     components.PostSource
	logger    logging.Logger
}

func NewPageRenderer(
	resolver *registry.Resolver,
	templates *registry.Registry[components.Template],
	posts components.PostSource,
	logger logging.Logger,
) *PageRenderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PageRenderer{
		resolver:  resolver,
		templates: templates,
		posts:     posts,
		logger:    logger.WithComponent("renderer"),
	}
}

// RenderZone writes every module of the named zone in order. A zone the
// page does not have renders nothing. Every module is resolved before any
// output is written, so an unresolvable module on the live site fails the
// zone without emitting part of it.
func (r *PageRenderer) RenderZone(ctx context.Context, w io.Writer, zoneName string, props *page.Props) error {
	if props == nil || props.Page == nil {
		return nil
	}
	modules, ok := props.Page.Zones[zoneName]
	if !ok {
		r.logger.Warn(ctx, nil, "Page has no such zone", "zone", zoneName, "pageID", props.Page.PageID)
		return nil
	}

	rc := props.Context()
	built := make([]templ.Component, 0, len(modules))
	for _, m := range modules {
		renderer, err := r.resolver.ResolveFor(ctx, m.TypeName(), rc)
		if err != nil {
			return err
		}
		c, err := renderer.Render(ctx, components.Props{Module: m, Page: props, Content: r.posts})
		if err != nil {
			return err
		}
		built = append(built, c)
	}

	for _, c := range built {
		if err := c.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// Zone returns a component rendering the named zone of props.
func (r *PageRenderer) Zone(props *page.Props) func(name string) templ.Component {
	return func(name string) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			return r.RenderZone(ctx, w, name, props)
		})
	}
}

// Body renders the page template. An unknown template renders an inline
// error instead.
func (r *PageRenderer) Body(ctx context.Context, props *page.Props) templ.Component {
	tmpl, ok := r.templates.Get(props.PageTemplateName)
	if !ok {
		err := siteerrors.ErrTemplateNotFound(props.PageTemplateName)
		r.logger.Warn(ctx, err, "No template registered", "template", props.PageTemplateName)
		return components.InlineError(err.Message)
	}
	return tmpl(components.TemplateProps{Page: props, Zone: r.Zone(props)})
}

// RenderPage writes the full document for props. Output is buffered and
// only written to w when the whole page rendered, so a failure never leaves
// a partial document behind.
func (r *PageRenderer) RenderPage(ctx context.Context, w io.Writer, props *page.Props, layout components.LayoutProps) error {
	return RenderDocument(ctx, w, layout, r.Body(ctx, props))
}

// RenderDocument renders body inside the layout through a buffer.
func RenderDocument(ctx context.Context, w io.Writer, layout components.LayoutProps, body templ.Component) error {
	var buf bytes.Buffer
	if err := components.Layout(layout).Render(templ.WithChildren(ctx, body), &buf); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
