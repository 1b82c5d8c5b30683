package components

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/sitezone/internal/content"
	"github.com/conneroisu/sitezone/internal/htmltext"
	"github.com/conneroisu/sitezone/internal/page"
)

// LayoutProps drives the document shell around a page body.
type LayoutProps struct {
	Meta   page.Metadata
	Header *content.Header
	// Path is the request path, used for the preview exit link.
	Path string
	// Preview shows the preview bar with an exit link.
	Preview bool
	// Development marks drafts as always-on.
	Development bool
	// JustExited shows the bar in its published state after leaving preview.
	JustExited bool
	// LiveReload adds the websocket reload client.
	LiveReload bool
	Year       int
}

// Layout wraps the children in the full HTML document.
func Layout(p LayoutProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n<title>")
		h.text(p.Meta.Title)
		h.raw("</title>\n")
		if p.Meta.Description != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", p.Meta.Description)
			h.raw(">\n")
		}
		if p.Meta.Keywords != "" {
			h.raw(`<meta name="keywords"`)
			h.attr("content", p.Meta.Keywords)
			h.raw(">\n")
		}
		for _, img := range p.Meta.OGImages {
			h.raw(`<meta property="og:image"`)
			h.attr("content", img)
			h.raw(">\n")
		}
		if h.err == nil {
			h.err = htmltext.Render(w, p.Meta.Head)
		}
		h.raw("</head>\n<body>\n")

		if p.Preview || p.JustExited {
			writePreviewBar(h, p)
		}
		writeHeader(h, p.Header)

		h.raw("<main>\n")
		h.component(ctx, templ.GetChildren(ctx))
		h.raw("</main>\n")

		writeFooter(h, p)
		if p.LiveReload {
			h.raw(liveReloadScript)
		}
		h.raw("</body>\n</html>\n")
		return h.err
	})
}

func writePreviewBar(h *htmlWriter, p LayoutProps) {
	h.raw(`<div class="preview-bar" role="status">`)
	switch {
	case p.Preview:
		h.raw("<span>Previewing <strong>Latest</strong> Changes</span>")
		if p.Development {
			h.raw(` <span class="dev-mode">Development mode</span>`)
		} else {
			exit := "/api/preview/exit?slug=" + url.QueryEscape(p.Path)
			h.raw(" <a")
			h.urlAttr("href", exit)
			h.raw(">Exit Preview</a>")
		}
	default:
		h.raw("<span>Viewing <strong>Published</strong> Content</span>")
	}
	h.raw("</div>\n")
}

func writeHeader(h *htmlWriter, header *content.Header) {
	if header == nil {
		return
	}
	h.raw(`<header class="site-header"><a class="brand" href="/">`)
	if header.Logo.URL != "" {
		h.raw("<img")
		h.urlAttr("src", header.Logo.URL)
		h.attr("alt", header.Logo.Label)
		h.raw(">")
	}
	h.text(header.SiteName)
	h.raw("</a><nav>")
	for _, link := range header.Links {
		h.raw("<a")
		h.urlAttr("href", link.Path)
		h.raw(">")
		h.text(link.Title)
		h.raw("</a>")
	}
	h.raw("</nav></header>\n")
}

func writeFooter(h *htmlWriter, p LayoutProps) {
	year := p.Year
	if year == 0 {
		year = time.Now().Year()
	}
	name := "sitezone"
	if p.Header != nil && p.Header.SiteName != "" {
		name = p.Header.SiteName
	}
	h.raw(`<footer class="site-footer">&copy; `)
	h.text(strconv.Itoa(year))
	h.raw(" ")
	h.text(name)
	h.raw("</footer>\n")
}

const liveReloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  function connect() {
    var ws = new WebSocket(proto + "//" + location.host + "/ws");
    ws.onmessage = function (e) {
      try { if (JSON.parse(e.data).type === "reload") location.reload(); } catch (_) {}
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  connect();
})();
</script>
`

// InlineError renders a visible error message in place of content.
func InlineError(message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<div class="inline-error" role="alert">`)
		h.text(message)
		h.raw("</div>\n")
		return h.err
	})
}

// NotFound is the 404 page body.
func NotFound() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<section class="not-found"><h1>404</h1><p>The page you are looking for does not exist.</p><a href="/">Go home</a></section>`+"\n")
		return err
	})
}

// ErrorPage is the 500 page body. detail is only shown when drafts are
// visible.
func ErrorPage(detail string, showDetail bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<section class="server-error"><h1>Something went wrong</h1><p>This page could not be rendered.</p>`)
		if showDetail && detail != "" {
			h.raw("<pre>")
			h.text(detail)
			h.raw("</pre>")
		}
		h.raw("</section>\n")
		return h.err
	})
}

// MainTemplate is the default page template: a single main content zone.
func MainTemplate(p TemplateProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<div class="main-template">` + "\n")
		h.component(ctx, p.Zone("MainContentZone"))
		h.raw("</div>\n")
		return h.err
	})
}
