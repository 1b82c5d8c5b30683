package components

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter keeps the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func newHTMLWriter(w io.Writer) *htmlWriter {
	return &htmlWriter{w: w}
}

func (h *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with the value escaped.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// urlAttr is attr for URLs; unsafe schemes are replaced by templ.
func (h *htmlWriter) urlAttr(name, value string) {
	h.attr(name, string(templ.URL(value)))
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

func isAbsoluteURL(u string) bool {
	return strings.Contains(u, "://") || strings.HasPrefix(u, "//")
}

// imageSrc asks the image CDN for a resized rendition.
func imageSrc(url string, width int) string {
	if url == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "format=auto&w=" + strconv.Itoa(width)
}
