package components

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/sitezone/internal/cms"
)

// Diagnostic stands in for a module with no registered component when
// drafts are visible. It shows the module's raw content so authors can
// see what failed to render.
var Diagnostic = NewRenderer(KindDiagnostic, func(_ context.Context, p Props) (templ.Component, error) {
	module := p.Module
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<div class="component-not-found" data-module`)
		h.attr("data-module-name", module.TypeName())
		h.raw(`><h3>Component not found: `)
		h.text(module.TypeName())
		h.raw("</h3>")
		if def := module.Item.Properties.DefinitionName; def != "" {
			h.raw(`<p class="definition">Definition: `)
			h.text(def)
			h.raw("</p>")
		}
		writeItem(h, &module.Item, 0)

		raw, err := json.MarshalIndent(module.Item, "", "  ")
		if err == nil {
			h.raw("<details><summary>Raw content item</summary><pre>")
			h.text(string(raw))
			h.raw("</pre></details>")
		}
		h.raw("</div>\n")
		return h.err
	}), nil
})

const maxDiagnosticDepth = 3

func writeItem(h *htmlWriter, item *cms.ContentItem, depth int) {
	if item.IsReference() {
		h.raw(`<p class="reference">Content item `)
		h.text(strconv.Itoa(item.ContentID))
		h.raw(" (not loaded)</p>")
		return
	}

	keys := make([]string, 0, len(item.Fields))
	for k := range item.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h.raw("<dl>")
	for _, k := range keys {
		h.raw("<dt>")
		h.text(FieldLabel(k))
		h.raw("</dt><dd>")
		writeField(h, item.Fields[k], depth)
		h.raw("</dd>")
	}
	h.raw("</dl>")
}

func writeField(h *htmlWriter, v interface{}, depth int) {
	switch val := v.(type) {
	case string:
		if looksLikeHTML(val) {
			h.raw(`<div class="html-preview">`)
			h.raw(val)
			h.raw("</div>")
			return
		}
		h.text(val)
	case map[string]interface{}:
		switch {
		case val["url"] != nil && val["label"] != nil:
			url, _ := val["url"].(string)
			label, _ := val["label"].(string)
			h.raw("<img")
			h.urlAttr("src", imageSrc(url, 200))
			h.attr("alt", label)
			h.raw(">")
		case val["href"] != nil:
			href, _ := val["href"].(string)
			text, _ := val["text"].(string)
			if text == "" {
				text = href
			}
			h.raw("<a")
			h.urlAttr("href", href)
			h.raw(">")
			h.text(text)
			h.raw("</a>")
		case val["contentID"] != nil && depth < maxDiagnosticDepth:
			nested, ok := nestedItem(val)
			if !ok {
				writeJSON(h, val)
				return
			}
			h.raw(`<div class="nested-item">`)
			writeItem(h, nested, depth+1)
			h.raw("</div>")
		default:
			writeJSON(h, val)
		}
	default:
		writeJSON(h, val)
	}
}

func nestedItem(m map[string]interface{}) (*cms.ContentItem, bool) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, false
	}
	var item cms.ContentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, false
	}
	return &item, true
}

func writeJSON(h *htmlWriter, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.text("(unprintable)")
		return
	}
	h.raw("<code>")
	h.text(string(raw))
	h.raw("</code>")
}

func looksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
}

// FieldLabel turns a camelCase field name into a title: "primaryButton"
// becomes "Primary Button".
func FieldLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(b.String())
}
