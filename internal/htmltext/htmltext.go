// Package htmltext works with the HTML fragments the CMS stores in rich
// text and SEO fields.
package htmltext

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Blockquote: true,
}

// StripTags returns the text content of an HTML fragment with runs of
// whitespace collapsed to single spaces.
func StripTags(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			b.WriteByte(' ')
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate shortens s to at most max runes, cutting at a word boundary
// when one exists and appending "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// Excerpt is StripTags followed by Truncate.
func Excerpt(fragment string, max int) string {
	return Truncate(StripTags(fragment), max)
}

// HeadElement is one element allowed into the document head from CMS
// supplied markup.
type HeadElement struct {
	Tag   string
	Attrs []html.Attribute
	// Text is the body of a JSON-LD script.
	Text string
}

const jsonLD = "application/ld+json"

// ParseHeadMarkup keeps only meta, link and JSON-LD script elements from a
// fragment of head markup. Event handler attributes and javascript: URLs
// are dropped.
func ParseHeadMarkup(markup string) []HeadElement {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "head",
		DataAtom: atom.Head,
	})
	if err != nil {
		return nil
	}

	var out []HeadElement
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Meta, atom.Link:
			out = append(out, HeadElement{Tag: n.Data, Attrs: safeAttrs(n.Attr)})
		case atom.Script:
			if !strings.EqualFold(attr(n, "type"), jsonLD) {
				continue
			}
			text := textOf(n)
			if strings.Contains(strings.ToLower(text), "</script") {
				continue
			}
			out = append(out, HeadElement{
				Tag:   "script",
				Attrs: []html.Attribute{{Key: "type", Val: jsonLD}},
				Text:  text,
			})
		}
	}
	return out
}

// Render writes the elements as HTML.
func Render(w io.Writer, elems []HeadElement) error {
	for _, e := range elems {
		n := &html.Node{
			Type:     html.ElementNode,
			Data:     e.Tag,
			DataAtom: atom.Lookup([]byte(e.Tag)),
			Attr:     e.Attrs,
		}
		if e.Text != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: e.Text})
		}
		if err := html.Render(w, n); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func safeAttrs(attrs []html.Attribute) []html.Attribute {
	out := make([]html.Attribute, 0, len(attrs))
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if (key == "href" || key == "src" || key == "content") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			continue
		}
		out = append(out, html.Attribute{Key: key, Val: a.Val})
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
