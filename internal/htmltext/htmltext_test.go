package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"plain", "hello", "hello"},
		{"nested", "<p>Hello <strong>world</strong>,\n  friend</p>", "Hello world, friend"},
		{"script dropped", "<p>a</p><script>alert(1)</script><p>b</p>", "a b"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, StripTags(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "the quick...", Truncate("the quick brown fox", 12))
	assert.Equal(t, "abcdefghij...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "anything", Truncate("anything", 0))
	assert.Equal(t, "héllo...", Truncate("héllo wörld", 8))
}

func TestExcerpt(t *testing.T) {
	got := Excerpt("<p>Hello <strong>world</strong>, this is the first post.</p>", 20)
	assert.Equal(t, "Hello world, this...", got)
}

func TestParseHeadMarkup(t *testing.T) {
	markup := `
<meta name="robots" content="index,follow">
<script>alert("x")</script>
<script type="application/ld+json">{"@type":"WebSite"}</script>
<link rel="canonical" href="https://example.com/" onload="steal()">
<link rel="x" href="javascript:alert(1)">
<title>ignored</title>
<style>body{}</style>`

	elems := ParseHeadMarkup(markup)
	require.Len(t, elems, 4)

	assert.Equal(t, "meta", elems[0].Tag)
	assert.Equal(t, "script", elems[1].Tag)
	assert.Equal(t, `{"@type":"WebSite"}`, elems[1].Text)
	assert.Equal(t, "link", elems[2].Tag)
	for _, a := range elems[2].Attrs {
		assert.NotEqual(t, "onload", a.Key)
	}
	for _, a := range elems[3].Attrs {
		assert.NotEqual(t, "href", a.Key)
	}

	var b strings.Builder
	require.NoError(t, Render(&b, elems))
	out := b.String()
	assert.Contains(t, out, `<meta name="robots" content="index,follow"/>`)
	assert.Contains(t, out, `<script type="application/ld+json">{"@type":"WebSite"}</script>`)
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "steal")
}

func TestParseHeadMarkup_Empty(t *testing.T) {
	assert.Nil(t, ParseHeadMarkup("  \n"))
}

func TestParseHeadMarkup_ScriptBreakout(t *testing.T) {
	elems := ParseHeadMarkup(`<script type="application/ld+json">{"a":"</script><script>alert(1)</script>"}</script>`)
	for _, e := range elems {
		assert.NotContains(t, e.Text, "alert")
	}
}
