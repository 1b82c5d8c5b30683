package cms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatSitemap_JSONRoundTripKeepsOrder(t *testing.T) {
	raw := `{"/c":{"path":"/c","title":"C","pageID":3},"/a":{"path":"/a","title":"A","pageID":1},"/b":{"title":"B","pageID":2}}`

	var fs FlatSitemap
	require.NoError(t, json.Unmarshal([]byte(raw), &fs))

	paths := make([]string, 0, fs.Len())
	for _, n := range fs.Nodes() {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"/c", "/a", "/b"}, paths)

	out, err := json.Marshal(&fs)
	require.NoError(t, err)

	var again FlatSitemap
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, "/c", again.Home().Path)
	assert.Equal(t, 3, again.Len())
}

func TestFlatSitemap_NullAndInvalid(t *testing.T) {
	var fs FlatSitemap
	require.NoError(t, json.Unmarshal([]byte(`null`), &fs))
	assert.Equal(t, 0, fs.Len())
	assert.Nil(t, fs.Home())

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &fs))
}

func TestFlatSitemap_LookupAndByContentID(t *testing.T) {
	fs := NewFlatSitemap([]*SitemapNode{
		{Path: "/home", PageID: 1},
		{Path: "/Posts/One", PageID: 2, ContentID: 9},
		{Path: "/posts/one-copy", PageID: 2, ContentID: 9},
		{Path: "/home", PageID: 7},
	})

	assert.Equal(t, 3, fs.Len(), "duplicate paths keep the first node")

	n, ok := fs.Lookup("/posts/one")
	require.True(t, ok)
	assert.Equal(t, "/Posts/One", n.Path)

	n, ok = fs.ByContentID(9)
	require.True(t, ok)
	assert.Equal(t, "/Posts/One", n.Path)

	_, ok = fs.ByContentID(0)
	assert.False(t, ok)

	var nilMap *FlatSitemap
	_, ok = nilMap.Lookup("/home")
	assert.False(t, ok)
}

func TestContentItem_IsReference(t *testing.T) {
	assert.True(t, (&ContentItem{ContentID: 5}).IsReference())
	assert.False(t, (&ContentItem{}).IsReference())
	assert.False(t, (&ContentItem{ContentID: 5, Fields: map[string]interface{}{"a": 1}}).IsReference())
	assert.False(t, (&ContentItem{ContentID: 5, Properties: ContentItemProperties{DefinitionName: "X"}}).IsReference())
}

func TestContentItem_LowercaseContentIDReference(t *testing.T) {
	var m ZoneModule
	require.NoError(t, json.Unmarshal([]byte(`{"module":"Heading","item":{"contentid":42,"fulllist":false}}`), &m))
	assert.Equal(t, 42, m.Item.ContentID)
	assert.True(t, m.Item.IsReference())
}

func TestZoneModule_TypeNameFallback(t *testing.T) {
	m := ZoneModule{Item: ContentItem{Properties: ContentItemProperties{DefinitionName: "Hero"}}}
	assert.Equal(t, "Hero", m.TypeName())

	m.Module = "RichTextArea"
	assert.Equal(t, "RichTextArea", m.TypeName())
}

func TestDecodeFields(t *testing.T) {
	type heading struct {
		Title string     `json:"title"`
		Image ImageField `json:"image"`
	}

	item := &ContentItem{ContentID: 3, Fields: map[string]interface{}{
		"title": "Hi",
		"image": map[string]interface{}{"url": "https://x/y.png", "label": "Y"},
	}}

	got, err := DecodeFields[heading](item)
	require.NoError(t, err)
	assert.Equal(t, "Hi", got.Title)
	assert.Equal(t, "https://x/y.png", got.Image.URL)

	empty, err := DecodeFields[heading](nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Title)

	_, err = DecodeFields[heading](&ContentItem{Fields: map[string]interface{}{"title": 12}})
	assert.Error(t, err)
}
