package cms

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
)

const fixtureDir = "../../testdata/content"

func newFixtureSource(t *testing.T) *FileSource {
	t.Helper()
	src, err := NewFileSource(fixtureDir)
	require.NoError(t, err)
	return src
}

func TestFileSource_SitemapFlat(t *testing.T) {
	src := newFixtureSource(t)

	sitemap, err := src.GetSitemapFlat(context.Background(), SitemapRequest{Channel: "website", Locale: "en-us"})
	require.NoError(t, err)

	assert.Equal(t, "/home", sitemap.Home().Path)
	node, ok := sitemap.Lookup("/BLOG/First-Post")
	require.True(t, ok)
	assert.Equal(t, 101, node.ContentID)

	redirect, ok := sitemap.Lookup("/old-about")
	require.True(t, ok)
	require.NotNil(t, redirect.Redirect)
	assert.Equal(t, "/about", redirect.Redirect.URL)
}

func TestFileSource_LocaleOverride(t *testing.T) {
	src := newFixtureSource(t)

	sitemap, err := src.GetSitemapFlat(context.Background(), SitemapRequest{Channel: "website", Locale: "fr-ca"})
	require.NoError(t, err)
	assert.Equal(t, 1, sitemap.Len())
	assert.Equal(t, "/accueil", sitemap.Home().Path)
}

func TestFileSource_SitemapNested(t *testing.T) {
	src := newFixtureSource(t)

	nodes, err := src.GetSitemapNested(context.Background(), SitemapRequest{Channel: "website", Locale: "en-us"})
	require.NoError(t, err)

	var blog *SitemapNode
	for _, n := range nodes {
		if n.Path == "/blog" {
			blog = n
		}
	}
	require.NotNil(t, blog)
	assert.Len(t, blog.Children, 3)
	assert.Equal(t, "/blog/first-post", blog.Children[0].Path)
}

func TestFileSource_PreviewOverlay(t *testing.T) {
	src := newFixtureSource(t)
	ctx := context.Background()

	live, err := src.GetContentItem(ctx, ItemRequest{ContentID: 101, Locale: "en-us"})
	require.NoError(t, err)
	assert.Equal(t, "First Post", live.String("title"))

	draft, err := src.GetContentItem(ctx, ItemRequest{ContentID: 101, Locale: "en-us", Preview: true})
	require.NoError(t, err)
	assert.Equal(t, "First Post (draft)", draft.String("title"))

	// no overlay for 102, preview falls through to the published copy
	other, err := src.GetContentItem(ctx, ItemRequest{ContentID: 102, Locale: "en-us", Preview: true})
	require.NoError(t, err)
	assert.Equal(t, "Second Post", other.String("title"))
}

func TestFileSource_PageWithReferences(t *testing.T) {
	src := newFixtureSource(t)

	page, err := src.GetPage(context.Background(), PageRequest{PageID: 1, Locale: "en-us"})
	require.NoError(t, err)

	zone := page.Zones["MainContentZone"]
	require.Len(t, zone, 3)
	assert.True(t, zone[0].Item.IsReference())
	assert.Equal(t, "Heading", zone[0].TypeName())
	assert.False(t, zone[2].Item.IsReference())
	assert.Contains(t, page.SEO.MetaHTML, "robots")
}

func TestFileSource_NotFound(t *testing.T) {
	src := newFixtureSource(t)
	ctx := context.Background()

	_, err := src.GetPage(ctx, PageRequest{PageID: 99, Locale: "en-us"})
	assert.True(t, siteerrors.IsNotFound(err))

	_, err = src.GetContentItem(ctx, ItemRequest{ContentID: 999, Locale: "en-us"})
	assert.True(t, siteerrors.IsNotFound(err))

	list, err := src.GetContentList(ctx, ListRequest{ReferenceName: "nothing", Locale: "en-us"})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestFileSource_ListPaging(t *testing.T) {
	src := newFixtureSource(t)

	list, err := src.GetContentList(context.Background(), ListRequest{ReferenceName: "posts", Locale: "en-us", Skip: 1, Take: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, list.TotalCount)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 102, list.Items[0].ContentID)

	past, err := src.GetContentList(context.Background(), ListRequest{ReferenceName: "posts", Locale: "en-us", Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, past.Items)
}

func TestFileSource_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sitemap.yml"), []byte("- path: [unclosed"), 0o600))

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	_, err = src.GetSitemapFlat(context.Background(), SitemapRequest{Locale: "en-us"})
	require.Error(t, err)
	assert.True(t, siteerrors.IsUpstream(err))
}

func TestNewFileSource_RejectsMissingDir(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
