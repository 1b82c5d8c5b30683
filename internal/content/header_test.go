package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitezone/internal/cms"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
)

func TestClient_GetHeader(t *testing.T) {
	c, _, _, _ := newTestClient(t)

	header := c.GetHeader(context.Background(), live)
	require.NotNil(t, header)
	assert.Equal(t, "Sitezone", header.SiteName)
	assert.Equal(t, "https://cdn.example.com/logo.svg", header.Logo.URL)
	assert.Equal(t, []Link{
		{Title: "Home", Path: "/"},
		{Title: "Blog", Path: "/blog"},
		{Title: "About", Path: "/about"},
	}, header.Links)
}

func TestClient_GetHeader_FailureIsNil(t *testing.T) {
	c, src, _, _ := newTestClient(t)
	src.fail = siteerrors.NewUpstreamError(siteerrors.ErrCodeUpstreamStatus, "down", nil)

	assert.Nil(t, c.GetHeader(context.Background(), live))
}

// emptyListSource returns no items for every list.
type emptyListSource struct {
	cms.Source
}

func (emptyListSource) GetContentList(context.Context, cms.ListRequest) (*cms.ContentList, error) {
	return &cms.ContentList{}, nil
}

func TestClient_GetHeader_EmptyListIsNil(t *testing.T) {
	fs, err := cms.NewFileSource(fixtureDir)
	require.NoError(t, err)
	c := NewClient(Options{Source: emptyListSource{fs}})

	assert.Nil(t, c.GetHeader(context.Background(), live))
}

// sitemapFailSource breaks only the nested sitemap.
type sitemapFailSource struct {
	cms.Source
}

func (sitemapFailSource) GetSitemapNested(context.Context, cms.SitemapRequest) ([]*cms.SitemapNode, error) {
	return nil, siteerrors.NewUpstreamError(siteerrors.ErrCodeUpstreamStatus, "sitemap down", nil)
}

func TestClient_GetHeader_SitemapFailureKeepsHeader(t *testing.T) {
	fs, err := cms.NewFileSource(fixtureDir)
	require.NoError(t, err)
	c := NewClient(Options{Source: sitemapFailSource{fs}})

	header := c.GetHeader(context.Background(), live)
	require.NotNil(t, header)
	assert.Equal(t, "Sitezone", header.SiteName)
	assert.Empty(t, header.Links)
}

func TestNavLinks(t *testing.T) {
	nodes := []*cms.SitemapNode{
		{Path: "/Home", Title: "Home", Visible: cms.Visible{Menu: true}},
		{Path: "/hidden", Title: "Hidden"},
		{Path: "/contact", Title: "Contact Us", MenuText: "Contact", Visible: cms.Visible{Menu: true}},
		nil,
	}
	assert.Equal(t, []Link{{Title: "Home", Path: "/"}, {Title: "Contact", Path: "/contact"}}, NavLinks(nodes))
}
