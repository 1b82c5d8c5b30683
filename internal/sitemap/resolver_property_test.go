//go:build property

package sitemap

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

type staticFetcher struct {
	flat *cms.FlatSitemap
}

func (f staticFetcher) GetSitemapFlat(context.Context, requestctx.Context) (*cms.FlatSitemap, error) {
	return f.flat, nil
}

func (f staticFetcher) GetContentItem(_ context.Context, _ requestctx.Context, id, _ int) (*cms.ContentItem, error) {
	return &cms.ContentItem{ContentID: id}, nil
}

func TestNormalizePathProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalization is idempotent", prop.ForAll(
		func(p string) bool {
			once := NormalizePath(p)
			return NormalizePath(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("normalized paths start with a slash and never end with one", prop.ForAll(
		func(p string) bool {
			n := NormalizePath(p)
			return strings.HasPrefix(n, "/") && (n == "/" || !strings.HasSuffix(n, "/"))
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestResolvePathProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	ctx := context.Background()
	rc := requestctx.Context{Locale: "en-us", Sitemap: "website"}

	properties.Property("every non-first node resolves to itself in any case", prop.ForAll(
		func(names []string, upper bool) bool {
			nodes := []*cms.SitemapNode{{Path: "/home", PageID: 1}}
			for i, name := range names {
				nodes = append(nodes, &cms.SitemapNode{
					Path:      fmt.Sprintf("/%s-%d", name, i),
					PageID:    i + 2,
					ContentID: i % 3,
				})
			}
			flat := cms.NewFlatSitemap(nodes)
			r := NewResolver(staticFetcher{flat: flat}, nil)

			for _, n := range flat.Nodes()[1:] {
				query := n.Path
				if upper {
					query = strings.ToUpper(query)
				}
				res, err := r.ResolvePath(ctx, query+"/", rc)
				if err != nil || res.Node.Path != n.Path {
					return false
				}
				if n.IsDynamic() && (res.DynamicItem == nil || res.DynamicItem.ContentID != n.ContentID) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.Bool(),
	))

	properties.Property("content id round trips to a node with that id", prop.ForAll(
		func(count int) bool {
			nodes := []*cms.SitemapNode{{Path: "/home", PageID: 1}}
			for i := 1; i <= count; i++ {
				nodes = append(nodes, &cms.SitemapNode{Path: fmt.Sprintf("/post-%d", i), PageID: 2, ContentID: 100 + i})
			}
			r := NewResolver(staticFetcher{flat: cms.NewFlatSitemap(nodes)}, nil)

			for i := 1; i <= count; i++ {
				url, ok, err := r.ResolveContentIDToURL(ctx, 100+i, rc)
				if err != nil || !ok {
					return false
				}
				res, err := r.ResolvePath(ctx, url, rc)
				if err != nil || res.Node.ContentID != 100+i {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
