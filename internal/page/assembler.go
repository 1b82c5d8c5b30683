// Package page assembles everything needed to render a URL: the sitemap
// node, the page with hydrated zones, and the dynamic content item.
package page

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/sitezone/internal/cms"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/requestctx"
	"github.com/conneroisu/sitezone/internal/sitemap"
)

const (
	// PageContentLinkDepth is how deep the CMS expands content links on a
	// page fetch. Modules left as references after that are fetched one by
	// one.
	PageContentLinkDepth = 2

	hydrateConcurrency = 8
)

// Props is the assembled page. When NotFound is set every other field may
// be empty.
type Props struct {
	SitemapNode      *cms.SitemapNode
	Page             *cms.Page
	DynamicPageItem  *cms.ContentItem
	PageTemplateName string

	Locale            string
	Sitemap           string
	IsPreview         bool
	IsDevelopmentMode bool

	NotFound bool
	// Redirect is set when the sitemap node redirects elsewhere.
	Redirect string
}

// Context rebuilds the request context the props were assembled for.
func (p *Props) Context() requestctx.Context {
	return requestctx.Context{
		Locale:            p.Locale,
		Sitemap:           p.Sitemap,
		IsPreview:         p.IsPreview,
		IsDevelopmentMode: p.IsDevelopmentMode,
	}
}

// Fetcher is the content access the assembler needs.
type Fetcher interface {
	GetPage(ctx context.Context, rc requestctx.Context, pageID, depth int) (*cms.Page, error)
	GetContentItem(ctx context.Context, rc requestctx.Context, contentID, depth int) (*cms.ContentItem, error)
}

// PathResolver resolves URL paths to sitemap nodes.
type PathResolver interface {
	ResolvePath(ctx context.Context, path string, rc requestctx.Context) (*sitemap.Resolution, error)
}

type Assembler struct {
	fetcher  Fetcher
	resolver PathResolver
	logger   logging.Logger
}

func NewAssembler(fetcher Fetcher, resolver PathResolver, logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Assembler{fetcher: fetcher, resolver: resolver, logger: logger.WithComponent("page")}
}

// GetPage assembles the page for path. It is safe to call repeatedly with
// the same memo; later calls return the same *Props. A missing node or page
// yields Props{NotFound: true} and a nil error.
func (a *Assembler) GetPage(ctx context.Context, memo *Memo, path string, rc requestctx.Context) (*Props, error) {
	key := "page:" + rc.Mode() + ":" + rc.Locale + ":" + rc.Sitemap + ":" + sitemap.NormalizePath(path)
	return Remember(memo, key, func() (*Props, error) {
		return a.assemble(ctx, memo, path, rc)
	})
}

func (a *Assembler) assemble(ctx context.Context, memo *Memo, path string, rc requestctx.Context) (*Props, error) {
	props := &Props{
		Locale:            rc.Locale,
		Sitemap:           rc.Sitemap,
		IsPreview:         rc.Preview(),
		IsDevelopmentMode: rc.IsDevelopmentMode,
	}

	res, err := a.resolver.ResolvePath(ctx, path, rc)
	if err != nil {
		if siteerrors.IsNotFound(err) {
			props.NotFound = true
			return props, nil
		}
		return nil, err
	}
	props.SitemapNode = res.Node
	props.DynamicPageItem = res.DynamicItem
	if res.Redirect != "" {
		props.Redirect = res.Redirect
		return props, nil
	}

	pageKey := "cms-page:" + rc.Mode() + ":" + rc.Locale + ":" + strconv.Itoa(res.Node.PageID)
	page, err := Remember(memo, pageKey, func() (*cms.Page, error) {
		return a.fetcher.GetPage(ctx, rc, res.Node.PageID, PageContentLinkDepth)
	})
	if err != nil {
		if siteerrors.IsNotFound(err) {
			a.logger.Warn(ctx, err, "Sitemap node points at a missing page", "path", res.Node.Path, "pageID", res.Node.PageID)
			props.NotFound = true
			return props, nil
		}
		return nil, err
	}

	hydrated, err := a.hydrate(ctx, memo, page, rc)
	if err != nil {
		return nil, err
	}
	props.Page = hydrated
	props.PageTemplateName = hydrated.TemplateName
	return props, nil
}

// hydrate returns a copy of page in which every module still holding a bare
// content reference carries the fetched item. The source page may be shared
// through the content cache, so it is never modified. A module whose fetch
// fails keeps its reference.
func (a *Assembler) hydrate(ctx context.Context, memo *Memo, page *cms.Page, rc requestctx.Context) (*cms.Page, error) {
	out := *page
	out.Zones = make(map[string][]cms.ZoneModule, len(page.Zones))
	for name, modules := range page.Zones {
		out.Zones[name] = append([]cms.ZoneModule(nil), modules...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for name, modules := range out.Zones {
		for i := range modules {
			if !modules[i].Item.IsReference() {
				continue
			}
			zone, idx := out.Zones[name], i
			contentID := zone[idx].Item.ContentID
			g.Go(func() error {
				key := "item:" + rc.Mode() + ":" + rc.Locale + ":" + strconv.Itoa(contentID)
				item, err := Remember(memo, key, func() (*cms.ContentItem, error) {
					return a.fetcher.GetContentItem(gctx, rc, contentID, PageContentLinkDepth)
				})
				if err != nil {
					a.logger.Warn(gctx, err, "Leaving module unhydrated", "contentID", contentID)
					return nil
				}
				zone[idx].Item = *item
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &out, nil
}
