// Package sitemap maps URL paths to CMS sitemap nodes and content IDs back
// to their canonical URLs.
package sitemap

import (
	"context"
	"strings"
	"unicode"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/content"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

// DynamicItemDepth is the content link depth used for dynamic page items.
const DynamicItemDepth = 2

// Resolution is the result of resolving a path.
type Resolution struct {
	Node *cms.SitemapNode
	// DynamicItem is set for content-backed nodes.
	DynamicItem *cms.ContentItem
	// Redirect is the target when the node is a CMS redirect.
	Redirect string
}

// Fetcher is the subset of the content client the resolver needs.
type Fetcher interface {
	GetSitemapFlat(ctx context.Context, rc requestctx.Context) (*cms.FlatSitemap, error)
	GetContentItem(ctx context.Context, rc requestctx.Context, contentID, depth int) (*cms.ContentItem, error)
}

var _ Fetcher = (*content.Client)(nil)

type Resolver struct {
	fetcher Fetcher
	logger  logging.Logger
}

func NewResolver(fetcher Fetcher, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{fetcher: fetcher, logger: logger.WithComponent("sitemap")}
}

// NormalizePath gives every request path one canonical form: leading slash,
// no trailing slash, empty meaning root.
func NormalizePath(path string) string {
	path = strings.TrimLeftFunc(path, unicode.IsSpace)
	path = strings.TrimRightFunc(path, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// ResolvePath finds the node for path. The root path resolves to the first
// node of the flat sitemap. A dynamic node has its content item attached; a
// missing item is reported as not found.
func (r *Resolver) ResolvePath(ctx context.Context, path string, rc requestctx.Context) (*Resolution, error) {
	flat, err := r.fetcher.GetSitemapFlat(ctx, rc)
	if err != nil {
		return nil, err
	}

	path = NormalizePath(path)
	var node *cms.SitemapNode
	if path == "/" {
		node = flat.Home()
	} else {
		node, _ = flat.Lookup(path)
	}
	if node == nil {
		return nil, siteerrors.ErrPathNotFound(path)
	}

	res := &Resolution{Node: node}
	if node.Redirect != nil && node.Redirect.URL != "" {
		res.Redirect = node.Redirect.URL
		return res, nil
	}

	if node.IsDynamic() {
		item, err := r.fetcher.GetContentItem(ctx, rc, node.ContentID, DynamicItemDepth)
		if err != nil {
			if siteerrors.IsNotFound(err) {
				r.logger.Warn(ctx, err, "Dynamic node has no content item", "path", node.Path, "contentID", node.ContentID)
				return nil, siteerrors.ErrPathNotFound(path).WithContext("content_id", node.ContentID)
			}
			return nil, err
		}
		res.DynamicItem = item
	}

	return res, nil
}

// ResolveContentIDToURL returns the canonical path of the first node backed
// by contentID. ok is false when no node matches.
func (r *Resolver) ResolveContentIDToURL(ctx context.Context, contentID int, rc requestctx.Context) (string, bool, error) {
	flat, err := r.fetcher.GetSitemapFlat(ctx, rc)
	if err != nil {
		return "", false, err
	}
	node, ok := flat.ByContentID(contentID)
	if !ok {
		return "", false, nil
	}
	return CanonicalPath(flat, node), true, nil
}

// CanonicalPath returns the URL path a node is served at.
func CanonicalPath(flat *cms.FlatSitemap, node *cms.SitemapNode) string {
	switch {
	case node == nil:
		return ""
	case node == flat.Home():
		return "/"
	default:
		return node.Path
	}
}
