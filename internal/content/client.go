// Package content is the caching layer in front of the CMS source. Live
// fetches are cached in the shared store under tags that the revalidation
// webhook can target; preview and development fetches never touch it.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

// Fetch kinds, used as metric labels and cache key prefixes.
const (
	KindItem          = "item"
	KindList          = "list"
	KindSitemapFlat   = "sitemap_flat"
	KindSitemapNested = "sitemap_nested"
	KindPage          = "page"
)

// Client fetches CMS content for a request context.
type Client struct {
	source  cms.Source
	store   cache.Store
	ttl     time.Duration
	logger  logging.Logger
	metrics *metrics.Metrics

	// group collapses concurrent live misses for the same key across
	// requests into one upstream call.
	group singleflight.Group
}

// Options configures a Client. Store may be nil to disable caching.
type Options struct {
	Source  cms.Source
	Store   cache.Store
	TTL     time.Duration
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Client{
		source:  opts.Source,
		store:   opts.Store,
		ttl:     opts.TTL,
		logger:  logger.WithComponent("content"),
		metrics: opts.Metrics,
	}
}

func (c *Client) GetContentItem(ctx context.Context, rc requestctx.Context, contentID, depth int) (*cms.ContentItem, error) {
	key := KindItem + ":" + strconv.Itoa(contentID) + ":" + rc.Locale + ":" + strconv.Itoa(depth)
	tags := []string{cache.ContentIDTag(contentID, rc.Locale)}
	return fetch(ctx, c, rc, KindItem, key, tags, func(ctx context.Context) (*cms.ContentItem, error) {
		return c.source.GetContentItem(ctx, cms.ItemRequest{
			ContentID:        contentID,
			Locale:           rc.Locale,
			Preview:          rc.Preview(),
			ContentLinkDepth: depth,
		})
	})
}

func (c *Client) GetContentList(ctx context.Context, rc requestctx.Context, req cms.ListRequest) (*cms.ContentList, error) {
	key := fmt.Sprintf("%s:%s:%s:%d:%d:%d", KindList, strings.ToLower(req.ReferenceName), rc.Locale, req.Skip, req.Take, req.ContentLinkDepth)
	tags := []string{cache.ContentRefTag(req.ReferenceName, rc.Locale)}
	req.Locale = rc.Locale
	req.Preview = rc.Preview()
	return fetch(ctx, c, rc, KindList, key, tags, func(ctx context.Context) (*cms.ContentList, error) {
		return c.source.GetContentList(ctx, req)
	})
}

func (c *Client) GetSitemapFlat(ctx context.Context, rc requestctx.Context) (*cms.FlatSitemap, error) {
	key := KindSitemapFlat + ":" + rc.Sitemap + ":" + rc.Locale
	tags := []string{cache.SitemapFlatTag(rc.Locale)}
	return fetch(ctx, c, rc, KindSitemapFlat, key, tags, func(ctx context.Context) (*cms.FlatSitemap, error) {
		return c.source.GetSitemapFlat(ctx, c.sitemapRequest(rc))
	})
}

func (c *Client) GetSitemapNested(ctx context.Context, rc requestctx.Context) ([]*cms.SitemapNode, error) {
	key := KindSitemapNested + ":" + rc.Sitemap + ":" + rc.Locale
	tags := []string{cache.SitemapNestedTag(rc.Locale)}
	return fetch(ctx, c, rc, KindSitemapNested, key, tags, func(ctx context.Context) ([]*cms.SitemapNode, error) {
		return c.source.GetSitemapNested(ctx, c.sitemapRequest(rc))
	})
}

func (c *Client) GetPage(ctx context.Context, rc requestctx.Context, pageID, depth int) (*cms.Page, error) {
	key := KindPage + ":" + strconv.Itoa(pageID) + ":" + rc.Locale + ":" + strconv.Itoa(depth)
	tags := []string{cache.PageTag(pageID, rc.Locale)}
	return fetch(ctx, c, rc, KindPage, key, tags, func(ctx context.Context) (*cms.Page, error) {
		return c.source.GetPage(ctx, cms.PageRequest{
			PageID:           pageID,
			Locale:           rc.Locale,
			Preview:          rc.Preview(),
			ContentLinkDepth: depth,
		})
	})
}

func (c *Client) sitemapRequest(rc requestctx.Context) cms.SitemapRequest {
	return cms.SitemapRequest{Channel: rc.Sitemap, Locale: rc.Locale, Preview: rc.Preview()}
}

// fetch runs load through the shared cache. Cache failures are logged and
// treated as misses; only load errors and the caller's own cancellation
// reach the caller.
func fetch[T any](ctx context.Context, c *Client, rc requestctx.Context, kind, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	if rc.Preview() || c.store == nil {
		v, err := load(ctx)
		if err != nil {
			c.metrics.ContentFetch(kind, metrics.ResultError)
			return v, err
		}
		c.metrics.ContentFetch(kind, metrics.ResultBypass)
		return v, nil
	}

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn(ctx, err, "Cache read failed", "key", key)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.ContentFetch(kind, metrics.ResultHit)
			return v, nil
		}
		c.logger.Warn(ctx, err, "Discarding undecodable cache entry", "key", key)
	}

	// The shared load outlives any single caller: a request that goes away
	// stops waiting, but the others still get the result.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			c.logger.Warn(loadCtx, err, "Cannot encode content for cache", "key", key)
			return v, nil
		}
		if err := c.store.Set(loadCtx, key, raw, c.ttl, tags); err != nil {
			c.logger.Warn(loadCtx, err, "Cache write failed", "key", key)
		}
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.metrics.ContentFetch(kind, metrics.ResultError)
			return zero, res.Err
		}
		c.metrics.ContentFetch(kind, metrics.ResultMiss)
		return res.Val.(T), nil
	}
}
