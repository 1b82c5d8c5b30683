package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/logging"
)

// APIClientConfig configures the REST fetch API client.
type APIClientConfig struct {
	// BaseURL overrides the regional endpoint derived from the GUID.
	BaseURL       string
	GUID          string
	FetchAPIKey   string
	PreviewAPIKey string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// APIClient talks to the CMS fetch API. Failures are returned to the caller
// as-is; there are no retries.
type APIClient struct {
	baseURL    string
	guid       string
	fetchKey   string
	previewKey string
	client     *http.Client
	logger     logging.Logger
}

var _ Source = (*APIClient)(nil)

// NewAPIClient creates a fetch API client.
func NewAPIClient(cfg APIClientConfig, logger logging.Logger) *APIClient {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = RegionalBaseURL(cfg.GUID)
	}
	return &APIClient{
		baseURL:    base,
		guid:       cfg.GUID,
		fetchKey:   cfg.FetchAPIKey,
		previewKey: cfg.PreviewAPIKey,
		client:     client,
		logger:     logger.WithComponent("cms"),
	}
}

// RegionalBaseURL picks the fetch API host from the instance GUID suffix.
func RegionalBaseURL(guid string) string {
	switch {
	case strings.HasSuffix(guid, "-d"):
		return "https://api-dev.aglty.io"
	case strings.HasSuffix(guid, "-c"):
		return "https://api-ca.aglty.io"
	case strings.HasSuffix(guid, "-e"):
		return "https://api-eu.aglty.io"
	case strings.HasSuffix(guid, "-a"):
		return "https://api-aus.aglty.io"
	default:
		return "https://api.aglty.io"
	}
}

func (c *APIClient) GetContentItem(ctx context.Context, req ItemRequest) (*ContentItem, error) {
	q := url.Values{}
	q.Set("contentLinkDepth", strconv.Itoa(req.ContentLinkDepth))

	var item ContentItem
	endpoint := c.endpoint(req.Preview, req.Locale, "item/"+strconv.Itoa(req.ContentID), q)
	if err := c.get(ctx, endpoint, req.Preview, &item); err != nil {
		if siteerrors.IsNotFound(err) {
			return nil, siteerrors.ErrContentNotFound(req.ContentID)
		}
		return nil, err
	}
	return &item, nil
}

func (c *APIClient) GetContentList(ctx context.Context, req ListRequest) (*ContentList, error) {
	q := url.Values{}
	if req.Take > 0 {
		q.Set("take", strconv.Itoa(req.Take))
	}
	if req.Skip > 0 {
		q.Set("skip", strconv.Itoa(req.Skip))
	}
	q.Set("contentLinkDepth", strconv.Itoa(req.ContentLinkDepth))

	var list ContentList
	endpoint := c.endpoint(req.Preview, req.Locale, "list/"+url.PathEscape(strings.ToLower(req.ReferenceName)), q)
	if err := c.get(ctx, endpoint, req.Preview, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *APIClient) GetSitemapFlat(ctx context.Context, req SitemapRequest) (*FlatSitemap, error) {
	var sitemap FlatSitemap
	endpoint := c.endpoint(req.Preview, req.Locale, "sitemap/flat/"+url.PathEscape(req.Channel), nil)
	if err := c.get(ctx, endpoint, req.Preview, &sitemap); err != nil {
		return nil, err
	}
	return &sitemap, nil
}

func (c *APIClient) GetSitemapNested(ctx context.Context, req SitemapRequest) ([]*SitemapNode, error) {
	var nodes []*SitemapNode
	endpoint := c.endpoint(req.Preview, req.Locale, "sitemap/nested/"+url.PathEscape(req.Channel), nil)
	if err := c.get(ctx, endpoint, req.Preview, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *APIClient) GetPage(ctx context.Context, req PageRequest) (*Page, error) {
	q := url.Values{}
	q.Set("contentLinkDepth", strconv.Itoa(req.ContentLinkDepth))

	var page Page
	endpoint := c.endpoint(req.Preview, req.Locale, "page/"+strconv.Itoa(req.PageID), q)
	if err := c.get(ctx, endpoint, req.Preview, &page); err != nil {
		if siteerrors.IsNotFound(err) {
			return nil, siteerrors.ErrPageNotFound(req.PageID)
		}
		return nil, err
	}
	return &page, nil
}

func (c *APIClient) endpoint(preview bool, locale, rel string, q url.Values) string {
	mode := "fetch"
	if preview {
		mode = "preview"
	}
	u := fmt.Sprintf("%s/%s/%s/%s/%s", c.baseURL, url.PathEscape(c.guid), mode, url.PathEscape(locale), rel)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *APIClient) get(ctx context.Context, endpoint string, preview bool, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return siteerrors.NewInternalError(siteerrors.ErrCodeInternalError, "build cms request", err)
	}

	key := c.fetchKey
	if preview {
		key = c.previewKey
	}
	req.Header.Set("APIKey", key)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return siteerrors.NewUpstreamError(siteerrors.ErrCodeUpstreamFailed, "cms request failed", err).
			WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "cms fetch",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return siteerrors.NewNotFoundError(siteerrors.ErrCodeContentNotFound, "cms resource not found").
			WithContext("endpoint", endpoint)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return siteerrors.NewUpstreamError(
			siteerrors.ErrCodeUpstreamStatus,
			fmt.Sprintf("cms returned %s", resp.Status),
			nil,
		).WithContext("endpoint", endpoint).WithContext("body", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return siteerrors.NewUpstreamError(siteerrors.ErrCodeMalformedPayload, "decode cms response", err).
			WithContext("endpoint", endpoint)
	}
	return nil
}
