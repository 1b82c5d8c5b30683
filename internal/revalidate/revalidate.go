// Package revalidate turns CMS publish webhooks into cache tag
// invalidations.
package revalidate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/metrics"
)

// StatePublished is the only webhook state that invalidates anything.
const StatePublished = "Published"

const maxBodyBytes = 1 << 20

// Event is the CMS webhook payload.
type Event struct {
	State            string `json:"state"`
	InstanceGUID     string `json:"instanceGuid"`
	LanguageCode     string `json:"languageCode"`
	ReferenceName    string `json:"referenceName,omitempty"`
	ContentID        int    `json:"contentID,omitempty"`
	ContentVersionID int    `json:"contentVersionID,omitempty"`
	PageID           int    `json:"pageID,omitempty"`
	PageVersionID    int    `json:"pageVersionID,omitempty"`
	ChangeDateUTC    string `json:"changeDateUTC,omitempty"`
}

// TagsForEvent lists the cache tags a webhook event invalidates. Content and
// page changes are evaluated independently. A page change also invalidates
// both sitemaps since it can alter navigation. Events that are not
// published, or carry no language code, yield nothing.
func TagsForEvent(ev Event) []string {
	if ev.State != StatePublished {
		return nil
	}
	locale := config.NormalizeLocale(ev.LanguageCode)
	if locale == "" {
		return nil
	}

	var tags []string
	if ev.ReferenceName != "" {
		tags = append(tags, cache.ContentRefTag(ev.ReferenceName, locale))
		if ev.ContentID > 0 {
			tags = append(tags, cache.ContentIDTag(ev.ContentID, locale))
		}
	}
	if ev.PageID > 0 {
		tags = append(tags,
			cache.PageTag(ev.PageID, locale),
			cache.SitemapFlatTag(locale),
			cache.SitemapNestedTag(locale),
		)
	}
	return tags
}

// Notifier is told after entries were invalidated.
type Notifier interface {
	Reload(reason string)
}

// Ack reports what one event did.
type Ack struct {
	Tags        []string
	Invalidated int
	Err         error
}

type Handler struct {
	store    cache.Store
	notifier Notifier
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// NewHandler creates a webhook handler. store and notifier may be nil.
func NewHandler(store cache.Store, notifier Notifier, m *metrics.Metrics, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handler{store: store, notifier: notifier, metrics: m, logger: logger.WithComponent("revalidate")}
}

// Handle invalidates the tags for ev. Invalidation failures are logged and
// reported in the Ack, never returned to the webhook caller.
func (h *Handler) Handle(ctx context.Context, ev Event) Ack {
	ack := Ack{Tags: TagsForEvent(ev)}
	if len(ack.Tags) == 0 {
		h.logger.Debug(ctx, "Webhook event ignored",
			"state", ev.State, "languageCode", ev.LanguageCode, "referenceName", ev.ReferenceName, "pageID", ev.PageID)
		return ack
	}

	if h.store != nil {
		n, err := h.store.InvalidateTags(ctx, ack.Tags...)
		ack.Invalidated = n
		if err != nil {
			ack.Err = err
			h.logger.Error(ctx, err, "Cache invalidation failed", "tags", ack.Tags)
		}
	}
	for _, tag := range ack.Tags {
		h.metrics.CacheInvalidation(cache.TagKind(tag))
	}

	h.logger.Info(ctx, "Revalidated cache tags", "tags", ack.Tags, "entries", ack.Invalidated)
	if h.notifier != nil {
		h.notifier.Reload("revalidate")
	}
	return ack
}

// ServeHTTP answers every webhook with 200 OK so the CMS never retries.
// Malformed payloads are logged and ignored.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")
	}()

	var ev Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&ev); err != nil {
		h.logger.Warn(r.Context(), err, "Malformed revalidation payload")
		return
	}
	h.Handle(r.Context(), ev)
}
