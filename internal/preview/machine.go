package preview

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/requestctx"
	"github.com/conneroisu/sitezone/internal/sitemap"
	"github.com/conneroisu/sitezone/internal/validation"
)

// DefaultCookieName names the draft cookie when none is configured.
const DefaultCookieName = "__sz_draft"

// QueryFlag is the informational marker appended to preview redirects.
const QueryFlag = "preview"

// PathResolver is the sitemap lookup the machine needs.
type PathResolver interface {
	ResolvePath(ctx context.Context, path string, rc requestctx.Context) (*sitemap.Resolution, error)
	ResolveContentIDToURL(ctx context.Context, contentID int, rc requestctx.Context) (string, bool, error)
}

var _ PathResolver = (*sitemap.Resolver)(nil)

// EnterRequest carries the preview entry parameters.
type EnterRequest struct {
	Key       string
	Slug      string
	ContentID int
}

// ExitRequest carries the preview exit parameters.
type ExitRequest struct {
	Slug      string
	ContentID int
	// Active reports whether the request still carried a valid draft cookie.
	Active bool
}

// Result is a completed transition: where to send the browser and which
// cookie to set.
type Result struct {
	Location    string
	Cookie      *http.Cookie
	Transitions []Transition
}

// Options configures a Machine.
type Options struct {
	Keys       *KeyManager
	Resolver   PathResolver
	CookieName string
	Logger     logging.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Machine drives the preview flow. It holds no per-visitor state; the draft
// flag lives in the signed cookie.
type Machine struct {
	keys       *KeyManager
	resolver   PathResolver
	cookieName string
	logger     logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

var _ requestctx.DraftChecker = (*Machine)(nil)

func NewMachine(opts Options) *Machine {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		keys:       opts.Keys,
		resolver:   opts.Resolver,
		cookieName: opts.CookieName,
		logger:     opts.Logger.WithComponent("preview"),
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
}

// CookieName returns the draft cookie name.
func (m *Machine) CookieName() string {
	return m.cookieName
}

// Keys returns the key manager.
func (m *Machine) Keys() *KeyManager {
	return m.keys
}

// HasDraft reports whether r carries a valid draft cookie.
func (m *Machine) HasDraft(r *http.Request) bool {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return m.keys.VerifyDraft(c.Value, m.now()) == nil
}

// Enter validates the key and target. On success the result carries the
// draft cookie and a redirect to the resolved URL with preview=1. rc should
// be a preview context so unpublished pages resolve.
//
// A ContentID with no sitemap node falls back to the slug, which must then
// resolve like any other slug.
func (m *Machine) Enter(ctx context.Context, req EnterRequest, rc requestctx.Context, secure bool) (*Result, error) {
	requested := Transition{From: StateLive, To: StatePreviewRequested, Outcome: OutcomeOK}

	if err := m.keys.Validate(req.Key, m.now()); err != nil {
		m.reject(ctx, "enter", OutcomeInvalidKey, err, req)
		return nil, siteerrors.ErrInvalidPreviewKey(err)
	}

	target, err := m.resolveEnterTarget(ctx, req, rc)
	if err != nil {
		m.reject(ctx, "enter", OutcomeUnresolved, err, req)
		return nil, err
	}

	draft, err := m.keys.IssueDraft(m.now())
	if err != nil {
		return nil, siteerrors.NewInternalError(siteerrors.ErrCodeInternalError, "issue draft cookie", err)
	}

	m.metrics.PreviewTransition("enter", OutcomeOK)
	m.logger.Info(ctx, "Preview mode enabled", "target", target, "locale", rc.Locale)

	return &Result{
		Location: validation.WithQueryFlag(target, QueryFlag, "1"),
		Cookie:   m.draftCookie(draft, int(DraftTTL/time.Second), secure),
		Transitions: []Transition{
			requested,
			{From: StatePreviewRequested, To: StatePreviewActive, Outcome: OutcomeOK},
		},
	}, nil
}

func (m *Machine) resolveEnterTarget(ctx context.Context, req EnterRequest, rc requestctx.Context) (string, error) {
	slug := req.Slug
	if slug == "" {
		slug = "/"
	}
	if _, err := validation.SafeRedirectPath(slug); err != nil {
		return "", siteerrors.NewPreviewError(siteerrors.ErrCodePreviewUnresolved, "invalid slug", err)
	}

	if req.ContentID > 0 {
		url, ok, err := m.resolver.ResolveContentIDToURL(ctx, req.ContentID, rc)
		if err != nil {
			return "", siteerrors.NewPreviewError(siteerrors.ErrCodePreviewUnresolved,
				"could not resolve content "+strconv.Itoa(req.ContentID), err)
		}
		if ok {
			return url, nil
		}
		m.logger.Debug(ctx, "Content ID has no sitemap node, falling back to slug",
			"contentID", req.ContentID, "slug", slug)
	}

	path, _, _ := strings.Cut(slug, "?")
	if _, err := m.resolver.ResolvePath(ctx, path, rc); err != nil {
		return "", siteerrors.NewPreviewError(siteerrors.ErrCodePreviewUnresolved,
			"the page ("+path+") could not be found", err)
	}
	return slug, nil
}

// Exit clears the draft cookie and redirects back to the slug, or the
// ContentID's live URL, with preview=0. It never fails: an unsafe slug
// becomes "/".
func (m *Machine) Exit(ctx context.Context, req ExitRequest, rc requestctx.Context, secure bool) *Result {
	target := req.Slug
	if target == "" {
		target = "/"
	}
	if _, err := validation.SafeRedirectPath(target); err != nil {
		m.logger.Warn(ctx, err, "Unsafe exit slug replaced with root")
		target = "/"
	}

	if req.ContentID > 0 {
		url, ok, err := m.resolver.ResolveContentIDToURL(ctx, req.ContentID, rc)
		switch {
		case err != nil:
			m.logger.Warn(ctx, err, "Could not resolve content ID on preview exit", "contentID", req.ContentID)
		case ok:
			target = url
		}
	}

	from := StateLive
	if req.Active {
		from = StatePreviewActive
	}
	m.metrics.PreviewTransition("exit", OutcomeOK)
	m.logger.Info(ctx, "Preview mode disabled", "target", target)

	return &Result{
		Location:    validation.WithQueryFlag(target, QueryFlag, "0"),
		Cookie:      m.draftCookie("", -1, secure),
		Transitions: []Transition{{From: from, To: StateLive, Outcome: OutcomeOK}},
	}
}

func (m *Machine) reject(ctx context.Context, transition, outcome string, err error, req EnterRequest) {
	m.metrics.PreviewTransition(transition, outcome)
	m.logger.Warn(ctx, err, "Preview request rejected",
		"outcome", outcome,
		"slug", logging.SanitizeForLog(req.Slug),
		"contentID", req.ContentID,
		"key", logging.Redact(req.Key),
	)
}

func (m *Machine) draftCookie(value string, maxAge int, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// IsSecureRequest reports whether the browser reached the site over https,
// directly or through a proxy.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// ParseContentID reads ContentID (or contentID) from the query. Missing or
// non-positive values yield 0.
func ParseContentID(r *http.Request) int {
	q := r.URL.Query()
	raw := q.Get("ContentID")
	if raw == "" {
		raw = q.Get("contentID")
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
