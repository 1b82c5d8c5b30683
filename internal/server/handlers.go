package server

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/components"
	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/content"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/page"
	"github.com/conneroisu/sitezone/internal/preview"
	"github.com/conneroisu/sitezone/internal/renderer"
	"github.com/conneroisu/sitezone/internal/requestctx"
	"github.com/conneroisu/sitezone/internal/version"
)

// Query parameters the CMS appends when it links into the site.
const (
	paramPreviewKey  = "agilitypreviewkey"
	paramPreviewExit = "AgilityPreview"
	paramSlug        = "slug"
)

// MaxPostListingTake caps a single load-more page.
const MaxPostListingTake = 50

const invalidListingRequest = "Invalid request: skip, take, locale and sitemap are all required"

type messageResponse struct {
	Message string `json:"message"`
}

// HandlePage renders a CMS page. Before rendering it honours the links the
// CMS builds into the site: a preview key enters preview for this path,
// AgilityPreview=0 leaves it, and a ContentID jumps to that item's page.
func (s *Server) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	switch {
	case q.Has(paramPreviewKey):
		s.enterPreview(w, r, preview.EnterRequest{
			Key:       q.Get(paramPreviewKey),
			Slug:      r.URL.Path,
			ContentID: preview.ParseContentID(r),
		})
		return
	case q.Get(paramPreviewExit) == "0":
		s.exitPreview(w, r, r.URL.Path)
		return
	}

	rc := s.contexts.Resolve(r)

	if id := preview.ParseContentID(r); id > 0 {
		target, ok, err := s.sitemap.ResolveContentIDToURL(ctx, id, rc)
		if err != nil {
			s.errors.Handle(ctx, err, "contentID", id)
		} else if ok {
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
	}

	memo := page.NewMemo()
	props, err := s.assembler.GetPage(ctx, memo, r.URL.Path, rc)
	if err != nil {
		s.renderError(w, r, rc, err)
		return
	}
	if props.Redirect != "" {
		http.Redirect(w, r, props.Redirect, http.StatusTemporaryRedirect)
		return
	}

	header := s.content.GetHeader(ctx, rc)
	layout := s.layout(r, rc, header, page.BuildMetadata(props, header))

	if props.NotFound {
		s.writeDocument(w, r, rc, http.StatusNotFound, layout, components.NotFound())
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.RenderPage(ctx, &buf, props, layout); err != nil {
		s.renderError(w, r, rc, err)
		return
	}

	setCacheHeaders(w, rc, s.config.CMS.PathRevalidateDuration().Seconds())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug(ctx, "Client went away during page write", "path", r.URL.Path)
	}
}

func (s *Server) layout(r *http.Request, rc requestctx.Context, header *content.Header, meta page.Metadata) components.LayoutProps {
	return components.LayoutProps{
		Meta:        meta,
		Header:      header,
		Path:        r.URL.Path,
		Preview:     rc.Preview(),
		Development: rc.IsDevelopmentMode,
		JustExited:  !rc.Preview() && r.URL.Query().Get(preview.QueryFlag) == "0",
		LiveReload:  rc.Preview(),
		Year:        s.now().Year(),
	}
}

// renderError logs err and writes the matching error document.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, rc requestctx.Context, err error) {
	ctx := r.Context()
	s.errors.Handle(ctx, err, "path", r.URL.Path, "mode", rc.Mode())

	layout := s.layout(r, rc, nil, page.BuildMetadata(nil, nil))
	if siteerrors.IsNotFound(err) {
		s.writeDocument(w, r, rc, http.StatusNotFound, layout, components.NotFound())
		return
	}
	layout.Meta.Title = "Error"
	s.writeDocument(w, r, rc, http.StatusInternalServerError, layout, components.ErrorPage(err.Error(), rc.Preview()))
}

// writeDocument renders body inside the layout with the given status. Error
// documents are never cached.
func (s *Server) writeDocument(w http.ResponseWriter, r *http.Request, rc requestctx.Context, status int, layout components.LayoutProps, body templ.Component) {
	var buf bytes.Buffer
	if err := renderer.RenderDocument(r.Context(), &buf, layout, body); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render error document", "status", status)
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func setCacheHeaders(w http.ResponseWriter, rc requestctx.Context, sMaxAge float64) {
	if rc.Preview() {
		w.Header().Set("Cache-Control", "private, no-store")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d", int(sMaxAge)))
}

// HandleDynamicRedirect sends the browser to the page of a content item.
func (s *Server) HandleDynamicRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := s.contexts.Resolve(r)

	if id := preview.ParseContentID(r); id > 0 {
		target, ok, err := s.sitemap.ResolveContentIDToURL(ctx, id, rc)
		switch {
		case err != nil:
			s.errors.Handle(ctx, err, "contentID", id)
		case ok:
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
	}
	s.writeJSON(ctx, w, http.StatusNotFound, messageResponse{Message: "Not Found"})
}

func (s *Server) HandlePreviewEnter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.enterPreview(w, r, preview.EnterRequest{
		Key:       q.Get(paramPreviewKey),
		Slug:      q.Get(paramSlug),
		ContentID: preview.ParseContentID(r),
	})
}

func (s *Server) enterPreview(w http.ResponseWriter, r *http.Request, req preview.EnterRequest) {
	ctx := r.Context()
	rc := s.contexts.Resolve(r)
	rc.IsPreview = true

	res, err := s.preview.Enter(ctx, req, rc, preview.IsSecureRequest(r))
	if err != nil {
		s.writeJSON(ctx, w, http.StatusUnauthorized, messageResponse{Message: publicMessage(err)})
		return
	}
	http.SetCookie(w, res.Cookie)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.Location, http.StatusTemporaryRedirect)
}

func (s *Server) HandlePreviewExit(w http.ResponseWriter, r *http.Request) {
	s.exitPreview(w, r, r.URL.Query().Get(paramSlug))
}

func (s *Server) exitPreview(w http.ResponseWriter, r *http.Request, slug string) {
	rc := s.contexts.Resolve(r)
	rc.IsPreview = false

	res := s.preview.Exit(r.Context(), preview.ExitRequest{
		Slug:      slug,
		ContentID: preview.ParseContentID(r),
		Active:    s.preview.HasDraft(r),
	}, rc, preview.IsSecureRequest(r))

	http.SetCookie(w, res.Cookie)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.Location, http.StatusTemporaryRedirect)
}

// HandleGenerateKey emits a fresh preview key. It exists for local
// demos and is off unless preview.enable_key_endpoint is set.
func (s *Server) HandleGenerateKey(w http.ResponseWriter, r *http.Request) {
	if !s.config.Preview.EnableKeyEndpoint {
		http.NotFound(w, r)
		return
	}
	key, err := s.preview.Keys().Generate(s.now())
	if err != nil {
		s.logger.Error(r.Context(), err, "Failed to generate preview key")
		http.Error(w, "could not generate preview key", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(key))
}

func (s *Server) HandleRevalidate(w http.ResponseWriter, r *http.Request) {
	s.revalidate.ServeHTTP(w, r)
}

// HandlePostListing serves the posts listing's load-more requests.
func (s *Server) HandlePostListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	locale := config.NormalizeLocale(q.Get("locale"))
	channel := q.Get("sitemap")
	skip, skipErr := strconv.Atoi(q.Get("skip"))
	take, takeErr := strconv.Atoi(q.Get("take"))
	if locale == "" || channel == "" || skipErr != nil || takeErr != nil || skip < 1 || take < 1 ||
		!s.config.CMS.HasLocale(locale) {
		http.Error(w, invalidListingRequest, http.StatusBadRequest)
		return
	}
	if take > MaxPostListingTake {
		take = MaxPostListingTake
	}

	rc := s.contexts.Resolve(r)
	rc.Locale = locale
	rc.Sitemap = channel

	posts, err := s.content.GetPostListing(ctx, rc, skip, take)
	if err != nil {
		s.errors.Handle(ctx, err, "skip", skip, "take", take)
		http.Error(w, "could not load posts", siteerrors.HTTPStatus(err))
		return
	}
	if rc.Preview() {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	s.writeJSON(ctx, w, http.StatusOK, posts)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// HandleSitemapXML lists every published sitemap path for crawlers. The
// first node is the home page and is listed as the bare site URL.
func (s *Server) HandleSitemapXML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := s.contexts.Default()
	rc.IsDevelopmentMode = false

	flat, err := s.content.GetSitemapFlat(ctx, rc)
	if err != nil {
		s.errors.Handle(ctx, err, "route", "sitemap.xml")
		http.Error(w, "could not load sitemap", http.StatusInternalServerError)
		return
	}

	base := s.baseURL(r)
	lastMod := s.now().UTC().Format("2006-01-02")
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for i, node := range flat.Nodes() {
		loc := base + node.Path
		if i == 0 {
			loc = base
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        loc,
			LastMod:    lastMod,
			ChangeFreq: "daily",
			Priority:   "1.0",
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		s.logger.Error(ctx, err, "Failed to encode sitemap.xml")
		http.Error(w, "could not encode sitemap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	setCacheHeaders(w, rc, s.config.CMS.PathRevalidateDuration().Seconds())
	_, _ = buf.WriteTo(w)
}

// baseURL is server.base_url, or the request's own origin when unset.
func (s *Server) baseURL(r *http.Request) string {
	if s.config.Server.BaseURL != "" {
		return s.config.Server.BaseURL
	}
	scheme := "http"
	if preview.IsSecureRequest(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cacheCheck := map[string]interface{}{
		"status":  "healthy",
		"backend": s.config.Cache.Backend,
	}
	if mem, ok := s.store.(*cache.MemoryStore); ok {
		cacheCheck["entries"] = mem.Stats().Entries
	}

	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  s.now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]interface{}{
			"server":     map[string]interface{}{"status": "healthy", "environment": s.config.Server.Environment},
			"cache":      cacheCheck,
			"livereload": map[string]interface{}{"status": "healthy", "clients": s.hub.Clients()},
		},
	}
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(r.Context(), w, http.StatusOK, health)
}

func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeHTTP(w, r)
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(ctx, err, "Failed to encode JSON response")
	}
}

// publicMessage is the part of err safe to show a caller.
func publicMessage(err error) string {
	var se *siteerrors.SiteError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return "preview could not be enabled"
}
