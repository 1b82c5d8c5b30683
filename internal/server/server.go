// Package server wires the content pipeline, preview flow, revalidation and
// live reload behind the site's HTTP routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/content"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	sitehttp "github.com/conneroisu/sitezone/internal/http"
	"github.com/conneroisu/sitezone/internal/livereload"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/middleware"
	"github.com/conneroisu/sitezone/internal/page"
	"github.com/conneroisu/sitezone/internal/preview"
	"github.com/conneroisu/sitezone/internal/registry"
	"github.com/conneroisu/sitezone/internal/renderer"
	"github.com/conneroisu/sitezone/internal/requestctx"
	"github.com/conneroisu/sitezone/internal/revalidate"
	"github.com/conneroisu/sitezone/internal/sitemap"
	"github.com/conneroisu/sitezone/internal/watcher"
)

// Options configures New. Source and Store override the ones built from
// the config, mostly for tests.
type Options struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Metrics
	Source  cms.Source
	Store   cache.Store
	Now     func() time.Time
}

// Server is the site server.
type Server struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	errors  *siteerrors.Handler
	now     func() time.Time

	store      cache.Store
	content    *content.Client
	sitemap    *sitemap.Resolver
	assembler  *page.Assembler
	renderer   *renderer.PageRenderer
	preview    *preview.Machine
	contexts   *requestctx.Resolver
	revalidate *revalidate.Handler
	hub        *livereload.Hub
	router     *sitehttp.Router

	watcherMu sync.Mutex
	watcher   *watcher.FileWatcher
}

var _ sitehttp.Handlers = (*Server)(nil)

// New builds the server. The context bounds connecting to the cache
// backend.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, siteerrors.NewConfigError("MISSING_CONFIG", "server config is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	source := opts.Source
	if source == nil {
		var err error
		if source, err = NewSource(cfg, logger); err != nil {
			return nil, err
		}
	}
	store := opts.Store
	if store == nil {
		var err error
		if store, err = NewStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	s := &Server{
		config:  cfg,
		logger:  logger.WithComponent("server"),
		metrics: opts.Metrics,
		errors:  siteerrors.NewHandler(logger.WithComponent("server")),
		now:     opts.Now,
		store:   store,
	}

	s.content = content.NewClient(content.Options{
		Source:  source,
		Store:   store,
		TTL:     cfg.CMS.FetchCacheDuration(),
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	s.sitemap = sitemap.NewResolver(s.content, logger)
	s.assembler = page.NewAssembler(s.content, s.sitemap, logger)
	s.renderer = renderer.NewPageRenderer(
		registry.NewResolver(registry.Modules(), opts.Metrics, logger),
		registry.Templates(),
		s.content,
		logger,
	)

	s.preview = preview.NewMachine(preview.Options{
		Keys:       preview.NewKeyManager(cfg.CMS.SecurityKey, cfg.Preview.KeyTTL),
		Resolver:   s.sitemap,
		CookieName: cfg.Preview.CookieName,
		Logger:     logger,
		Metrics:    opts.Metrics,
		Now:        opts.Now,
	})
	s.contexts = requestctx.NewResolver(cfg.CMS, cfg.IsDevelopment(), s.preview)

	s.hub = livereload.NewHub(cfg.Server.AllowedOrigins, logger)
	s.revalidate = revalidate.NewHandler(store, s.hub, opts.Metrics, logger)

	chain := middleware.NewChain(middleware.Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	s.router = sitehttp.NewRouter(cfg, s, chain)

	return s, nil
}

// NewSource picks the content source: the file tree under content.dir when
// set, the CMS fetch API otherwise.
func NewSource(cfg *config.Config, logger logging.Logger) (cms.Source, error) {
	if cfg.Content.Dir != "" {
		src, err := cms.NewFileSource(cfg.Content.Dir)
		if err != nil {
			return nil, fmt.Errorf("open content dir: %w", err)
		}
		return src, nil
	}
	return cms.NewAPIClient(cms.APIClientConfig{
		BaseURL:       cfg.CMS.BaseURL,
		GUID:          cfg.CMS.GUID,
		FetchAPIKey:   cfg.CMS.FetchAPIKey,
		PreviewAPIKey: cfg.CMS.PreviewAPIKey,
		Timeout:       cfg.CMS.RequestTimeout(),
	}, logger), nil
}

// NewStore builds the content cache for the configured backend.
func NewStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		return cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
	default:
		return cache.NewMemoryStore(cfg.Cache.MaxEntries), nil
	}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.router.Handler()
}

// Content exposes the content client.
func (s *Server) Content() *content.Client {
	return s.content
}

// Hub exposes the live-reload hub.
func (s *Server) Hub() *livereload.Hub {
	return s.hub
}

// Start serves until ctx is cancelled. When content.watch is set and the
// site reads from a content directory, edits flush the cache and reload
// connected browsers.
func (s *Server) Start(ctx context.Context) error {
	if s.config.Content.Watch && s.config.Content.Dir != "" {
		reloader := watcher.NewContentReloader(s.store, s.hub, s.logger)
		fw, err := watcher.WatchContent(ctx, s.config.Content.Dir, reloader, s.logger)
		if err != nil {
			return fmt.Errorf("watch content: %w", err)
		}
		s.watcherMu.Lock()
		s.watcher = fw
		s.watcherMu.Unlock()
		s.logger.Info(ctx, "Watching content directory", "dir", s.config.Content.Dir)
	}

	s.logger.Info(ctx, "Site server starting",
		"addr", s.router.Addr(),
		"environment", s.config.Server.Environment,
		"cache", s.config.Cache.Backend)
	return s.router.Start(ctx)
}

// Shutdown stops the watcher, disconnects live-reload clients, drains the
// HTTP server and closes the cache.
func (s *Server) Shutdown(ctx context.Context) error {
	s.watcherMu.Lock()
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "Failed to stop content watcher")
		}
		s.watcher = nil
	}
	s.watcherMu.Unlock()

	_ = s.hub.Shutdown(ctx)
	err := s.router.Shutdown(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close cache: %w", cerr)
	}
	return err
}
