// Package http owns the site's route table and the HTTP server lifecycle.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/sitezone/internal/config"
)

// Route patterns.
const (
	RouteWebSocket       = "GET /ws"
	RouteHealth          = "GET /health"
	RouteMetrics         = "GET /metrics"
	RouteSitemapXML      = "GET /sitemap.xml"
	RouteDynamicRedirect = "GET /api/dynamic-redirect"
	RoutePreviewEnter    = "GET /api/preview"
	RoutePreviewExit     = "GET /api/preview/exit"
	RoutePreviewKey      = "GET /api/preview/generate-key"
	RouteRevalidate      = "POST /api/revalidate"
	RoutePostListing     = "GET /api/get-post-listing"
	RoutePage            = "GET /{path...}"
)

// Router handles HTTP server lifecycle and route registration.
//
// Invariants:
//   - mux and handlers are never nil after construction
//   - httpServer and isShutdown are guarded by serverMutex
type Router struct {
	config     *config.Config
	httpServer *http.Server
	mux        *http.ServeMux
	handler    http.Handler

	serverMutex sync.RWMutex
	isShutdown  bool

	handlers Handlers
}

// Handlers is every endpoint the site serves.
type Handlers interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	HandleHealth(w http.ResponseWriter, r *http.Request)
	HandleMetrics(w http.ResponseWriter, r *http.Request)
	HandleSitemapXML(w http.ResponseWriter, r *http.Request)

	HandleDynamicRedirect(w http.ResponseWriter, r *http.Request)
	HandlePreviewEnter(w http.ResponseWriter, r *http.Request)
	HandlePreviewExit(w http.ResponseWriter, r *http.Request)
	HandleGenerateKey(w http.ResponseWriter, r *http.Request)
	HandleRevalidate(w http.ResponseWriter, r *http.Request)
	HandlePostListing(w http.ResponseWriter, r *http.Request)

	HandlePage(w http.ResponseWriter, r *http.Request)
}

// MiddlewareProvider interface for middleware chain injection
type MiddlewareProvider interface {
	Apply(handler http.Handler) http.Handler
}

// NewRouter registers every route and wraps the mux in the middleware
// chain.
//
// Panics if any dependency is nil.
func NewRouter(cfg *config.Config, handlers Handlers, middleware MiddlewareProvider) *Router {
	if cfg == nil {
		panic("Router: config cannot be nil")
	}
	if handlers == nil {
		panic("Router: handlers cannot be nil")
	}
	if middleware == nil {
		panic("Router: middleware cannot be nil")
	}

	router := &Router{
		config:   cfg,
		mux:      http.NewServeMux(),
		handlers: handlers,
	}
	router.registerRoutes()
	router.handler = middleware.Apply(router.mux)

	router.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		Handler:           router.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return router
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc(RouteWebSocket, r.handlers.HandleWebSocket)
	r.mux.HandleFunc(RouteHealth, r.handlers.HandleHealth)
	r.mux.HandleFunc(RouteMetrics, r.handlers.HandleMetrics)
	r.mux.HandleFunc(RouteSitemapXML, r.handlers.HandleSitemapXML)

	r.mux.HandleFunc(RouteDynamicRedirect, r.handlers.HandleDynamicRedirect)
	r.mux.HandleFunc(RoutePreviewEnter, r.handlers.HandlePreviewEnter)
	r.mux.HandleFunc(RoutePreviewExit, r.handlers.HandlePreviewExit)
	r.mux.HandleFunc(RoutePreviewKey, r.handlers.HandleGenerateKey)
	r.mux.HandleFunc(RouteRevalidate, r.handlers.HandleRevalidate)
	r.mux.HandleFunc(RoutePostListing, r.handlers.HandlePostListing)

	// Everything else is a CMS page.
	r.mux.HandleFunc(RoutePage, r.handlers.HandlePage)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (r *Router) Handler() http.Handler {
	return r.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (r *Router) Start(ctx context.Context) error {
	r.serverMutex.RLock()
	server := r.httpServer
	isShutdown := r.isShutdown
	r.serverMutex.RUnlock()

	if isShutdown {
		return errors.New("router has been shut down")
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return r.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests. It is idempotent.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMutex.Lock()
	defer r.serverMutex.Unlock()

	if r.isShutdown {
		return nil
	}
	r.isShutdown = true

	if err := r.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (r *Router) Addr() string {
	r.serverMutex.RLock()
	defer r.serverMutex.RUnlock()
	return r.httpServer.Addr
}

func (r *Router) IsShutdown() bool {
	r.serverMutex.RLock()
	defer r.serverMutex.RUnlock()
	return r.isShutdown
}
