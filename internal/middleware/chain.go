// Package middleware holds the HTTP middleware stack wrapped around every
// site route.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/validation"
)

// Middleware represents a single middleware function
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in the order they were added: the first added
// is the outermost wrapper.
//
// Default stack (outer to inner):
//  1. Recovery
//  2. Logging
//  3. Metrics
//  4. Security headers
//  5. CORS
type Chain struct {
	config      *config.Config
	logger      logging.Logger
	metrics     *metrics.Metrics
	middlewares []Middleware
}

// Dependencies contains everything needed to build the default chain.
type Dependencies struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// NewChain builds the default stack.
//
// Panics if deps.Config is nil.
func NewChain(deps Dependencies) *Chain {
	if deps.Config == nil {
		panic("middleware.NewChain: config cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	c := &Chain{
		config:      deps.Config,
		logger:      deps.Logger.WithComponent("http"),
		metrics:     deps.Metrics,
		middlewares: make([]Middleware, 0, 6),
	}
	c.Add(Recovery(c.logger, c.config.IsDevelopment()))
	c.Add(Logging(c.logger))
	c.Add(Metrics(c.metrics))
	c.Add(SecurityHeaders(c.config.IsDevelopment()))
	c.Add(CORS(c.config.Server.AllowedOrigins))
	return c
}

// Add appends a middleware inside the ones already added.
func (c *Chain) Add(m Middleware) {
	c.middlewares = append(c.middlewares, m)
}

// Len returns the number of middlewares in the chain.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Apply wraps handler with every middleware.
func (c *Chain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("middleware.Chain.Apply: handler cannot be nil")
	}
	wrapped := handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		wrapped = c.middlewares[i](wrapped)
	}
	return wrapped
}

// statusRecorder captures the status code written by inner handlers.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the WebSocket upgrade needs.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// routeLabel is the mux pattern that served r, so metric cardinality stays
// bounded by the route table.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		if _, path, ok := strings.Cut(r.Pattern, " "); ok {
			return path
		}
		return r.Pattern
	}
	return "unmatched"
}

// Recovery turns a panic into a 500. The stack is logged; it is shown to
// the client only in development.
func Recovery(logger logging.Logger, development bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				logger.Error(r.Context(), err, "Handler panicked",
					"method", r.Method, "path", r.URL.Path, "stack", string(debug.Stack()))

				msg := "Internal Server Error"
				if development {
					msg = err.Error()
				}
				http.Error(w, msg, http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs one line per request.
func Logging(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn(r.Context(), nil, "Request failed", fields...)
				return
			}
			logger.Debug(r.Context(), "Request served", fields...)
		})
	}
}

// Metrics records request counts and latency by route.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			m.ObserveRequest(r.Method, routeLabel(r), rec.status, time.Since(start))
		})
	}
}

// SecurityHeaders sets the baseline response headers. HSTS is only sent
// outside development.
func SecurityHeaders(development bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if !development && (r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")) {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS echoes allowed origins. Requests from other origins get no CORS
// headers, which blocks them in the browser.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && len(allowedOrigins) > 0 && validation.ValidateOrigin(origin, allowedOrigins) == nil {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
