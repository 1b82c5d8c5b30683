package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/metrics"
)

func testConfig(env string, origins ...string) *config.Config {
	return &config.Config{Server: config.ServerConfig{Environment: env, AllowedOrigins: origins}}
}

func TestChain_Order(t *testing.T) {
	c := &Chain{}
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	c.Add(mark("outer"))
	c.Add(mark("inner"))

	h := c.Apply(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestNewChain(t *testing.T) {
	c := NewChain(Dependencies{Config: testConfig(config.EnvProduction)})
	assert.Equal(t, 5, c.Len())
	assert.Panics(t, func() { NewChain(Dependencies{}) })
	assert.Panics(t, func() { c.Apply(nil) })
}

func TestRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	NewChain(Dependencies{Config: testConfig(config.EnvProduction)}).Apply(panicking).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	rec = httptest.NewRecorder()
	NewChain(Dependencies{Config: testConfig(config.EnvDevelopment)}).Apply(panicking).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := CORS([]string{"https://cms.example.com"})(ok)

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{name: "allowed", method: http.MethodGet, origin: "https://cms.example.com", wantOrigin: "https://cms.example.com", wantStatus: http.StatusTeapot},
		{name: "foreign", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusTeapot},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusTeapot},
		{name: "preflight", method: http.MethodOptions, origin: "https://cms.example.com", preflight: true, wantOrigin: "https://cms.example.com", wantStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/get-post-listing", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "GET")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMetrics_RouteLabel(t *testing.T) {
	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/revalidate-test/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := Metrics(m)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/revalidate-test/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/revalidate-test/2", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/revalidate-test/{id}", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestStatusRecorder(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	_, err := rec.Write([]byte("x"))
	require.NoError(t, err)
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, rec.status)
}
