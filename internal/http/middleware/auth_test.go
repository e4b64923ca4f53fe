// README: Tests for session auth, recovery and metrics middleware.
package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maroonline/internal/http/middleware"
	"maroonline/internal/metrics"
)

// stubResolver is a test double for middleware.SessionResolver.
type stubResolver struct {
	email string
	err   error
	seen  string
}

func (s *stubResolver) Resolve(_ context.Context, token string) (string, error) {
	s.seen = token
	return s.email, s.err
}

func newTestRouter(resolver middleware.SessionResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(resolver))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"email": middleware.CallerEmail(c),
			"token": middleware.SessionToken(c),
		})
	})
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	w := serve(newTestRouter(&stubResolver{email: "a@uchicago.edu"}), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidBearerPrefix(t *testing.T) {
	w := serve(newTestRouter(&stubResolver{email: "a@uchicago.edu"}), "Token sometoken")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_EmptyToken(t *testing.T) {
	w := serve(newTestRouter(&stubResolver{email: "a@uchicago.edu"}), "Bearer   ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ResolverError(t *testing.T) {
	w := serve(newTestRouter(&stubResolver{err: errors.New("expired")}), "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidSession_EmailPopulated(t *testing.T) {
	res := &stubResolver{email: "rider@uchicago.edu"}
	w := serve(newTestRouter(res), "Bearer tok-123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-123", res.seen)
	assert.Contains(t, w.Body.String(), "rider@uchicago.edu")
	assert.Contains(t, w.Body.String(), "tok-123")
}

func TestRecovery_Returns500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "kaboom")
}

func TestRequestID_EchoesValidAndReplacesInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	got := w.Header().Get("X-Request-ID")
	assert.NotEqual(t, "bad id with spaces", got)
	assert.Len(t, got, 36)
}

func TestLogging_WritesOneLinePerRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(log))
	r.GET("/trips/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trips/42", nil))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "msg=request"))
	assert.Contains(t, out, "route=/trips/:id")
	assert.Contains(t, out, "status=200")
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(middleware.Metrics(m))
	r.GET("/trips/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trips/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/trips/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
