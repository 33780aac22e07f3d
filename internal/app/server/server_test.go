package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/sifan077/curto/docs"
	"github.com/sifan077/curto/internal/app/repository"
	"github.com/sifan077/curto/internal/app/service"
	"github.com/sifan077/curto/internal/http/middleware"
)

type countingLimiter struct {
	mu   sync.Mutex
	hits map[string]int64
}

func (l *countingLimiter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hits == nil {
		l.hits = map[string]int64{}
	}
	l.hits[key]++
	return l.hits[key], nil
}

func newTestServer(limiter middleware.HitCounter) *Server {
	return New(Dependencies{
		Links:       service.NewLinkService(service.Dependencies{Store: repository.NewMemoryStore()}),
		Registry:    prometheus.NewRegistry(),
		Namespace:   "curto",
		RateLimiter: limiter,
		RateLimit:   middleware.RateLimitConfig{MaxRequests: 3, Window: time.Minute, KeyPrefix: "test"},
	})
}

func TestServerCreateAndRedirect(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(`{"targetUrl":"https://crates.io/","customId":"crates"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/crates", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://crates.io/", resp.Header.Get(fiber.HeaderLocation))
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestServerMetricsExposeRequests(t *testing.T) {
	srv := newTestServer(nil)

	_, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `curto_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestServerRateLimits(t *testing.T) {
	srv := newTestServer(&countingLimiter{})

	for i := 0; i < 3; i++ {
		resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestServerFallsBackToLocalRateLimit(t *testing.T) {
	srv := New(Dependencies{
		Links:          service.NewLinkService(service.Dependencies{Store: repository.NewMemoryStore()}),
		Registry:       prometheus.NewRegistry(),
		LocalRateLimit: true,
		RateLimit:      middleware.RateLimitConfig{MaxRequests: 2, Window: time.Minute},
	})

	for i := 0; i < 2; i++ {
		resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestServerUnknownRoute(t *testing.T) {
	srv := newTestServer(nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodDelete, "/links", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"message":"Route not found"}`, string(body))
}
