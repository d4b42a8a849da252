package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// helper function to create a mock config for testing
func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Address: ":9999", AllowedOrigins: []string{"http://localhost:3000"}},
		Middleware: config.MiddlewareConfig{
			RateLimiter: config.RateLimiterConfig{
				Enabled:   true,
				Algorithm: "tokenBucket",
				TokenBucket: config.TokenBucketConfig{
					Rate:     10, // 10 tokens per second
					Capacity: 5,  // Bucket size of 5
				},
			},
			CircuitBreaker: config.CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 2, // Open after 2 consecutive failures
				SuccessThreshold: 2,
				Timeout:          "10s",
			},
		},
	}
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewServer_WithAddress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(newTestConfig(), logger.Discard())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if srv.Addr() != ":9999" {
		t.Errorf("Expected server address to be :9999, but got %s", srv.Addr())
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := newTestConfig()
	// Use a very small capacity to make testing easier
	cfg.Middleware.RateLimiter.TokenBucket.Capacity = 2
	cfg.Middleware.RateLimiter.TokenBucket.Rate = 0.001
	cfg.Middleware.CircuitBreaker.Enabled = false

	srv, err := NewServer(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	srv.Engine().GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	// First 2 requests should pass (equal to capacity)
	for i := 0; i < 2; i++ {
		if w := serve(srv, http.MethodGet, "/"); w.Code != http.StatusOK {
			t.Errorf("Expected status OK on request %d, got %d", i+1, w.Code)
		}
	}

	// The 3rd request should be rate limited
	if w := serve(srv, http.MethodGet, "/"); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status TooManyRequests, got %d", w.Code)
	}
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Enabled = false

	srv, err := NewServer(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	srv.Engine().GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	srv.Engine().GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Trip the breaker with 2 consecutive failures
	for i := 0; i < 2; i++ {
		if w := serve(srv, http.MethodGet, "/fail"); w.Code != http.StatusInternalServerError {
			t.Fatalf("Expected status 500 on request %d, got %d", i+1, w.Code)
		}
	}

	// The circuit is open, so even a healthy route is rejected
	if w := serve(srv, http.MethodGet, "/ok"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status ServiceUnavailable, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Enabled = false
	cfg.Middleware.CircuitBreaker.Enabled = false

	srv, err := NewServer(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status NoContent, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
}
