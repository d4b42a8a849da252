package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/circuitbreaker"
	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOpensBreakerOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, SuccessThreshold: 1, Timeout: "1h"}, 0)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err = c.Do(req)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestNewServerRejectsUnknownLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{}
	cfg.Middleware.RateLimiter = config.RateLimiterConfig{Enabled: true, Algorithm: "leakyBucket"}
	_, err := NewServer(cfg, logger.Discard())
	assert.Error(t, err)

	cfg.Middleware.RateLimiter = config.RateLimiterConfig{Enabled: true, Algorithm: "tokenBucket", TokenBucket: config.TokenBucketConfig{Rate: 1, Capacity: 1}}
	s, err := NewServer(cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, ":8000", s.Addr())
}
