package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/circuitbreaker"
	"DocQA/backend/go/pkg/httpmiddleware"
	"DocQA/backend/go/pkg/logger"
	"DocQA/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// Server wraps a gin engine and an http.Server with graceful shutdown.
type Server struct {
	engine          *gin.Engine
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// NewServer creates a gin engine with recovery, request logging, CORS and, when enabled
// in the config, rate limiting and circuit breaking. Routes are registered on Engine().
func NewServer(cfg *config.AppConfig, log *logger.Logger) (*Server, error) {
	engine := gin.New()
	engine.Use(gin.Recovery(), httpmiddleware.RequestLogger(log), httpmiddleware.CORS(cfg.Server.AllowedOrigins))

	// Add Rate Limiter middleware if enabled
	if cfg.Middleware.RateLimiter.Enabled {
		factory, err := createRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		keyed, err := ratelimiter.NewKeyed(factory, 10000, 10*time.Minute)
		if err != nil {
			return nil, err
		}
		log.WithField("algorithm", cfg.Middleware.RateLimiter.Algorithm).Info("Enabling Rate Limiter middleware")
		engine.Use(httpmiddleware.RateLimit(keyed))
	}

	// Add Circuit Breaker middleware if enabled
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := createCircuitBreaker(cfg.Middleware.CircuitBreaker, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		log.Info("Enabling Circuit Breaker middleware")
		engine.Use(httpmiddleware.CircuitBreak(breaker))
	}

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8000"
	}
	if cfg.Server.MaxUploadMB > 0 {
		engine.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20
	}

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			// 不设置 WriteTimeout：回答可能持续流式输出很久
		},
		shutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second),
		log:             log,
	}, nil
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("address", s.httpServer.Addr).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// createRateLimiter returns a factory for the configured algorithm.
func createRateLimiter(cfg config.RateLimiterConfig) (ratelimiter.Factory, error) {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = "tokenBucket"
	}

	switch algorithm {
	case "tokenBucket":
		conf := cfg.TokenBucket
		if conf.Rate <= 0 || conf.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket rate and capacity must be positive")
		}
		return func() ratelimiter.RateLimiter { return ratelimiter.NewTokenBucket(conf.Rate, conf.Capacity) }, nil
	case "slidingLog":
		conf := cfg.SlidingLog
		window, err := time.ParseDuration(conf.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid slidingLog duration: %w", err)
		}
		return func() ratelimiter.RateLimiter { return ratelimiter.NewSlidingWindowLog(conf.Limit, window) }, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}

// createCircuitBreaker initializes a circuit breaker based on the configuration.
func createCircuitBreaker(cfg config.CircuitBreakerConfig, log *logger.Logger) (*circuitbreaker.Breaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(circuitbreaker.Settings{
		FailureThreshold: cfg.FailureThreshold,
		SuccessThreshold: cfg.SuccessThreshold,
		Timeout:          timeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.WithField("from", from.String()).WithField("to", to.String()).Warn("Circuit breaker state changed")
		},
	}), nil
}
