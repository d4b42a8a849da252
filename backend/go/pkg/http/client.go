package http

import (
	"fmt"
	"net/http"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/circuitbreaker"
)

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

// NewClient creates a new Client. timeout 0 means no overall deadline, which streaming
// responses need; use request contexts to bound them instead.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if !cfg.Enabled {
		return c, nil
	}

	timeoutOpen, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	c.breaker = circuitbreaker.New(circuitbreaker.Settings{
		FailureThreshold: cfg.FailureThreshold,
		SuccessThreshold: cfg.SuccessThreshold,
		Timeout:          timeoutOpen,
	})
	return c, nil
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as failures but the response is still returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.Done(false)
		return nil, err
	}
	c.breaker.Done(resp.StatusCode < http.StatusInternalServerError)
	return resp, nil
}
