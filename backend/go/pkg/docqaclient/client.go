// Package docqaclient 是文档问答服务的 Go 客户端，供 CLI 和 MCP 服务使用。
package docqaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	httpclient "DocQA/backend/go/pkg/http"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Detail     string
	Stage      string
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("docqa: %d (%s): %s", e.StatusCode, e.Stage, e.Detail)
	}
	return fmt.Sprintf("docqa: %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UploadResult is the body of a successful upload.
type UploadResult struct {
	Message  string `json:"message"`
	FileID   uint   `json:"file_id"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// CurrentFile describes the current document; both fields are nil when nothing is uploaded.
type CurrentFile struct {
	Filename *string `json:"filename"`
	FileID   *uint   `json:"file_id"`
}

// Client talks to a document QA service over HTTP.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	breaker config.CircuitBreakerConfig
}

// WithCircuitBreaker guards requests with a circuit breaker when cfg.Enabled.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	hc, err := httpclient.NewClient(o.breaker, 0)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

// Upload sends a file; it replaces the current document on the server.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask streams the answer into w as it arrives. fileID nil searches every document.
func (c *Client) Ask(ctx context.Context, query string, fileID *uint, w io.Writer) error {
	payload, err := json.Marshal(map[string]interface{}{"query": query, "file_id": fileID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-query", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	// 逐块写出，保持流式效果
	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if f, ok := w.(interface{ Flush() error }); ok {
				_ = f.Flush()
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Current returns the current document.
func (c *Client) Current(ctx context.Context) (*CurrentFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/current-file", nil)
	if err != nil {
		return nil, err
	}
	var out CurrentFile
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes a document and its vectors.
func (c *Client) Remove(ctx context.Context, fileID uint) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/file/"+strconv.FormatUint(uint64(fileID), 10), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// History lists recent questions, newest first.
func (c *Client) History(ctx context.Context, fileID *uint, limit int) ([]*models.QueryRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if fileID != nil {
		q.Set("file_id", strconv.FormatUint(uint64(*fileID), 10))
	}
	u := c.baseURL + "/history"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Records []*models.QueryRecord `json:"records"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Detail string `json:"detail"`
		Stage  string `json:"stage"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		apiErr.Detail, apiErr.Stage = body.Detail, body.Stage
	} else {
		apiErr.Detail = strings.TrimSpace(string(raw))
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
