package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"DocQA/backend/go/pkg/docqaclient"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, handler http.HandlerFunc) *ToolHandler {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := docqaclient.New(srv.URL)
	require.NoError(t, err)
	return &ToolHandler{client: c}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleAskForwardsFileID(t *testing.T) {
	h := newHandler(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 3, body["file_id"])
		_, _ = w.Write([]byte("It is blue."))
	})

	res, err := h.HandleAsk(context.Background(), callRequest(map[string]any{"question": "What colour?", "file_id": 3}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "It is blue.", resultText(t, res))
}

func TestHandleAskRequiresQuestion(t *testing.T) {
	h := newHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := h.HandleAsk(context.Background(), callRequest(map[string]any{}))
	assert.Error(t, err)
}

func TestHandleCurrentReportsServiceError(t *testing.T) {
	h := newHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"mysql down"}`))
	})

	res, err := h.HandleCurrent(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "mysql down")
}

func TestHandleUploadMissingFile(t *testing.T) {
	h := newHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	res, err := h.HandleUpload(context.Background(), callRequest(map[string]any{"file_path": "/does/not/exist.pdf"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
