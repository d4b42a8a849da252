package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"DocQA/backend/go/pkg/docqaclient"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandler 把 MCP 工具调用转发给问答服务。
type ToolHandler struct {
	client *docqaclient.Client
}

// HandleAsk collects the streamed answer and returns it as one text block.
func (h *ToolHandler) HandleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return nil, err
	}
	var fileID *uint
	if id := request.GetInt("file_id", 0); id > 0 {
		v := uint(id)
		fileID = &v
	}

	var answer strings.Builder
	if err := h.client.Ask(ctx, question, fileID, &answer); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	return mcp.NewToolResultText(answer.String()), nil
}

func (h *ToolHandler) HandleCurrent(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cur, err := h.client.Current(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	if cur.FileID == nil {
		return mcp.NewToolResultText("No document has been uploaded."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("file_id=%d filename=%s", *cur.FileID, *cur.Filename)), nil
}

func (h *ToolHandler) HandleUpload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("file_path")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening file: %v", err)), nil
	}
	defer f.Close()

	res, err := h.client.Upload(ctx, path, f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Uploaded %s as file_id=%d (%d chunks)", res.Filename, res.FileID, res.Chunks)), nil
}

func (h *ToolHandler) HandleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.client.History(ctx, nil, request.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No questions yet."), nil
	}
	var sb strings.Builder
	for i, r := range records {
		fmt.Fprintf(&sb, "%d. Q: %s\n   A: %s\n", i+1, r.Query, r.Answer)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
