package main

import (
	"log"
	"os"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/docqaclient"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	baseURL := os.Getenv("DOCQA_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	client, err := docqaclient.New(baseURL, docqaclient.WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          "30s",
	}))
	if err != nil {
		log.Fatalf("failed to create docqa client: %v", err)
	}

	s := newServer(&ToolHandler{client: client})

	// stdout 是 MCP 协议通道，日志只能写 stderr
	log.SetOutput(os.Stderr)
	log.Printf("Starting document QA MCP server for %s", baseURL)
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v\n", err)
	}
}

func newServer(h *ToolHandler) *server.MCPServer {
	s := server.NewMCPServer("docqa", "1.0.0", server.WithToolCapabilities(false))

	// --- Register Tools ---
	s.AddTool(mcp.NewTool("ask_document",
		mcp.WithDescription("Answers a question using the uploaded document as context."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")),
		mcp.WithNumber("file_id", mcp.Description("Restrict retrieval to this file id.")),
	), h.HandleAsk)

	s.AddTool(mcp.NewTool("current_document",
		mcp.WithDescription("Returns the name and id of the document currently loaded."),
	), h.HandleCurrent)

	s.AddTool(mcp.NewTool("upload_document",
		mcp.WithDescription("Uploads a local PDF, TXT or DOCX file, replacing the current document."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Absolute path of the file to upload.")),
	), h.HandleUpload)

	s.AddTool(mcp.NewTool("question_history",
		mcp.WithDescription("Lists recent questions and their answers."),
		mcp.WithNumber("limit", mcp.Description("Number of records, default 10.")),
	), h.HandleHistory)
	return s
}
