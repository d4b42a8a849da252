package llm

import (
	"context"
	"fmt"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
)

// ChatStream 是一次正在进行的流式生成。
// Recv 在生成结束时返回 io.EOF；Close 释放上游连接，可以重复调用。
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
type LLM interface {
	StreamChat(ctx context.Context, req *models.ChatRequest) (ChatStream, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// huggingface 走 Hugging Face 的 OpenAI 兼容路由。
func NewClient(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "huggingface":
		return NewOpenAI(cfg.HuggingFace.Model, cfg.HuggingFace.APIKey, cfg.HuggingFace.BaseURL)
	case "openai":
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	case "gemini":
		return NewGemini(context.Background(), cfg.Gemini.Model, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
