package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"DocQA/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL，为空时使用 http://localhost:11434。
//
// 返回值:
//
//	*Ollama: 新创建的 Ollama 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	// 流式生成不设置整体超时，由调用方的 context 控制
	return &Ollama{client: olla.NewClient(parsedURL, http.DefaultClient), model: model}, nil
}

// StreamChat 使用 Ollama 的 Chat 接口以流式方式生成内容。
func (o *Ollama) StreamChat(ctx context.Context, req *models.ChatRequest) (ChatStream, error) {
	messages := make([]olla.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, olla.Message{Role: string(m.Role), Content: m.Content})
	}
	options := map[string]interface{}{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(req.Stop) > 0 {
		options["stop"] = req.Stop
	}
	stream := true
	chatReq := &olla.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	return newCallbackStream(ctx, func(ctx context.Context, emit func(string) error) error {
		return o.client.Chat(ctx, chatReq, func(resp olla.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			return emit(resp.Message.Content)
		})
	}), nil
}
