package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"DocQA/backend/go/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 是一个用于 Google Gemini API 的 LLM 客户端。
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini 创建一个新的 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, modelName: model}, nil
}

// StreamChat 向 Gemini API 发送请求并以流的形式返回。
// system 消息合并为 SystemInstruction，最后一条 user 消息作为本轮输入，其余作为历史。
func (g *Gemini) StreamChat(ctx context.Context, req *models.ChatRequest) (ChatStream, error) {
	// 每个请求单独创建 GenerativeModel，避免并发修改参数
	model := g.client.GenerativeModel(g.modelName)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.StopSequences = req.Stop

	var (
		system  []string
		history []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case models.SpeakerSystem:
			system = append(system, m.Content)
		case models.SpeakerAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return nil, fmt.Errorf("gemini chat request must end with a user message")
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	ctx, cancel := context.WithCancel(ctx)
	cs := model.StartChat()
	cs.History = history[:len(history)-1]
	iter := cs.SendMessageStream(ctx, history[len(history)-1].Parts...)
	return &geminiStream{iter: iter, cancel: cancel}, nil
}

// Close 关闭底层的 GenAI 客户端。
func (g *Gemini) Close() error {
	return g.client.Close()
}

type geminiStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
	once   sync.Once
}

func (s *geminiStream) Recv() (string, error) {
	resp, err := s.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("gemini stream: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	return sb.String(), nil
}

func (s *geminiStream) Close() error {
	s.once.Do(s.cancel)
	return nil
}
