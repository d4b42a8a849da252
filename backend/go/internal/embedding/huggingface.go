package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHuggingFaceBaseURL 是 Hugging Face 推理路由的模型前缀。
const DefaultHuggingFaceBaseURL = "https://router.huggingface.co/hf-inference/models/"

// HTTPDoer 是 *http.Client 的最小抽象，便于测试替换。
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HuggingFaceModel 是一个用于 Hugging Face Inference API (feature-extraction) 的 Embedding 模型客户端。
type HuggingFaceModel struct {
	client  HTTPDoer // HTTP 客户端实例。
	model   string   // 要使用的模型名称，例如 sentence-transformers/all-MiniLM-L6-v2。
	apiKey  string   // Hugging Face API 密钥。
	baseURL string   // 推理 API 的基准 URL。
}

// NewHuggingFaceModel 创建一个新的 HuggingFaceModel 客户端。
//
// 参数:
//
//	apiKey: Hugging Face 的 API 密钥。
//	modelName: 要使用的模型名称。
//	baseURL: 推理 API 的基准 URL。如果为空，则使用 DefaultHuggingFaceBaseURL。
//
// 返回值:
//
//	*HuggingFaceModel: 新创建的 HuggingFaceModel 客户端实例。
//	error: 如果缺少模型名称，则返回错误。
func NewHuggingFaceModel(apiKey, modelName, baseURL string) (*HuggingFaceModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("huggingface embedding model name is required")
	}
	if baseURL == "" {
		baseURL = DefaultHuggingFaceBaseURL
	}
	return &HuggingFaceModel{
		client:  &http.Client{Timeout: 60 * time.Second},
		model:   modelName,
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

// WithHTTPClient 替换底层 HTTP 客户端。
func (m *HuggingFaceModel) WithHTTPClient(c HTTPDoer) *HuggingFaceModel {
	m.client = c
	return m
}

func (m *HuggingFaceModel) endpoint() string {
	return strings.TrimRight(m.baseURL, "/") + "/" + m.model + "/pipeline/feature-extraction"
}

// Embed 使用 Hugging Face Inference API 为单个文本生成嵌入向量。
func (m *HuggingFaceModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 使用 Hugging Face Inference API 为一批文本生成嵌入向量。
//
// 参数:
//
//	ctx: 上下文，用于控制操作的生命周期。
//	texts: 要生成嵌入向量的文本切片。
//
// 返回值:
//
//	[][]float32: 生成的嵌入向量切片，数量与输入一致。
//	error: 请求失败、返回非 200 状态码或返回数量不匹配时返回错误。
func (m *HuggingFaceModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]interface{}{
		"inputs":  texts,
		"options": map[string]bool{"wait_for_model": true},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint(), bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("huggingface returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("huggingface returned %d embeddings for %d inputs", len(embeddings), len(texts))
	}
	return embeddings, nil
}
