package llms

import (
	"context"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/llm"
	"DocQA/backend/go/internal/models"
)

// Adapter adapts an llm.LLM client to the ChatModel interface.
type Adapter struct {
	client llm.LLM
}

// NewAdapter creates a new adapter.
func NewAdapter(client llm.LLM) *Adapter {
	return &Adapter{client: client}
}

// StreamChat opens a streaming completion on the underlying client.
func (a *Adapter) StreamChat(ctx context.Context, req *models.ChatRequest) (interfaces.FragmentStream, error) {
	stream, err := a.client.StreamChat(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// compile-time check to ensure Adapter implements the ChatModel interface
var _ interfaces.ChatModel = (*Adapter)(nil)
