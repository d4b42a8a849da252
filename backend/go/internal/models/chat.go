package models

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerSystem    SpeakerRole = "system"
	SpeakerUser      SpeakerRole = "user"
	SpeakerAssistant SpeakerRole = "assistant"
)

// ChatMessage 是发送给生成模型的一条带角色的消息。
type ChatMessage struct {
	Role    SpeakerRole `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest 描述一次流式生成请求。
type ChatRequest struct {
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Stop      []string      `json:"stop,omitempty"`
}
