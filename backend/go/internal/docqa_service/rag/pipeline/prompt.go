package pipeline

import (
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/models"
)

// systemTemplate 要求模型优先依据上下文回答，上下文中没有答案时用自身知识回答，
// 且永远不要说“在文档中找不到答案”。
const systemTemplate = `You are a helpful assistant. Answer the user's question based on the following context, and also from your own knowledge.
If the answer is not found in the context, never say "I could not find an answer in the document."
If answer is not found in the context, try to respond from your own knowledge.
Keep your answers concise and to the point, and professional.

---
**Formatting Instructions:**
Format your final answer using clear and concise Markdown, try to keep the answer medium length.
- Use headings (` + "`##` or `###`" + `) for main topics.
- Use bold (` + "`**text**`" + `) to emphasize key terms.
- Use bullet points (` + "`* item`" + `) for lists or key points.
- Use numbered lists (` + "`1. item`" + `) for steps or sequences.
---

Context:
{context}`

const userTemplate = `Question:
{question}`

// FormatContext 按检索返回的顺序拼接分块文本，分块之间用空行分隔。
func FormatContext(results []schema.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Document == nil {
			continue
		}
		texts = append(texts, r.Document.Text)
	}
	return strings.Join(texts, "\n\n")
}

// BuildMessages 渲染 system 与 user 两条消息，顺序固定。
func BuildMessages(context, question string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.SpeakerSystem, Content: strings.Replace(systemTemplate, "{context}", context, 1)},
		{Role: models.SpeakerUser, Content: strings.Replace(userTemplate, "{question}", question, 1)},
	}
}
