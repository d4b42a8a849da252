package config

import (
	"fmt"
	"strings"
)

// ConfigurationError 表示启动时缺少必需的配置或配置取值非法。
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate 检查所选 provider / driver 需要的字段是否齐全。
// 返回的错误类型为 *ConfigurationError。
func (c *AppConfig) Validate() error {
	var problems []string
	missing := func(field string) {
		problems = append(problems, fmt.Sprintf("%s is required", field))
	}

	switch c.LLM.Provider {
	case "huggingface":
		if c.LLM.HuggingFace.APIKey == "" {
			missing("llm.huggingface.apiKey (HUGGINGFACEHUB_API_TOKEN)")
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			missing("llm.openai.apiKey (OPENAI_API_KEY)")
		}
		if c.LLM.OpenAI.Model == "" {
			missing("llm.openai.model")
		}
	case "ollama":
		if c.LLM.Ollama.Model == "" {
			missing("llm.ollama.model")
		}
	case "gemini":
		if c.LLM.Gemini.APIKey == "" {
			missing("llm.gemini.apiKey (GEMINI_API_KEY)")
		}
		if c.LLM.Gemini.Model == "" {
			missing("llm.gemini.model")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown llm.provider %q", c.LLM.Provider))
	}

	switch c.Embedding.Provider {
	case "huggingface":
		if c.Embedding.HuggingFace.APIKey == "" {
			missing("embedding.huggingface.apiKey (HUGGINGFACEHUB_API_TOKEN)")
		}
	case "openai":
		if c.Embedding.OpenAI.APIKey == "" {
			missing("embedding.openai.apiKey (OPENAI_API_KEY)")
		}
		if c.Embedding.OpenAI.Model == "" {
			missing("embedding.openai.model")
		}
	case "ollama":
	case "gemini":
		if c.Embedding.Gemini.APIKey == "" {
			missing("embedding.gemini.apiKey (GEMINI_API_KEY)")
		}
		if c.Embedding.Gemini.Model == "" {
			missing("embedding.gemini.model")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		problems = append(problems, "embedding.dimension must be positive")
	}

	switch c.Databases.VectorDriver {
	case "milvus":
		if c.Databases.Milvus.Address == "" {
			missing("databases.milvus.address (MILVUS_ADDRESS)")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown databases.vectorDriver %q", c.Databases.VectorDriver))
	}

	switch c.Databases.BlobDriver {
	case "minio":
		if c.Databases.MinIO.Endpoint == "" {
			missing("databases.minio.endpoint (MINIO_ENDPOINT)")
		}
		if c.Databases.MySQL.Address == "" {
			missing("databases.mysql.address (MYSQL_ADDRESS)")
		}
		if c.Databases.MySQL.Database == "" {
			missing("databases.mysql.database")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown databases.blobDriver %q", c.Databases.BlobDriver))
	}

	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		problems = append(problems, "rag.chunkOverlap must be in [0, rag.chunkSize)")
	}
	if c.RAG.TopK <= 0 {
		problems = append(problems, "rag.topK must be positive")
	}
	if c.RAG.PreDeletePolicy != PreDeleteContinue && c.RAG.PreDeletePolicy != PreDeleteAbort {
		problems = append(problems, fmt.Sprintf("rag.preDeletePolicy must be %q or %q", PreDeleteContinue, PreDeleteAbort))
	}
	if c.RAG.DocumentMode != DocumentModeSingle && c.RAG.DocumentMode != DocumentModeMulti {
		problems = append(problems, fmt.Sprintf("rag.documentMode must be %q or %q", DocumentModeSingle, DocumentModeMulti))
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
