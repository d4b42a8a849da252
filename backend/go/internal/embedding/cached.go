package embedding

import (
	"context"

	"DocQA/backend/go/pkg/util"
)

// CachedModel 在 Embed（单条查询）外面包一层 LRU 缓存，重复的问题不再请求远端。
// EmbedBatch 直接透传，文档分块不会进入缓存。
type CachedModel struct {
	Embedding
	cache *util.LRUCache[string, []float32]
}

// NewCachedModel 创建带缓存的模型。size <= 0 时直接返回原模型。
func NewCachedModel(inner Embedding, size int) (Embedding, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := util.NewLRU[string, []float32](size, 0)
	if err != nil {
		return nil, err
	}
	return &CachedModel{Embedding: inner, cache: cache}, nil
}

// Embed 优先从缓存读取，返回的切片是副本。
func (m *CachedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.cache.Get(text); ok {
		return append([]float32(nil), v...), nil
	}
	v, err := m.Embedding.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache.Put(text, append([]float32(nil), v...))
	return v, nil
}
