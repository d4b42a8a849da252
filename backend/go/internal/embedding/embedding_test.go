package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"DocQA/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceEmbedBatch(t *testing.T) {
	var gotPath, gotAuth string
	var gotInputs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Inputs []string `json:"inputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInputs = body.Inputs

		out := make([][]float32, len(body.Inputs))
		for i := range out {
			out[i] = []float32{float32(i), 1, 2}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	m, err := NewHuggingFaceModel("hf_token", "sentence-transformers/all-MiniLM-L6-v2", srv.URL+"/models/")
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1, 2}, {1, 1, 2}}, vecs)
	assert.Equal(t, "/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction", gotPath)
	assert.Equal(t, "Bearer hf_token", gotAuth)
	assert.Equal(t, []string{"a", "b"}, gotInputs)
}

func TestHuggingFaceNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m, err := NewHuggingFaceModel("k", "m", srv.URL)
	require.NoError(t, err)
	_, err = m.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHuggingFaceCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1,2]]`))
	}))
	defer srv.Close()

	m, err := NewHuggingFaceModel("k", "m", srv.URL)
	require.NoError(t, err)
	_, err = m.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

type countingModel struct {
	calls int
	err   error
}

func (c *countingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func (c *countingModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := c.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func TestCachedModelReusesQueryEmbeddings(t *testing.T) {
	inner := &countingModel{}
	m, err := NewCachedModel(inner, 8)
	require.NoError(t, err)

	v1, err := m.Embed(context.Background(), "what is rag")
	require.NoError(t, err)
	v1[0] = 99 // 调用方修改返回值不影响缓存

	v2, err := m.Embed(context.Background(), "what is rag")
	require.NoError(t, err)
	assert.Equal(t, []float32{11}, v2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedModelDoesNotCacheErrors(t *testing.T) {
	inner := &countingModel{err: errors.New("down")}
	m, err := NewCachedModel(inner, 8)
	require.NoError(t, err)

	_, err = m.Embed(context.Background(), "q")
	assert.Error(t, err)
	_, err = m.Embed(context.Background(), "q")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedModelDisabled(t *testing.T) {
	inner := &countingModel{}
	m, err := NewCachedModel(inner, 0)
	require.NoError(t, err)
	assert.Same(t, inner, m)
}

func TestNewEmdModelUnknownProvider(t *testing.T) {
	_, err := NewEmdModel(config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)

	m, err := NewEmdModel(config.EmbeddingConfig{
		Provider:    "huggingface",
		HuggingFace: config.ProviderConfig{APIKey: "k", Model: "m"},
	})
	require.NoError(t, err)
	assert.IsType(t, &HuggingFaceModel{}, m)
}
