package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedding struct {
	dim     int
	batches [][]string
	err     error
}

func (f *fakeEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func TestAdapterBatchesInOrder(t *testing.T) {
	inner := &fakeEmbedding{dim: 4}
	a, err := NewAdapter(inner, 4, 2)
	require.NoError(t, err)

	vecs, err := a.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0])
	}
	assert.Len(t, inner.batches, 3)
}

func TestAdapterRejectsWrongDimension(t *testing.T) {
	a, err := NewAdapter(&fakeEmbedding{dim: 3}, 384, 0)
	require.NoError(t, err)

	_, err = a.Embed(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = a.EmbedQuery(context.Background(), "x")
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestAdapterPropagatesErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	a, err := NewAdapter(&fakeEmbedding{dim: 2, err: boom}, 2, 8)
	require.NoError(t, err)

	_, err = a.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func TestAdapterEmptyInput(t *testing.T) {
	a, err := NewAdapter(&fakeEmbedding{dim: 2}, 2, 8)
	require.NoError(t, err)
	vecs, err := a.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)

	_, err = NewAdapter(nil, 2, 8)
	assert.Error(t, err)
}
