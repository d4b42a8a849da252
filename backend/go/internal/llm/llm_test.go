package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"DocQA/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackStreamDeliversFragmentsThenEOF(t *testing.T) {
	s := newCallbackStream(context.Background(), func(ctx context.Context, emit func(string) error) error {
		for _, f := range []string{"Hel", "lo"} {
			if err := emit(f); err != nil {
				return err
			}
		}
		return nil
	})
	defer s.Close()

	var got []string
	for {
		f, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, f)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestCallbackStreamSurfacesUpstreamError(t *testing.T) {
	boom := errors.New("connection reset")
	s := newCallbackStream(context.Background(), func(ctx context.Context, emit func(string) error) error {
		_ = emit("partial")
		return boom
	})
	defer s.Close()

	f, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", f)

	_, err = s.Recv()
	assert.ErrorIs(t, err, boom)
}

func TestCallbackStreamCloseCancelsProducer(t *testing.T) {
	stopped := make(chan struct{})
	s := newCallbackStream(context.Background(), func(ctx context.Context, emit func(string) error) error {
		defer close(stopped)
		for {
			if err := emit("tick"); err != nil {
				return err
			}
		}
	})

	_, err := s.Recv()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after Close")
	}
	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewClientProviders(t *testing.T) {
	c, err := NewClient(config.LLMConfig{
		Provider:    "huggingface",
		HuggingFace: config.ProviderConfig{APIKey: "hf", Model: "meta-llama/Llama-3.1-8B-Instruct", BaseURL: "https://router.huggingface.co/v1"},
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	c, err = NewClient(config.LLMConfig{Provider: "ollama", Ollama: config.ProviderConfig{Model: "llama3.1"}})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	_, err = NewClient(config.LLMConfig{Provider: "bard"})
	assert.Error(t, err)
}
