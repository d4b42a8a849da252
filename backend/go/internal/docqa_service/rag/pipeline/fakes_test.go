package pipeline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/models"
)

const testDim = 4

type fakeEmbedder struct {
	err      error
	queryErr error
	calls    int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{1, 0, 0, 0}, nil
}

// fakeChat replays fragments, then fails with recvErr (if set) or ends with io.EOF.
// endless makes Recv produce fragments forever.
type fakeChat struct {
	fragments []string
	recvErr   error
	openErr   error
	endless   bool

	mu      sync.Mutex
	lastReq *models.ChatRequest
	lastCtx context.Context
	streams []*fakeStream
}

func (f *fakeChat) StreamChat(ctx context.Context, req *models.ChatRequest) (interfaces.FragmentStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq, f.lastCtx = req, ctx
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &fakeStream{fragments: append([]string(nil), f.fragments...), err: f.recvErr, endless: f.endless}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeChat) request() *models.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func (f *fakeChat) context() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCtx
}

type fakeStream struct {
	fragments []string
	err       error
	endless   bool
	closed    atomic.Int32
}

func (s *fakeStream) Recv() (string, error) {
	if s.endless {
		return "tick", nil
	}
	if len(s.fragments) > 0 {
		f := s.fragments[0]
		s.fragments = s.fragments[1:]
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed.Add(1)
	return nil
}
