package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/pkg/logger"
)

// FallbackMessage is the single fragment sent when generation fails after retrieval succeeded.
const FallbackMessage = "Sorry, I ran into an error trying to generate a response."

// AnswerOptions holds the generation parameters.
type AnswerOptions struct {
	TopK      int
	MaxTokens int
	Stop      []string
}

// Summary describes a finished answer stream.
type Summary struct {
	Text      string // everything delivered to the consumer, fallback included
	Fragments int
	Retrieved int
	FellBack  bool
	Cancelled bool
	Err       error // generation error behind a fallback
}

// AnswerPipeline retrieves the chunks relevant to a question and streams a generated answer.
type AnswerPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	chat        interfaces.ChatModel
	opts        AnswerOptions
	log         *logger.Logger
}

// NewAnswerPipeline creates a new AnswerPipeline.
func NewAnswerPipeline(
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	chat interfaces.ChatModel,
	opts AnswerOptions,
	log *logger.Logger,
) *AnswerPipeline {
	return &AnswerPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		chat:        chat,
		opts:        opts,
		log:         log,
	}
}

// AnswerOption customizes a single Answer call.
type AnswerOption func(*answerCall)

type answerCall struct {
	onFinish func(Summary)
}

// WithOnFinish registers fn to run once the stream has ended, in the producer goroutine.
func WithOnFinish(fn func(Summary)) AnswerOption {
	return func(c *answerCall) { c.onFinish = fn }
}

// Answer embeds the query, searches the vector index and opens the answer stream.
// When documentID is non-nil only chunks of that document are considered.
// Retrieval failures are returned as *schema.RetrievalError; once the stream exists
// every generation failure is reported in-band as FallbackMessage.
func (p *AnswerPipeline) Answer(ctx context.Context, query string, documentID *string, opts ...AnswerOption) (*AnswerStream, error) {
	call := &answerCall{}
	for _, o := range opts {
		o(call)
	}

	var filter schema.Filter
	log := p.log
	if documentID != nil {
		filter = schema.DocumentFilter(*documentID)
		log = log.WithField("document_id", *documentID)
	}

	// 1. Embed the query
	queryEmbedding, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		log.WithError(err).Error("Failed to embed query")
		return nil, &schema.RetrievalError{Stage: "embed", Err: err}
	}

	// 2. Search the vector index
	results, err := p.vectorStore.Search(ctx, queryEmbedding, p.opts.TopK, filter)
	if err != nil {
		log.WithError(err).Error("Failed to search vector store")
		return nil, &schema.RetrievalError{Stage: "search", Err: err}
	}
	p.logRetrieved(log, results)

	// 3. Render the prompt
	req := &models.ChatRequest{
		Messages:  BuildMessages(FormatContext(results), query),
		MaxTokens: p.opts.MaxTokens,
		Stop:      p.opts.Stop,
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &AnswerStream{
		ch:      make(chan string),
		cancel:  cancel,
		done:    make(chan struct{}),
		sources: results,
	}
	go p.produce(streamCtx, s, req, log, call.onFinish)
	return s, nil
}

func (p *AnswerPipeline) logRetrieved(log *logger.Logger, results []schema.SearchResult) {
	if len(results) == 0 {
		log.Debug("No chunks were retrieved, answering without context")
		return
	}
	for i, r := range results {
		if r.Document == nil {
			continue
		}
		text := []rune(r.Document.Text)
		if len(text) > 200 {
			text = text[:200]
		}
		log.WithField("rank", i+1).WithField("score", r.Score).Debug(string(text))
	}
}

// produce forwards fragments from the chat model until it ends, fails or the consumer leaves.
func (p *AnswerPipeline) produce(ctx context.Context, s *AnswerStream, req *models.ChatRequest, log *logger.Logger, onFinish func(Summary)) {
	defer s.cancel()
	defer close(s.done)
	defer close(s.ch)

	var sb strings.Builder
	sum := Summary{Retrieved: len(s.sources)}
	defer func() {
		sum.Text = sb.String()
		if onFinish != nil {
			onFinish(sum)
		}
	}()

	send := func(fragment string) bool {
		select {
		case s.ch <- fragment:
			sb.WriteString(fragment)
			return true
		case <-ctx.Done():
			sum.Cancelled = true
			return false
		}
	}
	fallback := func(err error) {
		if ctx.Err() != nil {
			sum.Cancelled = true
			return
		}
		log.WithError(err).Error("Generation failed, sending fallback message")
		sum.FellBack, sum.Err = true, err
		send(FallbackMessage)
	}

	stream, err := p.chat.StreamChat(ctx, req)
	if err != nil {
		fallback(fmt.Errorf("open stream: %w", err))
		return
	}
	defer stream.Close()

	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fallback(err)
			return
		}
		if fragment == "" {
			continue
		}
		if !send(fragment) {
			return
		}
		sum.Fragments++
	}
}

// AnswerStream is a finite, single-consumer sequence of answer fragments.
type AnswerStream struct {
	ch      chan string
	cancel  context.CancelFunc
	done    chan struct{}
	sources []schema.SearchResult
}

// Fragments returns the channel of fragments. It is closed when the answer ends.
func (s *AnswerStream) Fragments() <-chan string { return s.ch }

// Sources returns the chunks the answer was grounded on, best match first.
func (s *AnswerStream) Sources() []schema.SearchResult { return s.sources }

// Close stops generation and waits for the producer to release the upstream stream.
// Stopping early is not an error. Close may be called more than once.
func (s *AnswerStream) Close() {
	s.cancel()
	<-s.done
}

// Collect reads the whole answer. If ctx ends first the stream is closed and ctx.Err returned.
func (s *AnswerStream) Collect(ctx context.Context) (string, error) {
	var sb strings.Builder
	for {
		select {
		case fragment, ok := <-s.ch:
			if !ok {
				return sb.String(), nil
			}
			sb.WriteString(fragment)
		case <-ctx.Done():
			s.Close()
			return sb.String(), ctx.Err()
		}
	}
}
