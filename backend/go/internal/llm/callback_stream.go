package llm

import (
	"context"
	"io"
	"sync"
)

type streamChunk struct {
	text string
	err  error
}

// callbackStream 把回调式的流式接口转换成 ChatStream。
// run 在独立的 goroutine 中执行，每个片段通过 emit 交给消费者。
type callbackStream struct {
	ch     chan streamChunk
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newCallbackStream(ctx context.Context, run func(ctx context.Context, emit func(string) error) error) *callbackStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &callbackStream{
		ch:     make(chan streamChunk),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)

		err := run(ctx, func(text string) error {
			select {
			case s.ch <- streamChunk{text: text}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			select {
			case s.ch <- streamChunk{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return s
}

func (s *callbackStream) Recv() (string, error) {
	c, ok := <-s.ch
	if !ok {
		return "", io.EOF
	}
	return c.text, c.err
}

// Close 取消上游请求并等待 goroutine 退出。
func (s *callbackStream) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
