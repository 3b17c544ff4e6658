package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeStream is an in-memory Stream. Tests push inbound frames into in and
// read what the pump wrote from out.
type pipeStream struct {
	in  chan models.Envelope
	out chan models.Envelope

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	sendErr error
}

func newPipeStream() *pipeStream {
	return &pipeStream{
		in:   make(chan models.Envelope, 16),
		out:  make(chan models.Envelope, 64),
		done: make(chan struct{}),
	}
}

func (s *pipeStream) Recv(ctx context.Context) (models.Envelope, error) {
	select {
	case env := <-s.in:
		return env, nil
	case <-s.done:
		return models.Envelope{}, errors.New("stream closed")
	case <-ctx.Done():
		return models.Envelope{}, ctx.Err()
	}
}

func (s *pipeStream) Send(ctx context.Context, env models.Envelope) error {
	s.mu.Lock()
	err := s.sendErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.out <- env
	return nil
}

func (s *pipeStream) Close(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func waitDone(t *testing.T, p *Pump) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop")
	}
}

func TestPumpDeliversInbound(t *testing.T) {
	stream := newPipeStream()
	got := make(chan models.Envelope, 4)
	p := NewPump(stream, NewOutboundQueue(), func(ctx context.Context, env models.Envelope) error {
		got <- env
		return nil
	}, Options{})
	go p.Run(context.Background())
	defer p.Close()

	stream.in <- envelope(t, 1)
	stream.in <- envelope(t, 2)
	assert.Equal(t, 1, playerOf(t, <-got))
	assert.Equal(t, 2, playerOf(t, <-got))
}

func TestPumpWritesQueueInOrder(t *testing.T) {
	stream := newPipeStream()
	q := NewOutboundQueue()
	p := NewPump(stream, q, func(ctx context.Context, env models.Envelope) error { return nil }, Options{WriterIdle: time.Millisecond})
	go p.Run(context.Background())
	defer p.Close()

	for i := 0; i < 10; i++ {
		q.Enqueue(envelope(t, i))
	}
	for i := 0; i < 10; i++ {
		select {
		case env := <-stream.out:
			assert.Equal(t, i, playerOf(t, env))
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d not written", i)
		}
	}
}

func TestPumpHandlerErrorTearsDown(t *testing.T) {
	stream := newPipeStream()
	boom := errors.New("bad frame")
	var closedWith error
	p := NewPump(stream, NewOutboundQueue(), func(ctx context.Context, env models.Envelope) error {
		return boom
	}, Options{OnClose: func(err error) { closedWith = err }})
	go p.Run(context.Background())

	stream.in <- envelope(t, 1)
	waitDone(t, p)
	assert.ErrorIs(t, p.Err(), boom)
	assert.ErrorIs(t, closedWith, boom)
}

func TestPumpCloseDropsPending(t *testing.T) {
	stream := newPipeStream()
	q := NewOutboundQueue()
	var (
		mu    sync.Mutex
		calls int
	)
	p := NewPump(stream, q, func(ctx context.Context, env models.Envelope) error { return nil }, Options{
		OnClose: func(error) {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	})

	q.Enqueue(envelope(t, 1))
	q.Enqueue(envelope(t, 2))
	p.Close()
	go p.Run(context.Background())
	waitDone(t, p)
	p.Close()

	assert.ErrorIs(t, p.Err(), ErrClosed)
	assert.True(t, q.Closed())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, stream.out)
	assert.False(t, q.Enqueue(envelope(t, 3)))
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestPumpStopsOnContextCancel(t *testing.T) {
	stream := newPipeStream()
	p := NewPump(stream, NewOutboundQueue(), func(ctx context.Context, env models.Envelope) error { return nil }, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	cancel()
	waitDone(t, p)
	assert.ErrorIs(t, p.Err(), ErrClosed)
	stream.mu.Lock()
	assert.True(t, stream.closed)
	stream.mu.Unlock()
}

func TestPumpWriterErrorTearsDown(t *testing.T) {
	stream := newPipeStream()
	boom := errors.New("broken pipe")
	stream.sendErr = boom
	q := NewOutboundQueue()
	p := NewPump(stream, q, func(ctx context.Context, env models.Envelope) error { return nil }, Options{})
	go p.Run(context.Background())

	q.Enqueue(envelope(t, 1))
	waitDone(t, p)
	require.Error(t, p.Err())
	assert.ErrorIs(t, p.Err(), boom)
}
