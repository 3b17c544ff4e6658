// Package channel moves envelopes between a duplex stream and the protocol
// logic of one connection.
package channel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultWriterIdle bounds how long the writer sleeps between queue polls
// when no enqueue signal arrives.
const DefaultWriterIdle = 5 * time.Millisecond

// Stream is a bidirectional, message-framed transport.
type Stream interface {
	Recv(ctx context.Context) (models.Envelope, error)
	Send(ctx context.Context, env models.Envelope) error
	Close(reason string) error
}

// HandlerFunc processes one inbound envelope. It runs on the reader
// goroutine; returning an error tears the connection down.
type HandlerFunc func(ctx context.Context, env models.Envelope) error

// ErrClosed is reported by Err after a clean teardown.
var ErrClosed = errors.New("channel closed")

type Options struct {
	// WriterIdle is the longest the writer waits before re-polling an empty
	// queue. Zero selects DefaultWriterIdle.
	WriterIdle time.Duration
	Logger     logrus.FieldLogger
	// OnClose runs exactly once, after both loops have stopped.
	OnClose func(err error)
}

// Pump owns the reader and writer loops of one connection.
type Pump struct {
	ID uuid.UUID

	stream Stream
	queue  *OutboundQueue
	handle HandlerFunc
	idle   time.Duration
	log    logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	onClose   func(error)
	done      chan struct{}
}

func NewPump(stream Stream, queue *OutboundQueue, handle HandlerFunc, opts Options) *Pump {
	id, _ := uuid.NewRandom()
	idle := opts.WriterIdle
	if idle <= 0 {
		idle = DefaultWriterIdle
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pump{
		ID:      id,
		ctx:     ctx,
		cancel:  cancel,
		stream:  stream,
		queue:   queue,
		handle:  handle,
		idle:    idle,
		log:     logger.WithField("channel", id.String()),
		onClose: opts.OnClose,
		done:    make(chan struct{}),
	}
}

// Run starts the writer, then reads until the stream ends, ctx is cancelled
// or Close is called. It returns after both loops have exited.
func (p *Pump) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, p.Close)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop()
	}()

	p.readLoop()
	p.Close()
	wg.Wait()

	err := p.Err()
	if p.onClose != nil {
		p.onClose(err)
	}
	close(p.done)
	return err
}

// Close cancels both loops and drops any queued envelopes. Safe to call from
// any goroutine, any number of times.
func (p *Pump) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if n := p.queue.Close(); n > 0 {
			p.log.Debugf("dropped %d queued messages on close", n)
		}
		if err := p.stream.Close("channel closed"); err != nil {
			p.log.Debugf("stream close: %v", err)
		}
		p.setErr(ErrClosed)
	})
}

// Done is closed once Run has returned.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// Err is the first error that stopped the pump, or ErrClosed.
func (p *Pump) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Pump) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Pump) fail(err error) {
	p.setErr(err)
	p.Close()
}

func (p *Pump) readLoop() {
	for {
		env, err := p.stream.Recv(p.ctx)
		if err != nil {
			if p.ctx.Err() != nil || IsNormalClosure(err) {
				p.log.Debugf("reader stopped: %v", err)
				p.setErr(ErrClosed)
			} else {
				p.log.Warnf("reader error: %v", err)
				p.setErr(err)
			}
			return
		}
		if err := p.handle(p.ctx, env); err != nil {
			p.log.Warnf("dropping connection after %s message: %v", env.MessageType, err)
			p.setErr(err)
			return
		}
	}
}

func (p *Pump) writeLoop() {
	timer := time.NewTimer(p.idle)
	defer timer.Stop()

	for {
		if p.ctx.Err() != nil {
			return
		}
		if env, ok := p.queue.TryDequeue(); ok {
			if p.ctx.Err() != nil {
				return
			}
			if err := p.stream.Send(p.ctx, env); err != nil {
				if p.ctx.Err() == nil {
					p.log.Warnf("writer error: %v", err)
					p.fail(err)
				}
				return
			}
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.idle)
		select {
		case <-p.ctx.Done():
			return
		case <-p.queue.Ready():
		case <-timer.C:
		}
	}
}
