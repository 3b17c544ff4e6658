package channel

import (
	"sync"

	"github.com/jason-s-yu/cardlink/internal/models"
)

// OutboundQueue is an unbounded FIFO of envelopes waiting to be written to a
// stream. Producers never block. The consumer is woken through Ready.
type OutboundQueue struct {
	mu     sync.Mutex
	items  []models.Envelope
	ready  chan struct{}
	closed bool
}

func NewOutboundQueue() *OutboundQueue {
	return &OutboundQueue{ready: make(chan struct{}, 1)}
}

// Enqueue appends env. It returns false once the queue has been closed.
func (q *OutboundQueue) Enqueue(env models.Envelope) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest envelope, if any.
func (q *OutboundQueue) TryDequeue() (models.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) == 0 {
		return models.Envelope{}, false
	}
	env := q.items[0]
	q.items[0] = models.Envelope{}
	q.items = q.items[1:]
	return env, true
}

// Ready fires after an Enqueue. A single signal may stand for many items.
func (q *OutboundQueue) Ready() <-chan struct{} {
	return q.ready
}

func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues and drops whatever is still pending. It
// returns the number of dropped envelopes and is safe to call repeatedly.
func (q *OutboundQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}
	q.closed = true
	dropped := len(q.items)
	q.items = nil
	return dropped
}

func (q *OutboundQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
