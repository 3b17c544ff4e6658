// Package historian drains finished-match events from Redis and persists
// them in batches.
package historian

import (
	"context"
	"io"
	"time"

	"github.com/jason-s-yu/cardlink/internal/cache"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/sirupsen/logrus"
)

// Recorder persists a batch of finished matches.
type Recorder interface {
	RecordMatches(ctx context.Context, events []models.MatchEvent) error
}

type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking read so that cancellation and
	// flushes are observed.
	PopTimeout time.Duration
	// MaxPending caps the events held while the store is failing; the
	// oldest are dropped first.
	MaxPending int
	Logger     *logrus.Logger
}

// Historian moves events from a Redis list into a Recorder.
type Historian struct {
	rdb   cache.Popper
	store Recorder
	cfg   Config
	log   *logrus.Logger

	batch     []models.MatchEvent
	lastFlush time.Time
}

func New(rdb cache.Popper, store Recorder, cfg Config) *Historian {
	if cfg.Queue == "" {
		cfg.Queue = cache.DefaultQueueName
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = 50 * cfg.BatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Historian{
		rdb:   rdb,
		store: store,
		cfg:   cfg,
		log:   logger,
		batch: make([]models.MatchEvent, 0, cfg.BatchSize),
	}
}

// Run consumes until ctx is done, flushing whatever is batched on exit.
func (h *Historian) Run(ctx context.Context) error {
	h.log.Info("historian started")
	h.lastFlush = time.Now()
	for {
		if ctx.Err() != nil {
			h.flush(context.Background())
			h.log.Info("historian stopped")
			return nil
		}
		h.Step(ctx)
	}
}

// Step performs one pop and, when due, one flush.
func (h *Historian) Step(ctx context.Context) {
	ev, err := cache.PopMatchEvent(ctx, h.rdb, h.cfg.Queue, h.cfg.PopTimeout)
	switch {
	case err != nil && ctx.Err() == nil:
		h.log.Error(err)
		// a refused connection fails at once; wait as long as a pop would
		select {
		case <-ctx.Done():
		case <-time.After(h.cfg.PopTimeout):
		}
	case ev != nil && ev.Type == models.MatchEventFinished:
		h.batch = append(h.batch, *ev)
	case ev != nil:
		h.log.WithField("game", ev.GameID).Debugf("skipping %s", ev.Type)
	}

	if len(h.batch) >= h.cfg.BatchSize || time.Since(h.lastFlush) >= h.cfg.FlushDelay {
		h.flush(ctx)
	}
}

func (h *Historian) flush(ctx context.Context) {
	h.lastFlush = time.Now()
	if len(h.batch) == 0 {
		return
	}
	if err := h.store.RecordMatches(ctx, h.batch); err != nil {
		// keep the batch for the next flush
		h.log.Errorf("flush %d matches: %v", len(h.batch), err)
		if over := len(h.batch) - h.cfg.MaxPending; over > 0 {
			h.log.Warnf("dropping the %d oldest matches", over)
			h.batch = append(h.batch[:0], h.batch[over:]...)
		}
		return
	}
	h.log.Infof("flushed %d matches", len(h.batch))
	h.batch = h.batch[:0]
}

// Pending is the number of events waiting for the next flush.
func (h *Historian) Pending() int {
	return len(h.batch)
}
