// Package cache publishes match lifecycle events to a Redis list and reads
// them back for the historian.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list holding match events.
const DefaultQueueName = "cardlink_match_events"

// Pusher is the part of a Redis client the feed writes with.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Popper is the part of a Redis client the historian reads with.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Connect creates a client for addr and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// PublishMatchEvent serializes ev and appends it to queue.
func PublishMatchEvent(ctx context.Context, rdb Pusher, queue string, ev models.MatchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchEvent: %w", err)
	}
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// PopMatchEvent waits up to timeout for the next event on queue. It returns
// nil, nil when the wait timed out.
func PopMatchEvent(ctx context.Context, rdb Popper, queue string, timeout time.Duration) (*models.MatchEvent, error) {
	res, err := rdb.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", queue, err)
	}
	// res[0] is the list name, res[1] the payload
	if len(res) < 2 {
		return nil, nil
	}
	var ev models.MatchEvent
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return nil, fmt.Errorf("invalid match event: %w", err)
	}
	return &ev, nil
}

// EventFeed forwards match events to Redis from its own goroutine so that
// callers holding a match lock never wait on the network.
type EventFeed struct {
	rdb    Pusher
	queue  string
	events chan models.MatchEvent
	log    *logrus.Logger
}

func NewEventFeed(rdb Pusher, queue string, buffer int, logger *logrus.Logger) *EventFeed {
	if queue == "" {
		queue = DefaultQueueName
	}
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &EventFeed{
		rdb:    rdb,
		queue:  queue,
		events: make(chan models.MatchEvent, buffer),
		log:    logger,
	}
}

// MatchEvent queues ev for publishing. Events are dropped while the buffer
// is full.
func (f *EventFeed) MatchEvent(ev models.MatchEvent) {
	select {
	case f.events <- ev:
	default:
		f.log.WithField("game", ev.GameID).Warnf("event feed full, dropped %s", ev.Type)
	}
}

// Run publishes queued events until ctx is done, then flushes what is
// already buffered.
func (f *EventFeed) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-f.events:
			f.publish(ctx, ev)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for {
				select {
				case ev := <-f.events:
					f.publish(flushCtx, ev)
				default:
					return nil
				}
			}
		}
	}
}

func (f *EventFeed) publish(ctx context.Context, ev models.MatchEvent) {
	if err := PublishMatchEvent(ctx, f.rdb, f.queue, ev); err != nil {
		f.log.WithField("game", ev.GameID).Error(err)
	}
}
