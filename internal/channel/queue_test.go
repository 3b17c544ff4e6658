package channel

import (
	"sync"
	"testing"

	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, playerID int) models.Envelope {
	t.Helper()
	env, err := models.NewEnvelope(models.MsgInGame, true, 1, playerID, models.GameDataNone, nil)
	require.NoError(t, err)
	return env
}

func playerOf(t *testing.T, env models.Envelope) int {
	t.Helper()
	gd, ok, err := env.GameData()
	require.NoError(t, err)
	require.True(t, ok)
	return gd.PlayerID
}

func TestQueueFIFO(t *testing.T) {
	q := NewOutboundQueue()
	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(envelope(t, i)))
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		env, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, playerOf(t, env))
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestQueueReadySignal(t *testing.T) {
	q := NewOutboundQueue()
	select {
	case <-q.Ready():
		t.Fatal("ready before enqueue")
	default:
	}

	q.Enqueue(envelope(t, 1))
	q.Enqueue(envelope(t, 2))
	select {
	case <-q.Ready():
	default:
		t.Fatal("no ready signal after enqueue")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 200
	q := NewOutboundQueue()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				env, _ := models.NewEnvelope(models.MsgInGame, true, p, i, models.GameDataNone, nil)
				q.Enqueue(env)
			}
		}(p)
	}
	wg.Wait()
	require.Equal(t, producers*perProducer, q.Len())

	// each producer's messages come out in its own order
	last := make(map[int]int)
	for {
		env, ok := q.TryDequeue()
		if !ok {
			break
		}
		gd, _, err := env.GameData()
		require.NoError(t, err)
		prev, seen := last[gd.GameID]
		if seen {
			assert.Greater(t, gd.PlayerID, prev)
		}
		last[gd.GameID] = gd.PlayerID
	}
	assert.Len(t, last, producers)
}

func TestQueueClose(t *testing.T) {
	q := NewOutboundQueue()
	q.Enqueue(envelope(t, 1))
	q.Enqueue(envelope(t, 2))

	assert.Equal(t, 2, q.Close())
	assert.Equal(t, 0, q.Close())
	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(envelope(t, 3)))
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}
