package matchmaker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/cardlink/internal/engine/duel"
	"github.com/jason-s-yu/cardlink/internal/match"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (r *recorder) MatchEvent(ev models.MatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ models.MatchEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func setup(t *testing.T, cfg Config) (*session.Registry, *Matchmaker, *recorder) {
	t.Helper()
	registry := session.NewRegistry(session.Config{})
	rec := &recorder{}
	cfg.Match.Factory = duel.Factory
	cfg.Match.SkipMulligan = true
	cfg.Match.Observer = rec
	return registry, New(registry, cfg), rec
}

func queue(t *testing.T, r *session.Registry, names ...string) []*session.Session {
	t.Helper()
	var out []*session.Session
	for _, name := range names {
		s, err := r.Authenticate(context.Background(), name, "", name)
		require.NoError(t, err)
		require.NoError(t, r.MarkRegistered(s))
		require.NoError(t, r.MarkQueued(s, models.DeckRandom, ""))
		out = append(out, s)
	}
	return out
}

func players(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("player%02d", i)
	}
	return names
}

func envelope(t *testing.T, msgType models.MsgType, accepted bool, gameID, playerID int) models.Envelope {
	t.Helper()
	env, err := models.NewEnvelope(msgType, accepted, gameID, playerID, models.GameDataNone, nil)
	require.NoError(t, err)
	return env
}

func TestTickPairsInQueueOrder(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, players(5)...)

	created := mm.Tick()
	require.Len(t, created, 2)

	assert.Equal(t, FirstGameID, created[0].GameID)
	assert.Same(t, s[0], created[0].Player1)
	assert.Same(t, s[1], created[0].Player2)
	assert.Equal(t, FirstGameID+1, created[1].GameID)
	assert.Same(t, s[2], created[1].Player1)
	assert.Same(t, s[3], created[1].Player2)

	for _, seated := range s[:4] {
		assert.Equal(t, models.UserInvited, seated.State())
		assert.Equal(t, models.PlayerInvitation, seated.PlayerState())
		assert.Equal(t, 1, seated.Outbound.Len())
	}
	assert.Equal(t, models.UserQueued, s[4].State())
	assert.Equal(t, 1, s[0].PlayerID())
	assert.Equal(t, 2, s[1].PlayerID())
	assert.Len(t, mm.Matches(), 2)
}

func TestTickRespectsMaxPerTick(t *testing.T) {
	r, mm, _ := setup(t, Config{MaxPerTick: 2})
	queue(t, r, players(8)...)

	assert.Len(t, mm.Tick(), 2)
	assert.Len(t, r.Queued(), 4)
	assert.Len(t, mm.Tick(), 2)
	assert.Empty(t, r.Queued())
	assert.Empty(t, mm.Tick())
}

func TestTickSkipsSessionsThatLeftTheQueue(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob", "carol")
	r.Remove(s[0])

	created := mm.Tick()
	require.Len(t, created, 1)
	assert.Same(t, s[1], created[0].Player1)
	assert.Same(t, s[2], created[0].Player2)
}

func TestRouteStartsAndReapsAMatch(t *testing.T) {
	r, mm, rec := setup(t, Config{})
	s := queue(t, r, "alice", "bob")
	m := mm.Tick()[0]

	require.NoError(t, mm.Route(s[0], envelope(t, models.MsgInvitation, true, m.GameID, 1)))
	require.NoError(t, mm.Route(s[1], envelope(t, models.MsgInvitation, true, m.GameID, 2)))
	assert.Equal(t, match.PhaseInProgress, m.Phase())

	mm.SessionClosed(s[1])
	assert.True(t, m.IsFinished())
	assert.Equal(t, "player disconnected", m.StopReason())

	mm.Tick()
	_, ok := mm.Match(m.GameID)
	assert.False(t, ok)
	assert.Equal(t, 1, rec.count(models.MatchEventReaped))

	// both players can queue again
	require.NoError(t, r.MarkQueued(s[0], models.DeckRandom, ""))
	require.NoError(t, r.MarkQueued(s[1], models.DeckRandom, ""))
	next := mm.Tick()
	require.Len(t, next, 1)
	assert.Equal(t, m.GameID+1, next[0].GameID)
}

func TestRouteIgnoresStaleAndUnknownGames(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob", "carol")
	m := mm.Tick()[0]

	assert.NoError(t, mm.Route(s[0], envelope(t, models.MsgInvitation, true, m.GameID+7, 1)))
	assert.Equal(t, match.PhaseAwaitingAcceptance, m.Phase())

	// carol is not seated anywhere
	assert.NoError(t, mm.Route(s[2], envelope(t, models.MsgInvitation, true, -1, 1)))

	// an empty envelope is ignored
	assert.NoError(t, mm.Route(s[0], models.Envelope{MessageType: models.MsgInGame, Accepted: true}))

	// a garbled body is reported
	assert.Error(t, mm.Route(s[0], models.Envelope{MessageType: models.MsgInGame, Message: []byte("{")}))
}

func TestRouteDecline(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob")
	m := mm.Tick()[0]

	require.NoError(t, mm.Route(s[0], envelope(t, models.MsgInvitation, false, m.GameID, 1)))
	assert.True(t, m.IsFinished())
	assert.Equal(t, models.UserRegistered, s[0].State())
	assert.Equal(t, models.UserRegistered, s[1].State())
}

func TestRouteRejectsInvitationForTheOtherSeat(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob")
	m := mm.Tick()[0]
	require.Equal(t, 1, s[0].PlayerID())

	// alice answers bob's invitation
	require.NoError(t, mm.Route(s[0], envelope(t, models.MsgInvitation, true, m.GameID, 2)))
	assert.True(t, m.IsFinished())
	assert.Contains(t, m.StopReason(), match.ErrProtocolViolation.Error())
	assert.Equal(t, models.UserRegistered, s[0].State())
	assert.Equal(t, models.UserRegistered, s[1].State())
}

func TestRouteRejectsGameDataForTheOtherSeat(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob")
	m := mm.Tick()[0]
	require.NoError(t, mm.Route(s[0], envelope(t, models.MsgInvitation, true, m.GameID, 1)))
	require.NoError(t, mm.Route(s[1], envelope(t, models.MsgInvitation, true, m.GameID, 2)))
	require.Equal(t, match.PhaseInProgress, m.Phase())
	for s[1].Outbound.Len() > 0 {
		s[1].Outbound.TryDequeue()
	}

	endTurn := models.PowerOptionChoice{PowerOption: models.PowerOption{OptionType: models.OptionEndTurn}}
	env, err := models.NewEnvelope(models.MsgInGame, true, m.GameID, 2, models.GameDataPowerOption, endTurn)
	require.NoError(t, err)
	require.NoError(t, mm.Route(s[0], env))

	assert.True(t, m.IsFinished())
	assert.Contains(t, m.StopReason(), match.ErrProtocolViolation.Error())

	// bob only hears about the end of the match, never an action in his name
	var got []models.GameDataType
	for {
		out, ok := s[1].Outbound.TryDequeue()
		if !ok {
			break
		}
		gd, _, err := out.GameData()
		require.NoError(t, err)
		got = append(got, gd.GameDataType)
	}
	assert.Equal(t, []models.GameDataType{models.GameDataResult}, got)
}

func TestTickStopsMatchWithATornDownSeat(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob")
	// alice's channel went away while she was still queued
	s[0].Cancel()

	created := mm.Tick()
	require.Len(t, created, 1)
	m := created[0]
	assert.True(t, m.IsFinished())
	assert.Equal(t, "player disconnected", m.StopReason())
	assert.Equal(t, models.UserRegistered, s[1].State())

	mm.Tick()
	_, ok := mm.Match(m.GameID)
	assert.False(t, ok)
	require.NoError(t, r.MarkQueued(s[1], models.DeckRandom, ""))
}

func TestSessionClosedIgnoresUnseated(t *testing.T) {
	r, mm, _ := setup(t, Config{})
	s := queue(t, r, "alice", "bob", "carol")
	m := mm.Tick()[0]

	mm.SessionClosed(s[2])
	assert.False(t, m.IsFinished())
}

func TestRunStopsMatchesOnShutdown(t *testing.T) {
	r, mm, _ := setup(t, Config{Interval: 5 * time.Millisecond})
	queue(t, r, "alice", "bob")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mm.Run(ctx) }()

	require.Eventually(t, func() bool { return len(mm.Matches()) == 1 }, time.Second, 5*time.Millisecond)
	m := mm.Matches()[0]

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, m.IsFinished())
	assert.Equal(t, "server shutting down", m.StopReason())
}
