package session

import (
	"context"
	"sync"

	"github.com/jason-s-yu/cardlink/internal/channel"
	"github.com/jason-s-yu/cardlink/internal/models"
)

// Session is the server-side record of one authenticated connection. Its
// identity fields are immutable; everything else is guarded by mu.
type Session struct {
	ID          int
	Token       string
	AccountName string
	Peer        string

	// Outbound holds messages waiting for this session's channel writer.
	Outbound *channel.OutboundQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       models.UserState
	gameID      int
	playerID    int
	playerState models.PlayerState
	deckType    models.DeckType
	deckData    string
	queueSeq    uint64
	channelOpen bool
}

func newSession(id int, token, account, peer string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:          id,
		Token:       token,
		AccountName: account,
		Peer:        peer,
		Outbound:    channel.NewOutboundQueue(),
		ctx:         ctx,
		cancel:      cancel,
		state:       models.UserConnected,
		gameID:      -1,
		playerID:    -1,
		deckType:    models.DeckRandom,
	}
}

// Context is cancelled when the session is torn down.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed once the session has been cancelled.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Cancel signals teardown. Idempotent.
func (s *Session) Cancel() { s.cancel() }

func (s *Session) State() models.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session from one of the from states to to. It reports
// false, leaving the state untouched, if the current state is not listed.
func (s *Session) Transition(to models.UserState, from ...models.UserState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range from {
		if s.state == f {
			s.state = to
			return true
		}
	}
	return false
}

// SetState forces the lifecycle state.
func (s *Session) SetState(state models.UserState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Seat records the session's role in a match.
func (s *Session) Seat(gameID, playerID int) {
	s.mu.Lock()
	s.gameID = gameID
	s.playerID = playerID
	s.playerState = models.PlayerNone
	s.mu.Unlock()
}

func (s *Session) GameID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

func (s *Session) PlayerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Session) PlayerState() models.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerState
}

func (s *Session) SetPlayerState(ps models.PlayerState) {
	s.mu.Lock()
	s.playerState = ps
	s.mu.Unlock()
}

// ChannelOpen reports whether a duplex channel is attached.
func (s *Session) ChannelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelOpen
}

// AttachChannel marks a channel as attached. It returns false if one
// already is.
func (s *Session) AttachChannel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelOpen {
		return false
	}
	s.channelOpen = true
	return true
}

func (s *Session) DetachChannel() {
	s.mu.Lock()
	s.channelOpen = false
	s.mu.Unlock()
}

// Info snapshots the session as the UserInfo exchanged with clients.
func (s *Session) Info() models.UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.UserInfo{
		SessionID:   s.ID,
		AccountName: s.AccountName,
		UserState:   s.state,
		GameID:      s.gameID,
		DeckType:    s.deckType,
		DeckData:    s.deckData,
		PlayerState: s.playerState,
		PlayerID:    s.playerID,
	}
}

// Send queues env for delivery. It reports false once the session's channel
// has been torn down.
func (s *Session) Send(env models.Envelope) bool {
	return s.Outbound.Enqueue(env)
}
