// Package match drives one game between two sessions: invitations, the
// rules engine, and the history/options broadcast to both seats.
package match

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/jason-s-yu/cardlink/internal/engine"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
	"github.com/sirupsen/logrus"
)

var (
	// ErrProtocolViolation marks input that ends the match.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrEngine marks a rules-engine failure that ends the match.
	ErrEngine = errors.New("engine error")
	// ErrStale marks input that no longer applies and was ignored.
	ErrStale = errors.New("stale game data")
)

type Phase int

const (
	PhaseCreated Phase = iota
	PhaseAwaitingAcceptance
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "Created"
	case PhaseAwaitingAcceptance:
		return "AwaitingAcceptance"
	case PhaseInProgress:
		return "InProgress"
	case PhaseFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Observer receives lifecycle events. It is called with the match lock held
// and must not block.
type Observer interface {
	MatchEvent(ev models.MatchEvent)
}

type Config struct {
	Factory      engine.Factory
	SkipMulligan bool
	Observer     Observer
	Logger       *logrus.Logger
	// Seed supplies the engine's random seed. Defaults to math/rand.
	Seed func() int64
}

// Match is the protocol engine of one game. All engine access happens under
// mu.
type Match struct {
	GameID  int
	Player1 *session.Session
	Player2 *session.Session

	cfg Config
	log *logrus.Entry

	mu         sync.Mutex
	phase      Phase
	ready      [2]bool
	// pending is the prompt kind each seat still owes an answer to.
	pending    [2]models.GameDataType
	game       engine.Game
	gameConfig models.GameConfigInfo
	finalState [2]engine.PlayState
	stopReason string
}

// New seats p1 and p2 as players 1 and 2 of game gameID.
func New(gameID int, p1, p2 *session.Session, cfg Config) *Match {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.Seed == nil {
		cfg.Seed = rand.Int63
	}
	p1.Seat(gameID, 1)
	p2.Seat(gameID, 2)
	return &Match{
		GameID:  gameID,
		Player1: p1,
		Player2: p2,
		cfg:     cfg,
		log:     logger.WithField("game", gameID),
	}
}

func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// IsFinished reports whether the match has stopped and both seats quit.
func (m *Match) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseFinished
}

// FinalStates returns each seat's engine play state as of Stop.
func (m *Match) FinalStates() [2]engine.PlayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalState
}

func (m *Match) accounts() [2]string {
	return [2]string{m.Player1.AccountName, m.Player2.AccountName}
}

func (m *Match) seat(playerID int) (*session.Session, int, bool) {
	switch playerID {
	case 1:
		return m.Player1, 0, true
	case 2:
		return m.Player2, 1, true
	}
	return nil, -1, false
}

func (m *Match) notify(ev models.MatchEvent) {
	if m.cfg.Observer != nil {
		m.cfg.Observer.MatchEvent(ev)
	}
}

// send queues a message for s, addressed from playerID.
func (m *Match) send(s *session.Session, playerID int, msgType models.MsgType, accepted bool, kind models.GameDataType, payload interface{}) {
	env, err := models.NewEnvelope(msgType, accepted, m.GameID, playerID, kind, payload)
	if err != nil {
		m.log.Errorf("failed to build %s for %s: %v", kind, s.AccountName, err)
		return
	}
	if !s.Send(env) {
		m.log.Debugf("dropped %s for %s, channel closed", kind, s.AccountName)
	}
}

// Initialize invites both players.
func (m *Match) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseCreated {
		return
	}
	m.phase = PhaseAwaitingAcceptance
	for i, s := range []*session.Session{m.Player1, m.Player2} {
		s.SetPlayerState(models.PlayerInvitation)
		m.send(s, i+1, models.MsgInvitation, true, models.GameDataNone, nil)
	}
	m.log.Infof("invited %s and %s", m.Player1.AccountName, m.Player2.AccountName)
	m.notify(models.NewMatchEvent(models.MatchEventCreated, m.GameID, m.accounts()))
}
