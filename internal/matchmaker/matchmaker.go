// Package matchmaker pairs queued sessions into matches on a fixed period and
// reaps the matches that have finished.
package matchmaker

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jason-s-yu/cardlink/internal/match"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	FirstGameID       = 10000
	DefaultInterval   = 7 * time.Second
	DefaultMaxPerTick = 5
)

type Config struct {
	Interval   time.Duration
	MaxPerTick int
	Match      match.Config
	Logger     *logrus.Logger
}

// Matchmaker owns the set of live matches.
type Matchmaker struct {
	registry   *session.Registry
	interval   time.Duration
	maxPerTick int
	matchCfg   match.Config
	log        *logrus.Logger

	mu      sync.RWMutex
	matches map[int]*match.Match
	nextID  int
}

func New(registry *session.Registry, cfg Config) *Matchmaker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = DefaultMaxPerTick
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.Match.Logger == nil {
		cfg.Match.Logger = logger
	}
	return &Matchmaker{
		registry:   registry,
		interval:   cfg.Interval,
		maxPerTick: cfg.MaxPerTick,
		matchCfg:   cfg.Match,
		log:        logger,
		matches:    make(map[int]*match.Match),
		nextID:     FirstGameID,
	}
}

// Run ticks until ctx is done.
func (mm *Matchmaker) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.log.Infof("matchmaker started (every %v)", mm.interval)
	for {
		select {
		case <-ctx.Done():
			mm.log.Info("matchmaker stopped")
			mm.stopAll("server shutting down")
			return nil
		case <-ticker.C:
			mm.Tick()
		}
	}
}

// Tick reaps finished matches, then pairs queued sessions in the order they
// queued. It returns the matches created by this tick.
func (mm *Matchmaker) Tick() []*match.Match {
	mm.reap()
	return mm.pair()
}

func (mm *Matchmaker) reap() {
	for _, m := range mm.Matches() {
		if !reapable(m) {
			continue
		}
		mm.mu.Lock()
		delete(mm.matches, m.GameID)
		mm.mu.Unlock()

		states := m.FinalStates()
		mm.log.WithField("game", m.GameID).Infof("reaped: %s %s, %s %s",
			m.Player1.AccountName, states[0], m.Player2.AccountName, states[1])
		if mm.matchCfg.Observer != nil {
			ev := models.NewMatchEvent(models.MatchEventReaped, m.GameID,
				[2]string{m.Player1.AccountName, m.Player2.AccountName})
			ev.PlayStates = [2]string{states[0].String(), states[1].String()}
			mm.matchCfg.Observer.MatchEvent(ev)
		}
	}
}

// reapable reports whether m has stopped. Stop releases both seats itself,
// so a seat may already be playing its next match.
func reapable(m *match.Match) bool {
	return m.IsFinished()
}

func (mm *Matchmaker) pair() []*match.Match {
	queued := mm.registry.Queued()
	var created []*match.Match

	for len(queued) >= 2 && len(created) < mm.maxPerTick {
		p1, p2 := queued[0], queued[1]
		queued = queued[2:]

		if !p1.Transition(models.UserInvited, models.UserQueued) {
			// p1 left the queue since the snapshot; p2 may still pair next.
			queued = append([]*session.Session{p2}, queued...)
			continue
		}
		if !p2.Transition(models.UserInvited, models.UserQueued) {
			p1.Transition(models.UserQueued, models.UserInvited)
			queued = append([]*session.Session{p1}, queued...)
			continue
		}

		mm.mu.Lock()
		gameID := mm.nextID
		mm.nextID++
		m := match.New(gameID, p1, p2, mm.matchCfg)
		mm.matches[gameID] = m
		mm.mu.Unlock()

		mm.log.WithField("game", gameID).Infof("matched %s with %s", p1.AccountName, p2.AccountName)
		m.Initialize()
		// a seat torn down before it was seated never reaches SessionClosed
		if p1.Context().Err() != nil || p2.Context().Err() != nil {
			m.Stop("player disconnected")
		}
		created = append(created, m)
	}
	return created
}

// Route delivers one Invitation or InGame envelope from s to its match.
// Messages for a game other than the session's current one are ignored. A
// message speaking for a seat other than the sender's stops the match.
func (mm *Matchmaker) Route(s *session.Session, env models.Envelope) error {
	gd, ok, err := env.GameData()
	if err != nil {
		return err
	}
	if !ok {
		mm.log.WithField("account", s.AccountName).Debugf("empty %s message ignored", env.MessageType)
		return nil
	}
	if gd.GameID != s.GameID() {
		mm.log.WithField("account", s.AccountName).Warnf("stale game data for game %d, current %d", gd.GameID, s.GameID())
		return nil
	}
	m, found := mm.Match(gd.GameID)
	if !found {
		mm.log.WithField("account", s.AccountName).Warnf("no live match %d", gd.GameID)
		return nil
	}
	if seat := s.PlayerID(); gd.PlayerID != seat {
		err := fmt.Errorf("%w: %s seated as player %d sent data for player %d",
			match.ErrProtocolViolation, s.AccountName, seat, gd.PlayerID)
		mm.log.WithFields(logrus.Fields{"account": s.AccountName, "game": gd.GameID}).Warn(err)
		m.Stop(err.Error())
		return nil
	}

	switch env.MessageType {
	case models.MsgInvitation:
		err = m.InvitationReply(gd.PlayerID, env.Accepted)
	case models.MsgInGame:
		err = m.ProcessGameData(gd)
	default:
		return nil
	}
	if err != nil {
		mm.log.WithFields(logrus.Fields{"account": s.AccountName, "game": gd.GameID}).Warn(err)
	}
	return nil
}

// SessionClosed stops the match s is seated in, if any.
func (mm *Matchmaker) SessionClosed(s *session.Session) {
	m, ok := mm.Match(s.GameID())
	if !ok {
		return
	}
	seats := m.Seats()
	if seats[0] != s && seats[1] != s {
		return
	}
	m.Stop("player disconnected")
}

// Match looks up a live match.
func (mm *Matchmaker) Match(gameID int) (*match.Match, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	m, ok := mm.matches[gameID]
	return m, ok
}

// Matches returns a snapshot of the live matches ordered by game id.
func (mm *Matchmaker) Matches() []*match.Match {
	mm.mu.RLock()
	out := make([]*match.Match, 0, len(mm.matches))
	for _, m := range mm.matches {
		out = append(out, m)
	}
	mm.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

func (mm *Matchmaker) stopAll(reason string) {
	for _, m := range mm.Matches() {
		m.Stop(reason)
	}
}
