// Package session tracks authenticated connections and their lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAccount         = errors.New("invalid account name")
	ErrDuplicateSamePeer      = errors.New("duplicate same-peer registration")
	ErrDuplicateDifferentPeer = errors.New("duplicate different-peer registration")
	ErrBadCredentials         = errors.New("bad credentials")
	ErrInvalidState           = errors.New("invalid session state")
)

const (
	// FirstSessionID is the id handed to the first authenticated session.
	FirstSessionID = 10000

	DefaultMinAccountNameLength = 3
)

// PasswordVerifier checks account credentials against a backing store.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, accountName, password string) (bool, error)
}

type Config struct {
	MinAccountNameLength int
	// Verifier is optional; without one any password is accepted.
	Verifier PasswordVerifier
	Logger   *logrus.Logger
}

// Registry owns every live Session, indexed by token and by account name.
type Registry struct {
	minNameLen int
	verifier   PasswordVerifier
	log        *logrus.Logger

	mu        sync.RWMutex
	byToken   map[string]*Session
	byAccount map[string]*Session
	nextID    int
	queueSeq  uint64
}

func NewRegistry(cfg Config) *Registry {
	minLen := cfg.MinAccountNameLength
	if minLen <= 0 {
		minLen = DefaultMinAccountNameLength
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Registry{
		minNameLen: minLen,
		verifier:   cfg.Verifier,
		log:        logger,
		byToken:    make(map[string]*Session),
		byAccount:  make(map[string]*Session),
		nextID:     FirstSessionID,
	}
}

// Authenticate registers a new session for accountName connecting from peer.
// At most one session per account exists at a time.
func (r *Registry) Authenticate(ctx context.Context, accountName, password, peer string) (*Session, error) {
	if len(accountName) < r.minNameLen {
		r.log.Warnf("%q is invalid!", accountName)
		return nil, ErrInvalidAccount
	}

	if r.verifier != nil {
		ok, err := r.verifier.VerifyPassword(ctx, accountName, password)
		if err != nil {
			return nil, fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			r.log.WithField("account", accountName).Warn("rejected credentials")
			return nil, ErrBadCredentials
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byAccount[accountName]; ok {
		if existing.Peer == peer {
			r.log.WithField("account", accountName).Warn("already registered, with the same peer")
			return nil, ErrDuplicateSamePeer
		}
		r.log.WithField("account", accountName).Warn("already registered, with a different peer")
		return nil, ErrDuplicateDifferentPeer
	}

	id := r.nextID
	r.nextID++
	s := newSession(id, ComputeToken(id, accountName, peer), accountName, peer)
	r.byToken[s.Token] = s
	r.byAccount[accountName] = s

	r.log.WithFields(logrus.Fields{"account": accountName, "session": id}).Info("registered user")
	return s, nil
}

// Lookup resolves a session token.
func (r *Registry) Lookup(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byToken[token]
	return s, ok
}

// MarkRegistered moves a freshly connected session to Registered once its
// channel has been initialised. Sessions returning from a match are already
// Registered and stay so.
func (r *Registry) MarkRegistered(s *Session) error {
	if s.Transition(models.UserRegistered, models.UserConnected, models.UserRegistered) {
		return nil
	}
	return fmt.Errorf("%w: cannot register from %s", ErrInvalidState, s.State())
}

// MarkQueued puts a Registered session in the matchmaking queue.
func (r *Registry) MarkQueued(s *Session, deckType models.DeckType, deckData string) error {
	r.mu.Lock()
	r.queueSeq++
	seq := r.queueSeq
	r.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.UserRegistered {
		return fmt.Errorf("%w: cannot queue from %s", ErrInvalidState, s.state)
	}
	s.state = models.UserQueued
	s.deckType = deckType
	s.deckData = deckData
	s.queueSeq = seq
	return nil
}

// Remove drops s from the registry and cancels it. It reports whether s was
// still registered.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	cur, ok := r.byToken[s.Token]
	if ok && cur == s {
		delete(r.byToken, s.Token)
		delete(r.byAccount, s.AccountName)
	}
	r.mu.Unlock()

	s.Cancel()
	s.SetState(models.UserNone)
	if ok && cur == s {
		r.log.WithFields(logrus.Fields{"account": s.AccountName, "session": s.ID}).Info("removed user")
		return true
	}
	return false
}

// Sessions returns a snapshot of every registered session ordered by id.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.byToken))
	for _, s := range r.byToken {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Queued returns a snapshot of the Queued sessions in the order they queued.
func (r *Registry) Queued() []*Session {
	type entry struct {
		s   *Session
		seq uint64
	}
	var queued []entry
	for _, s := range r.Sessions() {
		s.mu.Lock()
		if s.state == models.UserQueued {
			queued = append(queued, entry{s, s.queueSeq})
		}
		s.mu.Unlock()
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].seq < queued[j].seq })

	out := make([]*Session, len(queued))
	for i, e := range queued {
		out[i] = e.s
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}
