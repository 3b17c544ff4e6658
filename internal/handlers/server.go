// internal/handlers/server.go
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/cardlink/internal/auth"
	"github.com/jason-s-yu/cardlink/internal/database"
	"github.com/jason-s-yu/cardlink/internal/matchmaker"
	"github.com/jason-s-yu/cardlink/internal/middleware"
	"github.com/jason-s-yu/cardlink/internal/session"
	"github.com/sirupsen/logrus"
)

// AccountStore looks up stored accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, name string) (*database.Account, error)
}

// Server exposes the registry and matchmaker over HTTP: request/reply
// endpoints plus one WebSocket game channel per session.
type Server struct {
	Registry   *session.Registry
	Matchmaker *matchmaker.Matchmaker
	Signer     *auth.Signer
	Logger     *logrus.Logger
	// WriterIdle tunes the channel writer's idle poll.
	WriterIdle time.Duration
	// Accounts, when set, adds ratings to match state replies.
	Accounts AccountStore

	validate *validator.Validate
}

func NewServer(registry *session.Registry, mm *matchmaker.Matchmaker, signer *auth.Signer, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Server{
		Registry:   registry,
		Matchmaker: mm,
		Signer:     signer,
		Logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ping", s.PingHandler)
	mux.HandleFunc("POST /auth", s.AuthHandler)
	mux.Handle("POST /queue", s.requireSession(s.QueueHandler))
	mux.Handle("POST /disconnect", s.requireSession(s.DisconnectHandler))
	mux.Handle("GET /game/state", s.requireSession(s.GameStateHandler))
	mux.Handle("GET /game/channel", s.requireSession(s.ChannelHandler))
	return middleware.LogMiddleware(s.Logger)(mux)
}

// teardown removes sess and stops its match. Safe to repeat.
func (s *Server) teardown(sess *session.Session, reason string) {
	if s.Registry.Remove(sess) {
		s.Logger.WithFields(logrus.Fields{"account": sess.AccountName, "session": sess.ID}).Infof("session closed: %s", reason)
	}
	s.Matchmaker.SessionClosed(sess)
}
