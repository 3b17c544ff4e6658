package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/cardlink/internal/channel"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
)

type ctxKey struct{}

// sessionFrom returns the session attached by requireSession.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxKey{}).(*session.Session)
	return sess
}

// requireSession resolves the access token header to a live session before
// calling next.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionToken, err := s.Signer.Verify(r.Header.Get(channel.TokenHeader))
		if err != nil {
			s.Logger.WithField("remote", r.RemoteAddr).Debugf("rejected token: %v", err)
			writeJSON(w, http.StatusUnauthorized, models.ServerReply{RequestMessage: "invalid token"})
			return
		}
		sess, ok := s.Registry.Lookup(sessionToken)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, models.ServerReply{RequestMessage: "unknown session"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeRequest reads and validates a JSON body into v.
func (s *Server) decodeRequest(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}
