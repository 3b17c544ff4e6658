package handlers

import (
	"errors"
	"net/http"

	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
)

// PingHandler answers the liveness probe.
func (s *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ServerReply{RequestState: true, RequestMessage: "Ping"})
}

// AuthHandler registers a session for the requested account. The caller's
// remote address is the peer the session is bound to.
//
// Request payload:
//
//	{
//	  "accountName": "alice",
//	  "accountPsw": "secret"
//	}
//
// A successful reply carries the session id, the session token and the
// access token to present in the "token" header from then on.
func (s *Server) AuthHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AuthRequest
	if err := s.decodeRequest(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.AuthReply{RequestMessage: "invalid request payload"})
		return
	}

	sess, err := s.Registry.Authenticate(r.Context(), req.AccountName, req.AccountPsw, r.RemoteAddr)
	if err != nil {
		reply := models.AuthReply{RequestMessage: err.Error()}
		switch {
		case errors.Is(err, session.ErrInvalidAccount),
			errors.Is(err, session.ErrDuplicateSamePeer),
			errors.Is(err, session.ErrDuplicateDifferentPeer),
			errors.Is(err, session.ErrBadCredentials):
			writeJSON(w, http.StatusOK, reply)
		default:
			s.Logger.Errorf("failed to authenticate %q: %v", req.AccountName, err)
			reply.RequestMessage = "authentication failed"
			writeJSON(w, http.StatusInternalServerError, reply)
		}
		return
	}

	accessToken, err := s.Signer.Issue(sess.Token)
	if err != nil {
		s.Logger.Errorf("failed to sign token: %v", err)
		s.Registry.Remove(sess)
		writeJSON(w, http.StatusInternalServerError, models.AuthReply{RequestMessage: "authentication failed"})
		return
	}

	writeJSON(w, http.StatusOK, models.AuthReply{
		RequestState:   true,
		RequestMessage: "Connected",
		SessionID:      sess.ID,
		SessionToken:   sess.Token,
		AccessToken:    accessToken,
	})
}

// DisconnectHandler ends the caller's session and any match it is in.
func (s *Server) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, models.ServerReply{RequestState: true, RequestMessage: "Disconnected"})
	s.teardown(sess, "disconnect requested")
}
