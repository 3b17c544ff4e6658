package handlers

import (
	"net/http"

	"github.com/jason-s-yu/cardlink/internal/models"
)

// QueueHandler enters the caller into matchmaking.
func (s *Server) QueueHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req models.QueueRequest
	if err := s.decodeRequest(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ServerReply{RequestMessage: "invalid request payload"})
		return
	}
	if req.GameType != models.GameNormal {
		writeJSON(w, http.StatusOK, models.ServerReply{RequestMessage: "unsupported game type"})
		return
	}

	if err := s.Registry.MarkQueued(sess, req.DeckType, req.DeckData); err != nil {
		s.Logger.WithField("account", sess.AccountName).Warn(err)
		writeJSON(w, http.StatusOK, models.ServerReply{RequestMessage: err.Error()})
		return
	}
	s.Logger.WithField("account", sess.AccountName).Info("queued for a game")
	writeJSON(w, http.StatusOK, models.ServerReply{RequestState: true, RequestMessage: "Queued"})
}

// GameStateHandler describes the caller's current match.
func (s *Server) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	m, ok := s.Matchmaker.Match(sess.GameID())
	if !ok {
		writeJSON(w, http.StatusOK, models.MatchStateReply{GameID: sess.GameID(), State: "None"})
		return
	}
	reply := m.Summary()
	if s.Accounts != nil {
		for i, p := range reply.Players {
			a, err := s.Accounts.GetAccount(r.Context(), p.AccountName)
			if err != nil {
				s.Logger.WithField("account", p.AccountName).Debugf("no rating: %v", err)
				continue
			}
			reply.Players[i].Rating = a.Rating.Value
		}
	}
	writeJSON(w, http.StatusOK, reply)
}
