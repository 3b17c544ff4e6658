// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"net/http"

	"github.com/jason-s-yu/cardlink/internal/channel"
	"github.com/jason-s-yu/cardlink/internal/middleware"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
	"github.com/sirupsen/logrus"
)

// ChannelHandler upgrades to the session's duplex game channel and pumps it
// until either side closes. At most one channel per session.
func (s *Server) ChannelHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.AttachChannel() {
		http.Error(w, "channel already open for this session", http.StatusConflict)
		return
	}

	stream, err := channel.Accept(w, r)
	if err != nil {
		sess.DetachChannel()
		s.Logger.Warnf("WebSocket accept error for %s: %v", sess.AccountName, err)
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	log := s.Logger.WithFields(logrus.Fields{"account": sess.AccountName, "session": sess.ID})
	pump := channel.NewPump(stream, sess.Outbound, s.channelHandler(sess), channel.Options{
		WriterIdle: s.WriterIdle,
		Logger:     log,
		OnClose: func(err error) {
			sess.DetachChannel()
			s.teardown(sess, "channel closed")
		},
	})
	err = pump.Run(sess.Context())
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
}

// channelHandler dispatches inbound envelopes of one session.
func (s *Server) channelHandler(sess *session.Session) channel.HandlerFunc {
	return func(ctx context.Context, env models.Envelope) error {
		switch env.MessageType {
		case models.MsgInitialisation:
			err := s.Registry.MarkRegistered(sess)
			if err != nil {
				s.Logger.WithField("account", sess.AccountName).Warn(err)
			}
			ack, buildErr := models.NewEnvelope(models.MsgInitialisation, err == nil, sess.GameID(), sess.PlayerID(), models.GameDataNone, nil)
			if buildErr != nil {
				return buildErr
			}
			sess.Send(ack)
			return nil

		case models.MsgInvitation, models.MsgInGame:
			return s.Matchmaker.Route(sess, env)

		default:
			s.Logger.WithField("account", sess.AccountName).Warnf("unexpected message type %s", env.MessageType)
			return nil
		}
	}
}
