package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/cardlink/internal/models"
)

// Subprotocol is negotiated on every game channel.
const Subprotocol = "cardlink"

// TokenHeader carries the access credential out of band.
const TokenHeader = "token"

const writeTimeout = 5 * time.Second

// ErrMalformed marks a frame that is not a valid envelope.
var ErrMalformed = errors.New("malformed envelope")

// WebSocketStream adapts a websocket connection carrying JSON text frames.
type WebSocketStream struct {
	conn *websocket.Conn
}

func NewWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	return &WebSocketStream{conn: conn}
}

// Accept upgrades an HTTP request to a game channel stream.
func Accept(w http.ResponseWriter, r *http.Request) (*WebSocketStream, error) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return nil, err
	}
	if c.Subprotocol() != Subprotocol {
		c.Close(websocket.StatusPolicyViolation, "client must speak the "+Subprotocol+" subprotocol")
		return nil, fmt.Errorf("unsupported subprotocol %q", c.Subprotocol())
	}
	return NewWebSocketStream(c), nil
}

// Dial opens a game channel to url, presenting token.
func Dial(ctx context.Context, url, token string) (*WebSocketStream, error) {
	header := http.Header{}
	header.Set(TokenHeader, token)
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   header,
	})
	if err != nil {
		return nil, err
	}
	return NewWebSocketStream(c), nil
}

func (s *WebSocketStream) Recv(ctx context.Context) (models.Envelope, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return models.Envelope{}, err
		}
		if typ != websocket.MessageText {
			continue
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return models.Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return env, nil
	}
}

func (s *WebSocketStream) Send(ctx context.Context, env models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(writeCtx, websocket.MessageText, data)
}

func (s *WebSocketStream) Close(reason string) error {
	return s.conn.Close(websocket.StatusNormalClosure, reason)
}

// IsNormalClosure reports whether err is the peer closing the stream on
// purpose.
func IsNormalClosure(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
