// Package client is the player side of the protocol: it connects and
// authenticates, keeps the game channel open, and answers the server's
// prompts through a DecisionPolicy.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jason-s-yu/cardlink/internal/channel"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrRejected          = errors.New("request rejected")
	ErrInvalidState      = errors.New("invalid client state")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrPolicy            = errors.New("decision policy gave no reply")
	ErrChannelClosed     = errors.New("game channel closed")
)

type Config struct {
	// ServerURL is the http(s) base URL of the server.
	ServerURL string
	Account   string
	Password  string

	// Policy answers prompts. Defaults to a RandomPolicy.
	Policy   DecisionPolicy
	Observer Observer
	// OnInvitation decides whether to accept an invitation. Nil accepts.
	OnInvitation func(gameID, playerID int) bool
	// LogDir, when set, receives one history file per match.
	LogDir string

	WriterIdle time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Outcome is the result of one finished match.
type Outcome struct {
	GameID    int
	PlayerID  int
	Opponent  string
	Reason    string
	PlayState string
	// Entries is the number of history entries received during the match.
	Entries int
}

// conn is one lifetime of the game channel.
type conn struct {
	pump     *channel.Pump
	queue    *channel.OutboundQueue
	initAck  chan bool
	initOnce sync.Once
}

type Client struct {
	cfg     Config
	http    *http.Client
	log     *logrus.Entry
	results chan Outcome

	mu            sync.Mutex
	state         models.UserState
	sessionID     int
	sessionToken  string
	accessToken   string
	conn          *conn
	disconnecting bool

	// per match, cleared on Invitation and Result
	gameID         int
	playerID       int
	me             *models.UserInfo
	opponent       *models.UserInfo
	history        []models.HistoryEntry
	logLines       []string
	pendingOptions *models.PowerOptions
	pendingChoices *models.PowerChoices
	replyPending   bool
}

func New(cfg Config) *Client {
	if cfg.Policy == nil {
		cfg.Policy = NewRandomPolicy(time.Now().UnixNano())
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Client{
		cfg:      cfg,
		http:     httpClient,
		log:      logger.WithField("account", cfg.Account),
		results:  make(chan Outcome, 16),
		gameID:   -1,
		playerID: -1,
	}
}

func (c *Client) State() models.UserState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) SessionID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Seat returns the game and player id of the current invitation or match.
func (c *Client) Seat() (gameID, playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID, c.playerID
}

// Players returns this client's own info and the opponent's open info, as
// received in the match initialisation.
func (c *Client) Players() (me, opponent *models.UserInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.me != nil {
		m := *c.me
		me = &m
	}
	if c.opponent != nil {
		o := *c.opponent
		opponent = &o
	}
	return me, opponent
}

// History returns the entries received in the current match.
func (c *Client) History() []models.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.HistoryEntry(nil), c.history...)
}

// Results delivers one Outcome per finished match.
func (c *Client) Results() <-chan Outcome {
	return c.results
}

// transition moves to `to` if the current state is one of from (any state
// when from is empty) and notifies the observer.
func (c *Client) transition(to models.UserState, from ...models.UserState) bool {
	c.mu.Lock()
	old := c.state
	ok := len(from) == 0
	for _, f := range from {
		if old == f {
			ok = true
			break
		}
	}
	if ok {
		c.state = to
	}
	c.mu.Unlock()

	if ok && old != to {
		c.log.Debugf("state %s -> %s", old, to)
		if c.cfg.Observer != nil {
			safeNotify(c.log, func() { c.cfg.Observer.StateChanged(old, to) })
		}
	}
	return ok
}

func (c *Client) violation(err error) {
	c.log.Warn(err)
	if c.cfg.Observer != nil {
		safeNotify(c.log, func() { c.cfg.Observer.ProtocolViolation(err) })
	}
}

// Connect probes the server, authenticates and opens the game channel. It
// returns once the server has acknowledged the channel.
func (c *Client) Connect(ctx context.Context) error {
	if s := c.State(); s != models.UserNone && s != models.UserConnected {
		return fmt.Errorf("%w: connect from %s", ErrInvalidState, s)
	}

	var pong models.ServerReply
	if err := c.call(ctx, http.MethodPost, "/ping", "", struct{}{}, &pong); err != nil {
		return err
	}
	if !pong.RequestState {
		return fmt.Errorf("%w: ping refused", ErrUnavailable)
	}
	c.transition(models.UserConnected, models.UserNone)

	var auth models.AuthReply
	req := models.AuthRequest{AccountName: c.cfg.Account, AccountPsw: c.cfg.Password}
	if err := c.call(ctx, http.MethodPost, "/auth", "", req, &auth); err != nil {
		return err
	}
	if !auth.RequestState {
		return fmt.Errorf("%w: %s", ErrRejected, auth.RequestMessage)
	}
	c.mu.Lock()
	c.sessionID = auth.SessionID
	c.sessionToken = auth.SessionToken
	c.accessToken = auth.AccessToken
	c.mu.Unlock()

	if err := c.openChannel(ctx, auth.AccessToken); err != nil {
		return err
	}
	c.transition(models.UserRegistered, models.UserConnected)
	c.log.Infof("registered as session %d", auth.SessionID)
	return nil
}

func (c *Client) openChannel(ctx context.Context, accessToken string) error {
	url, err := channelURL(c.cfg.ServerURL)
	if err != nil {
		return err
	}
	stream, err := channel.Dial(ctx, url, accessToken)
	if err != nil {
		return fmt.Errorf("%w: open channel: %v", ErrUnavailable, err)
	}

	cn := &conn{
		queue:   channel.NewOutboundQueue(),
		initAck: make(chan bool, 1),
	}
	cn.pump = channel.NewPump(stream, cn.queue, c.handler(cn), channel.Options{
		WriterIdle: c.cfg.WriterIdle,
		Logger:     c.log,
		OnClose:    func(err error) { c.closed(cn, err) },
	})
	c.mu.Lock()
	c.conn = cn
	c.mu.Unlock()
	go cn.pump.Run(context.Background())

	init, err := models.NewEnvelope(models.MsgInitialisation, true, 0, 0, models.GameDataNone, nil)
	if err != nil {
		cn.pump.Close()
		return err
	}
	cn.queue.Enqueue(init)

	select {
	case ok := <-cn.initAck:
		if !ok {
			cn.pump.Close()
			return fmt.Errorf("%w: channel initialisation", ErrRejected)
		}
		return nil
	case <-cn.pump.Done():
		return fmt.Errorf("%w: %v", ErrChannelClosed, cn.pump.Err())
	case <-ctx.Done():
		cn.pump.Close()
		return ctx.Err()
	}
}

// Queue asks for a match. An empty deckData lets the server pick the deck.
func (c *Client) Queue(ctx context.Context, gameType models.GameType, deckData string) error {
	c.mu.Lock()
	state, token := c.state, c.accessToken
	c.mu.Unlock()
	if state != models.UserRegistered {
		return fmt.Errorf("%w: queue from %s", ErrInvalidState, state)
	}

	req := models.QueueRequest{GameType: gameType, DeckType: models.DeckRandom, DeckData: deckData}
	if deckData != "" {
		req.DeckType = models.DeckCustom
	}
	var reply models.ServerReply
	if err := c.call(ctx, http.MethodPost, "/queue", token, req, &reply); err != nil {
		return err
	}
	if !reply.RequestState {
		return fmt.Errorf("%w: %s", ErrRejected, reply.RequestMessage)
	}
	// an invitation may already have arrived
	c.transition(models.UserQueued, models.UserRegistered)
	return nil
}

// MatchState asks the server for a summary of the current match.
func (c *Client) MatchState(ctx context.Context) (models.MatchStateReply, error) {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	var reply models.MatchStateReply
	if token == "" {
		return reply, fmt.Errorf("%w: not connected", ErrInvalidState)
	}
	err := c.call(ctx, http.MethodGet, "/game/state", token, nil, &reply)
	return reply, err
}

// Disconnect closes the channel, tells the server on a best-effort basis and
// returns the client to None. Calling it again is a no-op.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.disconnecting || (c.state == models.UserNone && c.conn == nil && c.accessToken == "") {
		c.mu.Unlock()
		return nil
	}
	c.disconnecting = true
	cn, token := c.conn, c.accessToken
	c.mu.Unlock()

	if cn != nil {
		cn.pump.Close()
	}
	if token != "" {
		var reply models.ServerReply
		if err := c.call(ctx, http.MethodPost, "/disconnect", token, struct{}{}, &reply); err != nil {
			c.log.Debugf("disconnect notify: %v", err)
		}
	}
	c.reset(cn)

	c.mu.Lock()
	c.disconnecting = false
	c.mu.Unlock()
	return nil
}

// closed runs when the channel's pump stops.
func (c *Client) closed(cn *conn, err error) {
	c.mu.Lock()
	expected := c.disconnecting
	c.mu.Unlock()
	if !expected && !errors.Is(err, channel.ErrClosed) {
		c.log.Warnf("game channel lost: %v", err)
	}
	c.reset(cn)
}

// reset drops the connection and any match state, persisting the match log
// first, and moves to None.
func (c *Client) reset(cn *conn) {
	c.mu.Lock()
	if cn != nil && c.conn != cn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.sessionToken = ""
	c.accessToken = ""
	gameID, lines := c.gameID, c.logLines
	c.clearMatchLocked()
	c.mu.Unlock()

	if gameID >= 0 {
		c.writeLog(gameID, lines)
	}
	c.transition(models.UserNone)
}

func (c *Client) clearMatchLocked() {
	c.gameID = -1
	c.playerID = -1
	c.me = nil
	c.opponent = nil
	c.history = nil
	c.logLines = nil
	c.pendingOptions = nil
	c.pendingChoices = nil
	c.replyPending = false
}

func (c *Client) send(cn *conn, msgType models.MsgType, accepted bool, kind models.GameDataType, payload interface{}) error {
	c.mu.Lock()
	gameID, playerID := c.gameID, c.playerID
	c.mu.Unlock()

	env, err := models.NewEnvelope(msgType, accepted, gameID, playerID, kind, payload)
	if err != nil {
		return err
	}
	if !cn.queue.Enqueue(env) {
		return ErrChannelClosed
	}
	return nil
}
