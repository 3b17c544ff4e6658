package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jason-s-yu/cardlink/internal/channel"
	"github.com/jason-s-yu/cardlink/internal/models"
)

// handler interprets inbound envelopes. It runs on the channel's reader
// goroutine; returning an error closes the channel.
func (c *Client) handler(cn *conn) channel.HandlerFunc {
	return func(ctx context.Context, env models.Envelope) error {
		if env.MessageType == models.MsgInitialisation {
			cn.initOnce.Do(func() { cn.initAck <- env.Accepted })
			return nil
		}
		if !env.Accepted {
			c.log.Warnf("failed %s message", env.MessageType)
			return nil
		}

		gd, ok, err := env.GameData()
		if err != nil {
			c.violation(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		if !ok {
			c.violation(fmt.Errorf("%w: %s without game data", ErrProtocolViolation, env.MessageType))
			return nil
		}

		switch env.MessageType {
		case models.MsgInvitation:
			return c.onInvitation(cn, gd)
		case models.MsgInGame:
			return c.onGameData(cn, gd)
		default:
			c.violation(fmt.Errorf("%w: unexpected message type %s", ErrProtocolViolation, env.MessageType))
			return nil
		}
	}
}

func (c *Client) onInvitation(cn *conn, gd models.GameData) error {
	c.mu.Lock()
	c.clearMatchLocked()
	c.gameID = gd.GameID
	c.playerID = gd.PlayerID
	c.mu.Unlock()

	c.transition(models.UserInvited)
	c.log.Infof("invited to game %d as player %d", gd.GameID, gd.PlayerID)

	accept := true
	if c.cfg.OnInvitation != nil {
		safeNotify(c.log, func() { accept = c.cfg.OnInvitation(gd.GameID, gd.PlayerID) })
	}
	return c.send(cn, models.MsgInvitation, accept, models.GameDataNone, nil)
}

func (c *Client) onGameData(cn *conn, gd models.GameData) error {
	c.mu.Lock()
	gameID, playerID := c.gameID, c.playerID
	c.mu.Unlock()
	if gd.GameID != gameID {
		c.log.Debugf("stale %s for game %d, current %d", gd.GameDataType, gd.GameID, gameID)
		return nil
	}

	switch gd.GameDataType {
	case models.GameDataInitialisation:
		var infos []models.UserInfo
		if err := gd.Decode(&infos); err != nil {
			c.violation(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		c.mu.Lock()
		for _, info := range infos {
			if info.PlayerID == playerID {
				me := info
				c.me = &me
			} else {
				op := info.Open()
				c.opponent = &op
			}
		}
		c.mu.Unlock()
		c.transition(models.UserInGame, models.UserInvited)
		return nil

	case models.GameDataPowerHistory:
		var entries []models.HistoryEntry
		if err := gd.Decode(&entries); err != nil {
			c.violation(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		c.mu.Lock()
		c.history = append(c.history, entries...)
		for _, e := range entries {
			c.logLines = append(c.logLines, fmt.Sprintf("HISTORY %s entity=%d %s=%d %s", e.Type, e.EntityID, e.Tag, e.Value, e.CardID))
		}
		c.mu.Unlock()
		return nil

	case models.GameDataPowerChoices:
		var choices models.PowerChoices
		if err := gd.Decode(&choices); err != nil {
			c.violation(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		if !c.holdPrompt(nil, &choices) {
			return nil
		}
		reply := c.askChoices(choices)
		if reply == nil {
			return fmt.Errorf("%w: %s choices", ErrPolicy, choices.ChoiceType)
		}
		return c.answer(cn, models.GameDataPowerChoice, reply)

	case models.GameDataPowerOptions:
		var options models.PowerOptions
		if err := gd.Decode(&options); err != nil {
			c.violation(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		if len(options.PowerOptionList) == 0 {
			return nil
		}
		if !c.holdPrompt(&options, nil) {
			return nil
		}
		reply := c.askOptions(options.PowerOptionList)
		if reply == nil {
			return fmt.Errorf("%w: %d options", ErrPolicy, len(options.PowerOptionList))
		}
		return c.answer(cn, models.GameDataPowerOption, reply)

	case models.GameDataPowerOption, models.GameDataPowerChoice:
		c.mu.Lock()
		c.logLines = append(c.logLines, fmt.Sprintf("ACTION player=%d %s %s", gd.PlayerID, gd.GameDataType, gd.GameDataObject))
		if gd.PlayerID == playerID {
			c.replyPending = false
		}
		c.mu.Unlock()
		return nil

	case models.GameDataResult:
		var res models.MatchResult
		if err := gd.Decode(&res); err != nil {
			c.violation(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
		}
		c.finishMatch(res)
		return nil

	default:
		c.violation(fmt.Errorf("%w: unexpected %s", ErrProtocolViolation, gd.GameDataType))
		return nil
	}
}

// holdPrompt stores a prompt as pending. A prompt that arrives while another
// is pending, or before the server has taken our last reply, is reported and
// dropped.
func (c *Client) holdPrompt(options *models.PowerOptions, choices *models.PowerChoices) bool {
	c.mu.Lock()
	busy := c.pendingOptions != nil || c.pendingChoices != nil || c.replyPending
	if !busy {
		c.pendingOptions = options
		c.pendingChoices = choices
	}
	c.mu.Unlock()

	if busy {
		c.violation(fmt.Errorf("%w: second prompt before the first was answered", ErrProtocolViolation))
		return false
	}
	return true
}

func (c *Client) askOptions(options []models.PowerOption) (reply *models.PowerOptionChoice) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("decision policy panicked: %v", r)
			reply = nil
		}
	}()
	return c.cfg.Policy.PowerOptions(options)
}

func (c *Client) askChoices(choices models.PowerChoices) (reply *models.PowerChoices) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("decision policy panicked: %v", r)
			reply = nil
		}
	}()
	return c.cfg.Policy.PowerChoices(choices)
}

// answer sends the single reply to the pending prompt and clears it.
func (c *Client) answer(cn *conn, kind models.GameDataType, reply interface{}) error {
	if err := c.send(cn, models.MsgInGame, true, kind, reply); err != nil {
		return err
	}
	c.mu.Lock()
	c.pendingOptions = nil
	c.pendingChoices = nil
	c.replyPending = true
	c.mu.Unlock()
	return nil
}

func (c *Client) finishMatch(res models.MatchResult) {
	c.mu.Lock()
	out := Outcome{
		GameID:    c.gameID,
		PlayerID:  c.playerID,
		Reason:    res.Reason,
		PlayState: res.PlayState,
		Entries:   len(c.history),
	}
	if c.opponent != nil {
		out.Opponent = c.opponent.AccountName
	}
	lines := append(c.logLines, fmt.Sprintf("RESULT %s %s", res.PlayState, res.Reason))
	c.clearMatchLocked()
	c.mu.Unlock()

	c.writeLog(out.GameID, lines)
	c.transition(models.UserRegistered, models.UserInvited, models.UserInGame)
	c.log.Infof("game %d finished: %s (%s)", out.GameID, out.PlayState, out.Reason)

	select {
	case c.results <- out:
	default:
		c.log.Warnf("results backlog full, dropped outcome of game %d", out.GameID)
	}
}

func (c *Client) writeLog(gameID int, lines []string) {
	if c.cfg.LogDir == "" || len(lines) == 0 {
		return
	}
	name := filepath.Join(c.cfg.LogDir, fmt.Sprintf("%s_%d.log", c.cfg.Account, gameID))
	if err := os.WriteFile(name, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		c.log.Errorf("write match log: %v", err)
	}
}

// Play queues for games matches in a row and collects their outcomes. It
// stops early on a queue failure, a lost channel or ctx.
func (c *Client) Play(ctx context.Context, games int, deckData string) ([]Outcome, error) {
	var outcomes []Outcome
	for len(outcomes) < games {
		if err := c.Queue(ctx, models.GameNormal, deckData); err != nil {
			return outcomes, err
		}

		c.mu.Lock()
		cn := c.conn
		c.mu.Unlock()
		if cn == nil {
			return outcomes, ErrChannelClosed
		}

		select {
		case out := <-c.results:
			outcomes = append(outcomes, out)
		case <-cn.pump.Done():
			return outcomes, ErrChannelClosed
		case <-ctx.Done():
			return outcomes, ctx.Err()
		}
	}
	return outcomes, nil
}
