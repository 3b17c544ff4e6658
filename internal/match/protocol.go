package match

import (
	"fmt"

	"github.com/jason-s-yu/cardlink/internal/engine"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/session"
)

// InvitationReply records one player's answer to the invitation. A decline
// stops the match; the second acceptance starts the game.
func (m *Match) InvitationReply(playerID int, accepted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseAwaitingAcceptance {
		return fmt.Errorf("%w: invitation reply in phase %s", ErrStale, m.phase)
	}
	s, idx, ok := m.seat(playerID)
	if !ok {
		err := fmt.Errorf("%w: invitation reply from player %d", ErrProtocolViolation, playerID)
		m.stopLocked(err.Error())
		return err
	}
	if !accepted {
		m.log.Infof("%s declined the invitation", s.AccountName)
		m.stopLocked("invitation declined")
		return nil
	}

	m.ready[idx] = true
	s.Transition(models.UserInGame, models.UserInvited)
	s.SetPlayerState(models.PlayerGame)

	if m.ready[0] && m.ready[1] {
		return m.startLocked()
	}
	return nil
}

func (m *Match) startLocked() error {
	m.gameConfig = models.GameConfigInfo{
		SkipMulligan: m.cfg.SkipMulligan,
		Shuffle:      true,
		FillDecks:    true,
		Logging:      true,
		History:      true,
		RandomSeed:   m.cfg.Seed(),
	}
	infos := [2]models.UserInfo{m.Player1.Info(), m.Player2.Info()}
	for i := range infos {
		gc := m.gameConfig
		infos[i].GameConfigInfo = &gc
	}

	m.log.Info("game creation is happening")
	game, err := m.cfg.Factory.CreateGame(infos[0], infos[1], m.gameConfig)
	if err != nil {
		err = fmt.Errorf("%w: create game: %v", ErrEngine, err)
		m.stopLocked(err.Error())
		return err
	}
	m.game = game
	if err := game.StartGame(); err != nil {
		err = fmt.Errorf("%w: start game: %v", ErrEngine, err)
		m.stopLocked(err.Error())
		return err
	}
	m.phase = PhaseInProgress
	m.log.Info("game creation done")

	for idx, s := range []*session.Session{m.Player1, m.Player2} {
		view := infos
		view[1-idx] = infos[1-idx].Open()
		m.send(s, idx+1, models.MsgInGame, true, models.GameDataInitialisation, view[:])
	}
	m.notify(models.NewMatchEvent(models.MatchEventStarted, m.GameID, m.accounts()))

	m.broadcastLocked()
	return nil
}

// broadcastLocked pushes the latest history to both seats, then a prompt to
// each seat that is not already waiting on one.
func (m *Match) broadcastLocked() {
	m.sendHistoryLocked()
	m.sendPromptsLocked()
}

func (m *Match) sendHistoryLocked() {
	history := m.game.History()
	if history == nil {
		history = []models.HistoryEntry{}
	}
	m.send(m.Player1, 1, models.MsgInGame, true, models.GameDataPowerHistory, history)
	m.send(m.Player2, 2, models.MsgInGame, true, models.GameDataPowerHistory, history)
}

func (m *Match) sendPromptsLocked() {
	for idx, s := range []*session.Session{m.Player1, m.Player2} {
		if m.pending[idx] != models.GameDataNone {
			continue
		}
		pid := idx + 1
		if choices := m.game.Choice(pid); choices != nil {
			m.send(s, pid, models.MsgInGame, true, models.GameDataPowerChoices, choices)
			m.pending[idx] = models.GameDataPowerChoices
			continue
		}
		opts := m.game.Options(pid)
		if opts.PowerOptionList == nil {
			opts.PowerOptionList = []models.PowerOption{}
		}
		m.send(s, pid, models.MsgInGame, true, models.GameDataPowerOptions, opts)
		if len(opts.PowerOptionList) > 0 {
			m.pending[idx] = models.GameDataPowerOptions
		}
	}
}

// ProcessGameData applies one in-game message from a seat. Errors wrapping
// ErrProtocolViolation or ErrEngine mean the match has been stopped;
// ErrStale means the message was ignored.
func (m *Match) ProcessGameData(gd models.GameData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gd.GameID != m.GameID {
		return fmt.Errorf("%w: game %d sent to match %d", ErrStale, gd.GameID, m.GameID)
	}
	_, idx, ok := m.seat(gd.PlayerID)
	if !ok {
		err := fmt.Errorf("%w: game data from player %d", ErrProtocolViolation, gd.PlayerID)
		m.stopLocked(err.Error())
		return err
	}
	if m.phase != PhaseInProgress {
		return fmt.Errorf("%w: %s in phase %s", ErrStale, gd.GameDataType, m.phase)
	}

	switch gd.GameDataType {
	case models.GameDataPowerOption:
		if m.pending[idx] != models.GameDataPowerOptions {
			return fmt.Errorf("%w: player %d has no pending options", ErrStale, gd.PlayerID)
		}
		var choice models.PowerOptionChoice
		if err := gd.Decode(&choice); err != nil {
			return m.violationLocked(err)
		}
		task, err := engine.OptionTask(m.game, gd.PlayerID, choice)
		if err != nil {
			return m.engineFailureLocked(err)
		}
		m.pending[idx] = models.GameDataNone
		if err := m.game.Process(task); err != nil {
			return m.engineFailureLocked(err)
		}
		m.afterActionLocked(gd)
		return nil

	case models.GameDataPowerChoice:
		if m.pending[idx] != models.GameDataPowerChoices {
			return fmt.Errorf("%w: player %d has no pending choice", ErrStale, gd.PlayerID)
		}
		var choices models.PowerChoices
		if err := gd.Decode(&choices); err != nil {
			return m.violationLocked(err)
		}
		task, err := engine.ChoiceTask(gd.PlayerID, choices)
		if err != nil {
			return m.engineFailureLocked(err)
		}
		m.pending[idx] = models.GameDataNone
		if err := m.game.Process(task); err != nil {
			return m.engineFailureLocked(err)
		}
		if m.game.MulliganComplete() {
			if err := m.game.MainBegin(); err != nil {
				return m.engineFailureLocked(err)
			}
		}
		m.afterActionLocked(gd)
		return nil

	case models.GameDataConcede:
		// TODO: forward concession to the engine once it exposes a concede task.
		m.log.Warnf("player %d conceded, concede is not implemented", gd.PlayerID)
		return nil

	default:
		return m.violationLocked(fmt.Errorf("unexpected %s from player %d", gd.GameDataType, gd.PlayerID))
	}
}

// afterActionLocked echoes the processed action, sends the resulting
// history, then either prompts again or ends the match.
func (m *Match) afterActionLocked(gd models.GameData) {
	var payload interface{}
	if len(gd.GameDataObject) > 0 {
		payload = gd.GameDataObject
	}
	m.send(m.Player1, gd.PlayerID, models.MsgInGame, true, gd.GameDataType, payload)
	m.send(m.Player2, gd.PlayerID, models.MsgInGame, true, gd.GameDataType, payload)
	m.sendHistoryLocked()

	if m.game.State() == engine.StateRunning {
		m.sendPromptsLocked()
		return
	}
	m.stopLocked("game over")
}

func (m *Match) violationLocked(cause error) error {
	err := fmt.Errorf("%w: %v", ErrProtocolViolation, cause)
	m.log.Warn(err)
	m.stopLocked(err.Error())
	return err
}

func (m *Match) engineFailureLocked(cause error) error {
	err := fmt.Errorf("%w: %v", ErrEngine, cause)
	m.log.Error(err)
	m.stopLocked(err.Error())
	return err
}

// Stop ends the match: both players get a Result and are marked Quit, and
// the engine is released. Only the first call has any effect.
func (m *Match) Stop(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(reason)
}

func (m *Match) stopLocked(reason string) {
	if m.phase == PhaseFinished {
		return
	}
	m.phase = PhaseFinished
	m.stopReason = reason
	m.pending = [2]models.GameDataType{}

	if m.game != nil {
		m.finalState = [2]engine.PlayState{m.game.PlayState(1), m.game.PlayState(2)}
	}
	for idx, s := range []*session.Session{m.Player1, m.Player2} {
		// state first, so a client reacting to Result can queue again at once
		s.SetPlayerState(models.PlayerQuit)
		s.Transition(models.UserRegistered, models.UserInvited, models.UserInGame)
		m.send(s, idx+1, models.MsgInGame, true, models.GameDataResult, models.MatchResult{
			Reason:    reason,
			PlayState: m.finalState[idx].String(),
		})
	}
	if m.game != nil {
		m.game.Close()
	}

	m.log.Infof("stopped: %s", reason)
	ev := models.NewMatchEvent(models.MatchEventFinished, m.GameID, m.accounts())
	ev.PlayStates = [2]string{m.finalState[0].String(), m.finalState[1].String()}
	ev.Reason = reason
	m.notify(ev)
}

// StopReason is the reason passed to the first Stop.
func (m *Match) StopReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopReason
}

// Summary describes the match for a state query.
func (m *Match) Summary() models.MatchStateReply {
	m.mu.Lock()
	defer m.mu.Unlock()

	reply := models.MatchStateReply{
		RequestState: true,
		GameID:       m.GameID,
		State:        m.phase.String(),
	}
	states := m.finalState
	if m.game != nil && m.phase == PhaseInProgress {
		reply.Turn = m.game.Turn()
		reply.CurrentPlayer = m.game.CurrentPlayer()
		states = [2]engine.PlayState{m.game.PlayState(1), m.game.PlayState(2)}
	}
	for idx, s := range []*session.Session{m.Player1, m.Player2} {
		reply.Players = append(reply.Players, models.MatchPlayer{
			PlayerID:    idx + 1,
			AccountName: s.AccountName,
			PlayerState: s.PlayerState(),
			PlayState:   states[idx].String(),
		})
	}
	return reply
}

// Seats returns the two sessions in seat order.
func (m *Match) Seats() [2]*session.Session {
	return [2]*session.Session{m.Player1, m.Player2}
}
