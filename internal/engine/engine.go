// Package engine is the boundary between the match protocol and an
// authoritative card-game rules engine. Implementations are not required to
// be safe for concurrent use; callers serialise access per game.
package engine

import (
	"fmt"

	"github.com/jason-s-yu/cardlink/internal/models"
)

type State int

const (
	StateRunning State = iota
	StateComplete
)

func (s State) String() string {
	if s == StateComplete {
		return "COMPLETE"
	}
	return "RUNNING"
}

type PlayState int

const (
	PlayStatePlaying PlayState = iota
	PlayStateWon
	PlayStateLost
	PlayStateTied
	PlayStateConceded
)

func (s PlayState) String() string {
	switch s {
	case PlayStatePlaying:
		return "PLAYING"
	case PlayStateWon:
		return "WON"
	case PlayStateLost:
		return "LOST"
	case PlayStateTied:
		return "TIED"
	case PlayStateConceded:
		return "CONCEDED"
	default:
		return fmt.Sprintf("PlayState(%d)", int(s))
	}
}

type Zone int

const (
	ZoneInvalid Zone = iota
	ZoneDeck
	ZoneHand
	ZonePlay
	ZoneGraveyard
)

type CardType int

const (
	CardInvalid CardType = iota
	CardHero
	CardHeroPower
	CardMinion
)

// Entity is the part of an engine entity the action translator needs.
type Entity struct {
	ID         int
	Controller int
	Zone       Zone
	Type       CardType
	CardID     string
}

type TaskKind int

const (
	TaskEndTurn TaskKind = iota + 1
	TaskMinionAttack
	TaskHeroAttack
	TaskPlayCard
	TaskHeroPower
	TaskPass
	TaskMulligan
	TaskPick
)

var taskKindNames = map[TaskKind]string{
	TaskEndTurn:      "EndTurn",
	TaskMinionAttack: "MinionAttack",
	TaskHeroAttack:   "HeroAttack",
	TaskPlayCard:     "PlayCard",
	TaskHeroPower:    "HeroPower",
	TaskPass:         "Pass",
	TaskMulligan:     "Mulligan",
	TaskPick:         "Pick",
}

func (k TaskKind) String() string {
	if s, ok := taskKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TaskKind(%d)", int(k))
}

// Task is an engine action issued on behalf of one player.
type Task struct {
	Kind      TaskKind
	PlayerID  int
	Source    int
	Target    int
	Position  int
	SubOption int
	Entities  []int
}

// Game is one running rules-engine instance.
type Game interface {
	StartGame() error
	Process(task Task) error
	// Options lists the legal actions of playerID. It is empty when the
	// player has nothing to do.
	Options(playerID int) models.PowerOptions
	// Choice returns the pending forced selection of playerID, or nil.
	Choice(playerID int) *models.PowerChoices
	// History is the batch of entries produced by the last StartGame,
	// Process or MainBegin call.
	History() []models.HistoryEntry
	State() State
	Turn() int
	CurrentPlayer() int
	PlayState(playerID int) PlayState
	Entity(id int) (Entity, bool)
	// MulliganComplete reports that the game is still in its mulligan step
	// and both players have finished choosing.
	MulliganComplete() bool
	// MainBegin advances the game past the mulligan step.
	MainBegin() error
	Close()
}

// Factory creates games. It is the CreateGame collaborator.
type Factory interface {
	CreateGame(player1, player2 models.UserInfo, cfg models.GameConfigInfo) (Game, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(player1, player2 models.UserInfo, cfg models.GameConfigInfo) (Game, error)

func (f FactoryFunc) CreateGame(player1, player2 models.UserInfo, cfg models.GameConfigInfo) (Game, error) {
	return f(player1, player2, cfg)
}
