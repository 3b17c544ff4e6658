package models

import "fmt"

// UserState is a session's lifecycle position on the server.
type UserState int

const (
	UserNone UserState = iota
	UserConnected
	UserRegistered
	UserQueued
	UserInvited
	UserInGame
)

func (s UserState) String() string {
	switch s {
	case UserNone:
		return "None"
	case UserConnected:
		return "Connected"
	case UserRegistered:
		return "Registered"
	case UserQueued:
		return "Queued"
	case UserInvited:
		return "Invited"
	case UserInGame:
		return "InGame"
	default:
		return fmt.Sprintf("UserState(%d)", int(s))
	}
}

// PlayerState tracks a session's seat within its current match.
type PlayerState int

const (
	PlayerNone PlayerState = iota
	PlayerInvitation
	PlayerGame
	PlayerQuit
)

func (s PlayerState) String() string {
	switch s {
	case PlayerNone:
		return "None"
	case PlayerInvitation:
		return "Invitation"
	case PlayerGame:
		return "Game"
	case PlayerQuit:
		return "Quit"
	default:
		return fmt.Sprintf("PlayerState(%d)", int(s))
	}
}

type DeckType int

const (
	DeckRandom DeckType = iota
	DeckCustom
)

type GameType int

const (
	GameNormal GameType = iota
)

// GameConfigInfo is the rules-engine configuration a match was started with.
type GameConfigInfo struct {
	SkipMulligan bool  `json:"skipMulligan"`
	Shuffle      bool  `json:"shuffle"`
	FillDecks    bool  `json:"fillDecks"`
	Logging      bool  `json:"logging"`
	History      bool  `json:"history"`
	RandomSeed   int64 `json:"randomSeed"`
}

// UserInfo is the per-player data exchanged at match initialisation.
type UserInfo struct {
	SessionID      int             `json:"sessionId"`
	AccountName    string          `json:"accountName"`
	UserState      UserState       `json:"userState"`
	GameID         int             `json:"gameId"`
	DeckType       DeckType        `json:"deckType"`
	DeckData       string          `json:"deckData,omitempty"`
	PlayerState    PlayerState     `json:"playerState"`
	PlayerID       int             `json:"playerId"`
	GameConfigInfo *GameConfigInfo `json:"gameConfigInfo,omitempty"`
}

// Open returns the projection of u that may be shown to an opponent. Deck
// contents are private to the owner.
func (u UserInfo) Open() UserInfo {
	open := u
	open.DeckData = ""
	return open
}
