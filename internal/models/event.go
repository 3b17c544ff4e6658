package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchEventType string

const (
	MatchEventCreated  MatchEventType = "match_created"
	MatchEventStarted  MatchEventType = "match_started"
	MatchEventFinished MatchEventType = "match_finished"
	MatchEventReaped   MatchEventType = "match_reaped"
)

// MatchEvent is a lifecycle notification about one match.
type MatchEvent struct {
	ID         uuid.UUID      `json:"id"`
	Type       MatchEventType `json:"type"`
	GameID     int            `json:"gameId"`
	Accounts   [2]string      `json:"accounts"`
	PlayStates [2]string      `json:"playStates,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

func NewMatchEvent(typ MatchEventType, gameID int, accounts [2]string) MatchEvent {
	id, _ := uuid.NewRandom()
	return MatchEvent{
		ID:        id,
		Type:      typ,
		GameID:    gameID,
		Accounts:  accounts,
		Timestamp: time.Now().UnixMilli(),
	}
}

// MatchResult is the payload of a Result message.
type MatchResult struct {
	Reason    string `json:"reason"`
	PlayState string `json:"playState"`
}
