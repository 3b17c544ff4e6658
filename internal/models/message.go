package models

import (
	"encoding/json"
	"fmt"
)

// MsgType tags the top level of every frame sent over the game channel.
type MsgType int

const (
	MsgInitialisation MsgType = iota
	MsgInvitation
	MsgInGame
)

func (t MsgType) String() string {
	switch t {
	case MsgInitialisation:
		return "Initialisation"
	case MsgInvitation:
		return "Invitation"
	case MsgInGame:
		return "InGame"
	default:
		return fmt.Sprintf("MsgType(%d)", int(t))
	}
}

// GameDataType identifies the payload carried inside an InGame message.
type GameDataType int

const (
	GameDataNone GameDataType = iota
	GameDataInitialisation
	GameDataPowerHistory
	GameDataPowerChoices
	GameDataPowerOptions
	GameDataPowerChoice
	GameDataPowerOption
	GameDataConcede
	GameDataResult
)

var gameDataTypeNames = map[GameDataType]string{
	GameDataNone:           "None",
	GameDataInitialisation: "Initialisation",
	GameDataPowerHistory:   "PowerHistory",
	GameDataPowerChoices:   "PowerChoices",
	GameDataPowerOptions:   "PowerOptions",
	GameDataPowerChoice:    "PowerChoice",
	GameDataPowerOption:    "PowerOption",
	GameDataConcede:        "Concede",
	GameDataResult:         "Result",
}

func (t GameDataType) String() string {
	if s, ok := gameDataTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("GameDataType(%d)", int(t))
}

// Envelope is one frame on the duplex game channel. Message holds the JSON
// encoding of a GameData, or nothing for bare acknowledgments.
type Envelope struct {
	MessageType MsgType         `json:"messageType"`
	Accepted    bool            `json:"accepted"`
	Message     json.RawMessage `json:"message,omitempty"`
}

// GameData addresses a payload to one seat of one match.
type GameData struct {
	GameID         int             `json:"gameId"`
	PlayerID       int             `json:"playerId"`
	GameDataType   GameDataType    `json:"gameDataType"`
	GameDataObject json.RawMessage `json:"gameDataObject,omitempty"`
}

// NewEnvelope wraps a GameData whose object is the JSON encoding of payload.
// A nil payload leaves GameDataObject empty.
func NewEnvelope(msgType MsgType, accepted bool, gameID, playerID int, kind GameDataType, payload interface{}) (Envelope, error) {
	gd := GameData{
		GameID:       gameID,
		PlayerID:     playerID,
		GameDataType: kind,
	}
	if payload != nil {
		obj, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		gd.GameDataObject = obj
	}
	msg, err := json.Marshal(gd)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal game data: %w", err)
	}
	return Envelope{MessageType: msgType, Accepted: accepted, Message: msg}, nil
}

// GameData decodes the envelope body. ok is false when the envelope carries
// no body at all.
func (e Envelope) GameData() (gd GameData, ok bool, err error) {
	if len(e.Message) == 0 {
		return GameData{}, false, nil
	}
	if err := json.Unmarshal(e.Message, &gd); err != nil {
		return GameData{}, false, fmt.Errorf("decode game data: %w", err)
	}
	return gd, true, nil
}

// Decode unmarshals the kind-specific object into v.
func (gd GameData) Decode(v interface{}) error {
	if len(gd.GameDataObject) == 0 {
		return fmt.Errorf("empty %s payload", gd.GameDataType)
	}
	if err := json.Unmarshal(gd.GameDataObject, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", gd.GameDataType, err)
	}
	return nil
}
