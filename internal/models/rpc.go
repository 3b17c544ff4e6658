package models

// ServerReply is the generic answer of the request/reply endpoints.
type ServerReply struct {
	RequestState   bool   `json:"requestState"`
	RequestMessage string `json:"requestMessage"`
}

type AuthRequest struct {
	AccountName string `json:"accountName" validate:"required"`
	AccountPsw  string `json:"accountPsw"`
}

type AuthReply struct {
	RequestState   bool   `json:"requestState"`
	RequestMessage string `json:"requestMessage"`
	SessionID      int    `json:"sessionId"`
	SessionToken   string `json:"sessionToken"`
	AccessToken    string `json:"accessToken"`
}

type QueueRequest struct {
	GameType GameType `json:"gameType" validate:"gte=0"`
	DeckType DeckType `json:"deckType" validate:"gte=0,lte=1"`
	DeckData string   `json:"deckData" validate:"max=4096"`
}

// MatchPlayer is one seat of a MatchStateReply.
type MatchPlayer struct {
	PlayerID    int         `json:"playerId"`
	AccountName string      `json:"accountName"`
	PlayerState PlayerState `json:"playerState"`
	PlayState   string      `json:"playState"`
	// Rating is the account's rating, when accounts are stored.
	Rating float64 `json:"rating,omitempty"`
}

// MatchStateReply summarises the caller's current match.
type MatchStateReply struct {
	RequestState  bool          `json:"requestState"`
	GameID        int           `json:"gameId"`
	State         string        `json:"state"`
	Turn          int           `json:"turn"`
	CurrentPlayer int           `json:"currentPlayer"`
	Players       []MatchPlayer `json:"players"`
}
