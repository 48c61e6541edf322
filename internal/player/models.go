package player

import (
	"encoding/json"
	"time"
)

type PlayerStatus string

const (
	// PlayerStatusActive means the player can still submit orders this turn.
	PlayerStatusActive PlayerStatus = "active"
	// PlayerStatusWaiting means the player has ended their turn and is
	// waiting for the rest of the game to finish.
	PlayerStatusWaiting PlayerStatus = "waiting"
	// PlayerStatusSuspended means the player is temporarily out of the game.
	PlayerStatusSuspended PlayerStatus = "suspended"
	// PlayerStatusEjected means the player was removed from the game.
	PlayerStatusEjected PlayerStatus = "ejected"
)

type PlayerType string

const (
	PlayerTypeHuman PlayerType = "player"
	PlayerTypeAI    PlayerType = "ai"
)

func (t PlayerType) IsValid() bool {
	return t == PlayerTypeHuman || t == PlayerTypeAI
}

// Metadata is the extensible bag on a player. AI players name their strategy
// and its configuration here.
type Metadata struct {
	Strategy       string          `json:"strategy,omitempty"`
	StrategyConfig json.RawMessage `json:"strategy_config,omitempty"`
}

// Player is one participant of a game, human or AI. UserID is nil for AI
// players. Status is per game, not per turn: it resets to active whenever a
// new turn opens.
type Player struct {
	ID        int          `json:"id"`
	GameID    int          `json:"game_id"`
	UserID    *int         `json:"user_id"`
	Name      string       `json:"name"`
	Color     string       `json:"color"`
	Country   string       `json:"country"`
	Status    PlayerStatus `json:"status"`
	Type      PlayerType   `json:"type"`
	Metadata  Metadata     `json:"metadata"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
