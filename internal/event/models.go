package event

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	// KindTurnOpened records a new turn opening for a game.
	KindTurnOpened Kind = "turn_opened"
	// KindTurnResolved records a turn finishing resolution.
	KindTurnResolved Kind = "turn_resolved"
	// KindPlayerFinished records a player ending their turn.
	KindPlayerFinished Kind = "player_finished"
	// KindShipsBuilt records ships constructed during the build phase.
	KindShipsBuilt Kind = "ships_built"
	// KindIndustryExpanded records industry growth during the expansion phase.
	KindIndustryExpanded Kind = "industry_expanded"
	// KindResearchAdvanced records technology growth during the expansion phase.
	KindResearchAdvanced Kind = "research_advanced"
	// KindShipsMoved records ships relocated during the movement phase.
	KindShipsMoved Kind = "ships_moved"
)

// Event is one row of the append-only, per-turn ordered record of everything
// that happened during resolution. Seq is strictly increasing per
// (game, turn) and assigned at append time.
type Event struct {
	ID        int             `json:"id"`
	GameID    int             `json:"game_id"`
	TurnID    int             `json:"turn_id"`
	Seq       int             `json:"seq"`
	PlayerID  *int            `json:"player_id,omitempty"`
	Kind      Kind            `json:"kind"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}
