package order

import (
	"encoding/json"
	"time"
)

// Order is one row of the append-only, revisioned order log. The tuple
// (game, turn, player, client order id) identifies a logical order; every
// edit inserts a new row with revision+1, deletes insert a tombstone
// revision, and finalization stamps immutable copies with IsFinal set.
type Order struct {
	ID            int             `json:"id"`
	GameID        int             `json:"game_id"`
	TurnID        int             `json:"turn_id"`
	PlayerID      int             `json:"player_id"`
	ClientOrderID string          `json:"client_order_id"`
	Revision      int             `json:"revision"`
	Type          Type            `json:"order_type"`
	Payload       json.RawMessage `json:"payload"`
	IsDeleted     bool            `json:"is_deleted"`
	IsFinal       bool            `json:"is_final"`
	FinalizedAt   *time.Time      `json:"finalized_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Decode parses the order's stored payload into its concrete type.
func (o *Order) Decode() (Payload, error) {
	return DecodePayload(o.Type, o.Payload)
}
