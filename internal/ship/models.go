package ship

import (
	"encoding/json"
	"time"
)

type ShipStatus string

const (
	ShipStatusActive    ShipStatus = "active"
	ShipStatusDestroyed ShipStatus = "destroyed"
)

// Ship is the unit of movement. Ships are built at stars during the build
// phase and relocated during the movement phase.
type Ship struct {
	ID        int             `json:"id"`
	GameID    int             `json:"game_id"`
	OwnerID   int             `json:"owner_id"`
	StarID    int             `json:"star_id"`
	HP        float64         `json:"hp"`
	Power     float64         `json:"power"`
	Status    ShipStatus      `json:"status"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
