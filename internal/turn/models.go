package turn

import "time"

type TurnStatus string

const (
	// TurnStatusOpen accepts order drafts and finalizations.
	TurnStatusOpen TurnStatus = "open"
	// TurnStatusResolving is held by the resolution engine.
	TurnStatusResolving TurnStatus = "resolving"
	// TurnStatusClosed is immutable history.
	TurnStatusClosed TurnStatus = "closed"
)

type Turn struct {
	ID       int        `json:"id"`
	GameID   int        `json:"game_id"`
	Number   int        `json:"number"`
	Status   TurnStatus `json:"status"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}
