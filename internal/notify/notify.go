package notify

import "context"

// TurnResolution is the payload published when a turn finishes resolving and
// the next one opens. Clients use it to refetch game state.
type TurnResolution struct {
	GameID             int `json:"game_id"`
	PreviousTurnID     int `json:"previous_turn_id"`
	PreviousTurnNumber int `json:"previous_turn_number"`
	NewTurnID          int `json:"new_turn_id"`
	NewTurnNumber      int `json:"new_turn_number"`
}

// Notifier delivers turn resolution notifications. Delivery is best effort:
// implementations log failures and never return them, because a lost
// notification must not affect turn advancement.
type Notifier interface {
	TurnResolved(ctx context.Context, resolution TurnResolution)
}

// Nop discards notifications. Used when no sink is configured.
type Nop struct{}

func (Nop) TurnResolved(ctx context.Context, resolution TurnResolution) {}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) TurnResolved(ctx context.Context, resolution TurnResolution) {
	for _, n := range m {
		n.TurnResolved(ctx, resolution)
	}
}
