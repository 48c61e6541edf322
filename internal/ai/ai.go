package ai

import (
	"encoding/json"
	"fmt"

	"starfall-server/internal/galaxy"
	"starfall-server/internal/order"
	"starfall-server/internal/ship"
)

// WorldView is the snapshot a strategy plans against. AI players see the
// whole map; fog of war is not modeled.
type WorldView struct {
	GameID    int
	TurnID    int
	PlayerID  int
	Stars     []galaxy.Star
	States    []galaxy.StarState
	Wormholes []galaxy.Wormhole
	Ships     []ship.Ship
}

// OwnedStates returns the star states owned by the viewing player.
func (v *WorldView) OwnedStates() []galaxy.StarState {
	var owned []galaxy.StarState
	for _, state := range v.States {
		if state.OwnerID != nil && *state.OwnerID == v.PlayerID {
			owned = append(owned, state)
		}
	}
	return owned
}

// Neighbors returns the star IDs reachable from the given star.
func (v *WorldView) Neighbors(starID int) []int {
	var neighbors []int
	for _, w := range v.Wormholes {
		switch starID {
		case w.StarA:
			neighbors = append(neighbors, w.StarB)
		case w.StarB:
			neighbors = append(neighbors, w.StarA)
		}
	}
	return neighbors
}

// StateByStar returns the state of a star, or nil when the star has none.
func (v *WorldView) StateByStar(starID int) *galaxy.StarState {
	for i := range v.States {
		if v.States[i].StarID == starID {
			return &v.States[i]
		}
	}
	return nil
}

// ShipsAt returns the viewing player's active ships at a star.
func (v *WorldView) ShipsAt(starID int) []ship.Ship {
	var ships []ship.Ship
	for _, sh := range v.Ships {
		if sh.StarID == starID && sh.OwnerID == v.PlayerID && sh.Status == ship.ShipStatusActive {
			ships = append(ships, sh)
		}
	}
	return ships
}

// PlannedOrder is one draft a strategy wants submitted.
type PlannedOrder struct {
	ClientOrderID string
	Payload       order.Payload
}

// Strategy plans a full turn for one AI player.
type Strategy interface {
	Name() string
	PlanTurn(view *WorldView) ([]PlannedOrder, error)
}

// Factory builds a strategy from its player-level configuration.
type Factory func(config json.RawMessage) (Strategy, error)

// Registry maps strategy names to factories. Strategies register at wiring
// time; lookups after that are read-only, so no locking.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

func (r *Registry) Create(name string, config json.RawMessage) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown AI strategy %q", name)
	}
	return factory(config)
}
