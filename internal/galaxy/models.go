package galaxy

import (
	"time"
)

// Star is read-only reference data supplied by the topology provider when a
// game is created.
type Star struct {
	ID        int     `json:"id"`
	GameID    int     `json:"game_id"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Resources int     `json:"resources"`
}

// Wormhole is an undirected edge between two stars.
type Wormhole struct {
	ID     int `json:"id"`
	GameID int `json:"game_id"`
	StarA  int `json:"star_a"`
	StarB  int `json:"star_b"`
}

// StarState is the mutable per-game economic and ownership record of a star.
type StarState struct {
	ID         int         `json:"id"`
	GameID     int         `json:"game_id"`
	StarID     int         `json:"star_id"`
	OwnerID    *int        `json:"owner_id"`
	Available  float64     `json:"available"`
	Industry   float64     `json:"industry"`
	Technology float64     `json:"technology"`
	Damage     float64     `json:"damage"`
	Details    StarDetails `json:"details"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// StarDetails is the extensible bag stored on a star state. Standing orders
// live here so they survive across turns.
type StarDetails struct {
	StandingOrders *StandingOrders `json:"standing_orders,omitempty"`
}

// StandingOrders is a per-star default order template, re-materialized into
// concrete draft orders at the start of every new turn until cleared.
type StandingOrders struct {
	Industry *IndustryTemplate `json:"industry,omitempty"`
	Move     *MoveTemplate     `json:"move,omitempty"`
}

// IndustryTemplate splits a star's available points by percentage. The three
// percentages must sum to at most 100.
type IndustryTemplate struct {
	Expand   int `json:"expand"`
	Research int `json:"research"`
	Build    int `json:"build"`
}

// MoveTemplate names a default destination. An empty ship selection means
// "all ships present at the star at resolution time".
type MoveTemplate struct {
	DestinationStarID int   `json:"destination_star_id"`
	ShipIDs           []int `json:"ship_ids,omitempty"`
}

// PercentTotal returns the sum of the template's percentages.
func (t *IndustryTemplate) PercentTotal() int {
	return t.Expand + t.Research + t.Build
}

// IsEmpty reports whether the template allocates nothing.
func (t *IndustryTemplate) IsEmpty() bool {
	return t == nil || t.PercentTotal() == 0
}

// TopologyStar is one star of an ingested topology, before ids are assigned.
type TopologyStar struct {
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Resources int     `json:"resources"`
}

// TopologyEdge references stars by their index in the topology's star list.
type TopologyEdge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Topology is the pre-built star/wormhole graph consumed from the map
// generator collaborator.
type Topology struct {
	Stars []TopologyStar `json:"stars"`
	Edges []TopologyEdge `json:"edges"`
}
