package ai

import (
	"encoding/json"
	"fmt"
	"math"

	"starfall-server/internal/order"
)

// StrategyExpansionist is the built-in strategy name.
const StrategyExpansionist = "expansionist"

// ExpansionistConfig tunes the expansionist split. Percentages apply to each
// owned star's available points.
type ExpansionistConfig struct {
	ExpandPct   int `json:"expand_pct"`
	ResearchPct int `json:"research_pct"`
	BuildPct    int `json:"build_pct"`
}

func defaultExpansionistConfig() ExpansionistConfig {
	return ExpansionistConfig{
		ExpandPct:   30,
		ResearchPct: 20,
		BuildPct:    50,
	}
}

// Expansionist spends every owned star's points on a fixed expand/research/
// build split and pushes fleets outward: ships sitting on an owned star move
// to the first unowned neighbor.
type Expansionist struct {
	config ExpansionistConfig
}

func NewExpansionist(raw json.RawMessage) (Strategy, error) {
	cfg := defaultExpansionistConfig()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode expansionist config: %w", err)
		}
	}
	if cfg.ExpandPct < 0 || cfg.ResearchPct < 0 || cfg.BuildPct < 0 {
		return nil, fmt.Errorf("expansionist percentages must not be negative")
	}
	if cfg.ExpandPct+cfg.ResearchPct+cfg.BuildPct > 100 {
		return nil, fmt.Errorf("expansionist percentages sum to more than 100")
	}
	return &Expansionist{config: cfg}, nil
}

// RegisterBuiltins adds the strategies shipped with the server.
func RegisterBuiltins(registry *Registry) {
	registry.Register(StrategyExpansionist, NewExpansionist)
}

func (s *Expansionist) Name() string { return StrategyExpansionist }

func (s *Expansionist) PlanTurn(view *WorldView) ([]PlannedOrder, error) {
	var planned []PlannedOrder

	for _, state := range view.OwnedStates() {
		expand := math.Floor(state.Available * float64(s.config.ExpandPct) / 100)
		research := math.Floor(state.Available * float64(s.config.ResearchPct) / 100)
		build := math.Floor(state.Available * float64(s.config.BuildPct) / 100)

		if expand > 0 || research > 0 || build > 0 {
			planned = append(planned, PlannedOrder{
				ClientOrderID: fmt.Sprintf("ai-build-%d", state.StarID),
				Payload: order.AutoBuildPayload{
					StarID:   state.StarID,
					Expand:   expand,
					Research: research,
					Build:    build,
				},
			})
		}

		if len(view.ShipsAt(state.StarID)) == 0 {
			continue
		}
		if target := s.pickTarget(view, state.StarID); target != 0 {
			planned = append(planned, PlannedOrder{
				ClientOrderID: fmt.Sprintf("ai-move-%d", state.StarID),
				Payload: order.AutoMovePayload{
					FromStarID: state.StarID,
					ToStarID:   target,
				},
			})
		}
	}

	return planned, nil
}

// pickTarget prefers neighbors nobody owns, then neighbors owned by someone
// else. Returns 0 when every neighbor is already ours.
func (s *Expansionist) pickTarget(view *WorldView, starID int) int {
	enemy := 0
	for _, neighborID := range view.Neighbors(starID) {
		state := view.StateByStar(neighborID)
		if state == nil || state.OwnerID == nil {
			return neighborID
		}
		if *state.OwnerID != view.PlayerID && enemy == 0 {
			enemy = neighborID
		}
	}
	return enemy
}
