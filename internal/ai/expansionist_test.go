package ai

import (
	"encoding/json"
	"testing"

	"starfall-server/internal/galaxy"
	"starfall-server/internal/order"
	"starfall-server/internal/ship"
)

func intPtr(v int) *int { return &v }

func testView() *WorldView {
	return &WorldView{
		GameID:   1,
		TurnID:   10,
		PlayerID: 7,
		Stars: []galaxy.Star{
			{ID: 1, GameID: 1, Name: "Sol"},
			{ID: 2, GameID: 1, Name: "Vega"},
			{ID: 3, GameID: 1, Name: "Rigel"},
		},
		States: []galaxy.StarState{
			{ID: 11, GameID: 1, StarID: 1, OwnerID: intPtr(7), Available: 100, Industry: 10, Technology: 2},
			{ID: 12, GameID: 1, StarID: 2, Available: 40, Industry: 4, Technology: 1},
			{ID: 13, GameID: 1, StarID: 3, OwnerID: intPtr(9), Available: 60, Industry: 6, Technology: 1},
		},
		Wormholes: []galaxy.Wormhole{
			{ID: 21, GameID: 1, StarA: 1, StarB: 2},
			{ID: 22, GameID: 1, StarA: 2, StarB: 3},
		},
		Ships: []ship.Ship{
			{ID: 31, GameID: 1, OwnerID: 7, StarID: 1, Status: ship.ShipStatusActive},
			{ID: 32, GameID: 1, OwnerID: 7, StarID: 1, Status: ship.ShipStatusActive},
			{ID: 33, GameID: 1, OwnerID: 9, StarID: 3, Status: ship.ShipStatusActive},
		},
	}
}

func TestExpansionistPlanTurn(t *testing.T) {
	strategy, err := NewExpansionist(nil)
	if err != nil {
		t.Fatalf("NewExpansionist failed: %v", err)
	}

	planned, err := strategy.PlanTurn(testView())
	if err != nil {
		t.Fatalf("PlanTurn failed: %v", err)
	}

	if len(planned) != 2 {
		t.Fatalf("expected 2 planned orders, got %d", len(planned))
	}

	buildOrder := planned[0]
	if buildOrder.ClientOrderID != "ai-build-1" {
		t.Fatalf("unexpected client order ID %q", buildOrder.ClientOrderID)
	}
	build, ok := buildOrder.Payload.(order.AutoBuildPayload)
	if !ok {
		t.Fatalf("expected AutoBuildPayload, got %T", buildOrder.Payload)
	}
	// Default split is 30/20/50 against 100 available.
	if build.Expand != 30 || build.Research != 20 || build.Build != 50 {
		t.Fatalf("unexpected split: %+v", build)
	}

	moveOrder := planned[1]
	move, ok := moveOrder.Payload.(order.AutoMovePayload)
	if !ok {
		t.Fatalf("expected AutoMovePayload, got %T", moveOrder.Payload)
	}
	if move.FromStarID != 1 || move.ToStarID != 2 {
		t.Fatalf("expected fleet push from 1 to unowned neighbor 2, got %+v", move)
	}
}

func TestExpansionistPrefersUnownedNeighbors(t *testing.T) {
	view := testView()
	// Give the neutral neighbor to the enemy; the push should still happen,
	// now against the enemy star.
	view.States[1].OwnerID = intPtr(9)

	strategy, err := NewExpansionist(nil)
	if err != nil {
		t.Fatalf("NewExpansionist failed: %v", err)
	}

	planned, err := strategy.PlanTurn(view)
	if err != nil {
		t.Fatalf("PlanTurn failed: %v", err)
	}

	var move *order.AutoMovePayload
	for _, po := range planned {
		if p, ok := po.Payload.(order.AutoMovePayload); ok {
			move = &p
		}
	}
	if move == nil {
		t.Fatal("expected a move order")
	}
	if move.ToStarID != 2 {
		t.Fatalf("expected move to enemy star 2, got %d", move.ToStarID)
	}
}

func TestExpansionistHoldsWhenSurrounded(t *testing.T) {
	view := testView()
	view.States[1].OwnerID = intPtr(7)

	strategy, err := NewExpansionist(nil)
	if err != nil {
		t.Fatalf("NewExpansionist failed: %v", err)
	}

	planned, err := strategy.PlanTurn(view)
	if err != nil {
		t.Fatalf("PlanTurn failed: %v", err)
	}

	for _, po := range planned {
		if p, ok := po.Payload.(order.AutoMovePayload); ok && p.FromStarID == 1 {
			t.Fatalf("expected no move from star 1, got %+v", p)
		}
	}
}

func TestExpansionistConfig(t *testing.T) {
	strategy, err := NewExpansionist(json.RawMessage(`{"expand_pct": 10, "research_pct": 10, "build_pct": 80}`))
	if err != nil {
		t.Fatalf("NewExpansionist failed: %v", err)
	}

	planned, err := strategy.PlanTurn(testView())
	if err != nil {
		t.Fatalf("PlanTurn failed: %v", err)
	}

	build := planned[0].Payload.(order.AutoBuildPayload)
	if build.Expand != 10 || build.Research != 10 || build.Build != 80 {
		t.Fatalf("unexpected split: %+v", build)
	}
}

func TestExpansionistRejectsBadConfig(t *testing.T) {
	if _, err := NewExpansionist(json.RawMessage(`{"expand_pct": 90, "build_pct": 20}`)); err == nil {
		t.Fatal("expected error for percentages over 100")
	}
	if _, err := NewExpansionist(json.RawMessage(`{"expand_pct": -5}`)); err == nil {
		t.Fatal("expected error for negative percentage")
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	RegisterBuiltins(registry)

	strategy, err := registry.Create(StrategyExpansionist, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if strategy.Name() != StrategyExpansionist {
		t.Fatalf("unexpected strategy name %q", strategy.Name())
	}

	if _, err := registry.Create("berserker", nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
