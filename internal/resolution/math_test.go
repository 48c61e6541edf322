package resolution

import (
	"math"
	"testing"
)

func TestShipsAffordable(t *testing.T) {
	tests := []struct {
		name      string
		available float64
		shipCost  float64
		requested int
		want      int
	}{
		{"capped by budget", 55, 5, 100, 11},
		{"request below budget", 55, 5, 3, 3},
		{"exact fit", 10, 5, 2, 2},
		{"cannot afford one", 4, 5, 2, 0},
		{"zero available", 0, 1, 5, 0},
		{"zero request", 55, 5, 0, 0},
		{"zero cost", 55, 0, 5, 0},
		{"fractional budget floors", 9.99, 5, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shipsAffordable(tt.available, tt.shipCost, tt.requested)
			if got != tt.want {
				t.Fatalf("shipsAffordable(%v, %v, %d) = %d, want %d",
					tt.available, tt.shipCost, tt.requested, got, tt.want)
			}
		})
	}
}

func TestGrow(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		spend   float64
		want    float64
	}{
		{"spend five", 4, 5, 5.45},
		{"spend zero is identity", 4, 0, 4},
		{"spend three", 1, 3, 2},
		{"large spend has diminishing returns", 1, 99, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grow(tt.current, tt.spend)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("grow(%v, %v) = %v, want %v", tt.current, tt.spend, got, tt.want)
			}
		})
	}
}

func TestGrowIsMonotonic(t *testing.T) {
	prev := grow(1, 0)
	for spend := 1.0; spend <= 50; spend++ {
		next := grow(1, spend)
		if next < prev {
			t.Fatalf("grow(1, %v) = %v dropped below grow(1, %v) = %v", spend, next, spend-1, prev)
		}
		prev = next
	}
}

func TestRound2(t *testing.T) {
	if got := round2(5.449); got != 5.45 {
		t.Fatalf("round2(5.449) = %v, want 5.45", got)
	}
	if got := round2(2.004); got != 2.0 {
		t.Fatalf("round2(2.004) = %v, want 2", got)
	}
}
