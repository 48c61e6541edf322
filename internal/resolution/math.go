package resolution

import "math"

// round2 rounds to two decimal places, the precision star economies are
// stored at.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// shipsAffordable caps a requested ship count by what the star's available
// points can pay for at the given per-ship cost.
func shipsAffordable(available, shipCost float64, requested int) int {
	if shipCost <= 0 || requested <= 0 {
		return 0
	}
	maxShips := int(math.Floor(available / shipCost))
	if requested < maxShips {
		return requested
	}
	return maxShips
}

// grow applies the diminishing-returns curve used by expansion and
// research: each spent batch yields sqrt(1+spend)-1 new points, so repeated
// spending has shrinking marginal value.
func grow(current, spend float64) float64 {
	return round2(current + math.Sqrt(1+spend) - 1)
}
