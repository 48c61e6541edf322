package turn

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"starfall-server/internal/galaxy"
	"starfall-server/internal/order"
	"starfall-server/internal/shared/errors"
)

// Materializer converts per-star standing order templates into concrete
// order drafts at turn open. The drafts it creates behave exactly like
// player-authored ones: visible, editable, and subject to finalization.
type Materializer struct {
	galaxyRepo *galaxy.Repository
	orders     *order.Service
	logger     *slog.Logger
}

func NewMaterializer(galaxyRepo *galaxy.Repository, orders *order.Service, logger *slog.Logger) *Materializer {
	return &Materializer{
		galaxyRepo: galaxyRepo,
		orders:     orders,
		logger:     logger,
	}
}

// Run materializes standing orders for every owned star in the game into
// drafts on the given turn. Failures are per star: a bad template on one
// star never blocks the rest, and already-materialized stars are skipped so
// the call is safe to repeat.
func (m *Materializer) Run(ctx context.Context, gameID, turnID int) error {
	logger := m.logger.With(
		"component", "materializer",
		"operation", "run",
		"game_id", gameID,
		"turn_id", turnID,
	)
	logger.Info("Materializing standing orders")

	states, err := m.galaxyRepo.ListOwnedStarStates(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to list owned star states: %w", err)
	}

	materialized := 0
	for i := range states {
		state := &states[i]
		standing := state.Details.StandingOrders
		if standing == nil || state.OwnerID == nil {
			continue
		}

		if standing.Industry != nil && !standing.Industry.IsEmpty() {
			if err := m.materializeIndustry(ctx, gameID, turnID, *state.OwnerID, state, standing.Industry); err != nil {
				logger.Warn("Failed to materialize industry template",
					"star_id", state.StarID, "error", err)
			} else {
				materialized++
			}
		}

		if standing.Move != nil {
			if err := m.materializeMove(ctx, gameID, turnID, *state.OwnerID, state.StarID, standing.Move); err != nil {
				logger.Warn("Failed to materialize move template",
					"star_id", state.StarID, "error", err)
			} else {
				materialized++
			}
		}
	}

	logger.Info("Standing orders materialized", "drafts", materialized)
	return nil
}

// templateAmounts resolves an industry template's percentages against a
// star's available points. Amounts are floored; when rounding still pushes
// the sum past the available total the amounts are scaled back
// proportionally and floored again.
func templateAmounts(available float64, template *galaxy.IndustryTemplate) (expand, research, build float64) {
	expand = math.Floor(available * float64(template.Expand) / 100)
	research = math.Floor(available * float64(template.Research) / 100)
	build = math.Floor(available * float64(template.Build) / 100)

	total := expand + research + build
	if total > available && total > 0 {
		scale := available / total
		expand = math.Floor(expand * scale)
		research = math.Floor(research * scale)
		build = math.Floor(build * scale)
	}
	return expand, research, build
}

func (m *Materializer) materializeIndustry(ctx context.Context, gameID, turnID, playerID int, state *galaxy.StarState, template *galaxy.IndustryTemplate) error {
	expand, research, build := templateAmounts(state.Available, template)
	if expand == 0 && research == 0 && build == 0 {
		return nil
	}

	clientOrderID := fmt.Sprintf("standing-build-%d", state.StarID)
	payload := order.AutoBuildPayload{
		StarID:            state.StarID,
		Expand:            expand,
		Research:          research,
		Build:             build,
		FromStandingOrder: true,
	}

	_, err := m.orders.CreateDraft(ctx, gameID, turnID, playerID, clientOrderID, payload)
	if err != nil {
		if errors.GetType(err) == errors.ErrorTypeConflict {
			// Already materialized on this turn.
			return nil
		}
		return err
	}
	return nil
}

func (m *Materializer) materializeMove(ctx context.Context, gameID, turnID, playerID, starID int, template *galaxy.MoveTemplate) error {
	clientOrderID := fmt.Sprintf("standing-move-%d", starID)

	var payload order.Payload
	if len(template.ShipIDs) > 0 {
		payload = order.MovePayload{
			FromStarID: starID,
			ToStarID:   template.DestinationStarID,
			ShipIDs:    template.ShipIDs,
		}
	} else {
		payload = order.AutoMovePayload{
			FromStarID: starID,
			ToStarID:   template.DestinationStarID,
		}
	}

	_, err := m.orders.CreateDraft(ctx, gameID, turnID, playerID, clientOrderID, payload)
	if err != nil {
		if errors.GetType(err) == errors.ErrorTypeConflict {
			return nil
		}
		return err
	}
	return nil
}
