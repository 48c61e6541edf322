package order

import (
	"encoding/json"
	"fmt"

	"starfall-server/internal/shared/errors"
)

type Type string

const (
	// TypeBuild requests a number of ships at a star.
	TypeBuild Type = "build"
	// TypeAutoBuild spends point amounts on expand/research/build, usually
	// materialized from a standing order.
	TypeAutoBuild Type = "auto_build"
	// TypeMove relocates a ship selection between stars.
	TypeMove Type = "move"
	// TypeAutoMove relocates every ship at the source star, resolved against
	// the fleet present at resolution time.
	TypeAutoMove Type = "auto_move"
)

// Payload is the closed union of order payloads. Each order type has its own
// concrete shape; the resolution engine switches exhaustively over them.
type Payload interface {
	Type() Type
	Validate() error
	// SourceStarID is the star the order acts from, used for per-star queries.
	SourceStarID() int
}

type BuildPayload struct {
	StarID int `json:"star_id"`
	Ships  int `json:"ships"`
}

func (p BuildPayload) Type() Type        { return TypeBuild }
func (p BuildPayload) SourceStarID() int { return p.StarID }

func (p BuildPayload) Validate() error {
	if p.StarID <= 0 {
		return errors.Validation("build order requires a star")
	}
	if p.Ships <= 0 {
		return errors.Validation("build order requires a positive ship count")
	}
	return nil
}

type AutoBuildPayload struct {
	StarID            int     `json:"star_id"`
	Expand            float64 `json:"expand"`
	Research          float64 `json:"research"`
	Build             float64 `json:"build"`
	FromStandingOrder bool    `json:"from_standing_order,omitempty"`
}

func (p AutoBuildPayload) Type() Type        { return TypeAutoBuild }
func (p AutoBuildPayload) SourceStarID() int { return p.StarID }

func (p AutoBuildPayload) Validate() error {
	if p.StarID <= 0 {
		return errors.Validation("auto build order requires a star")
	}
	if p.Expand < 0 || p.Research < 0 || p.Build < 0 {
		return errors.Validation("auto build amounts must not be negative")
	}
	if p.Expand == 0 && p.Research == 0 && p.Build == 0 {
		return errors.Validation("auto build order allocates nothing")
	}
	return nil
}

type MovePayload struct {
	FromStarID int   `json:"from_star_id"`
	ToStarID   int   `json:"to_star_id"`
	ShipIDs    []int `json:"ship_ids,omitempty"`
}

func (p MovePayload) Type() Type        { return TypeMove }
func (p MovePayload) SourceStarID() int { return p.FromStarID }

func (p MovePayload) Validate() error {
	if p.FromStarID <= 0 || p.ToStarID <= 0 {
		return errors.Validation("move order requires source and destination stars")
	}
	if p.FromStarID == p.ToStarID {
		return errors.Validation("move order source and destination must differ")
	}
	return nil
}

type AutoMovePayload struct {
	FromStarID int `json:"from_star_id"`
	ToStarID   int `json:"to_star_id"`
}

func (p AutoMovePayload) Type() Type        { return TypeAutoMove }
func (p AutoMovePayload) SourceStarID() int { return p.FromStarID }

func (p AutoMovePayload) Validate() error {
	if p.FromStarID <= 0 || p.ToStarID <= 0 {
		return errors.Validation("auto move order requires source and destination stars")
	}
	if p.FromStarID == p.ToStarID {
		return errors.Validation("auto move order source and destination must differ")
	}
	return nil
}

// DecodePayload parses raw JSON into the concrete payload for an order type.
// Unknown types are a validation error, never a silent passthrough.
func DecodePayload(orderType Type, raw json.RawMessage) (Payload, error) {
	switch orderType {
	case TypeBuild:
		var p BuildPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode build payload: %w", err)
		}
		return p, nil
	case TypeAutoBuild:
		var p AutoBuildPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode auto build payload: %w", err)
		}
		return p, nil
	case TypeMove:
		var p MovePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode move payload: %w", err)
		}
		return p, nil
	case TypeAutoMove:
		var p AutoMovePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode auto move payload: %w", err)
		}
		return p, nil
	default:
		return nil, errors.Validationf("unknown order type %q", orderType)
	}
}

// EncodePayload serializes a payload for storage.
func EncodePayload(payload Payload) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", payload.Type(), err)
	}
	return raw, nil
}
