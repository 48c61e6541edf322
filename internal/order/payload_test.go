package order

import (
	"encoding/json"
	"testing"
)

func TestDecodePayloadBuild(t *testing.T) {
	raw := json.RawMessage(`{"star_id": 3, "ships": 5}`)

	payload, err := DecodePayload(TypeBuild, raw)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}

	p, ok := payload.(BuildPayload)
	if !ok {
		t.Fatalf("expected BuildPayload, got %T", payload)
	}
	if p.StarID != 3 || p.Ships != 5 {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.SourceStarID() != 3 {
		t.Fatalf("SourceStarID() = %d, want 3", p.SourceStarID())
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	_, err := DecodePayload(Type("bombard"), json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error for unknown order type")
	}
}

func TestBuildPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload BuildPayload
		wantErr bool
	}{
		{"valid", BuildPayload{StarID: 1, Ships: 1}, false},
		{"missing star", BuildPayload{Ships: 1}, true},
		{"zero ships", BuildPayload{StarID: 1}, true},
		{"negative ships", BuildPayload{StarID: 1, Ships: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAutoBuildPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload AutoBuildPayload
		wantErr bool
	}{
		{"valid split", AutoBuildPayload{StarID: 1, Expand: 10, Research: 5, Build: 20}, false},
		{"build only", AutoBuildPayload{StarID: 1, Build: 20}, false},
		{"allocates nothing", AutoBuildPayload{StarID: 1}, true},
		{"negative amount", AutoBuildPayload{StarID: 1, Expand: -1, Build: 5}, true},
		{"missing star", AutoBuildPayload{Build: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMovePayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload MovePayload
		wantErr bool
	}{
		{"valid with ships", MovePayload{FromStarID: 1, ToStarID: 2, ShipIDs: []int{4, 5}}, false},
		{"valid empty selection", MovePayload{FromStarID: 1, ToStarID: 2}, false},
		{"same source and destination", MovePayload{FromStarID: 1, ToStarID: 1}, true},
		{"missing destination", MovePayload{FromStarID: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := AutoBuildPayload{StarID: 7, Expand: 30, Research: 20, Build: 50, FromStandingOrder: true}

	raw, err := EncodePayload(original)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	decoded, err := DecodePayload(TypeAutoBuild, raw)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if decoded.(AutoBuildPayload) != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}
