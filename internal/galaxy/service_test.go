package galaxy

import "testing"

func TestValidateStandingOrders(t *testing.T) {
	tests := []struct {
		name     string
		standing StandingOrders
		wantErr  bool
	}{
		{"empty is valid", StandingOrders{}, false},
		{
			"full allocation",
			StandingOrders{Industry: &IndustryTemplate{Expand: 50, Research: 20, Build: 30}},
			false,
		},
		{
			"partial allocation",
			StandingOrders{Industry: &IndustryTemplate{Build: 40}},
			false,
		},
		{
			"over 100 percent",
			StandingOrders{Industry: &IndustryTemplate{Expand: 60, Research: 30, Build: 20}},
			true,
		},
		{
			"negative percentage",
			StandingOrders{Industry: &IndustryTemplate{Expand: -10, Build: 50}},
			true,
		},
		{
			"move without destination",
			StandingOrders{Move: &MoveTemplate{}},
			true,
		},
		{
			"move with destination",
			StandingOrders{Move: &MoveTemplate{DestinationStarID: 9}},
			false,
		},
		{
			"industry and move together",
			StandingOrders{
				Industry: &IndustryTemplate{Expand: 25, Build: 25},
				Move:     &MoveTemplate{DestinationStarID: 2, ShipIDs: []int{1}},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStandingOrders(tt.standing)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStandingOrders() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndustryTemplatePercentTotal(t *testing.T) {
	template := IndustryTemplate{Expand: 30, Research: 20, Build: 50}
	if got := template.PercentTotal(); got != 100 {
		t.Fatalf("PercentTotal() = %d, want 100", got)
	}
	if template.IsEmpty() {
		t.Fatal("template with allocations reported empty")
	}
	if !(&IndustryTemplate{}).IsEmpty() {
		t.Fatal("zero template not reported empty")
	}
}
