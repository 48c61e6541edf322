package turn

import (
	"testing"

	"starfall-server/internal/galaxy"
)

func TestTemplateAmounts(t *testing.T) {
	tests := []struct {
		name      string
		available float64
		template  galaxy.IndustryTemplate
		expand    float64
		research  float64
		build     float64
	}{
		{
			name:      "even split",
			available: 100,
			template:  galaxy.IndustryTemplate{Expand: 50, Build: 50},
			expand:    50, build: 50,
		},
		{
			name:      "amounts floor",
			available: 55,
			template:  galaxy.IndustryTemplate{Expand: 33, Research: 33, Build: 33},
			expand:    18, research: 18, build: 18,
		},
		{
			name:      "full allocation on odd total",
			available: 7,
			template:  galaxy.IndustryTemplate{Expand: 50, Research: 25, Build: 25},
			expand:    3, research: 1, build: 1,
		},
		{
			name:      "zero available",
			available: 0,
			template:  galaxy.IndustryTemplate{Expand: 100},
		},
		{
			name:      "single bucket",
			available: 20,
			template:  galaxy.IndustryTemplate{Research: 100},
			research:  20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expand, research, build := templateAmounts(tt.available, &tt.template)
			if expand != tt.expand || research != tt.research || build != tt.build {
				t.Fatalf("templateAmounts(%v, %+v) = (%v, %v, %v), want (%v, %v, %v)",
					tt.available, tt.template, expand, research, build,
					tt.expand, tt.research, tt.build)
			}
		})
	}
}

func TestTemplateAmountsNeverExceedAvailable(t *testing.T) {
	templates := []galaxy.IndustryTemplate{
		{Expand: 100},
		{Expand: 34, Research: 33, Build: 33},
		{Expand: 50, Research: 50},
		{Build: 99},
	}
	for _, template := range templates {
		for available := 0.0; available <= 25; available += 0.5 {
			expand, research, build := templateAmounts(available, &template)
			if sum := expand + research + build; sum > available {
				t.Fatalf("template %+v at available %v allocated %v", template, available, sum)
			}
		}
	}
}
