package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/scenestack/internal/presentation/graph"
	"github.com/aretw0/scenestack/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		entries     []domain.Entry
		contains    []string
		notContains []string
	}{
		{
			name:        "Empty History",
			entries:     nil,
			contains:    []string{"graph BT"},
			notContains: []string{"classDef"},
		},
		{
			name: "Root And Default Shapes",
			entries: []domain.Entry{
				{Type: "title", State: domain.StateSleep},
				{Type: "stage", State: domain.StateProcessing},
			},
			contains: []string{
				"e0_title((\"title <br/> sleep\"))",
				"e1_stage[\"stage <br/> processing\"]",
				"e0_title --> e1_stage",
				"class e0_title sleep;",
				"class e1_stage current;",
			},
		},
		{
			name: "Dialog Awaits Caller",
			entries: []domain.Entry{
				{Type: "stage", State: domain.StateProcessing},
				{Type: "confirm", State: domain.StateProcessing, Dialog: true},
			},
			contains: []string{
				"e1_confirm[/\"confirm <br/> processing\"/]",
				"e0_stage -. awaits .-> e1_confirm",
				"class e1_confirm current;",
			},
			notContains: []string{"class e0_stage current;"},
		},
		{
			name: "ID Sanitization",
			entries: []domain.Entry{
				{Type: "menu/options.main-tab", State: domain.StateProcessing},
			},
			contains: []string{"e0_menu_options_main_tab((\"menu/options.main-tab <br/> processing\"))"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.entries)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output NOT to contain %q, got:\n%s", unwanted, got)
				}
			}
		})
	}
}
