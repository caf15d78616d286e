package prompts

import (
	"strings"
	"testing"
)

func TestLookupGameSystem(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"pf1", "pf1e"},
		{"PF1E", "pf1e"},
		{"dnd5e", "dnd5e"},
		{"pf2e", "pf2e"},
		{"foundry-ironsworn", "foundry-ironsworn"},
		{"", GenericSystem},
		{"starfinder", GenericSystem},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := LookupGameSystem(tt.id).ID; got != tt.want {
				t.Errorf("LookupGameSystem(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestGameSystemPromptsShareFormatting(t *testing.T) {
	for _, gs := range GameSystems() {
		if !strings.Contains(gs.Prompt, genericPrompt) {
			t.Errorf("%s prompt is missing the generic guidance", gs.ID)
		}
		if !strings.HasSuffix(gs.Prompt, formatPrompt) {
			t.Errorf("%s prompt should end with the format guidance", gs.ID)
		}
	}
	if got := len(GameSystems()); got != 5 {
		t.Errorf("expected 5 game systems, got %d", got)
	}
}

func TestSystemPrompt_CustomOverrides(t *testing.T) {
	if got := SystemPrompt("dnd5e", "  Be a pirate.  "); got != "Be a pirate." {
		t.Errorf("expected custom prompt, got %q", got)
	}
	if got := SystemPrompt("dnd5e", "   "); !strings.HasPrefix(got, "You are a dungeon master") {
		t.Errorf("expected dnd5e prompt for blank override, got %q", got)
	}
}
