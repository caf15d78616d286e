package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/table-assist/pkg/chat"
)

func TestBuilder_Build_RequiresQuery(t *testing.T) {
	_, err := New().WithGameSystem("pf1", "").WithQuery("   ").Build()
	if err == nil {
		t.Fatal("Expected error when query is empty")
	}
	if err.Error() != "query is required" {
		t.Errorf("Expected 'query is required' error, got: %v", err)
	}
}

func TestBuilder_Build_SystemPrompt(t *testing.T) {
	p, err := New().
		WithGameSystem("pf1", "").
		WithInstructions(InventoryInstructions).
		WithContext(InventoryContextHeader, "3x Arrow").
		WithContext(SkillContextHeader, "").
		WithQuery(" how many arrows? ").
		Build()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.HasPrefix(p.System, "You are a game master for a Pathfinder 1st Edition game.") {
		t.Errorf("System prompt has wrong preamble: %q", p.System)
	}
	if !strings.Contains(p.System, "\n\n"+InventoryInstructions) {
		t.Error("Expected inventory instructions in system prompt")
	}
	if !strings.HasSuffix(p.System, InventoryContextHeader+"\n3x Arrow") {
		t.Errorf("Expected inventory context at end of system prompt, got %q", p.System)
	}
	if strings.Contains(p.System, SkillContextHeader) {
		t.Error("Empty context blocks should be skipped")
	}
	if p.Query != "how many arrows?" {
		t.Errorf("Expected trimmed query, got %q", p.Query)
	}
}

func TestBuilder_HistoryWindow(t *testing.T) {
	history := []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "one"},
		{Role: chat.ChatRoleAgent, Content: "two"},
		{Role: chat.ChatRoleUser, Content: "three"},
		{Role: chat.ChatRoleAgent, Content: "four"},
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"stateless by default", 0, nil},
		{"window smaller than history", 2, []string{"three", "four"}},
		{"window larger than history", 10, []string{"one", "two", "three", "four"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New().WithHistory(history).WithHistoryLimit(tt.limit).WithQuery("q").Build()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(p.History) != len(tt.want) {
				t.Fatalf("Expected %d history messages, got %d", len(tt.want), len(p.History))
			}
			for i, w := range tt.want {
				if p.History[i].Content != w {
					t.Errorf("History[%d] = %q, want %q", i, p.History[i].Content, w)
				}
			}
		})
	}
}

func TestPrompt_Messages(t *testing.T) {
	p := Prompt{
		System:  "sys",
		History: []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "earlier"}},
		Query:   "now",
	}
	msgs := p.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != chat.ChatRoleSystem || msgs[0].Content != "sys" {
		t.Errorf("Unexpected system message: %+v", msgs[0])
	}
	if msgs[2].Role != chat.ChatRoleUser || msgs[2].Content != "now" {
		t.Errorf("Unexpected query message: %+v", msgs[2])
	}
}
