package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Intent
		wantOK bool
	}{
		{
			name:   "general query",
			line:   "/? how does grappling work",
			want:   GeneralQuery{Question: "how does grappling work"},
			wantOK: true,
		},
		{
			name:   "whisper to gpt only",
			line:   "/w gpt is the door trapped?",
			want:   WhisperQuery{Question: "is the door trapped?"},
			wantOK: true,
		},
		{
			name:   "whisper to gpt and others",
			line:   "/whisper [GPT, gm, Bob] what do we know",
			want:   WhisperQuery{Targets: []string{"gm", "Bob"}, Question: "what do we know"},
			wantOK: true,
		},
		{
			name: "whisper without gpt passes through",
			line: "/w [gm, Bob] hello",
		},
		{
			name:   "explicit add",
			line:   "/i add 1 Wand of Fireballs",
			want:   InventoryMutation{Op: OpAdd, Amount: 1, ItemName: "Wand of Fireballs"},
			wantOK: true,
		},
		{
			name:   "explicit set",
			line:   "/i set 12 arrows",
			want:   InventoryMutation{Op: OpSet, Amount: 12, ItemName: "arrows"},
			wantOK: true,
		},
		{
			name:   "natural remove",
			line:   "/i remove 3 arrows from inventory",
			want:   InventoryMutation{Op: OpAdd, Amount: -3, ItemName: "arrows"},
			wantOK: true,
		},
		{
			name:   "inventory query",
			line:   "/i how many potions do I have?",
			want:   InventoryQuery{Text: "how many potions do I have?"},
			wantOK: true,
		},
		{
			name:   "bare inventory",
			line:   "/i",
			want:   InventoryQuery{},
			wantOK: true,
		},
		{
			name:   "skill mutation",
			line:   "/s set my stealth ranks to 20",
			want:   SkillMutation{Op: SkillSet, Amount: 20, SkillName: "stealth"},
			wantOK: true,
		},
		{
			name:   "skill query",
			line:   "/s what is my best skill",
			want:   SkillQuery{Text: "what is my best skill"},
			wantOK: true,
		},
		{
			name: "unrelated slash command",
			line: "/inventory",
		},
		{
			name: "plain chat",
			line: "I open the door",
		},
		{
			name: "general query needs text",
			line: "/?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyInventory(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"give 2 potions to Bob", GiftTransfer{Amount: 2, ItemName: "potions", TargetName: "Bob"}},
		{"give a rope to Bob.", GiftTransfer{Amount: 1, ItemName: "rope", TargetName: "Bob"}},
		{"equip my longsword", EquipToggle{On: true, ItemName: "longsword"}},
		{"put on the ring of protection", EquipToggle{On: true, ItemName: "ring of protection"}},
		{"unequip the shield", EquipToggle{On: false, ItemName: "shield"}},
		{"take off my cloak", EquipToggle{On: false, ItemName: "cloak"}},
		{"set arrows to 20", InventoryMutation{Op: OpSet, Amount: 20, ItemName: "arrows"}},
		{"set my torch count to 4", InventoryMutation{Op: OpSet, Amount: 4, ItemName: "torch"}},
		{"add a rope to my pack", InventoryMutation{Op: OpAdd, Amount: 1, ItemName: "rope"}},
		{"pick up 10 gold", InventoryMutation{Op: OpAdd, Amount: 10, ItemName: "gold"}},
		{"use one clw", InventoryMutation{Op: OpAdd, Amount: -1, ItemName: "clw"}},
		{"drop the torch", InventoryMutation{Op: OpAdd, Amount: -1, ItemName: "torch"}},
		{"what am I carrying", InventoryQuery{Text: "what am I carrying"}},
		{"", InventoryQuery{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyInventory(tt.text))
		})
	}
}

func TestClassifySkill(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"add 2 ranks to stealth", SkillMutation{Op: SkillIncrease, Amount: 2, SkillName: "stealth"}},
		{"put a rank into my perception skill", SkillMutation{Op: SkillIncrease, Amount: 1, SkillName: "perception"}},
		{"remove 1 rank from climb", SkillMutation{Op: SkillDecrease, Amount: 1, SkillName: "climb"}},
		{"increase my acrobatics by 3", SkillMutation{Op: SkillIncrease, Amount: 3, SkillName: "acrobatics"}},
		{"lower my climb ranks by 1", SkillMutation{Op: SkillDecrease, Amount: 1, SkillName: "climb"}},
		{"set stealth ranks to 5", SkillMutation{Op: SkillSet, Amount: 5, SkillName: "stealth"}},
		{"set my Knowledge (arcana) skill ranks to 2", SkillMutation{Op: SkillSet, Amount: 2, SkillName: "Knowledge (arcana)"}},
		{"how is my stealth calculated", SkillQuery{Text: "how is my stealth calculated"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySkill(tt.text))
		})
	}
}

func TestIsQuery(t *testing.T) {
	in, ok := Classify("/i what do I have")
	require.True(t, ok)
	assert.True(t, IsQuery(in))
	assert.Equal(t, KindInventoryQuery, in.Kind())

	in, ok = Classify("/i add 2 rope")
	require.True(t, ok)
	assert.False(t, IsQuery(in))
	assert.Equal(t, KindInventoryMutation, in.Kind())
}

func TestClassifyOversizedCountFallsBackToQuery(t *testing.T) {
	huge := "99999999999999999999"
	tests := []struct {
		line string
		want Intent
	}{
		{"/i add " + huge + " arrows", InventoryQuery{Text: "add " + huge + " arrows"}},
		{"/i remove " + huge + " arrows", InventoryQuery{Text: "remove " + huge + " arrows"}},
		{"/i give " + huge + " arrows to Bob", InventoryQuery{Text: "give " + huge + " arrows to Bob"}},
		{"/s add " + huge + " ranks to stealth", SkillQuery{Text: "add " + huge + " ranks to stealth"}},
		{"/s remove " + huge + " ranks from stealth", SkillQuery{Text: "remove " + huge + " ranks from stealth"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Classify(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
