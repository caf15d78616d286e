package prompts

import (
	"sort"
	"strings"
)

const genericPrompt = "I would like you to help me with running the game by coming up with ideas, answering questions, and improvising. Keep responses as short as possible. Stick to the rules as much as possible."

const formatPrompt = "Always format each answer as HTML code without CSS, including lists and tables. Never use Markdown."

// GenericSystem is used when no game system is configured or the configured one is unknown.
const GenericSystem = "generic"

// GameSystem describes a supported game system and its default system prompt.
type GameSystem struct {
	ID     string
	Name   string
	Prompt string
}

var gameSystems = map[string]GameSystem{
	GenericSystem: {
		ID:     GenericSystem,
		Name:   "Generic tabletop RPG",
		Prompt: "You are a game master for a tabletop roleplaying game. " + genericPrompt + " " + formatPrompt,
	},
	"dnd5e": {
		ID:     "dnd5e",
		Name:   "Dungeons & Dragons 5th Edition",
		Prompt: "You are a dungeon master for a Dungeons & Dragons 5th Edition game. " + genericPrompt + " Properly format spells, monsters, conditions, and so on. " + formatPrompt,
	},
	"pf2e": {
		ID:     "pf2e",
		Name:   "Pathfinder Second Edition",
		Prompt: "You are a game master for a Pathfinder 2nd Edition game. " + genericPrompt + " Properly format spells, monsters, conditions, and so on. " + formatPrompt,
	},
	"pf1e": {
		ID:   "pf1e",
		Name: "Pathfinder First Edition",
		Prompt: "You are a game master for a Pathfinder 1st Edition game. " + genericPrompt +
			" Use open source Pathfinder 1e content from the SRD and Archives of Nethys to answer questions succinctly." +
			" Make sure not to confuse Pathfinder 1e with Pathfinder 2e, but if asked, it is okay to compare the two systems." +
			" Properly format spells, monsters, conditions, and other rules content. " + formatPrompt,
	},
	"foundry-ironsworn": {
		ID:     "foundry-ironsworn",
		Name:   "Ironsworn",
		Prompt: "You are a game master for an Ironsworn game. " + genericPrompt + " Properly format moves, oracle tables, and so on. " + formatPrompt,
	},
}

// aliases maps world data system ids onto prompt system ids.
var aliases = map[string]string{
	"pf1": "pf1e",
	"pf2": "pf2e",
}

// LookupGameSystem returns the game system for id, falling back to the generic system.
func LookupGameSystem(id string) GameSystem {
	id = strings.ToLower(strings.TrimSpace(id))
	if a, ok := aliases[id]; ok {
		id = a
	}
	if gs, ok := gameSystems[id]; ok {
		return gs
	}
	return gameSystems[GenericSystem]
}

// GameSystems lists the supported game systems ordered by id.
func GameSystems() []GameSystem {
	out := make([]GameSystem, 0, len(gameSystems))
	for _, gs := range gameSystems {
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SystemPrompt returns the custom prompt when set, otherwise the prompt for the game system.
func SystemPrompt(system, custom string) string {
	if c := strings.TrimSpace(custom); c != "" {
		return c
	}
	return LookupGameSystem(system).Prompt
}

// Context headers prepended to actor data in query prompts.
const (
	ActorContextHeader     = "Character sheet of the asking player's character:"
	InventoryContextHeader = "Relevant items in the character's inventory:"
	SkillContextHeader     = "The character's skills:"
	BreakdownContextHeader = "How the skill total is calculated:"
)

// InventoryInstructions are appended to the system prompt for inventory questions.
const InventoryInstructions = "Answer questions about the character's inventory using only the items listed. If an item is not listed, say the character does not have it."

// SkillInstructions are appended to the system prompt for skill questions.
const SkillInstructions = "Answer questions about the character's skills using the listed totals and ranks. Explain how a total is calculated when asked."
