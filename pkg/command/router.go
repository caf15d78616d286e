package command

import (
	"regexp"
	"strconv"
	"strings"
)

// AssistantAlias is the whisper target that addresses the assistant.
const AssistantAlias = "gpt"

// Rule pairs a pattern with a parser. A parser may decline a match by
// returning false, in which case later rules are tried.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Parse   func(m []string) (Intent, bool)
}

// Rules are the line-level commands in priority order.
var Rules = []Rule{
	{
		Name:    "whisper",
		Pattern: regexp.MustCompile(`(?is)^/w(?:hisper)?\s+(\[[^\]]+\]|\S+)\s*(.*)$`),
		Parse:   parseWhisper,
	},
	{
		Name:    "skill",
		Pattern: regexp.MustCompile(`(?is)^/s(?:\s+(.*))?$`),
		Parse: func(m []string) (Intent, bool) {
			return ClassifySkill(m[1]), true
		},
	},
	{
		Name:    "inventory-mutation",
		Pattern: regexp.MustCompile(`(?is)^/i\s+(add|set)\s+(\d+)\s+(.+)$`),
		Parse: func(m []string) (Intent, bool) {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, false
			}
			op := OpAdd
			if strings.EqualFold(m[1], "set") {
				op = OpSet
			}
			return InventoryMutation{Op: op, Amount: n, ItemName: cleanItemName(m[3])}, true
		},
	},
	{
		Name:    "inventory",
		Pattern: regexp.MustCompile(`(?is)^/i(?:\s+(.*))?$`),
		Parse: func(m []string) (Intent, bool) {
			return ClassifyInventory(m[1]), true
		},
	},
	{
		Name:    "general",
		Pattern: regexp.MustCompile(`(?is)^/\?\s+(.*)$`),
		Parse: func(m []string) (Intent, bool) {
			return GeneralQuery{Question: strings.TrimSpace(m[1])}, true
		},
	},
}

// Classify returns the intent for a chat line. Lines that match no rule
// are not commands and are reported with ok == false.
func Classify(line string) (Intent, bool) {
	line = strings.TrimSpace(line)
	for _, r := range Rules {
		m := r.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if in, ok := r.Parse(m); ok {
			return in, true
		}
	}
	return nil, false
}

func parseWhisper(m []string) (Intent, bool) {
	raw := strings.TrimSpace(m[1])
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")

	found := false
	var targets []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.EqualFold(t, AssistantAlias) {
			found = true
			continue
		}
		targets = append(targets, t)
	}
	if !found {
		return nil, false
	}
	return WhisperQuery{Targets: targets, Question: strings.TrimSpace(m[2])}, true
}

// parseCount reads an optional count word. Digit strings that do not fit
// in an int are rejected so the rule declines instead of guessing.
func parseCount(s string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "a", "an", "one":
		return 1, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

var (
	inventorySuffix = regexp.MustCompile(`(?i)\s+(?:to|from|in|into|out\s+of)\s+(?:my\s+|the\s+)?(?:inventory|pack|bag|backpack|gear)$`)
	articlePrefix   = regexp.MustCompile(`(?i)^(?:my|the|some)\s+`)
)

func cleanItemName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".!?")
	s = inventorySuffix.ReplaceAllString(s, "")
	s = articlePrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
