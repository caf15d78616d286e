package command

import (
	"regexp"
	"strconv"
	"strings"
)

const count = `(?:(\d+|an?|one)\s+)?`

var inventoryRules = []Rule{
	{
		Name:    "give",
		Pattern: regexp.MustCompile(`(?i)^(?:give|hand|pass)\s+` + count + `(.+?)\s+to\s+(.+)$`),
		Parse: func(m []string) (Intent, bool) {
			n, ok := parseCount(m[1])
			if !ok {
				return nil, false
			}
			return GiftTransfer{
				Amount:     n,
				ItemName:   cleanItemName(m[2]),
				TargetName: strings.TrimRight(strings.TrimSpace(m[3]), ".!?"),
			}, true
		},
	},
	{
		Name:    "unequip",
		Pattern: regexp.MustCompile(`(?i)^(?:unequip|unwield|doff|take\s+off)\s+(.+)$`),
		Parse: func(m []string) (Intent, bool) {
			return EquipToggle{On: false, ItemName: cleanItemName(m[1])}, true
		},
	},
	{
		Name:    "equip",
		Pattern: regexp.MustCompile(`(?i)^(?:equip|wield|don|put\s+on)\s+(.+)$`),
		Parse: func(m []string) (Intent, bool) {
			return EquipToggle{On: true, ItemName: cleanItemName(m[1])}, true
		},
	},
	{
		Name:    "set",
		Pattern: regexp.MustCompile(`(?i)^set\s+(.+?)\s+(?:quantity\s+|count\s+)?to\s+(\d+)$`),
		Parse: func(m []string) (Intent, bool) {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, false
			}
			return InventoryMutation{Op: OpSet, Amount: n, ItemName: cleanItemName(m[1])}, true
		},
	},
	{
		Name:    "add",
		Pattern: regexp.MustCompile(`(?i)^(?:add|gain|get|pick\s+up|receive|found)\s+` + count + `(.+)$`),
		Parse: func(m []string) (Intent, bool) {
			n, ok := parseCount(m[1])
			if !ok {
				return nil, false
			}
			return InventoryMutation{Op: OpAdd, Amount: n, ItemName: cleanItemName(m[2])}, true
		},
	},
	{
		Name:    "remove",
		Pattern: regexp.MustCompile(`(?i)^(?:remove|use|used|drop|lose|lost|consume|spend|spent)\s+` + count + `(.+)$`),
		Parse: func(m []string) (Intent, bool) {
			n, ok := parseCount(m[1])
			if !ok {
				return nil, false
			}
			return InventoryMutation{Op: OpAdd, Amount: -n, ItemName: cleanItemName(m[2])}, true
		},
	},
}

const skillSuffix = `(?:\s+skill)?\.?$`

var skillRules = []Rule{
	{
		Name:    "increase",
		Pattern: regexp.MustCompile(`(?i)^(?:add|increase|put|invest)\s+` + count + `ranks?\s+(?:to|in|into)\s+(?:my\s+)?(.+?)` + skillSuffix),
		Parse: func(m []string) (Intent, bool) {
			n, ok := parseCount(m[1])
			if !ok {
				return nil, false
			}
			return SkillMutation{Op: SkillIncrease, Amount: n, SkillName: m[2]}, true
		},
	},
	{
		Name:    "decrease",
		Pattern: regexp.MustCompile(`(?i)^(?:remove|decrease|take|subtract)\s+` + count + `ranks?\s+(?:from|in|out\s+of)\s+(?:my\s+)?(.+?)` + skillSuffix),
		Parse: func(m []string) (Intent, bool) {
			n, ok := parseCount(m[1])
			if !ok {
				return nil, false
			}
			return SkillMutation{Op: SkillDecrease, Amount: n, SkillName: m[2]}, true
		},
	},
	{
		Name:    "raise-by",
		Pattern: regexp.MustCompile(`(?i)^(increase|raise|decrease|lower)\s+(?:my\s+)?(.+?)\s+(?:ranks?\s+)?by\s+(\d+)(?:\s+ranks?)?\.?$`),
		Parse: func(m []string) (Intent, bool) {
			n, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, false
			}
			op := SkillIncrease
			if v := strings.ToLower(m[1]); v == "decrease" || v == "lower" {
				op = SkillDecrease
			}
			return SkillMutation{Op: op, Amount: n, SkillName: m[2]}, true
		},
	},
	{
		Name:    "set",
		Pattern: regexp.MustCompile(`(?i)^set\s+(?:my\s+)?(.+?)\s+(?:skill\s+)?ranks?\s+to\s+(\d+)\.?$`),
		Parse: func(m []string) (Intent, bool) {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, false
			}
			return SkillMutation{Op: SkillSet, Amount: n, SkillName: m[1]}, true
		},
	},
}

// ClassifyInventory turns the text of an inventory command into a mutation
// intent, or an InventoryQuery when no action pattern matches.
func ClassifyInventory(text string) Intent {
	text = strings.TrimSpace(text)
	if in, ok := match(inventoryRules, text); ok {
		return in
	}
	return InventoryQuery{Text: text}
}

// ClassifySkill turns the text of a skill command into a mutation intent,
// or a SkillQuery when no action pattern matches.
func ClassifySkill(text string) Intent {
	text = strings.TrimSpace(text)
	if in, ok := match(skillRules, text); ok {
		return in
	}
	return SkillQuery{Text: text}
}

func match(rules []Rule, text string) (Intent, bool) {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if in, ok := r.Parse(m); ok {
			return in, true
		}
	}
	return nil, false
}
