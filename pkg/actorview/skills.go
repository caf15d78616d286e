package actorview

import (
	"strings"
)

// SkillNames maps pf1 skill keys to display names.
var SkillNames = map[string]string{
	"acr": "Acrobatics",
	"apr": "Appraise",
	"blf": "Bluff",
	"clm": "Climb",
	"crf": "Craft",
	"dev": "Disable Device",
	"dip": "Diplomacy",
	"dis": "Disguise",
	"esc": "Escape Artist",
	"fly": "Fly",
	"han": "Handle Animal",
	"hea": "Heal",
	"int": "Intimidate",
	"kar": "Knowledge (arcana)",
	"kdu": "Knowledge (dungeoneering)",
	"ken": "Knowledge (engineering)",
	"kge": "Knowledge (geography)",
	"khi": "Knowledge (history)",
	"klo": "Knowledge (local)",
	"kna": "Knowledge (nature)",
	"kno": "Knowledge (nobility)",
	"kpl": "Knowledge (planes)",
	"kre": "Knowledge (religion)",
	"lin": "Linguistics",
	"per": "Perception",
	"prf": "Perform",
	"pro": "Profession",
	"rid": "Ride",
	"sen": "Sense Motive",
	"slt": "Sleight of Hand",
	"spl": "Spellcraft",
	"ste": "Stealth",
	"sur": "Survival",
	"swm": "Swim",
	"umd": "Use Magic Device",
}

var skillKeysByName = func() map[string]string {
	m := make(map[string]string, len(SkillNames)*2)
	for key, name := range SkillNames {
		lower := strings.ToLower(name)
		m[lower] = key
		m[skillNameReplacer.Replace(lower)] = key
	}
	return m
}()

var skillNameReplacer = strings.NewReplacer("(", "", ")", "")

// SkillKey resolves a skill name or abbreviation to its key. Unknown names
// fall back to the lowercased input.
func SkillKey(name string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if _, ok := SkillNames[n]; ok {
		return n
	}
	if key, ok := skillKeysByName[n]; ok {
		return key
	}
	return n
}

// SkillName returns the display name for a key, or the key itself.
func SkillName(key string) string {
	if name, ok := SkillNames[key]; ok {
		return name
	}
	return key
}
