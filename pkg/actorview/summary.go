package actorview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jwebster45206/table-assist/pkg/actor"
)

// NoItemsMessage is the item summary when nothing matches.
const NoItemsMessage = "No matching items found."

// ItemCount is an item name with its quantity.
type ItemCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Condition describes how hurt an actor is: healthy, wounded, bloodied or
// down. Empty when max HP is unknown.
func Condition(hp HP) string {
	da, err := buildCombatActor("condition", hp, 0, nil)
	if err != nil {
		return ""
	}
	return condition(da)
}

// Summarize renders a compact description of the actor for prompting.
func Summarize(v View, a *actor.Actor) string {
	if a == nil {
		return "No actor selected"
	}
	var b strings.Builder
	name := a.Name
	if name == "" {
		name = "Unknown"
	}
	fmt.Fprintf(&b, "Name: %s\n", name)

	hp := v.HP(a)
	fmt.Fprintf(&b, "Health: %d/%d", hp.Current, hp.Max)
	if hp.Temp > 0 {
		fmt.Fprintf(&b, " (+%d)", hp.Temp)
	}
	if da, err := CombatActor(v, a); err == nil {
		fmt.Fprintf(&b, " [%s]", condition(da))
	}
	b.WriteString("\n")
	if hp.Wounds != nil {
		fmt.Fprintf(&b, "Wounds: %d/%d\n", hp.Wounds.Value, hp.Wounds.Max)
	}
	if hp.Vigor != nil {
		fmt.Fprintf(&b, "Vigor: %d/%d\n", hp.Vigor.Value, hp.Vigor.Max)
	}

	if ac := v.AC(a); ac.Normal != 0 {
		fmt.Fprintf(&b, "AC: %d", ac.Normal)
		if ac.Touch != nil && ac.FlatFooted != nil {
			fmt.Fprintf(&b, " (touch %d, flat-footed %d)", *ac.Touch, *ac.FlatFooted)
		}
		b.WriteString("\n")
	}
	if s := v.Saves(a); s != (Saves{}) {
		fmt.Fprintf(&b, "Saves: Fort %s, Ref %s, Will %s\n", signed(s.Fort), signed(s.Ref), signed(s.Will))
	}
	bab, cmb := v.BAB(a), v.CMB(a)
	if bab != 0 || cmb != (CMB{}) {
		fmt.Fprintf(&b, "BAB: %s, CMB: %s, CMD: %d\n", signed(bab), signed(cmb.Bonus), cmb.Defense)
	}

	attrs := v.Attributes(a)
	var parts []string
	for _, k := range AbilityKeys {
		if at, ok := attrs[k]; ok {
			parts = append(parts, fmt.Sprintf("%s %d (%s)", strings.ToUpper(k), at.Value, signed(at.Mod)))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, "Abilities: %s\n", strings.Join(parts, ", "))
	}
	if lvl := v.Level(a); lvl > 0 {
		fmt.Fprintf(&b, "Level: %d\n", lvl)
	}
	if buffs := v.Buffs(a); len(buffs) > 0 {
		fmt.Fprintf(&b, "Active effects: %s\n", strings.Join(buffs, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SummarizeItems aggregates counts per name and renders them as "3x Arrow".
// Entries whose total is not positive are dropped.
func SummarizeItems(items []ItemCount) string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		if _, seen := counts[it.Name]; !seen {
			order = append(order, it.Name)
		}
		counts[it.Name] += it.Quantity
	}

	var parts []string
	for _, name := range order {
		n := counts[name]
		switch {
		case n <= 0:
			continue
		case n > 1:
			parts = append(parts, fmt.Sprintf("%dx %s", n, name))
		default:
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return NoItemsMessage
	}
	return strings.Join(parts, ", ")
}

// SummarizeSkills renders skills sorted by key, one per line.
func SummarizeSkills(skills map[string]Skill) string {
	if len(skills) == 0 {
		return "No skills available."
	}
	keys := make([]string, 0, len(skills))
	for k := range skills {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		s := skills[k]
		fmt.Fprintf(&b, "%s: %s (ranks %d", k, signed(s.Total), s.Ranks)
		if s.IsClassSkill {
			b.WriteString(", class skill")
		}
		if s.IsTrained {
			b.WriteString(", trained only")
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SummarizeBreakdown renders "ste +7 = dex modifier +3, Ranks +4".
func SummarizeBreakdown(bd *Breakdown) string {
	if bd == nil {
		return ""
	}
	parts := make([]string, 0, len(bd.Components))
	for _, c := range bd.Components {
		parts = append(parts, c.Name+" "+signed(c.Value))
	}
	return fmt.Sprintf("%s %s = %s", bd.Key, signed(bd.Total), strings.Join(parts, ", "))
}

func signed(n int) string {
	if n >= 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
