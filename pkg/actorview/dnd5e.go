package actorview

import (
	"github.com/jwebster45206/table-assist/pkg/actor"
)

// dnd5eView reads hit points, armor class, abilities and level. Saves,
// attack bonus, maneuvers, buffs and skills are not tracked and read as zero.
type dnd5eView struct {
	base
}

func (dnd5eView) System() string { return SystemDnD5e }

func (dnd5eView) HP(a *actor.Actor) HP {
	if a == nil {
		return HP{}
	}
	return HP{
		Current: int(get(a, "attributes.hp.value").Int()),
		Max:     int(get(a, "attributes.hp.max").Int()),
		Temp:    int(get(a, "attributes.hp.temp").Int()),
	}
}

func (dnd5eView) AC(a *actor.Actor) AC {
	return AC{Normal: int(get(a, "attributes.ac.value").Int())}
}

func (dnd5eView) Attributes(a *actor.Actor) map[string]Attribute {
	out := make(map[string]Attribute)
	if a == nil {
		return out
	}
	for _, k := range AbilityKeys {
		ab := get(a, "abilities."+k)
		if !ab.Exists() {
			continue
		}
		out[k] = Attribute{
			Value: int(ab.Get("value").Int()),
			Mod:   int(ab.Get("mod").Int()),
			Save:  int(ab.Get("save").Int()),
		}
	}
	return out
}

func (dnd5eView) Level(a *actor.Actor) int {
	return int(get(a, "details.level").Int())
}

func (dnd5eView) Saves(*actor.Actor) Saves { return Saves{} }
func (dnd5eView) BAB(*actor.Actor) int { return 0 }
func (dnd5eView) CMB(*actor.Actor) CMB { return CMB{} }
func (dnd5eView) Buffs(*actor.Actor) []string { return nil }
func (dnd5eView) Skills(*actor.Actor) map[string]Skill { return map[string]Skill{} }
func (dnd5eView) SkillBreakdown(*actor.Actor, string) *Breakdown { return nil }
