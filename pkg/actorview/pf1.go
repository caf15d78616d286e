package actorview

import (
	"strings"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/tidwall/gjson"
)

const classSkillBonus = 3

type pf1View struct {
	base
}

func (pf1View) System() string { return SystemPF1 }

func (pf1View) HP(a *actor.Actor) HP {
	if a == nil {
		return HP{}
	}
	return HP{
		Current: int(get(a, "attributes.hp.value").Int()),
		Max:     int(get(a, "attributes.hp.max").Int()),
		Temp:    int(get(a, "attributes.hp.temp").Int()),
		Wounds:  pool(get(a, "attributes.wounds")),
		Vigor:   pool(get(a, "attributes.vigor")),
	}
}

func (pf1View) AC(a *actor.Actor) AC {
	if a == nil {
		return AC{}
	}
	return AC{
		Normal:     int(get(a, "attributes.ac.normal.total").Int()),
		Touch:      intPtr(get(a, "attributes.ac.touch.total")),
		FlatFooted: intPtr(get(a, "attributes.ac.flatFooted.total")),
	}
}

func (pf1View) Saves(a *actor.Actor) Saves {
	return Saves{
		Fort: int(get(a, "attributes.savingThrows.fort.total").Int()),
		Ref:  int(get(a, "attributes.savingThrows.ref.total").Int()),
		Will: int(get(a, "attributes.savingThrows.will.total").Int()),
	}
}

func (pf1View) BAB(a *actor.Actor) int {
	return int(get(a, "attributes.bab.total").Int())
}

func (pf1View) CMB(a *actor.Actor) CMB {
	return CMB{
		Bonus:   int(get(a, "attributes.cmb.total").Int()),
		Defense: int(get(a, "attributes.cmd.total").Int()),
	}
}

func (pf1View) Attributes(a *actor.Actor) map[string]Attribute {
	out := make(map[string]Attribute, len(AbilityKeys))
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
			Total: int(ab.Get("total").Int()),
		}
	}
	return out
}

// Buffs lists the labels of enabled effects.
func (pf1View) Buffs(a *actor.Actor) []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, e := range a.Effects {
		if !e.Disabled {
			out = append(out, e.Label)
		}
	}
	return out
}

func (pf1View) Level(a *actor.Actor) int {
	return int(get(a, "details.level.value").Int())
}

func (v pf1View) Skills(a *actor.Actor) map[string]Skill {
	out := make(map[string]Skill)
	if a == nil {
		return out
	}
	get(a, "skills").ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() {
			out[key.String()] = v.skill(a, key.String(), value, true)
		}
		return true
	})
	return out
}

// SkillBreakdown accepts a skill key or "parent.sub" for a sub-skill.
func (v pf1View) SkillBreakdown(a *actor.Actor, key string) *Breakdown {
	raw := skillNode(a, key)
	if !raw.IsObject() {
		return nil
	}
	return v.breakdown(a, key, raw)
}

func skillNode(a *actor.Actor, key string) gjson.Result {
	if a == nil || key == "" {
		return gjson.Result{}
	}
	if parent, sub, ok := strings.Cut(key, "."); ok {
		return get(a, "skills."+parent+".subSkills."+sub)
	}
	return get(a, "skills."+key)
}

func (v pf1View) skill(a *actor.Actor, key string, raw gjson.Result, withSubs bool) Skill {
	s := Skill{
		Key:          key,
		Total:        int(raw.Get("mod").Int()),
		Ranks:        int(raw.Get("ranks").Int()),
		Ability:      raw.Get("ability").String(),
		AbilityMod:   abilityMod(a, raw),
		IsTrained:    raw.Get("rt").Bool(),
		IsClassSkill: raw.Get("cs").Bool(),
		Notes:        notes(raw.Get("notes")),
	}
	for _, c := range v.breakdown(a, key, raw).Components {
		if c.Name == "Misc modifiers" {
			s.Misc = c.Value
		}
	}
	if withSubs {
		raw.Get("subSkills").ForEach(func(subKey, sub gjson.Result) bool {
			if sub.IsObject() {
				if s.SubSkills == nil {
					s.SubSkills = make(map[string]Skill)
				}
				full := key + "." + subKey.String()
				s.SubSkills[subKey.String()] = v.skill(a, full, sub, false)
			}
			return true
		})
	}
	return s
}

// breakdown composes the named contributions to a skill total. Whatever the
// named parts do not explain is reported as misc so the parts sum to the total.
func (pf1View) breakdown(a *actor.Actor, key string, raw gjson.Result) *Breakdown {
	ranks := int(raw.Get("ranks").Int())
	b := &Breakdown{
		Key:   key,
		Total: int(raw.Get("mod").Int()),
		Components: []Component{
			{Name: raw.Get("ability").String() + " modifier", Value: abilityMod(a, raw)},
			{Name: "Ranks", Value: ranks},
		},
	}
	if raw.Get("cs").Bool() && ranks > 0 {
		b.Components = append(b.Components, Component{Name: "Class skill", Value: classSkillBonus})
	}
	if raw.Get("acp").Bool() {
		if acp := int(get(a, "attributes.acp.total").Int()); acp != 0 {
			if acp > 0 {
				acp = -acp
			}
			b.Components = append(b.Components, Component{Name: "Armor check penalty", Value: acp})
		}
	}

	rootKey, _, _ := strings.Cut(key, ".")
	get(a, "changes").ForEach(func(_, c gjson.Result) bool {
		switch c.Get("subTarget").String() {
		case key, rootKey, "skill." + key, "skills":
			b.Components = append(b.Components, Component{
				Name:  c.Get("modifier").String() + " bonus",
				Value: int(c.Get("formula").Int()),
			})
		}
		return true
	})

	if misc := b.Total - b.Sum(); misc != 0 {
		b.Components = append(b.Components, Component{Name: "Misc modifiers", Value: misc})
	}
	return b
}

func abilityMod(a *actor.Actor, raw gjson.Result) int {
	if m := raw.Get("abilityMod"); m.Exists() {
		return int(m.Int())
	}
	ability := raw.Get("ability").String()
	if ability == "" {
		return 0
	}
	return int(get(a, "abilities."+ability+".mod").Int())
}

func notes(r gjson.Result) []string {
	if !r.Exists() {
		return nil
	}
	if r.IsArray() {
		var out []string
		for _, n := range r.Array() {
			if s := n.String(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := r.String(); s != "" {
		return []string{s}
	}
	return nil
}
