// Package actorview projects game-system specific actor documents into a
// uniform shape. Each supported system has one View variant; any other
// system gets a variant that returns zero values.
package actorview

import (
	"strings"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/tidwall/gjson"
)

const (
	SystemPF1   = "pf1"
	SystemDnD5e = "dnd5e"
)

// AbilityKeys lists the six core attributes in display order.
var AbilityKeys = []string{"str", "dex", "con", "int", "wis", "cha"}

// Pool is a secondary health track such as wounds or vigor.
type Pool struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

type HP struct {
	Current int   `json:"current"`
	Max     int   `json:"max"`
	Temp    int   `json:"temp"`
	Wounds  *Pool `json:"wounds,omitempty"`
	Vigor   *Pool `json:"vigor,omitempty"`
}

// AC holds armor class values. Touch and FlatFooted are nil for systems
// that do not track them.
type AC struct {
	Normal     int  `json:"normal"`
	Touch      *int `json:"touch,omitempty"`
	FlatFooted *int `json:"flat_footed,omitempty"`
}

type Saves struct {
	Fort int `json:"fort"`
	Ref  int `json:"ref"`
	Will int `json:"will"`
}

type CMB struct {
	Bonus   int `json:"bonus"`
	Defense int `json:"defense"`
}

// Attribute is one core ability score. pf1 reports Total, dnd5e reports Save.
type Attribute struct {
	Value int `json:"value"`
	Mod   int `json:"mod"`
	Total int `json:"total,omitempty"`
	Save  int `json:"save,omitempty"`
}

type ItemInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Equipped bool   `json:"equipped"`
	Carried  bool   `json:"carried"`
}

type Skill struct {
	Key          string           `json:"key"`
	Total        int              `json:"total"`
	Ranks        int              `json:"ranks"`
	Ability      string           `json:"ability"`
	AbilityMod   int              `json:"ability_mod"`
	Misc         int              `json:"misc"`
	IsTrained    bool             `json:"is_trained"`
	IsClassSkill bool             `json:"is_class_skill"`
	SubSkills    map[string]Skill `json:"sub_skills,omitempty"`
	Notes        []string         `json:"notes,omitempty"`
}

// Component is one named contribution to a skill total.
type Component struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Breakdown decomposes a skill total. Component values sum to Total.
type Breakdown struct {
	Key        string      `json:"key"`
	Total      int         `json:"total"`
	Components []Component `json:"components"`
}

// Sum adds up the component values.
func (b *Breakdown) Sum() int {
	n := 0
	for _, c := range b.Components {
		n += c.Value
	}
	return n
}

// View is the read contract shared by every system. All methods accept a
// nil actor and return zero values.
type View interface {
	System() string
	HP(a *actor.Actor) HP
	AC(a *actor.Actor) AC
	Saves(a *actor.Actor) Saves
	BAB(a *actor.Actor) int
	CMB(a *actor.Actor) CMB
	Attributes(a *actor.Actor) map[string]Attribute
	Items(a *actor.Actor) []ItemInfo
	Buffs(a *actor.Actor) []string
	Skills(a *actor.Actor) map[string]Skill
	// SkillBreakdown returns nil when the skill does not exist.
	SkillBreakdown(a *actor.Actor, key string) *Breakdown
	Level(a *actor.Actor) int
}

// For returns the view for a game system identifier.
func For(system string) View {
	switch strings.ToLower(strings.TrimSpace(system)) {
	case SystemPF1:
		return pf1View{}
	case SystemDnD5e:
		return dnd5eView{}
	default:
		return zeroView{system: system}
	}
}

// base holds the projections that do not depend on the game system.
type base struct{}

// Items lists the actor's items. A missing quantity reads as 1.
func (base) Items(a *actor.Actor) []ItemInfo {
	if a == nil {
		return nil
	}
	out := make([]ItemInfo, 0, len(a.Items))
	for _, it := range a.Items {
		qty := 1
		if q := gjson.GetBytes(it.System, "quantity"); q.Exists() {
			qty = int(q.Int())
		}
		out = append(out, ItemInfo{
			ID:       it.ID,
			Name:     it.Name,
			Type:     it.Type,
			Quantity: qty,
			Equipped: it.Equipped(),
			Carried:  it.Carried(),
		})
	}
	return out
}

type zeroView struct {
	base
	system string
}

func (v zeroView) System() string { return v.system }
func (zeroView) HP(*actor.Actor) HP { return HP{} }
func (zeroView) AC(*actor.Actor) AC { return AC{} }
func (zeroView) Saves(*actor.Actor) Saves { return Saves{} }
func (zeroView) BAB(*actor.Actor) int { return 0 }
func (zeroView) CMB(*actor.Actor) CMB { return CMB{} }
func (zeroView) Attributes(*actor.Actor) map[string]Attribute { return map[string]Attribute{} }
func (zeroView) Buffs(*actor.Actor) []string { return nil }
func (zeroView) Skills(*actor.Actor) map[string]Skill { return map[string]Skill{} }
func (zeroView) SkillBreakdown(*actor.Actor, string) *Breakdown { return nil }
func (zeroView) Level(*actor.Actor) int { return 0 }

func get(a *actor.Actor, path string) gjson.Result {
	if a == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(a.System, path)
}

func intPtr(r gjson.Result) *int {
	if !r.Exists() {
		return nil
	}
	n := int(r.Int())
	return &n
}

func pool(r gjson.Result) *Pool {
	if !r.Exists() {
		return nil
	}
	if r.IsObject() {
		return &Pool{Value: int(r.Get("value").Int()), Max: int(r.Get("max").Int())}
	}
	return &Pool{Value: int(r.Int())}
}
