package actorview

import (
	"fmt"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/table-assist/pkg/actor"
)

// CombatActor builds a d20 actor from the sheet: max HP, normal AC and
// ability scores, with current and temporary hit points applied. Sheets
// without a positive max HP cannot be represented and return an error.
func CombatActor(v View, a *actor.Actor) (*d20.Actor, error) {
	if a == nil {
		return nil, fmt.Errorf("actor cannot be nil")
	}
	attrs := make(map[string]int)
	for k, at := range v.Attributes(a) {
		score := at.Total
		if score == 0 {
			score = at.Value
		}
		attrs[k] = score
	}
	return buildCombatActor(a.Name, v.HP(a), v.AC(a).Normal, attrs)
}

func buildCombatActor(name string, hp HP, ac int, attrs map[string]int) (*d20.Actor, error) {
	da, err := d20.NewActor(name).
		WithHP(hp.Max).
		WithAC(ac).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// SubHP clamps at zero; current above max stays at max.
	if hp.Current < hp.Max {
		da.SubHP(hp.Max - hp.Current)
	}
	// Temporary HP cushions a conscious actor but cannot revive one.
	if !da.IsKnockedOut() && hp.Temp > 0 {
		da.AddHP(hp.Temp)
	}
	return da, nil
}

func condition(da *d20.Actor) string {
	switch {
	case da.IsKnockedOut():
		return "down"
	case da.HP()*2 <= da.MaxHP():
		return "bloodied"
	case da.HP() < da.MaxHP():
		return "wounded"
	default:
		return "healthy"
	}
}
