// Package mutation applies validated changes to actor-owned items and skills.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/actorview"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
	"github.com/jwebster45206/table-assist/pkg/fuzzy"
	"github.com/tidwall/sjson"
)

// Result describes an applied change.
type Result struct {
	Message     string
	Item        *actor.Item
	OldQuantity int
	NewQuantity int
	Created     bool
	Removed     bool

	SkillKey string
	OldRanks int
	NewRanks int
	NewTotal int
}

// Engine validates and applies mutations. Writes are not transactional
// across fields; single-field quantity writes are verified by re-reading.
type Engine struct {
	store   actor.Store
	matcher *fuzzy.Matcher
	view    actorview.View
	logger  *slog.Logger
}

func NewEngine(store actor.Store, matcher *fuzzy.Matcher, view actorview.View, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		matcher: matcher,
		view:    view,
		logger:  logger,
	}
}

// ModifyInventory changes an item's quantity by delta. Unknown items are
// created when delta is positive.
func (e *Engine) ModifyInventory(ctx context.Context, userID string, a *actor.Actor, itemName string, delta int) (*Result, error) {
	if err := e.requireOwner(ctx, userID, a); err != nil {
		return nil, err
	}
	item, err := e.matcher.FindBestItemMatch(a, itemName)
	if err != nil {
		return nil, err
	}
	if item != nil {
		current := item.Quantity()
		if delta > 0 && current > math.MaxInt-delta {
			return nil, cmderr.New(cmderr.InvalidState, fmt.Sprintf("Quantity too large for %s", item.Name))
		}
		return e.applyQuantity(ctx, a, item, current+delta)
	}
	if delta > 0 {
		return e.createItem(ctx, a, itemName, delta)
	}
	return nil, notInInventory(itemName)
}

// SetQuantity sets an item's quantity. Zero removes the item.
func (e *Engine) SetQuantity(ctx context.Context, userID string, a *actor.Actor, itemName string, quantity int) (*Result, error) {
	if err := e.requireOwner(ctx, userID, a); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, cmderr.New(cmderr.InvalidState, "Quantity cannot be negative")
	}
	item, err := e.matcher.FindBestItemMatch(a, itemName)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return e.applyQuantity(ctx, a, item, quantity)
	}
	if quantity > 0 {
		return e.createItem(ctx, a, itemName, quantity)
	}
	return nil, notInInventory(itemName)
}

// SetEquipped writes the equipped flag. Repeating the call is a no-op.
func (e *Engine) SetEquipped(ctx context.Context, userID string, a *actor.Actor, itemName string, equipped bool) (*Result, error) {
	if err := e.requireOwner(ctx, userID, a); err != nil {
		return nil, err
	}
	item, err := e.matcher.FindBestItemMatch(a, itemName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notInInventory(itemName)
	}

	verb := "Unequipped"
	if equipped {
		verb = "Equipped"
	}
	res := &Result{Item: item, OldQuantity: item.Quantity(), NewQuantity: item.Quantity()}
	if item.Equipped() == equipped {
		res.Message = fmt.Sprintf("%s is already %s", item.Name, strings.ToLower(verb))
		return res, nil
	}
	if err := e.store.UpdateItem(ctx, a.ID, item.ID, map[string]any{"system.equipped": equipped}); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", item.Name, err)
	}
	res.Message = fmt.Sprintf("%s %s", verb, item.Name)
	return res, nil
}

// TransferItem moves amount of an item from source to the actor named
// targetName. The source is debited before the target is credited; a
// failure in between leaves the source debited.
func (e *Engine) TransferItem(ctx context.Context, userID string, source *actor.Actor, targetName, itemName string, amount int) (*Result, error) {
	if amount <= 0 {
		return nil, cmderr.New(cmderr.InvalidState, "Amount must be at least 1")
	}
	if err := e.requireOwner(ctx, userID, source); err != nil {
		return nil, err
	}

	target, err := e.store.FindActorByName(ctx, targetName)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor %q: %w", targetName, err)
	}
	if target == nil {
		return nil, cmderr.New(cmderr.NotFound, fmt.Sprintf("Could not find anyone named %s", strings.TrimSpace(targetName)))
	}
	if target.ID == source.ID {
		return nil, cmderr.New(cmderr.InvalidState, "You cannot give items to yourself")
	}

	item, err := e.matcher.FindBestItemMatch(source, itemName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notInInventory(itemName)
	}
	have := item.Quantity()
	if amount > have {
		return nil, cmderr.New(cmderr.InsufficientQuantity,
			fmt.Sprintf("Not enough %s to give (have %d, need %d)", item.Name, have, amount))
	}

	given := *item
	res, err := e.applyQuantity(ctx, source, item, have-amount)
	if err != nil {
		return nil, err
	}

	if err := e.credit(ctx, target, given, amount); err != nil {
		e.logger.Error("Transfer debited source without crediting target",
			"source", source.ID, "target", target.ID, "item", given.Name, "amount", amount, "error", err)
		return nil, fmt.Errorf("failed to give %s to %s: %w", given.Name, target.Name, err)
	}

	res.Message = fmt.Sprintf("Gave %d %s to %s", amount, given.Name, target.Name)
	return res, nil
}

// ModifySkillRanks adds delta ranks to a skill, capped by character level.
func (e *Engine) ModifySkillRanks(ctx context.Context, userID string, a *actor.Actor, skillName string, delta int) (*Result, error) {
	if err := e.requireOwner(ctx, userID, a); err != nil {
		return nil, err
	}
	key, skill, err := e.skill(a, skillName)
	if err != nil {
		return nil, err
	}
	ranks := skill.Ranks + delta
	if delta > 0 && skill.Ranks > math.MaxInt-delta {
		// Saturate so the level cap reports the rejection.
		ranks = math.MaxInt
	}
	res, err := e.setRanks(ctx, a, key, skill, ranks)
	if err != nil {
		return nil, err
	}
	name := actorview.SkillName(key)
	if delta >= 0 {
		res.Message = fmt.Sprintf("Added %d rank(s) to %s (new total: %d)", delta, name, res.NewTotal)
	} else {
		res.Message = fmt.Sprintf("Removed %d rank(s) from %s (new total: %d)", -delta, name, res.NewTotal)
	}
	return res, nil
}

// SetSkillRanks sets a skill's ranks to an absolute value.
func (e *Engine) SetSkillRanks(ctx context.Context, userID string, a *actor.Actor, skillName string, ranks int) (*Result, error) {
	if err := e.requireOwner(ctx, userID, a); err != nil {
		return nil, err
	}
	key, skill, err := e.skill(a, skillName)
	if err != nil {
		return nil, err
	}
	res, err := e.setRanks(ctx, a, key, skill, ranks)
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("Set %s ranks to %d (new total: %d)", actorview.SkillName(key), ranks, res.NewTotal)
	return res, nil
}

func (e *Engine) requireOwner(ctx context.Context, userID string, a *actor.Actor) error {
	if a == nil {
		return cmderr.New(cmderr.PermissionDenied, "No character is available for you to modify")
	}
	ok, err := e.store.TestPermission(ctx, a, userID, actor.PermissionOwner)
	if err != nil {
		return fmt.Errorf("failed to test permission: %w", err)
	}
	if !ok {
		return cmderr.New(cmderr.PermissionDenied, fmt.Sprintf("You do not have permission to modify %s", a.Name))
	}
	return nil
}

func (e *Engine) applyQuantity(ctx context.Context, a *actor.Actor, item *actor.Item, newQty int) (*Result, error) {
	oldQty := item.Quantity()
	if newQty < 0 {
		return nil, cmderr.New(cmderr.InvalidState, fmt.Sprintf("Not enough %s (have %d)", item.Name, oldQty))
	}
	res := &Result{Item: item, OldQuantity: oldQty, NewQuantity: newQty}

	if newQty == 0 {
		if err := e.store.DeleteItem(ctx, a.ID, item.ID); err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", item.Name, err)
		}
		res.Removed = true
		res.Message = fmt.Sprintf("Removed all %s", item.Name)
		return res, nil
	}

	if err := e.store.UpdateItem(ctx, a.ID, item.ID, map[string]any{"system.quantity": newQty}); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", item.Name, err)
	}

	fresh, err := e.store.Actor(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read actor %s: %w", a.ID, err)
	}
	var stored *actor.Item
	if fresh != nil {
		stored = fresh.Item(item.ID)
	}
	if stored == nil || stored.Quantity() != newQty {
		got := -1
		if stored != nil {
			got = stored.Quantity()
		}
		e.logger.Error("Quantity write verification failed",
			"actor", a.ID, "item", item.ID, "expected", newQty, "stored", got)
		return nil, cmderr.New(cmderr.WriteVerification, "Failed to update quantity correctly")
	}

	res.Item = stored
	res.Message = fmt.Sprintf("Updated %s quantity from %d to %d", item.Name, oldQty, newQty)
	return res, nil
}

func (e *Engine) createItem(ctx context.Context, a *actor.Actor, name string, qty int) (*Result, error) {
	name = strings.TrimSpace(name)
	item, err := actor.NewItem(name, actor.ItemTypeLoot, map[string]any{
		"quantity":   qty,
		"weight":     0,
		"price":      0,
		"identified": true,
	})
	if err != nil {
		return nil, err
	}
	created, err := e.store.CreateItem(ctx, a.ID, item)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return &Result{
		Item:        created,
		NewQuantity: qty,
		Created:     true,
		Message:     fmt.Sprintf("Added %d %s to inventory", qty, name),
	}, nil
}

// credit adds amount of item to target, stacking onto an item of the same name.
func (e *Engine) credit(ctx context.Context, target *actor.Actor, item actor.Item, amount int) error {
	if existing := target.ItemByName(item.Name); existing != nil {
		return e.store.UpdateItem(ctx, target.ID, existing.ID, map[string]any{
			"system.quantity": existing.Quantity() + amount,
		})
	}

	system := []byte(item.System)
	if len(system) == 0 {
		system = []byte("{}")
	}
	system, err := sjson.SetBytes(system, "quantity", amount)
	if err != nil {
		return fmt.Errorf("failed to set quantity: %w", err)
	}
	system, err = sjson.SetBytes(system, "equipped", false)
	if err != nil {
		return fmt.Errorf("failed to clear equipped: %w", err)
	}

	copied, err := actor.NewItem(item.Name, item.Type, nil)
	if err != nil {
		return err
	}
	copied.System = system
	_, err = e.store.CreateItem(ctx, target.ID, copied)
	return err
}

func (e *Engine) skill(a *actor.Actor, skillName string) (string, actorview.Skill, error) {
	key := actorview.SkillKey(skillName)
	skill, ok := e.view.Skills(a)[key]
	if !ok {
		return "", actorview.Skill{}, cmderr.New(cmderr.NotFound, fmt.Sprintf("Skill %s not found", strings.TrimSpace(skillName)))
	}
	return key, skill, nil
}

// setRanks writes ranks and the derived total. The class skill bonus
// applies only while ranks are above zero.
func (e *Engine) setRanks(ctx context.Context, a *actor.Actor, key string, skill actorview.Skill, newRanks int) (*Result, error) {
	if newRanks < 0 {
		return nil, cmderr.New(cmderr.InvalidState, "Cannot reduce ranks below 0")
	}
	maxRanks := e.view.Level(a)
	if newRanks > maxRanks {
		return nil, cmderr.New(cmderr.InvalidState, fmt.Sprintf("Cannot exceed maximum ranks (%d) for your level", maxRanks))
	}

	total := skill.Total + newRanks - skill.Ranks
	if skill.IsClassSkill {
		total += classBonus(newRanks) - classBonus(skill.Ranks)
	}
	err := e.store.UpdateActor(ctx, a.ID, map[string]any{
		"system.skills." + key + ".ranks": newRanks,
		"system.skills." + key + ".mod":   total,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update skill %s: %w", key, err)
	}

	fresh, err := e.store.Actor(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read actor %s: %w", a.ID, err)
	}
	if s, ok := e.view.Skills(fresh)[key]; ok {
		total = s.Total
	}
	return &Result{
		SkillKey: key,
		OldRanks: skill.Ranks,
		NewRanks: newRanks,
		NewTotal: total,
	}, nil
}

func classBonus(ranks int) int {
	if ranks > 0 {
		return 3
	}
	return 0
}

func notInInventory(name string) error {
	return cmderr.New(cmderr.NotFound, fmt.Sprintf("%s not found in inventory", strings.TrimSpace(name)))
}
