package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/actorview"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
	"github.com/jwebster45206/table-assist/pkg/fuzzy"
	"github.com/jwebster45206/table-assist/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heroSystem = `{
  "details": {"level": {"value": 10}},
  "abilities": {"dex": {"value": 16, "mod": 3}},
  "skills": {
    "ste": {"ability": "dex", "abilityMod": 3, "ranks": 4, "cs": true, "mod": 10},
    "per": {"ability": "wis", "abilityMod": 1, "ranks": 0, "cs": true, "mod": 1},
    "clm": {"ability": "str", "abilityMod": 2, "ranks": 1, "cs": false, "mod": 3}
  }
}`

type fixture struct {
	ctx    context.Context
	store  *storage.MockStorage
	engine *Engine
}

func newFixture(t *testing.T, items ...actor.Item) *fixture {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMockStorage()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, s.SaveUser(ctx, &actor.User{ID: "alice", Name: "Alice", CharacterID: "hero"}))
	require.NoError(t, s.SaveUser(ctx, &actor.User{ID: "mallory", Name: "Mallory"}))
	require.NoError(t, s.SaveActor(ctx, &actor.Actor{
		ID:        "hero",
		Name:      "Kyra",
		Type:      actor.TypeCharacter,
		System:    json.RawMessage(heroSystem),
		Items:     items,
		Ownership: map[string]actor.PermissionLevel{"alice": actor.PermissionOwner, actor.DefaultOwnership: actor.PermissionObserver},
	}))
	require.NoError(t, s.SaveActor(ctx, &actor.Actor{
		ID:   "bob",
		Name: "Bob",
		Type: actor.TypeCharacter,
	}))

	matcher := fuzzy.NewMatcher(nil)
	return &fixture{
		ctx:    ctx,
		store:  s,
		engine: NewEngine(s, matcher, actorview.For(actorview.SystemPF1), log),
	}
}

func (f *fixture) hero(t *testing.T) *actor.Actor {
	t.Helper()
	a, err := f.store.Actor(f.ctx, "hero")
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func qtyItem(id, name string, qty int) actor.Item {
	return actor.Item{ID: id, Name: name, Type: "consumable", System: json.RawMessage(fmt.Sprintf(`{"quantity": %d}`, qty))}
}

func TestModifyInventoryQuantityProperty(t *testing.T) {
	for q := 0; q <= 4; q++ {
		for d := -6; d <= 3; d++ {
			t.Run(fmt.Sprintf("q=%d,d=%d", q, d), func(t *testing.T) {
				f := newFixture(t, qtyItem("arrow", "Arrow", q))
				res, err := f.engine.ModifyInventory(f.ctx, "alice", f.hero(t), "Arrow", d)
				after := f.hero(t)

				switch {
				case q+d < 0:
					require.Error(t, err)
					assert.True(t, cmderr.IsKind(err, cmderr.InvalidState))
					assert.Equal(t, 0, f.store.Writes(), "rejected before any write")
					assert.Equal(t, q, after.Item("arrow").Quantity())
				case q+d == 0:
					require.NoError(t, err)
					assert.True(t, res.Removed)
					assert.Nil(t, after.Item("arrow"))
				default:
					require.NoError(t, err)
					require.NotNil(t, after.Item("arrow"))
					assert.Equal(t, q+d, after.Item("arrow").Quantity())
					assert.Equal(t, q+d, res.NewQuantity)
				}
			})
		}
	}
}

func TestModifyInventoryMessages(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		delta   int
		message string
	}{
		{"decrement", "arrows", -3, "Updated Arrow quantity from 5 to 2"},
		{"remove all", "arrow", -5, "Removed all Arrow"},
		{"create", "Wand of Fireballs", 1, "Added 1 Wand of Fireballs to inventory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, qtyItem("arrow", "Arrow", 5))
			res, err := f.engine.ModifyInventory(f.ctx, "alice", f.hero(t), tt.item, tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestModifyInventoryCreatesLoot(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.ModifyInventory(f.ctx, "alice", f.hero(t), "Wand of Fireballs", 1)
	require.NoError(t, err)
	assert.True(t, res.Created)

	wand := f.hero(t).ItemByName("Wand of Fireballs")
	require.NotNil(t, wand)
	assert.Equal(t, actor.ItemTypeLoot, wand.Type)
	assert.JSONEq(t, `{"quantity":1,"weight":0,"price":0,"identified":true}`, string(wand.System))
}

func TestModifyInventoryErrors(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		item  string
		delta int
		kind  cmderr.Kind
	}{
		{"observer cannot write", "mallory", "Arrow", 1, cmderr.PermissionDenied},
		{"missing item with decrement", "alice", "Rope", -1, cmderr.NotFound},
		{"missing item with zero", "alice", "Rope", 0, cmderr.NotFound},
		{"too many removed", "alice", "Arrow", -6, cmderr.InvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, qtyItem("arrow", "Arrow", 5))
			_, err := f.engine.ModifyInventory(f.ctx, tt.user, f.hero(t), tt.item, tt.delta)
			require.Error(t, err)
			assert.True(t, cmderr.IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, 0, f.store.Writes())
		})
	}

	f := newFixture(t)
	_, err := f.engine.ModifyInventory(f.ctx, "alice", nil, "Arrow", 1)
	assert.True(t, cmderr.IsKind(err, cmderr.PermissionDenied))
}

func TestModifyInventoryWriteVerification(t *testing.T) {
	f := newFixture(t, qtyItem("arrow", "Arrow", 5))
	f.store.SetItemWriteFault(func(changes map[string]any) map[string]any {
		return map[string]any{"system.quantity": 99}
	})

	_, err := f.engine.ModifyInventory(f.ctx, "alice", f.hero(t), "Arrow", -1)
	require.Error(t, err)
	assert.True(t, cmderr.IsKind(err, cmderr.WriteVerification))
	assert.Equal(t, "Failed to update quantity correctly", cmderr.UserMessage(err))
	assert.Equal(t, 99, f.hero(t).Item("arrow").Quantity(), "no rollback")
}

func TestSetQuantity(t *testing.T) {
	f := newFixture(t, qtyItem("arrow", "Arrow", 5))

	res, err := f.engine.SetQuantity(f.ctx, "alice", f.hero(t), "Arrow", 12)
	require.NoError(t, err)
	assert.Equal(t, "Updated Arrow quantity from 5 to 12", res.Message)

	_, err = f.engine.SetQuantity(f.ctx, "alice", f.hero(t), "Arrow", -1)
	assert.True(t, cmderr.IsKind(err, cmderr.InvalidState))

	res, err = f.engine.SetQuantity(f.ctx, "alice", f.hero(t), "Torch", 3)
	require.NoError(t, err)
	assert.True(t, res.Created)

	res, err = f.engine.SetQuantity(f.ctx, "alice", f.hero(t), "Torch", 0)
	require.NoError(t, err)
	assert.True(t, res.Removed)
}

func TestSetEquippedIdempotent(t *testing.T) {
	f := newFixture(t, qtyItem("sword", "Longsword", 1))

	res, err := f.engine.SetEquipped(f.ctx, "alice", f.hero(t), "longsword", true)
	require.NoError(t, err)
	assert.Equal(t, "Equipped Longsword", res.Message)
	once := f.hero(t)

	res, err = f.engine.SetEquipped(f.ctx, "alice", f.hero(t), "longsword", true)
	require.NoError(t, err)
	assert.Equal(t, "Longsword is already equipped", res.Message)
	twice := f.hero(t)

	assert.Equal(t, once, twice)
	assert.True(t, twice.Item("sword").Equipped())
	assert.Equal(t, 1, f.store.Writes())

	res, err = f.engine.SetEquipped(f.ctx, "alice", f.hero(t), "longsword", false)
	require.NoError(t, err)
	assert.Equal(t, "Unequipped Longsword", res.Message)

	_, err = f.engine.SetEquipped(f.ctx, "alice", f.hero(t), "shield", true)
	assert.True(t, cmderr.IsKind(err, cmderr.NotFound))
}

func TestTransferItem(t *testing.T) {
	f := newFixture(t, qtyItem("potion", "Potion of Cure Light Wounds", 3))

	res, err := f.engine.TransferItem(f.ctx, "alice", f.hero(t), "bob", "potions", 2)
	require.NoError(t, err)
	assert.Equal(t, "Gave 2 Potion of Cure Light Wounds to Bob", res.Message)
	assert.Equal(t, 1, f.hero(t).Item("potion").Quantity())

	bob, err := f.store.Actor(f.ctx, "bob")
	require.NoError(t, err)
	received := bob.ItemByName("Potion of Cure Light Wounds")
	require.NotNil(t, received)
	assert.Equal(t, 2, received.Quantity())
	assert.NotEqual(t, "potion", received.ID)

	_, err = f.engine.TransferItem(f.ctx, "alice", f.hero(t), "Bob", "clw", 1)
	require.NoError(t, err)
	bob, err = f.store.Actor(f.ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob.Items, 1, "stacks onto existing item")
	assert.Equal(t, 3, bob.Items[0].Quantity())
	assert.Nil(t, f.hero(t).Item("potion"))
}

func TestTransferItemInsufficientQuantity(t *testing.T) {
	f := newFixture(t, qtyItem("potion", "Potion of Cure Light Wounds", 1))
	heroBefore := f.hero(t)
	bobBefore, err := f.store.Actor(f.ctx, "bob")
	require.NoError(t, err)

	_, err = f.engine.TransferItem(f.ctx, "alice", f.hero(t), "Bob", "potions", 2)
	require.Error(t, err)
	assert.True(t, cmderr.IsKind(err, cmderr.InsufficientQuantity))

	bobAfter, err := f.store.Actor(f.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, heroBefore, f.hero(t))
	assert.Equal(t, bobBefore, bobAfter)
	assert.Equal(t, 0, f.store.Writes())
}

func TestTransferItemResolution(t *testing.T) {
	tests := []struct {
		name   string
		target string
		item   string
		amount int
		kind   cmderr.Kind
	}{
		{"unknown target", "Zed", "potion", 1, cmderr.NotFound},
		{"unknown item", "Bob", "lantern", 1, cmderr.NotFound},
		{"self", "Kyra", "potion", 1, cmderr.InvalidState},
		{"zero amount", "Bob", "potion", 0, cmderr.InvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, qtyItem("potion", "Potion of Cure Light Wounds", 1))
			_, err := f.engine.TransferItem(f.ctx, "alice", f.hero(t), tt.target, tt.item, tt.amount)
			require.Error(t, err)
			assert.True(t, cmderr.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestTransferItemCreditFailureLeavesSourceDebited(t *testing.T) {
	f := newFixture(t, qtyItem("potion", "Potion of Cure Light Wounds", 3))
	f.store.SetCreateItemError(errors.New("disk full"))

	_, err := f.engine.TransferItem(f.ctx, "alice", f.hero(t), "Bob", "potion", 1)
	require.Error(t, err)
	assert.False(t, cmderr.IsResolution(err))
	assert.Equal(t, 2, f.hero(t).Item("potion").Quantity())
}

func TestModifySkillRanks(t *testing.T) {
	tests := []struct {
		name      string
		skill     string
		delta     int
		wantRanks int
		wantTotal int
		message   string
	}{
		{"class skill with ranks", "Stealth", 2, 6, 12, "Added 2 rank(s) to Stealth (new total: 12)"},
		{"first rank adds class bonus", "perception", 1, 1, 5, "Added 1 rank(s) to Perception (new total: 5)"},
		{"removing last rank drops class bonus", "clm", -1, 0, 2, "Removed 1 rank(s) from Climb (new total: 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.engine.ModifySkillRanks(f.ctx, "alice", f.hero(t), tt.skill, tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.wantRanks, res.NewRanks)

			skill := actorview.For(actorview.SystemPF1).Skills(f.hero(t))[res.SkillKey]
			assert.Equal(t, tt.wantRanks, skill.Ranks)
			assert.Equal(t, tt.wantTotal, skill.Total)
		})
	}
}

func TestSkillRankBounds(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SetSkillRanks(f.ctx, "alice", f.hero(t), "stealth", 20)
	require.Error(t, err)
	assert.True(t, cmderr.IsKind(err, cmderr.InvalidState))
	assert.Equal(t, "Cannot exceed maximum ranks (10) for your level", cmderr.UserMessage(err))

	_, err = f.engine.ModifySkillRanks(f.ctx, "alice", f.hero(t), "stealth", -5)
	assert.Equal(t, "Cannot reduce ranks below 0", cmderr.UserMessage(err))

	_, err = f.engine.ModifySkillRanks(f.ctx, "alice", f.hero(t), "swim", 1)
	assert.True(t, cmderr.IsKind(err, cmderr.NotFound))

	_, err = f.engine.ModifySkillRanks(f.ctx, "mallory", f.hero(t), "stealth", 1)
	assert.True(t, cmderr.IsKind(err, cmderr.PermissionDenied))

	assert.Equal(t, 0, f.store.Writes())

	res, err := f.engine.SetSkillRanks(f.ctx, "alice", f.hero(t), "stealth", 10)
	require.NoError(t, err)
	assert.Equal(t, "Set Stealth ranks to 10 (new total: 16)", res.Message)
}

func TestQuantityAndRankOverflow(t *testing.T) {
	f := newFixture(t, qtyItem("arrow", "Arrow", 5))

	_, err := f.engine.ModifyInventory(f.ctx, "alice", f.hero(t), "Arrow", math.MaxInt)
	require.Error(t, err)
	assert.True(t, cmderr.IsKind(err, cmderr.InvalidState))
	assert.Equal(t, "Quantity too large for Arrow", cmderr.UserMessage(err))

	_, err = f.engine.ModifySkillRanks(f.ctx, "alice", f.hero(t), "stealth", math.MaxInt)
	require.Error(t, err)
	assert.Equal(t, "Cannot exceed maximum ranks (10) for your level", cmderr.UserMessage(err))

	assert.Equal(t, 0, f.store.Writes())
}
