package actor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PermissionLevel is a user's access level on an actor document.
type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionLimited
	PermissionObserver
	PermissionOwner
)

// DefaultOwnership is the ownership key applied to users without an explicit entry.
const DefaultOwnership = "default"

const (
	TypeCharacter = "character"
	TypeNPC       = "npc"

	// ItemTypeLoot is the generic item type used for items created from chat.
	ItemTypeLoot = "loot"
)

func (p PermissionLevel) String() string {
	switch p {
	case PermissionLimited:
		return "limited"
	case PermissionObserver:
		return "observer"
	case PermissionOwner:
		return "owner"
	default:
		return "none"
	}
}

// ParsePermission converts a permission name into a level.
func ParsePermission(s string) (PermissionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PermissionNone, nil
	case "limited":
		return PermissionLimited, nil
	case "observer":
		return PermissionObserver, nil
	case "owner":
		return PermissionOwner, nil
	}
	return PermissionNone, fmt.Errorf("unknown permission level %q", s)
}

// Actor is a character sheet. System holds the game-system specific
// document; its layout is read through actorview.
type Actor struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Type      string                     `json:"type,omitempty"`
	System    json.RawMessage            `json:"system,omitempty"`
	Items     []Item                     `json:"items,omitempty"`
	Effects   []Effect                   `json:"effects,omitempty"`
	Ownership map[string]PermissionLevel `json:"ownership,omitempty"`
}

// Item is an actor-owned item. Quantity and equip state live in System.
type Item struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Type   string          `json:"type,omitempty"`
	System json.RawMessage `json:"system,omitempty"`
}

// Effect is an active effect on an actor, such as a buff.
type Effect struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Token is an on-screen placement of an actor.
type Token struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	ActorID string `json:"actor_id" yaml:"actor_id"`
	Hidden  bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// User is a participant at the table.
type User struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	IsGM          bool   `json:"is_gm,omitempty" yaml:"is_gm,omitempty"`
	CannotWhisper bool   `json:"cannot_whisper,omitempty" yaml:"cannot_whisper,omitempty"`
	CharacterID   string `json:"character_id,omitempty" yaml:"character_id,omitempty"`
}

// Permission returns the level user holds on the actor. Game masters own everything.
func (a *Actor) Permission(user *User) PermissionLevel {
	if a == nil || user == nil {
		return PermissionNone
	}
	if user.IsGM {
		return PermissionOwner
	}
	if lvl, ok := a.Ownership[user.ID]; ok {
		return lvl
	}
	return a.Ownership[DefaultOwnership]
}

// HasPermission reports whether user holds at least level on the actor.
func (a *Actor) HasPermission(user *User, level PermissionLevel) bool {
	return a.Permission(user) >= level
}

// Item returns the item with the given id, or nil.
func (a *Actor) Item(id string) *Item {
	for i := range a.Items {
		if a.Items[i].ID == id {
			return &a.Items[i]
		}
	}
	return nil
}

// ItemByName returns the first item whose name equals name, ignoring case.
func (a *Actor) ItemByName(name string) *Item {
	for i := range a.Items {
		if strings.EqualFold(a.Items[i].Name, name) {
			return &a.Items[i]
		}
	}
	return nil
}

// Quantity returns the item quantity. Missing or non-numeric values read as 0.
func (i *Item) Quantity() int {
	return int(gjson.GetBytes(i.System, "quantity").Int())
}

func (i *Item) Equipped() bool {
	return gjson.GetBytes(i.System, "equipped").Bool()
}

func (i *Item) Carried() bool {
	return gjson.GetBytes(i.System, "carried").Bool()
}

// ApplyChanges returns a copy of a with the dotted-path changes applied,
// e.g. {"system.skills.ste.ranks": 4}. Keys are applied in sorted order.
func ApplyChanges(a *Actor, changes map[string]any) (*Actor, error) {
	doc, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actor: %w", err)
	}
	doc, err = setPaths(doc, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update actor %s: %w", a.ID, err)
	}
	var out Actor
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actor: %w", err)
	}
	return &out, nil
}

// ApplyItemChanges returns a copy of item with the dotted-path changes applied.
func ApplyItemChanges(item *Item, changes map[string]any) (*Item, error) {
	doc, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	doc, err = setPaths(doc, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", item.ID, err)
	}
	var out Item
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &out, nil
}

func setPaths(doc []byte, changes map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		if k == "id" || k == "system" {
			return nil, fmt.Errorf("path %q cannot be replaced", k)
		}
		doc, err = sjson.SetBytes(doc, k, changes[k])
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}
	return doc, nil
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	out := *a
	out.System = cloneRaw(a.System)
	if a.Items != nil {
		out.Items = make([]Item, len(a.Items))
		for i, it := range a.Items {
			it.System = cloneRaw(it.System)
			out.Items[i] = it
		}
	}
	if a.Effects != nil {
		out.Effects = append([]Effect(nil), a.Effects...)
	}
	if a.Ownership != nil {
		out.Ownership = make(map[string]PermissionLevel, len(a.Ownership))
		for k, v := range a.Ownership {
			out.Ownership[k] = v
		}
	}
	return &out
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

// NewItem builds an item with a fresh id and the given system fields.
func NewItem(name, itemType string, system map[string]any) (Item, error) {
	raw, err := json.Marshal(system)
	if err != nil {
		return Item{}, fmt.Errorf("failed to marshal item system: %w", err)
	}
	return Item{
		ID:     uuid.New().String(),
		Name:   name,
		Type:   itemType,
		System: raw,
	}, nil
}
