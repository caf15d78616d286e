// Package command classifies chat lines into command intents.
package command

type Kind string

const (
	KindGeneralQuery      Kind = "general_query"
	KindWhisperQuery      Kind = "whisper_query"
	KindInventoryQuery    Kind = "inventory_query"
	KindInventoryMutation Kind = "inventory_mutation"
	KindSkillQuery        Kind = "skill_query"
	KindSkillMutation     Kind = "skill_mutation"
	KindEquipToggle       Kind = "equip_toggle"
	KindGiftTransfer      Kind = "gift_transfer"
)

// Intent is a classified command. Intents are produced per line and never stored.
type Intent interface {
	Kind() Kind
}

type GeneralQuery struct {
	Question string
}

// WhisperQuery is a general query answered privately to Targets and the requester.
// Targets holds the whisper aliases with the assistant alias removed.
type WhisperQuery struct {
	Targets  []string
	Question string
}

type InventoryQuery struct {
	Text string
}

type InventoryOp int

const (
	// OpAdd applies a signed delta.
	OpAdd InventoryOp = iota
	// OpSet sets an absolute quantity.
	OpSet
)

type InventoryMutation struct {
	Op       InventoryOp
	Amount   int
	ItemName string
}

type SkillQuery struct {
	Text string
}

type SkillOp int

const (
	SkillIncrease SkillOp = iota
	SkillDecrease
	SkillSet
)

type SkillMutation struct {
	Op        SkillOp
	Amount    int
	SkillName string
}

type EquipToggle struct {
	On       bool
	ItemName string
}

type GiftTransfer struct {
	Amount     int
	ItemName   string
	TargetName string
}

func (GeneralQuery) Kind() Kind      { return KindGeneralQuery }
func (WhisperQuery) Kind() Kind      { return KindWhisperQuery }
func (InventoryQuery) Kind() Kind    { return KindInventoryQuery }
func (InventoryMutation) Kind() Kind { return KindInventoryMutation }
func (SkillQuery) Kind() Kind        { return KindSkillQuery }
func (SkillMutation) Kind() Kind     { return KindSkillMutation }
func (EquipToggle) Kind() Kind       { return KindEquipToggle }
func (GiftTransfer) Kind() Kind      { return KindGiftTransfer }

// IsQuery reports whether the intent is answered by the completion service.
func IsQuery(in Intent) bool {
	switch in.(type) {
	case GeneralQuery, WhisperQuery, InventoryQuery, SkillQuery:
		return true
	}
	return false
}
