// Package errs defines the domain error kinds raised by the game engine.
//
// Every kind unwraps to its category, so callers may match either:
//
//	err := fmt.Errorf("%w: %q", errs.ErrItemNotFound, id)
//	errors.Is(err, errs.ErrItemNotFound) // true
//	errors.Is(err, errs.ErrInventory)    // true
package errs

import "errors"

// Categories.
var (
	ErrGame      = errors.New("game error")
	ErrData      = kind("data error", ErrGame)
	ErrCharacter = kind("character error", ErrGame)
	ErrCombat    = kind("combat error", ErrGame)
	ErrQuest     = kind("quest error", ErrGame)
	ErrInventory = kind("inventory error", ErrGame)
	ErrSave      = kind("save error", ErrGame)
)

// Data.
var (
	ErrInvalidDataFormat = kind("invalid data format", ErrData)
	ErrMissingDataFile   = kind("missing data file", ErrData)
	ErrCorruptedData     = kind("corrupted data", ErrData)
)

// Character.
var (
	ErrInvalidCharacterClass = kind("invalid character class", ErrCharacter)
	ErrCharacterNotFound     = kind("character not found", ErrCharacter)
	ErrInsufficientLevel     = kind("insufficient level", ErrCharacter)
	ErrCharacterDead         = kind("character is dead", ErrCharacter)
)

// Combat.
var (
	ErrInvalidTarget     = kind("invalid target", ErrCombat)
	ErrCombatNotActive   = kind("combat not active", ErrCombat)
	ErrAbilityOnCooldown = kind("ability on cooldown", ErrCombat)
)

// Quest.
var (
	ErrQuestNotFound           = kind("quest not found", ErrQuest)
	ErrQuestRequirementsNotMet = kind("quest requirements not met", ErrQuest)
	ErrQuestAlreadyCompleted   = kind("quest already completed", ErrQuest)
	ErrQuestAlreadyActive      = kind("quest already active", ErrQuest)
	ErrQuestNotActive          = kind("quest not active", ErrQuest)
)

// Inventory.
var (
	ErrInventoryFull         = kind("inventory full", ErrInventory)
	ErrItemNotFound          = kind("item not found", ErrInventory)
	ErrInsufficientResources = kind("insufficient resources", ErrInventory)
	ErrInvalidItemType       = kind("invalid item type", ErrInventory)
)

// Save.
var (
	ErrSaveFileCorrupted = kind("save file corrupted", ErrSave)
	ErrInvalidSaveData   = kind("invalid save data", ErrSave)
)

// Kind is a named error that belongs to a parent category.
type Kind struct {
	msg    string
	parent error
}

func kind(msg string, parent error) *Kind {
	return &Kind{msg: msg, parent: parent}
}

func (k *Kind) Error() string { return k.msg }

// Unwrap returns the category the kind belongs to.
func (k *Kind) Unwrap() error { return k.parent }
