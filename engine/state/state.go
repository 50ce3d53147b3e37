// Package state manages the character record and the immutable game
// definitions it is checked against.
package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/types"
)

// Defs holds the immutable game definitions loaded at startup.
type Defs struct {
	Quests   map[string]types.Quest
	Items    map[string]types.Item
	Enemies  map[string]types.EnemyDef
	Brackets []types.Bracket // sorted by MinLevel ascending
}

// ClassStats is a block of health/strength/magic values.
type ClassStats struct {
	Health   int
	Strength int
	Magic    int
}

// BaseStats are the level 1 stats of each class.
var BaseStats = map[types.Class]ClassStats{
	types.ClassWarrior: {Health: 120, Strength: 15, Magic: 5},
	types.ClassMage:    {Health: 80, Strength: 8, Magic: 20},
	types.ClassRogue:   {Health: 90, Strength: 12, Magic: 10},
	types.ClassCleric:  {Health: 100, Strength: 10, Magic: 15},
}

// LevelUpStats are the per-level gains of each class.
var LevelUpStats = map[types.Class]ClassStats{
	types.ClassWarrior: {Health: 20, Strength: 3, Magic: 1},
	types.ClassMage:    {Health: 10, Strength: 1, Magic: 3},
	types.ClassRogue:   {Health: 15, Strength: 2, Magic: 2},
	types.ClassCleric:  {Health: 18, Strength: 2, Magic: 2},
}

// XPToNextLevel maps a level to the cumulative experience needed to leave it.
// Levels missing from the table never level up.
var XPToNextLevel = map[int]int{
	1: 100, 2: 250, 3: 500, 4: 800, 5: 1200,
	6: 1800, 7: 2500, 8: 3500, 9: 5000, 10: 99999,
}

const (
	StartingGold    = 100
	ReviveCostLevel = 50 // gold per character level
)

// StartingInventory is handed to every new character.
var StartingInventory = []string{"health_potion", "health_potion", "rusty_sword"}

// Classes returns the playable classes in menu order.
func Classes() []types.Class {
	return []types.Class{types.ClassWarrior, types.ClassMage, types.ClassRogue, types.ClassCleric}
}

// ParseClass maps a case-insensitive class name to a Class.
func ParseClass(name string) (types.Class, error) {
	for _, c := range Classes() {
		if strings.EqualFold(string(c), strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errs.ErrInvalidCharacterClass, name)
}

// NewCharacter creates a level 1 character with the base stats of its class.
func NewCharacter(name string, class types.Class) (*types.Character, error) {
	base, ok := BaseStats[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidCharacterClass, class)
	}
	return &types.Character{
		ID:              uuid.NewString(),
		Name:            name,
		Class:           class,
		Level:           1,
		Health:          base.Health,
		MaxHealth:       base.Health,
		Strength:        base.Strength,
		Magic:           base.Magic,
		Experience:      0,
		Gold:            StartingGold,
		Inventory:       slices.Clone(StartingInventory),
		ActiveQuests:    []string{},
		CompletedQuests: []string{},
	}, nil
}

// HasItem returns true if the item is in the character's inventory.
func HasItem(c *types.Character, itemID string) bool {
	return slices.Contains(c.Inventory, itemID)
}

// CountItem returns how many copies of the item the character carries.
func CountItem(c *types.Character, itemID string) int {
	n := 0
	for _, id := range c.Inventory {
		if id == itemID {
			n++
		}
	}
	return n
}

// IsActive returns true if the quest is in the active set.
func IsActive(c *types.Character, questID string) bool {
	return slices.Contains(c.ActiveQuests, questID)
}

// IsCompleted returns true if the quest is in the completed set.
func IsCompleted(c *types.Character, questID string) bool {
	return slices.Contains(c.CompletedQuests, questID)
}

// IsDead returns true when the character has no health left.
func IsDead(c *types.Character) bool {
	return c.Health <= 0
}

// Heal restores health, clamping to max health. Returns the amount healed.
func Heal(c *types.Character, amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.Health
	c.Health += amount
	if c.Health > c.MaxHealth {
		c.Health = c.MaxHealth
	}
	return c.Health - before
}

// Damage removes health, clamping to 0. Returns remaining health.
func Damage(c *types.Character, amount int) int {
	c.Health -= amount
	if c.Health < 0 {
		c.Health = 0
	}
	return c.Health
}

// AddGold adds (or with a negative amount, spends) gold. Spending more than
// the character has fails and leaves gold untouched.
func AddGold(c *types.Character, amount int) error {
	if c.Gold+amount < 0 {
		return fmt.Errorf("%w: need %d gold, have %d", errs.ErrInsufficientResources, -amount, c.Gold)
	}
	c.Gold += amount
	return nil
}

// LevelUp records the gains of one level.
type LevelUp struct {
	Level  int
	Gained ClassStats
}

// GainExperience adds experience and applies every level-up it unlocks.
func GainExperience(c *types.Character, xp int) []LevelUp {
	if xp > 0 {
		c.Experience += xp
	}
	var ups []LevelUp
	for {
		up, ok := levelUp(c)
		if !ok {
			return ups
		}
		ups = append(ups, up)
	}
}

// levelUp applies a single level if the cumulative threshold is crossed.
// Leveling up fully heals the character.
func levelUp(c *types.Character) (LevelUp, bool) {
	need, ok := XPToNextLevel[c.Level]
	if !ok || c.Experience < need {
		return LevelUp{}, false
	}
	gain, ok := LevelUpStats[c.Class]
	if !ok {
		gain = ClassStats{Health: 10, Strength: 1, Magic: 1}
	}
	c.Level++
	c.MaxHealth += gain.Health
	c.Health = c.MaxHealth
	c.Strength += gain.Strength
	c.Magic += gain.Magic
	return LevelUp{Level: c.Level, Gained: gain}, true
}

// ReviveCost returns the gold needed to revive the character.
func ReviveCost(c *types.Character) int {
	return ReviveCostLevel * c.Level
}

// Revive brings a dead character back with half health for ReviveCost gold.
// Returns false without charging if the character is alive.
func Revive(c *types.Character) (bool, error) {
	if !IsDead(c) {
		return false, nil
	}
	cost := ReviveCost(c)
	if c.Gold < cost {
		return false, fmt.Errorf("%w: revival costs %d gold, have %d", errs.ErrInsufficientResources, cost, c.Gold)
	}
	c.Gold -= cost
	c.Health = c.MaxHealth / 2
	if c.Health < 1 {
		c.Health = 1
	}
	return true, nil
}

// Normalize applies the silent self-corrections used when a record is loaded:
// level floored at 1, health clamped to [0, max], nil collections replaced,
// and quests present in both sets kept only as completed.
func Normalize(c *types.Character) {
	if c.Level < 1 {
		c.Level = 1
	}
	if c.MaxHealth < 1 {
		c.MaxHealth = 1
	}
	if c.Health > c.MaxHealth {
		c.Health = c.MaxHealth
	}
	if c.Health < 0 {
		c.Health = 0
	}
	if c.Inventory == nil {
		c.Inventory = []string{}
	}
	if c.CompletedQuests == nil {
		c.CompletedQuests = []string{}
	}
	active := make([]string, 0, len(c.ActiveQuests))
	for _, id := range c.ActiveQuests {
		if IsCompleted(c, id) || slices.Contains(active, id) {
			continue
		}
		active = append(active, id)
	}
	c.ActiveQuests = active
}

// RemoveOne removes the first occurrence of id from list.
func RemoveOne(list []string, id string) ([]string, bool) {
	i := slices.Index(list, id)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}
