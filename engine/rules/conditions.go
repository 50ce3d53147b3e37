// Package rules evaluates requirement conditions against a character.
// Quests and the shop express their gates as conditions so that every
// failing requirement maps to one domain error.
package rules

import (
	"fmt"

	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// Requirement pairs a condition with the error reported when it fails.
type Requirement struct {
	Cond types.Condition
	Err  error
	Msg  string // detail appended to Err
}

// EvalCondition evaluates a single condition against the character.
func EvalCondition(cond types.Condition, c *types.Character) bool {
	ok := evalCondition(cond, c)
	if cond.Negate {
		return !ok
	}
	return ok
}

func evalCondition(cond types.Condition, c *types.Character) bool {
	switch cond.Type {
	case "min_level":
		return c.Level >= toInt(cond.Params["level"])

	case "quest_completed":
		quest, _ := cond.Params["quest"].(string)
		return state.IsCompleted(c, quest)

	case "quest_active":
		quest, _ := cond.Params["quest"].(string)
		return state.IsActive(c, quest)

	case "has_item":
		item, _ := cond.Params["item"].(string)
		return state.HasItem(c, item)

	case "gold_at_least":
		return c.Gold >= toInt(cond.Params["amount"])

	case "inventory_space":
		capacity := toInt(cond.Params["capacity"])
		slots := toInt(cond.Params["slots"])
		if slots == 0 {
			slots = 1
		}
		return capacity-len(c.Inventory) >= slots

	case "alive":
		return !state.IsDead(c)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, c *types.Character) bool {
	for _, cond := range conditions {
		if !EvalCondition(cond, c) {
			return false
		}
	}
	return true
}

// Check returns the error of the first failing requirement, or nil.
func Check(reqs []Requirement, c *types.Character) error {
	for _, r := range reqs {
		if EvalCondition(r.Cond, c) {
			continue
		}
		if r.Msg == "" {
			return r.Err
		}
		return fmt.Errorf("%w: %s", r.Err, r.Msg)
	}
	return nil
}

// Helpers for building conditions.

func MinLevel(level int) types.Condition {
	return types.Condition{Type: "min_level", Params: map[string]any{"level": level}}
}

func QuestCompleted(questID string) types.Condition {
	return types.Condition{Type: "quest_completed", Params: map[string]any{"quest": questID}}
}

func QuestActive(questID string) types.Condition {
	return types.Condition{Type: "quest_active", Params: map[string]any{"quest": questID}}
}

func HasItem(itemID string) types.Condition {
	return types.Condition{Type: "has_item", Params: map[string]any{"item": itemID}}
}

func GoldAtLeast(amount int) types.Condition {
	return types.Condition{Type: "gold_at_least", Params: map[string]any{"amount": amount}}
}

func InventorySpace(capacity, slots int) types.Condition {
	return types.Condition{Type: "inventory_space", Params: map[string]any{"capacity": capacity, "slots": slots}}
}

func Alive() types.Condition {
	return types.Condition{Type: "alive"}
}

// Not negates a condition.
func Not(cond types.Condition) types.Condition {
	cond.Negate = !cond.Negate
	return cond
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
