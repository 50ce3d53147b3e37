package loader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/quest"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Unwrap reports validation failures as invalid data.
func (e *ValidationError) Unwrap() error { return errs.ErrInvalidDataFormat }

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// validate checks the loaded defs for referential integrity and consistency.
// Output is sorted so repeated loads report problems in the same order.
func validate(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}

	validateQuests(defs, ve)
	validateItems(defs, ve)
	validateBestiary(defs, ve)

	// Starting gear must exist in the catalog.
	for _, id := range state.StartingInventory {
		if _, ok := defs.Items[id]; !ok {
			ve.errorf("starting item %q not found in items", id)
		}
	}

	slices.Sort(ve.Errors)
	ve.Errors = slices.Compact(ve.Errors)
	slices.Sort(ve.Warnings)
	return ve
}

func validateQuests(defs *state.Defs, ve *ValidationError) {
	if len(defs.Quests) == 0 {
		ve.errorf("no quests defined")
	}
	for id, q := range defs.Quests {
		if q.RequiredLevel < 1 {
			ve.errorf("quest %q required level %d must be at least 1", id, q.RequiredLevel)
		}
		if q.RewardXP < 0 || q.RewardGold < 0 {
			ve.errorf("quest %q has a negative reward", id)
		}
		if q.Title == "" {
			ve.warnf("quest %q has no title", id)
		}
		if pre, ok := defs.Quests[q.Prerequisite]; ok && pre.RequiredLevel > q.RequiredLevel {
			ve.warnf("quest %q (level %d) requires %q which needs level %d",
				id, q.RequiredLevel, pre.ID, pre.RequiredLevel)
		}
	}
	// Unknown prerequisites and cycles.
	if err := quest.Validate(defs.Quests); err != nil {
		ve.errorf("%v", err)
	}
}

func validateItems(defs *state.Defs, ve *ValidationError) {
	if len(defs.Items) == 0 {
		ve.errorf("no items defined")
	}
	for id, it := range defs.Items {
		if it.Cost < 0 {
			ve.errorf("item %q has negative cost %d", id, it.Cost)
		}
		if it.Type != types.ItemConsumable && it.Effect.Stat == types.StatHealth {
			ve.warnf("%s %q boosts health, which only changes when equipped", it.Type, id)
		}
		if it.Type == types.ItemConsumable && it.Effect.Stat == types.StatHealth && it.Effect.Delta <= 0 {
			ve.warnf("consumable %q heals %d", id, it.Effect.Delta)
		}
	}
}

func validateBestiary(defs *state.Defs, ve *ValidationError) {
	if len(defs.Enemies) == 0 {
		ve.errorf("no enemies defined")
	}
	for id, e := range defs.Enemies {
		if e.Health <= 0 {
			ve.errorf("enemy %q must have positive health", id)
		}
		if e.Strength < 0 || e.Magic < 0 || e.XPReward < 0 || e.GoldReward < 0 {
			ve.errorf("enemy %q has a negative stat", id)
		}
	}

	used := map[string]bool{}
	for _, b := range defs.Brackets {
		if _, ok := defs.Enemies[b.EnemyID]; !ok {
			ve.errorf("bracket at level %d references undefined enemy %q", b.MinLevel, b.EnemyID)
		}
		used[b.EnemyID] = true
	}
	if len(defs.Brackets) == 0 || defs.Brackets[0].MinLevel > 1 {
		ve.errorf("no enemy bracket covers level 1")
	}
	for id := range defs.Enemies {
		if !used[id] {
			ve.warnf("enemy %q is not used by any bracket", id)
		}
	}
}
