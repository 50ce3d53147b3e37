// Package effects applies item stat effects to a character. Every mode is one
// atomic mutation; inventory bookkeeping happens in the caller.
package effects

import (
	"fmt"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// Mode selects how an effect is applied.
type Mode int

const (
	// Consume applies a consumable: health heals, other stats change permanently.
	Consume Mode = iota
	// Equip applies a worn item's bonus.
	Equip
	// Unequip reverts a worn item's bonus.
	Unequip
)

// ValidStats lists the stats an effect may target.
var ValidStats = map[string]bool{
	types.StatHealth:    true,
	types.StatMaxHealth: true,
	types.StatStrength:  true,
	types.StatMagic:     true,
}

// Apply applies eff to the character in the given mode. Returns the
// effective change, which differs from the delta only when health clamps.
func Apply(c *types.Character, eff types.Effect, mode Mode) (int, error) {
	if !ValidStats[eff.Stat] {
		return 0, fmt.Errorf("%w: unknown effect stat %q", errs.ErrInvalidDataFormat, eff.Stat)
	}

	delta := eff.Delta
	if mode == Unequip {
		delta = -delta
	}

	switch eff.Stat {
	case types.StatHealth:
		if mode == Consume {
			return state.Heal(c, delta), nil
		}
		before := c.Health
		c.Health += delta
		clampHealth(c)
		return c.Health - before, nil

	case types.StatMaxHealth:
		c.MaxHealth += delta
		if c.MaxHealth < 1 {
			c.MaxHealth = 1
		}
		if delta > 0 {
			c.Health += delta
		}
		clampHealth(c)
		return delta, nil

	case types.StatStrength:
		c.Strength += delta
		return delta, nil

	case types.StatMagic:
		c.Magic += delta
		return delta, nil
	}
	return 0, nil
}

// Describe renders an effect for menus, e.g. "+5 strength".
func Describe(eff types.Effect) string {
	return fmt.Sprintf("%+d %s", eff.Delta, eff.Stat)
}

// clampHealth keeps health within [0, max].
func clampHealth(c *types.Character) {
	if c.Health > c.MaxHealth {
		c.Health = c.MaxHealth
	}
	if c.Health < 0 {
		c.Health = 0
	}
}
