// Package inventory implements item storage, item use, equipment slots and
// the shop on top of the character record.
package inventory

import (
	"fmt"

	"github.com/nathoo/questchronicles/engine/effects"
	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/rules"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// DefaultCapacity is the number of items a character can carry.
const DefaultCapacity = 20

// Slot names an equipment slot.
type Slot string

const (
	SlotWeapon Slot = "weapon"
	SlotArmor  Slot = "armor"
)

// Manager applies inventory operations against a fixed item catalog.
type Manager struct {
	Items    map[string]types.Item
	Capacity int
}

// New creates a manager. A non-positive capacity selects DefaultCapacity.
func New(items map[string]types.Item, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{Items: items, Capacity: capacity}
}

// Lookup returns the catalog entry for an item ID.
func (m *Manager) Lookup(itemID string) (types.Item, error) {
	item, ok := m.Items[itemID]
	if !ok {
		return types.Item{}, fmt.Errorf("%w: no item %q", errs.ErrItemNotFound, itemID)
	}
	return item, nil
}

// SpaceRemaining returns the number of free inventory slots.
func (m *Manager) SpaceRemaining(c *types.Character) int {
	return m.Capacity - len(c.Inventory)
}

// Add puts one copy of an item into the inventory.
func (m *Manager) Add(c *types.Character, itemID string) error {
	if m.SpaceRemaining(c) < 1 {
		return fmt.Errorf("%w: cannot carry %q", errs.ErrInventoryFull, itemID)
	}
	c.Inventory = append(c.Inventory, itemID)
	return nil
}

// Remove takes one copy of an item out of the inventory.
func (m *Manager) Remove(c *types.Character, itemID string) error {
	inv, ok := state.RemoveOne(c.Inventory, itemID)
	if !ok {
		return fmt.Errorf("%w: %q is not in your inventory", errs.ErrItemNotFound, itemID)
	}
	c.Inventory = inv
	return nil
}

// carried returns the catalog entry for an item the character holds.
func (m *Manager) carried(c *types.Character, itemID string) (types.Item, error) {
	if !state.HasItem(c, itemID) {
		return types.Item{}, fmt.Errorf("%w: %q is not in your inventory", errs.ErrItemNotFound, itemID)
	}
	return m.Lookup(itemID)
}

// Use consumes one consumable item. Returns the item and the effective change.
func (m *Manager) Use(c *types.Character, itemID string) (types.Item, int, error) {
	item, err := m.carried(c, itemID)
	if err != nil {
		return item, 0, err
	}
	if item.Type != types.ItemConsumable {
		return item, 0, fmt.Errorf("%w: %s is not consumable", errs.ErrInvalidItemType, item.Name)
	}
	changed, err := effects.Apply(c, item.Effect, effects.Consume)
	if err != nil {
		return item, 0, err
	}
	if err := m.Remove(c, itemID); err != nil {
		return item, 0, err
	}
	return item, changed, nil
}

// Equip moves a weapon or armor from the inventory into its slot. An item
// already in the slot goes back to the inventory.
func (m *Manager) Equip(c *types.Character, itemID string) (types.Item, error) {
	item, err := m.carried(c, itemID)
	if err != nil {
		return item, err
	}
	slot, ok := slotFor(item.Type)
	if !ok {
		return item, fmt.Errorf("%w: %s cannot be equipped", errs.ErrInvalidItemType, item.Name)
	}
	return item, m.equip(c, item, slot)
}

// EquipWeapon equips an item that must be a weapon.
func (m *Manager) EquipWeapon(c *types.Character, itemID string) (types.Item, error) {
	return m.equipAs(c, itemID, SlotWeapon)
}

// EquipArmor equips an item that must be armor.
func (m *Manager) EquipArmor(c *types.Character, itemID string) (types.Item, error) {
	return m.equipAs(c, itemID, SlotArmor)
}

func (m *Manager) equipAs(c *types.Character, itemID string, want Slot) (types.Item, error) {
	item, err := m.carried(c, itemID)
	if err != nil {
		return item, err
	}
	if slot, _ := slotFor(item.Type); slot != want {
		return item, fmt.Errorf("%w: %s is not %s", errs.ErrInvalidItemType, item.Name, article(want))
	}
	return item, m.equip(c, item, want)
}

func (m *Manager) equip(c *types.Character, item types.Item, slot Slot) error {
	// Removing the new item first frees the slot the old one returns to.
	if err := m.Remove(c, item.ID); err != nil {
		return err
	}
	if Equipped(c, slot) != "" {
		if _, err := m.Unequip(c, slot); err != nil {
			c.Inventory = append(c.Inventory, item.ID)
			return err
		}
	}
	if _, err := effects.Apply(c, item.Effect, effects.Equip); err != nil {
		c.Inventory = append(c.Inventory, item.ID)
		return err
	}
	setEquipped(c, slot, item.ID)
	return nil
}

// Unequip returns the item in a slot to the inventory and reverts its bonus.
// Returns the unequipped item ID, or "" if the slot was empty.
func (m *Manager) Unequip(c *types.Character, slot Slot) (string, error) {
	itemID := Equipped(c, slot)
	if itemID == "" {
		return "", nil
	}
	if m.SpaceRemaining(c) < 1 {
		return "", fmt.Errorf("%w: no room to unequip %q", errs.ErrInventoryFull, itemID)
	}
	if item, ok := m.Items[itemID]; ok {
		if _, err := effects.Apply(c, item.Effect, effects.Unequip); err != nil {
			return "", err
		}
	}
	c.Inventory = append(c.Inventory, itemID)
	setEquipped(c, slot, "")
	return itemID, nil
}

// Purchase buys one copy of an item from the shop.
func (m *Manager) Purchase(c *types.Character, itemID string) (types.Item, error) {
	item, err := m.Lookup(itemID)
	if err != nil {
		return item, err
	}
	err = rules.Check([]rules.Requirement{
		{
			Cond: rules.GoldAtLeast(item.Cost),
			Err:  errs.ErrInsufficientResources,
			Msg:  fmt.Sprintf("need %d gold, have %d", item.Cost, c.Gold),
		},
		{
			Cond: rules.InventorySpace(m.Capacity, 1),
			Err:  errs.ErrInventoryFull,
			Msg:  fmt.Sprintf("no room for %s", item.Name),
		},
	}, c)
	if err != nil {
		return item, err
	}
	if err := m.Add(c, itemID); err != nil {
		return item, err
	}
	if err := state.AddGold(c, -item.Cost); err != nil {
		_ = m.Remove(c, itemID)
		return item, err
	}
	return item, nil
}

// SellPrice is what the shop pays for an item: half its cost, rounded down.
func SellPrice(item types.Item) int {
	return item.Cost / 2
}

// Sell sells one carried copy of an item. Returns the gold received.
func (m *Manager) Sell(c *types.Character, itemID string) (types.Item, int, error) {
	item, err := m.carried(c, itemID)
	if err != nil {
		return item, 0, err
	}
	if err := m.Remove(c, itemID); err != nil {
		return item, 0, err
	}
	price := SellPrice(item)
	c.Gold += price
	return item, price, nil
}

// Equipped returns the item ID in a slot, or "".
func Equipped(c *types.Character, slot Slot) string {
	switch slot {
	case SlotWeapon:
		return c.EquippedWeapon
	case SlotArmor:
		return c.EquippedArmor
	}
	return ""
}

// ParseSlot maps "weapon"/"armor" to a slot.
func ParseSlot(name string) (Slot, bool) {
	switch Slot(name) {
	case SlotWeapon, SlotArmor:
		return Slot(name), true
	}
	return "", false
}

func setEquipped(c *types.Character, slot Slot, itemID string) {
	switch slot {
	case SlotWeapon:
		c.EquippedWeapon = itemID
	case SlotArmor:
		c.EquippedArmor = itemID
	}
}

func slotFor(t types.ItemType) (Slot, bool) {
	switch t {
	case types.ItemWeapon:
		return SlotWeapon, true
	case types.ItemArmor:
		return SlotArmor, true
	}
	return "", false
}

func article(slot Slot) string {
	if slot == SlotArmor {
		return "armor"
	}
	return "a " + string(slot)
}
