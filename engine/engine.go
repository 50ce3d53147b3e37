// Package engine provides the Step() orchestrator that wires together
// parsing, name resolution, the quest log, the inventory, combat and events
// into a single turn.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/questchronicles/engine/effects"
	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/events"
	"github.com/nathoo/questchronicles/engine/inventory"
	"github.com/nathoo/questchronicles/engine/parser"
	"github.com/nathoo/questchronicles/engine/quest"
	"github.com/nathoo/questchronicles/engine/resolve"
	"github.com/nathoo/questchronicles/engine/rules"
	"github.com/nathoo/questchronicles/engine/save"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// After a won battle, a potion hint is shown below 1/lowHealthFraction of
// maximum health.
const lowHealthFraction = 3

// Engine is one game session: a character played against fixed definitions.
type Engine struct {
	Character *types.Character
	Defs      *state.Defs
	RNG       *RNG
	Battle    *Battle // nil outside combat
	Inventory *inventory.Manager
	Quests    *quest.Log
	Bus       *events.Bus
	Log       *zap.Logger
	GameOver  bool
	TurnCount int
}

// New creates a session for a character. The logger defaults to a no-op
// logger and may be replaced before the first Step.
func New(defs *state.Defs, c *types.Character, rng *RNG) *Engine {
	e := &Engine{
		Character: c,
		Defs:      defs,
		RNG:       rng,
		Inventory: inventory.New(defs.Items, inventory.DefaultCapacity),
		Quests:    quest.New(defs.Quests),
		Bus:       &events.Bus{},
		Log:       zap.NewNop(),
	}
	e.subscribeDefaults()
	return e
}

// FromSave restores a session from a save, including the RNG position and
// any battle that was in progress.
func FromSave(defs *state.Defs, sd *save.SaveData) *Engine {
	c := sd.Character
	e := New(defs, &c, RestoreRNG(sd.RNGSeed, sd.RNGPosition))
	if sb := sd.Battle; sb != nil {
		enemy := sb.Enemy
		b, err := ResumeBattle(e.Character, &enemy, sb.Turns, sb.Cooldown, e.RNG)
		if err != nil {
			e.Log.Warn("dropping saved battle", zap.Error(err))
		} else {
			e.Battle = b
		}
	}
	return e
}

// Session returns the state saved alongside the character.
func (e *Engine) Session() save.Session {
	s := save.Session{RNGSeed: e.RNG.Seed(), RNGPosition: e.RNG.Position()}
	if e.InCombat() {
		b := e.Battle
		s.Battle = &save.Battle{Enemy: *b.Enemy, Turns: b.Turns, Cooldown: b.Cooldown}
	}
	return s
}

// Save persists the character, RNG position and any running battle to a
// store.
func (e *Engine) Save(ctx context.Context, store save.Store) error {
	return store.Put(ctx, e.Character, e.Session())
}

// InCombat reports whether a battle is in progress.
func (e *Engine) InCombat() bool {
	return e.Battle != nil && e.Battle.Active()
}

// subscribeDefaults registers the handlers every session carries.
func (e *Engine) subscribeDefaults() {
	e.Bus.On("", func(evt types.Event) []string {
		fields := make([]zap.Field, 0, len(evt.Data)+2)
		fields = append(fields, zap.String("type", evt.Type), zap.String("character", e.Character.Name))
		for k, v := range evt.Data {
			fields = append(fields, zap.Any(k, v))
		}
		e.Log.Info("event", fields...)
		return nil
	})

	e.Bus.Subscribe(events.Handler{
		Type:       events.BattleWon,
		Conditions: []types.Condition{rules.Alive(), rules.HasItem("health_potion")},
		Fn: func(types.Event) []string {
			c := e.Character
			if c.Health*lowHealthFraction >= c.MaxHealth {
				return nil
			}
			return []string{"Your wounds are deep. Drink a health potion before exploring again."}
		},
	})
}

// turn accumulates the output and events of one Step.
type turn struct {
	out  []string
	evts []types.Event
}

func (t *turn) say(format string, args ...any) {
	t.out = append(t.out, fmt.Sprintf(format, args...))
}

func (t *turn) emit(eventType string, kv ...any) {
	t.evts = append(t.evts, events.New(eventType, kv...))
}

// Step processes one player command and returns the result.
func (e *Engine) Step(input string) types.Result {
	var result types.Result

	// Game over blocks every command.
	if e.GameOver {
		result.Output = append(result.Output, "Game over. Start a new character or load a save.")
		return result
	}

	intent := parser.Parse(input)
	if intent.Verb == "" {
		result.Output = append(result.Output, "What do you want to do?")
		return result
	}

	if e.InCombat() && !isCombatVerb(intent.Verb) {
		result.Output = append(result.Output, "You're in the middle of a fight! (attack, special, run, stats, inventory)")
		return result
	}

	if state.IsDead(e.Character) && !deadVerbs[intent.Verb] {
		result.Output = append(result.Output, fmt.Sprintf(
			"You have fallen. Type 'revive' to return for %d gold.", state.ReviveCost(e.Character)))
		return result
	}

	t := &turn{}
	if err := e.dispatch(t, intent); err != nil {
		e.Log.Debug("command failed",
			zap.String("verb", intent.Verb),
			zap.String("object", intent.Object),
			zap.Error(err))
		t.say("%s", describeError(err))
	}

	result.Output = t.out
	result.Events = t.evts
	result.Output = append(result.Output, e.Bus.Dispatch(t.evts, e.Character)...)

	e.TurnCount++
	return result
}

// deadVerbs are the commands a dead character may still issue.
var deadVerbs = map[string]bool{
	"revive": true,
	"stats":  true,
	"help":   true,
}

func (e *Engine) dispatch(t *turn, intent types.Intent) error {
	obj := intent.Object

	switch intent.Verb {
	case "stats":
		e.cmdStats(t)
	case "inventory":
		e.cmdInventory(t)
	case "use":
		return e.cmdUse(t, obj)
	case "equip":
		return e.cmdEquip(t, obj, e.Inventory.Equip)
	case "wield":
		return e.cmdEquip(t, obj, e.Inventory.EquipWeapon)
	case "wear":
		return e.cmdEquip(t, obj, e.Inventory.EquipArmor)
	case "unequip":
		return e.cmdUnequip(t, obj)
	case "shop":
		e.cmdShop(t)
	case "buy":
		return e.cmdBuy(t, obj)
	case "sell":
		return e.cmdSell(t, obj)
	case "quests":
		return e.cmdQuests(t, obj)
	case "accept":
		return e.cmdAccept(t, obj)
	case "complete":
		return e.cmdComplete(t, obj)
	case "abandon":
		return e.cmdAbandon(t, obj)
	case "chain":
		return e.cmdChain(t, obj)
	case "explore":
		return e.cmdExplore(t)
	case "attack", "special", "run":
		return e.cmdCombat(t, intent.Verb)
	case "revive":
		return e.cmdRevive(t)
	case "wait":
		t.say("Time passes.")
	case "help":
		e.cmdHelp(t)
	default:
		t.say("I don't understand %q. Type 'help' for a list of commands.", intent.Verb)
	}
	return nil
}

// describeError renders a domain error for the player.
func describeError(err error) string {
	var amb *resolve.AmbiguityError
	if errors.As(err, &amb) {
		return fmt.Sprintf("Which %s do you mean? (%s)", amb.Name, strings.Join(amb.Candidates, ", "))
	}
	msg := err.Error()
	if msg == "" {
		return "Something went wrong."
	}
	msg = strings.ToUpper(msg[:1]) + msg[1:]
	if !strings.ContainsAny(msg[len(msg)-1:], ".?!)") {
		msg += "."
	}
	return msg
}

func (e *Engine) cmdStats(t *turn) {
	c := e.Character
	t.say("%s the %s (level %d)", c.Name, c.Class, c.Level)
	t.say("HP %d/%d  STR %d  MAG %d", c.Health, c.MaxHealth, c.Strength, c.Magic)
	if need, ok := state.XPToNextLevel[c.Level]; ok {
		t.say("XP %d/%d  Gold %d", c.Experience, need, c.Gold)
	} else {
		t.say("XP %d (max level)  Gold %d", c.Experience, c.Gold)
	}
	t.say("Weapon: %s  Armor: %s",
		e.itemName(c.EquippedWeapon, "none"), e.itemName(c.EquippedArmor, "none"))
	t.say("Quests: %d active, %d completed", len(c.ActiveQuests), len(c.CompletedQuests))

	if e.InCombat() {
		b := e.Battle
		t.say("Fighting %s: HP %d/%d", b.Enemy.Name, b.Enemy.Health, b.Enemy.MaxHealth)
		if b.Cooldown > 0 {
			t.say("%s ready in %d turn(s)", SpecialNames[c.Class], b.Cooldown)
		} else {
			t.say("%s is ready", SpecialNames[c.Class])
		}
	}
}

func (e *Engine) cmdInventory(t *turn) {
	c := e.Character
	if len(c.Inventory) == 0 {
		t.say("You are carrying nothing.")
		return
	}
	t.say("Inventory (%d/%d):", len(c.Inventory), e.Inventory.Capacity)

	var seen []string
	for _, id := range c.Inventory {
		if !slices.Contains(seen, id) {
			seen = append(seen, id)
		}
	}
	for _, id := range seen {
		item, err := e.Inventory.Lookup(id)
		if err != nil {
			t.say("  %s (unknown item)", id)
			continue
		}
		line := fmt.Sprintf("  %s (%s, %s)", item.Name, item.Type, effects.Describe(item.Effect))
		if n := state.CountItem(c, id); n > 1 {
			line += fmt.Sprintf(" x%d", n)
		}
		t.say("%s", line)
	}
}

// carried resolves a name against the inventory.
func (e *Engine) carried(name, verb string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: %s what?", errs.ErrItemNotFound, verb)
	}
	return resolve.Item(e.Defs.Items, e.Character.Inventory, name)
}

func (e *Engine) cmdUse(t *turn, name string) error {
	id, err := e.carried(name, "use")
	if err != nil {
		return err
	}
	item, changed, err := e.Inventory.Use(e.Character, id)
	if err != nil {
		return err
	}
	c := e.Character
	if item.Effect.Stat == types.StatHealth {
		t.say("You use the %s and recover %d health. (HP %d/%d)", item.Name, changed, c.Health, c.MaxHealth)
	} else {
		t.say("You use the %s: %s.", item.Name, effects.Describe(item.Effect))
	}
	t.emit(events.ItemUsed, "item", id, "changed", changed)
	return nil
}

func (e *Engine) cmdEquip(t *turn, name string, equip func(*types.Character, string) (types.Item, error)) error {
	id, err := e.carried(name, "equip")
	if err != nil {
		return err
	}
	item, err := equip(e.Character, id)
	if err != nil {
		return err
	}
	t.say("You equip the %s (%s).", item.Name, effects.Describe(item.Effect))
	t.emit(events.ItemEquipped, "item", id)
	return nil
}

func (e *Engine) cmdUnequip(t *turn, name string) error {
	if name == "" {
		return fmt.Errorf("%w: unequip what? (weapon or armor)", errs.ErrItemNotFound)
	}
	slot, ok := inventory.ParseSlot(name)
	if !ok {
		c := e.Character
		var equipped []string
		for _, id := range []string{c.EquippedWeapon, c.EquippedArmor} {
			if id != "" {
				equipped = append(equipped, id)
			}
		}
		id, err := resolve.Item(e.Defs.Items, equipped, name)
		if err != nil {
			return err
		}
		if id == c.EquippedWeapon {
			slot = inventory.SlotWeapon
		} else {
			slot = inventory.SlotArmor
		}
	}

	id, err := e.Inventory.Unequip(e.Character, slot)
	if err != nil {
		return err
	}
	if id == "" {
		t.say("You have no %s equipped.", slot)
		return nil
	}
	t.say("You unequip the %s.", e.itemName(id, id))
	t.emit(events.ItemUnequipped, "item", id, "slot", string(slot))
	return nil
}

func (e *Engine) cmdShop(t *turn) {
	items := make([]types.Item, 0, len(e.Defs.Items))
	for _, it := range e.Defs.Items {
		items = append(items, it)
	}
	slices.SortFunc(items, func(a, b types.Item) int {
		return cmp.Or(cmp.Compare(a.Cost, b.Cost), cmp.Compare(a.ID, b.ID))
	})

	t.say("=== SHOP === Gold: %d", e.Character.Gold)
	for _, it := range items {
		t.say("  %s - %dg (%s, %s)", it.Name, it.Cost, it.Type, effects.Describe(it.Effect))
	}
	t.say("Type 'buy <item>' or 'sell <item>'. The shop pays half price.")
}

func (e *Engine) cmdBuy(t *turn, name string) error {
	if name == "" {
		return fmt.Errorf("%w: buy what?", errs.ErrItemNotFound)
	}
	id, err := resolve.Item(e.Defs.Items, nil, name)
	if err != nil {
		return err
	}
	item, err := e.Inventory.Purchase(e.Character, id)
	if err != nil {
		return err
	}
	t.say("You buy the %s for %d gold. (%d gold left)", item.Name, item.Cost, e.Character.Gold)
	t.emit(events.ItemBought, "item", id, "cost", item.Cost)
	return nil
}

func (e *Engine) cmdSell(t *turn, name string) error {
	id, err := e.carried(name, "sell")
	if err != nil {
		return err
	}
	item, price, err := e.Inventory.Sell(e.Character, id)
	if err != nil {
		return err
	}
	t.say("You sell the %s for %d gold.", item.Name, price)
	t.emit(events.ItemSold, "item", id, "price", price)
	return nil
}

func (e *Engine) cmdQuests(t *turn, which string) error {
	c := e.Character
	show := func(title string, qs []types.Quest) {
		t.say("%s:", title)
		if len(qs) == 0 {
			t.say("  (none)")
			return
		}
		for _, q := range qs {
			t.say("  %s (level %d) - %d XP, %d gold", q.Title, q.RequiredLevel, q.RewardXP, q.RewardGold)
		}
	}

	switch which {
	case "":
		show("Active quests", e.Quests.Active(c))
		show("Available quests", e.Quests.Available(c))
	case "active":
		show("Active quests", e.Quests.Active(c))
	case "available":
		show("Available quests", e.Quests.Available(c))
	case "completed", "done":
		show("Completed quests", e.Quests.Completed(c))
	default:
		return fmt.Errorf("%w: list active, available or completed quests", errs.ErrQuestNotFound)
	}
	return nil
}

// questID resolves a quest name; pool nil searches every quest.
func (e *Engine) questID(name, verb string, pool []string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: %s which quest?", errs.ErrQuestNotFound, verb)
	}
	return resolve.Quest(e.Defs.Quests, pool, name)
}

func (e *Engine) cmdAccept(t *turn, name string) error {
	id, err := e.questID(name, "accept", nil)
	if err != nil {
		return err
	}
	q, err := e.Quests.Accept(e.Character, id)
	if err != nil {
		return err
	}
	t.say("Quest accepted: %s", q.Title)
	if q.Description != "" {
		t.say("  %s", q.Description)
	}
	t.emit(events.QuestAccepted, "quest", q.ID)
	return nil
}

func (e *Engine) cmdComplete(t *turn, name string) error {
	id, err := e.questID(name, "complete", e.Character.ActiveQuests)
	if err != nil {
		return err
	}
	q, ups, err := e.Quests.Complete(e.Character, id)
	if err != nil {
		return err
	}
	t.say("Quest completed: %s! +%d XP, +%d gold.", q.Title, q.RewardXP, q.RewardGold)
	t.emit(events.QuestCompleted, "quest", q.ID, "xp", q.RewardXP, "gold", q.RewardGold)
	e.reportLevelUps(t, ups)
	return nil
}

func (e *Engine) cmdAbandon(t *turn, name string) error {
	id, err := e.questID(name, "abandon", e.Character.ActiveQuests)
	if err != nil {
		return err
	}
	q, err := e.Quests.Abandon(e.Character, id)
	if err != nil {
		return err
	}
	t.say("Quest abandoned: %s", q.Title)
	t.emit(events.QuestAbandoned, "quest", q.ID)
	return nil
}

func (e *Engine) cmdChain(t *turn, name string) error {
	id, err := e.questID(name, "chain", nil)
	if err != nil {
		return err
	}
	chain, err := e.Quests.Chain(id)
	if err != nil {
		return err
	}
	c := e.Character
	for i, q := range chain {
		mark := " "
		switch {
		case state.IsCompleted(c, q.ID):
			mark = "x"
		case state.IsActive(c, q.ID):
			mark = "*"
		}
		t.say("%s[%s] %s (level %d)", strings.Repeat("  ", i), mark, q.Title, q.RequiredLevel)
	}
	return nil
}

func (e *Engine) cmdExplore(t *turn) error {
	def, err := EnemyForLevel(e.Defs, e.Character.Level)
	if err != nil {
		return err
	}
	enemy := CreateEnemy(def)
	b, err := NewBattle(e.Character, enemy, e.RNG)
	if err != nil {
		return err
	}
	e.Battle = b
	t.say("A %s appears! (HP %d, STR %d, MAG %d)", enemy.Name, enemy.Health, enemy.Strength, enemy.Magic)
	t.say("attack, special (%s) or run?", SpecialNames[e.Character.Class])
	t.emit(events.BattleStarted, "enemy", enemy.ID)
	return nil
}

func (e *Engine) cmdCombat(t *turn, verb string) error {
	if !e.InCombat() {
		return fmt.Errorf("%w: there is nothing to fight, try 'explore'", errs.ErrCombatNotActive)
	}
	action, _ := ParseAction(verb)
	b := e.Battle
	enemy := b.Enemy
	c := e.Character

	res, err := b.Act(action)
	if err != nil {
		return err
	}

	switch {
	case res.Special != "" && res.Healed > 0:
		t.say("You cast %s and recover %d health.", res.Special, res.Healed)
	case res.Special != "" && c.Class == types.ClassCleric:
		t.say("You cast %s, but you are already at full health.", res.Special)
	case res.Special != "":
		t.say("You use %s! The %s takes %d damage. (%s: %d/%d)",
			res.Special, enemy.Name, res.Dealt, enemy.Name, enemy.Health, enemy.MaxHealth)
	case action == types.ActionAttack:
		t.say("You hit the %s for %d damage. (%s: %d/%d)",
			enemy.Name, res.Dealt, enemy.Name, enemy.Health, enemy.MaxHealth)
	case res.Fled:
		t.say("You escaped from the %s!", enemy.Name)
	case action == types.ActionRun:
		t.say("You failed to escape!")
	}
	if res.EnemyAttacked {
		t.say("The %s hits you for %d damage. (HP %d/%d)", enemy.Name, res.Taken, c.Health, c.MaxHealth)
	}
	t.emit(events.BattleTurn,
		"turn", res.Number, "dealt", res.Dealt, "taken", res.Taken, "health", c.Health)

	switch res.State {
	case types.BattlePlayerWon:
		e.Battle = nil
		r := res.Rewards
		t.say("You defeated the %s! +%d XP, +%d gold.", enemy.Name, r.XP, r.Gold)
		t.emit(events.BattleWon, "enemy", enemy.ID, "xp", r.XP, "gold", r.Gold, "turns", res.Number)
		e.reportLevelUps(t, r.LevelUps)
	case types.BattlePlayerLost:
		e.Battle = nil
		t.say("You have been defeated by the %s.", enemy.Name)
		t.say("Type 'revive' to return for %d gold.", state.ReviveCost(c))
		t.emit(events.BattleLost, "enemy", enemy.ID, "turns", res.Number)
	case types.BattleFled:
		e.Battle = nil
		t.emit(events.BattleFled, "enemy", enemy.ID, "turns", res.Number)
	}
	return nil
}

func (e *Engine) reportLevelUps(t *turn, ups []state.LevelUp) {
	for _, up := range ups {
		t.say("Level up! You are now level %d. (+%d HP, +%d STR, +%d MAG)",
			up.Level, up.Gained.Health, up.Gained.Strength, up.Gained.Magic)
		t.emit(events.LevelUp, "level", up.Level)
	}
}

func (e *Engine) cmdRevive(t *turn) error {
	c := e.Character
	cost := state.ReviveCost(c)
	revived, err := state.Revive(c)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientResources) {
			e.GameOver = true
			t.say("You cannot afford the %d gold to be revived. Game over.", cost)
			t.emit(events.GameOver, "gold", c.Gold, "cost", cost)
			return nil
		}
		return err
	}
	if !revived {
		t.say("You are not dead.")
		return nil
	}
	t.say("You are revived for %d gold. (HP %d/%d)", cost, c.Health, c.MaxHealth)
	t.emit(events.CharacterRevived, "cost", cost)
	return nil
}

func (e *Engine) cmdHelp(t *turn) {
	t.out = append(t.out, Help()...)
}

// Help returns the game command reference.
func Help() []string {
	return slices.Clone(helpLines)
}

// Announce dispatches an event raised outside Step, such as character
// creation, and returns the handlers' output.
func (e *Engine) Announce(evt types.Event) []string {
	return e.Bus.Dispatch([]types.Event{evt}, e.Character)
}

var helpLines = []string{
	"Commands:",
	"  stats (c)                  Show your character",
	"  inventory (i)              List what you carry",
	"  use <item>                 Use a consumable",
	"  equip / unequip <item>     Change weapon or armor",
	"  wield / wear <item>        Equip only a weapon / only armor",
	"  shop, buy <item>, sell <item>",
	"  quests [active|available|completed]",
	"  accept / complete / abandon <quest>",
	"  chain <quest>              Show a quest's prerequisites",
	"  explore (x)                Look for a fight",
	"  attack (a), special (s), run (r)",
	"  revive                     Return from death for gold",
	"  wait (z)                   Let time pass",
}

// itemName returns the display name of an item, or fallback for "".
func (e *Engine) itemName(itemID, fallback string) string {
	if itemID == "" {
		return fallback
	}
	if it, ok := e.Defs.Items[itemID]; ok {
		return it.Name
	}
	return itemID
}
