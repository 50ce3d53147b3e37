package engine

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/nathoo/questchronicles/engine/events"
	"github.com/nathoo/questchronicles/engine/save"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// testDefs builds a small game: two quests, four items and one enemy.
func testDefs() *state.Defs {
	return &state.Defs{
		Quests: map[string]types.Quest{
			"first_steps": {
				ID: "first_steps", Title: "First Steps", Description: "Begin your adventure.",
				RewardXP: 50, RewardGold: 25, RequiredLevel: 1,
			},
			"goblin_hunter": {
				ID: "goblin_hunter", Title: "Goblin Hunter", Description: "Clear the goblin camp.",
				RewardXP: 100, RewardGold: 75, RequiredLevel: 2, Prerequisite: "first_steps",
			},
		},
		Items: map[string]types.Item{
			"health_potion": {
				ID: "health_potion", Name: "Health Potion", Type: types.ItemConsumable,
				Effect: types.Effect{Stat: types.StatHealth, Delta: 20}, Cost: 25,
			},
			"greater_health_potion": {
				ID: "greater_health_potion", Name: "Greater Health Potion", Type: types.ItemConsumable,
				Effect: types.Effect{Stat: types.StatHealth, Delta: 50}, Cost: 60,
			},
			"rusty_sword": {
				ID: "rusty_sword", Name: "Rusty Sword", Type: types.ItemWeapon,
				Effect: types.Effect{Stat: types.StatStrength, Delta: 2}, Cost: 10,
			},
			"leather_armor": {
				ID: "leather_armor", Name: "Leather Armor", Type: types.ItemArmor,
				Effect: types.Effect{Stat: types.StatMaxHealth, Delta: 10}, Cost: 40,
			},
		},
		Enemies: map[string]types.EnemyDef{
			"goblin": {ID: "goblin", Name: "Goblin", Health: 50, Strength: 8, Magic: 2, XPReward: 25, GoldReward: 10},
		},
		Brackets: []types.Bracket{{MinLevel: 1, EnemyID: "goblin"}},
	}
}

func newTestEngine(t *testing.T, class types.Class) *Engine {
	t.Helper()
	c, err := state.NewCharacter("Hero", class)
	if err != nil {
		t.Fatal(err)
	}
	return New(testDefs(), c, NewRNG(42))
}

func outputContains(result types.Result, substr string) bool {
	for _, line := range result.Output {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func hasEvent(result types.Result, eventType string) bool {
	return slices.ContainsFunc(result.Events, func(e types.Event) bool { return e.Type == eventType })
}

func TestStep_EmptyInput(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("   ")
	if !outputContains(result, "What do you want to do?") {
		t.Errorf("unexpected output: %v", result.Output)
	}
}

func TestStep_UnknownVerb(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("dance wildly")
	if !outputContains(result, "I don't understand") {
		t.Errorf("unexpected output: %v", result.Output)
	}
}

func TestStep_Stats(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("stats")
	for _, want := range []string{"Hero the Warrior (level 1)", "HP 120/120", "XP 0/100  Gold 100", "Weapon: none"} {
		if !outputContains(result, want) {
			t.Errorf("stats missing %q: %v", want, result.Output)
		}
	}
}

func TestStep_Inventory(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("i")
	if !outputContains(result, "Inventory (3/20)") {
		t.Errorf("missing header: %v", result.Output)
	}
	if !outputContains(result, "Health Potion (consumable, +20 health) x2") {
		t.Errorf("potions should be grouped: %v", result.Output)
	}

	e.Character.Inventory = nil
	if !outputContains(e.Step("inventory"), "carrying nothing") {
		t.Error("expected empty inventory message")
	}
}

func TestStep_UsePotion(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Character.Health = 50

	result := e.Step("drink health potion")
	if e.Character.Health != 70 {
		t.Errorf("health = %d, want 70", e.Character.Health)
	}
	if state.CountItem(e.Character, "health_potion") != 1 {
		t.Errorf("expected one potion left, inventory %v", e.Character.Inventory)
	}
	if !hasEvent(result, events.ItemUsed) {
		t.Error("expected item_used event")
	}
}

func TestStep_UseMissingItem(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("use leather armor")
	if !outputContains(result, "Item not found") {
		t.Errorf("unexpected output: %v", result.Output)
	}
	if len(result.Events) != 0 {
		t.Error("a failed command must not emit events")
	}
}

func TestStep_UseWeaponRejected(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("use rusty sword")
	if !outputContains(result, "Invalid item type") {
		t.Errorf("unexpected output: %v", result.Output)
	}
}

func TestStep_EquipAndUnequip(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	c := e.Character

	result := e.Step("equip sword")
	if c.EquippedWeapon != "rusty_sword" || c.Strength != 17 {
		t.Fatalf("after equip: weapon %q strength %d", c.EquippedWeapon, c.Strength)
	}
	if state.HasItem(c, "rusty_sword") {
		t.Error("equipped item should leave the inventory")
	}
	if !hasEvent(result, events.ItemEquipped) {
		t.Error("expected item_equipped event")
	}

	e.Step("unequip weapon")
	if c.EquippedWeapon != "" || c.Strength != 15 || !state.HasItem(c, "rusty_sword") {
		t.Errorf("after unequip: weapon %q strength %d inventory %v", c.EquippedWeapon, c.Strength, c.Inventory)
	}

	if !outputContains(e.Step("unequip armor"), "no armor equipped") {
		t.Error("expected empty slot message")
	}
}

func TestStep_WieldAndWearCheckSlot(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	c := e.Character
	c.Inventory = append(c.Inventory, "leather_armor")

	if !outputContains(e.Step("wield leather armor"), "Invalid item type") {
		t.Error("wield should reject armor")
	}
	if !outputContains(e.Step("wear rusty sword"), "Invalid item type") {
		t.Error("wear should reject a weapon")
	}
	if c.EquippedWeapon != "" || c.EquippedArmor != "" {
		t.Fatalf("nothing should be equipped: %q %q", c.EquippedWeapon, c.EquippedArmor)
	}

	e.Step("wield rusty sword")
	e.Step("don leather armor")
	if c.EquippedWeapon != "rusty_sword" || c.EquippedArmor != "leather_armor" {
		t.Errorf("after wield and wear: %q %q", c.EquippedWeapon, c.EquippedArmor)
	}
}

func TestStep_UnequipByName(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Step("equip rusty sword")
	e.Step("take off rusty sword")
	if e.Character.EquippedWeapon != "" {
		t.Errorf("weapon still equipped: %q", e.Character.EquippedWeapon)
	}
}

func TestStep_BuyAndSell(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	c := e.Character

	result := e.Step("buy leather armor")
	if c.Gold != 60 || !state.HasItem(c, "leather_armor") {
		t.Fatalf("after buy: gold %d inventory %v", c.Gold, c.Inventory)
	}
	if !hasEvent(result, events.ItemBought) {
		t.Error("expected item_bought event")
	}

	result = e.Step("sell leather armor")
	if c.Gold != 80 || state.HasItem(c, "leather_armor") {
		t.Errorf("after sell: gold %d inventory %v", c.Gold, c.Inventory)
	}
	if !outputContains(result, "for 20 gold") {
		t.Errorf("unexpected output: %v", result.Output)
	}
}

func TestStep_BuyErrors(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)

	e.Character.Gold = 5
	if !outputContains(e.Step("buy health potion"), "Insufficient resources") {
		t.Error("expected insufficient gold")
	}

	e.Character.Gold = 1000
	e.Inventory.Capacity = 3
	if !outputContains(e.Step("buy health potion"), "Inventory full") {
		t.Error("expected full inventory")
	}

	if !outputContains(e.Step("buy potion"), "Which potion do you mean?") {
		t.Error("expected ambiguity between potions")
	}
}

func TestStep_Shop(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	result := e.Step("shop")
	if !outputContains(result, "Gold: 100") {
		t.Errorf("missing gold: %v", result.Output)
	}
	// Sorted by cost: the sword (10) is listed before the armor (40).
	sword, armor := -1, -1
	for i, line := range result.Output {
		if strings.Contains(line, "Rusty Sword") {
			sword = i
		}
		if strings.Contains(line, "Leather Armor") {
			armor = i
		}
	}
	if sword < 0 || armor < 0 || sword > armor {
		t.Errorf("shop order wrong: %v", result.Output)
	}
}

func TestStep_QuestLifecycle(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	c := e.Character
	c.Experience = 60

	if !outputContains(e.Step("accept goblin hunter"), "Insufficient level") {
		t.Error("expected level gate")
	}

	result := e.Step("accept first steps")
	if !hasEvent(result, events.QuestAccepted) || !state.IsActive(c, "first_steps") {
		t.Fatalf("accept failed: %v", result.Output)
	}
	if !outputContains(e.Step("accept first steps"), "Quest already active") {
		t.Error("expected already active")
	}

	if !outputContains(e.Step("quests active"), "First Steps") {
		t.Error("active list should show the quest")
	}

	result = e.Step("turn in first steps")
	if !hasEvent(result, events.QuestCompleted) || !hasEvent(result, events.LevelUp) {
		t.Fatalf("expected completion and level-up events: %v", result.Events)
	}
	if c.Gold != 125 || c.Level != 2 {
		t.Errorf("gold %d level %d, want 125 and 2", c.Gold, c.Level)
	}

	if !outputContains(e.Step("quests available"), "Goblin Hunter") {
		t.Error("goblin hunter should now be available")
	}
	if !outputContains(e.Step("quests completed"), "First Steps") {
		t.Error("completed list should show the quest")
	}
}

func TestStep_AbandonQuest(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Step("accept first steps")
	result := e.Step("abandon first steps")
	if !hasEvent(result, events.QuestAbandoned) || len(e.Character.ActiveQuests) != 0 {
		t.Errorf("abandon failed: %v", result.Output)
	}
	if !outputContains(e.Step("complete first steps"), "Quest not found") {
		t.Error("complete only searches active quests")
	}
}

func TestStep_Chain(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Character.CompletedQuests = []string{"first_steps"}
	result := e.Step("chain goblin hunter")
	if len(result.Output) != 2 {
		t.Fatalf("expected two chain lines, got %v", result.Output)
	}
	if !strings.Contains(result.Output[0], "[x] First Steps") {
		t.Errorf("first link: %q", result.Output[0])
	}
	if !strings.Contains(result.Output[1], "[ ] Goblin Hunter") {
		t.Errorf("second link: %q", result.Output[1])
	}
}

func TestStep_CombatOutsideBattle(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	if !outputContains(e.Step("attack"), "Combat not active") {
		t.Error("expected combat not active")
	}
}

func TestStep_BattleToVictory(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)

	result := e.Step("explore")
	if !hasEvent(result, events.BattleStarted) || !e.InCombat() {
		t.Fatalf("explore did not start a battle: %v", result.Output)
	}

	blocked := e.Step("shop")
	if !outputContains(blocked, "middle of a fight") {
		t.Errorf("shop should be blocked in combat: %v", blocked.Output)
	}
	if !outputContains(e.Step("stats"), "Fighting Goblin") {
		t.Error("stats should be allowed in combat")
	}

	var last types.Result
	for i := 0; e.InCombat(); i++ {
		if i > 20 {
			t.Fatal("battle did not end")
		}
		last = e.Step("attack")
	}
	if !hasEvent(last, events.BattleWon) {
		t.Fatalf("expected victory: %v", last.Output)
	}
	if e.Character.Gold != 110 || e.Character.Experience != 25 {
		t.Errorf("gold %d xp %d, want 110 and 25", e.Character.Gold, e.Character.Experience)
	}
	if e.Battle != nil {
		t.Error("battle should be cleared after it ends")
	}
}

func TestStep_SpecialCooldownMessage(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Step("explore")
	e.Battle.Enemy.Health = 1000

	if !outputContains(e.Step("special"), "Power Strike") {
		t.Fatal("expected Power Strike")
	}
	if !outputContains(e.Step("special"), "Ability on cooldown") {
		t.Error("expected cooldown error")
	}
}

func TestStep_PotionHintAfterHardFight(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Step("explore")
	e.Battle.Enemy.Health = 1
	e.Character.Health = 10

	result := e.Step("attack")
	if !outputContains(result, "Drink a health potion") {
		t.Errorf("expected potion hint: %v", result.Output)
	}
}

func TestStep_DefeatAndRevive(t *testing.T) {
	e := newTestEngine(t, types.ClassMage)
	e.Step("explore")
	e.Battle.Enemy.Health = 1000
	e.Character.Health = 1

	result := e.Step("attack")
	if !hasEvent(result, events.BattleLost) {
		t.Fatalf("expected defeat: %v", result.Output)
	}

	if !outputContains(e.Step("inventory"), "You have fallen") {
		t.Error("a dead character may only revive")
	}

	result = e.Step("revive")
	if !hasEvent(result, events.CharacterRevived) {
		t.Fatalf("revive failed: %v", result.Output)
	}
	if e.Character.Gold != 50 || e.Character.Health != 40 {
		t.Errorf("gold %d health %d, want 50 and 40", e.Character.Gold, e.Character.Health)
	}
	if !outputContains(e.Step("revive"), "not dead") {
		t.Error("reviving the living should be refused")
	}
}

func TestStep_GameOverWhenReviveUnaffordable(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Character.Health = 0
	e.Character.Gold = 10

	result := e.Step("revive")
	if !e.GameOver || !hasEvent(result, events.GameOver) {
		t.Fatalf("expected game over: %v", result.Output)
	}
	if !outputContains(e.Step("stats"), "Game over") {
		t.Error("commands should be blocked after game over")
	}
}

func TestStep_EventsReachSubscribers(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	var seen []string
	e.Bus.On(events.QuestAccepted, func(evt types.Event) []string {
		seen = append(seen, evt.Data["quest"].(string))
		return []string{"The village elder nods."}
	})

	result := e.Step("accept first steps")
	if !slices.Equal(seen, []string{"first_steps"}) {
		t.Errorf("handler saw %v", seen)
	}
	if !outputContains(result, "The village elder nods.") {
		t.Errorf("handler output missing: %v", result.Output)
	}
}

func TestStep_Deterministic(t *testing.T) {
	run := func() []string {
		e := newTestEngine(t, types.ClassRogue)
		var out []string
		for _, cmd := range []string{"explore", "attack", "special", "attack", "attack", "attack"} {
			out = append(out, e.Step(cmd).Output...)
		}
		return out
	}
	if a, b := run(), run(); !slices.Equal(a, b) {
		t.Errorf("same seed produced different games:\n%v\n%v", a, b)
	}
}

func TestFromSave_ContinuesRNGStream(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	e.Step("explore")
	for e.InCombat() {
		e.Step("attack")
	}

	data, err := save.Save(e.Character, e.Session())
	if err != nil {
		t.Fatal(err)
	}
	sd, err := save.Load(data)
	if err != nil {
		t.Fatal(err)
	}
	restored := FromSave(testDefs(), sd)

	for _, cmd := range []string{"explore", "attack", "attack"} {
		want, got := e.Step(cmd).Output, restored.Step(cmd).Output
		if !slices.Equal(want, got) {
			t.Fatalf("%s: restored session diverged:\n%v\n%v", cmd, want, got)
		}
	}
}

func TestFromSave_ResumesBattle(t *testing.T) {
	store, err := save.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	e := newTestEngine(t, types.ClassWarrior)
	e.Step("explore")
	e.Step("special")
	if !e.InCombat() {
		t.Fatal("expected the battle to still be running")
	}
	if err := e.Save(ctx, store); err != nil {
		t.Fatal(err)
	}
	sd, err := store.Get(ctx, "Hero")
	if err != nil {
		t.Fatal(err)
	}
	restored := FromSave(testDefs(), sd)

	if !restored.InCombat() {
		t.Fatal("reloading escaped the battle")
	}
	got, want := restored.Battle, e.Battle
	if *got.Enemy != *want.Enemy || got.Turns != want.Turns || got.Cooldown != want.Cooldown {
		t.Errorf("restored battle %+v %+v, want %+v %+v", got, *got.Enemy, want, *want.Enemy)
	}
	if !outputContains(restored.Step("explore"), "middle of a fight") {
		t.Error("explore should be blocked in a restored battle")
	}
	if !outputContains(restored.Step("special"), "cooldown") {
		t.Error("special cooldown should survive the reload")
	}

	for e.InCombat() {
		want, got := e.Step("attack").Output, restored.Step("attack").Output
		if !slices.Equal(want, got) {
			t.Fatalf("restored battle diverged:\n%v\n%v", want, got)
		}
	}
	if restored.InCombat() {
		t.Error("restored battle should end with the original")
	}
}

func TestEngine_SaveOutsideCombatHasNoBattle(t *testing.T) {
	e := newTestEngine(t, types.ClassWarrior)
	if e.Session().Battle != nil {
		t.Error("no battle expected outside combat")
	}
	e.Step("explore")
	if b := e.Session().Battle; b == nil || b.Enemy.Name != "Goblin" {
		t.Errorf("expected the goblin in the saved session, got %+v", b)
	}
}

func TestEngine_SaveToStore(t *testing.T) {
	store, err := save.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, types.ClassCleric)
	e.Step("accept first steps")

	ctx := context.Background()
	if err := e.Save(ctx, store); err != nil {
		t.Fatal(err)
	}
	sd, err := store.Get(ctx, "Hero")
	if err != nil {
		t.Fatal(err)
	}
	if sd.RNGPosition != e.RNG.Position() || !slices.Equal(sd.ActiveQuests, []string{"first_steps"}) {
		t.Errorf("save mismatch: %+v", sd)
	}
}
