package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// validDefs returns a minimal valid Defs for testing.
func validDefs() *state.Defs {
	return &state.Defs{
		Quests: map[string]types.Quest{
			"first_steps":   {ID: "first_steps", Title: "First Steps", RequiredLevel: 1, RewardXP: 50},
			"goblin_hunter": {ID: "goblin_hunter", Title: "Goblin Hunter", RequiredLevel: 2, Prerequisite: "first_steps"},
		},
		Items: map[string]types.Item{
			"health_potion": {ID: "health_potion", Type: types.ItemConsumable, Effect: types.Effect{Stat: types.StatHealth, Delta: 20}, Cost: 25},
			"rusty_sword":   {ID: "rusty_sword", Type: types.ItemWeapon, Effect: types.Effect{Stat: types.StatStrength, Delta: 2}, Cost: 10},
		},
		Enemies: map[string]types.EnemyDef{
			"goblin": {ID: "goblin", Name: "Goblin", Health: 50, Strength: 8},
		},
		Brackets: []types.Bracket{{MinLevel: 1, EnemyID: "goblin"}},
	}
}

func TestValidate_ValidDefs(t *testing.T) {
	ve := validate(validDefs())
	if len(ve.Errors) != 0 {
		t.Fatalf("expected no errors, got: %v", ve.Errors)
	}
	if len(ve.Warnings) != 0 {
		t.Errorf("expected no warnings, got: %v", ve.Warnings)
	}
}

func TestValidate_UnknownPrerequisite(t *testing.T) {
	defs := validDefs()
	defs.Quests["orphan"] = types.Quest{ID: "orphan", Title: "Orphan", RequiredLevel: 1, Prerequisite: "ghost"}

	ve := validate(defs)
	assertContains(t, ve.Errors, "ghost")
}

func TestValidate_PrerequisiteCycle(t *testing.T) {
	defs := validDefs()
	q := defs.Quests["first_steps"]
	q.Prerequisite = "goblin_hunter"
	defs.Quests["first_steps"] = q

	ve := validate(defs)
	assertContains(t, ve.Errors, "cycle")
}

func TestValidate_BadQuestValues(t *testing.T) {
	defs := validDefs()
	defs.Quests["broken"] = types.Quest{ID: "broken", Title: "Broken", RequiredLevel: 0, RewardGold: -5}

	ve := validate(defs)
	assertContains(t, ve.Errors, "required level 0")
	assertContains(t, ve.Errors, "negative reward")
}

func TestValidate_MissingStartingItem(t *testing.T) {
	defs := validDefs()
	delete(defs.Items, "rusty_sword")

	ve := validate(defs)
	assertContains(t, ve.Errors, `starting item "rusty_sword"`)
}

func TestValidate_BracketReferencesUndefinedEnemy(t *testing.T) {
	defs := validDefs()
	defs.Brackets = append(defs.Brackets, types.Bracket{MinLevel: 3, EnemyID: "orc"})

	ve := validate(defs)
	assertContains(t, ve.Errors, `undefined enemy "orc"`)
}

func TestValidate_NoBracketForLevelOne(t *testing.T) {
	defs := validDefs()
	defs.Brackets = []types.Bracket{{MinLevel: 2, EnemyID: "goblin"}}

	ve := validate(defs)
	assertContains(t, ve.Errors, "level 1")
}

func TestValidate_EnemyHealth(t *testing.T) {
	defs := validDefs()
	defs.Enemies["ghost"] = types.EnemyDef{ID: "ghost", Health: 0}
	defs.Brackets = append(defs.Brackets, types.Bracket{MinLevel: 5, EnemyID: "ghost"})

	ve := validate(defs)
	assertContains(t, ve.Errors, "positive health")
}

func TestValidate_Warnings(t *testing.T) {
	defs := validDefs()
	defs.Enemies["orc"] = types.EnemyDef{ID: "orc", Health: 80}
	defs.Items["cursed_ring"] = types.Item{ID: "cursed_ring", Type: types.ItemArmor, Effect: types.Effect{Stat: types.StatHealth, Delta: 5}}
	defs.Quests["early"] = types.Quest{ID: "early", Title: "Early", RequiredLevel: 1, Prerequisite: "goblin_hunter"}

	ve := validate(defs)
	if len(ve.Errors) != 0 {
		t.Fatalf("warnings must not fail validation: %v", ve.Errors)
	}
	assertContains(t, ve.Warnings, `enemy "orc" is not used`)
	assertContains(t, ve.Warnings, "cursed_ring")
	assertContains(t, ve.Warnings, `quest "early"`)
}

func TestValidationError_Message(t *testing.T) {
	ve := &ValidationError{Errors: []string{"first", "second"}}
	msg := ve.Error()
	if !strings.Contains(msg, "2 error(s)") || !strings.Contains(msg, "second") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func assertContains(t *testing.T, list []string, substr string) {
	t.Helper()
	for _, s := range list {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected an entry containing %q in %v", substr, list)
}
