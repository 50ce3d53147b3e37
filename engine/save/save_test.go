package save

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

func testCharacter(t *testing.T) *types.Character {
	t.Helper()
	c, err := state.NewCharacter("Sir Robin", types.ClassWarrior)
	require.NoError(t, err)
	c.Level = 3
	c.Gold = 240
	c.ActiveQuests = []string{"orc_menace"}
	c.CompletedQuests = []string{"first_steps", "goblin_hunter"}
	c.EquippedWeapon = "iron_sword"
	return c
}

func TestRoundTrip(t *testing.T) {
	c := testCharacter(t)

	data, err := Save(c, Session{RNGSeed: 42, RNGPosition: 17})
	require.NoError(t, err)

	sd, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, *c, sd.Character)
	assert.Equal(t, int64(42), sd.RNGSeed)
	assert.Equal(t, int64(17), sd.RNGPosition)
	assert.Equal(t, FormatVersion, sd.Version)
	assert.False(t, sd.SavedAt.IsZero())
}

func TestSave_FlatCharacterFields(t *testing.T) {
	data, err := Save(testCharacter(t), Session{RNGSeed: 1})
	require.NoError(t, err)
	require.True(t, json.Valid(data))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Sir Robin", raw["name"])
	assert.Equal(t, "Warrior", raw["class"])
	assert.EqualValues(t, 120, raw["max_health"])
	assert.Equal(t, "iron_sword", raw["equipped_weapon"])
}

func TestLoad_Corrupted(t *testing.T) {
	_, err := Load([]byte(`{"name": "Broken",`))
	assert.ErrorIs(t, err, errs.ErrSaveFileCorrupted)
	assert.ErrorIs(t, err, errs.ErrSave)
}

func TestLoad_InvalidData(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"name": "Hero", "class": "Mage", "level": 1, "health": 80, "max_health": 80,
			"strength": 8, "magic": 20, "experience": 0, "gold": 100,
			"inventory": []string{}, "active_quests": []string{}, "completed_quests": []string{},
		}
	}
	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing field", func(m map[string]any) { delete(m, "gold") }},
		{"wrong type", func(m map[string]any) { m["level"] = "three" }},
		{"fractional number", func(m map[string]any) { m["health"] = 1.5 }},
		{"list of numbers", func(m map[string]any) { m["inventory"] = []int{1, 2} }},
		{"unknown class", func(m map[string]any) { m["class"] = "Bard" }},
		{"not a list", func(m map[string]any) { m["active_quests"] = "first_steps" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			_, err = Load(data)
			assert.ErrorIs(t, err, errs.ErrInvalidSaveData)
		})
	}

	data, err := json.Marshal(valid())
	require.NoError(t, err)
	_, err = Load(data)
	assert.NoError(t, err)
}

func TestLoad_ClampsSilently(t *testing.T) {
	data := []byte(`{
		"name": "Hero", "class": "cleric", "level": 0, "health": 999, "max_health": 100,
		"strength": 10, "magic": 15, "experience": 0, "gold": 5,
		"inventory": [], "active_quests": ["a", "a", "b"], "completed_quests": ["b"]
	}`)
	sd, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, types.ClassCleric, sd.Class)
	assert.Equal(t, 1, sd.Level)
	assert.Equal(t, 100, sd.Health)
	assert.Equal(t, []string{"a"}, sd.ActiveQuests)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "sir_robin.json", FileName("Sir Robin"))
	assert.Equal(t, "hero.json", FileName(" HERO "))
}

func TestKey_StaysInsideSaveDir(t *testing.T) {
	tests := []struct{ name, want string }{
		{"../x", "___x"},
		{"../../Escaped", "______escaped"},
		{`..\evil`, "___evil"},
		{"/etc/passwd", "_etc_passwd"},
		{"Anne-Marie", "anne-marie"},
		{"Zoë", "zo_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.name), tt.name)
	}
}

func TestFileStore_TraversalNameWritesInsideDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data", "saves")
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	c, err := state.NewCharacter("../../x", types.ClassRogue)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, c, Session{RNGSeed: 1}))

	assert.FileExists(t, filepath.Join(dir, "______x.json"))
	assert.NoFileExists(t, filepath.Join(root, "x.json"))

	sd, err := s.Get(ctx, "../../x")
	require.NoError(t, err)
	assert.Equal(t, "../../x", sd.Name)
}

func TestRoundTrip_Battle(t *testing.T) {
	c := testCharacter(t)
	b := &Battle{
		Enemy:    types.Enemy{ID: "orc", Name: "Orc", Health: 30, MaxHealth: 80, Strength: 14, Magic: 4, XPReward: 50, GoldReward: 25},
		Turns:    3,
		Cooldown: 1,
	}

	data, err := Save(c, Session{RNGSeed: 5, RNGPosition: 40, Battle: b})
	require.NoError(t, err)

	sd, err := Load(data)
	require.NoError(t, err)
	require.NotNil(t, sd.Battle)
	assert.Equal(t, *b, *sd.Battle)
	assert.Equal(t, Session{RNGSeed: 5, RNGPosition: 40, Battle: sd.Battle}, sd.Session())
}

func TestLoad_Battle(t *testing.T) {
	enemy := types.Enemy{ID: "orc", Name: "Orc", Health: 30, MaxHealth: 80}

	t.Run("no battle", func(t *testing.T) {
		data, err := Save(testCharacter(t), Session{RNGSeed: 1})
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"battle"`)
		sd, err := Load(data)
		require.NoError(t, err)
		assert.Nil(t, sd.Battle)
	})

	t.Run("defeated enemy rejected", func(t *testing.T) {
		bad := enemy
		bad.Health = 0
		data, err := Save(testCharacter(t), Session{Battle: &Battle{Enemy: bad}})
		require.NoError(t, err)
		_, err = Load(data)
		assert.ErrorIs(t, err, errs.ErrInvalidSaveData)
	})

	t.Run("negative cooldown clamped", func(t *testing.T) {
		data, err := Save(testCharacter(t), Session{Battle: &Battle{Enemy: enemy, Turns: -2, Cooldown: -1}})
		require.NoError(t, err)
		sd, err := Load(data)
		require.NoError(t, err)
		assert.Equal(t, 0, sd.Battle.Turns)
		assert.Equal(t, 0, sd.Battle.Cooldown)
	})

	t.Run("dead character drops battle", func(t *testing.T) {
		c := testCharacter(t)
		c.Health = 0
		data, err := Save(c, Session{Battle: &Battle{Enemy: enemy}})
		require.NoError(t, err)
		sd, err := Load(data)
		require.NoError(t, err)
		assert.Nil(t, sd.Battle)
	})
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	c := testCharacter(t)

	_, err := s.Get(ctx, c.Name)
	assert.ErrorIs(t, err, errs.ErrCharacterNotFound)

	require.NoError(t, s.Put(ctx, c, Session{RNGSeed: 7, RNGPosition: 3}))
	sd, err := s.Get(ctx, "sir robin")
	require.NoError(t, err)
	assert.Equal(t, c.Gold, sd.Gold)
	assert.Equal(t, int64(7), sd.RNGSeed)
	assert.Equal(t, int64(3), sd.RNGPosition)

	c.Gold = 1
	require.NoError(t, s.Put(ctx, c, Session{RNGSeed: 7, RNGPosition: 9}))
	sd, err = s.Get(ctx, c.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, sd.Gold)

	other, err := state.NewCharacter("Ann", types.ClassMage)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, other, Session{RNGSeed: 1}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Summary{Name: "Ann", Class: types.ClassMage, Level: 1}, list[0])
	assert.Equal(t, "Sir Robin", list[1].Name)

	require.NoError(t, s.Delete(ctx, "Ann"))
	assert.ErrorIs(t, s.Delete(ctx, "Ann"), errs.ErrCharacterNotFound)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "saves"))
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))

	_, err = s.Get(context.Background(), "Broken")
	assert.ErrorIs(t, err, errs.ErrSaveFileCorrupted)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}
