package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questchronicles/types"
)

// rawEnemy holds an enemy table before compilation.
type rawEnemy struct {
	id    string
	table *lua.LTable
}

// rawBracket holds a level bracket before compilation.
type rawBracket struct {
	minLevel int
	enemyID  string
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) (float64, bool) {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n), true
	}
	return 0, false
}

// requiredEnemyStats must be numbers in every Enemy table.
var requiredEnemyStats = []string{"health", "strength", "magic", "xp_reward", "gold_reward"}

// compileEnemy converts one Enemy table into a definition.
func compileEnemy(raw rawEnemy) (types.EnemyDef, error) {
	def := types.EnemyDef{ID: raw.id, Name: getString(raw.table, "name")}
	if def.Name == "" {
		def.Name = raw.id
	}
	stats := make(map[string]int, len(requiredEnemyStats))
	for _, key := range requiredEnemyStats {
		n, ok := getNumber(raw.table, key)
		if !ok {
			return def, fmt.Errorf("field %q must be a number", key)
		}
		if n != float64(int(n)) {
			return def, fmt.Errorf("field %q must be a whole number, got %v", key, n)
		}
		stats[key] = int(n)
	}
	def.Health = stats["health"]
	def.Strength = stats["strength"]
	def.Magic = stats["magic"]
	def.XPReward = stats["xp_reward"]
	def.GoldReward = stats["gold_reward"]
	return def, nil
}

// compile converts the collected Lua data into enemy definitions and
// level brackets sorted by minimum level.
func compile(coll *collector) (map[string]types.EnemyDef, []types.Bracket, error) {
	enemies := make(map[string]types.EnemyDef, len(coll.enemies))
	for _, raw := range coll.enemies {
		if _, dup := enemies[raw.id]; dup {
			return nil, nil, fmt.Errorf("duplicate enemy %q", raw.id)
		}
		def, err := compileEnemy(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("compiling enemy %s: %w", raw.id, err)
		}
		enemies[def.ID] = def
	}

	brackets := make([]types.Bracket, 0, len(coll.brackets))
	for _, b := range coll.brackets {
		brackets = append(brackets, types.Bracket{MinLevel: b.minLevel, EnemyID: b.enemyID})
	}
	sort.SliceStable(brackets, func(i, j int) bool {
		return brackets[i].MinLevel < brackets[j].MinLevel
	})

	return enemies, brackets, nil
}
