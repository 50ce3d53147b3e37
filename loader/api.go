package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers the bestiary constructors as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Enemy "id" { ... } — curried: Enemy("id") returns a function that takes a table.
	L.SetGlobal("Enemy", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.enemies = append(coll.enemies, rawEnemy{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Bracket(min_level, "enemy_id")
	L.SetGlobal("Bracket", L.NewFunction(func(L *lua.LState) int {
		level := L.CheckInt(1)
		enemyID := L.CheckString(2)
		coll.brackets = append(coll.brackets, rawBracket{minLevel: level, enemyID: enemyID})
		return 0
	}))
}
