// Package loader loads the static game data: quests and items from block
// text (or YAML) files and the bestiary from a sandboxed Lua script. The Lua
// VM is discarded after loading.
package loader

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

//go:embed defaults
var defaultFS embed.FS

// Data file names, without extension for the files that accept a YAML variant.
const (
	QuestsFile  = "quests"
	ItemsFile   = "items"
	EnemiesFile = "enemies.lua"
)

var dataExtensions = []string{".txt", ".yaml", ".yml"}

// collector accumulates Lua definitions during file execution.
type collector struct {
	enemies  []rawEnemy
	brackets []rawBracket
}

// EnsureDefaults writes the built-in data files into dir for any data file
// that has no variant present. Returns the names of the files written.
func EnsureDefaults(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	var written []string
	for _, name := range []string{QuestsFile + ".txt", ItemsFile + ".txt", EnemiesFile} {
		if _, err := findDataFile(dir, name); err == nil {
			continue
		}
		data, err := defaultFS.ReadFile("defaults/" + name)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return written, fmt.Errorf("writing default %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

// Load reads every data file from dir, validates cross references and
// returns the immutable Defs. Validation warnings are logged.
func Load(dir string, log *zap.Logger) (*state.Defs, error) {
	if log == nil {
		log = zap.NewNop()
	}

	quests, err := loadQuests(dir)
	if err != nil {
		return nil, err
	}
	items, err := loadItems(dir)
	if err != nil {
		return nil, err
	}
	enemies, brackets, err := loadBestiary(dir)
	if err != nil {
		return nil, err
	}

	defs := &state.Defs{
		Quests:   quests,
		Items:    items,
		Enemies:  enemies,
		Brackets: brackets,
	}

	ve := validate(defs)
	for _, w := range ve.Warnings {
		log.Warn("game data", zap.String("dir", dir), zap.String("warning", w))
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}

	log.Debug("game data loaded",
		zap.String("dir", dir),
		zap.Int("quests", len(quests)),
		zap.Int("items", len(items)),
		zap.Int("enemies", len(enemies)),
	)
	return defs, nil
}

// findDataFile returns the path of the first existing variant of name.
// "quests" and "quests.txt" both match quests.txt, quests.yaml or quests.yml;
// any other extension is looked up as is.
func findDataFile(dir, name string) (string, error) {
	candidates := []string{name}
	switch filepath.Ext(name) {
	case "":
		candidates = variants(name)
	case ".txt":
		candidates = variants(strings.TrimSuffix(name, ".txt"))
	}
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errs.ErrMissingDataFile, filepath.Join(dir, candidates[0]))
}

func variants(base string) []string {
	out := make([]string, 0, len(dataExtensions))
	for _, ext := range dataExtensions {
		out = append(out, base+ext)
	}
	return out
}

// readFile reads a data file, mapping I/O failures to domain errors.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingDataFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrCorruptedData, path, err)
	}
	return data, nil
}

// readRecords reads a block text or YAML data file into records.
func readRecords(dir, name, yamlKey string) ([]record, error) {
	path, err := findDataFile(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	file := filepath.Base(path)
	if filepath.Ext(path) == ".txt" {
		return parseBlocks(bytes.NewReader(data), file)
	}
	return parseYAML(data, file, yamlKey)
}

func loadQuests(dir string) (map[string]types.Quest, error) {
	recs, err := readRecords(dir, QuestsFile, "quests")
	if err != nil {
		return nil, err
	}
	quests := make(map[string]types.Quest, len(recs))
	for _, r := range recs {
		q, err := toQuest(r)
		if err != nil {
			return nil, err
		}
		if _, dup := quests[q.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate quest %q", errs.ErrInvalidDataFormat, r.where(), q.ID)
		}
		quests[q.ID] = q
	}
	return quests, nil
}

func loadItems(dir string) (map[string]types.Item, error) {
	recs, err := readRecords(dir, ItemsFile, "items")
	if err != nil {
		return nil, err
	}
	items := make(map[string]types.Item, len(recs))
	for _, r := range recs {
		it, err := toItem(r)
		if err != nil {
			return nil, err
		}
		if _, dup := items[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate item %q", errs.ErrInvalidDataFormat, r.where(), it.ID)
		}
		items[it.ID] = it
	}
	return items, nil
}

// loadBestiary executes the bestiary script in a sandboxed VM.
func loadBestiary(dir string) (map[string]types.EnemyDef, []types.Bracket, error) {
	path, err := findDataFile(dir, EnemiesFile)
	if err != nil {
		return nil, nil, err
	}
	src, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	if err := L.DoString(string(src)); err != nil {
		return nil, nil, fmt.Errorf("%w: executing %s: %v", errs.ErrInvalidDataFormat, EnemiesFile, err)
	}

	enemies, brackets, err := compile(coll)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", errs.ErrInvalidDataFormat, EnemiesFile, err)
	}
	return enemies, brackets, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.sort, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.sub, etc.)
	lua.OpenString(L)
	// Math library (math.floor, math.max, etc.)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Remove math.random and math.randomseed; enemy stats must be fixed.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("random", lua.LNil)
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
