// Package menu implements the title menu: starting a new character or
// loading a saved one. It is line driven so both the plain CLI and the TUI
// can feed it input.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nathoo/questchronicles/engine"
	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/events"
	"github.com/nathoo/questchronicles/engine/save"
	"github.com/nathoo/questchronicles/engine/state"
)

// Title is the game's display title.
const Title = "QUEST CHRONICLES"

const maxNameLength = 24

type step int

const (
	stepTitle step = iota
	stepName
	stepClass
	stepLoad
)

// Outcome is the result of one line of menu input. Engine is set once a
// game has been started or loaded.
type Outcome struct {
	Lines  []string
	Engine *engine.Engine
	Quit   bool
}

// Menu walks the player from the title screen into a game session.
type Menu struct {
	Defs     *state.Defs
	Store    save.Store
	Log      *zap.Logger
	Seed     int64 // 0 seeds each new game from the clock
	Capacity int   // inventory capacity; 0 keeps the default

	step  step
	name  string
	saves []save.Summary
}

// New creates a menu over the given definitions and save store.
func New(defs *state.Defs, store save.Store) *Menu {
	return &Menu{Defs: defs, Store: store, Log: zap.NewNop()}
}

// Start resets the menu to the title screen and returns its lines.
func (m *Menu) Start() []string {
	m.step = stepTitle
	m.name = ""
	m.saves = nil
	return titleLines()
}

func titleLines() []string {
	return []string{
		"=== " + Title + " ===",
		"1. New game",
		"2. Load game",
		"3. Exit",
	}
}

// Input handles one line typed at the current menu step.
func (m *Menu) Input(ctx context.Context, line string) Outcome {
	line = strings.TrimSpace(line)
	switch m.step {
	case stepName:
		return m.inputName(ctx, line)
	case stepClass:
		return m.inputClass(ctx, line)
	case stepLoad:
		return m.inputLoad(ctx, line)
	default:
		return m.inputTitle(ctx, line)
	}
}

func (m *Menu) inputTitle(ctx context.Context, line string) Outcome {
	switch strings.ToLower(line) {
	case "1", "new":
		m.step = stepName
		return Outcome{Lines: []string{"Enter your character's name:"}}
	case "2", "load":
		return m.listSaves(ctx)
	case "3", "exit", "quit":
		return Outcome{Lines: []string{"Goodbye!"}, Quit: true}
	}
	return Outcome{Lines: append([]string{"Please choose 1, 2 or 3."}, titleLines()...)}
}

// CleanName normalizes a typed character name: inner whitespace collapsed
// and each word title cased.
func CleanName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return cases.Title(language.English).String(name)
}

func (m *Menu) inputName(ctx context.Context, line string) Outcome {
	name := CleanName(line)
	switch {
	case name == "":
		return Outcome{Lines: []string{"A hero needs a name. Enter your character's name:"}}
	case len(name) > maxNameLength:
		return Outcome{Lines: []string{fmt.Sprintf("Names are limited to %d characters. Try again:", maxNameLength)}}
	}

	if _, err := m.Store.Get(ctx, name); err == nil {
		return Outcome{Lines: []string{
			fmt.Sprintf("A character named %s already exists. Choose another name:", name),
		}}
	} else if !errors.Is(err, errs.ErrCharacterNotFound) {
		m.Log.Warn("checking for existing save", zap.String("name", name), zap.Error(err))
	}

	m.name = name
	m.step = stepClass
	lines := []string{fmt.Sprintf("Choose a class for %s:", name)}
	for i, class := range state.Classes() {
		base := state.BaseStats[class]
		lines = append(lines, fmt.Sprintf("%d. %s (HP %d, STR %d, MAG %d) - special: %s",
			i+1, class, base.Health, base.Strength, base.Magic, engine.SpecialNames[class]))
	}
	return Outcome{Lines: lines}
}

func (m *Menu) inputClass(ctx context.Context, line string) Outcome {
	classes := state.Classes()
	class, err := state.ParseClass(line)
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(classes) {
		class, err = classes[n-1], nil
	}
	if err != nil {
		return Outcome{Lines: []string{fmt.Sprintf("Choose 1-%d or a class name.", len(classes))}}
	}

	c, err := state.NewCharacter(m.name, class)
	if err != nil {
		return Outcome{Lines: []string{err.Error()}}
	}

	seed := m.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := m.configure(engine.New(m.Defs, c, engine.NewRNG(seed)))

	lines := []string{
		fmt.Sprintf("Welcome, %s the %s!", c.Name, c.Class),
		fmt.Sprintf("You set out with %d gold, two health potions and a rusty sword.", c.Gold),
		"Type 'help' for a list of commands.",
	}
	lines = append(lines, e.Announce(events.New(events.CharacterCreated,
		"id", c.ID, "name", c.Name, "class", string(c.Class), "seed", seed))...)

	if err := e.Save(ctx, m.Store); err != nil {
		lines = append(lines, fmt.Sprintf("[Could not save: %v]", err))
	}
	m.step = stepTitle
	return Outcome{Lines: lines, Engine: e}
}

func (m *Menu) listSaves(ctx context.Context) Outcome {
	saves, err := m.Store.List(ctx)
	if err != nil {
		return Outcome{Lines: append([]string{fmt.Sprintf("Could not list saves: %v", err)}, titleLines()...)}
	}
	if len(saves) == 0 {
		return Outcome{Lines: append([]string{"No saved characters."}, titleLines()...)}
	}

	m.saves = saves
	m.step = stepLoad
	lines := []string{"Saved characters:"}
	for i, s := range saves {
		lines = append(lines, fmt.Sprintf("%d. %s - %s level %d", i+1, s.Name, s.Class, s.Level))
	}
	lines = append(lines, "Choose a character, or 0 to go back:")
	return Outcome{Lines: lines}
}

func (m *Menu) inputLoad(ctx context.Context, line string) Outcome {
	if line == "0" || strings.EqualFold(line, "back") {
		return Outcome{Lines: m.Start()}
	}

	name := line
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(m.saves) {
			return Outcome{Lines: []string{fmt.Sprintf("Choose 1-%d, or 0 to go back.", len(m.saves))}}
		}
		name = m.saves[n-1].Name
	}

	sd, err := m.Store.Get(ctx, name)
	if err != nil {
		return Outcome{Lines: []string{fmt.Sprintf("Load failed: %v", err), "Choose a character, or 0 to go back:"}}
	}

	e := m.configure(engine.FromSave(m.Defs, sd))
	c := e.Character
	lines := []string{fmt.Sprintf("Welcome back, %s the %s (level %d).", c.Name, c.Class, c.Level)}
	if state.IsDead(c) {
		lines = append(lines, fmt.Sprintf("You have fallen. Type 'revive' to return for %d gold.", state.ReviveCost(c)))
	}
	if e.InCombat() {
		en := e.Battle.Enemy
		lines = append(lines,
			fmt.Sprintf("You are still fighting the %s! (%s: %d/%d)", en.Name, en.Name, en.Health, en.MaxHealth),
			fmt.Sprintf("attack, special (%s) or run?", engine.SpecialNames[c.Class]))
	}
	m.step = stepTitle
	return Outcome{Lines: lines, Engine: e}
}

func (m *Menu) configure(e *engine.Engine) *engine.Engine {
	e.Log = m.Log
	if m.Capacity > 0 {
		e.Inventory.Capacity = m.Capacity
	}
	return e
}
