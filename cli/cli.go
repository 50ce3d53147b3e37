// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for Quest Chronicles.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/questchronicles/engine"
	"github.com/nathoo/questchronicles/menu"
	"github.com/nathoo/questchronicles/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Menu      *menu.Menu
	Engine    *engine.Engine // nil while the title menu is showing
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	AutoSave  bool // save after every game command
	lastCmd   string
}

// New creates a CLI driven by the given title menu.
func New(m *menu.Menu) *CLI {
	return &CLI{
		Menu:     m,
		In:       os.Stdin,
		Out:      os.Stdout,
		AutoSave: true,
	}
}

// Run shows the title menu, then loops: prompt → input → dispatch → output.
// It returns when the player exits or input runs out.
func (c *CLI) Run(ctx context.Context) error {
	c.printLines(c.Menu.Start())

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if c.Engine == nil {
			if input == "" {
				continue
			}
			if input == "/quit" || input == "/exit" {
				c.printSystem("Goodbye.")
				return nil
			}
			out := c.Menu.Input(ctx, input)
			c.printLines(out.Lines)
			if out.Quit {
				return nil
			}
			if out.Engine != nil {
				c.Engine = out.Engine
				c.lastCmd = ""
			}
			continue
		}

		if input == "" {
			continue
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return nil // /quit
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		c.printResult(result)
		if c.Trace {
			c.printTrace(result)
		}

		if c.AutoSave {
			c.save(ctx, false)
		}
		if c.Engine.GameOver {
			c.printLine("")
			c.printLine("=== GAME OVER ===")
			c.Engine = nil
			c.printLines(c.Menu.Start())
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case "/quit", "/exit":
		c.save(ctx, true)
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.save(ctx, true)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

// save writes the session to the menu's store. Failures are always
// reported; success only when announce is set.
func (c *CLI) save(ctx context.Context, announce bool) {
	if err := c.Engine.Save(ctx, c.Menu.Store); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if announce {
		c.printSystem(fmt.Sprintf("Game saved for %s.", c.Engine.Character.Name))
	}
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save   Save the game",
		"  /quit   Save and exit",
		"  /help   Show this help",
		"  /state  Debug: dump the character record",
		"  /trace  Toggle event trace output",
		"",
	}
	help = append(help, engine.Help()...)
	help = append(help, "  again (g)                  Repeat your last command")
	c.printLines(help)
}

func (c *CLI) cmdState() {
	e := c.Engine
	ch := e.Character
	c.printSystem(fmt.Sprintf("Turn: %d", e.TurnCount))
	c.printSystem(fmt.Sprintf("Character: %s (%s) id=%s", ch.Name, ch.Class, ch.ID))
	c.printSystem(fmt.Sprintf("Level %d  XP %d  Gold %d  HP %d/%d  STR %d  MAG %d",
		ch.Level, ch.Experience, ch.Gold, ch.Health, ch.MaxHealth, ch.Strength, ch.Magic))
	c.printSystem(fmt.Sprintf("Inventory: %v", ch.Inventory))
	c.printSystem(fmt.Sprintf("Equipped: weapon=%q armor=%q", ch.EquippedWeapon, ch.EquippedArmor))
	c.printSystem(fmt.Sprintf("Quests: active=%v completed=%v", ch.ActiveQuests, ch.CompletedQuests))
	c.printSystem(fmt.Sprintf("RNG: seed=%d position=%d", e.RNG.Seed(), e.RNG.Position()))
	c.printSystem(fmt.Sprintf("Event handlers: %d", e.Bus.Len()))
	if e.InCombat() {
		b := e.Battle
		c.printSystem(fmt.Sprintf("Battle: %s %d/%d, turn %d, cooldown %d",
			b.Enemy.Name, b.Enemy.Health, b.Enemy.MaxHealth, b.Turns, b.Cooldown))
	}
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) == 0 {
		return
	}
	c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
	for _, e := range result.Events {
		c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
	}
}

func (c *CLI) printResult(result types.Result) {
	c.printLines(result.Output)
}

func (c *CLI) printLines(lines []string) {
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
