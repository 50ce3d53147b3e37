package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	styleCombat = lipgloss.NewStyle().
			Foreground(lipgloss.Color("209"))

	styleReward = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleHPGood = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	styleHPLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindHeader
	kindCombat
	kindReward
	kindSystem
	kindError
	kindTrace
)

// errorPrefixes start the lines the engine prints for a failed command.
var errorPrefixes = []string{
	"Item not found",
	"Invalid item type",
	"Inventory full",
	"Insufficient",
	"Quest ",
	"Combat not active",
	"Ability on cooldown",
	"Invalid target",
	"Character is dead",
	"Which ",
	"I don't understand",
	"You're in the middle",
	"You have fallen",
	"You have been defeated",
	"Game over",
}

var rewardPrefixes = []string{
	"Level up!",
	"Quest completed",
	"You defeated",
	"You are revived",
	"Welcome",
}

var combatPrefixes = []string{
	"You hit",
	"You use",
	"You cast",
	"The ",
	"A ",
	"You escaped",
	"You failed to escape",
}

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "==="):
		return kindHeader
	case strings.HasPrefix(line, "Quest completed"), strings.HasPrefix(line, "Quest accepted"):
		return kindReward
	case hasAnyPrefix(line, errorPrefixes):
		return kindError
	case hasAnyPrefix(line, rewardPrefixes):
		return kindReward
	case hasAnyPrefix(line, combatPrefixes):
		return kindCombat
	default:
		return kindNarration
	}
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeader:
		return styleHeader.Render(line)
	case kindCombat:
		return styleCombat.Render(line)
	case kindReward:
		return styleReward.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarration.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
