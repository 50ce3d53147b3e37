package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/questchronicles/menu"
)

const hpBarWidth = 10

// hpBar renders health as a fixed-width gauge, e.g. "[######----]".
func hpBar(health, maxHealth int) string {
	if maxHealth <= 0 {
		maxHealth = 1
	}
	filled := health * hpBarWidth / maxHealth
	if health > 0 && filled == 0 {
		filled = 1
	}
	filled = min(max(filled, 0), hpBarWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", hpBarWidth-filled) + "]"
}

// renderStatusBar produces a full-width inverted status line showing the
// character, health, gold and the current fight or turn count.
func (m Model) renderStatusBar() string {
	if m.engine == nil {
		bar := " " + menu.Title
		gap := max(m.width-lipgloss.Width(bar), 0)
		return styleStatusBar.Width(m.width).Render(bar + strings.Repeat(" ", gap))
	}

	e := m.engine
	c := e.Character

	hpStyle := styleHPGood
	if c.Health*lowHealthDivisor < c.MaxHealth {
		hpStyle = styleHPLow
	}
	hp := hpStyle.Inherit(styleStatusBar).Render(hpBar(c.Health, c.MaxHealth))

	left := fmt.Sprintf(" %s the %s Lv %d | HP %d/%d ", c.Name, c.Class, c.Level, c.Health, c.MaxHealth) +
		hp + fmt.Sprintf(" | Gold %d", c.Gold)

	right := fmt.Sprintf("T:%d ", e.TurnCount)
	if e.InCombat() {
		en := e.Battle.Enemy
		candidate := fmt.Sprintf("vs %s %d/%d | T:%d ", en.Name, en.Health, en.MaxHealth, e.TurnCount)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		}
	} else if n := len(c.ActiveQuests); n > 0 {
		candidate := fmt.Sprintf("Quests: %d | T:%d ", n, e.TurnCount)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		}
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

// lowHealthDivisor marks health below 1/lowHealthDivisor of maximum as low.
const lowHealthDivisor = 3
