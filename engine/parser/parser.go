// Package parser converts command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strings"

	"github.com/nathoo/questchronicles/types"
)

var verbAliases = map[string]string{
	// Character
	"stat":      "stats",
	"status":    "stats",
	"character": "stats",
	"char":      "stats",
	"c":         "stats",

	// Inventory
	"inv":   "inventory",
	"i":     "inventory",
	"items": "inventory",
	"bag":   "inventory",

	// Items
	"drink":   "use",
	"quaff":   "use",
	"consume": "use",
	"eat":     "use",
	"don":     "wear",
	"remove":  "unequip",
	"doff":    "unequip",

	// Shop
	"store":    "shop",
	"market":   "shop",
	"purchase": "buy",
	"pawn":     "sell",

	// Quests
	"quest":      "quests",
	"journal":    "quests",
	"log":        "quests",
	"take":       "accept",
	"start":      "accept",
	"finish":     "complete",
	"turn-in":    "complete",
	"drop":       "abandon",
	"quit-quest": "abandon",

	// Exploration
	"e":         "explore",
	"x":         "explore",
	"adventure": "explore",
	"hunt":      "explore",
	"fight":     "explore",

	// Combat
	"a":       "attack",
	"hit":     "attack",
	"strike":  "attack",
	"slash":   "attack",
	"s":       "special",
	"ability": "special",
	"skill":   "special",
	"cast":    "special",
	"r":       "run",
	"flee":    "run",
	"escape":  "run",
	"retreat": "run",

	// Miscellaneous
	"resurrect": "revive",
	"z":         "wait",
	"rest":      "wait",
	"h":         "help",
	"?":         "help",
	"prereqs":   "chain",
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true, "my": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])

	return types.Intent{
		Verb:   verb,
		Object: strings.Join(rest, " "),
	}
}

// expandMultiWordVerbs handles "put on", "take off", "look around" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "put":
		if words[1] == "on" {
			return append([]string{"equip"}, words[2:]...)
		}
	case "take":
		if words[1] == "off" {
			return append([]string{"unequip"}, words[2:]...)
		}
	case "look":
		if words[1] == "around" {
			return []string{"explore"}
		}
	case "run", "flee":
		if words[1] == "away" {
			return []string{"run"}
		}
	case "special", "use":
		if words[1] == "ability" || words[1] == "special" {
			return []string{"special"}
		}
	case "turn":
		if words[1] == "in" {
			return append([]string{"complete"}, words[2:]...)
		}
	case "give":
		if words[1] == "up" {
			return append([]string{"abandon"}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}
