// Package resolve maps item and quest names typed by the player to IDs.
package resolve

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/types"
)

// AmbiguityError indicates multiple candidates matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no candidate matched a name. It unwraps to the
// domain error of the kind of thing searched for.
type NotFoundError struct {
	Name string
	Kind error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: nothing called %q", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return e.Kind }

// candidate is a resolvable ID with its display name.
type candidate struct {
	id   string
	name string
}

// Item resolves an item name. pool restricts the search to those IDs (for
// example the inventory); a nil pool searches the whole catalog.
func Item(items map[string]types.Item, pool []string, name string) (string, error) {
	var cands []candidate
	add := func(id string) {
		if it, ok := items[id]; ok {
			cands = append(cands, candidate{id: id, name: it.Name})
		}
	}
	if pool == nil {
		for id := range items {
			add(id)
		}
	} else {
		for _, id := range pool {
			if !slices.ContainsFunc(cands, func(c candidate) bool { return c.id == id }) {
				add(id)
			}
		}
	}
	return resolveName(cands, name, errs.ErrItemNotFound)
}

// Quest resolves a quest title or ID. A nil pool searches every quest.
func Quest(quests map[string]types.Quest, pool []string, name string) (string, error) {
	var cands []candidate
	if pool == nil {
		for id, q := range quests {
			cands = append(cands, candidate{id: id, name: q.Title})
		}
	} else {
		for _, id := range pool {
			if q, ok := quests[id]; ok {
				cands = append(cands, candidate{id: id, name: q.Title})
			}
		}
	}
	return resolveName(cands, name, errs.ErrQuestNotFound)
}

// resolveName resolves a name against candidates. Exact ID or name matches
// win over word-based partial matches.
func resolveName(cands []candidate, name string, kind error) (string, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return "", &NotFoundError{Name: name, Kind: kind}
	}

	var exact, partial []string
	for _, c := range cands {
		switch {
		case matchesExact(c, nameLower):
			exact = append(exact, c.id)
		case matchesWords(c, nameLower):
			partial = append(partial, c.id)
		}
	}

	matches := exact
	if len(matches) == 0 {
		matches = partial
	}
	slices.Sort(matches)
	matches = slices.Compact(matches)

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Name: name, Kind: kind}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// matchesExact checks the ID and display name, case-insensitively.
// "rusty sword" matches ID "rusty_sword".
func matchesExact(c candidate, nameLower string) bool {
	idLower := strings.ToLower(c.id)
	if idLower == nameLower || strings.ReplaceAll(nameLower, " ", "_") == idLower {
		return true
	}
	return strings.ToLower(c.name) == nameLower
}

// matchesWords reports whether every query word is a word of the display
// name, e.g. "sword" matches "Rusty Sword".
func matchesWords(c candidate, nameLower string) bool {
	words := strings.Fields(strings.ToLower(c.name))
	for _, q := range strings.Fields(strings.ReplaceAll(nameLower, "_", " ")) {
		if !slices.Contains(words, q) {
			return false
		}
	}
	return len(words) > 0
}
