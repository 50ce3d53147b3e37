// Package quest manages the quest log: accepting, completing and abandoning
// quests, and validating the prerequisite graph they form.
package quest

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/rules"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// Log applies quest operations against a fixed set of quest definitions.
type Log struct {
	Quests map[string]types.Quest
}

// New creates a quest log.
func New(quests map[string]types.Quest) *Log {
	return &Log{Quests: quests}
}

// Lookup returns the definition of a quest.
func (l *Log) Lookup(questID string) (types.Quest, error) {
	q, ok := l.Quests[questID]
	if !ok {
		return types.Quest{}, fmt.Errorf("%w: no quest %q", errs.ErrQuestNotFound, questID)
	}
	return q, nil
}

// requirements lists the gates for accepting q, in the order they are checked.
func (l *Log) requirements(c *types.Character, q types.Quest) []rules.Requirement {
	reqs := []rules.Requirement{
		{
			Cond: rules.Not(rules.QuestCompleted(q.ID)),
			Err:  errs.ErrQuestAlreadyCompleted,
			Msg:  q.Title,
		},
		{
			Cond: rules.Not(rules.QuestActive(q.ID)),
			Err:  errs.ErrQuestAlreadyActive,
			Msg:  q.Title,
		},
		{
			Cond: rules.MinLevel(q.RequiredLevel),
			Err:  errs.ErrInsufficientLevel,
			Msg:  fmt.Sprintf("%s requires level %d, you are level %d", q.Title, q.RequiredLevel, c.Level),
		},
	}
	if q.Prerequisite != "" {
		reqs = append(reqs, rules.Requirement{
			Cond: rules.QuestCompleted(q.Prerequisite),
			Err:  errs.ErrQuestRequirementsNotMet,
			Msg:  fmt.Sprintf("complete %s first", l.title(q.Prerequisite)),
		})
	}
	return reqs
}

// CanAccept reports why the quest cannot be accepted, or nil.
func (l *Log) CanAccept(c *types.Character, questID string) error {
	q, err := l.Lookup(questID)
	if err != nil {
		return err
	}
	return rules.Check(l.requirements(c, q), c)
}

// Accept adds a quest to the active set.
func (l *Log) Accept(c *types.Character, questID string) (types.Quest, error) {
	if err := l.CanAccept(c, questID); err != nil {
		return types.Quest{}, err
	}
	q := l.Quests[questID]
	c.ActiveQuests = append(c.ActiveQuests, q.ID)
	return q, nil
}

// Complete moves an active quest to the completed set and grants its
// rewards. Returns any level-ups the experience triggered. On error the
// character is unchanged.
func (l *Log) Complete(c *types.Character, questID string) (types.Quest, []state.LevelUp, error) {
	q, err := l.active(c, questID)
	if err != nil {
		return q, nil, err
	}
	if err := state.AddGold(c, q.RewardGold); err != nil {
		return q, nil, err
	}
	c.ActiveQuests, _ = state.RemoveOne(c.ActiveQuests, q.ID)
	c.CompletedQuests = append(c.CompletedQuests, q.ID)
	return q, state.GainExperience(c, q.RewardXP), nil
}

// Abandon drops an active quest without reward.
func (l *Log) Abandon(c *types.Character, questID string) (types.Quest, error) {
	q, err := l.active(c, questID)
	if err != nil {
		return q, err
	}
	c.ActiveQuests, _ = state.RemoveOne(c.ActiveQuests, q.ID)
	return q, nil
}

func (l *Log) active(c *types.Character, questID string) (types.Quest, error) {
	q, err := l.Lookup(questID)
	if err != nil {
		return q, err
	}
	if !state.IsActive(c, questID) {
		return q, fmt.Errorf("%w: %s", errs.ErrQuestNotActive, q.Title)
	}
	return q, nil
}

// Active returns the character's active quests.
func (l *Log) Active(c *types.Character) []types.Quest {
	return l.collect(c.ActiveQuests)
}

// Completed returns the character's completed quests.
func (l *Log) Completed(c *types.Character) []types.Quest {
	return l.collect(c.CompletedQuests)
}

// Available returns the quests the character could accept right now.
func (l *Log) Available(c *types.Character) []types.Quest {
	var out []types.Quest
	for id := range l.Quests {
		if l.CanAccept(c, id) == nil {
			out = append(out, l.Quests[id])
		}
	}
	sortQuests(out)
	return out
}

// Chain returns the prerequisite chain ending at questID, root first.
func (l *Log) Chain(questID string) ([]types.Quest, error) {
	var chain []types.Quest
	seen := make(map[string]bool)
	for id := questID; id != ""; {
		if seen[id] {
			return nil, fmt.Errorf("%w: prerequisite cycle through %q", errs.ErrInvalidDataFormat, id)
		}
		seen[id] = true
		q, err := l.Lookup(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, q)
		id = q.Prerequisite
	}
	slices.Reverse(chain)
	return chain, nil
}

func (l *Log) collect(ids []string) []types.Quest {
	out := make([]types.Quest, 0, len(ids))
	for _, id := range ids {
		if q, ok := l.Quests[id]; ok {
			out = append(out, q)
		}
	}
	sortQuests(out)
	return out
}

func (l *Log) title(questID string) string {
	if q, ok := l.Quests[questID]; ok && q.Title != "" {
		return q.Title
	}
	return questID
}

// sortQuests orders by required level, then ID.
func sortQuests(qs []types.Quest) {
	slices.SortFunc(qs, func(a, b types.Quest) int {
		return cmp.Or(cmp.Compare(a.RequiredLevel, b.RequiredLevel), cmp.Compare(a.ID, b.ID))
	})
}

// IsNone reports whether a prerequisite value means "no prerequisite".
func IsNone(prereq string) bool {
	p := strings.TrimSpace(prereq)
	return p == "" || strings.EqualFold(p, "none")
}

type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // finished
)

// Validate checks the prerequisite graph. It fails on a prerequisite that
// names an unknown quest or on any cycle reachable from a quest.
func Validate(quests map[string]types.Quest) error {
	ids := make([]string, 0, len(quests))
	for id := range quests {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	colors := make(map[string]color, len(quests))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = gray
		path = append(path, id)

		if next := quests[id].Prerequisite; next != "" {
			if _, ok := quests[next]; !ok {
				return fmt.Errorf("%w: quest %q has unknown prerequisite %q",
					errs.ErrInvalidDataFormat, id, next)
			}
			switch colors[next] {
			case gray:
				start := slices.Index(path, next)
				cycle := append(slices.Clone(path[start:]), next)
				return fmt.Errorf("%w: prerequisite cycle %s",
					errs.ErrInvalidDataFormat, strings.Join(cycle, " -> "))
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		colors[id] = black
		return nil
	}

	for _, id := range ids {
		if colors[id] != white {
			continue
		}
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
