// Package events implements synchronous, single-pass event dispatch.
// Handlers may add output lines but never emit further events.
package events

import (
	"github.com/nathoo/questchronicles/engine/rules"
	"github.com/nathoo/questchronicles/types"
)

// Event types emitted by the engine.
const (
	CharacterCreated = "character_created"
	BattleStarted    = "battle_started"
	BattleTurn       = "battle_turn"
	BattleWon        = "battle_won"
	BattleLost       = "battle_lost"
	BattleFled       = "battle_fled"
	LevelUp          = "level_up"
	ItemUsed         = "item_used"
	ItemEquipped     = "item_equipped"
	ItemUnequipped   = "item_unequipped"
	ItemBought       = "item_bought"
	ItemSold         = "item_sold"
	QuestAccepted    = "quest_accepted"
	QuestCompleted   = "quest_completed"
	QuestAbandoned   = "quest_abandoned"
	CharacterRevived = "character_revived"
	GameOver         = "game_over"
)

// Handler reacts to events of one type. An empty Type matches every event.
// Conditions are checked against the character at dispatch time.
type Handler struct {
	Type       string
	Conditions []types.Condition
	Fn         func(types.Event) []string
}

// Bus holds the subscribed handlers in registration order.
type Bus struct {
	handlers []Handler
}

// Subscribe registers a handler.
func (b *Bus) Subscribe(h Handler) {
	b.handlers = append(b.handlers, h)
}

// On registers an unconditional handler for one event type.
func (b *Bus) On(eventType string, fn func(types.Event) []string) {
	b.Subscribe(Handler{Type: eventType, Fn: fn})
}

// Len returns the number of subscribed handlers.
func (b *Bus) Len() int {
	return len(b.handlers)
}

// Dispatch runs matching handlers against the emitted events. Single pass,
// no recursion. Returns the output lines the handlers produced.
func (b *Bus) Dispatch(evts []types.Event, c *types.Character) []string {
	var out []string
	for _, e := range evts {
		for _, h := range b.handlers {
			if h.Type != "" && h.Type != e.Type {
				continue
			}
			if c != nil && !rules.EvalAllConditions(h.Conditions, c) {
				continue
			}
			if h.Fn != nil {
				out = append(out, h.Fn(e)...)
			}
		}
	}
	return out
}

// New builds an event with data given as alternating key/value pairs.
func New(eventType string, kv ...any) types.Event {
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			data[k] = kv[i+1]
		}
	}
	return types.Event{Type: eventType, Data: data}
}
