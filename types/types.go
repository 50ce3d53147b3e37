// Package types defines the shared data structures for the Quest Chronicles engine.
// This package contains only type definitions — no logic, no methods.
package types

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb   string
	Object string // optional
}

// Event is emitted after a command changes the game.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a single game step.
type Result struct {
	Events []Event
	Output []string
}

// Class is a character class.
type Class string

const (
	ClassWarrior Class = "Warrior"
	ClassMage    Class = "Mage"
	ClassRogue   Class = "Rogue"
	ClassCleric  Class = "Cleric"
)

// Stat names that item effects may target.
const (
	StatHealth    = "health"
	StatMaxHealth = "max_health"
	StatStrength  = "strength"
	StatMagic     = "magic"
)

// Character is the player's mutable record.
type Character struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	Class           Class    `json:"class"`
	Level           int      `json:"level"`
	Health          int      `json:"health"`
	MaxHealth       int      `json:"max_health"`
	Strength        int      `json:"strength"`
	Magic           int      `json:"magic"`
	Experience      int      `json:"experience"`
	Gold            int      `json:"gold"`
	Inventory       []string `json:"inventory"` // multiset of item IDs
	ActiveQuests    []string `json:"active_quests"`
	CompletedQuests []string `json:"completed_quests"`
	EquippedWeapon  string   `json:"equipped_weapon,omitempty"` // "" = none
	EquippedArmor   string   `json:"equipped_armor,omitempty"`  // "" = none
}

// ItemType classifies an item.
type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemConsumable ItemType = "consumable"
)

// Effect is a single stat change carried by an item.
type Effect struct {
	Stat  string
	Delta int
}

// Item is a static item definition.
type Item struct {
	ID          string
	Name        string
	Type        ItemType
	Effect      Effect
	Cost        int
	Description string
}

// Quest is a static quest definition. Prerequisite is "" when the quest has none.
type Quest struct {
	ID            string
	Title         string
	Description   string
	RewardXP      int
	RewardGold    int
	RequiredLevel int
	Prerequisite  string
}

// EnemyDef is the bestiary template an Enemy is created from.
type EnemyDef struct {
	ID         string
	Name       string
	Health     int
	Strength   int
	Magic      int
	XPReward   int
	GoldReward int
}

// Enemy is an ephemeral combatant created per encounter.
type Enemy struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Health     int    `json:"health"`
	MaxHealth  int    `json:"max_health"`
	Strength   int    `json:"strength"`
	Magic      int    `json:"magic"`
	XPReward   int    `json:"xp_reward"`
	GoldReward int    `json:"gold_reward"`
}

// Bracket maps a minimum character level to the enemy fought from that level on.
type Bracket struct {
	MinLevel int
	EnemyID  string
}

// BattleState is the state of a battle's state machine.
type BattleState int

const (
	BattleActive BattleState = iota
	BattlePlayerWon
	BattlePlayerLost
	BattleFled
)

// Action is a player's combat choice.
type Action int

const (
	ActionAttack Action = iota
	ActionSpecial
	ActionRun
)

// Condition is a requirement that a character must satisfy.
type Condition struct {
	Type   string         // "min_level", "quest_completed", "quest_not_active", ...
	Params map[string]any // condition-specific parameters
	Negate bool
}
