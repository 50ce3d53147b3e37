package engine

import (
	"fmt"
	"math"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// combatVerbs are the commands allowed during combat.
var combatVerbs = map[string]bool{
	"attack":    true,
	"special":   true,
	"run":       true,
	"stats":     true,
	"inventory": true,
}

// isCombatVerb returns true if the verb is allowed during combat.
func isCombatVerb(verb string) bool {
	return combatVerbs[verb]
}

const (
	varianceLow      = 0.9
	varianceHigh     = 1.1
	enemyMultiplier  = 1.0
	runChance        = 0.5
	backstabChance   = 0.5
	clericHealAmount = 30
	SpecialCooldown  = 2 // turns the special is locked after use
)

// Offense describes how a class deals damage.
type Offense struct {
	Stat       string // types.StatStrength or types.StatMagic
	Multiplier float64
}

// ClassOffense is the attack stat and multiplier of each class.
var ClassOffense = map[types.Class]Offense{
	types.ClassWarrior: {Stat: types.StatStrength, Multiplier: 1.5},
	types.ClassMage:    {Stat: types.StatMagic, Multiplier: 1.5},
	types.ClassRogue:   {Stat: types.StatStrength, Multiplier: 1.3},
	types.ClassCleric:  {Stat: types.StatMagic, Multiplier: 1.2},
}

// SpecialNames are the display names of each class special.
var SpecialNames = map[types.Class]string{
	types.ClassWarrior: "Power Strike",
	types.ClassMage:    "Fireball",
	types.ClassRogue:   "Backstab",
	types.ClassCleric:  "Heal",
}

// DamageCalc computes max(1, round(stat × multiplier × variance)) with the
// variance drawn uniformly from [0.9, 1.1).
func DamageCalc(stat int, multiplier float64, rng *RNG) int {
	v := rng.Between(varianceLow, varianceHigh)
	dmg := int(math.Round(float64(stat) * multiplier * v))
	return max(dmg, 1)
}

// offenseStat returns the character's value for its class's attack stat.
func offenseStat(c *types.Character) (int, Offense) {
	off, ok := ClassOffense[c.Class]
	if !ok {
		off = Offense{Stat: types.StatStrength, Multiplier: 1.0}
	}
	if off.Stat == types.StatMagic {
		return c.Magic, off
	}
	return c.Strength, off
}

// PlayerDamage rolls a basic attack for the character.
func PlayerDamage(c *types.Character, rng *RNG) int {
	stat, off := offenseStat(c)
	return DamageCalc(stat, off.Multiplier, rng)
}

// EnemyDamage rolls a basic attack for the enemy using its stronger stat.
func EnemyDamage(e *types.Enemy, rng *RNG) int {
	return DamageCalc(max(e.Strength, e.Magic), enemyMultiplier, rng)
}

// CreateEnemy instantiates a fresh combatant from a bestiary entry.
func CreateEnemy(def types.EnemyDef) *types.Enemy {
	return &types.Enemy{
		ID:         def.ID,
		Name:       def.Name,
		Health:     def.Health,
		MaxHealth:  def.Health,
		Strength:   def.Strength,
		Magic:      def.Magic,
		XPReward:   def.XPReward,
		GoldReward: def.GoldReward,
	}
}

// EnemyForLevel picks the bestiary entry for a character level: the bracket
// with the highest minimum level not above it.
func EnemyForLevel(defs *state.Defs, level int) (types.EnemyDef, error) {
	enemyID, best := "", -1
	for _, b := range defs.Brackets {
		if b.MinLevel <= level && b.MinLevel > best {
			enemyID, best = b.EnemyID, b.MinLevel
		}
	}
	if enemyID == "" {
		return types.EnemyDef{}, fmt.Errorf("%w: no enemy for level %d", errs.ErrInvalidTarget, level)
	}
	def, ok := defs.Enemies[enemyID]
	if !ok {
		return types.EnemyDef{}, fmt.Errorf("%w: unknown enemy %q", errs.ErrInvalidTarget, enemyID)
	}
	return def, nil
}

// Rewards are granted when the player wins.
type Rewards struct {
	XP       int
	Gold     int
	LevelUps []state.LevelUp
}

// Turn reports what happened in one combat turn.
type Turn struct {
	Number        int
	Action        types.Action
	Special       string // special name, when used
	Dealt         int    // damage dealt to the enemy
	Healed        int
	Fled          bool
	EnemyAttacked bool
	Taken         int // damage taken from the enemy
	State         types.BattleState
	Rewards       *Rewards
}

// Battle is a turn-based fight between a character and one enemy.
type Battle struct {
	Player   *types.Character
	Enemy    *types.Enemy
	State    types.BattleState
	Turns    int
	Cooldown int // turns until the special is usable again

	rng *RNG
}

// NewBattle starts a battle. A dead character cannot fight.
func NewBattle(c *types.Character, enemy *types.Enemy, rng *RNG) (*Battle, error) {
	if state.IsDead(c) {
		return nil, fmt.Errorf("%w: %s cannot fight", errs.ErrCharacterDead, c.Name)
	}
	if enemy == nil || enemy.Health <= 0 {
		return nil, fmt.Errorf("%w: nothing to fight", errs.ErrInvalidTarget)
	}
	return &Battle{Player: c, Enemy: enemy, State: types.BattleActive, rng: rng}, nil
}

// ResumeBattle rebuilds a battle from a save, keeping its turn count and
// special cooldown.
func ResumeBattle(c *types.Character, enemy *types.Enemy, turns, cooldown int, rng *RNG) (*Battle, error) {
	b, err := NewBattle(c, enemy, rng)
	if err != nil {
		return nil, err
	}
	b.Turns = turns
	b.Cooldown = cooldown
	return b, nil
}

// Active returns true while turns can still be taken.
func (b *Battle) Active() bool {
	return b.State == types.BattleActive
}

// Act resolves one player action and, if the battle continues, the enemy's
// reply. A special on cooldown fails without consuming the turn.
func (b *Battle) Act(action types.Action) (Turn, error) {
	if !b.Active() {
		return Turn{}, fmt.Errorf("%w: the battle is over", errs.ErrCombatNotActive)
	}
	if action == types.ActionSpecial && b.Cooldown > 0 {
		return Turn{}, fmt.Errorf("%w: %s ready in %d turn(s)",
			errs.ErrAbilityOnCooldown, SpecialNames[b.Player.Class], b.Cooldown)
	}

	b.Turns++
	t := Turn{Number: b.Turns, Action: action}

	switch action {
	case types.ActionAttack:
		t.Dealt = PlayerDamage(b.Player, b.rng)
		b.hitEnemy(t.Dealt)
	case types.ActionSpecial:
		b.special(&t)
	case types.ActionRun:
		if b.rng.Chance(runChance) {
			t.Fled = true
			b.State = types.BattleFled
		}
	default:
		b.Turns--
		return Turn{}, fmt.Errorf("%w: unknown action %d", errs.ErrInvalidTarget, action)
	}

	if b.Enemy.Health <= 0 {
		b.State = types.BattlePlayerWon
		t.Rewards = b.grantRewards()
	}

	if b.Active() {
		t.EnemyAttacked = true
		t.Taken = EnemyDamage(b.Enemy, b.rng)
		if state.Damage(b.Player, t.Taken) == 0 {
			b.State = types.BattlePlayerLost
		}
	}

	if action != types.ActionSpecial && b.Cooldown > 0 {
		b.Cooldown--
	}
	t.State = b.State
	return t, nil
}

func (b *Battle) special(t *Turn) {
	c := b.Player
	t.Special = SpecialNames[c.Class]
	b.Cooldown = SpecialCooldown

	switch c.Class {
	case types.ClassWarrior:
		t.Dealt = c.Strength * 2
	case types.ClassMage:
		t.Dealt = c.Magic * 2
	case types.ClassRogue:
		if b.rng.Chance(backstabChance) {
			t.Dealt = c.Strength * 3
		} else {
			t.Dealt = c.Strength
		}
	case types.ClassCleric:
		t.Healed = state.Heal(c, clericHealAmount)
		return
	default:
		t.Dealt = PlayerDamage(c, b.rng)
	}
	t.Dealt = max(t.Dealt, 1)
	b.hitEnemy(t.Dealt)
}

func (b *Battle) hitEnemy(amount int) {
	b.Enemy.Health -= amount
	if b.Enemy.Health < 0 {
		b.Enemy.Health = 0
	}
}

func (b *Battle) grantRewards() *Rewards {
	r := &Rewards{XP: b.Enemy.XPReward, Gold: b.Enemy.GoldReward}
	b.Player.Gold += r.Gold
	r.LevelUps = state.GainExperience(b.Player, r.XP)
	return r
}

// StateName returns a display name for a battle state.
func StateName(s types.BattleState) string {
	switch s {
	case types.BattleActive:
		return "active"
	case types.BattlePlayerWon:
		return "victory"
	case types.BattlePlayerLost:
		return "defeat"
	case types.BattleFled:
		return "fled"
	}
	return "unknown"
}

// ParseAction maps a combat verb to an action.
func ParseAction(verb string) (types.Action, bool) {
	switch verb {
	case "attack":
		return types.ActionAttack, true
	case "special":
		return types.ActionSpecial, true
	case "run":
		return types.ActionRun, true
	}
	return 0, false
}
