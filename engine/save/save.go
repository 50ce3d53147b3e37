// Package save implements JSON serialization and deserialization of a
// character record, plus the stores that persist it.
package save

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

// FormatVersion is written to every save.
const FormatVersion = 1

// SaveData is the JSON-serializable save format: the character's fields at
// the top level plus session metadata.
type SaveData struct {
	types.Character
	Version     int       `json:"version,omitempty"`
	RNGSeed     int64     `json:"rng_seed,omitempty"`
	RNGPosition int64     `json:"rng_position,omitempty"`
	Battle      *Battle   `json:"battle,omitempty"`
	SavedAt     time.Time `json:"saved_at,omitzero"`
}

// Session is the state stored alongside a character.
type Session struct {
	RNGSeed     int64
	RNGPosition int64
	Battle      *Battle // nil outside combat
}

// Battle is an encounter in progress at save time.
type Battle struct {
	Enemy    types.Enemy `json:"enemy"`
	Turns    int         `json:"turns"`
	Cooldown int         `json:"cooldown"`
}

// Summary describes a saved character for listings.
type Summary struct {
	Name  string
	Class types.Class
	Level int
}

// fieldKind is the JSON type a required field must have.
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindList
)

// requiredFields must be present with the given JSON type.
var requiredFields = []struct {
	name string
	kind fieldKind
}{
	{"name", kindString},
	{"class", kindString},
	{"level", kindNumber},
	{"health", kindNumber},
	{"max_health", kindNumber},
	{"strength", kindNumber},
	{"magic", kindNumber},
	{"experience", kindNumber},
	{"gold", kindNumber},
	{"inventory", kindList},
	{"active_quests", kindList},
	{"completed_quests", kindList},
}

// Key returns the storage key for a character name: lowercase, with every
// rune outside [a-z0-9_-] replaced by an underscore. Keys never contain a
// path separator or a dot.
func Key(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, strings.ToLower(strings.TrimSpace(name)))
}

// FileName returns the save file name for a character.
func FileName(name string) string {
	return Key(name) + ".json"
}

// Save serializes a character and its session state to JSON bytes.
func Save(c *types.Character, s Session) ([]byte, error) {
	data := SaveData{
		Character:   *c,
		Version:     FormatVersion,
		RNGSeed:     s.RNGSeed,
		RNGPosition: s.RNGPosition,
		Battle:      s.Battle,
		SavedAt:     time.Now().UTC(),
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes and validates JSON bytes. Malformed JSON fails with
// ErrSaveFileCorrupted; a missing or mistyped field or an unknown class
// fails with ErrInvalidSaveData. Out-of-range values are clamped silently.
func Load(data []byte) (*SaveData, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSaveFileCorrupted, err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSaveData, err)
	}
	class, err := state.ParseClass(string(sd.Class))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSaveData, err)
	}
	sd.Class = class
	state.Normalize(&sd.Character)
	if err := checkBattle(&sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

// Session returns the session state carried by the save.
func (sd *SaveData) Session() Session {
	return Session{RNGSeed: sd.RNGSeed, RNGPosition: sd.RNGPosition, Battle: sd.Battle}
}

// checkBattle rejects an enemy that could not be in a running fight and
// drops the battle of a dead character.
func checkBattle(sd *SaveData) error {
	b := sd.Battle
	if b == nil {
		return nil
	}
	if state.IsDead(&sd.Character) {
		sd.Battle = nil
		return nil
	}
	en := b.Enemy
	if en.Name == "" || en.MaxHealth <= 0 || en.Health <= 0 || en.Health > en.MaxHealth {
		return fmt.Errorf("%w: battle enemy %q has health %d/%d", errs.ErrInvalidSaveData, en.Name, en.Health, en.MaxHealth)
	}
	b.Turns = max(b.Turns, 0)
	b.Cooldown = max(b.Cooldown, 0)
	return nil
}

// validate checks that every required field is present with the right type.
func validate(raw map[string]any) error {
	var missing, wrong []string
	for _, f := range requiredFields {
		v, ok := raw[f.name]
		if !ok {
			missing = append(missing, f.name)
			continue
		}
		if !hasKind(v, f.kind) {
			wrong = append(wrong, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errs.ErrInvalidSaveData, strings.Join(missing, ", "))
	}
	if len(wrong) > 0 {
		return fmt.Errorf("%w: wrong type for %s", errs.ErrInvalidSaveData, strings.Join(wrong, ", "))
	}
	for _, name := range []string{"inventory", "active_quests", "completed_quests"} {
		for _, v := range raw[name].([]any) {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %s must contain strings", errs.ErrInvalidSaveData, name)
			}
		}
	}
	return nil
}

func hasKind(v any, kind fieldKind) bool {
	switch kind {
	case kindString:
		_, ok := v.(string)
		return ok
	case kindNumber:
		n, ok := v.(float64)
		return ok && n == float64(int64(n))
	case kindList:
		_, ok := v.([]any)
		return ok
	}
	return false
}
