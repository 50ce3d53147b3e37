package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/questchronicles/engine/effects"
	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/quest"
	"github.com/nathoo/questchronicles/types"
)

// record is one definition block before conversion: lowercase keys mapped
// to raw values, with the position it came from.
type record struct {
	file   string
	line   int
	fields map[string]string
}

func (r record) where() string {
	if r.line > 0 {
		return fmt.Sprintf("%s:%d", r.file, r.line)
	}
	return r.file
}

// parseBlocks reads "KEY: value" lines grouped into blank-line separated
// blocks. Lines starting with '#' are comments.
func parseBlocks(r io.Reader, file string) ([]record, error) {
	var out []record
	var cur *record

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %s:%d: expected KEY: value, got %q",
				errs.ErrInvalidDataFormat, file, n, line)
		}
		if cur == nil {
			cur = &record{file: file, line: n, fields: map[string]string{}}
		}
		cur.fields[key] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrCorruptedData, file, err)
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out, nil
}

// parseYAML reads a YAML document with a single top-level list under key.
func parseYAML(data []byte, file, key string) ([]record, error) {
	var doc map[string][]map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrInvalidDataFormat, file, err)
	}
	entries, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing top-level %q list", errs.ErrInvalidDataFormat, file, key)
	}
	out := make([]record, 0, len(entries))
	for i, e := range entries {
		fields := make(map[string]string, len(e))
		for k, v := range e {
			fields[strings.ToLower(k)] = strings.TrimSpace(v)
		}
		out = append(out, record{file: fmt.Sprintf("%s[%d]", file, i), fields: fields})
	}
	return out, nil
}

var (
	questFields = []string{"quest_id", "title", "description", "reward_xp", "reward_gold", "required_level", "prerequisite"}
	itemFields  = []string{"item_id", "name", "type", "effect", "cost", "description"}
)

func (r record) require(fields []string) error {
	var missing []string
	for _, f := range fields {
		if _, ok := r.fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing %s", errs.ErrInvalidDataFormat, r.where(), strings.Join(missing, ", "))
	}
	return nil
}

func (r record) intField(field string) (int, error) {
	n, err := strconv.Atoi(r.fields[field])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %s must be an integer, got %q",
			errs.ErrInvalidDataFormat, r.where(), field, r.fields[field])
	}
	return n, nil
}

// toQuest converts a record into a quest definition.
func toQuest(r record) (types.Quest, error) {
	if err := r.require(questFields); err != nil {
		return types.Quest{}, err
	}
	q := types.Quest{
		ID:          r.fields["quest_id"],
		Title:       r.fields["title"],
		Description: r.fields["description"],
	}
	var err error
	if q.RewardXP, err = r.intField("reward_xp"); err != nil {
		return q, err
	}
	if q.RewardGold, err = r.intField("reward_gold"); err != nil {
		return q, err
	}
	if q.RequiredLevel, err = r.intField("required_level"); err != nil {
		return q, err
	}
	if p := r.fields["prerequisite"]; !quest.IsNone(p) {
		q.Prerequisite = p
	}
	if q.ID == "" {
		return q, fmt.Errorf("%w: %s: empty quest_id", errs.ErrInvalidDataFormat, r.where())
	}
	return q, nil
}

// toItem converts a record into an item definition.
func toItem(r record) (types.Item, error) {
	if err := r.require(itemFields); err != nil {
		return types.Item{}, err
	}
	it := types.Item{
		ID:          r.fields["item_id"],
		Name:        r.fields["name"],
		Type:        types.ItemType(strings.ToLower(r.fields["type"])),
		Description: r.fields["description"],
	}
	if it.ID == "" {
		return it, fmt.Errorf("%w: %s: empty item_id", errs.ErrInvalidDataFormat, r.where())
	}
	switch it.Type {
	case types.ItemWeapon, types.ItemArmor, types.ItemConsumable:
	default:
		return it, fmt.Errorf("%w: %s: invalid type %q", errs.ErrInvalidDataFormat, r.where(), it.Type)
	}
	eff, err := parseEffect(r.fields["effect"])
	if err != nil {
		return it, fmt.Errorf("%w: %s: %v", errs.ErrInvalidDataFormat, r.where(), err)
	}
	it.Effect = eff
	if it.Cost, err = r.intField("cost"); err != nil {
		return it, err
	}
	return it, nil
}

// parseEffect parses "stat:value", e.g. "health:20".
func parseEffect(s string) (types.Effect, error) {
	stat, value, ok := strings.Cut(s, ":")
	if !ok {
		return types.Effect{}, fmt.Errorf("effect %q is not stat:value", s)
	}
	stat = strings.ToLower(strings.TrimSpace(stat))
	if !effects.ValidStats[stat] {
		return types.Effect{}, fmt.Errorf("effect %q names unknown stat %q", s, stat)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return types.Effect{}, fmt.Errorf("effect %q value is not an integer", s)
	}
	return types.Effect{Stat: stat, Delta: n}, nil
}
