package quest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/engine/state"
	"github.com/nathoo/questchronicles/types"
)

func testQuests() map[string]types.Quest {
	qs := []types.Quest{
		{ID: "first_steps", Title: "First Steps", RewardXP: 50, RewardGold: 25, RequiredLevel: 1},
		{ID: "goblin_hunter", Title: "Goblin Hunter", RewardXP: 100, RewardGold: 75, RequiredLevel: 2, Prerequisite: "first_steps"},
		{ID: "equipment_upgrade", Title: "Equipment Upgrade", RewardXP: 75, RewardGold: 50, RequiredLevel: 2, Prerequisite: "first_steps"},
		{ID: "orc_menace", Title: "Orc Menace", RewardXP: 200, RewardGold: 150, RequiredLevel: 3, Prerequisite: "goblin_hunter"},
	}
	m := make(map[string]types.Quest, len(qs))
	for _, q := range qs {
		m[q.ID] = q
	}
	return m
}

func newHero(t *testing.T) *types.Character {
	t.Helper()
	c, err := state.NewCharacter("Hero", types.ClassRogue)
	require.NoError(t, err)
	return c
}

func TestAccept(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)

	q, err := l.Accept(c, "first_steps")
	require.NoError(t, err)
	assert.Equal(t, "First Steps", q.Title)
	assert.Equal(t, []string{"first_steps"}, c.ActiveQuests)
}

func TestAccept_AlreadyActiveNeverDuplicates(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)

	_, err := l.Accept(c, "first_steps")
	require.NoError(t, err)
	_, err = l.Accept(c, "first_steps")
	assert.ErrorIs(t, err, errs.ErrQuestAlreadyActive)
	assert.Equal(t, []string{"first_steps"}, c.ActiveQuests)
}

func TestAccept_Gates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *types.Character)
		quest string
		want  error
	}{
		{"unknown", func(*types.Character) {}, "slay_the_moon", errs.ErrQuestNotFound},
		{"completed", func(c *types.Character) { c.CompletedQuests = []string{"first_steps"} }, "first_steps", errs.ErrQuestAlreadyCompleted},
		{"level", func(c *types.Character) { c.CompletedQuests = []string{"first_steps"} }, "goblin_hunter", errs.ErrInsufficientLevel},
		{"prerequisite", func(c *types.Character) { c.Level = 2 }, "goblin_hunter", errs.ErrQuestRequirementsNotMet},
		// Level is checked before the prerequisite.
		{"level before prerequisite", func(*types.Character) {}, "orc_menace", errs.ErrInsufficientLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(testQuests())
			c := newHero(t)
			tt.setup(c)

			_, err := l.Accept(c, tt.quest)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, errs.ErrGame)
		})
	}
}

func TestComplete_GrantsRewardsAndLevels(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)
	c.Experience = 60

	_, err := l.Accept(c, "first_steps")
	require.NoError(t, err)

	q, ups, err := l.Complete(c, "first_steps")
	require.NoError(t, err)
	assert.Equal(t, "first_steps", q.ID)
	assert.Empty(t, c.ActiveQuests)
	assert.Equal(t, []string{"first_steps"}, c.CompletedQuests)
	assert.Equal(t, 125, c.Gold)
	assert.Equal(t, 110, c.Experience)
	require.Len(t, ups, 1)
	assert.Equal(t, 2, c.Level)

	_, err = l.Accept(c, "goblin_hunter")
	assert.NoError(t, err)
}

func TestComplete_NotActive(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)

	_, _, err := l.Complete(c, "first_steps")
	assert.ErrorIs(t, err, errs.ErrQuestNotActive)

	_, _, err = l.Complete(c, "nope")
	assert.ErrorIs(t, err, errs.ErrQuestNotFound)
}

func TestComplete_FailedRewardLeavesQuestActive(t *testing.T) {
	quests := testQuests()
	quests["toll"] = types.Quest{ID: "toll", Title: "Toll", RewardXP: 500, RewardGold: -1000, RequiredLevel: 1}
	l := New(quests)
	c := newHero(t)

	_, err := l.Accept(c, "toll")
	require.NoError(t, err)

	_, ups, err := l.Complete(c, "toll")
	assert.ErrorIs(t, err, errs.ErrInsufficientResources)
	assert.Empty(t, ups)
	assert.Equal(t, []string{"toll"}, c.ActiveQuests)
	assert.Empty(t, c.CompletedQuests)
	assert.Equal(t, 100, c.Gold)
	assert.Equal(t, 0, c.Experience)
}

func TestAbandon(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)

	_, err := l.Abandon(c, "first_steps")
	assert.ErrorIs(t, err, errs.ErrQuestNotActive)

	_, err = l.Accept(c, "first_steps")
	require.NoError(t, err)
	_, err = l.Abandon(c, "first_steps")
	require.NoError(t, err)
	assert.Empty(t, c.ActiveQuests)
	assert.Empty(t, c.CompletedQuests)
	assert.Equal(t, 100, c.Gold)
}

func TestAvailable_SortedByLevelThenID(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)

	avail := l.Available(c)
	require.Len(t, avail, 1)
	assert.Equal(t, "first_steps", avail[0].ID)

	c.Level = 2
	c.CompletedQuests = []string{"first_steps"}
	avail = l.Available(c)
	require.Len(t, avail, 2)
	assert.Equal(t, "equipment_upgrade", avail[0].ID)
	assert.Equal(t, "goblin_hunter", avail[1].ID)
}

func TestActiveAndCompleted(t *testing.T) {
	l := New(testQuests())
	c := newHero(t)
	c.Level = 3
	c.ActiveQuests = []string{"orc_menace", "goblin_hunter"}
	c.CompletedQuests = []string{"first_steps"}

	active := l.Active(c)
	require.Len(t, active, 2)
	assert.Equal(t, "goblin_hunter", active[0].ID)
	assert.Equal(t, "orc_menace", active[1].ID)

	done := l.Completed(c)
	require.Len(t, done, 1)
	assert.Equal(t, "first_steps", done[0].ID)
}

func TestChain(t *testing.T) {
	l := New(testQuests())

	chain, err := l.Chain("orc_menace")
	require.NoError(t, err)
	ids := make([]string, len(chain))
	for i, q := range chain {
		ids[i] = q.ID
	}
	assert.Equal(t, []string{"first_steps", "goblin_hunter", "orc_menace"}, ids)

	_, err = l.Chain("missing")
	assert.ErrorIs(t, err, errs.ErrQuestNotFound)
}

func TestIsNone(t *testing.T) {
	assert.True(t, IsNone(""))
	assert.True(t, IsNone("NONE"))
	assert.True(t, IsNone(" none "))
	assert.False(t, IsNone("first_steps"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(testQuests()))
	assert.NoError(t, Validate(nil))
}

func TestValidate_Cycle(t *testing.T) {
	quests := map[string]types.Quest{
		"a": {ID: "a", Prerequisite: "b"},
		"b": {ID: "b", Prerequisite: "a"},
	}
	err := Validate(quests)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidDataFormat)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestValidate_SelfCycle(t *testing.T) {
	err := Validate(map[string]types.Quest{"a": {ID: "a", Prerequisite: "a"}})
	assert.ErrorIs(t, err, errs.ErrInvalidDataFormat)
}

func TestValidate_CycleReachableFromTail(t *testing.T) {
	quests := map[string]types.Quest{
		"a": {ID: "a", Prerequisite: "b"},
		"b": {ID: "b", Prerequisite: "c"},
		"c": {ID: "c", Prerequisite: "b"},
	}
	assert.ErrorIs(t, Validate(quests), errs.ErrInvalidDataFormat)
}

func TestValidate_UnknownPrerequisite(t *testing.T) {
	quests := map[string]types.Quest{
		"a": {ID: "a", Prerequisite: "ghost"},
	}
	err := Validate(quests)
	assert.ErrorIs(t, err, errs.ErrInvalidDataFormat)
	assert.Contains(t, err.Error(), "ghost")
}
