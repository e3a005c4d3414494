package npc_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/world"
)

func makeTemplate(id string) *npc.Template {
	return &npc.Template{ID: id, Name: id, MaxHP: 10}
}

func TestManager_SpawnAndIndexByLevel(t *testing.T) {
	mgr := npc.NewManager(makeTemplate("merchant"))
	a, err := mgr.SpawnFromTemplate("merchant", "town", world.Pos{X: 1})
	require.NoError(t, err)
	b, err := mgr.SpawnFromTemplate("merchant", "caves", world.Pos{X: 2})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []*npc.Instance{a}, mgr.InLevel("town"))
	assert.Len(t, mgr.All(), 2)
	assert.Equal(t, 2, mgr.Count())
}

func TestManager_SpawnFromTemplate_Unknown(t *testing.T) {
	mgr := npc.NewManager()
	_, err := mgr.SpawnFromTemplate("ghost", "town", world.Pos{})
	assert.True(t, errors.Is(err, npc.ErrTemplateNotFound))
}

func TestManager_Discard(t *testing.T) {
	mgr := npc.NewManager(makeTemplate("guard"))
	inst, err := mgr.SpawnFromTemplate("guard", "town", world.Pos{})
	require.NoError(t, err)

	require.NoError(t, mgr.Discard(inst.ID))
	assert.True(t, inst.IsRemoved())
	assert.False(t, inst.IsAlive())
	_, ok := mgr.Get(inst.ID)
	assert.False(t, ok)
	assert.Empty(t, mgr.InLevel("town"))
	assert.Error(t, mgr.Discard(inst.ID))
}

func TestInstance_TagsObjectivesAndTarget(t *testing.T) {
	tmpl := makeTemplate("guard")
	tmpl.Objectives = []npc.Objective{npc.ObjectiveBowAttack}
	inst := npc.NewInstance("g1", tmpl, "town", world.Pos{})

	assert.True(t, inst.HasAnyObjective(npc.AttackObjectives))
	inst.RemoveObjective(npc.ObjectiveBowAttack)
	assert.False(t, inst.HasAnyObjective(npc.AttackObjectives))
	inst.AddObjective(npc.ObjectiveMeleeAttack, 1)
	assert.Equal(t, []npc.Objective{npc.ObjectiveMeleeAttack}, inst.Objectives())

	inst.AddTag("b")
	inst.AddTag("a")
	assert.Equal(t, []string{"a", "b"}, inst.Tags())
	inst.RemoveTag("a")
	assert.False(t, inst.HasTag("a"))

	p := uuid.New()
	inst.SetTarget(p)
	assert.Equal(t, p, inst.Target)
	inst.ClearTarget()
	assert.Equal(t, uuid.Nil, inst.Target)
}

func TestInstance_IsDefaultFaction(t *testing.T) {
	tmpl := makeTemplate("villager")
	inst := npc.NewInstance("v", tmpl, "town", world.Pos{})
	assert.True(t, inst.IsDefaultFaction())
	inst.Faction = "Default"
	assert.True(t, inst.IsDefaultFaction())
	inst.Faction = "quest_cult"
	assert.False(t, inst.IsDefaultFaction())
}
