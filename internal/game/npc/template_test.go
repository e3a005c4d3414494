package npc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/enforcer/internal/game/npc"
)

const townGuardYAML = `id: town_guard
name: Town Guard
description: A watchman in a dented helm.
faction: town_guard
profession: guard
max_hp: 20
attack_damage: 4
objectives:
  - melee_attack
  - wander
`

func TestLoadTemplates_ValidDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "town_guard.yaml"), []byte(townGuardYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("skip"), 0644))

	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	tmpl := templates[0]
	assert.Equal(t, "town_guard", tmpl.ID)
	assert.Equal(t, "Town Guard", tmpl.Name)
	assert.Equal(t, 20, tmpl.MaxHP)
	assert.Equal(t, npc.TradingNone, tmpl.TradingType())
	assert.Equal(t, []npc.Objective{npc.ObjectiveMeleeAttack, npc.ObjectiveWander}, tmpl.Objectives)
}

func TestLoadTemplates_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":::invalid"), 0644))
	_, err := npc.LoadTemplates(dir)
	assert.Error(t, err)
}

func TestTemplate_Validate_UnknownObjective(t *testing.T) {
	tmpl := &npc.Template{ID: "x", Name: "X", MaxHP: 1, Objectives: []npc.Objective{"dance"}}
	assert.ErrorContains(t, tmpl.Validate(), "unknown objective")
}

func TestTemplate_Validate_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tmpl := &npc.Template{
			ID:           rapid.StringMatching(`[a-z][a-z0-9_]{0,15}`).Draw(rt, "id"),
			Name:         rapid.StringMatching(`[A-Z][a-z ]{0,15}`).Draw(rt, "name"),
			MaxHP:        rapid.IntRange(1, 300).Draw(rt, "max_hp"),
			AttackDamage: rapid.IntRange(0, 50).Draw(rt, "attack"),
		}
		assert.NoError(rt, tmpl.Validate())
	})
}
