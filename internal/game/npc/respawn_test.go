package npc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/world"
)

func stallPost() npc.SpawnPost {
	return npc.SpawnPost{
		Name:          "fish stall",
		TemplateID:    "merchant",
		LevelID:       "town",
		Pos:           world.Pos{X: 10, Y: 65, Z: 10},
		MinGroup:      1,
		MaxGroup:      3,
		IntervalTicks: 100,
		CooldownTicks: 50,
	}
}

func TestRespawnManager_Populate_WithinGroupBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mgr := npc.NewManager(makeTemplate("merchant"))
		rm := npc.NewRespawnManager([]npc.SpawnPost{stallPost()}, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		spawned := rm.Populate(0, mgr)
		assert.GreaterOrEqual(rt, len(spawned), 1)
		assert.LessOrEqual(rt, len(spawned), 3)
		assert.Len(rt, mgr.InLevel("town"), len(spawned))
	})
}

func TestRespawnManager_ScheduleReplacesAfterCooldown(t *testing.T) {
	mgr := npc.NewManager(makeTemplate("merchant"))
	rm := npc.NewRespawnManager([]npc.SpawnPost{stallPost()}, dice.NewSequenceSource(0))
	spawned := rm.Populate(0, mgr)
	require.Len(t, spawned, 1)

	victim := spawned[0]
	require.NoError(t, mgr.Discard(victim.ID))
	assert.True(t, rm.Schedule(victim.ID, 10))

	assert.Empty(t, rm.Tick(59, mgr), "cooldown not yet elapsed")
	replaced := rm.Tick(60, mgr)
	require.Len(t, replaced, 1)
	assert.NotEqual(t, victim.ID, replaced[0].ID)
}

func TestRespawnManager_ScheduleUnknownInstance(t *testing.T) {
	rm := npc.NewRespawnManager([]npc.SpawnPost{stallPost()}, dice.NewSequenceSource(0))
	assert.False(t, rm.Schedule("nobody", 0))
}

func TestRespawnManager_PeriodicTopUp(t *testing.T) {
	post := stallPost()
	post.CooldownTicks = 0
	mgr := npc.NewManager(makeTemplate("merchant"))
	rm := npc.NewRespawnManager([]npc.SpawnPost{post}, dice.NewSequenceSource(0))
	spawned := rm.Populate(0, mgr)
	require.Len(t, spawned, 1)
	require.NoError(t, mgr.Discard(spawned[0].ID))

	assert.Empty(t, rm.Tick(99, mgr))
	assert.Len(t, rm.Tick(100, mgr), 1)
}

func TestRespawnManager_MissingTemplateSkips(t *testing.T) {
	mgr := npc.NewManager()
	rm := npc.NewRespawnManager([]npc.SpawnPost{stallPost()}, dice.NewSequenceSource(2))
	assert.Empty(t, rm.Populate(0, mgr))
}

func TestRespawnManager_ReconfigureKeepsMatchingPosts(t *testing.T) {
	mgr := npc.NewManager(makeTemplate("merchant"))
	rm := npc.NewRespawnManager([]npc.SpawnPost{stallPost()}, dice.NewSequenceSource(0))
	spawned := rm.Populate(0, mgr)
	require.Len(t, spawned, 1)

	retuned := stallPost()
	retuned.MaxGroup = 5
	rm.Reconfigure([]npc.SpawnPost{retuned})

	assert.Empty(t, rm.Tick(100, mgr), "live member still counts toward the group")
	assert.Equal(t, 5, rm.Posts()[0].MaxGroup)

	require.NoError(t, mgr.Discard(spawned[0].ID))
	assert.True(t, rm.Schedule(spawned[0].ID, 100), "member survives reconfiguration")
}

func TestRespawnManager_ReconfigureCarriesPendingReplacements(t *testing.T) {
	post := stallPost()
	post.IntervalTicks = 0
	mgr := npc.NewManager(makeTemplate("merchant"))
	rm := npc.NewRespawnManager([]npc.SpawnPost{post}, dice.NewSequenceSource(0))
	spawned := rm.Populate(0, mgr)
	require.Len(t, spawned, 1)
	require.NoError(t, mgr.Discard(spawned[0].ID))
	require.True(t, rm.Schedule(spawned[0].ID, 10))

	other := stallPost()
	other.Name = "bread stall"
	other.Pos = world.Pos{X: 30, Y: 65, Z: 30}
	rm.Reconfigure([]npc.SpawnPost{other, post})

	replaced := rm.Tick(100, mgr)
	require.Len(t, replaced, 2, "pending replacement plus the new post's top-up")
	var atOld int
	for _, inst := range replaced {
		if inst.Pos.Dist(post.Pos) <= 2 {
			atOld++
		}
	}
	assert.Equal(t, 1, atOld)
}

func TestRespawnManager_ReconfigureReleasesDroppedPosts(t *testing.T) {
	mgr := npc.NewManager(makeTemplate("merchant"))
	rm := npc.NewRespawnManager([]npc.SpawnPost{stallPost()}, dice.NewSequenceSource(0))
	spawned := rm.Populate(0, mgr)
	require.Len(t, spawned, 1)

	moved := stallPost()
	moved.Pos = world.Pos{X: 50, Y: 65, Z: 50}
	rm.Reconfigure([]npc.SpawnPost{moved})

	assert.False(t, rm.Schedule(spawned[0].ID, 0))
	assert.Len(t, rm.Tick(100, mgr), 1, "the new post fills on its first top-up")
}
