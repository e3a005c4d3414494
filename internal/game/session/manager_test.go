package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/enforcer/internal/game/world"
)

func TestBridgeEntity_Push(t *testing.T) {
	e := NewBridgeEntity(uuid.New(), 4)
	require.NoError(t, e.Push("law_state", []byte("hello")))

	ev := <-e.Events()
	assert.Equal(t, "law_state", ev.Kind)
	assert.Equal(t, []byte("hello"), ev.Payload)
}

func TestBridgeEntity_PushClosed(t *testing.T) {
	e := NewBridgeEntity(uuid.New(), 4)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
	assert.Error(t, e.Push("x", nil))
}

func TestBridgeEntity_PushFull(t *testing.T) {
	e := NewBridgeEntity(uuid.New(), 1)
	require.NoError(t, e.Push("x", []byte("first")))
	assert.Error(t, e.Push("x", []byte("second")))
}

func TestManager_AddGetRemove(t *testing.T) {
	m := NewManager()
	uid := uuid.New()
	sess, err := m.AddPlayer(uid, "Ada", "town", world.Pos{X: 1})
	require.NoError(t, err)
	assert.True(t, sess.Alive())

	_, err = m.AddPlayer(uid, "Ada", "town", world.Pos{})
	assert.Error(t, err)

	got, ok := m.GetPlayer(uid)
	require.True(t, ok)
	assert.Equal(t, "Ada", got.Name)

	byName, ok := m.GetPlayerByName("Ada")
	require.True(t, ok)
	assert.Equal(t, uid, byName.UID)

	require.NoError(t, m.MovePlayer(uid, "caves", world.Pos{X: 9}))
	require.NoError(t, m.SetDead(uid, true))
	got, _ = m.GetPlayer(uid)
	assert.Equal(t, "caves", got.LevelID)
	assert.False(t, got.Alive())

	require.NoError(t, m.RemovePlayer(uid))
	assert.True(t, got.Entity.IsClosed())
	assert.Error(t, m.RemovePlayer(uid))
	assert.Equal(t, 0, m.PlayerCount())
}

func TestManager_AddPlayer_NilUID(t *testing.T) {
	_, err := NewManager().AddPlayer(uuid.Nil, "x", "town", world.Pos{})
	assert.Error(t, err)
}

func TestManager_GetPlayer_ReturnsSnapshot(t *testing.T) {
	m := NewManager()
	uid := uuid.New()
	_, err := m.AddPlayer(uid, "Ada", "town", world.Pos{})
	require.NoError(t, err)

	snap, _ := m.GetPlayer(uid)
	snap.Pos = world.Pos{X: 500}
	again, _ := m.GetPlayer(uid)
	assert.Equal(t, world.Pos{}, again.Pos)
}

func TestManager_ConcurrentAdd(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.AddPlayer(uuid.New(), "p", "town", world.Pos{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.PlayerCount())
}

func TestManager_AllPlayers_Sorted(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := NewManager()
		names := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 0, 10).Draw(rt, "names")
		for _, n := range names {
			_, err := m.AddPlayer(uuid.New(), n, "town", world.Pos{})
			require.NoError(rt, err)
		}
		all := m.AllPlayers()
		assert.Len(rt, all, len(names))
		for i := 1; i < len(all); i++ {
			assert.LessOrEqual(rt, all[i-1].Name, all[i].Name)
		}
	})
}
