package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const townLevelYAML = `
level:
  id: town
  name: "Market Town"
  floor_y: 64
  min_y: 0
  max_y: 128
  boxes:
    - block: liquid
      min: {x: 10, y: 64, z: 10}
      max: {x: 20, y: 64, z: 20}
`

func TestLoadLevelFromBytes(t *testing.T) {
	lvl, err := LoadLevelFromBytes([]byte(townLevelYAML))
	require.NoError(t, err)
	assert.Equal(t, "town", lvl.ID)
	assert.Equal(t, "Market Town", lvl.Name)
	require.Len(t, lvl.Boxes, 1)
	assert.Equal(t, BlockLiquid, lvl.BlockAt(Pos{X: 15, Y: 64, Z: 15}))
	assert.Equal(t, BlockSolid, lvl.BlockAt(Pos{X: 0, Y: 64, Z: 0}))
}

func TestLoadLevelFromBytes_UnknownBlock(t *testing.T) {
	_, err := LoadLevelFromBytes([]byte(`
level:
  id: bad
  floor_y: 1
  max_y: 4
  boxes:
    - block: lava
      min: {x: 0, y: 0, z: 0}
      max: {x: 1, y: 1, z: 1}
`))
	assert.ErrorContains(t, err, "unknown block")
}

func TestLoadLevelsFromDir_AndManager(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "town.yaml"), []byte(townLevelYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	levels, err := LoadLevelsFromDir(dir)
	require.NoError(t, err)
	require.Len(t, levels, 1)

	mgr, err := NewManager(levels)
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.LevelCount())
	l, ok := mgr.Level("town")
	require.True(t, ok)
	assert.Same(t, levels[0], l)

	_, err = NewManager([]*Level{levels[0], levels[0]})
	assert.Error(t, err)
}
