package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/enforcer/internal/config"
	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/gameserver"
	"github.com/cory-johannsen/enforcer/internal/storage/lawfile"
	"github.com/cory-johannsen/enforcer/internal/storage/sqlite"
)

const contentRoot = "../../content"

func newLawSystem(t *testing.T) *gameserver.LawSystemHandler {
	t.Helper()
	levels, err := world.LoadLevelsFromDir(filepath.Join(contentRoot, "levels"))
	require.NoError(t, err)
	worldMgr, err := world.NewManager(levels)
	require.NoError(t, err)
	templates, err := npc.LoadTemplates(filepath.Join(contentRoot, "npcs"))
	require.NoError(t, err)
	return gameserver.NewLawSystemHandler(
		session.NewManager(), npc.NewManager(templates...), worldMgr,
		gameserver.NewTickClock(0), dice.NewSeededSource(3), nil, nil, zaptest.NewLogger(t),
	)
}

func TestShippedContent_Loads(t *testing.T) {
	lawSys := newLawSystem(t)
	require.NoError(t, applyPolicyFile(lawSys, filepath.Join(contentRoot, "law", "policy.yaml")))

	cfg := lawSys.Config()
	assert.Equal(t, "Default", cfg.ProfileName)
	require.Len(t, cfg.Regions, 2)
	assert.Equal(t, "market", cfg.Regions[0].ID)
	assert.Len(t, cfg.SpawnPlans, 3)
	require.Len(t, cfg.MerchantTemplates, 1)

	lawSys.Initialize(context.Background())
	n := lawSys.Crime().MerchantCount()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 3)
}

func TestApplyPolicyFile_MissingOrEmptyPath(t *testing.T) {
	lawSys := newLawSystem(t)
	assert.NoError(t, applyPolicyFile(lawSys, ""))
	assert.NoError(t, applyPolicyFile(lawSys, filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Equal(t, "Default", lawSys.Config().ProfileName)
}

func TestApplyPolicyFile_InvalidPolicy(t *testing.T) {
	lawSys := newLawSystem(t)
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_wanted_level: 0\n"), 0o644))
	assert.Error(t, applyPolicyFile(lawSys, path))
	assert.Equal(t, 5, lawSys.Config().MaxWantedLevel)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		cfg := config.Config{Storage: config.StorageConfig{Backend: config.BackendFile, DataDir: filepath.Join(dir, "files")}}
		store, closeStore, err := openStore(ctx, cfg, logger)
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &lawfile.Store{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Config{Storage: config.StorageConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "law.db")}}
		store, closeStore, err := openStore(ctx, cfg, logger)
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &sqlite.Store{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := openStore(ctx, config.Config{Storage: config.StorageConfig{Backend: "tape"}}, logger)
		assert.ErrorContains(t, err, "unknown storage backend")
	})
}
