package gameserver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/gameserver"
	"github.com/cory-johannsen/enforcer/internal/law"
)

func storedConfig(t *testing.T, tune func(*law.Config)) []byte {
	cfg := law.DefaultConfig()
	tune(&cfg)
	blob, err := law.EncodeConfig(cfg)
	require.NoError(t, err)
	return blob
}

func TestInitialize_LoadsConfigAndLedgers(t *testing.T) {
	f := newFixture(t)
	merchant := law.NewMerchantTemplate("Stall", "merchant")
	merchant.LevelID = overworld
	merchant.Pos = world.Pos{X: 20, Y: 64, Z: 20}
	merchant.MinGroupSize, merchant.MaxGroupSize = 1, 1
	f.store.profile = "Stored"
	f.store.blob = storedConfig(t, func(c *law.Config) {
		c.ProfileName = "Blob"
		c.MaxWantedLevel = 7
		c.MerchantTemplates = []law.MerchantTemplate{merchant}
	})
	uid := uuid.New()
	ledger := law.NewPlayerLawState(uid, 100)
	ledger.WantedLevel = 9
	ledger.PeaceValue = 40
	f.store.states = []*law.PlayerLawState{ledger}

	f.law.Initialize(context.Background())

	cfg := f.law.Config()
	assert.Equal(t, "Stored", cfg.ProfileName, "the stored profile name wins")
	assert.Equal(t, 7, cfg.MaxWantedLevel)
	s := f.state(t, uid)
	assert.Equal(t, 7, s.WantedLevel, "loaded ledgers are clamped")
	assert.Equal(t, 40, s.PeaceValue)
	assert.Equal(t, 1, f.law.Crime().MerchantCount())
}

func TestInitialize_EmptyStoreKeepsDefaults(t *testing.T) {
	f := newFixture(t)
	f.law.Initialize(context.Background())
	assert.Equal(t, law.DefaultConfig().ProfileName, f.law.Config().ProfileName)
	assert.Empty(t, f.law.PlayerStates())
}

func TestInitialize_LoadFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.store.loadErr = errors.New("disk gone")

	f.law.Initialize(context.Background())

	assert.Equal(t, 5, f.law.Config().MaxWantedLevel)
	assert.Equal(t, 1, f.logs.FilterMessage("loading law config").FilterLevelExact(zap.ErrorLevel).Len())
	assert.Equal(t, 1, f.logs.FilterMessage("loading player ledgers").Len())
}

func TestSaveAll(t *testing.T) {
	f := newFixture(t)
	uid := f.join(t, "alice", origin)
	f.law.RecordCrime(uid, law.CrimeTheft, origin)

	require.NoError(t, f.law.SaveAll(context.Background()))

	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, "Default", f.store.profile)
	cfg, err := law.DecodeConfig(f.store.blob)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxWantedLevel)
	require.Len(t, f.store.states, 1)
	assert.Equal(t, uid, f.store.states[0].PlayerID)
	assert.Equal(t, 1, f.store.states[0].WantedLevel)
}

func TestSaveAll_FailureKeepsState(t *testing.T) {
	f := newFixture(t)
	uid := f.join(t, "alice", origin)
	f.law.SetPlayerWantedLevel(uid, 3)
	f.store.saveErr = errors.New("read-only")

	err := f.law.Shutdown(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, f.state(t, uid).WantedLevel)
	assert.Equal(t, 1, f.logs.FilterMessage("saving law config").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("saving player ledgers").Len())
}

func TestSaveAll_NoStore(t *testing.T) {
	f := newFixture(t)
	h := gameserver.NewLawSystemHandler(f.players, f.npcs, f.worlds, f.clock, dice.NewSeededSource(1), nil, nil, f.logger)
	assert.NoError(t, h.SaveAll(context.Background()))
	assert.Error(t, h.ReloadConfig(context.Background()))
}

func TestReloadConfig(t *testing.T) {
	f := newFixture(t)
	uid := f.join(t, "alice", origin)
	f.law.SetPlayerWantedLevel(uid, 5)
	f.store.profile = "Tight"
	f.store.blob = storedConfig(t, func(c *law.Config) { c.MaxWantedLevel = 2 })

	require.NoError(t, f.law.ReloadConfig(context.Background()))

	assert.Equal(t, "Tight", f.law.Config().ProfileName)
	assert.Equal(t, 2, f.state(t, uid).WantedLevel)
}

func TestReloadConfig_BadBlobKeepsActive(t *testing.T) {
	f := newFixture(t)
	f.store.blob = []byte("max_wanted_level: [not, a, number]")

	require.Error(t, f.law.ReloadConfig(context.Background()))
	assert.Equal(t, "Default", f.law.Config().ProfileName)
	assert.Equal(t, 5, f.law.Config().MaxWantedLevel)
}

func TestSaveAll_StoresTicksRelativeToSave(t *testing.T) {
	f := newFixture(t)
	uid := f.join(t, "alice", origin)
	f.law.RecordCrime(uid, law.CrimeTheft, origin)
	for range 100 {
		f.clock.Advance()
	}

	require.NoError(t, f.law.SaveAll(context.Background()))

	require.Len(t, f.store.states, 1)
	stored := f.store.states[0]
	assert.Equal(t, int64(-100), stored.LastCrimeTime)
	require.Len(t, stored.CrimeHistory, 1)
	assert.Equal(t, int64(-100), stored.CrimeHistory[0].Timestamp)
	assert.Equal(t, int64(startTick), f.state(t, uid).LastCrimeTime, "live ledger keeps absolute ticks")
}

func TestInitialize_RestartResumesDecayAndRepeatWindow(t *testing.T) {
	ctx := context.Background()
	uid := uuid.New()

	before := newFixture(t)
	_, err := before.players.AddPlayer(uid, "alice", overworld, origin)
	require.NoError(t, err)
	for range 400000 {
		before.clock.Advance()
	}
	for range 3 {
		before.law.RecordCrime(uid, law.CrimeTheft, origin)
		before.clock.Advance()
	}
	saved := before.state(t, uid)
	require.Positive(t, saved.WantedLevel)
	require.NoError(t, before.law.SaveAll(ctx))

	after := newFixture(t)
	after.store.states = before.store.states
	_, err = after.players.AddPlayer(uid, "alice", overworld, origin)
	require.NoError(t, err)
	after.law.Initialize(ctx)

	restored := after.state(t, uid)
	assert.Equal(t, saved.WantedLevel, restored.WantedLevel)
	assert.Equal(t, int64(startTick-1), restored.LastCrimeTime)
	require.Len(t, restored.CrimeHistory, 3)
	for i, rec := range restored.CrimeHistory {
		assert.Equal(t, int64(startTick-1-i), rec.Timestamp)
	}

	after.tick(20000)
	decayed := after.state(t, uid).WantedLevel
	assert.Less(t, decayed, saved.WantedLevel, "decay resumes on the new clock")

	after.law.RecordCrime(uid, law.CrimeTheft, origin)
	assert.Equal(t, decayed+1, after.state(t, uid).WantedLevel, "old thefts fell out of the repeat window")
}
