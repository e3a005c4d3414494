package gameserver_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/gameserver"
	"github.com/cory-johannsen/enforcer/internal/law"
)

const (
	overworld = "overworld"
	nether    = "nether"
	startTick = 1000
)

var origin = world.Pos{X: 0, Y: 64, Z: 0}

func testTemplates() []*npc.Template {
	return []*npc.Template{
		{ID: law.TemplateTownGuard, Name: "Town Guard", Profession: "guard", MaxHP: 20, AttackDamage: 4},
		{ID: law.TemplateEliteGuard, Name: "Elite Guard", Profession: "guard", MaxHP: 60, AttackDamage: 12},
		{ID: "merchant", Name: "Merchant", Profession: "trader", Trading: "general", MaxHP: 20},
		{ID: "villager", Name: "Villager", MaxHP: 10},
		{ID: "bandit", Name: "Bandit", Faction: "bandit_clan", MaxHP: 15, AttackDamage: 3},
		{ID: "watchman", Name: "Watchman", Faction: "town_watch", MaxHP: 25},
	}
}

// memStore is an in-memory LawStore.
type memStore struct {
	mu      sync.Mutex
	profile string
	blob    []byte
	states  []*law.PlayerLawState
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) LoadConfig(context.Context) (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", nil, s.loadErr
	}
	return s.profile, s.blob, nil
}

func (s *memStore) SaveConfig(_ context.Context, profile string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.profile, s.blob = profile, append([]byte(nil), blob...)
	s.saves++
	return nil
}

func (s *memStore) LoadPlayers(context.Context) ([]*law.PlayerLawState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]*law.PlayerLawState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.Clone())
	}
	return out, nil
}

func (s *memStore) SavePlayers(_ context.Context, states []*law.PlayerLawState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states = states
	return nil
}

// recordingSender captures every payload it is asked to send.
type recordingSender struct {
	mu   sync.Mutex
	sent []gameserver.LawStatePayload
	err  error
}

func (r *recordingSender) SendLawState(p gameserver.LawStatePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
	return r.err
}

func (r *recordingSender) last(uid uuid.UUID) (gameserver.LawStatePayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Player == uid {
			return r.sent[i], true
		}
	}
	return gameserver.LawStatePayload{}, false
}

type fixture struct {
	players *session.Manager
	npcs    *npc.Manager
	worlds  *world.Manager
	clock   *gameserver.TickClock
	store   *memStore
	sender  *recordingSender
	law     *gameserver.LawSystemHandler
	logs    *observer.ObservedLogs
	logger  *zap.Logger
}

// newFixture builds a law system over two flat levels with the default
// config, optionally adjusted by tune.
func newFixture(t require.TestingT, tune ...func(*law.Config)) *fixture {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	worlds, err := world.NewManager([]*world.Level{
		world.NewFlatLevel(overworld, 63, 0, 127),
		world.NewFlatLevel(nether, 31, 0, 127),
	})
	require.NoError(t, err)

	f := &fixture{
		players: session.NewManager(),
		npcs:    npc.NewManager(testTemplates()...),
		worlds:  worlds,
		clock:   gameserver.NewTickClock(startTick),
		store:   &memStore{},
		sender:  &recordingSender{},
		logs:    logs,
		logger:  logger,
	}
	f.law = gameserver.NewLawSystemHandler(
		f.players, f.npcs, f.worlds, f.clock, dice.NewSeededSource(42), f.store, f.sender, logger,
	)
	if len(tune) > 0 {
		cfg := law.DefaultConfig()
		for _, fn := range tune {
			fn(&cfg)
		}
		require.NoError(t, f.law.ApplyConfig(cfg))
	}
	return f
}

func (f *fixture) join(t require.TestingT, name string, pos world.Pos) uuid.UUID {
	uid := uuid.New()
	_, err := f.players.AddPlayer(uid, name, overworld, pos)
	require.NoError(t, err)
	return uid
}

func (f *fixture) player(t require.TestingT, uid uuid.UUID) session.PlayerSession {
	p, ok := f.players.GetPlayer(uid)
	require.True(t, ok)
	return p
}

func (f *fixture) spawn(t require.TestingT, tmpl, levelID string, pos world.Pos) *npc.Instance {
	inst, err := f.npcs.SpawnFromTemplate(tmpl, levelID, pos)
	require.NoError(t, err)
	f.law.OnNPCSpawned(inst)
	return inst
}

// tick advances the host clock and runs the law tick n times.
func (f *fixture) tick(n int) {
	for range n {
		f.clock.Advance()
		f.law.HandleServerTick()
	}
}

func (f *fixture) state(t require.TestingT, uid uuid.UUID) *law.PlayerLawState {
	s, ok := f.law.PlayerState(uid)
	require.True(t, ok, "no ledger for %s", uid)
	return s
}

func withTiming(fn func(*law.Timing)) func(*law.Config) {
	return func(c *law.Config) { fn(&c.Timing) }
}
