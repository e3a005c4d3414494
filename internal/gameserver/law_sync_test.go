package gameserver_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/gameserver"
	"github.com/cory-johannsen/enforcer/internal/law"
)

func decodeEvent(t *testing.T, ev session.Event) gameserver.LawStatePayload {
	t.Helper()
	require.Equal(t, gameserver.EventLawState, ev.Kind)
	var s structpb.Struct
	require.NoError(t, proto.Unmarshal(ev.Payload, &s))
	p, err := gameserver.DecodeLawStatePayload(&s)
	require.NoError(t, err)
	return p
}

func TestSessionSender_PushesToEntity(t *testing.T) {
	f := newFixture(t)
	uid := f.join(t, "alice", origin)
	sender := gameserver.NewSessionSender(f.players)

	want := gameserver.LawStatePayload{Player: uid, WantedLevel: 3, PeaceValue: 42, Immune: true}
	require.NoError(t, sender.SendLawState(want))

	ev := <-f.player(t, uid).Entity.Events()
	assert.Equal(t, want, decodeEvent(t, ev))
}

func TestSessionSender_OfflinePlayer(t *testing.T) {
	f := newFixture(t)
	err := gameserver.NewSessionSender(f.players).SendLawState(gameserver.LawStatePayload{Player: uuid.New()})
	assert.ErrorIs(t, err, gameserver.ErrPlayerNotFound)
}

func TestLawSystem_SyncsThroughSession(t *testing.T) {
	f := newFixture(t)
	h := gameserver.NewLawSystemHandler(
		f.players, f.npcs, f.worlds, f.clock, dice.NewSeededSource(1), nil,
		gameserver.NewSessionSender(f.players), f.logger,
	)
	uid := f.join(t, "alice", origin)

	h.RecordCrime(uid, law.CrimeMerchantKill, origin)

	p := decodeEvent(t, <-f.player(t, uid).Entity.Events())
	assert.Equal(t, uid, p.Player)
	assert.Equal(t, 2, p.WantedLevel)
	assert.Equal(t, 85, p.PeaceValue)
	assert.False(t, p.Immune)
}

func TestSyncPlayer_SenderFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	uid := f.join(t, "alice", origin)
	f.sender.err = errors.New("socket closed")

	assert.NotPanics(t, func() { f.law.RecordCrime(uid, law.CrimeTheft, origin) })
	assert.Equal(t, 1, f.state(t, uid).WantedLevel)
	entries := f.logs.FilterMessage("law state sync failed").FilterLevelExact(zap.WarnLevel)
	assert.Equal(t, 1, entries.Len())
}

func TestSyncPlayer_OfflineSkipped(t *testing.T) {
	f := newFixture(t)
	offline := uuid.New()
	f.law.SetPlayerWantedLevel(offline, 2)
	_, ok := f.sender.last(offline)
	assert.False(t, ok)
}

func TestMultiSender(t *testing.T) {
	ok := &recordingSender{}
	failing := &recordingSender{err: errors.New("down")}
	m := gameserver.MultiSender{failing, ok}
	p := gameserver.LawStatePayload{Player: uuid.New(), WantedLevel: 1}

	err := m.SendLawState(p)
	require.Error(t, err)
	assert.Len(t, ok.sent, 1, "later senders still receive the payload")
	assert.Len(t, failing.sent, 1)

	assert.NoError(t, gameserver.MultiSender{ok}.SendLawState(p))
	assert.NoError(t, gameserver.MultiSender(nil).SendLawState(p))
}

func TestDecodeLawStatePayload_BadPlayer(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"player": "nope", "wanted_level": 1})
	require.NoError(t, err)
	_, err = gameserver.DecodeLawStatePayload(s)
	assert.Error(t, err)
}
