package gameserver

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
)

var (
	// ErrNoHost is returned by host commands when no bridge is attached.
	ErrNoHost = errors.New("no host world attached")
	// ErrNPCNotFound is returned when a reported NPC is not in the world.
	ErrNPCNotFound = errors.New("npc not found")
)

// HostBridge applies player and world events reported by an external host
// to the in-memory world and routes them into the law system.
//
// All methods must be called from the tick loop.
type HostBridge struct {
	law     *LawSystemHandler
	players *session.Manager
	npcs    *npc.Manager
	worlds  *world.Manager
	logger  *zap.Logger
}

// NewHostBridge creates a HostBridge.
//
// Precondition: all arguments must be non-nil.
func NewHostBridge(lawSys *LawSystemHandler, players *session.Manager, npcs *npc.Manager, worlds *world.Manager, logger *zap.Logger) *HostBridge {
	return &HostBridge{
		law:     lawSys,
		players: players,
		npcs:    npcs,
		worlds:  worlds,
		logger:  logger.Named("host"),
	}
}

// Join brings uid online at pos and pushes the player's law state.
func (b *HostBridge) Join(uid uuid.UUID, name, levelID string, pos world.Pos) error {
	if _, ok := b.worlds.Level(levelID); !ok {
		return fmt.Errorf("level %q not found", levelID)
	}
	if _, err := b.players.AddPlayer(uid, name, levelID, pos); err != nil {
		return err
	}
	b.law.GetOrCreatePlayerState(uid)
	b.law.SyncPlayer(uid)
	b.logger.Info("player joined",
		zap.Stringer("player", uid),
		zap.String("name", name),
		zap.String("level", levelID),
		zap.Stringer("pos", pos),
	)
	return nil
}

// Leave takes uid offline. The ledger is kept; owned guards are swept once
// the owner is gone.
func (b *HostBridge) Leave(uid uuid.UUID) error {
	if err := b.players.RemovePlayer(uid); err != nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, uid)
	}
	b.logger.Info("player left", zap.Stringer("player", uid))
	return nil
}

// Move places uid at pos. An empty levelID keeps the current level.
func (b *HostBridge) Move(uid uuid.UUID, levelID string, pos world.Pos) error {
	p, ok := b.players.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, uid)
	}
	if levelID == "" {
		levelID = p.LevelID
	}
	if _, ok := b.worlds.Level(levelID); !ok {
		return fmt.Errorf("level %q not found", levelID)
	}
	return b.players.MovePlayer(uid, levelID, pos)
}

// Kill reports that uid killed npcID and removes the NPC from the world.
func (b *HostBridge) Kill(uid uuid.UUID, npcID string) error {
	inst, err := b.npc(npcID)
	if err != nil {
		return err
	}
	b.law.crime.OnNPCKilled(uid, inst)
	if err := b.npcs.Discard(npcID); err != nil {
		return err
	}
	b.law.OnNPCRemoved(npcID)
	return nil
}

// Attack reports that uid attacked npcID.
func (b *HostBridge) Attack(uid uuid.UUID, npcID string) error {
	inst, err := b.npc(npcID)
	if err != nil {
		return err
	}
	b.law.crime.OnNPCAttacked(uid, inst)
	return nil
}

// Theft reports that uid stole from npcID.
func (b *HostBridge) Theft(uid uuid.UUID, npcID string) error {
	inst, err := b.npc(npcID)
	if err != nil {
		return err
	}
	b.law.crime.OnTheft(uid, inst, inst.Pos)
	return nil
}

// Trespass reports that uid trespassed where they stand.
func (b *HostBridge) Trespass(uid uuid.UUID) error {
	p, ok := b.players.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, uid)
	}
	b.law.crime.OnTrespassing(uid, p.Pos)
	return nil
}

func (b *HostBridge) npc(id string) (*npc.Instance, error) {
	inst, ok := b.npcs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNPCNotFound, id)
	}
	return inst, nil
}
