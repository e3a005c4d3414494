package gameserver

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/law"
)

// Clock reports the current game tick.
type Clock interface {
	Now() int64
}

// PlayerDirectory is the online-player lookup the law handlers consume.
type PlayerDirectory interface {
	GetPlayer(uid uuid.UUID) (session.PlayerSession, bool)
	AllPlayers() []session.PlayerSession
}

// CrimeRecorder accepts crimes converted from world events.
type CrimeRecorder interface {
	SystemEnabled() bool
	RecordCrime(player uuid.UUID, crime law.CrimeType, pos world.Pos)
}

type assaultKey struct {
	attacker uuid.UUID
	victim   string
}

// CrimeHandler classifies governed NPCs and turns kills, attacks, thefts and
// trespasses into crime submissions.
//
// All methods must be called from the tick loop.
type CrimeHandler struct {
	npcs     *npc.Manager
	players  PlayerDirectory
	clock    Clock
	recorder CrimeRecorder
	logger   *zap.Logger

	roles           map[string]law.Role
	lastAssault     map[assaultKey]int64
	assaultCooldown int64
	onMerchantLost  func(instanceID string, now int64)
}

// NewCrimeHandler creates a CrimeHandler with an empty role cache.
//
// Precondition: npcs, players, clock and logger must be non-nil.
// Postcondition: The handler drops every event until SetRecorder is called.
func NewCrimeHandler(npcs *npc.Manager, players PlayerDirectory, clock Clock, logger *zap.Logger) *CrimeHandler {
	return &CrimeHandler{
		npcs:            npcs,
		players:         players,
		clock:           clock,
		logger:          logger.Named("crime"),
		roles:           make(map[string]law.Role),
		lastAssault:     make(map[assaultKey]int64),
		assaultCooldown: law.DefaultTiming().AssaultCooldown,
	}
}

// SetRecorder installs the crime sink.
func (h *CrimeHandler) SetRecorder(r CrimeRecorder) { h.recorder = r }

// SetAssaultCooldown sets the per attacker/victim assault suppression window.
func (h *CrimeHandler) SetAssaultCooldown(ticks int64) { h.assaultCooldown = max(0, ticks) }

// OnMerchantLost registers a callback fired when a tracked merchant is killed.
func (h *CrimeHandler) OnMerchantLost(fn func(instanceID string, now int64)) { h.onMerchantLost = fn }

// RegisterNPCRole records role for the NPC with the given instance ID.
func (h *CrimeHandler) RegisterNPCRole(id string, role law.Role) {
	h.roles[id] = role
	h.logger.Debug("registered npc role", zap.String("npc", id), zap.Stringer("role", role))
}

// UnregisterNPC forgets id. Unknown IDs are ignored.
func (h *CrimeHandler) UnregisterNPC(id string) {
	delete(h.roles, id)
	for k := range h.lastAssault {
		if k.victim == id {
			delete(h.lastAssault, k)
		}
	}
}

// RoleOf returns the cached role of id, or RoleCivilian and false when the
// NPC is not governed.
func (h *CrimeHandler) RoleOf(id string) (law.Role, bool) {
	role, ok := h.roles[id]
	if !ok {
		return law.RoleCivilian, false
	}
	return role, true
}

// IsGoverned reports whether id is in the role cache.
func (h *CrimeHandler) IsGoverned(id string) bool {
	_, ok := h.roles[id]
	return ok
}

// DetermineNPCRole infers the role of inst from its capabilities.
func DetermineNPCRole(inst *npc.Instance) law.Role {
	return law.DetermineRole(law.Capabilities{
		Trading:    inst.Trading,
		Faction:    inst.Faction,
		Profession: inst.Profession,
	})
}

// AutoRegister infers and caches the role of inst.
//
// Postcondition: inst is governed and its role is returned.
func (h *CrimeHandler) AutoRegister(inst *npc.Instance) law.Role {
	role := DetermineNPCRole(inst)
	h.RegisterNPCRole(inst.ID, role)
	return role
}

// OnNPCKilled records the crime implied by the victim's role.
//
// Precondition: victim must be non-nil.
// Postcondition: A governed, non-hostile victim is unregistered when a crime
// was submitted.
func (h *CrimeHandler) OnNPCKilled(killer uuid.UUID, victim *npc.Instance) {
	if !h.liveOnlinePlayer(killer) || !h.enabled() {
		return
	}
	role, governed := h.RoleOf(victim.ID)
	if !governed {
		return
	}
	if law.IsHostileFaction(victim.Faction) {
		h.logger.Debug("kill of hostile faction ignored",
			zap.String("npc", victim.ID),
			zap.String("faction", victim.Faction),
		)
		return
	}
	crime := role.Crime()
	h.recorder.RecordCrime(killer, crime, victim.Pos)
	h.logger.Info("npc killed by player",
		zap.Stringer("player", killer),
		zap.String("npc", victim.ID),
		zap.Stringer("role", role),
		zap.String("crime", string(crime)),
	)
	h.UnregisterNPC(victim.ID)
	if role == law.RoleMerchant && h.onMerchantLost != nil {
		h.onMerchantLost(victim.ID, h.clock.Now())
	}
}

// OnNPCAttacked records ASSAULT at most once per attacker/victim pair per
// assault cooldown.
func (h *CrimeHandler) OnNPCAttacked(attacker uuid.UUID, victim *npc.Instance) {
	if !h.liveOnlinePlayer(attacker) || !h.enabled() {
		return
	}
	if !h.IsGoverned(victim.ID) || law.IsHostileFaction(victim.Faction) {
		return
	}
	now := h.clock.Now()
	key := assaultKey{attacker: attacker, victim: victim.ID}
	if last, ok := h.lastAssault[key]; ok && now-last < h.assaultCooldown {
		return
	}
	h.lastAssault[key] = now
	h.recorder.RecordCrime(attacker, law.CrimeAssault, victim.Pos)
}

// OnTheft records THEFT against a governed victim at pos.
func (h *CrimeHandler) OnTheft(thief uuid.UUID, victim *npc.Instance, pos world.Pos) {
	if !h.liveOnlinePlayer(thief) || !h.enabled() {
		return
	}
	if victim != nil && !h.IsGoverned(victim.ID) {
		return
	}
	h.recorder.RecordCrime(thief, law.CrimeTheft, pos)
}

// OnTrespassing records TRESPASSING at pos.
func (h *CrimeHandler) OnTrespassing(player uuid.UUID, pos world.Pos) {
	if !h.liveOnlinePlayer(player) || !h.enabled() {
		return
	}
	h.recorder.RecordCrime(player, law.CrimeTrespassing, pos)
}

// MerchantCount returns the number of governed merchants.
func (h *CrimeHandler) MerchantCount() int { return h.countRole(law.RoleMerchant) }

// GuardCount returns the number of governed guards.
func (h *CrimeHandler) GuardCount() int { return h.countRole(law.RoleGuard) }

// DespawnAllMerchants discards every governed merchant in every level.
//
// Postcondition: Returns the number of merchants removed.
func (h *CrimeHandler) DespawnAllMerchants() int {
	removed := 0
	for id, role := range h.roles {
		if role != law.RoleMerchant {
			continue
		}
		if inst, ok := h.npcs.Get(id); ok && !inst.IsRemoved() {
			if err := h.npcs.Discard(id); err == nil {
				removed++
			}
		}
		delete(h.roles, id)
	}
	h.logger.Info("despawned merchants", zap.Int("count", removed))
	return removed
}

// Clear empties the role cache and assault timers.
func (h *CrimeHandler) Clear() {
	clear(h.roles)
	clear(h.lastAssault)
}

func (h *CrimeHandler) countRole(want law.Role) int {
	n := 0
	for _, role := range h.roles {
		if role == want {
			n++
		}
	}
	return n
}

func (h *CrimeHandler) enabled() bool {
	return h.recorder != nil && h.recorder.SystemEnabled()
}

func (h *CrimeHandler) liveOnlinePlayer(uid uuid.UUID) bool {
	p, ok := h.players.GetPlayer(uid)
	return ok && p.Alive()
}
