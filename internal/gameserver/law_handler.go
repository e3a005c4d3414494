package gameserver

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/law"
)

// ErrPlayerNotFound is returned when a player is not online.
var ErrPlayerNotFound = errors.New("player not found")

// ticksPerSecond is the host simulation rate.
const ticksPerSecond = 20

// maxSimulationSeconds bounds RunSimulation.
const maxSimulationSeconds = 60

// CrimeEvent describes a crime about to be applied, with the penalties the
// crime rule computed for it.
type CrimeEvent struct {
	Player        uuid.UUID
	Crime         law.CrimeType
	RegionID      string
	Pos           world.Pos
	RepeatCount   int
	WantedLevel   int
	WantedPenalty int
	PeacePenalty  int
}

// CrimePenalty is a scripted override of the computed penalties.
type CrimePenalty struct {
	Wanted int
	Peace  int
}

// CrimeHook may override the penalties of a crime. ok=false keeps the
// computed values.
type CrimeHook func(ev CrimeEvent) (p CrimePenalty, ok bool)

// offsetClock shifts a host clock forward by the ticks simulated so far.
type offsetClock struct {
	base   Clock
	offset int64
}

func (c *offsetClock) Now() int64 { return c.base.Now() + c.offset }

// LawSystemHandler owns the law config and the player ledgers. It is the
// single entry point for recording crimes and drives decay, alerts, guard
// refresh, sync and persistence from the tick.
//
// All methods must be called from the tick loop.
type LawSystemHandler struct {
	cfg     law.Config
	players PlayerDirectory
	npcs    *npc.Manager
	crime   *CrimeHandler
	guards  *GuardResponseHandler
	clock   *offsetClock
	src     dice.Source
	store   LawStore
	sender  StateSender
	hook    CrimeHook
	logger  *zap.Logger

	merchants     *npc.RespawnManager
	states        map[uuid.UUID]*law.PlayerLawState
	resetGrace    map[uuid.UUID]int64
	lawAttackNPCs map[string]bool
	tickCounter   int64
}

// NewLawSystemHandler builds the law system and its crime and guard handlers
// around the default config.
//
// Precondition: players, npcs, worlds, clock, src and logger must be non-nil.
// store and sender may be nil (no persistence, no sync).
// Postcondition: Returns a handler whose crime handler records into it.
func NewLawSystemHandler(
	players PlayerDirectory,
	npcs *npc.Manager,
	worlds *world.Manager,
	clock Clock,
	src dice.Source,
	store LawStore,
	sender StateSender,
	logger *zap.Logger,
) *LawSystemHandler {
	oc := &offsetClock{base: clock}
	crime := NewCrimeHandler(npcs, players, oc, logger)
	h := &LawSystemHandler{
		players:       players,
		npcs:          npcs,
		crime:         crime,
		guards:        NewGuardResponseHandler(npcs, worlds, players, crime, oc, src, logger),
		clock:         oc,
		src:           src,
		store:         store,
		sender:        sender,
		logger:        logger.Named("law"),
		states:        make(map[uuid.UUID]*law.PlayerLawState),
		resetGrace:    make(map[uuid.UUID]int64),
		lawAttackNPCs: make(map[string]bool),
	}
	crime.SetRecorder(h)
	crime.OnMerchantLost(func(id string, now int64) {
		if h.merchants != nil {
			h.merchants.Schedule(id, now)
		}
	})
	h.applyConfig(law.DefaultConfig())
	return h
}

// SetCrimeHook installs an optional penalty override.
func (h *LawSystemHandler) SetCrimeHook(hook CrimeHook) { h.hook = hook }

// Crime returns the crime handler.
func (h *LawSystemHandler) Crime() *CrimeHandler { return h.crime }

// Guards returns the guard response handler.
func (h *LawSystemHandler) Guards() *GuardResponseHandler { return h.guards }

// Now returns the law system's current tick.
func (h *LawSystemHandler) Now() int64 { return h.clock.Now() }

// Config returns a copy of the active config.
func (h *LawSystemHandler) Config() law.Config { return h.cfg.Clone() }

// SystemEnabled implements CrimeRecorder.
func (h *LawSystemHandler) SystemEnabled() bool { return h.cfg.SystemEnabled }

// SetSystemEnabled toggles the whole subsystem.
func (h *LawSystemHandler) SetSystemEnabled(enabled bool) {
	h.cfg.SystemEnabled = enabled
	h.guards.SetConfig(h.cfg)
	h.logger.Info("law system toggled", zap.Bool("enabled", enabled))
}

// ApplyConfig validates and installs cfg.
//
// Postcondition: On error the active config is unchanged.
func (h *LawSystemHandler) ApplyConfig(cfg law.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	h.applyConfig(cfg)
	return nil
}

// ApplyPreset retunes the active config with a named preset.
func (h *LawSystemHandler) ApplyPreset(name string) error {
	cfg := h.cfg.Clone()
	if err := cfg.ApplyPreset(name); err != nil {
		return err
	}
	if err := h.ApplyConfig(cfg); err != nil {
		return err
	}
	for _, s := range h.states {
		s.Normalize(h.cfg.MaxWantedLevel, h.cfg.PeaceValueMin, h.cfg.PeaceValueMax)
	}
	h.logger.Info("applied law preset", zap.String("preset", name))
	return nil
}

func (h *LawSystemHandler) applyConfig(cfg law.Config) {
	h.cfg = cfg
	h.guards.SetConfig(cfg)
	h.crime.SetAssaultCooldown(cfg.Timing.AssaultCooldown)
	posts := make([]npc.SpawnPost, 0, len(cfg.MerchantTemplates))
	for _, m := range cfg.MerchantTemplates {
		posts = append(posts, m.SpawnPost())
	}
	if h.merchants == nil {
		h.merchants = npc.NewRespawnManager(posts, h.src)
		return
	}
	h.merchants.Reconfigure(posts)
}

// GetOrCreatePlayerState returns the live ledger of uid, creating a clean
// one on first access.
//
// Postcondition: Never returns nil.
func (h *LawSystemHandler) GetOrCreatePlayerState(uid uuid.UUID) *law.PlayerLawState {
	s, ok := h.states[uid]
	if !ok {
		s = law.NewPlayerLawState(uid, h.cfg.PeaceValueMax)
		h.states[uid] = s
	}
	return s
}

// PlayerState returns a copy of uid's ledger.
func (h *LawSystemHandler) PlayerState(uid uuid.UUID) (*law.PlayerLawState, bool) {
	s, ok := h.states[uid]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// PlayerStates returns copies of every ledger ordered by player ID.
func (h *LawSystemHandler) PlayerStates() []*law.PlayerLawState {
	out := make([]*law.PlayerLawState, 0, len(h.states))
	for _, s := range h.states {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].PlayerID.String() < out[b].PlayerID.String() })
	return out
}

// PlayerStanding derives the explicit standing of uid at the current tick.
func (h *LawSystemHandler) PlayerStanding(uid uuid.UUID) law.Standing {
	s := h.GetOrCreatePlayerState(uid)
	start, hasGrace := h.resetGrace[uid]
	return s.Standing(hasGrace, start+h.cfg.Timing.ResetGraceTicks, h.clock.Now())
}

// IsWanted reports whether uid has a positive wanted level.
func (h *LawSystemHandler) IsWanted(uid uuid.UUID) bool {
	s, ok := h.states[uid]
	return ok && s.IsWanted()
}

// WantedPlayerCount returns the number of wanted ledgers.
func (h *LawSystemHandler) WantedPlayerCount() int {
	n := 0
	for _, s := range h.states {
		if s.IsWanted() {
			n++
		}
	}
	return n
}

// RegionAt resolves the region governing pos. With no regions configured
// the implicit world region applies.
func (h *LawSystemHandler) RegionAt(pos world.Pos) (law.RegionRule, bool) {
	if len(h.cfg.Regions) == 0 {
		return law.WorldRegion(), true
	}
	return h.cfg.ResolveRegion(pos)
}

// RecordCrime applies crime committed by player at pos. Crimes are dropped
// while the system is disabled, during the reset grace window, for immune
// players, outside every region and where the region does not track crime.
//
// Postcondition: Never panics; the ledger stays within configured bounds.
func (h *LawSystemHandler) RecordCrime(player uuid.UUID, crime law.CrimeType, pos world.Pos) {
	defer h.recoverFor(player, "record crime")
	if !h.cfg.SystemEnabled {
		return
	}
	now := h.clock.Now()
	if h.inResetGrace(player, now) {
		h.logger.Debug("crime ignored during reset grace", zap.Stringer("player", player))
		return
	}
	state := h.GetOrCreatePlayerState(player)
	if state.CrimeImmunity {
		return
	}
	region, ok := h.RegionAt(pos)
	if !ok || !region.CrimeEnabled(crime) {
		return
	}

	rule := h.cfg.CrimeRule
	repeats := state.CountRecent(crime, now, rule.RepeatWindowTicks)
	wanted := rule.CalculateWantedPenalty(crime, repeats)
	peace := rule.CalculatePeacePenalty(crime, repeats)
	if h.hook != nil {
		if p, ok := h.hook(CrimeEvent{
			Player:        player,
			Crime:         crime,
			RegionID:      region.ID,
			Pos:           pos,
			RepeatCount:   repeats,
			WantedLevel:   state.WantedLevel,
			WantedPenalty: wanted,
			PeacePenalty:  peace,
		}); ok {
			wanted, peace = max(0, p.Wanted), max(0, p.Peace)
		}
	}

	state.AddWanted(wanted, h.cfg.MaxWantedLevel)
	state.SubtractPeace(peace, h.cfg.PeaceValueMin)
	state.RecordCrime(law.CrimeRecord{Type: crime, Timestamp: now, Pos: pos, RegionID: region.ID})
	state.DecayCooldown = 0

	h.logger.Info("crime recorded",
		zap.Stringer("player", player),
		zap.String("crime", string(crime)),
		zap.String("region", region.ID),
		zap.Int("repeats", repeats),
		zap.Int("wanted", state.WantedLevel),
		zap.Int("peace", state.PeaceValue),
	)

	if p, ok := h.players.GetPlayer(player); ok {
		h.guards.OnCrimeCommitted(p, state, region)
	}
	h.SyncPlayer(player)
}

func (h *LawSystemHandler) inResetGrace(player uuid.UUID, now int64) bool {
	start, ok := h.resetGrace[player]
	if !ok {
		return false
	}
	if now-start > h.cfg.Timing.ResetGraceTicks {
		delete(h.resetGrace, player)
		return false
	}
	return true
}

// HandleServerTick is the per-tick entry point. Work runs every
// Timing.TickInterval ticks; alerts, refreshes, regen, sweeps, sync and saves
// run on their own multiples of the counter.
func (h *LawSystemHandler) HandleServerTick() {
	if !h.cfg.SystemEnabled {
		return
	}
	h.tickCounter++
	t := h.cfg.Timing
	if h.tickCounter%t.TickInterval != 0 {
		return
	}
	now := h.clock.Now()
	for uid := range h.resetGrace {
		h.inResetGrace(uid, now)
	}
	h.processPlayerStates(now)
	if h.due(t.StaleSweepInterval) {
		h.guards.CleanupStaleGuards(h.IsWanted)
	}
	h.tickMerchants(now)
	if h.due(t.SyncInterval) {
		h.SyncAllPlayers()
	}
	if h.due(t.SaveInterval) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		_ = h.SaveAll(ctx)
		cancel()
	}
}

// due reports whether the counter crossed a multiple of interval during the
// current tick batch.
func (h *LawSystemHandler) due(interval int64) bool {
	if interval <= 0 {
		return false
	}
	return h.tickCounter%interval < h.cfg.Timing.TickInterval
}

func (h *LawSystemHandler) processPlayerStates(now int64) {
	for _, p := range h.players.AllPlayers() {
		func() {
			defer h.recoverFor(p.UID, "tick")
			state := h.GetOrCreatePlayerState(p.UID)
			if state.CrimeImmunity {
				return
			}
			h.decay(state, now)
			if state.IsWanted() && h.due(h.cfg.Timing.AlertInterval) {
				h.alertNearbyNPCs(p.UID, p.LevelID, p.Pos, state.WantedLevel)
			}
			if state.IsWanted() && h.due(h.cfg.Timing.RefreshInterval) {
				if region, ok := h.RegionAt(p.Pos); ok {
					h.guards.RefreshGuardsForPlayer(p, state, region)
				}
			}
			if state.PeaceValue < h.cfg.PeaceValueMax &&
				now-state.LastCrimeTime > h.cfg.WantedDecayDelayTicks/2 &&
				h.due(h.cfg.PeaceRegenRate) {
				state.RegeneratePeace(1, h.cfg.PeaceValueMax)
			}
		}()
	}
}

// decay accumulates progress once the decay delay has passed and steps the
// wanted level down by one each time progress reaches the decay rate.
func (h *LawSystemHandler) decay(state *law.PlayerLawState, now int64) {
	if !state.IsWanted() || now-state.LastCrimeTime <= h.cfg.WantedDecayDelayTicks {
		return
	}
	progress := state.DecayCooldown + h.cfg.Timing.TickInterval
	if progress < h.cfg.WantedDecayRate {
		state.DecayCooldown = progress
		return
	}
	state.DecayWanted()
	state.DecayCooldown = 0
	h.logger.Debug("wanted level decayed",
		zap.Stringer("player", state.PlayerID),
		zap.Int("wanted", state.WantedLevel),
	)
	h.SyncPlayer(state.PlayerID)
}

func (h *LawSystemHandler) tickMerchants(now int64) {
	for _, inst := range h.merchants.Tick(now, h.npcs) {
		h.crime.AutoRegister(inst)
	}
}

// PopulateMerchants fills every merchant post and registers the new NPCs.
//
// Postcondition: Returns the number of merchants spawned.
func (h *LawSystemHandler) PopulateMerchants() int {
	spawned := h.merchants.Populate(h.clock.Now(), h.npcs)
	for _, inst := range spawned {
		h.crime.AutoRegister(inst)
	}
	return len(spawned)
}

// OnNPCSpawned registers a host-spawned NPC with the crime handler.
func (h *LawSystemHandler) OnNPCSpawned(inst *npc.Instance) law.Role {
	return h.crime.AutoRegister(inst)
}

// OnNPCRemoved forgets an NPC that left the world for any reason. Guard
// tracking and merchant posts are keyed by id, not by the role cache, which
// a kill has already cleared.
func (h *LawSystemHandler) OnNPCRemoved(id string) {
	h.guards.OnGuardRemoved(id)
	h.merchants.Schedule(id, h.clock.Now())
	h.crime.UnregisterNPC(id)
	delete(h.lawAttackNPCs, id)
}

// OnPlayerDeath resets the player when the config resets on death.
func (h *LawSystemHandler) OnPlayerDeath(uid uuid.UUID) {
	if h.cfg.ResetOnDeath {
		h.ResetPlayerState(uid)
	}
}

// OnPlayerJailed resets the player when the config resets on jail.
func (h *LawSystemHandler) OnPlayerJailed(uid uuid.UUID) {
	if h.cfg.ResetOnJail {
		h.ResetPlayerState(uid)
	}
}

// OnPlayerBribe resets the player when the config accepts bribes.
func (h *LawSystemHandler) OnPlayerBribe(uid uuid.UUID) {
	if h.cfg.ResetOnBribe {
		h.ResetPlayerState(uid)
	}
}

// ResetPlayerState clears the player's crimes, opens the reset grace window
// and clears aggression against the player.
//
// Postcondition: WantedLevel is 0, history is empty and peace is at max.
func (h *LawSystemHandler) ResetPlayerState(uid uuid.UUID) {
	state := h.GetOrCreatePlayerState(uid)
	state.ClearCrimes(h.cfg.PeaceValueMax)
	h.resetGrace[uid] = h.clock.Now()
	h.logger.Info("player law state reset", zap.Stringer("player", uid))
	h.clearAggression(uid)
	h.SyncPlayer(uid)
}

// SyncPlayer pushes uid's state if the player is online.
func (h *LawSystemHandler) SyncPlayer(uid uuid.UUID) {
	if h.sender == nil {
		return
	}
	if _, ok := h.players.GetPlayer(uid); !ok {
		return
	}
	state := h.GetOrCreatePlayerState(uid)
	payload := LawStatePayload{
		Player:      uid,
		WantedLevel: state.WantedLevel,
		PeaceValue:  state.PeaceValue,
		Immune:      state.CrimeImmunity,
	}
	if err := h.sender.SendLawState(payload); err != nil {
		h.logger.Warn("law state sync failed", zap.Stringer("player", uid), zap.Error(err))
	}
}

// SyncAllPlayers pushes state to every online player.
func (h *LawSystemHandler) SyncAllPlayers() {
	for _, p := range h.players.AllPlayers() {
		h.SyncPlayer(p.UID)
	}
}

func (h *LawSystemHandler) recoverFor(player uuid.UUID, op string) {
	if r := recover(); r != nil {
		h.logger.Error("law processing panicked",
			zap.String("op", op),
			zap.Stringer("player", player),
			zap.Any("panic", r),
		)
	}
}
