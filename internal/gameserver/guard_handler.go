package gameserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/law"
)

// ErrNoSpawnPosition is returned when no standable cell was found within the
// placement attempt budget.
var ErrNoSpawnPosition = errors.New("no valid spawn position")

// Guard ownership tags. They are a serialization contract: the tags survive
// a reload of the NPC layer while the in-memory tables do not.
const (
	TagLawGuard    = "law_guard"
	TagOwnerPrefix = "law_owner:"
)

// pursuitSpawnCap overrides the region cap for admin pursuit squads.
const pursuitSpawnCap = 100

// patrolRadius is the maximum offset of patrol guards from their post.
const patrolRadius = 10

// OwnerTag returns the ownership tag for player.
func OwnerTag(player uuid.UUID) string { return TagOwnerPrefix + player.String() }

// ParseOwnerTag returns the owner encoded in tags, if any.
func ParseOwnerTag(tags []string) (uuid.UUID, bool) {
	for _, t := range tags {
		rest, ok := strings.CutPrefix(t, TagOwnerPrefix)
		if !ok {
			continue
		}
		id, err := uuid.Parse(rest)
		if err != nil {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}

// GuardResponseHandler spawns, tracks, refreshes and despawns the guard
// squads attributed to wanted players.
//
// Invariant: len(guards[p]) never exceeds the spawn cap of the region the
// squad was spawned for.
//
// All methods must be called from the tick loop.
type GuardResponseHandler struct {
	npcs    *npc.Manager
	worlds  *world.Manager
	players PlayerDirectory
	crime   *CrimeHandler
	clock   Clock
	src     dice.Source
	logger  *zap.Logger
	cfg     law.Config

	guards       map[uuid.UUID]map[string]bool
	guardOwner   map[string]uuid.UUID
	guardRegion  map[string]string
	regionCounts map[string]int
	lastSpawn    map[uuid.UUID]int64
	lastRefresh  map[uuid.UUID]int64
}

// NewGuardResponseHandler creates a handler using the default law config.
//
// Precondition: every argument must be non-nil.
func NewGuardResponseHandler(
	npcs *npc.Manager,
	worlds *world.Manager,
	players PlayerDirectory,
	crime *CrimeHandler,
	clock Clock,
	src dice.Source,
	logger *zap.Logger,
) *GuardResponseHandler {
	return &GuardResponseHandler{
		npcs:         npcs,
		worlds:       worlds,
		players:      players,
		crime:        crime,
		clock:        clock,
		src:          src,
		logger:       logger.Named("guards"),
		cfg:          law.DefaultConfig(),
		guards:       make(map[uuid.UUID]map[string]bool),
		guardOwner:   make(map[string]uuid.UUID),
		guardRegion:  make(map[string]string),
		regionCounts: make(map[string]int),
		lastSpawn:    make(map[uuid.UUID]int64),
		lastRefresh:  make(map[uuid.UUID]int64),
	}
}

// SetConfig replaces the policy the handler reads tiers, plans and timings from.
func (h *GuardResponseHandler) SetConfig(cfg law.Config) { h.cfg = cfg }

// OnCrimeCommitted spawns a squad for a wanted player when the spawn cooldown
// has elapsed and the region has capacity left.
//
// Precondition: state belongs to p.
// Postcondition: Returns the number of guards spawned; the player's tracked
// count does not exceed region.GuardSpawnCap.
func (h *GuardResponseHandler) OnCrimeCommitted(p session.PlayerSession, state *law.PlayerLawState, region law.RegionRule) int {
	if !h.cfg.SystemEnabled || !state.IsWanted() {
		return 0
	}
	now := h.clock.Now()
	if last, ok := h.lastSpawn[p.UID]; ok && now-last < h.cfg.Timing.SpawnCooldown {
		h.logger.Debug("guard spawn on cooldown", zap.Stringer("player", p.UID))
		return 0
	}
	current := len(h.guards[p.UID])
	if current >= region.GuardSpawnCap {
		h.logger.Debug("guard cap reached",
			zap.Stringer("player", p.UID),
			zap.String("region", region.ID),
			zap.Int("cap", region.GuardSpawnCap),
		)
		return 0
	}
	tier, ok := h.cfg.TierForWanted(state.WantedLevel)
	if !ok {
		h.logger.Warn("no guard tier for wanted level", zap.Int("wanted", state.WantedLevel))
		return 0
	}
	plan := h.cfg.PlanForWanted(state.WantedLevel)
	count := min(plan.SquadSize(tier, h.src), region.GuardSpawnCap-current)
	spawned := h.spawnSquad(p, region, tier, plan, count)
	h.lastSpawn[p.UID] = now
	h.logger.Info("guard squad dispatched",
		zap.Stringer("player", p.UID),
		zap.Int("wanted", state.WantedLevel),
		zap.Int("tier", tier.Tier),
		zap.Int("requested", count),
		zap.Int("spawned", spawned),
	)
	return spawned
}

// RefreshGuardsForPlayer drops tracked guards that are gone, dead, in another
// level or beyond the despawn distance. When none remain the player gets a
// fresh squad immediately.
//
// Postcondition: Returns the number of guards spawned by the refresh.
func (h *GuardResponseHandler) RefreshGuardsForPlayer(p session.PlayerSession, state *law.PlayerLawState, region law.RegionRule) int {
	if !p.Alive() || !h.cfg.SystemEnabled || !state.IsWanted() {
		return 0
	}
	now := h.clock.Now()
	if last, ok := h.lastRefresh[p.UID]; ok && now-last < h.cfg.Timing.GuardRefreshCooldown {
		return 0
	}
	h.lastRefresh[p.UID] = now

	removed := h.despawnTooFar(p)
	if removed > 0 {
		h.logger.Debug("dropped stray guards", zap.Stringer("player", p.UID), zap.Int("removed", removed))
	}
	if len(h.guards[p.UID]) > 0 {
		return 0
	}
	tier, ok := h.cfg.TierForWanted(state.WantedLevel)
	if !ok {
		h.logger.Warn("no guard tier for wanted level", zap.Int("wanted", state.WantedLevel))
		return 0
	}
	plan := h.cfg.PlanForWanted(state.WantedLevel)
	count := min(plan.SquadSize(tier, h.src), region.GuardSpawnCap)
	spawned := h.spawnSquad(p, region, tier, plan, count)
	h.lastSpawn[p.UID] = now
	return spawned
}

func (h *GuardResponseHandler) despawnTooFar(p session.PlayerSession) int {
	limit := int64(h.cfg.Timing.GuardDespawnDistance)
	removed := 0
	for _, id := range h.GuardsForPlayer(p.UID) {
		inst, ok := h.npcs.Get(id)
		if ok && inst.IsAlive() && inst.LevelID == p.LevelID && inst.Pos.DistSq(p.Pos) <= limit*limit {
			continue
		}
		if ok && !inst.IsRemoved() {
			_ = h.npcs.Discard(id)
		}
		h.OnGuardRemoved(id)
		removed++
	}
	return removed
}

// CleanupStaleGuards discards owned guards whose owner is offline or no
// longer wanted. Ownership falls back to the entity tag so guards survive a
// loss of the tracking tables.
//
// Postcondition: Returns the number of guards discarded.
func (h *GuardResponseHandler) CleanupStaleGuards(isWanted func(uuid.UUID) bool) int {
	removed := 0
	for _, inst := range h.npcs.All() {
		if !inst.IsAlive() || !inst.HasTag(TagLawGuard) {
			continue
		}
		owner, ok := h.guardOwner[inst.ID]
		if !ok {
			owner, ok = ParseOwnerTag(inst.Tags())
		}
		if !ok {
			continue
		}
		p, online := h.players.GetPlayer(owner)
		if online && p.Alive() && isWanted(owner) {
			continue
		}
		_ = h.npcs.Discard(inst.ID)
		h.OnGuardRemoved(inst.ID)
		removed++
	}
	if removed > 0 {
		h.logger.Debug("swept stale guards", zap.Int("removed", removed))
	}
	return removed
}

// DespawnGuardsForPlayer discards the player's guards in levelID, sweeps the
// level by ownership tag and clears all tracking and cooldowns for player.
func (h *GuardResponseHandler) DespawnGuardsForPlayer(levelID string, player uuid.UUID) int {
	return h.despawnOwned(player, func(inst *npc.Instance) bool { return inst.LevelID == levelID })
}

// DespawnGuardsForPlayerAllLevels is DespawnGuardsForPlayer over every level.
func (h *GuardResponseHandler) DespawnGuardsForPlayerAllLevels(player uuid.UUID) int {
	return h.despawnOwned(player, func(*npc.Instance) bool { return true })
}

func (h *GuardResponseHandler) despawnOwned(player uuid.UUID, inScope func(*npc.Instance) bool) int {
	removed := 0
	for _, id := range h.GuardsForPlayer(player) {
		if inst, ok := h.npcs.Get(id); ok && inScope(inst) {
			if err := h.npcs.Discard(id); err == nil {
				removed++
			}
		}
		h.OnGuardRemoved(id)
	}
	tag := OwnerTag(player)
	for _, inst := range h.npcs.All() {
		if inst.HasTag(tag) && inScope(inst) {
			if err := h.npcs.Discard(inst.ID); err == nil {
				removed++
			}
			h.OnGuardRemoved(inst.ID)
		}
	}
	delete(h.guards, player)
	delete(h.lastSpawn, player)
	delete(h.lastRefresh, player)
	if removed > 0 {
		h.logger.Info("despawned player guards", zap.Stringer("player", player), zap.Int("removed", removed))
	}
	return removed
}

// DespawnAllGuards discards every law guard, tracked or not.
//
// Postcondition: All tracking tables are empty.
func (h *GuardResponseHandler) DespawnAllGuards() int {
	removed := 0
	for _, inst := range h.npcs.All() {
		if !inst.HasTag(TagLawGuard) {
			continue
		}
		if err := h.npcs.Discard(inst.ID); err == nil {
			removed++
		}
		h.crime.UnregisterNPC(inst.ID)
	}
	h.Clear()
	h.logger.Info("despawned all guards", zap.Int("removed", removed))
	return removed
}

// SpawnPatrolAt places an untracked squad of the tier ranked tierRank around
// pos. Unknown ranks fall back to the first configured tier.
func (h *GuardResponseHandler) SpawnPatrolAt(levelID string, pos world.Pos, tierRank int) (int, error) {
	level, ok := h.worlds.Level(levelID)
	if !ok {
		return 0, fmt.Errorf("level %q not found", levelID)
	}
	tier, ok := law.TierByRank(h.cfg.GuardTiers, tierRank)
	if !ok {
		if len(h.cfg.GuardTiers) == 0 {
			return 0, fmt.Errorf("no guard tiers configured")
		}
		tier = h.cfg.GuardTiers[0]
	}
	tmpl, ok := h.resolveTemplate(h.cfg.PlanForWanted(tier.MinWantedLevel), tier)
	if !ok {
		return 0, fmt.Errorf("%w: tier %d", npc.ErrTemplateNotFound, tier.Tier)
	}
	spawned := 0
	for range tier.SquadSize {
		at, err := h.findSpawnPosition(level, pos, 0, patrolRadius)
		if err != nil {
			continue
		}
		if _, err := h.spawnGuard(level.ID, tmpl, at, tier, uuid.Nil); err != nil {
			h.logger.Warn("patrol guard spawn failed", zap.Error(err))
			continue
		}
		spawned++
	}
	h.logger.Info("patrol spawned",
		zap.String("level", levelID),
		zap.Stringer("pos", pos),
		zap.Int("tier", tier.Tier),
		zap.Int("spawned", spawned),
	)
	return spawned, nil
}

// SpawnPursuitSquad dispatches a tracked squad of the given tier against p,
// bypassing cooldowns and using an elevated cap. The tier's template takes
// precedence over the spawn plan's.
func (h *GuardResponseHandler) SpawnPursuitSquad(p session.PlayerSession, tierRank int) (int, error) {
	tier, ok := law.TierByRank(h.cfg.GuardTiers, tierRank)
	if !ok {
		tier, ok = h.cfg.TierForWanted(tierRank)
	}
	if !ok {
		return 0, fmt.Errorf("no guard tier for rank %d", tierRank)
	}
	region := law.WorldRegion()
	region.ID = "pursuit"
	region.GuardSpawnCap = pursuitSpawnCap
	plan := h.cfg.PlanForWanted(tier.MinWantedLevel)
	plan.MinRadius, plan.MaxRadius = tier.SpawnRadius, tier.SpawnRadius
	// A pursuit squad wears its tier's template when one is installed.
	if id := tier.SpawnTemplate(); id != plan.Template {
		if _, ok := h.npcs.Template(id); ok {
			plan.Template = id
		}
	}
	count := min(tier.SquadSize, pursuitSpawnCap-len(h.guards[p.UID]))
	spawned := h.spawnSquad(p, region, tier, plan, count)
	h.lastSpawn[p.UID] = h.clock.Now()
	return spawned, nil
}

// OnGuardRemoved drops id from every tracking table and the role cache.
// Unknown IDs are ignored.
func (h *GuardResponseHandler) OnGuardRemoved(id string) {
	if owner, ok := h.guardOwner[id]; ok {
		if set := h.guards[owner]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(h.guards, owner)
			}
		}
		delete(h.guardOwner, id)
	}
	if region, ok := h.guardRegion[id]; ok {
		if h.regionCounts[region] > 1 {
			h.regionCounts[region]--
		} else {
			delete(h.regionCounts, region)
		}
		delete(h.guardRegion, id)
	}
	h.crime.UnregisterNPC(id)
}

// GuardsForPlayer returns the tracked guard IDs of player in lexical order.
func (h *GuardResponseHandler) GuardsForPlayer(player uuid.UUID) []string {
	set := h.guards[player]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OwnerOf returns the tracked owner of a guard.
func (h *GuardResponseHandler) OwnerOf(id string) (uuid.UUID, bool) {
	owner, ok := h.guardOwner[id]
	return owner, ok
}

// GuardCountForPlayer returns the number of guards tracked for player.
func (h *GuardResponseHandler) GuardCountForPlayer(player uuid.UUID) int { return len(h.guards[player]) }

// TotalGuardCount returns the number of tracked guards across all players.
func (h *GuardResponseHandler) TotalGuardCount() int { return len(h.guardOwner) }

// RegionGuardCount returns the aggregate guard count attributed to regionID.
func (h *GuardResponseHandler) RegionGuardCount(regionID string) int { return h.regionCounts[regionID] }

// Clear empties every tracking table without touching entities.
func (h *GuardResponseHandler) Clear() {
	clear(h.guards)
	clear(h.guardOwner)
	clear(h.guardRegion)
	clear(h.regionCounts)
	clear(h.lastSpawn)
	clear(h.lastRefresh)
}

func (h *GuardResponseHandler) spawnSquad(p session.PlayerSession, region law.RegionRule, tier law.GuardTier, plan law.SpawnPlan, count int) int {
	if count <= 0 {
		return 0
	}
	level, ok := h.worlds.Level(p.LevelID)
	if !ok {
		h.logger.Warn("player level not loaded", zap.Stringer("player", p.UID), zap.String("level", p.LevelID))
		return 0
	}
	tmpl, ok := h.resolveTemplate(plan, tier)
	if !ok {
		h.logger.Warn("no guard template available",
			zap.String("plan_template", plan.Template),
			zap.Int("tier", tier.Tier),
		)
		return 0
	}
	spawned := 0
	for range count {
		pos, err := h.findSpawnPosition(level, p.Pos, plan.MinRadius, plan.MaxRadius)
		if err != nil {
			h.logger.Debug("guard placement failed", zap.Stringer("player", p.UID), zap.Error(err))
			continue
		}
		inst, err := h.spawnGuard(level.ID, tmpl, pos, tier, p.UID)
		if err != nil {
			h.logger.Warn("guard spawn failed", zap.String("template", tmpl), zap.Error(err))
			continue
		}
		h.track(p.UID, inst.ID, region.ID)
		spawned++
	}
	return spawned
}

// findSpawnPosition samples offsets in the square of half-width maxR around
// center, rejecting the origin and anything inside minR, and accepts the
// first surface cell an entity can stand on.
func (h *GuardResponseHandler) findSpawnPosition(level *world.Level, center world.Pos, minR, maxR int) (world.Pos, error) {
	for range h.cfg.Timing.SpawnAttempts {
		dx := h.src.Intn(2*maxR+1) - maxR
		dz := h.src.Intn(2*maxR+1) - maxR
		if dx == 0 && dz == 0 {
			continue
		}
		if minR > 0 && dx*dx+dz*dz < minR*minR {
			continue
		}
		at := level.Surface(center.X+dx, center.Z+dz)
		if level.CanStandAt(at) {
			return at, nil
		}
	}
	return world.Pos{}, ErrNoSpawnPosition
}

func (h *GuardResponseHandler) resolveTemplate(plan law.SpawnPlan, tier law.GuardTier) (string, bool) {
	for _, id := range []string{plan.Template, tier.TemplateName, fmt.Sprintf("guard_tier_%d", tier.Tier)} {
		if id == "" {
			continue
		}
		if _, ok := h.npcs.Template(id); ok {
			return id, true
		}
	}
	return "", false
}

func (h *GuardResponseHandler) spawnGuard(levelID, tmpl string, pos world.Pos, tier law.GuardTier, owner uuid.UUID) (*npc.Instance, error) {
	inst, err := h.npcs.SpawnFromTemplate(tmpl, levelID, pos)
	if err != nil {
		return nil, err
	}
	inst.MaxHP = tier.Health
	inst.CurrentHP = tier.Health
	inst.AttackDamage = int(tier.AttackDamage)
	inst.AddTag(TagLawGuard)
	h.crime.RegisterNPCRole(inst.ID, law.RoleGuard)
	if owner == uuid.Nil {
		return inst, nil
	}
	inst.AddTag(OwnerTag(owner))
	if p, ok := h.players.GetPlayer(owner); ok && p.Alive() {
		inst.SetTarget(owner)
		ensureAttackObjective(inst)
	}
	return inst, nil
}

func (h *GuardResponseHandler) track(player uuid.UUID, id, regionID string) {
	set := h.guards[player]
	if set == nil {
		set = make(map[string]bool)
		h.guards[player] = set
	}
	set[id] = true
	h.guardOwner[id] = player
	h.guardRegion[id] = regionID
	h.regionCounts[regionID]++
}

// ensureAttackObjective adds a melee objective unless inst already holds an
// equivalent attack goal.
//
// Postcondition: Returns true if an objective was added.
func ensureAttackObjective(inst *npc.Instance) bool {
	if inst.HasAnyObjective(npc.AttackObjectives) {
		return false
	}
	inst.AddObjective(npc.ObjectiveMeleeAttack, 1)
	return true
}
