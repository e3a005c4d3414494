package gameserver

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/law"
)

// alertBaseRadius and alertRadiusPerLevel size the alert sphere around a
// wanted player.
const (
	alertBaseRadius     = 20
	alertRadiusPerLevel = 10
)

// AlertRadius returns the alert radius for a wanted level.
func AlertRadius(wanted int) int { return alertBaseRadius + alertRadiusPerLevel*wanted }

// alertNearbyNPCs points every governed NPC in range at the player and gives
// it an attack objective if it has none. Hostile factions and guards owned by
// someone else are skipped.
//
// Postcondition: Returns the number of NPCs alerted.
func (h *LawSystemHandler) alertNearbyNPCs(player uuid.UUID, levelID string, pos world.Pos, wanted int) int {
	r := int64(AlertRadius(wanted))
	alerted := 0
	for _, inst := range h.npcs.InLevel(levelID) {
		if !inst.IsAlive() || !h.crime.IsGoverned(inst.ID) {
			continue
		}
		if law.IgnoresAlerts(inst.Faction) {
			continue
		}
		if owner, ok := h.guards.OwnerOf(inst.ID); ok && owner != player {
			continue
		}
		if inst.Pos.DistSq(pos) > r*r {
			continue
		}
		inst.SetTarget(player)
		if ensureAttackObjective(inst) {
			h.lawAttackNPCs[inst.ID] = true
		}
		alerted++
	}
	return alerted
}

// clearAggression despawns the player's guards and calms NPCs targeting the
// player. Targets are only cleared on default-faction NPCs; attack objectives
// added by alerts are always withdrawn.
func (h *LawSystemHandler) clearAggression(player uuid.UUID) {
	h.guards.DespawnGuardsForPlayerAllLevels(player)
	for _, inst := range h.npcs.All() {
		if inst.Target != player {
			continue
		}
		if h.lawAttackNPCs[inst.ID] {
			inst.RemoveObjective(npc.ObjectiveMeleeAttack)
			delete(h.lawAttackNPCs, inst.ID)
		}
		if inst.IsDefaultFaction() {
			inst.ClearTarget()
			inst.RemoveObjective(npc.ObjectiveAttackPlayer)
		}
	}
}
