package npc

// Objective is an AI goal an NPC may pursue.
type Objective string

const (
	ObjectiveMeleeAttack    Objective = "melee_attack"
	ObjectiveCustomAttack   Objective = "custom_attack"
	ObjectiveBowAttack      Objective = "bow_attack"
	ObjectiveCrossbowAttack Objective = "crossbow_attack"
	ObjectiveGunAttack      Objective = "gun_attack"
	ObjectiveZombieAttack   Objective = "zombie_attack"
	ObjectiveAttackPlayer   Objective = "attack_player"
	ObjectiveFollowPlayer   Objective = "follow_player"
	ObjectiveFlee           Objective = "flee"
	ObjectiveWander         Objective = "wander"
)

// AttackObjectives are interchangeable attack goals; an NPC holding any one
// of them already knows how to fight.
var AttackObjectives = []Objective{
	ObjectiveMeleeAttack,
	ObjectiveCustomAttack,
	ObjectiveBowAttack,
	ObjectiveCrossbowAttack,
	ObjectiveGunAttack,
	ObjectiveZombieAttack,
	ObjectiveAttackPlayer,
}

var knownObjectives = map[Objective]bool{
	ObjectiveMeleeAttack:    true,
	ObjectiveCustomAttack:   true,
	ObjectiveBowAttack:      true,
	ObjectiveCrossbowAttack: true,
	ObjectiveGunAttack:      true,
	ObjectiveZombieAttack:   true,
	ObjectiveAttackPlayer:   true,
	ObjectiveFollowPlayer:   true,
	ObjectiveFlee:           true,
	ObjectiveWander:         true,
}

// Known reports whether o is a recognised objective.
func (o Objective) Known() bool { return knownObjectives[o] }
