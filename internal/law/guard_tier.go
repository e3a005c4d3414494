package law

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
)

// GuardTier maps a wanted-level band to a squad composition.
type GuardTier struct {
	Tier            int     `yaml:"tier"`
	MinWantedLevel  int     `yaml:"min_wanted_level"`
	Health          int     `yaml:"health"`
	Speed           float64 `yaml:"speed"`
	AttackDamage    float64 `yaml:"attack_damage"`
	SquadSize       int     `yaml:"squad_size"`
	SpawnRadius     int     `yaml:"spawn_radius"`
	DespawnDistance int     `yaml:"despawn_distance"`
	DespawnTicks    int64   `yaml:"despawn_ticks"`
	TemplateName    string  `yaml:"template_name"`
}

// NewGuardTier returns tier with stats scaled by its rank.
//
// Postcondition: Health = 20+(tier-1)*10, AttackDamage = 4+(tier-1)*2,
// SquadSize = 2+(tier-1).
func NewGuardTier(tier, minWanted int) GuardTier {
	return GuardTier{
		Tier:            tier,
		MinWantedLevel:  minWanted,
		Health:          20 + (tier-1)*10,
		Speed:           0.35,
		AttackDamage:    4.0 + float64(tier-1)*2.0,
		SquadSize:       2 + (tier - 1),
		SpawnRadius:     30,
		DespawnDistance: 100,
		DespawnTicks:    6000,
	}
}

// DefaultGuardTiers returns five tiers, tier i engaging at wanted level i.
func DefaultGuardTiers() []GuardTier {
	tiers := make([]GuardTier, 0, 5)
	for i := 1; i <= 5; i++ {
		tiers = append(tiers, NewGuardTier(i, i))
	}
	return tiers
}

// UnmarshalYAML scales omitted stats from the tier number.
func (g *GuardTier) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Tier           int `yaml:"tier"`
		MinWantedLevel int `yaml:"min_wanted_level"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Tier < 1 {
		head.Tier = 1
	}
	if head.MinWantedLevel < 1 {
		head.MinWantedLevel = head.Tier
	}
	type plain GuardTier
	p := plain(NewGuardTier(head.Tier, head.MinWantedLevel))
	if err := node.Decode(&p); err != nil {
		return err
	}
	*g = GuardTier(p)
	return nil
}

// Validate checks the tier's invariants.
func (g GuardTier) Validate() error {
	if g.Tier < 1 {
		return fmt.Errorf("guard tier must be >= 1, got %d", g.Tier)
	}
	if g.MinWantedLevel < 1 {
		return fmt.Errorf("guard tier %d: min_wanted_level must be >= 1, got %d", g.Tier, g.MinWantedLevel)
	}
	if g.SquadSize < 1 {
		return fmt.Errorf("guard tier %d: squad_size must be >= 1, got %d", g.Tier, g.SquadSize)
	}
	if g.Health < 1 {
		return fmt.Errorf("guard tier %d: health must be >= 1, got %d", g.Tier, g.Health)
	}
	return nil
}

// SpawnTemplate returns TemplateName, or "guard_tier_<n>" when unset.
func (g GuardTier) SpawnTemplate() string {
	if g.TemplateName != "" {
		return g.TemplateName
	}
	return fmt.Sprintf("guard_tier_%d", g.Tier)
}

// TierForWanted returns the highest-ranked tier whose MinWantedLevel <= level.
//
// Postcondition: ok is false iff no tier qualifies.
func TierForWanted(tiers []GuardTier, level int) (GuardTier, bool) {
	var best GuardTier
	found := false
	for _, t := range tiers {
		if t.MinWantedLevel <= level && (!found || t.Tier > best.Tier) {
			best, found = t, true
		}
	}
	return best, found
}

// TierByRank returns the tier whose Tier equals rank.
func TierByRank(tiers []GuardTier, rank int) (GuardTier, bool) {
	for _, t := range tiers {
		if t.Tier == rank {
			return t, true
		}
	}
	return GuardTier{}, false
}

// Guard spawn band defaults.
const (
	DefaultSpawnMinRadius = 15
	DefaultSpawnMaxRadius = 30
	TemplateTownGuard     = "town_guard"
	TemplateEliteGuard    = "elite_town_guard"
)

// SpawnPlan selects template, placement band and squad size for a wanted level.
type SpawnPlan struct {
	MinWanted int    `yaml:"min_wanted"`
	Template  string `yaml:"template"`
	MinRadius int    `yaml:"min_radius"`
	MaxRadius int    `yaml:"max_radius"`
	// Count is an optional dice expression ("1d2+1", "5"). Empty means the
	// selected tier's SquadSize.
	Count string `yaml:"count,omitempty"`
}

// DefaultSpawnPlans sends town guards up to wanted level 4 and elite guards
// from level 5.
func DefaultSpawnPlans() []SpawnPlan {
	return []SpawnPlan{
		{MinWanted: 1, Template: TemplateTownGuard, MinRadius: DefaultSpawnMinRadius, MaxRadius: DefaultSpawnMaxRadius},
		{MinWanted: 5, Template: TemplateEliteGuard, MinRadius: DefaultSpawnMinRadius, MaxRadius: DefaultSpawnMaxRadius},
	}
}

// PlanForWanted returns the plan with the highest MinWanted <= level, or a
// template-less plan in the default band when none qualifies.
func PlanForWanted(plans []SpawnPlan, level int) SpawnPlan {
	best := SpawnPlan{MinRadius: DefaultSpawnMinRadius, MaxRadius: DefaultSpawnMaxRadius}
	bestMin := -1
	for _, p := range plans {
		if p.MinWanted <= level && p.MinWanted > bestMin {
			best, bestMin = p, p.MinWanted
		}
	}
	return best
}

// SquadSize resolves the number of guards this plan asks for against tier.
func (p SpawnPlan) SquadSize(tier GuardTier, src dice.Source) int {
	if p.Count == "" {
		return tier.SquadSize
	}
	expr, err := dice.Parse(p.Count)
	if err != nil {
		return tier.SquadSize
	}
	return max(0, dice.Roll(expr, src).Total())
}

// TemplateFor returns the template to spawn: the plan's, then the tier's,
// then "guard_tier_<n>".
func (p SpawnPlan) TemplateFor(tier GuardTier) string {
	if p.Template != "" {
		return p.Template
	}
	return tier.SpawnTemplate()
}

// Validate checks the plan's invariants.
func (p SpawnPlan) Validate() error {
	if p.MinRadius < 0 || p.MaxRadius < p.MinRadius {
		return fmt.Errorf("spawn plan %d: radius band [%d,%d] invalid", p.MinWanted, p.MinRadius, p.MaxRadius)
	}
	if p.Count != "" {
		if _, err := dice.Parse(p.Count); err != nil {
			return fmt.Errorf("spawn plan %d: count: %w", p.MinWanted, err)
		}
	}
	return nil
}
