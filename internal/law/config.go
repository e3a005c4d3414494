package law

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPreset is returned by ApplyPreset for unrecognised names.
var ErrUnknownPreset = errors.New("unknown preset")

// Timing holds the tick intervals and cooldowns of the law handlers.
type Timing struct {
	// TickInterval is how often per-player processing runs.
	TickInterval int64 `yaml:"tick_interval"`
	// AlertInterval is how often wanted players alert nearby NPCs.
	AlertInterval int64 `yaml:"alert_interval"`
	// RefreshInterval is how often guard squads are refreshed.
	RefreshInterval int64 `yaml:"refresh_interval"`
	// SyncInterval is how often state is pushed to every player.
	SyncInterval int64 `yaml:"sync_interval"`
	// SaveInterval is how often config and ledgers are persisted.
	SaveInterval int64 `yaml:"save_interval"`
	// ResetGraceTicks is the window after a reset during which crimes are ignored.
	ResetGraceTicks int64 `yaml:"reset_grace_ticks"`
	// SpawnCooldown separates guard spawn batches for one player.
	SpawnCooldown int64 `yaml:"spawn_cooldown"`
	// GuardRefreshCooldown rate-limits guard refreshes for one player.
	GuardRefreshCooldown int64 `yaml:"guard_refresh_cooldown"`
	// StaleSweepInterval is how often orphaned guards are swept.
	StaleSweepInterval int64 `yaml:"stale_sweep_interval"`
	// AssaultCooldown suppresses repeat assault records for one attacker/victim pair.
	AssaultCooldown int64 `yaml:"assault_cooldown"`
	// GuardDespawnDistance is how far a guard may stray from its target.
	GuardDespawnDistance int `yaml:"guard_despawn_distance"`
	// SpawnAttempts is the placement retry budget per guard.
	SpawnAttempts int `yaml:"spawn_attempts"`
}

// DefaultTiming returns the stock intervals, at 20 ticks per second.
func DefaultTiming() Timing {
	return Timing{
		TickInterval:         20,
		AlertInterval:        40,
		RefreshInterval:      200,
		SyncInterval:         100,
		SaveInterval:         6000,
		ResetGraceTicks:      100,
		SpawnCooldown:        600,
		GuardRefreshCooldown: 200,
		StaleSweepInterval:   40,
		AssaultCooldown:      100,
		GuardDespawnDistance: 80,
		SpawnAttempts:        12,
	}
}

func (t Timing) validate() error {
	var errs []string
	for name, v := range map[string]int64{
		"tick_interval":        t.TickInterval,
		"alert_interval":       t.AlertInterval,
		"refresh_interval":     t.RefreshInterval,
		"sync_interval":        t.SyncInterval,
		"save_interval":        t.SaveInterval,
		"stale_sweep_interval": t.StaleSweepInterval,
	} {
		if v < 1 {
			errs = append(errs, fmt.Sprintf("timing.%s must be >= 1, got %d", name, v))
		}
	}
	if t.ResetGraceTicks < 0 || t.SpawnCooldown < 0 || t.GuardRefreshCooldown < 0 || t.AssaultCooldown < 0 {
		errs = append(errs, "timing cooldowns must be >= 0")
	}
	if t.GuardDespawnDistance < 1 {
		errs = append(errs, fmt.Sprintf("timing.guard_despawn_distance must be >= 1, got %d", t.GuardDespawnDistance))
	}
	if t.SpawnAttempts < 1 {
		errs = append(errs, fmt.Sprintf("timing.spawn_attempts must be >= 1, got %d", t.SpawnAttempts))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Config is the law policy: the opaque blob persisted alongside a profile name.
type Config struct {
	ProfileName           string             `yaml:"profile_name"`
	SystemEnabled         bool               `yaml:"system_enabled"`
	MaxWantedLevel        int                `yaml:"max_wanted_level"`
	PeaceValueMin         int                `yaml:"peace_value_min"`
	PeaceValueMax         int                `yaml:"peace_value_max"`
	PeaceRegenRate        int64              `yaml:"peace_regen_rate"`
	WantedDecayRate       int64              `yaml:"wanted_decay_rate"`
	WantedDecayDelayTicks int64              `yaml:"wanted_decay_delay_ticks"`
	ResetOnDeath          bool               `yaml:"reset_on_death"`
	ResetOnJail           bool               `yaml:"reset_on_jail"`
	ResetOnBribe          bool               `yaml:"reset_on_bribe"`
	Regions               []RegionRule       `yaml:"regions"`
	CrimeRule             CrimeRule          `yaml:"crime_rule"`
	GuardTiers            []GuardTier        `yaml:"guard_tiers"`
	SpawnPlans            []SpawnPlan        `yaml:"spawn_plans"`
	MerchantTemplates     []MerchantTemplate `yaml:"merchant_templates"`
	Timing                Timing             `yaml:"timing"`
}

// DefaultConfig returns the stock policy: enabled, world-wide, five guard tiers.
func DefaultConfig() Config {
	return Config{
		ProfileName:           "Default",
		SystemEnabled:         true,
		MaxWantedLevel:        5,
		PeaceValueMin:         0,
		PeaceValueMax:         100,
		PeaceRegenRate:        1200,
		WantedDecayRate:       6000,
		WantedDecayDelayTicks: 12000,
		ResetOnDeath:          true,
		ResetOnJail:           true,
		ResetOnBribe:          true,
		CrimeRule:             DefaultCrimeRule(),
		GuardTiers:            DefaultGuardTiers(),
		SpawnPlans:            DefaultSpawnPlans(),
		Timing:                DefaultTiming(),
	}
}

// Presets lists the names ApplyPreset accepts.
var Presets = []string{"default", "hardcore", "casual", "rp"}

// ApplyPreset retunes wanted and peace pacing and records name as the profile.
//
// Postcondition: Returns ErrUnknownPreset and leaves c unchanged for
// unrecognised names.
func (c *Config) ApplyPreset(name string) error {
	d := DefaultConfig()
	switch strings.ToLower(name) {
	case "default":
		c.MaxWantedLevel = d.MaxWantedLevel
		c.PeaceRegenRate = d.PeaceRegenRate
		c.WantedDecayRate = d.WantedDecayRate
		c.ResetOnDeath = d.ResetOnDeath
		c.CrimeRule.RepeatOffenseMultiplier = DefaultRepeatMultiplier
	case "hardcore":
		c.MaxWantedLevel = 10
		c.PeaceRegenRate = 3600
		c.WantedDecayRate = 18000
		c.ResetOnDeath = false
		c.CrimeRule.RepeatOffenseMultiplier = 2.0
	case "casual":
		c.MaxWantedLevel = 3
		c.PeaceRegenRate = 600
		c.WantedDecayRate = 2400
		c.ResetOnDeath = true
		c.CrimeRule.RepeatOffenseMultiplier = 1.2
	case "rp":
		c.MaxWantedLevel = 5
		c.PeaceRegenRate = 1200
		c.WantedDecayRate = 6000
		c.ResetOnDeath = true
		c.ResetOnJail = true
	default:
		return fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}
	c.ProfileName = name
	return nil
}

// Validate checks all policy invariants, collecting every violation.
func (c Config) Validate() error {
	var errs []string
	if c.MaxWantedLevel < 1 {
		errs = append(errs, fmt.Sprintf("max_wanted_level must be >= 1, got %d", c.MaxWantedLevel))
	}
	if c.PeaceValueMin < 0 {
		errs = append(errs, fmt.Sprintf("peace_value_min must be >= 0, got %d", c.PeaceValueMin))
	}
	if c.PeaceValueMax < c.PeaceValueMin {
		errs = append(errs, fmt.Sprintf("peace_value_max %d must be >= peace_value_min %d", c.PeaceValueMax, c.PeaceValueMin))
	}
	if c.PeaceRegenRate < 1 {
		errs = append(errs, fmt.Sprintf("peace_regen_rate must be >= 1, got %d", c.PeaceRegenRate))
	}
	if c.WantedDecayRate < 1 {
		errs = append(errs, fmt.Sprintf("wanted_decay_rate must be >= 1, got %d", c.WantedDecayRate))
	}
	if c.WantedDecayDelayTicks < 0 {
		errs = append(errs, fmt.Sprintf("wanted_decay_delay_ticks must be >= 0, got %d", c.WantedDecayDelayTicks))
	}
	seen := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if err := r.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Sprintf("region %q: duplicate id", r.ID))
		}
		seen[r.ID] = true
	}
	if err := c.CrimeRule.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	for _, t := range c.GuardTiers {
		if err := t.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, p := range c.SpawnPlans {
		if err := p.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, m := range c.MerchantTemplates {
		if err := m.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := c.Timing.validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("law config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Regions = make([]RegionRule, len(c.Regions))
	for i, r := range c.Regions {
		out.Regions[i] = r.Clone()
	}
	out.CrimeRule = c.CrimeRule.Clone()
	out.GuardTiers = append([]GuardTier(nil), c.GuardTiers...)
	out.SpawnPlans = append([]SpawnPlan(nil), c.SpawnPlans...)
	out.MerchantTemplates = append([]MerchantTemplate(nil), c.MerchantTemplates...)
	return out
}

// TierForWanted returns the guard tier for a wanted level.
func (c Config) TierForWanted(level int) (GuardTier, bool) {
	return TierForWanted(c.GuardTiers, level)
}

// PlanForWanted returns the spawn plan for a wanted level.
func (c Config) PlanForWanted(level int) SpawnPlan {
	return PlanForWanted(c.SpawnPlans, level)
}

// ResolveRegion returns the region governing pos; see ResolveRegion.
func (c Config) ResolveRegion(pos Pos) (RegionRule, bool) {
	return ResolveRegion(c.Regions, pos)
}

// EncodeConfig serialises c as YAML.
func EncodeConfig(c Config) ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding law config: %w", err)
	}
	return data, nil
}

// DecodeConfig parses YAML over DefaultConfig and validates the result.
//
// Postcondition: Returns a valid Config or a non-nil error.
func DecodeConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding law config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
