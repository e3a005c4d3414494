package law

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// RegionMode selects how a region decides whether it contains a position.
type RegionMode string

const (
	// RegionWorld covers every position.
	RegionWorld RegionMode = "WORLD"
	// RegionRadius covers positions within Radius blocks of Center.
	RegionRadius RegionMode = "RADIUS"
	// RegionNamed is resolved by an external area registry; it never matches
	// on its own.
	RegionNamed RegionMode = "NAMED"
)

// WorldRegionID identifies the implicit region used when none are configured.
const WorldRegionID = "world"

// RegionRule is a geofenced or world-wide policy that enables crime types
// and bounds the guard population.
type RegionRule struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Enabled        bool        `yaml:"enabled"`
	Mode           RegionMode  `yaml:"mode"`
	Center         world.Pos   `yaml:"center"`
	Radius         int         `yaml:"radius"`
	EnabledCrimes  []CrimeType `yaml:"enabled_crimes"`
	ResponseRadius int         `yaml:"response_radius"`
	GuardSpawnCap  int         `yaml:"guard_spawn_cap"`
	CooldownTicks  int64       `yaml:"cooldown_ticks"`
}

// NewRegionRule returns an enabled radius region with every crime enabled.
func NewRegionRule(name string, center world.Pos, radius int) RegionRule {
	return RegionRule{
		ID:             uuid.NewString(),
		Name:           name,
		Enabled:        true,
		Mode:           RegionRadius,
		Center:         center,
		Radius:         radius,
		EnabledCrimes:  AllCrimeTypes(),
		ResponseRadius: 50,
		GuardSpawnCap:  5,
		CooldownTicks:  6000,
	}
}

// WorldRegion returns the implicit world-wide region.
func WorldRegion() RegionRule {
	r := NewRegionRule("World", world.Pos{}, 0)
	r.ID = WorldRegionID
	r.Mode = RegionWorld
	return r
}

// UnmarshalYAML fills omitted fields from NewRegionRule defaults.
func (r *RegionRule) UnmarshalYAML(node *yaml.Node) error {
	type plain RegionRule
	p := plain(NewRegionRule("New Region", world.Pos{}, 100))
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = RegionRule(p)
	return nil
}

// Contains reports whether pos falls inside an enabled region.
func (r RegionRule) Contains(pos world.Pos) bool {
	if !r.Enabled {
		return false
	}
	switch r.Mode {
	case RegionWorld:
		return true
	case RegionRadius:
		rad := int64(r.Radius)
		return r.Center.DistSq(pos) <= rad*rad
	default:
		return false
	}
}

// CrimeEnabled reports whether c is tracked in this region.
func (r RegionRule) CrimeEnabled(c CrimeType) bool {
	for _, e := range r.EnabledCrimes {
		if e == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r RegionRule) Clone() RegionRule {
	r.EnabledCrimes = append([]CrimeType(nil), r.EnabledCrimes...)
	return r
}

// Validate checks the region's invariants.
func (r RegionRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("region %q: id must not be empty", r.Name)
	}
	switch r.Mode {
	case RegionWorld, RegionRadius, RegionNamed:
	default:
		return fmt.Errorf("region %q: unknown mode %q", r.ID, r.Mode)
	}
	if r.Mode == RegionRadius && r.Radius < 1 {
		return fmt.Errorf("region %q: radius must be >= 1, got %d", r.ID, r.Radius)
	}
	for _, c := range r.EnabledCrimes {
		if !c.Valid() {
			return fmt.Errorf("region %q: unknown crime type %q", r.ID, c)
		}
	}
	if r.GuardSpawnCap < 0 {
		return fmt.Errorf("region %q: guard_spawn_cap must be >= 0, got %d", r.ID, r.GuardSpawnCap)
	}
	if r.CooldownTicks < 0 {
		return fmt.Errorf("region %q: cooldown_ticks must be >= 0, got %d", r.ID, r.CooldownTicks)
	}
	return nil
}

// ResolveRegion returns the first enabled region, in list order, that
// contains pos. With no regions configured the implicit world region applies.
//
// Postcondition: ok is false iff regions exist and none contain pos.
func ResolveRegion(regions []RegionRule, pos world.Pos) (RegionRule, bool) {
	if len(regions) == 0 {
		return WorldRegion(), true
	}
	for _, r := range regions {
		if r.Enabled && r.Contains(pos) {
			return r, true
		}
	}
	return RegionRule{}, false
}
