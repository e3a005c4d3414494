// Package law holds the data model and policy of the law enforcement
// subsystem: crime types, penalty rules, regions, guard tiers, per-player
// ledgers and the configuration that ties them together.
package law

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// CrimeType is the closed set of offenses the law system tracks.
type CrimeType string

const (
	CrimeMerchantKill CrimeType = "MERCHANT_KILL"
	CrimeGuardKill    CrimeType = "GUARD_KILL"
	CrimeAssault      CrimeType = "ASSAULT"
	CrimeTheft        CrimeType = "THEFT"
	CrimeTrespassing  CrimeType = "TRESPASSING"
)

var crimeTypes = []CrimeType{
	CrimeMerchantKill,
	CrimeGuardKill,
	CrimeTheft,
	CrimeAssault,
	CrimeTrespassing,
}

// defaultPenalties maps each crime to its default (wanted, peace) penalty.
var defaultPenalties = map[CrimeType][2]int{
	CrimeMerchantKill: {2, 15},
	CrimeGuardKill:    {3, 25},
	CrimeTheft:        {1, 5},
	CrimeAssault:      {1, 10},
	CrimeTrespassing:  {1, 3},
}

// AllCrimeTypes returns every CrimeType in declaration order.
func AllCrimeTypes() []CrimeType {
	return append([]CrimeType(nil), crimeTypes...)
}

// Valid reports whether c is a member of the closed set.
func (c CrimeType) Valid() bool {
	_, ok := defaultPenalties[c]
	return ok
}

// ID returns the lowercase identifier, e.g. "merchant_kill".
func (c CrimeType) ID() string { return strings.ToLower(string(c)) }

// DefaultWantedPenalty returns the base wanted penalty for c.
func (c CrimeType) DefaultWantedPenalty() int { return defaultPenalties[c][0] }

// DefaultPeacePenalty returns the base peace penalty for c.
func (c CrimeType) DefaultPeacePenalty() int { return defaultPenalties[c][1] }

// ParseCrimeType accepts either the enum name ("GUARD_KILL") or the
// lowercase identifier ("guard_kill").
func ParseCrimeType(s string) (CrimeType, error) {
	c := CrimeType(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown crime type %q", s)
	}
	return c, nil
}

// CrimeRecord is one entry in a player's crime history.
type CrimeRecord struct {
	Type      CrimeType `json:"type" yaml:"type"`
	Timestamp int64     `json:"timestamp" yaml:"timestamp"`
	Pos       world.Pos `json:"pos" yaml:"pos"`
	RegionID  string    `json:"region_id" yaml:"region_id"`
}

// Age returns how many ticks ago the crime happened.
func (r CrimeRecord) Age(now int64) int64 { return now - r.Timestamp }

func (r CrimeRecord) String() string {
	return fmt.Sprintf("%s@%d %s", r.Type, r.Timestamp, r.Pos)
}

// Pos is the block position type crimes are located by.
type Pos = world.Pos
