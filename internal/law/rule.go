package law

import (
	"fmt"
	"math"
)

// DefaultRepeatMultiplier and DefaultRepeatWindowTicks shape the default
// penalty curve.
const (
	DefaultRepeatMultiplier  = 1.5
	DefaultRepeatWindowTicks = 12000
)

// CrimeRule is the penalty curve. Repeated crimes of the same type within
// RepeatWindowTicks scale the base penalty by RepeatOffenseMultiplier^n.
type CrimeRule struct {
	WantedPenalties         map[CrimeType]int `yaml:"wanted_penalties"`
	PeacePenalties          map[CrimeType]int `yaml:"peace_penalties"`
	RepeatOffenseMultiplier float64           `yaml:"repeat_offense_multiplier"`
	RepeatWindowTicks       int64             `yaml:"repeat_window_ticks"`
}

// DefaultCrimeRule returns the rule populated from each CrimeType's defaults.
func DefaultCrimeRule() CrimeRule {
	r := CrimeRule{
		WantedPenalties:         make(map[CrimeType]int, len(crimeTypes)),
		PeacePenalties:          make(map[CrimeType]int, len(crimeTypes)),
		RepeatOffenseMultiplier: DefaultRepeatMultiplier,
		RepeatWindowTicks:       DefaultRepeatWindowTicks,
	}
	for _, c := range crimeTypes {
		r.WantedPenalties[c] = c.DefaultWantedPenalty()
		r.PeacePenalties[c] = c.DefaultPeacePenalty()
	}
	return r
}

// WantedPenalty returns the configured base wanted penalty, falling back to
// the type default. Never negative.
func (r CrimeRule) WantedPenalty(c CrimeType) int {
	if v, ok := r.WantedPenalties[c]; ok {
		return max(0, v)
	}
	return c.DefaultWantedPenalty()
}

// PeacePenalty returns the configured base peace penalty, falling back to
// the type default. Never negative.
func (r CrimeRule) PeacePenalty(c CrimeType) int {
	if v, ok := r.PeacePenalties[c]; ok {
		return max(0, v)
	}
	return c.DefaultPeacePenalty()
}

// Multiplier returns the effective repeat multiplier, at least 1.0.
func (r CrimeRule) Multiplier() float64 {
	return math.Max(1.0, r.RepeatOffenseMultiplier)
}

// CalculateWantedPenalty returns floor(base * multiplier^repeatCount).
//
// Postcondition: the result is non-decreasing in repeatCount.
func (r CrimeRule) CalculateWantedPenalty(c CrimeType, repeatCount int) int {
	return r.scale(r.WantedPenalty(c), repeatCount)
}

// CalculatePeacePenalty returns floor(base * multiplier^repeatCount).
func (r CrimeRule) CalculatePeacePenalty(c CrimeType, repeatCount int) int {
	return r.scale(r.PeacePenalty(c), repeatCount)
}

func (r CrimeRule) scale(base, repeatCount int) int {
	if repeatCount <= 0 {
		return base
	}
	v := math.Floor(float64(base) * math.Pow(r.Multiplier(), float64(repeatCount)))
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// Clone returns a deep copy.
func (r CrimeRule) Clone() CrimeRule {
	out := r
	out.WantedPenalties = make(map[CrimeType]int, len(r.WantedPenalties))
	for k, v := range r.WantedPenalties {
		out.WantedPenalties[k] = v
	}
	out.PeacePenalties = make(map[CrimeType]int, len(r.PeacePenalties))
	for k, v := range r.PeacePenalties {
		out.PeacePenalties[k] = v
	}
	return out
}

// Validate reports unknown crime types and out-of-range coefficients.
func (r CrimeRule) Validate() error {
	for c, v := range r.WantedPenalties {
		if !c.Valid() {
			return fmt.Errorf("crime_rule.wanted_penalties: unknown crime type %q", c)
		}
		if v < 0 {
			return fmt.Errorf("crime_rule.wanted_penalties[%s] must be >= 0, got %d", c, v)
		}
	}
	for c, v := range r.PeacePenalties {
		if !c.Valid() {
			return fmt.Errorf("crime_rule.peace_penalties: unknown crime type %q", c)
		}
		if v < 0 {
			return fmt.Errorf("crime_rule.peace_penalties[%s] must be >= 0, got %d", c, v)
		}
	}
	if r.RepeatOffenseMultiplier < 1.0 {
		return fmt.Errorf("crime_rule.repeat_offense_multiplier must be >= 1.0, got %v", r.RepeatOffenseMultiplier)
	}
	if r.RepeatWindowTicks < 0 {
		return fmt.Errorf("crime_rule.repeat_window_ticks must be >= 0, got %d", r.RepeatWindowTicks)
	}
	return nil
}
