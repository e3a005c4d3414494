package law

import (
	"github.com/google/uuid"
)

// MaxCrimeHistory caps the number of records kept per player.
const MaxCrimeHistory = 50

// PlayerLawState is one player's ledger.
//
// Invariant: 0 <= WantedLevel <= max wanted; peace stays within the
// configured bounds; CrimeHistory is most-recent-first and at most
// MaxCrimeHistory long.
type PlayerLawState struct {
	PlayerID      uuid.UUID     `json:"player_id"`
	WantedLevel   int           `json:"wanted_level"`
	PeaceValue    int           `json:"peace_value"`
	CrimeHistory  []CrimeRecord `json:"crime_history"`
	LastCrimeTime int64         `json:"last_crime_time"`
	DecayCooldown int64         `json:"decay_cooldown"`
	CrimeImmunity bool          `json:"crime_immunity"`
}

// NewPlayerLawState creates a clean ledger with full peace.
func NewPlayerLawState(id uuid.UUID, peace int) *PlayerLawState {
	return &PlayerLawState{PlayerID: id, PeaceValue: peace}
}

// IsWanted is the only predicate hostility and guard logic gates on.
func (s *PlayerLawState) IsWanted() bool { return s.WantedLevel > 0 }

// AddWanted raises the wanted level by n, clamped to [0, maxWanted].
func (s *PlayerLawState) AddWanted(n, maxWanted int) {
	s.WantedLevel = clamp(s.WantedLevel+n, 0, maxWanted)
}

// SetWanted sets the wanted level clamped to [0, maxWanted].
func (s *PlayerLawState) SetWanted(level, maxWanted int) {
	s.WantedLevel = clamp(level, 0, maxWanted)
}

// DecayWanted lowers the wanted level by one step, never below zero.
func (s *PlayerLawState) DecayWanted() {
	if s.WantedLevel > 0 {
		s.WantedLevel--
	}
}

// SubtractPeace lowers peace by n, never below minPeace.
func (s *PlayerLawState) SubtractPeace(n, minPeace int) {
	s.PeaceValue = max(minPeace, s.PeaceValue-n)
}

// SetPeace sets peace clamped to [minPeace, maxPeace].
func (s *PlayerLawState) SetPeace(v, minPeace, maxPeace int) {
	s.PeaceValue = clamp(v, minPeace, maxPeace)
}

// RegeneratePeace raises peace by n, never above maxPeace.
func (s *PlayerLawState) RegeneratePeace(n, maxPeace int) {
	s.PeaceValue = min(maxPeace, s.PeaceValue+n)
}

// RecordCrime prepends rec and stamps LastCrimeTime.
//
// Postcondition: len(CrimeHistory) <= MaxCrimeHistory.
func (s *PlayerLawState) RecordCrime(rec CrimeRecord) {
	s.CrimeHistory = append([]CrimeRecord{rec}, s.CrimeHistory...)
	if len(s.CrimeHistory) > MaxCrimeHistory {
		s.CrimeHistory = s.CrimeHistory[:MaxCrimeHistory]
	}
	s.LastCrimeTime = rec.Timestamp
}

// CountRecent counts crimes of type c no older than window ticks.
func (s *PlayerLawState) CountRecent(c CrimeType, now, window int64) int {
	n := 0
	for _, r := range s.CrimeHistory {
		if r.Type == c && r.Age(now) <= window {
			n++
		}
	}
	return n
}

// ClearCrimes wipes history and wanted level and restores peace to
// peaceDefault. Immunity is preserved.
func (s *PlayerLawState) ClearCrimes(peaceDefault int) {
	s.CrimeHistory = nil
	s.WantedLevel = 0
	s.PeaceValue = peaceDefault
	s.LastCrimeTime = 0
	s.DecayCooldown = 0
}

// Clone returns a deep copy.
func (s *PlayerLawState) Clone() *PlayerLawState {
	out := *s
	out.CrimeHistory = append([]CrimeRecord(nil), s.CrimeHistory...)
	return &out
}

// Rebase shifts every tick in the ledger by delta.
func (s *PlayerLawState) Rebase(delta int64) {
	s.LastCrimeTime += delta
	for i := range s.CrimeHistory {
		s.CrimeHistory[i].Timestamp += delta
	}
}

// Normalize clamps a ledger loaded from storage into the configured bounds.
func (s *PlayerLawState) Normalize(maxWanted, minPeace, maxPeace int) {
	s.WantedLevel = clamp(s.WantedLevel, 0, maxWanted)
	s.PeaceValue = clamp(s.PeaceValue, minPeace, maxPeace)
	if len(s.CrimeHistory) > MaxCrimeHistory {
		s.CrimeHistory = s.CrimeHistory[:MaxCrimeHistory]
	}
	if s.DecayCooldown < 0 {
		s.DecayCooldown = 0
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(hi, v))
}
