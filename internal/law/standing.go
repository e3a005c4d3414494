package law

import "fmt"

// StandingKind is the explicit per-player law state.
type StandingKind int

const (
	NotWanted StandingKind = iota
	Wanted
	Immune
	ResetGrace
)

func (k StandingKind) String() string {
	switch k {
	case NotWanted:
		return "NOT_WANTED"
	case Wanted:
		return "WANTED"
	case Immune:
		return "IMMUNE"
	case ResetGrace:
		return "RESET_GRACE"
	default:
		return fmt.Sprintf("StandingKind(%d)", int(k))
	}
}

// Standing is the tagged state derived from a ledger. Level is set for
// Wanted; Until is the last tick of a ResetGrace window.
type Standing struct {
	Kind  StandingKind
	Level int
	Until int64
}

func (s Standing) String() string {
	switch s.Kind {
	case Wanted:
		return fmt.Sprintf("WANTED(%d)", s.Level)
	case ResetGrace:
		return fmt.Sprintf("RESET_GRACE(%d)", s.Until)
	default:
		return s.Kind.String()
	}
}

// AcceptsCrimes reports whether new crimes change the ledger in this state.
func (s Standing) AcceptsCrimes() bool {
	return s.Kind == NotWanted || s.Kind == Wanted
}

// DeriveStanding resolves the standing with precedence
// IMMUNE > RESET_GRACE > WANTED > NOT_WANTED. graceUntil is ignored when
// hasGrace is false or now > graceUntil.
func DeriveStanding(wanted int, immune bool, hasGrace bool, graceUntil, now int64) Standing {
	switch {
	case immune:
		return Standing{Kind: Immune}
	case hasGrace && now <= graceUntil:
		return Standing{Kind: ResetGrace, Until: graceUntil}
	case wanted > 0:
		return Standing{Kind: Wanted, Level: wanted}
	default:
		return Standing{Kind: NotWanted}
	}
}

// Standing derives the ledger's standing; see DeriveStanding.
func (s *PlayerLawState) Standing(hasGrace bool, graceUntil, now int64) Standing {
	return DeriveStanding(s.WantedLevel, s.CrimeImmunity, hasGrace, graceUntil, now)
}

// StandingEvent drives transitions between standings.
type StandingEvent int

const (
	EventCrime StandingEvent = iota
	EventDecay
	EventImmunityOn
	EventImmunityOff
	EventReset
	EventGraceExpired
)

func (e StandingEvent) String() string {
	return [...]string{"crime", "decay", "immunity_on", "immunity_off", "reset", "grace_expired"}[e]
}

// transitions lists the target kind for each (state, event). A Wanted target
// collapses to NotWanted when the resulting level is zero. Missing entries
// leave the state unchanged.
var transitions = map[StandingKind]map[StandingEvent]StandingKind{
	NotWanted: {
		EventCrime:      Wanted,
		EventImmunityOn: Immune,
		EventReset:      ResetGrace,
	},
	Wanted: {
		EventCrime:      Wanted,
		EventDecay:      Wanted,
		EventImmunityOn: Immune,
		EventReset:      ResetGrace,
	},
	Immune: {
		EventImmunityOff: Wanted,
	},
	ResetGrace: {
		EventImmunityOn:   Immune,
		EventGraceExpired: NotWanted,
		EventReset:        ResetGrace,
	},
}

// Next returns the standing reached from s on ev. level is the wanted level
// after the event is applied and until the grace deadline for EventReset.
//
// Postcondition: ok is false when ev has no effect in s.
func (s Standing) Next(ev StandingEvent, level int, until int64) (Standing, bool) {
	target, ok := transitions[s.Kind][ev]
	if !ok {
		return s, false
	}
	switch target {
	case Wanted:
		if level <= 0 {
			return Standing{Kind: NotWanted}, true
		}
		return Standing{Kind: Wanted, Level: level}, true
	case ResetGrace:
		return Standing{Kind: ResetGrace, Until: until}, true
	default:
		return Standing{Kind: target}, true
	}
}
