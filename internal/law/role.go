package law

import "strings"

// Role classifies a governed NPC for crime mapping.
type Role int

const (
	RoleCivilian Role = iota
	RoleMerchant
	RoleGuard
)

func (r Role) String() string {
	switch r {
	case RoleMerchant:
		return "MERCHANT"
	case RoleGuard:
		return "GUARD"
	default:
		return "CIVILIAN"
	}
}

// Crime returns the crime recorded when an NPC of this role is killed.
func (r Role) Crime() CrimeType {
	switch r {
	case RoleMerchant:
		return CrimeMerchantKill
	case RoleGuard:
		return CrimeGuardKill
	default:
		return CrimeAssault
	}
}

// TradingNone marks an NPC without trading capability.
const TradingNone = "none"

// Capabilities is the slice of an NPC's data role inference looks at.
type Capabilities struct {
	Trading    string
	Faction    string
	Profession string
}

// CanTrade reports whether Trading names an active trading type.
func (c Capabilities) CanTrade() bool {
	t := strings.TrimSpace(c.Trading)
	return t != "" && !strings.EqualFold(t, TradingNone)
}

// RoleRule is one step of role inference.
type RoleRule struct {
	Name  string
	Match func(Capabilities) (Role, bool)
}

func keywordRole(s string) (Role, bool) {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "merchant"), strings.Contains(s, "trader"):
		return RoleMerchant, true
	case strings.Contains(s, "guard"), strings.Contains(s, "soldier"):
		return RoleGuard, true
	}
	return RoleCivilian, false
}

// RoleRules is the ordered rule list DetermineRole applies; the first match wins.
var RoleRules = []RoleRule{
	{Name: "trading", Match: func(c Capabilities) (Role, bool) {
		return RoleMerchant, c.CanTrade()
	}},
	{Name: "faction", Match: func(c Capabilities) (Role, bool) {
		return keywordRole(c.Faction)
	}},
	{Name: "profession", Match: func(c Capabilities) (Role, bool) {
		return keywordRole(c.Profession)
	}},
}

// DetermineRole infers a role from capabilities, defaulting to RoleCivilian.
func DetermineRole(c Capabilities) Role {
	for _, rule := range RoleRules {
		if role, ok := rule.Match(c); ok {
			return role
		}
	}
	return RoleCivilian
}

var (
	protectedExclusions = []string{"bandit", "hostile", "enemy", "raider", "pirate"}
	alertExclusions     = []string{"bandit", "hostile", "enemy"}
)

// IsHostileFaction reports whether killing a member of faction is not a crime.
func IsHostileFaction(faction string) bool {
	return containsAny(faction, protectedExclusions)
}

// IgnoresAlerts reports whether members of faction stay out of law alerts.
func IgnoresAlerts(faction string) bool {
	return containsAny(faction, alertExclusions)
}

// IsDefaultFaction reports whether faction is empty or "default".
func IsDefaultFaction(faction string) bool {
	return faction == "" || strings.EqualFold(faction, "default")
}

func containsAny(s string, subs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
