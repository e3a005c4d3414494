package gameserver

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/enforcer/internal/scripting"
)

// HookOnCrime is the Lua global called before a crime's penalties apply.
const HookOnCrime = "on_crime"

// NewScriptCrimeHook adapts the on_crime Lua hook into a CrimeHook. The hook
// receives an event table and may return a table with numeric wanted and
// peace fields; any other result keeps the computed penalties. Missing
// fields default to the computed value.
//
// Precondition: mgr must be non-nil.
func NewScriptCrimeHook(mgr *scripting.Manager) CrimeHook {
	return func(ev CrimeEvent) (CrimePenalty, bool) {
		if !mgr.HasHook(ev.RegionID, HookOnCrime) {
			return CrimePenalty{}, false
		}
		ret, err := mgr.CallHook(ev.RegionID, HookOnCrime, crimeEventTable(ev))
		if err != nil {
			return CrimePenalty{}, false
		}
		tbl, ok := ret.(*lua.LTable)
		if !ok {
			return CrimePenalty{}, false
		}
		return CrimePenalty{
			Wanted: numberField(tbl, "wanted", ev.WantedPenalty),
			Peace:  numberField(tbl, "peace", ev.PeacePenalty),
		}, true
	}
}

func crimeEventTable(ev CrimeEvent) *lua.LTable {
	t := &lua.LTable{Metatable: lua.LNil}
	t.RawSetString("player", lua.LString(ev.Player.String()))
	t.RawSetString("crime", lua.LString(ev.Crime))
	t.RawSetString("region", lua.LString(ev.RegionID))
	t.RawSetString("repeats", lua.LNumber(ev.RepeatCount))
	t.RawSetString("wanted_level", lua.LNumber(ev.WantedLevel))
	t.RawSetString("wanted", lua.LNumber(ev.WantedPenalty))
	t.RawSetString("peace", lua.LNumber(ev.PeacePenalty))
	pos := &lua.LTable{Metatable: lua.LNil}
	pos.RawSetString("x", lua.LNumber(ev.Pos.X))
	pos.RawSetString("y", lua.LNumber(ev.Pos.Y))
	pos.RawSetString("z", lua.LNumber(ev.Pos.Z))
	t.RawSetString("pos", pos)
	return t
}

func numberField(t *lua.LTable, key string, def int) int {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return def
}
