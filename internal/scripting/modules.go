package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the law.* Lua table into L:
//
//	law.wanted(uid)  current wanted level, 0 when unknown
//	law.peace(uid)   current peace value, 0 when unknown
//	law.roll(expr)   total of a dice expression such as "1d4+1"
//	law.log(msg)     info log line
//	law.warn(msg)    warn log line
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "wanted", L.NewFunction(m.luaQuery(func() func(string) int { return m.WantedLevel })))
	L.SetField(mod, "peace", L.NewFunction(m.luaQuery(func() func(string) int { return m.PeaceValue })))
	L.SetField(mod, "roll", L.NewFunction(m.luaRoll))
	L.SetField(mod, "log", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetGlobal("law", mod)
}

func (m *Manager) luaQuery(get func() func(string) int) lua.LGFunction {
	return func(L *lua.LState) int {
		uid := L.CheckString(1)
		fn := get()
		if fn == nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(fn(uid)))
		return 1
	}
}

func (m *Manager) luaRoll(L *lua.LState) int {
	expr := L.CheckString(1)
	res, err := m.roller.RollExpr(expr)
	if err != nil {
		L.RaiseError("law.roll: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}
