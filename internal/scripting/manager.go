package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
)

// GlobalScope is the reserved key for scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no region VM is found.
const GlobalScope = "__global__"

// Manager owns one sandboxed LState per region plus a global one and
// exposes hook dispatch.
//
// Each LState is single-threaded; calls are serialized by callMu.
type Manager struct {
	mu     sync.RWMutex
	callMu sync.Mutex
	states map[string]*lua.LState
	limits map[string]int
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil = the law.* query returns 0.
	WantedLevel func(uid string) int
	PeaceValue  func(uid string) int
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		states: make(map[string]*lua.LState),
		limits: make(map[string]int),
		roller: roller,
		logger: logger.Named("scripting"),
	}
}

// LoadRegion creates a sandboxed VM for regionID, registers the law module,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: regionID must be non-empty; scriptDir must be a readable directory.
// Postcondition: The region VM replaces any previous one; returns error on
// Lua load failure.
func (m *Manager) LoadRegion(regionID, scriptDir string, instLimit int) error {
	return m.loadInto(regionID, scriptDir, instLimit)
}

// LoadGlobal creates the global VM used by every region without its own.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(GlobalScope, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	limit := effectiveLimit(instLimit)
	L := NewSandboxedState(limit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		ctx, cancel := newCountingContext(limit)
		L.SetContext(ctx)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		old.Close()
	}
	m.states[key] = L
	m.limits[key] = limit
	m.mu.Unlock()
	m.logger.Info("scripts loaded", zap.String("scope", key), zap.Int("files", len(luaFiles)))
	return nil
}

func (m *Manager) stateFor(scope string) (*lua.LState, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if L, ok := m.states[scope]; ok {
		return L, m.limits[scope]
	}
	return m.states[GlobalScope], m.limits[GlobalScope]
}

// HasHook reports whether hook is defined for scope or globally.
func (m *Manager) HasHook(scope, hook string) bool {
	L, _ := m.stateFor(scope)
	if L == nil {
		return false
	}
	m.callMu.Lock()
	defer m.callMu.Unlock()
	return L.GetGlobal(hook) != lua.LNil
}

// CallHook calls the named Lua global function in scope's VM, falling back
// to the global VM. Returns (LNil, nil) if the hook is not defined or no VM
// exists. Every call gets a fresh instruction budget. Lua runtime errors are
// logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	L, limit := m.stateFor(scope)
	if L == nil {
		m.logger.Info("no VM for scope", zap.String("scope", scope), zap.String("hook", hook))
		return lua.LNil, nil
	}

	m.callMu.Lock()
	defer m.callMu.Unlock()

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	ctx, cancel := newCountingContext(limit)
	defer cancel()
	L.SetContext(ctx)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		L.Close()
		delete(m.states, key)
	}
}
