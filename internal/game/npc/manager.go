package npc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// ErrTemplateNotFound is returned when spawning from an unregistered template.
var ErrTemplateNotFound = errors.New("npc template not found")

// Manager tracks all live NPC instances by ID and by level, plus the
// templates they can be spawned from. All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	templates map[string]*Template
	instances map[string]*Instance       // instanceID → Instance
	levelSets map[string]map[string]bool // levelID → set of instanceIDs
	counter   atomic.Uint64
}

// NewManager creates an NPC Manager that knows the given templates.
func NewManager(templates ...*Template) *Manager {
	m := &Manager{
		templates: make(map[string]*Template, len(templates)),
		instances: make(map[string]*Instance),
		levelSets: make(map[string]map[string]bool),
	}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

// RegisterTemplate adds or replaces a template.
//
// Precondition: tmpl must be non-nil and valid.
func (m *Manager) RegisterTemplate(tmpl *Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tmpl.ID] = tmpl
}

// Template returns the template with the given ID.
func (m *Manager) Template(id string) (*Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	return t, ok
}

// Spawn creates a new Instance from tmpl and places it at pos in levelID.
//
// Precondition: tmpl must be non-nil; levelID must be non-empty.
// Postcondition: Returns a new Instance with a unique ID registered in levelID.
func (m *Manager) Spawn(tmpl *Template, levelID string, pos world.Pos) (*Instance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("npc.Manager.Spawn: tmpl must not be nil")
	}
	if levelID == "" {
		return nil, fmt.Errorf("npc.Manager.Spawn: levelID must not be empty")
	}

	n := m.counter.Add(1)
	id := fmt.Sprintf("%s-%s-%d", tmpl.ID, levelID, n)
	inst := NewInstance(id, tmpl, levelID, pos)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.instances[id] = inst
	if m.levelSets[levelID] == nil {
		m.levelSets[levelID] = make(map[string]bool)
	}
	m.levelSets[levelID][id] = true

	return inst, nil
}

// SpawnFromTemplate looks up templateID and spawns it at pos in levelID.
//
// Postcondition: Returns ErrTemplateNotFound (wrapped) when templateID is unknown.
func (m *Manager) SpawnFromTemplate(templateID, levelID string, pos world.Pos) (*Instance, error) {
	tmpl, ok := m.Template(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, templateID)
	}
	return m.Spawn(tmpl, levelID, pos)
}

// Discard removes an instance from the world and marks it removed.
//
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("npc instance %q not found", id)
	}
	inst.removed = true

	if ls, ok := m.levelSets[inst.LevelID]; ok {
		delete(ls, id)
		if len(ls) == 0 {
			delete(m.levelSets, inst.LevelID)
		}
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given ID.
//
// Postcondition: Returns (inst, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// InLevel returns a snapshot of all live instances in levelID ordered by ID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) InLevel(levelID string) []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.levelSets[levelID]
	out := make([]*Instance, 0, len(ids))
	for id := range ids {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst)
		}
	}
	sortByID(out)
	return out
}

// All returns a snapshot of every instance ordered by ID.
func (m *Manager) All() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	sortByID(out)
	return out
}

// Count returns the number of tracked instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// Move relocates an instance within its level.
//
// Precondition: id must identify an existing instance.
func (m *Manager) Move(id string, pos world.Pos) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("npc.Manager.Move: instance %q not found", id)
	}
	inst.Pos = pos
	return nil
}

func sortByID(list []*Instance) {
	sort.Slice(list, func(a, b int) bool { return list[a].ID < list[b].ID })
}
