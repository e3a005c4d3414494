package world

import (
	"fmt"
	"sort"
)

// Manager indexes loaded levels by ID. Levels are immutable after load.
type Manager struct {
	levels map[string]*Level
	order  []string
}

// NewManager creates a Manager from the given levels.
//
// Postcondition: Returns a Manager, or an error on duplicate level IDs.
func NewManager(levels []*Level) (*Manager, error) {
	m := &Manager{levels: make(map[string]*Level, len(levels))}
	for _, l := range levels {
		if _, exists := m.levels[l.ID]; exists {
			return nil, fmt.Errorf("duplicate level ID: %q", l.ID)
		}
		m.levels[l.ID] = l
		m.order = append(m.order, l.ID)
	}
	sort.Strings(m.order)
	return m, nil
}

// Level returns the level with the given ID.
func (m *Manager) Level(id string) (*Level, bool) {
	l, ok := m.levels[id]
	return l, ok
}

// AllLevels returns every level ordered by ID.
func (m *Manager) AllLevels() []*Level {
	out := make([]*Level, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.levels[id])
	}
	return out
}

// LevelCount returns the number of loaded levels.
func (m *Manager) LevelCount() int { return len(m.levels) }
