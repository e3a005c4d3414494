package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// PlayerSession is a snapshot of an online player.
type PlayerSession struct {
	// UID is the player's stable identifier.
	UID uuid.UUID
	// Name is the display name, used for logging and admin commands.
	Name string
	// LevelID is the level the player currently occupies.
	LevelID string
	// Pos is the player's block position.
	Pos world.Pos
	// Dead is true between death and respawn.
	Dead bool
	// Entity is the bridge entity for pushing events to the player.
	Entity *BridgeEntity
}

// Alive reports whether the player can currently act.
func (p PlayerSession) Alive() bool { return !p.Dead }

// Manager tracks all online players. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*PlayerSession
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{players: make(map[uuid.UUID]*PlayerSession)}
}

// AddPlayer registers a new online player.
//
// Precondition: uid must not be uuid.Nil; name and levelID must be non-empty.
// Postcondition: Returns a snapshot of the session, or an error if uid is already online.
func (m *Manager) AddPlayer(uid uuid.UUID, name, levelID string, pos world.Pos) (PlayerSession, error) {
	if uid == uuid.Nil {
		return PlayerSession{}, fmt.Errorf("player uid must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[uid]; exists {
		return PlayerSession{}, fmt.Errorf("player %s already connected", uid)
	}
	sess := &PlayerSession{
		UID:     uid,
		Name:    name,
		LevelID: levelID,
		Pos:     pos,
		Entity:  NewBridgeEntity(uid, 64),
	}
	m.players[uid] = sess
	return *sess, nil
}

// RemovePlayer disconnects a player and closes their bridge entity.
//
// Postcondition: Returns an error if the player is not online.
func (m *Manager) RemovePlayer(uid uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.players[uid]
	if !ok {
		return fmt.Errorf("player %s not found", uid)
	}
	_ = sess.Entity.Close()
	delete(m.players, uid)
	return nil
}

// MovePlayer updates a player's level and position.
func (m *Manager) MovePlayer(uid uuid.UUID, levelID string, pos world.Pos) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.players[uid]
	if !ok {
		return fmt.Errorf("player %s not found", uid)
	}
	sess.LevelID = levelID
	sess.Pos = pos
	return nil
}

// SetDead flags a player as dead or respawned.
func (m *Manager) SetDead(uid uuid.UUID, dead bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.players[uid]
	if !ok {
		return fmt.Errorf("player %s not found", uid)
	}
	sess.Dead = dead
	return nil
}

// GetPlayer returns a snapshot of the online player uid.
func (m *Manager) GetPlayer(uid uuid.UUID) (PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	if !ok {
		return PlayerSession{}, false
	}
	return *sess, true
}

// GetPlayerByName returns the first online player whose name matches exactly.
func (m *Manager) GetPlayerByName(name string) (PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sess := range m.players {
		if sess.Name == name {
			return *sess, true
		}
	}
	return PlayerSession{}, false
}

// AllPlayers returns snapshots of every online player ordered by name, then UID.
func (m *Manager) AllPlayers() []PlayerSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PlayerSession, 0, len(m.players))
	for _, sess := range m.players {
		out = append(out, *sess)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].UID.String() < out[b].UID.String()
	})
	return out
}

// PlayerCount returns the number of online players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
