// Package session tracks online players, their positions and the one-way
// channel used to push state to their clients.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Event is a single outbound message for a player's client.
type Event struct {
	// Kind names the payload schema, e.g. "law_state".
	Kind string
	// Payload is the encoded message body.
	Payload []byte
}

// BridgeEntity buffers outbound events for one player. A transport goroutine
// drains Events and forwards them to the client.
type BridgeEntity struct {
	uid    uuid.UUID
	events chan Event
	mu     sync.Mutex
	closed bool
}

// NewBridgeEntity creates a BridgeEntity for the given player.
//
// Postcondition: Returns a BridgeEntity with an open events channel.
func NewBridgeEntity(uid uuid.UUID, bufferSize int) *BridgeEntity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &BridgeEntity{
		uid:    uid,
		events: make(chan Event, bufferSize),
	}
}

// UID returns the player's identifier.
func (e *BridgeEntity) UID() uuid.UUID { return e.uid }

// Push enqueues an event without blocking.
//
// Postcondition: The event is buffered, or an error is returned when the
// entity is closed or its buffer is full.
func (e *BridgeEntity) Push(kind string, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("entity %s is closed", e.uid)
	}
	select {
	case e.events <- Event{Kind: kind, Payload: payload}:
		return nil
	default:
		return fmt.Errorf("entity %s event buffer full", e.uid)
	}
}

// Events returns the read-only events channel.
func (e *BridgeEntity) Events() <-chan Event {
	return e.events
}

// Close marks the entity as closed and closes the events channel.
//
// Postcondition: Further Push calls return an error. Close is idempotent.
func (e *BridgeEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// IsClosed reports whether the entity has been closed.
func (e *BridgeEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
