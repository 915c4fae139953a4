// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Set of event types sent by the persistence and mining layers.
const (
	TypeBlockAdded      = "blockAdded"
	TypeBlockchainSaved = "blockchainSaved"
	TypeHistoryAdded    = "historyAdded"
	TypeHistorySaved    = "historySaved"
	TypeBackupCreated   = "backupCreated"
	TypeImported        = "imported"
	TypeCleared         = "cleared"
	TypeMiningProgress  = "miningProgress"
	TypeMiningSession   = "miningSession"
)

// Event represents a notification sent to every registered receiver.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewEvent constructs an event stamped with the current time.
func NewEvent(typ string, data any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// =============================================================================

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]chan Event
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	// Since a message will be dropped if the websocket receiver is
	// not ready to receive, this arbitrary buffer should give the receiver
	// enough time to not lose a message. Websocket send could take long.
	const messageBuffer = 100

	evt.m[id] = make(chan Event, messageBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send signals an event to every registered channel. Send will not block
// waiting for a receiver on any given channel. A nil Events is a no-op so
// callers without receivers don't need to check.
func (evt *Events) Send(e Event) {
	if evt == nil {
		return
	}

	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of registered channels.
func (evt *Events) Subscribers() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}
