// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for running mining sessions.
type Worker interface {
	Shutdown()
	SignalStartMining(data string, difficulty uint) (Session, error)
	SignalCancelMining() bool
	Session() Session
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain.
type Config struct {
	Manager   *persist.Manager
	Genesis   genesis.Genesis
	BatchSize uint64
	EvHandler EventHandler
	Events    *events.Events
}

// State manages the blockchain database.
type State struct {
	evHandler EventHandler
	genesis   genesis.Genesis
	batchSize uint64
	events    *events.Events
	mu        sync.Mutex

	manager *persist.Manager

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {
	if cfg.Manager == nil {
		return nil, errors.New("persistence manager required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Run maintenance on the stored data before anything reads it.
	if err := cfg.Manager.Initialize(); err != nil {
		return nil, err
	}

	// Check the chain on disk so problems are known at startup. Invalid
	// blocks are reported, they don't prevent the node from starting.
	blocks, err := cfg.Manager.Blocks.LoadAll()
	if err != nil {
		return nil, err
	}

	report := database.VerifyChain(blocks, database.EventHandler(ev))
	ev("state: New: loaded blocks[%d] valid[%v]", report.TotalBlocks, report.IsValid)

	// Create the State to provide support for managing the blockchain.
	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		batchSize: cfg.BatchSize,
		events:    cfg.Events,
		manager:   cfg.Manager,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database is properly closed.
	defer func() {
		s.manager.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// cancelMining stops any active mining session before a change is made
// that replaces the stored chain.
func (s *State) cancelMining() {
	if s.Worker == nil {
		return
	}

	if s.Worker.SignalCancelMining() {
		s.evHandler("state: cancelMining: active mining session cancelled")
	}
}
