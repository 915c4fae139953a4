// Package worker implements mining sessions for the blockchain. Only one
// session can be searching at any time.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// miningRequest carries a session from the signal to the G that mines it.
type miningRequest struct {
	ctx        context.Context
	id         string
	data       string
	difficulty uint
}

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	shut        chan struct{}
	startMining chan miningRequest
	evHandler   state.EventHandler
	events      *events.Events

	mu      sync.Mutex
	session state.Session
	cancel  context.CancelFunc
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evts *events.Events, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	w := Worker{
		state:       st,
		shut:        make(chan struct{}),
		startMining: make(chan miningRequest, 1),
		evHandler:   evHandler,
		events:      evts,
		session:     state.Session{Status: state.SessionIdle},
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()

	// A request that was queued but never picked up ends here.
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Active() {
		w.finish(state.SessionCancelled, "shutdown")
	}
}

// SignalStartMining starts a mining session for the data. ErrMiningActive
// is returned if a session is already searching.
func (w *Worker) SignalStartMining(data string, difficulty uint) (state.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isShutdown() {
		return state.Session{}, context.Canceled
	}

	if w.session.Active() {
		return w.session, state.ErrMiningActive
	}

	ctx, cancel := context.WithCancel(context.Background())

	req := miningRequest{
		ctx:        ctx,
		id:         uuid.NewString(),
		data:       data,
		difficulty: difficulty,
	}

	w.cancel = cancel
	w.session = state.Session{
		ID:         req.id,
		Status:     state.SessionSearching,
		Data:       data,
		Difficulty: difficulty,
		Workers:    w.state.RetrieveWorkers(),
		StartedAt:  time.Now().UTC(),
	}

	// The channel is empty since no session is active. The default case
	// only protects against blocking while holding the lock.
	select {
	case w.startMining <- req:
	default:
		cancel()
		w.finish(state.SessionFailed, "mining queue full")
		return w.session, state.ErrMiningActive
	}

	w.evHandler("worker: SignalStartMining: mining signaled: session[%s] difficulty[%d]", req.id, difficulty)
	w.sendSession()

	return w.session, nil
}

// SignalCancelMining cancels the searching session. It reports whether
// there was a session to cancel.
func (w *Worker) SignalCancelMining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.session.Active() || w.cancel == nil {
		return false
	}

	w.cancel()
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled: session[%s]", w.session.ID)

	return true
}

// Session returns a copy of the current or last session.
func (w *Worker) Session() state.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.session
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// finish moves the session to its final state. The caller must hold
// the lock.
func (w *Worker) finish(status string, errMsg string) {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}

	w.session.Status = status
	w.session.Error = errMsg
	w.session.EndedAt = time.Now().UTC()

	w.sendSession()
}

// sendSession publishes a copy of the session. The caller must hold
// the lock.
func (w *Worker) sendSession() {
	w.events.Send(events.NewEvent(events.TypeMiningSession, w.session))
}
