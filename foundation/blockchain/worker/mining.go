package worker

import (
	"errors"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation(req)
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation searches for the block holding the session's data and
// writes it to the database.
func (w *Worker) runMiningOperation(req miningRequest) {
	w.evHandler("worker: runMiningOperation: MINING: started: session[%s]", req.id)
	defer w.evHandler("worker: runMiningOperation: MINING: completed: session[%s]", req.id)

	progress := func(p database.Progress) {
		w.mu.Lock()
		defer w.mu.Unlock()

		if w.session.ID != req.id {
			return
		}

		w.session.Progress = p
		w.events.Send(events.NewEvent(events.TypeMiningProgress, p))
	}

	block, record, err := w.state.MineNewBlock(req.ctx, req.data, req.difficulty, progress)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.ID != req.id {
		return
	}

	if err != nil {
		switch {
		case req.ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
			w.finish(state.SessionCancelled, "")
		case errors.Is(err, state.ErrChainChanged):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
			w.finish(state.SessionFailed, err.Error())
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			w.finish(state.SessionFailed, err.Error())
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: found block[%d] hash[%s]", block.Index, block.Hash)

	w.session.Block = &block
	w.session.Record = &record
	w.finish(state.SessionFound, "")
}
