package worker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/blockvault/foundation/blockchain/worker"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// unsolvable is a difficulty no hash can meet, so the search only ends
// when it is cancelled.
const unsolvable = 64

func newWorker(t *testing.T) (*state.State, *worker.Worker, *events.Events) {
	ev := func(v string, args ...any) { t.Logf(v, args...) }

	evts := events.New()

	mgr, err := persist.New(persist.Config{
		Engine: memory.New(),
		Events: evts,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the manager: %v", failed, err)
	}

	gen := genesis.Default()
	gen.Workers = 2

	st, err := state.New(state.Config{
		Manager:   mgr,
		Genesis:   gen,
		BatchSize: 100,
		EvHandler: ev,
		Events:    evts,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	w := worker.Run(st, evts, ev)

	return st, w, evts
}

// waitDone polls until the session is no longer searching.
func waitDone(t *testing.T, w *worker.Worker) state.Session {
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		if s := w.Session(); !s.Active() {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("\t%s\tShould see the session end in time.", failed)
	return state.Session{}
}

func Test_SessionFound(t *testing.T) {
	t.Log("Given the need to run a mining session to completion.")
	{
		st, w, evts := newWorker(t)
		defer st.Shutdown()

		ch := evts.Acquire("test")

		if s := w.Session(); s.Status != state.SessionIdle {
			t.Fatalf("\t%s\tShould start idle: %s", failed, s.Status)
		}
		t.Logf("\t%s\tShould start idle.", success)

		s, err := w.SignalStartMining("genesis", 1)
		if err != nil || s.Status != state.SessionSearching {
			t.Fatalf("\t%s\tShould be able to start a session: %s %v", failed, s.Status, err)
		}
		t.Logf("\t%s\tShould be able to start a session.", success)

		s = waitDone(t, w)
		if s.Status != state.SessionFound || s.Block == nil || s.Record == nil {
			t.Fatalf("\t%s\tShould find the block: %+v", failed, s)
		}
		t.Logf("\t%s\tShould find the block.", success)

		n, _ := st.RetrieveBlockCount()
		if n != 1 {
			t.Fatalf("\t%s\tShould store the block: %d", failed, n)
		}
		t.Logf("\t%s\tShould store the block.", success)

		var sawSession bool
		for len(ch) > 0 {
			if e := <-ch; e.Type == events.TypeMiningSession {
				sawSession = true
			}
		}

		if !sawSession {
			t.Fatalf("\t%s\tShould publish the session changes.", failed)
		}
		t.Logf("\t%s\tShould publish the session changes.", success)
	}
}

func Test_SessionCancel(t *testing.T) {
	t.Log("Given the need to cancel a mining session.")
	{
		st, w, _ := newWorker(t)
		defer st.Shutdown()

		if _, err := w.SignalStartMining("never", unsolvable); err != nil {
			t.Fatalf("\t%s\tShould be able to start a session: %v", failed, err)
		}

		if _, err := w.SignalStartMining("second", 1); !errors.Is(err, state.ErrMiningActive) {
			t.Fatalf("\t%s\tShould reject a second session: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a second session.", success)

		if !w.SignalCancelMining() {
			t.Fatalf("\t%s\tShould have a session to cancel.", failed)
		}

		s := waitDone(t, w)
		if s.Status != state.SessionCancelled {
			t.Fatalf("\t%s\tShould end the session cancelled: %s", failed, s.Status)
		}
		t.Logf("\t%s\tShould end the session cancelled.", success)

		n, _ := st.RetrieveBlockCount()
		if n != 0 {
			t.Fatalf("\t%s\tShould not store a block: %d", failed, n)
		}
		t.Logf("\t%s\tShould not store a block.", success)

		if w.SignalCancelMining() {
			t.Fatalf("\t%s\tShould have nothing left to cancel.", failed)
		}
		t.Logf("\t%s\tShould have nothing left to cancel.", success)

		if _, err := w.SignalStartMining("again", 1); err != nil {
			t.Fatalf("\t%s\tShould be able to start a new session: %v", failed, err)
		}

		if s := waitDone(t, w); s.Status != state.SessionFound {
			t.Fatalf("\t%s\tShould find the block of the new session: %s", failed, s.Status)
		}
		t.Logf("\t%s\tShould find the block of the new session.", success)
	}
}

func Test_SessionImportCancels(t *testing.T) {
	t.Log("Given the need to stop mining when the chain is replaced.")
	{
		st, w, _ := newWorker(t)
		defer st.Shutdown()

		if _, err := w.SignalStartMining("never", unsolvable); err != nil {
			t.Fatalf("\t%s\tShould be able to start a session: %v", failed, err)
		}

		if err := st.ImportBundle([]byte(`{"blockchain":[]}`)); err != nil {
			t.Fatalf("\t%s\tShould be able to import: %v", failed, err)
		}

		if s := waitDone(t, w); s.Status != state.SessionCancelled {
			t.Fatalf("\t%s\tShould cancel the session: %s", failed, s.Status)
		}
		t.Logf("\t%s\tShould cancel the session.", success)
	}
}

func Test_Shutdown(t *testing.T) {
	t.Log("Given the need to shut down while mining.")
	{
		st, w, _ := newWorker(t)

		if _, err := w.SignalStartMining("never", unsolvable); err != nil {
			t.Fatalf("\t%s\tShould be able to start a session: %v", failed, err)
		}

		st.Shutdown()

		if s := w.Session(); s.Status != state.SessionCancelled {
			t.Fatalf("\t%s\tShould cancel the session on shutdown: %s", failed, s.Status)
		}
		t.Logf("\t%s\tShould cancel the session on shutdown.", success)

		if _, err := w.SignalStartMining("late", 1); err == nil {
			t.Fatalf("\t%s\tShould reject a session after shutdown.", failed)
		}
		t.Logf("\t%s\tShould reject a session after shutdown.", success)
	}
}
