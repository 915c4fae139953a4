package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ardanlabs/blockvault/business/sys/metrics"
	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Observe(t *testing.T) {
	t.Log("Given the need to turn events into metrics.")
	{
		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to register the collectors: %v", failed, err)
		}

		now := time.Now()

		m.Observe(events.NewEvent(events.TypeBlockAdded, database.Block{}))
		m.Observe(events.NewEvent(events.TypeMiningProgress, database.Progress{HashRate: 1234}))
		m.Observe(events.NewEvent(events.TypeMiningSession, state.Session{Status: state.SessionSearching}))
		m.Observe(events.NewEvent(events.TypeMiningSession, state.Session{Status: state.SessionFound, StartedAt: now, EndedAt: now.Add(time.Second)}))

		if v := testutil.ToFloat64(m.BlocksAdded); v != 1 {
			t.Fatalf("\t%s\tShould count the added block: %v", failed, v)
		}
		t.Logf("\t%s\tShould count the added block.", success)

		if v := testutil.ToFloat64(m.HashRate); v != 1234 {
			t.Fatalf("\t%s\tShould record the hash rate: %v", failed, v)
		}
		t.Logf("\t%s\tShould record the hash rate.", success)

		if v := testutil.ToFloat64(m.Sessions.WithLabelValues(state.SessionFound)); v != 1 {
			t.Fatalf("\t%s\tShould count only the ended session: %v", failed, v)
		}
		t.Logf("\t%s\tShould count only the ended session.", success)
	}
}

func Test_Register(t *testing.T) {
	t.Log("Given the need to register the collectors once.")
	{
		reg := prometheus.NewRegistry()

		if _, err := metrics.New(reg); err != nil {
			t.Fatalf("\t%s\tShould be able to register the collectors: %v", failed, err)
		}

		if _, err := metrics.New(reg); err == nil {
			t.Fatalf("\t%s\tShould fail to register the collectors twice.", failed)
		}
		t.Logf("\t%s\tShould fail to register the collectors twice.", success)
	}
}
