package state

import (
	"errors"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
)

// ErrMiningActive is returned when a mining session is requested while
// another one is still searching.
var ErrMiningActive = errors.New("mining session already active")

// Set of states a mining session moves through.
const (
	SessionIdle      = "idle"
	SessionSearching = "searching"
	SessionFound     = "found"
	SessionCancelled = "cancelled"
	SessionFailed    = "failed"
)

// Session represents the state of a single mining session. A session
// starts searching and ends found, cancelled or failed.
type Session struct {
	ID         string                 `json:"id"`
	Status     string                 `json:"status"`
	Data       string                 `json:"data"`
	Difficulty uint                   `json:"difficulty"`
	Workers    int                    `json:"workers"`
	StartedAt  time.Time              `json:"startedAt"`
	EndedAt    time.Time              `json:"endedAt"`
	Progress   database.Progress      `json:"progress"`
	Block      *database.Block        `json:"block,omitempty"`
	Record     *database.MiningRecord `json:"record,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Active reports whether the session is still searching.
func (s Session) Active() bool {
	return s.Status == SessionSearching
}
