package public

import (
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
)

// MiningRequest is what a client provides to start a mining session. A
// missing difficulty uses the configured one.
type MiningRequest struct {
	Data       string `json:"data" validate:"required,max=4096,utf8"`
	Difficulty *uint  `json:"difficulty" validate:"omitempty,max=64"`
}

type miningStarted struct {
	Session state.Session `json:"session"`
	Warning string        `json:"warning,omitempty"`
}

type miningCancelled struct {
	Cancelled bool          `json:"cancelled"`
	Session   state.Session `json:"session"`
}

type blockCount struct {
	Count int `json:"count"`
}

type status struct {
	Status string `json:"status"`
}
