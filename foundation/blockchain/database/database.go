// Package database handles the core blockchain types: blocks, mining reward
// records, the proof of work search that produces blocks and the verifier
// that checks them.
package database

// EventHandler defines a function that is called when events occur in the
// processing of mining and verifying blocks.
type EventHandler func(v string, args ...any)

// safe returns an event handler that can always be called.
func (ev EventHandler) safe() EventHandler {
	if ev == nil {
		return func(v string, args ...any) {}
	}
	return ev
}
