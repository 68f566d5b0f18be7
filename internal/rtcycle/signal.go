// File: internal/rtcycle/signal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Signaler abstracts the eventfd pair the realtime cycle blocks on and
// the one it notifies downstream peers through (§4.E step 1 and step
// 12), so the cycle engine can be driven by a fake in tests.

package rtcycle

// Signaler waits for this client's activation and notifies downstream
// peers once this cycle's work is done.
type Signaler interface {
	// Wait blocks until the graph server has activated this client for
	// the next cycle, returning the awake timestamp in microseconds.
	Wait() (awakeAtMicros int64, err error)

	// SignalFD notifies the peer owning fd that this client has
	// finished producing for the current cycle (§4.E step 12: one
	// independent write per peer link).
	SignalFD(fd int32) error

	Close() error
}
