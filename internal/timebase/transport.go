// File: internal/timebase/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport is the client-local mirror of the shared transport state
// machine (§4.H): stopped/starting/rolling/looping, the current frame,
// and the elected timebase owner. Once a driver source is bound, frame
// and state are decoded straight out of the driver's shared position
// block (§4.H) rather than simulated locally; the local atomics then
// only serve standalone use (tests, a client with no driver bound yet).

package timebase

import (
	"sync/atomic"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/activation"
)

// DriverSource supplies the shared driver position a Transport mirrors
// once bound. The protocol handler satisfies this once set_io(Position)
// maps and decodes the driver's activation record (§4.D).
type DriverSource interface {
	DriverPosition() *activation.PositionBlock
}

// Transport tracks transport state and frame position, and owns the
// timebase master election for this client's connection.
type Transport struct {
	state         atomic.Int32
	fallbackFrame atomic.Uint64
	owner         *Owner
	driver        DriverSource
}

// NewTransport returns a Transport stopped at frame 0, with no driver
// source bound.
func NewTransport() *Transport {
	t := &Transport{owner: NewOwner()}
	t.state.Store(int32(api.TransportStopped))
	return t
}

// BindDriverSource wires src as the Transport's driver position source.
// Must be called before the data loop starts; unset, the Transport
// behaves as a standalone local state machine.
func (t *Transport) BindDriverSource(src DriverSource) {
	t.driver = src
}

// State returns the current transport state, decoded from the bound
// driver position if one is available, the local state machine
// otherwise.
func (t *Transport) State() api.TransportState {
	if t.driver != nil {
		if pos := t.driver.DriverPosition(); pos != nil {
			return pos.TransportState()
		}
	}
	return api.TransportState(t.state.Load())
}

// Frame returns the current transport frame position, decoded from the
// bound driver position if one is available, the local fallback
// counter otherwise.
func (t *Transport) Frame() uint64 {
	if t.driver != nil {
		if pos := t.driver.DriverPosition(); pos != nil {
			return pos.Frame()
		}
	}
	return t.fallbackFrame.Load()
}

// RequestStart moves the local transport state to "starting": rolling
// begins once every registered sync callback reports ready (§4.E step
// 6). Only meaningful while no driver source is bound.
func (t *Transport) RequestStart() {
	t.state.Store(int32(api.TransportStarting))
}

// Roll transitions a starting local transport state to rolling.
func (t *Transport) Roll() {
	t.state.CompareAndSwap(int32(api.TransportStarting), int32(api.TransportRolling))
}

// Stop halts the local transport state.
func (t *Transport) Stop() {
	t.state.Store(int32(api.TransportStopped))
}

// Reposition sets the local fallback frame directly, as a seek or loop
// wrap does; it does not by itself change the rolling/stopped state.
// Once a driver source is bound this only updates the fallback value
// observed if the driver is later unbound; the actual reposition
// request against a live driver goes through the node's own activation
// record (§4.H), not this local counter.
func (t *Transport) Reposition(frame uint64) {
	t.fallbackFrame.Store(frame)
}

// Advance moves the local fallback frame counter forward by nframes
// while rolling or looping; it is a no-op while stopped or starting,
// and has no effect on a bound driver's own frame decode.
func (t *Transport) Advance(nframes uint32) {
	switch t.State() {
	case api.TransportRolling, api.TransportLooping:
		t.fallbackFrame.Add(uint64(nframes))
	}
}

// Owner returns the timebase master election for this transport.
func (t *Transport) Owner() *Owner {
	return t.owner
}
