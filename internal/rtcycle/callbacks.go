// File: internal/rtcycle/callbacks.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Callbacks holds the client-registered hooks the cycle invokes each
// pass (§4.E, §6). A nil hook is simply skipped; registering more than
// one of a kind is the client package's responsibility to prevent
// (§6: process/thread callbacks are mutually exclusive).

package rtcycle

import (
	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/timebase"
)

// ProcessFunc runs one cycle's worth of signal processing. A non-zero
// return requests the client stop processing (mirrors the legacy
// process-callback ABI).
type ProcessFunc func(nframes uint32) int

// SyncFunc decides whether the client is ready to roll after a
// transport start request; returning false keeps the transport in
// "starting" for another cycle.
type SyncFunc func(state api.TransportState, pos timebase.Position) bool

// TimebaseFunc computes the BBT fields for the segment starting at
// pos.Frame; called only while this client owns the timebase role.
type TimebaseFunc func(state api.TransportState, nframes uint32, pos *timebase.Position, newPosition bool)

// Callbacks is the full set of hooks one Engine invokes.
type Callbacks struct {
	ThreadInit func()
	BufferSize func(frames uint32) int
	SampleRate func(rate uint32) int
	Process    ProcessFunc
	Sync       SyncFunc
	XRun       func() int
	Timebase   TimebaseFunc
	Shutdown   func()

	// MIDITee refreshes MIDI port buffers for the cycle (§4.E step 10);
	// wired to the midi package by the client.
	MIDITee func(nframes uint32)
}
