// File: internal/timebase/position.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Position is the decoded transport position (§4.H): frame counter plus
// the optional bar/beat/tick (BBT) fields a timebase owner fills in.

package timebase

import "github.com/momentics/graphbridge/api"

// Position mirrors one segment of the driver's shared transport record.
type Position struct {
	Frame   uint64
	State   api.TransportState
	Valid   BBTValidity

	Bar   int32
	Beat  int32
	Tick  int32

	BarStartTick    float64
	BeatsPerBar     float32
	BeatType        float32
	TicksPerBeat    float64
	BeatsPerMinute  float64
}

// BBTValidity flags which of a Position's optional fields a timebase
// callback has populated this cycle.
type BBTValidity uint32

const (
	ValidBBT BBTValidity = 1 << iota
)

// HasBBT reports whether the bar/beat/tick fields are populated.
func (p Position) HasBBT() bool { return p.Valid&ValidBBT != 0 }
