// File: internal/activation/position.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PositionBlock is the decoded form of a driver node's shared position
// area (§4.H): a hardware clock, the segment currently playing out of
// it, and the transport's stop/start/run state. DecodePositionBlock
// reads the fixed byte layout set_io(Position) hands this client a
// mapping for, mirroring internal/midi/codec.go's fixed-offset style.

package activation

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/momentics/graphbridge/api"
)

// positionBlockSize is the fixed encoded size of a PositionBlock.
const positionBlockSize = 92

// Clock is the driver's hardware clock as of this position update.
type Clock struct {
	ID        uint32
	NSec      uint64
	RateNum   uint32
	RateDenom uint32
	Duration  uint64
	Position  uint64
	Delay     uint64
	RateDiff  float64
}

// SegState is the driver-reported run state of the current segment.
type SegState int32

const (
	SegStopped SegState = iota
	SegStarting
	SegRunning
)

// BarInfo is the bar/beat/tick decomposition of a segment's position,
// when a timebase owner has published one.
type BarInfo struct {
	Bar            int32
	Beat           int32
	Tick           int32
	BarStartTick   float64
	BeatsPerBar    float32
	BeatType       float32
	TicksPerBeat   float64
	BeatsPerMinute float64
}

// Segment is the playing window of driver-clock ticks the current
// transport position belongs to.
type Segment struct {
	Start    uint64
	Duration uint64
	Position uint64
	Rate     float64
	Looping  bool
	Bar      BarInfo
}

// PositionBlock is the full decoded driver position (§4.H).
type PositionBlock struct {
	Clock   Clock
	Segment Segment
	State   SegState
}

// DecodePositionBlock decodes a driver position block from its shared
// byte layout. Returns an error if buf is too small to hold one.
func DecodePositionBlock(buf []byte) (*PositionBlock, error) {
	if len(buf) < positionBlockSize {
		return nil, fmt.Errorf("activation: position block too small: %d bytes", len(buf))
	}
	var p PositionBlock
	p.Clock.ID = binary.LittleEndian.Uint32(buf[0:4])
	p.Clock.NSec = binary.LittleEndian.Uint64(buf[4:12])
	p.Clock.RateNum = binary.LittleEndian.Uint32(buf[12:16])
	p.Clock.RateDenom = binary.LittleEndian.Uint32(buf[16:20])
	p.Clock.Duration = binary.LittleEndian.Uint64(buf[20:28])
	p.Clock.Position = binary.LittleEndian.Uint64(buf[28:36])
	p.Clock.Delay = binary.LittleEndian.Uint64(buf[36:44])
	p.Clock.RateDiff = math.Float64frombits(binary.LittleEndian.Uint64(buf[44:52]))
	p.Segment.Start = binary.LittleEndian.Uint64(buf[52:60])
	p.Segment.Duration = binary.LittleEndian.Uint64(buf[60:68])
	p.Segment.Position = binary.LittleEndian.Uint64(buf[68:76])
	p.Segment.Rate = math.Float64frombits(binary.LittleEndian.Uint64(buf[76:84]))
	p.Segment.Looping = buf[84] != 0
	p.State = SegState(binary.LittleEndian.Uint32(buf[88:92]))
	return &p, nil
}

// FrameRate returns the driver's reported sample rate (§4.H:
// frame_rate = clock.rate.denom).
func (p *PositionBlock) FrameRate() uint32 { return p.Clock.RateDenom }

// UsecsNow returns the clock's nanosecond timestamp converted to
// microseconds (§4.H: usecs = clock.nsec / 1000).
func (p *PositionBlock) UsecsNow() uint64 { return p.Clock.NSec / 1000 }

// Frame returns the transport's current frame position, decoded as the
// segment's own starting frame plus how far the driver clock has run
// since the segment began (§4.H: running = clock.position - segment.start).
func (p *PositionBlock) Frame() uint64 {
	running := p.Clock.Position - p.Segment.Start
	return p.Segment.Position + running
}

// TransportState maps the driver's run state (and looping flag) onto
// the client-visible TransportState (§4.H).
func (p *PositionBlock) TransportState() api.TransportState {
	switch p.State {
	case SegStopped:
		return api.TransportStopped
	case SegStarting:
		return api.TransportStarting
	case SegRunning:
		if p.Segment.Looping {
			return api.TransportLooping
		}
		return api.TransportRolling
	default:
		return api.TransportStopped
	}
}
