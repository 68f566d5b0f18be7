// File: internal/protocol/params.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Self-advertised port parameters and per-type format validation
// (§4.D). A port only ever reports the EnumFormat/Format/Buffers/IO
// table the legacy port type permits; a format request outside that
// table is rejected rather than forwarded.

package protocol

import (
	"fmt"

	"github.com/momentics/graphbridge/api"
)

// ParamID names one entry of a port's parameter table.
type ParamID int

const (
	ParamEnumFormat ParamID = iota
	ParamFormat
	ParamBuffers
	ParamIO
)

// FormatParam is the negotiated media format for a port. Only the
// fields meaningful to PortType are populated.
type FormatParam struct {
	PortType   api.PortType
	SampleRate uint32 // audio
	Channels   uint32 // audio
	Width      uint32 // video
	Height     uint32 // video
	Framerate  uint32 // video
}

// BuffersParam describes the buffer geometry a port accepts.
type BuffersParam struct {
	MinBuffers uint32
	MaxBuffers uint32
	Size       uint32
	Stride     uint32
}

// DefaultEnumFormat returns the format alternatives a port of the given
// type advertises at registration. Audio and MIDI ports advertise a
// single fixed format per the legacy ABI (§3); video is a placeholder
// table since the legacy client API never exercised video ports.
func DefaultEnumFormat(t api.PortType, sampleRate uint32) []FormatParam {
	switch t {
	case api.PortAudio:
		return []FormatParam{{PortType: api.PortAudio, SampleRate: sampleRate, Channels: 1}}
	case api.PortMIDI:
		return []FormatParam{{PortType: api.PortMIDI}}
	case api.PortVideo:
		return []FormatParam{{PortType: api.PortVideo, Width: 0, Height: 0, Framerate: 0}}
	default:
		return nil
	}
}

// DefaultBuffers returns the buffer geometry a port of the given type
// advertises.
func DefaultBuffers(t api.PortType, framesPerCycle uint32) BuffersParam {
	switch t {
	case api.PortAudio:
		return BuffersParam{MinBuffers: 1, MaxBuffers: api.MaxBuffers, Size: framesPerCycle * 4, Stride: 4}
	case api.PortMIDI:
		return BuffersParam{MinBuffers: 1, MaxBuffers: api.MaxBuffers, Size: 0, Stride: 0}
	default:
		return BuffersParam{MinBuffers: 1, MaxBuffers: api.MaxBuffers}
	}
}

// ValidateFormat rejects a port_set_param Format request that does not
// match one of the port's enumerated formats.
func ValidateFormat(t api.PortType, want FormatParam, enumerated []FormatParam) error {
	for _, f := range enumerated {
		if formatsEqual(t, f, want) {
			return nil
		}
	}
	return fmt.Errorf("%w: format not in enumerated set for %s port", api.ErrInvalidArgument, t)
}

func formatsEqual(t api.PortType, a, b FormatParam) bool {
	switch t {
	case api.PortAudio:
		return a.SampleRate == b.SampleRate && (b.Channels == 0 || a.Channels == b.Channels)
	case api.PortMIDI:
		return true
	case api.PortVideo:
		return a.Width == b.Width && a.Height == b.Height && a.Framerate == b.Framerate
	default:
		return false
	}
}
