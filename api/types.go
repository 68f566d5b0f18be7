// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared enumerations and small value types used across registry, pool,
// protocol, and client packages.

package api

// PortType enumerates the port content kinds the wire protocol knows about.
type PortType int

const (
	PortAudio PortType = iota
	PortMIDI
	PortVideo
	PortOther
)

func (t PortType) String() string {
	switch t {
	case PortAudio:
		return "audio"
	case PortMIDI:
		return "midi"
	case PortVideo:
		return "video"
	default:
		return "other"
	}
}

// Direction is the port direction relative to this client.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// PortFlags mirrors the legacy API's bitmask port flags.
type PortFlags uint32

const (
	FlagInput PortFlags = 1 << iota
	FlagOutput
	FlagPhysical
	FlagTerminal
	FlagCanMonitor
)

// LatencyRange is a [Min,Max] frame-count latency band for a port.
type LatencyRange struct {
	Min uint32
	Max uint32
}

// TransportState is the legacy rolling/stopped/looping state a client
// observes, decoded from the driver's segmented positional model.
type TransportState int

const (
	TransportStopped TransportState = iota
	TransportRolling
	TransportStarting
	TransportLooping
)

func (s TransportState) String() string {
	switch s {
	case TransportRolling:
		return "rolling"
	case TransportStarting:
		return "starting"
	case TransportLooping:
		return "looping"
	default:
		return "stopped"
	}
}

// ActivationStatus is the status word of a shared activation record.
type ActivationStatus int32

const (
	StatusIdle ActivationStatus = iota
	StatusAwake
	StatusFinished
	StatusTriggered
)

// ClientStatus is the legacy API's client_open bitfield.
type ClientStatus int

const (
	StatusFailure ClientStatus = 1 << iota
	StatusInitFailure
	StatusServerFailed
	StatusServerError
	StatusNoSuchClient
	StatusLoadFailure
	StatusInvalidOption
	StatusNameNotUnique
)
