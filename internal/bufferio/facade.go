// File: internal/bufferio/facade.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Facade implements the port_get_buffer call (§4.F): branches on
// direction and port type to hand the realtime cycle a view it can
// read or write this cycle. Every returned slice aliases either a
// server-mapped plane or a port's own preallocated scratch memory;
// nothing is copied into a fresh buffer. The per-call list of active
// input planes (or MIDI sources) is a small slice allocated on each call.

package bufferio

import (
	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/portpool"
	"github.com/momentics/graphbridge/internal/shm"
)

// MIDIMerger merges the MIDI events queued across a set of input
// buffers into a single ordered stream (§4.G), returning the number of
// bytes written into out.
type MIDIMerger interface {
	Merge(sources [][]byte, out []byte) int
}

// MIDIEmptier writes an empty (header-only) MIDI buffer, used for
// output MIDI ports that have produced nothing this cycle.
type MIDIEmptier interface {
	Empty(out []byte)
}

// MixResolver looks a mix id up in the client's mix pool.
type MixResolver interface {
	ResolveMix(id uint32) *portpool.Mix
}

// Facade resolves port_get_buffer calls for one client.
type Facade struct {
	mixes     MixResolver
	midiMerge MIDIMerger
	midiEmpty MIDIEmptier
}

// NewFacade constructs a Facade. Either midi argument may be nil if the
// client never registers MIDI ports.
func NewFacade(mixes MixResolver, merge MIDIMerger, empty MIDIEmptier) *Facade {
	return &Facade{mixes: mixes, midiMerge: merge, midiEmpty: empty}
}

// GetAudioBuffer returns the float32 view an audio port reads from
// (input) or writes into (output) this cycle.
func (f *Facade) GetAudioBuffer(port *portpool.Port, nframes uint32) []float32 {
	if port.Dir == api.DirInput {
		return f.getInputAudio(port, nframes)
	}
	return f.getOutputAudio(port, nframes)
}

// GetMIDIBuffer returns the byte buffer a MIDI port reads from (merged
// input) or writes into (always an empty buffer for output, §4.F) this
// cycle.
func (f *Facade) GetMIDIBuffer(port *portpool.Port, nframes uint32) []byte {
	if port.Dir == api.DirInput {
		return f.getInputMIDI(port)
	}
	out := port.Empty // reuse the port's preallocated scratch as raw bytes view
	raw := floatsAsBytes(out)
	if f.midiEmpty != nil {
		f.midiEmpty.Empty(raw)
	}
	return raw
}

func (f *Facade) getInputAudio(port *portpool.Port, nframes uint32) []float32 {
	planes := f.activePlanes(port)
	switch len(planes) {
	case 0:
		buf := port.Empty[:nframes]
		for i := range buf {
			buf[i] = 0
		}
		return buf
	case 1:
		if uint32(len(planes[0])) >= nframes {
			return planes[0][:nframes]
		}
		return planes[0]
	default:
		dst := port.Empty[:nframes]
		for i, src := range planes {
			n := len(dst)
			if len(src) < n {
				n = len(src)
			}
			if i == 0 {
				copy(dst[:n], src[:n])
				for j := n; j < len(dst); j++ {
					dst[j] = 0
				}
				continue
			}
			MixAdd(dst[:n], src[:n])
		}
		return dst
	}
}

func (f *Facade) getOutputAudio(port *portpool.Port, nframes uint32) []float32 {
	for _, mixID := range port.ActiveMixes {
		mix := f.mixes.ResolveMix(mixID)
		if mix == nil {
			continue
		}
		bd := mix.PopFree()
		if bd == nil || bd.NPlanes == 0 {
			continue
		}
		plane := floatsOf(bd.Planes[0].Data)
		f.tee(mix, bd, plane, nframes)
		if uint32(len(plane)) >= nframes {
			return plane[:nframes]
		}
		return plane
	}
	return port.Empty[:nframes]
}

// tee fans a produced output buffer to every other buffer descriptor
// the mix holds (Buffers[0:NBuffers], queued or not), copying the same
// samples so every connected peer observes identical data (§4.F).
func (f *Facade) tee(mix *portpool.Mix, produced *shm.BufferDescriptor, data []float32, nframes uint32) {
	for i := 0; i < mix.NBuffers; i++ {
		bd := mix.Buffers[i]
		if bd == nil || bd == produced || bd.NPlanes == 0 {
			continue
		}
		dst := floatsOf(bd.Planes[0].Data)
		n := len(dst)
		if len(data) < n {
			n = len(data)
		}
		copy(dst[:n], data[:n])
	}
}

func (f *Facade) getInputMIDI(port *portpool.Port) []byte {
	sources := make([][]byte, 0, len(port.ActiveMixes))
	for _, mixID := range port.ActiveMixes {
		mix := f.mixes.ResolveMix(mixID)
		if mix == nil || mix.NBuffers == 0 {
			continue
		}
		bd := mix.Buffers[0]
		if bd == nil || bd.NPlanes == 0 {
			continue
		}
		sources = append(sources, bd.Planes[0].Data)
	}
	out := floatsAsBytes(port.Empty)
	if f.midiMerge != nil {
		f.midiMerge.Merge(sources, out)
	}
	return out
}

func (f *Facade) activePlanes(port *portpool.Port) [][]float32 {
	planes := make([][]float32, 0, len(port.ActiveMixes))
	for _, mixID := range port.ActiveMixes {
		mix := f.mixes.ResolveMix(mixID)
		if mix == nil || mix.IO == nil || mix.IO.Status != shm.IOHaveData {
			continue
		}
		for i := 0; i < mix.NBuffers; i++ {
			bd := mix.Buffers[i]
			if bd != nil && bd.ID == mix.IO.BufferID && bd.NPlanes > 0 {
				planes = append(planes, floatsOf(bd.Planes[0].Data))
				break
			}
		}
	}
	return planes
}
