// File: internal/portpool/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Port is the per-direction, per-index slot the realtime cycle reads
// and writes through (§3). Ports are preallocated once at client-open
// time and never reallocated afterward; only their contents are reset
// on release.

package portpool

import (
	"sync/atomic"
	"unsafe"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/registry"
)

// Port is one slot of a direction's fixed-capacity pool.
type Port struct {
	Dir    api.Direction
	Index  uint32
	Object *registry.Object

	// IOStatus mirrors the server-mapped io_buffers status word for this
	// port (§4.F); the realtime cycle reads it with Load/Store so it can
	// be updated from a different goroutine than the one consuming it.
	IOStatus atomic.Uint32

	// ActiveMixes lists the mix ids currently feeding (input) or draining
	// (output) through this port.
	ActiveMixes []uint32

	// Empty is the always-available silent/zero buffer a port falls back
	// to when no mix has produced data this cycle (§4.F). 16-byte
	// aligned per the legacy buffer ABI.
	Empty []float32

	Zeroed     bool
	SampleRate uint32

	inUse bool
}

func newPort(dir api.Direction, index uint32) *Port {
	return &Port{
		Dir:         dir,
		Index:       index,
		ActiveMixes: make([]uint32, 0, 4),
		Empty:       alignedFloatBuffer(api.MaxBufferFrames),
	}
}

func (p *Port) reset() {
	p.Object = nil
	p.IOStatus.Store(0)
	p.ActiveMixes = p.ActiveMixes[:0]
	p.Zeroed = false
	p.SampleRate = 0
	p.inUse = false
	for i := range p.Empty {
		p.Empty[i] = 0
	}
}

// alignedFloatBuffer returns a []float32 of length frames whose backing
// array starts on an api.EmptyBufferAlign-byte boundary, as the legacy
// buffer ABI requires (§3).
func alignedFloatBuffer(frames int) []float32 {
	const align = uintptr(api.EmptyBufferAlign)
	pad := int(align) / 4
	raw := make([]float32, frames+pad)
	if len(raw) == 0 {
		return raw
	}
	addr := uintptr(unsafe.Pointer(&raw[0]))
	rem := addr % align
	if rem == 0 {
		return raw[:frames:frames]
	}
	shift := (align - rem) / 4
	return raw[shift : shift+uintptr(frames) : shift+uintptr(frames)]
}
