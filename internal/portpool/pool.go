// File: internal/portpool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PortPool and MixPool preallocate every slot the realtime cycle will
// ever touch at client-open time (§3, §9: no allocation on the audio
// thread). Acquire/Release hand slots in and out of a free-index stack;
// the backing arrays themselves are never resized.

package portpool

import (
	"sync"

	"github.com/momentics/graphbridge/api"
)

// PortPool is a fixed-capacity pool of Port slots for one direction.
type PortPool struct {
	dir   api.Direction
	slots [api.MaxPorts]*Port
	free  []uint32

	mu sync.Mutex
}

// NewPortPool preallocates api.MaxPorts ports for the given direction.
func NewPortPool(dir api.Direction) *PortPool {
	p := &PortPool{dir: dir, free: make([]uint32, 0, api.MaxPorts)}
	for i := api.MaxPorts - 1; i >= 0; i-- {
		p.slots[i] = newPort(dir, uint32(i))
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Acquire returns an unused Port slot, or nil if the pool is exhausted.
func (p *PortPool) Acquire() *Port {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return nil
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	port := p.slots[idx]
	port.inUse = true
	return port
}

// Release returns a Port slot to the pool, resetting its contents.
func (p *PortPool) Release(port *Port) {
	if port == nil || port.Dir != p.dir {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !port.inUse {
		return
	}
	port.reset()
	p.free = append(p.free, port.Index)
}

// At returns the port slot at index, regardless of acquisition state.
// Used by the protocol/rtcycle layers to resolve a port id to its slot.
func (p *PortPool) At(index uint32) *Port {
	if index >= api.MaxPorts {
		return nil
	}
	return p.slots[index]
}

// InUse reports how many slots are currently acquired.
func (p *PortPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.MaxPorts - len(p.free)
}

// MixPool is a fixed-capacity pool of Mix slots, shared across
// directions (§3: mix ids are global, not per-port).
type MixPool struct {
	slots [api.MaxMix]*Mix
	free  []uint32

	mu sync.Mutex
}

// NewMixPool preallocates api.MaxMix mix slots.
func NewMixPool() *MixPool {
	p := &MixPool{free: make([]uint32, 0, api.MaxMix)}
	for i := api.MaxMix - 1; i >= 0; i-- {
		p.slots[i] = newMix(uint32(i))
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Acquire returns an unused Mix slot, or nil if the pool is exhausted.
func (p *MixPool) Acquire() *Mix {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return nil
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	mix := p.slots[idx]
	mix.inUse = true
	return mix
}

// Release returns a Mix slot to the pool, resetting its contents.
func (p *MixPool) Release(mix *Mix) {
	if mix == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !mix.inUse {
		return
	}
	mix.reset()
	p.free = append(p.free, mix.ID)
}

// At returns the mix slot with the given id, regardless of acquisition
// state.
func (p *MixPool) At(id uint32) *Mix {
	if id >= api.MaxMix {
		return nil
	}
	return p.slots[id]
}

// InUse reports how many mix slots are currently acquired.
func (p *MixPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.MaxMix - len(p.free)
}
