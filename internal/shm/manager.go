// File: internal/shm/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Manager owns every shared-memory mapping this client holds on behalf
// of the graph server (§4.C): tagged set_io mappings and the
// metadata+plane mappings a port_use_buffers call describes.

package shm

import (
	"fmt"
	"sync"

	"github.com/momentics/graphbridge/api"
)

// IOTag identifies a set_io mapping. Per §4.C the tuple is
// (node-id, [direction, port-id, mix-id,] io-id); the direction/port/mix
// fields are zero for a node-scoped io (e.g. Position).
type IOTag struct {
	NodeID uint32
	Dir    api.Direction
	PortID uint32
	MixID  uint32
	IOID   uint32
}

// PlaneType distinguishes a separately mapped plane from one embedded in
// the buffer's metadata region.
type PlaneType int

const (
	PlaneMemID PlaneType = iota
	PlaneMemPtr
)

// PlaneSpec describes one plane of a port_use_buffers buffer entry.
type PlaneSpec struct {
	Type           PlaneType
	Region         MemRegion // valid when Type == PlaneMemID
	EmbeddedOffset uint64    // valid when Type == PlaneMemPtr
	EmbeddedSize   uint64
}

// BufferSpec describes one buffer entry of a port_use_buffers message.
type BufferSpec struct {
	ID     uint32
	Meta   MemRegion
	Planes []PlaneSpec
}

// Manager maps and unmaps shared memory on request, tracking every
// mapping by handle so it can be torn down deterministically.
type Manager struct {
	mapper Mapper

	mu     sync.Mutex
	tagged map[IOTag]*Handle
}

// NewManager constructs a Manager around the given Mapper.
func NewManager(mapper Mapper) *Manager {
	return &Manager{mapper: mapper, tagged: make(map[IOTag]*Handle)}
}

// SetIO installs the mapping for tag, first unmapping any prior mapping
// for the same tag (§4.C). A zero-size region clears the tag and
// returns (nil, nil).
func (m *Manager) SetIO(tag IOTag, region MemRegion) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.tagged[tag]; ok {
		m.unmapLocked(old)
		delete(m.tagged, tag)
	}
	if region.Size == 0 {
		return nil, nil
	}

	data, err := m.mapper.Map(region)
	if err != nil {
		return nil, fmt.Errorf("shm: set_io map: %w", err)
	}
	h := &Handle{Region: region, Data: data}
	m.tagged[tag] = h
	return h, nil
}

// ClearIO unmaps and forgets tag, if mapped.
func (m *Manager) ClearIO(tag IOTag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.tagged[tag]; ok {
		m.unmapLocked(old)
		delete(m.tagged, tag)
	}
}

// Lookup returns the handle currently installed for tag.
func (m *Manager) Lookup(tag IOTag) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.tagged[tag]
	return h, ok
}

func (m *Manager) unmapLocked(h *Handle) {
	if h == nil {
		return
	}
	_ = m.mapper.Unmap(h.Data)
}

// UseBuffers maps every described buffer's metadata region and planes
// per §4.C. warn, if non-nil, receives best-effort mlock failures; they
// are never treated as fatal.
func (m *Manager) UseBuffers(specs []BufferSpec, warn func(error)) ([]*BufferDescriptor, error) {
	out := make([]*BufferDescriptor, 0, len(specs))
	for _, spec := range specs {
		bd := &BufferDescriptor{ID: spec.ID}

		meta, err := m.mapper.Map(spec.Meta)
		if err != nil {
			m.ReleaseBuffers(out)
			return nil, fmt.Errorf("shm: map metadata: %w", err)
		}
		bd.Mems[0] = &Handle{Region: spec.Meta, Data: meta}
		bd.NMems = 1
		if err := m.mapper.Mlock(meta); err != nil && warn != nil {
			warn(fmt.Errorf("shm: mlock metadata: %w", err))
		}

		for _, p := range spec.Planes {
			if bd.NPlanes >= api.MaxBufferDatas {
				m.ReleaseBuffers(out)
				return nil, api.ErrResourceExhausted
			}
			var plane Plane
			switch p.Type {
			case PlaneMemID:
				if bd.NMems >= api.MaxBufferMems {
					m.ReleaseBuffers(out)
					return nil, api.ErrResourceExhausted
				}
				data, err := m.mapper.Map(p.Region)
				if err != nil {
					m.ReleaseBuffers(out)
					return nil, fmt.Errorf("shm: map plane: %w", err)
				}
				if err := m.mapper.Mlock(data); err != nil && warn != nil {
					warn(fmt.Errorf("shm: mlock plane: %w", err))
				}
				bd.Mems[bd.NMems] = &Handle{Region: p.Region, Data: data}
				bd.NMems++
				plane = Plane{Data: data}
			case PlaneMemPtr:
				end := p.EmbeddedOffset + p.EmbeddedSize
				if end > uint64(len(meta)) {
					m.ReleaseBuffers(out)
					return nil, api.ErrInvalidArgument
				}
				plane = Plane{Data: meta[p.EmbeddedOffset:end]}
			}
			bd.Planes[bd.NPlanes] = plane
			bd.NPlanes++
		}
		out = append(out, bd)
	}
	return out, nil
}

// ReleaseBuffers unmaps every handle held by the given descriptors. Safe
// to call on a partially built slice.
func (m *Manager) ReleaseBuffers(bds []*BufferDescriptor) {
	for _, bd := range bds {
		if bd == nil {
			continue
		}
		for i := 0; i < bd.NMems; i++ {
			_ = m.mapper.Unmap(bd.Mems[i].Data)
		}
	}
}
