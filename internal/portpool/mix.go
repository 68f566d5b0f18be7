// File: internal/portpool/mix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mix is one fan-in/fan-out point a port's buffers flow through (§3,
// §4.F: a capture port has exactly one mix feeding its consumers, a
// playback port can have several mixes "tee"-ing the same data to
// several connected peers).

package portpool

import (
	"github.com/eapache/queue"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/shm"
)

// Mix holds the server-mapped status cell and the buffer descriptors a
// single mix currently owns, plus the queue of buffers the realtime
// cycle is free to write into next.
type Mix struct {
	ID   uint32
	Port *Port

	IO *shm.IOBuffers

	Buffers  [api.MaxBuffers]*shm.BufferDescriptor
	NBuffers int

	// FreeQueue holds the *shm.BufferDescriptor values (from Buffers) not
	// currently held by the application side, in the order they became free.
	FreeQueue *queue.Queue

	inUse bool
}

func newMix(id uint32) *Mix {
	return &Mix{ID: id, FreeQueue: queue.New()}
}

func (m *Mix) reset() {
	m.Port = nil
	m.IO = nil
	for i := range m.Buffers {
		m.Buffers[i] = nil
	}
	m.NBuffers = 0
	for m.FreeQueue.Length() > 0 {
		m.FreeQueue.Remove()
	}
	m.inUse = false
}

// PopFree dequeues the next free buffer descriptor, or nil if none are
// available this cycle.
func (m *Mix) PopFree() *shm.BufferDescriptor {
	if m.FreeQueue.Length() == 0 {
		return nil
	}
	return m.FreeQueue.Remove().(*shm.BufferDescriptor)
}

// PushFree returns a buffer descriptor to the tail of the free queue.
func (m *Mix) PushFree(bd *shm.BufferDescriptor) {
	m.FreeQueue.Add(bd)
}
