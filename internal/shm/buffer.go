// File: internal/shm/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BufferDescriptor and the per-port io status record (§3).

package shm

import "github.com/momentics/graphbridge/api"

// IO status values written into an IOBuffers record by the producer
// side of a mix (§4.F).
const (
	IOIdle uint32 = iota
	IONeedData
	IOHaveData
)

// IOBuffers is the server-mapped per-mix status cell: which buffer id
// currently backs the mix and the chunk geometry within it.
type IOBuffers struct {
	Status   uint32
	BufferID uint32
	Offset   uint32
	Size     uint32
	Stride   uint32
}

// Plane is one data plane of a BufferDescriptor, a view into a mapped
// memory region (or an offset into the metadata region for MemPtr
// planes).
type Plane struct {
	Data []byte
}

// BufferDescriptor is one mapped buffer a mix can hold (§3). Out tracks
// whether the application currently holds the buffer (true) or it is
// returnable to the mix queue (false).
type BufferDescriptor struct {
	ID     uint32
	Planes [api.MaxBufferDatas]Plane
	NPlanes int
	Mems   [api.MaxBufferMems]*Handle
	NMems  int
	Out    bool
}
