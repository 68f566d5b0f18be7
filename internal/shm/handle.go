// File: internal/shm/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle tracks one shared-memory mapping made on behalf of the graph
// server. All memory exchanged with the server is referenced by
// (pool, mem-id, offset, size, flags) (§4.C); a Handle is the live
// mapping for one such tuple.

package shm

// MemRegion identifies a server-described memory block before it is
// mapped.
type MemRegion struct {
	PoolFD uintptr
	MemID  uint32
	Offset uint64
	Size   uint64
	Flags  uint32
}

// Handle is a live mapping kept alive for as long as the server or this
// client still reference it.
type Handle struct {
	Region  MemRegion
	Data    []byte
	Mlocked bool
}
