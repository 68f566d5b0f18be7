// File: internal/registry/arena.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// arena hands out *Object values from growable chunks and never returns
// the backing memory to the OS for the process lifetime (§3). Chunks
// grow in units of at least minChunkSize objects.

package registry

const minChunkSize = 8

type arena struct {
	chunks    [][]Object
	freeList  []*Object
	chunkSize int
}

func newArena() *arena {
	return &arena{chunkSize: minChunkSize}
}

func (a *arena) grow() {
	chunk := make([]Object, a.chunkSize)
	a.chunks = append(a.chunks, chunk)
	for i := range chunk {
		a.freeList = append(a.freeList, &chunk[i])
	}
	if a.chunkSize < 4096 {
		a.chunkSize *= 2
	}
}

// alloc returns a fresh, zeroed *Object from the arena. Never fails: it
// grows the arena instead of returning an error, matching the "never
// freed to the OS" lifecycle the spec mandates for registry entries.
func (a *arena) alloc() *Object {
	if len(a.freeList) == 0 {
		a.grow()
	}
	n := len(a.freeList) - 1
	obj := a.freeList[n]
	a.freeList = a.freeList[:n]
	*obj = Object{}
	return obj
}
