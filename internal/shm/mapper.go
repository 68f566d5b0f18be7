// File: internal/shm/mapper.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mapper abstracts the raw mmap/munmap/mlock syscalls so Manager can be
// exercised against a fake in unit tests without real shared-memory
// file descriptors. The production Mapper lives in mapper_linux.go.

package shm

// Mapper performs the OS-level mapping operations Manager needs.
type Mapper interface {
	Map(region MemRegion) ([]byte, error)
	Unmap(data []byte) error
	Mlock(data []byte) error
}
