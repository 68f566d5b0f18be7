//go:build linux

// File: internal/shm/mapper_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux mmap(2)-backed Mapper implementation.

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// UnixMapper maps pool memory through mmap(2) on a shared-memory fd
// handed over by the graph server via ancillary data.
type UnixMapper struct{}

// NewMapper returns the platform Mapper.
func NewMapper() Mapper { return UnixMapper{} }

// Map mmaps region.Size bytes of region.PoolFD at region.Offset.
func (UnixMapper) Map(region MemRegion) ([]byte, error) {
	if region.Size == 0 {
		return nil, fmt.Errorf("shm: zero-size region")
	}
	data, err := unix.Mmap(int(region.PoolFD), int64(region.Offset), int(region.Size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return data, nil
}

// Unmap releases a previously mapped region.
func (UnixMapper) Unmap(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}

// Mlock pins data's pages in memory. Failure here is never fatal (§4.C):
// callers log a warning and continue.
func (UnixMapper) Mlock(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Mlock(data)
}
