// File: internal/bufferio/convert.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Byte/float32 plane views. Buffer planes arrive as raw mapped []byte;
// the legacy audio ABI is 32-bit float host-endian, so the conversion
// is a reinterpretation of the existing backing array, never a copy.

package bufferio

import "unsafe"

// floatsOf reinterprets a mapped byte plane as a []float32 view. The
// plane must already be 4-byte aligned, which the shm manager
// guarantees for mmap'd regions.
func floatsOf(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

// floatsAsBytes is the inverse of floatsOf: a byte view over an
// existing float32 buffer's backing array, used to hand a port's
// preallocated empty buffer to the MIDI codec without copying.
func floatsAsBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}
