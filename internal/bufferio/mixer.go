// File: internal/bufferio/mixer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scalar and unrolled mix-add paths for summing input mixes into a
// port's scratch buffer (§4.F, §9). The unrolled path is picked when
// the host CPU advertises wide SIMD registers; it is plain Go (no
// assembly), relying on the compiler to pack the unrolled adds into
// vector instructions rather than issuing hand-written SIMD.
package bufferio

import "golang.org/x/sys/cpu"

// useUnrolledMix is decided once at process start from the detected
// CPU features (§9).
var useUnrolledMix = detectWideSIMD()

func detectWideSIMD() bool {
	if cpu.X86.HasAVX2 {
		return true
	}
	if cpu.ARM64.HasASIMD {
		return true
	}
	return false
}

// MixAdd adds src into dst elementwise, dst[i] += src[i], over
// min(len(dst), len(src)) elements.
func MixAdd(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	if useUnrolledMix {
		mixAddUnrolled(dst[:n], src[:n])
		return
	}
	mixAddScalar(dst[:n], src[:n])
}

func mixAddScalar(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// mixAddUnrolled processes four samples per iteration so the compiler
// has a clean shot at autovectorizing the loop on wide-SIMD hosts.
func mixAddUnrolled(dst, src []float32) {
	n := len(dst)
	i := 0
	for ; i+4 <= n; i += 4 {
		dst[i+0] += src[i+0]
		dst[i+1] += src[i+1]
		dst[i+2] += src[i+2]
		dst[i+3] += src[i+3]
	}
	for ; i < n; i++ {
		dst[i] += src[i]
	}
}
