// File: internal/bufferio/mixer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bufferio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMixAddScalarAndUnrolledAgree(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5, 6, 7}
	dst1 := []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	dst2 := append([]float32(nil), dst1...)

	mixAddScalar(dst1, src)
	mixAddUnrolled(dst2, src)

	require.Equal(t, dst1, dst2)
}

func TestMixAddShorterSourceLeavesTailUntouched(t *testing.T) {
	dst := []float32{1, 1, 1, 1}
	src := []float32{1, 1}
	MixAdd(dst, src)
	require.Equal(t, []float32{2, 2, 1, 1}, dst)
}
