// File: internal/timebase/bbt_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package timebase

import (
	"testing"

	"github.com/momentics/graphbridge/api"
	"github.com/stretchr/testify/require"
)

func TestComputeBBTFrameZeroIsBarOneBeatOneTickZero(t *testing.T) {
	pos := ComputeBBT(0, 48000, 120, 4, 4)
	require.True(t, pos.HasBBT())
	require.EqualValues(t, 1, pos.Bar)
	require.EqualValues(t, 1, pos.Beat)
	require.EqualValues(t, 0, pos.Tick)
}

func TestComputeBBTAdvancesOneBeatPerQuarterNote(t *testing.T) {
	const sampleRate = 48000
	const bpm = 120.0
	framesPerBeat := uint64(sampleRate * 60.0 / bpm)

	pos := ComputeBBT(framesPerBeat, sampleRate, bpm, 4, 4)
	require.EqualValues(t, 1, pos.Bar)
	require.EqualValues(t, 2, pos.Beat)
}

func TestComputeBBTWrapsBarAfterMeterBeats(t *testing.T) {
	const sampleRate = 48000
	const bpm = 120.0
	framesPerBeat := uint64(sampleRate * 60.0 / bpm)

	pos := ComputeBBT(framesPerBeat*4, sampleRate, bpm, 4, 4)
	require.EqualValues(t, 2, pos.Bar)
	require.EqualValues(t, 1, pos.Beat)
}

func TestComputeBBTDegenerateInputsYieldBareFrame(t *testing.T) {
	pos := ComputeBBT(100, 0, 120, 4, 4)
	require.False(t, pos.HasBBT())
	require.EqualValues(t, 100, pos.Frame)
}

func TestTransportRollOnlyFromStarting(t *testing.T) {
	tr := NewTransport()
	tr.Roll()
	require.Equal(t, api.TransportStopped, tr.State(), "roll must no-op outside starting")

	tr.RequestStart()
	tr.Roll()
	require.Equal(t, api.TransportRolling, tr.State())
}

func TestTransportAdvanceOnlyWhileRollingOrLooping(t *testing.T) {
	tr := NewTransport()
	tr.Advance(128)
	require.EqualValues(t, 0, tr.Frame())

	tr.RequestStart()
	tr.Roll()
	tr.Advance(128)
	require.EqualValues(t, 128, tr.Frame())
}
