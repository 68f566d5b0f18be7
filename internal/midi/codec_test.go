// File: internal/midi/codec_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package midi

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResetProducesEmptyBuffer(t *testing.T) {
	buf := make([]byte, 256)
	Reset(buf, 128)
	require.EqualValues(t, 0, EventCount(buf))
	require.EqualValues(t, 128, NFrames(buf))
}

func TestWriteReadRoundTripInlinePayload(t *testing.T) {
	buf := make([]byte, 256)
	Reset(buf, 128)

	require.NoError(t, WriteEvent(buf, 10, []byte{0x90, 0x40, 0x7f}))
	require.EqualValues(t, 1, EventCount(buf))

	time, data, ok := ReadEvent(buf, 0)
	require.True(t, ok)
	require.EqualValues(t, 10, time)
	require.Equal(t, []byte{0x90, 0x40, 0x7f}, data)
}

func TestWriteReadRoundTripLargePayload(t *testing.T) {
	buf := make([]byte, 256)
	Reset(buf, 128)

	sysex := make([]byte, 40)
	for i := range sysex {
		sysex[i] = byte(i)
	}
	require.NoError(t, WriteEvent(buf, 5, sysex))

	_, data, ok := ReadEvent(buf, 0)
	require.True(t, ok)
	require.Equal(t, sysex, data)
}

func TestWriteEventOverflowIncrementsLostEvents(t *testing.T) {
	buf := make([]byte, 64)
	Reset(buf, 128)

	var lost int
	for i := 0; i < 20; i++ {
		if WriteEvent(buf, uint32(i), []byte{0x90, 0x40, 0x7f}) != nil {
			lost++
		}
	}
	require.Positive(t, lost)
	require.EqualValues(t, lost, LostEvents(buf))
}

// TestWriteEventRejectsDecreasingTime is the scenario-3 case (§4.G): a
// third event whose time precedes the previous event's must be refused
// and counted as lost, leaving the two accepted events untouched.
func TestWriteEventRejectsDecreasingTime(t *testing.T) {
	buf := make([]byte, 256)
	Reset(buf, 128)

	require.NoError(t, WriteEvent(buf, 0, []byte{0, 0, 0}))
	require.NoError(t, WriteEvent(buf, 5, make([]byte, 10)))
	require.ErrorIs(t, WriteEvent(buf, 4, []byte{0}), ErrBufferFull)

	require.EqualValues(t, 2, EventCount(buf))
	require.EqualValues(t, 1, LostEvents(buf))
}

// TestWriteReadRoundTripIsLossless uses rapid to generate arbitrary
// sequences of (time, payload) events within a buffer's capacity and
// checks every one reads back exactly as written, in order.
func TestWriteReadRoundTripIsLossless(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		buf := make([]byte, 4096)
		Reset(buf, 1024)

		type ev struct {
			time uint32
			data []byte
		}
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		events := make([]ev, 0, n)
		for i := 0; i < n; i++ {
			size := rapid.IntRange(1, 16).Draw(rt, "size")
			data := make([]byte, size)
			for j := range data {
				data[j] = byte(rapid.IntRange(0, 255).Draw(rt, "byte"))
			}
			time := uint32(rapid.IntRange(0, 1023).Draw(rt, "time"))
			if WriteEvent(buf, time, data) == nil {
				events = append(events, ev{time: time, data: data})
			}
		}

		require.EqualValues(t, len(events), EventCount(buf))
		for i, want := range events {
			gotTime, gotData, ok := ReadEvent(buf, i)
			require.True(t, ok)
			require.Equal(t, want.time, gotTime)
			require.Equal(t, want.data, gotData)
		}
	})
}
