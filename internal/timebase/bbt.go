// File: internal/timebase/bbt.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ComputeBBT derives bar/beat/tick fields from a frame position under a
// constant tempo and meter (§4.H). Bar and beat are 1-based; frame 0 is
// bar 1, beat 1, tick 0.

package timebase

import "math"

// TicksPerBeat is fixed at 1920 (§4.H); it is not a per-call parameter.
const TicksPerBeat = 1920

// ComputeBBT fills in the BBT fields of a Position for frame under the
// given tempo/meter. Returns a bare frame-only Position if any input is
// degenerate.
func ComputeBBT(frame uint64, sampleRate uint32, bpm float64, beatsPerBar float32, beatType float32) Position {
	if sampleRate == 0 || bpm <= 0 || beatsPerBar <= 0 || beatType <= 0 {
		return Position{Frame: frame}
	}

	framesPerBeat := float64(sampleRate) * 60.0 / bpm * (4.0 / float64(beatType))
	totalBeats := float64(frame) / framesPerBeat
	barsF := float64(beatsPerBar)

	bar := int32(math.Floor(totalBeats/barsF)) + 1
	beatInBar := math.Mod(totalBeats, barsF)
	if beatInBar < 0 {
		beatInBar += barsF
	}
	beat := int32(math.Floor(beatInBar)) + 1
	tickFraction := beatInBar - math.Floor(beatInBar)
	tick := int32(tickFraction * TicksPerBeat)

	return Position{
		Frame:          frame,
		Valid:          ValidBBT,
		Bar:            bar,
		Beat:           beat,
		Tick:           tick,
		BeatsPerBar:    beatsPerBar,
		BeatType:       beatType,
		TicksPerBeat:   TicksPerBeat,
		BeatsPerMinute: bpm,
	}
}
