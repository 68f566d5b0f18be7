// File: internal/midi/merge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Merger implements the input-side fan-in the realtime cycle needs
// when several mixes feed one MIDI port (§4.E step 10, §4.F, §4.G):
// an n-way merge of already-time-ordered event streams into a single
// time-ordered buffer.

package midi

// Merger performs the n-way ordered merge and the always-empty output
// buffer reset bufferio.Facade needs (implements bufferio.MIDIMerger
// and bufferio.MIDIEmptier without importing that package, avoiding an
// import cycle).
type Merger struct{}

// NewMerger constructs a Merger. It carries no state.
func NewMerger() *Merger { return &Merger{} }

// Merge resets out and copies every event from sources into it in
// non-decreasing time order, a standard k-way merge over streams that
// are already individually time-ordered (§4.G). Events that don't fit
// are counted as lost, not silently dropped.
func (m *Merger) Merge(sources [][]byte, out []byte) int {
	nframes := uint32(0)
	for _, s := range sources {
		if len(s) >= headerSize {
			nframes = NFrames(s)
			break
		}
	}
	Reset(out, nframes)

	type cursor struct {
		buf   []byte
		index int
		count uint32
	}
	cursors := make([]cursor, 0, len(sources))
	for _, s := range sources {
		if len(s) < headerSize {
			continue
		}
		cursors = append(cursors, cursor{buf: s, count: EventCount(s)})
	}

	written := 0
	for {
		best := -1
		var bestTime uint32
		for i := range cursors {
			c := &cursors[i]
			if uint32(c.index) >= c.count {
				continue
			}
			t, _, ok := ReadEvent(c.buf, c.index)
			if !ok {
				continue
			}
			if best == -1 || t < bestTime {
				best = i
				bestTime = t
			}
		}
		if best == -1 {
			break
		}
		c := &cursors[best]
		_, data, _ := ReadEvent(c.buf, c.index)
		c.index++
		if err := WriteEvent(out, bestTime, data); err == nil {
			written++
		}
	}
	return written
}

// Empty resets out to a valid, event-free buffer (§4.F: output MIDI
// ports with nothing produced this cycle always get an empty buffer).
func (m *Merger) Empty(out []byte) {
	Reset(out, NFrames(out))
}
