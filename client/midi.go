// File: client/midi.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MIDI API (§6), operating on the []byte view port_get_buffer already
// handed back for a MIDI port this cycle.

package client

import (
	"github.com/momentics/graphbridge/internal/midi"
	"github.com/momentics/graphbridge/internal/portpool"
)

// midiTee refreshes every registered MIDI port's buffer once per cycle
// (§4.E step 10): input ports get the merged, time-ordered stream from
// their feeding mixes; every output port's buffer is reset to a valid,
// empty buffer, which discards whatever the process callback wrote into
// it. No output event is converted into a server buffer or sent anywhere.
func (c *Client) midiTee(nframes uint32) {
	c.midiPortsMu.Lock()
	ports := append([]*portpool.Port(nil), c.midiPorts...)
	c.midiPortsMu.Unlock()

	for _, port := range ports {
		c.facade.GetMIDIBuffer(port, nframes)
	}
}

// MIDIGetEventCount returns the number of events currently in buf.
func (c *Client) MIDIGetEventCount(buf []byte) uint32 { return midi.EventCount(buf) }

// MIDIEventGet returns the time and payload of the event at index.
func (c *Client) MIDIEventGet(buf []byte, index int) (time uint32, data []byte, ok bool) {
	return midi.ReadEvent(buf, index)
}

// MIDIClearBuffer and MIDIResetBuffer both reinitialize buf as empty
// for nframes frames; the legacy ABI exposes them as two names for the
// same operation.
func (c *Client) MIDIClearBuffer(buf []byte, nframes uint32) { midi.Reset(buf, nframes) }
func (c *Client) MIDIResetBuffer(buf []byte, nframes uint32) { midi.Reset(buf, nframes) }

// MIDIMaxEventSize is the legacy API's constant cap on a single MIDI
// event payload the bridge will accept without overflowing the
// port buffer's downward-growing payload heap.
func (c *Client) MIDIMaxEventSize() int { return 1024 }

// MIDIEventReserve writes a placeholder event of size bytes and returns
// the slice a caller fills in directly, avoiding an extra copy for
// callers that build the payload in place.
func (c *Client) MIDIEventReserve(buf []byte, time uint32, size int) ([]byte, error) {
	if err := midi.WriteEvent(buf, time, make([]byte, size)); err != nil {
		return nil, err
	}
	_, data, _ := midi.ReadEvent(buf, int(midi.EventCount(buf))-1)
	return data, nil
}

// MIDIEventWrite appends a fully-formed event.
func (c *Client) MIDIEventWrite(buf []byte, time uint32, data []byte) error {
	return midi.WriteEvent(buf, time, data)
}

// MIDIGetLostEventCount returns the number of events dropped this cycle
// for lack of buffer room.
func (c *Client) MIDIGetLostEventCount(buf []byte) uint32 { return midi.LostEvents(buf) }
