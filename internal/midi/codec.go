// File: internal/midi/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The legacy MIDI port buffer layout (§4.G): a fixed header, event
// records growing upward from just past the header, and event payloads
// larger than 4 bytes growing downward from the end of the buffer.
// Payloads of 4 bytes or fewer (the overwhelming majority of MIDI
// messages) are packed inline in the record itself.

package midi

import (
	"encoding/binary"
	"errors"
)

// Magic identifies a buffer as a legacy MIDI port buffer.
const Magic uint32 = 0x4a4d4944 // "JMID"

const (
	headerSize      = 24
	eventRecordSize = 12
)

// ErrBufferFull is returned when an event record or its payload would
// collide the upward-growing record table with the downward-growing
// payload heap; the header's lost-event counter is bumped instead of
// returning a partial write.
var ErrBufferFull = errors.New("midi: buffer full")

// Header is the fixed prologue of a MIDI port buffer.
type Header struct {
	Magic      uint32
	BufferSize uint32
	NFrames    uint32
	WritePos   uint32 // current low-water mark of the payload heap
	EventCount uint32
	LostEvents uint32
}

func readHeader(buf []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		BufferSize: binary.LittleEndian.Uint32(buf[4:8]),
		NFrames:    binary.LittleEndian.Uint32(buf[8:12]),
		WritePos:   binary.LittleEndian.Uint32(buf[12:16]),
		EventCount: binary.LittleEndian.Uint32(buf[16:20]),
		LostEvents: binary.LittleEndian.Uint32(buf[20:24]),
	}
}

func putHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.BufferSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.NFrames)
	binary.LittleEndian.PutUint32(buf[12:16], h.WritePos)
	binary.LittleEndian.PutUint32(buf[16:20], h.EventCount)
	binary.LittleEndian.PutUint32(buf[20:24], h.LostEvents)
}

type eventRecord struct {
	Time  uint32
	Size  uint32
	Field uint32 // inline payload (size<=4) or byte offset into the heap
}

func readEventRecord(buf []byte) eventRecord {
	return eventRecord{
		Time:  binary.LittleEndian.Uint32(buf[0:4]),
		Size:  binary.LittleEndian.Uint32(buf[4:8]),
		Field: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

func putEventRecord(buf []byte, r eventRecord) {
	binary.LittleEndian.PutUint32(buf[0:4], r.Time)
	binary.LittleEndian.PutUint32(buf[4:8], r.Size)
	binary.LittleEndian.PutUint32(buf[8:12], r.Field)
}

// Reset reinitializes buf as an empty MIDI buffer for nframes frames.
func Reset(buf []byte, nframes uint32) {
	putHeader(buf, Header{
		Magic:      Magic,
		BufferSize: uint32(len(buf)),
		NFrames:    nframes,
		WritePos:   uint32(len(buf)),
	})
}

// EventCount returns the number of events currently in buf.
func EventCount(buf []byte) uint32 { return readHeader(buf).EventCount }

// LostEvents returns the number of events dropped for lack of room.
func LostEvents(buf []byte) uint32 { return readHeader(buf).LostEvents }

// NFrames returns the cycle length buf was reset for.
func NFrames(buf []byte) uint32 { return readHeader(buf).NFrames }

// WriteEvent appends one event at the given frame-relative time. Events
// must be reserved in non-decreasing time order; a caller that
// violates this increments the header's lost-event counter and gets
// ErrBufferFull, same as running out of room. On overflow it increments
// the header's lost-event counter and returns ErrBufferFull rather than
// partially writing.
func WriteEvent(buf []byte, time uint32, data []byte) error {
	hdr := readHeader(buf)
	if hdr.EventCount > 0 {
		lastOffset := headerSize + int(hdr.EventCount-1)*eventRecordSize
		last := readEventRecord(buf[lastOffset : lastOffset+eventRecordSize])
		if time < last.Time {
			hdr.LostEvents++
			putHeader(buf, hdr)
			return ErrBufferFull
		}
	}
	recOffset := headerSize + int(hdr.EventCount)*eventRecordSize

	heapTop := hdr.WritePos
	var field uint32
	if len(data) <= 4 {
		var inline [4]byte
		copy(inline[:], data)
		field = binary.LittleEndian.Uint32(inline[:])
	} else {
		newTop := heapTop - uint32(len(data))
		if recOffset+eventRecordSize > int(newTop) {
			hdr.LostEvents++
			putHeader(buf, hdr)
			return ErrBufferFull
		}
		copy(buf[newTop:newTop+uint32(len(data))], data)
		field = newTop
		heapTop = newTop
	}

	if recOffset+eventRecordSize > int(heapTop) {
		hdr.LostEvents++
		putHeader(buf, hdr)
		return ErrBufferFull
	}

	putEventRecord(buf[recOffset:recOffset+eventRecordSize], eventRecord{Time: time, Size: uint32(len(data)), Field: field})
	hdr.EventCount++
	hdr.WritePos = heapTop
	putHeader(buf, hdr)
	return nil
}

// ReadEvent returns the time and payload of the event at index, or
// ok==false if index is out of range.
func ReadEvent(buf []byte, index int) (time uint32, data []byte, ok bool) {
	hdr := readHeader(buf)
	if index < 0 || uint32(index) >= hdr.EventCount {
		return 0, nil, false
	}
	recOffset := headerSize + index*eventRecordSize
	rec := readEventRecord(buf[recOffset : recOffset+eventRecordSize])
	if rec.Size <= 4 {
		var inline [4]byte
		binary.LittleEndian.PutUint32(inline[:], rec.Field)
		return rec.Time, append([]byte(nil), inline[:rec.Size]...), true
	}
	return rec.Time, buf[rec.Field : rec.Field+rec.Size], true
}
