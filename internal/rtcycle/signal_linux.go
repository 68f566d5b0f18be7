//go:build linux

// File: internal/rtcycle/signal_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventfdSignaler drives the realtime cycle from real eventfd(2)
// descriptors: a blocking 8-byte read wakes the client, a matching
// write wakes the downstream peer.

package rtcycle

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// EventfdSignaler drives the realtime cycle from this node's own
// activation eventfd and writes to an arbitrary peer eventfd per
// SignalFD call, since a node may fan its signal out to many peers
// (§4.E step 12), not just one.
type EventfdSignaler struct {
	activationFD int
	nowMicros    func() int64
}

// NewEventfdSignaler constructs an EventfdSignaler from this node's own
// already-open activation eventfd, handed over via transport(...).
// nowMicros supplies the monotonic clock; production callers pass a
// wrapper over time.Now, tests pass a fake.
func NewEventfdSignaler(activationFD int, nowMicros func() int64) *EventfdSignaler {
	return &EventfdSignaler{activationFD: activationFD, nowMicros: nowMicros}
}

// Wait performs the blocking eventfd read that wakes this client's
// cycle (§4.E step 1).
func (s *EventfdSignaler) Wait() (int64, error) {
	var buf [8]byte
	n, err := unix.Read(s.activationFD, buf[:])
	if err != nil {
		return 0, fmt.Errorf("rtcycle: eventfd read: %w", err)
	}
	if n != 8 {
		return 0, fmt.Errorf("rtcycle: short eventfd read: %d bytes", n)
	}
	return s.nowMicros(), nil
}

// SignalFD writes a single activation count to the given peer eventfd.
func (s *EventfdSignaler) SignalFD(fd int32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(int(fd), buf[:]); err != nil {
		return fmt.Errorf("rtcycle: eventfd write: %w", err)
	}
	return nil
}

// Close releases this node's own activation eventfd. Peer eventfds are
// owned by the Link/Table that dispensed them, not by the Signaler.
// A Wait blocked in read(2) is woken by one final count first, since
// closing the descriptor alone does not interrupt it.
func (s *EventfdSignaler) Close() error {
	_ = s.SignalFD(int32(s.activationFD))
	if err := unix.Close(s.activationFD); err != nil {
		return err
	}
	return nil
}

// NewActivationEventfd creates a fresh non-semaphore eventfd suitable
// for use as an activation or peer-signal descriptor.
func NewActivationEventfd() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("rtcycle: eventfd create: %w", err)
	}
	return fd, nil
}
