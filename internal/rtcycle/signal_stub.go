//go:build !linux

// File: internal/rtcycle/signal_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-Linux builds get a channel-backed Signaler so the cycle engine
// still builds and tests; real deployments are Linux-only (§4.E).

package rtcycle

import (
	"fmt"
	"sync"
)

// ChanSignaler simulates eventfd wake/fan-out-signal semantics with
// channels, recording every fd a SignalFD call targeted so tests can
// assert on fan-out behavior without a real eventfd.
type ChanSignaler struct {
	activation chan struct{}
	nowMicros  func() int64

	mu       sync.Mutex
	signaled []int32
}

// NewChanSignaler returns a Signaler backed by a buffered channel.
func NewChanSignaler(nowMicros func() int64) *ChanSignaler {
	return &ChanSignaler{
		activation: make(chan struct{}, 1),
		nowMicros:  nowMicros,
	}
}

func (s *ChanSignaler) Wait() (int64, error) {
	_, ok := <-s.activation
	if !ok {
		return 0, fmt.Errorf("rtcycle: signaler closed")
	}
	return s.nowMicros(), nil
}

// SignalFD records fd as signaled this cycle.
func (s *ChanSignaler) SignalFD(fd int32) error {
	s.mu.Lock()
	s.signaled = append(s.signaled, fd)
	s.mu.Unlock()
	return nil
}

// Signaled returns every fd SignalFD has been called with, in order.
func (s *ChanSignaler) Signaled() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int32(nil), s.signaled...)
}

// Activate wakes a pending Wait call; used by the owning client loop
// to drive its own cycle without real eventfds.
func (s *ChanSignaler) Activate() {
	select {
	case s.activation <- struct{}{}:
	default:
	}
}

func (s *ChanSignaler) Close() error {
	close(s.activation)
	return nil
}
