// File: internal/rtcycle/cycle_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rtcycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/activation"
	"github.com/momentics/graphbridge/internal/timebase"
)

// fakeSignaler lets a test drive exactly N cycles deterministically.
type fakeSignaler struct {
	awakeTimes []int64
	idx        int
	signaled   []int32
}

func (f *fakeSignaler) Wait() (int64, error) {
	t := f.awakeTimes[f.idx]
	f.idx++
	return t, nil
}

func (f *fakeSignaler) SignalFD(fd int32) error {
	f.signaled = append(f.signaled, fd)
	return nil
}

func (f *fakeSignaler) Close() error { return nil }

func TestRunOnceInvokesCallbacksInOrder(t *testing.T) {
	var order []string

	sig := &fakeSignaler{awakeTimes: []int64{1000}}
	tr := timebase.NewTransport()

	cb := Callbacks{
		ThreadInit: func() { order = append(order, "init") },
		BufferSize: func(f uint32) int { order = append(order, "bufsize"); return 0 },
		Process:    func(n uint32) int { order = append(order, "process"); return 0 },
		MIDITee:    func(n uint32) { order = append(order, "midi") },
	}

	e := NewEngine(1, sig, tr, cb, func() int64 { return 2000 })
	e.SetBufferFrames(256)

	peers := activation.NewTable()
	rec := activation.NewRecord()
	rec.Pending.Store(1)
	peers.Upsert(activation.Link{NodeID: 9, Activation: rec, SignalFD: 7})
	e.SetPeers(peers)

	require.NoError(t, e.RunOnce(256))
	require.Equal(t, []string{"init", "bufsize", "process", "midi"}, order)
	require.Equal(t, []int32{7}, sig.signaled)
	require.Equal(t, api.StatusFinished, e.Status())
	require.Equal(t, api.StatusTriggered, api.ActivationStatus(rec.Status.Load()))
}

func TestRunOnceCallsThreadInitOnlyOnce(t *testing.T) {
	inits := 0
	sig := &fakeSignaler{awakeTimes: []int64{1, 2, 3}}
	tr := timebase.NewTransport()
	cb := Callbacks{ThreadInit: func() { inits++ }}
	e := NewEngine(1, sig, tr, cb, func() int64 { return 0 })

	require.NoError(t, e.RunOnce(128))
	require.NoError(t, e.RunOnce(128))
	require.NoError(t, e.RunOnce(128))
	require.Equal(t, 1, inits)
}

func TestRunOnceSyncCallbackGatesRoll(t *testing.T) {
	sig := &fakeSignaler{awakeTimes: []int64{1, 2}}
	tr := timebase.NewTransport()
	tr.RequestStart()

	ready := false
	cb := Callbacks{Sync: func(state api.TransportState, pos timebase.Position) bool { return ready }}
	e := NewEngine(1, sig, tr, cb, func() int64 { return 0 })

	require.NoError(t, e.RunOnce(128))
	require.Equal(t, api.TransportStarting, tr.State(), "sync callback returning false must keep transport starting")

	ready = true
	require.NoError(t, e.RunOnce(128))
	require.Equal(t, api.TransportRolling, tr.State())
}

func TestRunOnceOnlyTimebaseOwnerEmitsBBT(t *testing.T) {
	sig := &fakeSignaler{awakeTimes: []int64{1}}
	tr := timebase.NewTransport()

	calls := 0
	cb := Callbacks{Timebase: func(state api.TransportState, n uint32, pos *timebase.Position, newPos bool) { calls++ }}
	e := NewEngine(42, sig, tr, cb, func() int64 { return 0 })

	require.NoError(t, e.RunOnce(128))
	require.Zero(t, calls, "non-owner must not receive timebase callback")

	tr.Owner().Acquire(42, true)
	sig.awakeTimes = append(sig.awakeTimes, 2)
	require.NoError(t, e.RunOnce(128))
	require.Equal(t, 1, calls)
}

func TestRunOnceAdvancesTransportFrameWhileRolling(t *testing.T) {
	sig := &fakeSignaler{awakeTimes: []int64{1}}
	tr := timebase.NewTransport()
	tr.RequestStart()
	tr.Roll()

	e := NewEngine(1, sig, tr, Callbacks{}, func() int64 { return 0 })
	require.NoError(t, e.RunOnce(256))
	require.EqualValues(t, 256, tr.Frame())
}

func TestRunOnceProcessNonZeroTriggersShutdown(t *testing.T) {
	sig := &fakeSignaler{awakeTimes: []int64{1}}
	tr := timebase.NewTransport()

	shutdownCalled := false
	cb := Callbacks{
		Process:  func(n uint32) int { return 1 },
		Shutdown: func() { shutdownCalled = true },
	}
	e := NewEngine(1, sig, tr, cb, func() int64 { return 0 })
	require.NoError(t, e.RunOnce(128))
	require.True(t, shutdownCalled)
}
