// File: internal/rtcycle/cycle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine runs the realtime cycle: a per-activation sequence of
// bookkeeping, callback invocation, and peer signaling (§4.E). After
// the initial eventfd wait, the peer fan-out takes the peer table's
// mutex (also taken by the protocol handler) to copy the links into a
// slice allocated each cycle, and a failed peer write is logged
// synchronously from this loop.

package rtcycle

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/activation"
	"github.com/momentics/graphbridge/internal/obslog"
	"github.com/momentics/graphbridge/internal/timebase"
)

// XRunGraceMicros bounds how late an activation may arrive before the
// cycle treats it as an xrun (§4.E step 7).
const XRunGraceMicros = 500

// Engine drives one client's realtime cycle.
type Engine struct {
	clientID  uint32
	signaler  Signaler
	transport *timebase.Transport
	callbacks Callbacks
	nowMicros func() int64
	log       *obslog.Logger

	peers *activation.Table

	bufferFrames atomic.Uint32
	sampleRate   atomic.Uint32

	lastBufferFrames uint32
	lastSampleRate   uint32
	threadInitDone   bool

	deadlineMicros int64
	activationStat atomic.Int32
}

// NewEngine constructs an Engine. nowMicros supplies the monotonic
// clock the xrun check uses.
func NewEngine(clientID uint32, signaler Signaler, transport *timebase.Transport, cb Callbacks, nowMicros func() int64) *Engine {
	e := &Engine{
		clientID:  clientID,
		signaler:  signaler,
		transport: transport,
		callbacks: cb,
		nowMicros: nowMicros,
		log:       obslog.For("rtcycle.engine"),
	}
	e.activationStat.Store(int32(api.StatusIdle))
	return e
}

// SetBufferFrames updates the client's current cycle size; picked up
// at the start of the next cycle.
func (e *Engine) SetBufferFrames(frames uint32) { e.bufferFrames.Store(frames) }

// SetSampleRate updates the client's current sample rate; picked up at
// the start of the next cycle.
func (e *Engine) SetSampleRate(rate uint32) { e.sampleRate.Store(rate) }

// SetPeers wires the peer-link table this node fans its signal out to
// at the end of every cycle (§4.E step 12). Must be set before Run
// starts; nil is treated as "no peers yet".
func (e *Engine) SetPeers(peers *activation.Table) { e.peers = peers }

// Status returns the engine's current activation status.
func (e *Engine) Status() api.ActivationStatus {
	return api.ActivationStatus(e.activationStat.Load())
}

// RunOnce executes exactly one realtime cycle for nframes frames
// (§4.E steps 1-12). It blocks on the signaler's activation wait.
func (e *Engine) RunOnce(nframes uint32) error {
	awakeAt, err := e.signaler.Wait()
	if err != nil {
		return fmt.Errorf("rtcycle: wait: %w", err)
	}
	e.activationStat.Store(int32(api.StatusAwake))

	if !e.threadInitDone {
		if e.callbacks.ThreadInit != nil {
			e.callbacks.ThreadInit()
		}
		e.threadInitDone = true
	}

	if cur := e.bufferFrames.Load(); cur != 0 && cur != e.lastBufferFrames {
		if e.callbacks.BufferSize != nil {
			e.callbacks.BufferSize(cur)
		}
		e.lastBufferFrames = cur
	}
	if cur := e.sampleRate.Load(); cur != 0 && cur != e.lastSampleRate {
		if e.callbacks.SampleRate != nil {
			e.callbacks.SampleRate(cur)
		}
		e.lastSampleRate = cur
	}

	state := e.transport.State()
	pos := timebase.Position{Frame: e.transport.Frame(), State: state}

	if state == api.TransportStarting {
		ready := true
		if e.callbacks.Sync != nil {
			ready = e.callbacks.Sync(state, pos)
		}
		if ready {
			e.transport.Roll()
			state = e.transport.State()
		}
	}

	if e.deadlineMicros != 0 && awakeAt > e.deadlineMicros+XRunGraceMicros {
		if e.callbacks.XRun != nil {
			e.callbacks.XRun()
		}
	}

	stopRequested := false
	if e.callbacks.Process != nil {
		if e.callbacks.Process(nframes) != 0 {
			stopRequested = true
		}
	}

	if e.transport.Owner().IsOwner(e.clientID) && e.callbacks.Timebase != nil {
		bbtPos := pos
		e.callbacks.Timebase(state, nframes, &bbtPos, false)
	}

	if e.callbacks.MIDITee != nil {
		e.callbacks.MIDITee(nframes)
	}

	e.transport.Advance(nframes)
	e.activationStat.Store(int32(api.StatusFinished))
	e.deadlineMicros = awakeAt + cycleBudgetMicros(nframes, e.lastSampleRate)

	e.signalPeers()

	if stopRequested && e.callbacks.Shutdown != nil {
		e.callbacks.Shutdown()
	}
	return nil
}

// Run repeatedly calls RunOnce with the current buffer size until the
// signaler returns an error (peer/activation descriptor closed) or the
// done channel is closed.
func (e *Engine) Run(done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		default:
		}
		frames := e.bufferFrames.Load()
		if frames == 0 {
			frames = e.lastBufferFrames
		}
		if err := e.RunOnce(frames); err != nil {
			return err
		}
	}
}

// signalPeers fans this cycle's completion out to every peer link
// (§4.E step 12): each peer's Pending counter is decremented
// independently, the peer is marked StatusTriggered the moment its
// counter reaches zero, and one peer's signalfd failure never stops
// the others from being notified.
func (e *Engine) signalPeers() {
	if e.peers == nil {
		return
	}
	for _, link := range e.peers.Links() {
		if link.Activation != nil {
			if link.Activation.Pending.Add(-1) <= 0 {
				link.Activation.Status.Store(int32(api.StatusTriggered))
				link.Activation.SignalMicros.Store(e.nowMicros())
			}
		}
		if err := e.signaler.SignalFD(link.SignalFD); err != nil {
			e.log.Warn("rtcycle: signal peer failed", "peer", link.NodeID, "err", err)
		}
	}
}

func cycleBudgetMicros(nframes uint32, sampleRate uint32) int64 {
	if sampleRate == 0 {
		return 0
	}
	return int64(nframes) * 1_000_000 / int64(sampleRate)
}
