// File: client/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Time/transport API (§6), wrapping internal/timebase.Transport. Frame
// arithmetic is a pure function of the sample rate this client
// negotiated; nothing here touches the data loop directly.

package client

import "github.com/momentics/graphbridge/api"

// FrameTime returns the transport's current frame position.
func (c *Client) FrameTime() uint64 { return c.transport.Frame() }

// LastFrameTime returns the same value as FrameTime. The cycle engine
// advances the frame counter at the end of each cycle (§4.E step 11),
// so between cycles this is the frame the next cycle starts at; the
// frame a completed cycle started at is not recorded separately.
func (c *Client) LastFrameTime() uint64 { return c.transport.Frame() }

// FramesToTime converts a frame count to microseconds at the
// negotiated sample rate.
func (c *Client) FramesToTime(frames uint64) uint64 {
	rate := uint64(c.cfg.LatencySampleRate)
	if rate == 0 {
		return 0
	}
	return frames * 1_000_000 / rate
}

// TimeToFrames converts microseconds to a frame count at the
// negotiated sample rate.
func (c *Client) TimeToFrames(micros uint64) uint64 {
	rate := uint64(c.cfg.LatencySampleRate)
	return micros * rate / 1_000_000
}

// CycleTimes is the legacy ABI's get_cycle_times result: the frame this
// cycle started at plus the cycle's expected duration, in microseconds.
type CycleTimes struct {
	CurrentFrames uint64
	CurrentUsecs  uint64
	NextUsecs     uint64
	PeriodUsecs   float64
}

// GetCycleTimes returns the current cycle's timing snapshot.
func (c *Client) GetCycleTimes() CycleTimes {
	frames := c.transport.Frame()
	periodUsecs := float64(c.FramesToTime(uint64(c.cfg.LatencyFrames)))
	now := c.FramesToTime(frames)
	return CycleTimes{
		CurrentFrames: frames,
		CurrentUsecs:  now,
		NextUsecs:     now + uint64(periodUsecs),
		PeriodUsecs:   periodUsecs,
	}
}

// TransportQuery returns the current transport state and position.
func (c *Client) TransportQuery() (api.TransportState, uint64) {
	return c.transport.State(), c.transport.Frame()
}

// TransportReposition seeks the transport to frame without changing its
// rolling/stopped state (§4.H): the request is recorded on this node's
// own activation record (reposition frame, reposition owner, pending
// new position) for the driver to pick up, and the local fallback frame
// is set too, which TransportQuery reports while no driver position is
// bound.
func (c *Client) TransportReposition(frame uint64) {
	rec := c.handler.OwnRecord()
	rec.RepositionFrame.Store(frame)
	rec.RepositionOwner.Store(int32(c.nodeID))
	rec.PendingNewPosition.Store(true)
	c.transport.Reposition(frame)
}

// TransportLocate is the legacy alias for TransportReposition.
func (c *Client) TransportLocate(frame uint64) {
	c.TransportReposition(frame)
}

// TransportStart requests the transport roll, gated by any registered
// sync callback (§4.E step 6).
func (c *Client) TransportStart() {
	c.transport.RequestStart()
}

// TransportStop halts the transport immediately.
func (c *Client) TransportStop() {
	c.transport.Stop()
}

// CPULoad is a placeholder the legacy ABI expects to report the
// fraction of the cycle budget the process callback consumed; this
// bridge does not yet sample per-cycle wall time, so it always reports
// zero load rather than a fabricated figure.
func (c *Client) CPULoad() float32 { return 0 }
