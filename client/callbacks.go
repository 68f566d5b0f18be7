// File: client/callbacks.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Callback setters (§6). Every Set*Callback setter except
// SetFreewheelCallback fails with api.ErrClientActive if the client has
// already been activated; the On* forwarders carry no such check.
// Process and thread callbacks are mutually exclusive, matching the
// legacy ABI.

package client

import (
	"fmt"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/rtcycle"
	"github.com/momentics/graphbridge/internal/timebase"
)

func (c *Client) guardSetter() error {
	if c.active.Load() {
		return fmt.Errorf("client: set callback while active: %w", api.ErrClientActive)
	}
	return nil
}

// SetProcessCallback installs the per-cycle processing hook. Mutually
// exclusive with SetThreadCallback.
func (c *Client) SetProcessCallback(fn rtcycle.ProcessFunc) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	if c.threadSet {
		return fmt.Errorf("client: process callback conflicts with thread callback: %w", api.ErrNotSupported)
	}
	c.callbacks.Process = fn
	c.processSet = fn != nil
	return nil
}

// SetThreadCallback installs a thread-style processing hook. Mutually
// exclusive with SetProcessCallback.
func (c *Client) SetThreadCallback(fn rtcycle.ProcessFunc) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	if c.processSet {
		return fmt.Errorf("client: thread callback conflicts with process callback: %w", api.ErrNotSupported)
	}
	c.callbacks.Process = fn
	c.threadSet = fn != nil
	return nil
}

// SetThreadInitCallback installs the hook run once before the first
// realtime cycle.
func (c *Client) SetThreadInitCallback(fn func()) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.callbacks.ThreadInit = fn
	return nil
}

// SetBufferSizeCallback installs the buffer-size-change hook.
func (c *Client) SetBufferSizeCallback(fn func(frames uint32) int) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.callbacks.BufferSize = fn
	return nil
}

// SetSampleRateCallback installs the sample-rate-change hook.
func (c *Client) SetSampleRateCallback(fn func(rate uint32) int) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.callbacks.SampleRate = fn
	return nil
}

// SetXRunCallback installs the xrun-notification hook.
func (c *Client) SetXRunCallback(fn func() int) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.callbacks.XRun = fn
	return nil
}

// SetShutdownCallback installs the hook run when the connection is
// lost or the thread loop exits unexpectedly.
func (c *Client) SetShutdownCallback(fn func()) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.callbacks.Shutdown = fn
	return nil
}

// SetSyncCallback installs the transport-roll readiness gate (§4.H).
func (c *Client) SetSyncCallback(fn rtcycle.SyncFunc) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.callbacks.Sync = fn
	return nil
}

// SetTimebaseCallback attempts to become timebase master (§4.H). The
// election is held in this client's own timebase.Transport owner slot,
// which no other Client shares; a conditional request fails with
// api.ErrBusy only when that slot already names a different node id.
func (c *Client) SetTimebaseCallback(fn timebase.TimebaseFunc, conditional bool) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	if !c.transport.Owner().Acquire(c.nodeID, conditional) {
		return api.ErrBusy
	}
	c.callbacks.Timebase = fn
	return nil
}

// ReleaseTimebase relinquishes the timebase master role if this client
// currently holds it.
func (c *Client) ReleaseTimebase() {
	c.transport.Owner().Release(c.nodeID)
	c.callbacks.Timebase = nil
}

// Several legacy setters correspond to registration events this bridge
// answers through the registry mirror directly rather than the
// realtime cycle; they are thin forwarders with no EIO-while-active
// restriction since they never touch the data loop.

// OnClientRegistration installs the client registration callback.
func (c *Client) OnClientRegistration(fn func(id uint32, removed bool)) {
	// client (node) registration events are not separately tracked by
	// the mirror; nodes cover both roles (§4.A).
	c.mirror.OnNodeRegistration(fn)
}

// OnPortRegistration installs the port registration callback.
func (c *Client) OnPortRegistration(fn func(id uint32, removed bool)) {
	c.mirror.OnPortRegistration(fn)
}

// OnGraphOrder installs the graph-order-changed callback, and
// OnPortConnect the per-link connect/disconnect callback; both are
// driven off the same link registration stream (§4.A), so the mirror's
// single onLink slot fans out to whichever of the two is registered.
func (c *Client) OnGraphOrder(fn func()) {
	c.graphOrderFn = fn
	c.installLinkDispatch()
}

func (c *Client) OnPortConnect(fn func(a, b uint32, connected bool)) {
	c.portConnectFn = fn
	c.installLinkDispatch()
}

func (c *Client) installLinkDispatch() {
	if c.graphOrderFn == nil && c.portConnectFn == nil {
		c.mirror.OnLinkRegistration(nil)
		return
	}
	c.mirror.OnLinkRegistration(func(id uint32, removed bool) {
		if c.portConnectFn != nil {
			if obj, ok := c.mirror.ByID(id); ok {
				c.portConnectFn(obj.Link.SrcPort, obj.Link.DstPort, !removed)
			}
		}
		if c.graphOrderFn != nil {
			c.graphOrderFn()
		}
	})
}

// SetInfoShutdownCallback installs the extended shutdown notification
// (code + reason), invoked alongside the plain shutdown hook when the
// thread loop exits on connection loss (§7 "connection loss").
func (c *Client) SetInfoShutdownCallback(fn func(code int, reason string)) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.infoShutdownFn = fn
	return nil
}

// SetLatencyCallback installs the latency-range-changed notification,
// fired by SetPortLatencyRange (§6).
func (c *Client) SetLatencyCallback(fn func(mode api.Direction)) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.latencyFn = fn
	return nil
}

// SetPortRenameCallback installs the port-rename notification. No event
// source in this bridge ever fires it (the node/port protocol this
// client speaks has no rename message); kept only so callers linking
// against the legacy ABI compile and run unchanged.
func (c *Client) SetPortRenameCallback(fn func(port uint32, oldName, newName string)) error {
	if err := c.guardSetter(); err != nil {
		return err
	}
	c.portRenameFn = fn
	return nil
}

// SetFreewheelCallback is intentionally unimplemented (§7 "unsupported
// operation": freewheel mode has no equivalent in this bridge's
// scheduling model). Logs at warn level and returns ENOTSUP; never
// aborts.
func (c *Client) SetFreewheelCallback(fn func(starting bool) int) error {
	c.log.Warn("callback not implemented by this bridge", "callback", "freewheel")
	return fmt.Errorf("%w: freewheel callback", api.ErrNotSupported)
}
