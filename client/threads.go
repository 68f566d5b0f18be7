// File: client/threads.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-management API (§6). Go has no native thread-kill; both the
// "stop" and "kill" variants the legacy ABI distinguishes collapse into
// the same cooperative-join mechanism here (§5 "Thread cancellation is
// supported for realtime threads via cooperative join").

package client

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/momentics/graphbridge/affinity"
	"github.com/momentics/graphbridge/api"
)

// ManagedThread is a goroutine created through ClientCreateThread,
// optionally pinned to a CPU core.
type ManagedThread struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

// ThreadCreator spawns fn as a managed thread, given an optional CPU
// core to pin it to (-1 for no pinning).
type ThreadCreator func(fn func(stop <-chan struct{}), cpu int) (*ManagedThread, error)

func defaultThreadCreator(fn func(stop <-chan struct{}), cpu int) (*ManagedThread, error) {
	t := &ManagedThread{stop: make(chan struct{})}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if cpu >= 0 {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := affinity.SetAffinity(cpu); err != nil {
				return
			}
		}
		fn(t.stop)
	}()
	return t, nil
}

// SetThreadCreator overrides the goroutine-spawning strategy Client uses
// for ClientCreateThread, mirroring the legacy API's pluggable thread
// creator hook.
func (c *Client) SetThreadCreator(creator ThreadCreator) {
	if creator == nil {
		creator = defaultThreadCreator
	}
	c.threadCreator = creator
}

// ClientCreateThread spawns fn on a managed thread, using the
// thread-creator hook if one was installed or the default pthread-style
// creator otherwise.
func (c *Client) ClientCreateThread(fn func(stop <-chan struct{}), cpu int) (*ManagedThread, error) {
	creator := c.threadCreator
	if creator == nil {
		creator = defaultThreadCreator
	}
	t, err := creator(fn, cpu)
	if err != nil {
		return nil, fmt.Errorf("client: create thread: %w", err)
	}
	return t, nil
}

// ClientStopThread requests a cooperative stop and waits for exit.
func (c *Client) ClientStopThread(t *ManagedThread) error {
	if t == nil {
		return api.ErrInvalidArgument
	}
	close(t.stop)
	t.wg.Wait()
	return nil
}

// ClientKillThread is the legacy API's forced-termination variant; Go
// offers no safe forced thread kill, so this is the same cooperative
// stop as ClientStopThread.
func (c *Client) ClientKillThread(t *ManagedThread) error {
	return c.ClientStopThread(t)
}

// IsRealtime always reports true, as the legacy API does. The data loop
// itself runs on an ordinary goroutine; no realtime scheduling policy
// is applied to it.
func (c *Client) IsRealtime() bool { return true }

// ClientRealTimePriority returns the fixed realtime priority the legacy
// API reports for its realtime threads.
func (c *Client) ClientRealTimePriority() int { return api.RealTimePriority }
