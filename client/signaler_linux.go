//go:build linux

// File: client/signaler_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"time"

	"github.com/momentics/graphbridge/internal/rtcycle"
)

// newActivationSignaler creates this node's own eventfd-backed Signaler
// and returns its readfd to hand the server via transport(...). Peers
// wanting to signal this node get that fd only through a genuine
// set_activation naming this node's id; this function never fabricates
// a second "peer" end for the node to signal itself with.
func newActivationSignaler() (rtcycle.Signaler, int32, error) {
	activationFD, err := rtcycle.NewActivationEventfd()
	if err != nil {
		return nil, 0, err
	}
	nowMicros := func() int64 { return time.Now().UnixMicro() }
	return rtcycle.NewEventfdSignaler(activationFD, nowMicros), int32(activationFD), nil
}
