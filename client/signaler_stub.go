//go:build !linux

// File: client/signaler_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"time"

	"github.com/momentics/graphbridge/internal/rtcycle"
)

// newActivationSignaler returns a channel-backed Signaler on platforms
// without eventfd; production deployments of this bridge are
// Linux-only (§4.E), matching the graph server it talks to. The
// returned -1 readfd is a placeholder: there is no real descriptor to
// report over transport(...) on this platform.
func newActivationSignaler() (rtcycle.Signaler, int32, error) {
	nowMicros := func() int64 { return time.Now().UnixMicro() }
	return rtcycle.NewChanSignaler(nowMicros), -1, nil
}
