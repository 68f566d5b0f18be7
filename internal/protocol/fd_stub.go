//go:build !linux

// File: internal/protocol/fd_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// closeFD is a no-op off Linux; this bridge's fd-bearing messages are
// only meaningful on the Linux eventfd-based transport (§4.E).
func closeFD(fd int32) {}
