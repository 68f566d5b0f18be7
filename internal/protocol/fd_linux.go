//go:build linux

// File: internal/protocol/fd_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "golang.org/x/sys/unix"

// closeFD best-effort closes a descriptor handed over in a transport or
// set_activation message that this bridge has no further use for.
func closeFD(fd int32) {
	_ = unix.Close(int(fd))
}
