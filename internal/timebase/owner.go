// File: internal/timebase/owner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Owner elects at most one client as the timebase master (§4.H:
// set_timebase_callback/release_timebase). A conditional acquisition
// fails if someone else already holds the role; an unconditional one
// always takes over.

package timebase

import "sync/atomic"

// noOwner is the sentinel value meaning "no timebase master elected".
const noOwner = -1

// Owner is a CAS-guarded single-writer election over a client id space.
type Owner struct {
	current atomic.Int64
}

// NewOwner returns an Owner with no elected master.
func NewOwner() *Owner {
	o := &Owner{}
	o.current.Store(noOwner)
	return o
}

// Acquire attempts to become timebase master as clientID. If conditional
// is true, acquisition fails when another client already holds the
// role; if false, it unconditionally displaces any current holder.
func (o *Owner) Acquire(clientID uint32, conditional bool) bool {
	for {
		cur := o.current.Load()
		if cur != noOwner && cur != int64(clientID) {
			if conditional {
				return false
			}
		}
		if o.current.CompareAndSwap(cur, int64(clientID)) {
			return true
		}
	}
}

// Release relinquishes the timebase role if clientID currently holds it.
// Releasing when not the holder is a no-op and reports false.
func (o *Owner) Release(clientID uint32) bool {
	return o.current.CompareAndSwap(int64(clientID), noOwner)
}

// IsOwner reports whether clientID currently holds the timebase role.
func (o *Owner) IsOwner(clientID uint32) bool {
	return o.current.Load() == int64(clientID)
}

// HasOwner reports whether any client currently holds the timebase role.
func (o *Owner) HasOwner() bool {
	return o.current.Load() != noOwner
}
