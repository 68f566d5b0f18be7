// File: internal/activation/record.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Record mirrors one node's shared activation block (§3): the status
// word the realtime cycle and its peers coordinate through, the
// pending-sync/pending-new-position flags, the timestamps a cycle
// stamps as it runs, the segment/reposition owner slots, and, for a
// driver node, the decoded position block a timebase observer reads.

package activation

import (
	"sync/atomic"

	"github.com/momentics/graphbridge/api"
)

// NoOwner marks an owner slot (segment, reposition) as unclaimed.
const NoOwner int32 = -1

// Record is the atomics-backed state one node's activation occupies.
// Every field here is written by at most one of {this node's own
// realtime cycle, a peer's fan-out step, the protocol handler}, so
// plain atomics (no mutex) are enough to keep the realtime path
// lock-free (§5).
type Record struct {
	Status             atomic.Int32 // api.ActivationStatus
	PendingSync         atomic.Bool
	PendingNewPosition  atomic.Bool
	AwakeMicros         atomic.Int64
	FinishMicros        atomic.Int64
	SignalMicros        atomic.Int64
	SegmentOwner        atomic.Int32
	RepositionOwner     atomic.Int32
	RepositionFrame     atomic.Uint64
	Command             atomic.Int32
	XRun                atomic.Uint32
	Pending             atomic.Int32

	position atomic.Pointer[PositionBlock]
}

// NewRecord returns a Record in the idle state with no owners claimed.
func NewRecord() *Record {
	r := &Record{}
	r.Status.Store(int32(api.StatusIdle))
	r.SegmentOwner.Store(NoOwner)
	r.RepositionOwner.Store(NoOwner)
	return r
}

// SetPosition publishes the decoded driver position block this record
// carries, if it belongs to a driver node.
func (r *Record) SetPosition(p *PositionBlock) { r.position.Store(p) }

// Position returns the record's current driver position block, or nil
// if this record has never had one bound.
func (r *Record) Position() *PositionBlock { return r.position.Load() }
