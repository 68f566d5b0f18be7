// File: internal/activation/table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Table holds the peer Links a node's set_activation messages have
// established (§3, §4.D): the downstream nodes this node's realtime
// cycle must fan a signal out to once its own work is done (§4.E step
// 12). Tombstoned entries keep slot indices stable across a Clear, the
// same way the port/mix pools keep Index stable across a release.

package activation

import (
	"sync"

	"github.com/momentics/graphbridge/api"
)

// Link is one peer activation handle this node signals every cycle.
type Link struct {
	NodeID     uint32
	Activation *Record
	Mem        MemRegion
	SignalFD   int32
}

// MemRegion names the shared-memory region backing Activation, for
// bookkeeping only; the Table itself never maps or unmaps it.
type MemRegion struct {
	MemID  uint32
	Offset uint64
	Size   uint64
}

// Tombstone reports whether l is a cleared slot rather than a live peer.
func (l Link) Tombstone() bool { return l.NodeID == api.InvalidID }

// Table is the set of peer Links a node currently signals.
type Table struct {
	mu    sync.Mutex
	links []Link
}

// NewTable returns an empty Table.
func NewTable() *Table { return &Table{} }

// Upsert installs or replaces the Link for l.NodeID, reusing a
// tombstoned slot if one is free rather than growing the table.
func (t *Table) Upsert(l Link) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.links {
		if t.links[i].NodeID == l.NodeID {
			t.links[i] = l
			return
		}
	}
	for i := range t.links {
		if t.links[i].Tombstone() {
			t.links[i] = l
			return
		}
	}
	t.links = append(t.links, l)
}

// Clear tombstones the Link for nodeID, if present, keeping the slot's
// index stable for any caller still holding it.
func (t *Table) Clear(nodeID uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.links {
		if t.links[i].NodeID == nodeID {
			t.links[i] = Link{NodeID: api.InvalidID}
			return
		}
	}
}

// Find returns the live Link for nodeID, if any.
func (t *Table) Find(nodeID uint32) (Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.links {
		if l.NodeID == nodeID && !l.Tombstone() {
			return l, true
		}
	}
	return Link{}, false
}

// Links returns a snapshot of every live (non-tombstone) Link, safe for
// the realtime cycle to iterate without holding the table's own lock
// across the fan-out signal writes.
func (t *Table) Links() []Link {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Link, 0, len(t.links))
	for _, l := range t.links {
		if !l.Tombstone() {
			out = append(out, l)
		}
	}
	return out
}
