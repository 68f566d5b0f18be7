// File: internal/registry/mirror.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mirror maintains a local read-model of the graph server's nodes,
// ports, and links (§4.A). It is driven exclusively by registry events
// delivered on the thread loop and consulted only from non-realtime
// paths — never from the data loop.

package registry

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/momentics/graphbridge/api"
)

// Props is the server's key/value property bag for a global event.
type Props map[string]string

// EventFunc is a registration callback invoked with id and a removed flag.
type EventFunc func(id uint32, removed bool)

// Mirror is the registry mirror for one client.
type Mirror struct {
	mu    sync.RWMutex
	arena *arena

	byID  map[uint32]*Object
	nodes []uint32
	ports []uint32
	links []uint32

	clientNodeID uint32
	// localPorts maps a full port name to the Object created by this
	// client's own port_register before the server's global event for it
	// arrives, so that event can be matched and reused instead of
	// allocating a duplicate entry (§4.A).
	localPorts map[string]*Object

	closed bool

	unlock func()
	relock func()

	onNode EventFunc
	onPort EventFunc
	onLink EventFunc
}

// NewMirror constructs an empty mirror for the client owning clientNodeID.
func NewMirror(clientNodeID uint32) *Mirror {
	return &Mirror{
		arena:      newArena(),
		byID:       make(map[uint32]*Object),
		localPorts: make(map[string]*Object),
		clientNodeID: clientNodeID,
	}
}

// SetLockHooks installs the thread-loop unlock/relock functions used to
// release the lock across user registration callbacks (§4.A, §9).
func (m *Mirror) SetLockHooks(unlock, relock func()) {
	m.unlock, m.relock = unlock, relock
}

// SetClosed marks the mirror's owning client as closing; pending
// callbacks observed after this point are suppressed (§9 re-entrancy
// guard).
func (m *Mirror) SetClosed() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// OnNodeRegistration, OnPortRegistration, and OnLinkRegistration install
// the user-facing registration callbacks.
func (m *Mirror) OnNodeRegistration(fn EventFunc) { m.onNode = fn }
func (m *Mirror) OnPortRegistration(fn EventFunc) { m.onPort = fn }
func (m *Mirror) OnLinkRegistration(fn EventFunc) { m.onLink = fn }

func (m *Mirror) fire(cb EventFunc, id uint32, removed bool) {
	if cb == nil {
		return
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}
	if m.unlock != nil {
		m.unlock()
	}
	cb(id, removed)
	if m.relock != nil {
		m.relock()
	}
}

// NoteLocalPort pre-registers a port this client is creating locally via
// port_register, before the server's confirming global event arrives.
// It returns the provisional Object so the caller's local Port struct can
// hold a stable back-pointer (§3 invariant: p.object is set at
// registration time).
func (m *Mirror) NoteLocalPort(fullName string, dir api.Direction, typ api.PortType, index uint32) *Object {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj := m.arena.alloc()
	obj.ID = api.InvalidID
	obj.Kind = KindPort
	obj.Port = PortInfo{
		NodeID:   m.clientNodeID,
		Index:    index,
		Type:     typ,
		FullName: fullName,
	}
	if dir == api.DirOutput {
		obj.Port.Flags |= api.FlagOutput
	} else {
		obj.Port.Flags |= api.FlagInput
	}
	m.localPorts[fullName] = obj
	return obj
}

// DropLocalPort removes the bookkeeping entry for a port this client is
// unregistering locally (port_unregister before any matching global
// event arrived, or after reuse has already claimed it).
func (m *Mirror) DropLocalPort(fullName string) {
	m.mu.Lock()
	delete(m.localPorts, fullName)
	m.mu.Unlock()
}

func nodeDisplayName(props Props, id uint32) string {
	for _, key := range []string{"node.description", "node.nick", "node.name"} {
		if v := strings.TrimSpace(props[key]); v != "" {
			return fmt.Sprintf("%s/%d", v, id)
		}
	}
	return fmt.Sprintf("node/%d", id)
}

func parsePriority(props Props) int32 {
	v, err := strconv.ParseInt(props["priority.master"], 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

// HandleNodeGlobal processes a node-global event, allocating or reusing
// the id's Object (§9 Dense id map: reusing a slot writes through the
// same index/id).
func (m *Mirror) HandleNodeGlobal(id uint32, props Props) *Object {
	m.mu.Lock()
	obj, existed := m.byID[id]
	if !existed {
		obj = m.arena.alloc()
		obj.ID = id
		m.nodes = append(m.nodes, id)
	} else {
		obj.Generation++
	}
	obj.Kind = KindNode
	obj.Removed = false
	obj.Node = NodeInfo{
		Name:     nodeDisplayName(props, id),
		Priority: parsePriority(props),
	}
	m.byID[id] = obj
	m.mu.Unlock()

	m.fire(m.onNode, id, false)
	return obj
}

func decodePortType(props Props) api.PortType {
	dsp := strings.ToLower(props["format.dsp"])
	switch {
	case strings.Contains(dsp, "midi"):
		return api.PortMIDI
	case strings.Contains(dsp, "video") || strings.Contains(dsp, "rgba"):
		return api.PortVideo
	case strings.Contains(dsp, "audio") || strings.Contains(dsp, "float"):
		return api.PortAudio
	default:
		return api.PortOther
	}
}

func decodePortFlags(props Props) api.PortFlags {
	var flags api.PortFlags
	if props["direction"] == "out" {
		flags |= api.FlagOutput
	} else {
		flags |= api.FlagInput
	}
	if props["physical"] == "true" {
		flags |= api.FlagPhysical
	}
	if props["terminal"] == "true" {
		flags |= api.FlagTerminal
	}
	return flags
}

// HandlePortGlobal processes a port-global event per §4.A: the owning
// node is resolved from node.id, the type from the DSP-format property
// (overridden to MIDI when the control property is set), and a port
// belonging to this client whose full name matches an entry made by a
// prior NoteLocalPort call is reused rather than duplicated.
func (m *Mirror) HandlePortGlobal(id uint32, props Props) *Object {
	m.mu.Lock()

	nodeID := m.clientNodeID
	if v, err := strconv.ParseUint(props["node.id"], 10, 32); err == nil {
		nodeID = uint32(v)
	}

	typ := decodePortType(props)
	if props["control"] == "true" {
		typ = api.PortMIDI
	}
	flags := decodePortFlags(props)
	short := props["port.name"]

	var ownerName string
	if owner, ok := m.byID[nodeID]; ok && owner.Kind == KindNode {
		ownerName = owner.Node.Name
		if idx := strings.LastIndexByte(ownerName, '/'); idx >= 0 {
			ownerName = ownerName[:idx]
		}
	}
	fullName := fmt.Sprintf("%s:%s", ownerName, short)

	var obj *Object
	if nodeID == m.clientNodeID {
		if local, ok := m.localPorts[fullName]; ok {
			obj = local
			delete(m.localPorts, fullName)
		}
	}
	if obj == nil {
		if existing, ok := m.byID[id]; ok {
			obj = existing
			obj.Generation++
		} else {
			obj = m.arena.alloc()
			m.ports = append(m.ports, id)
		}
	} else {
		m.ports = append(m.ports, id)
	}

	obj.ID = id
	obj.Kind = KindPort
	obj.Removed = false
	obj.Port.Flags = flags
	obj.Port.Type = typ
	obj.Port.NodeID = nodeID
	obj.Port.FullName = fullName
	m.byID[id] = obj
	m.mu.Unlock()

	m.fire(m.onPort, id, false)
	return obj
}

// HandleLinkGlobal processes a link-global event; source/destination
// port ids come from the link.output.port / link.input.port properties.
func (m *Mirror) HandleLinkGlobal(id uint32, props Props) *Object {
	m.mu.Lock()
	obj, existed := m.byID[id]
	if !existed {
		obj = m.arena.alloc()
		obj.ID = id
		m.links = append(m.links, id)
	} else {
		obj.Generation++
	}
	obj.Kind = KindLink
	obj.Removed = false

	src, _ := strconv.ParseUint(props["link.output.port"], 10, 32)
	dst, _ := strconv.ParseUint(props["link.input.port"], 10, 32)
	obj.Link = LinkInfo{SrcPort: uint32(src), DstPort: uint32(dst)}
	m.byID[id] = obj
	m.mu.Unlock()

	m.fire(m.onLink, id, false)
	return obj
}

// HandleGlobalRemove tombstones an object: it stays resolvable by id
// until a later global event reuses the same id (§3, §9).
func (m *Mirror) HandleGlobalRemove(id uint32) {
	m.mu.Lock()
	obj, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	obj.Removed = true
	kind := obj.Kind
	m.mu.Unlock()

	switch kind {
	case KindNode:
		m.fire(m.onNode, id, true)
	case KindPort:
		m.fire(m.onPort, id, true)
	case KindLink:
		m.fire(m.onLink, id, true)
	}
}

// ByID returns the object for id, including tombstoned entries.
func (m *Mirror) ByID(id uint32) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.byID[id]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// PortByFullName resolves the live (non-removed) port matching fullName.
func (m *Mirror) PortByFullName(fullName string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.ports {
		obj := m.byID[id]
		if obj != nil && !obj.Removed && obj.Port.FullName == fullName {
			return *obj, true
		}
	}
	return Object{}, false
}

// Ports returns a snapshot of all live port objects.
func (m *Mirror) Ports() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.ports))
	for _, id := range m.ports {
		if obj := m.byID[id]; obj != nil && !obj.Removed {
			out = append(out, *obj)
		}
	}
	return out
}

// Nodes returns a snapshot of all live node objects.
func (m *Mirror) Nodes() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.nodes))
	for _, id := range m.nodes {
		if obj := m.byID[id]; obj != nil && !obj.Removed {
			out = append(out, *obj)
		}
	}
	return out
}

// Links returns a snapshot of all live link objects.
func (m *Mirror) Links() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.links))
	for _, id := range m.links {
		if obj := m.byID[id]; obj != nil && !obj.Removed {
			out = append(out, *obj)
		}
	}
	return out
}
