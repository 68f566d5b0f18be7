// File: internal/registry/object.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Object is the tagged-variant registry entry shared by nodes, ports,
// and links mirrored from the graph server.

package registry

import "github.com/momentics/graphbridge/api"

// Kind tags which payload an Object carries.
type Kind int

const (
	KindNode Kind = iota
	KindPort
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindPort:
		return "port"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// NodeInfo is the payload for a KindNode object.
type NodeInfo struct {
	Name     string
	Priority int32
}

// PortInfo is the payload for a KindPort object.
type PortInfo struct {
	Flags     api.PortFlags
	Type      api.PortType
	NodeID    uint32
	Index     uint32
	Alias     [2]string
	Capture   api.LatencyRange
	Playback  api.LatencyRange
	FullName  string
}

// LinkInfo is the payload for a KindLink object.
type LinkInfo struct {
	SrcPort uint32
	DstPort uint32
}

// Object is one entry in the registry mirror. Only one of Node/Port/Link
// is meaningful, selected by Kind. Removed objects stay in the map and
// keep answering queries (§9 "removed ids stay resolvable") until a
// later event reuses the same id, at which point the same struct is
// overwritten in place and Generation is bumped.
type Object struct {
	ID         uint32
	Kind       Kind
	Generation uint32
	Removed    bool

	Node NodeInfo
	Port PortInfo
	Link LinkInfo
}
