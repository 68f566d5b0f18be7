// File: internal/protocol/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message is the node/port protocol unit exchanged with the graph
// server over the control connection (§4.D). The bridge only ever
// initiates a narrow subset of these from the client side; the rest
// arrive as server-driven commands this package must answer.

package protocol

import "github.com/momentics/graphbridge/api"

// Type distinguishes a Message's payload.
type Type int

const (
	MsgTransport Type = iota
	MsgSetIO
	MsgPortSetParam
	MsgPortUseBuffers
	MsgPortSetIO
	MsgCommand
	MsgSetActivation

	// Legacy-surface messages this bridge never supports server-side;
	// handled only to reply ENOTSUP (§4.D).
	MsgAddPort
	MsgRemovePort
	MsgSetParam
	MsgEvent
)

func (t Type) String() string {
	switch t {
	case MsgTransport:
		return "transport"
	case MsgSetIO:
		return "set_io"
	case MsgPortSetParam:
		return "port_set_param"
	case MsgPortUseBuffers:
		return "port_use_buffers"
	case MsgPortSetIO:
		return "port_set_io"
	case MsgCommand:
		return "command"
	case MsgSetActivation:
		return "set_activation"
	case MsgAddPort:
		return "add_port"
	case MsgRemovePort:
		return "remove_port"
	case MsgSetParam:
		return "set_param"
	case MsgEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Message is one inbound protocol unit. Only the fields relevant to
// Type are populated; this mirrors the tagged-union shape the wire
// format itself uses.
type Message struct {
	Type Type

	NodeID  uint32
	PortID  uint32
	PortDir api.Direction
	MixID   uint32

	// set_io / port_set_io / transport
	IOID   uint32
	MemID  uint32
	Offset uint64
	Size   uint64

	// transport: the activation eventfd pair for NodeID. ReadFD is the
	// descriptor the owning node waits on for its own cycle wake-ups;
	// WriteFD is unused by this bridge and closed once received.
	ReadFD  int32
	WriteFD int32

	// port_set_param
	ParamID ParamID
	Format  FormatParam

	// port_use_buffers
	Buffers []BufferEntry

	// command
	Command CommandKind
	Arg     int64

	// set_activation: signalfd is carried in PeerFD; MemID/Offset/Size
	// name the peer's mapped activation record.
	PeerFD int32
}

// PositionIOID is the node-scoped set_io id naming the driver's shared
// position block (§4.D: "Position is a special node-scoped id").
const PositionIOID uint32 = 0xFFFFFFF0

// activationIOID tags the shm mapping of a node's own activation
// record, set up by transport(...) and set_activation(...); it is
// distinct from any port_set_io/set_io id a caller could legitimately
// use.
const activationIOID uint32 = 0xFFFFFFF1

// BufferEntry describes one buffer of a port_use_buffers message.
type BufferEntry struct {
	ID     uint32
	MemID  uint32
	Offset uint64
	Size   uint64
	Planes []PlaneEntry
}

// PlaneEntry describes one plane of a BufferEntry. MemID == api.InvalidID
// marks a plane embedded in the buffer's own metadata region at Offset.
type PlaneEntry struct {
	MemID  uint32
	Offset uint64
	Size   uint64
}

// CommandKind enumerates the node-directed commands (§4.D).
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandStart
	CommandPause
	CommandRequestProcess
)

// PortUpdate is the reply the graph server expects after a port_set_param
// or port_use_buffers message: the port's current self-advertised
// parameter table (§4.D).
type PortUpdate struct {
	PortID     uint32
	EnumFormat []FormatParam
	Format     FormatParam
	Buffers    BuffersParam
	IO         []IOParam
}

// IOParam names one io area a port offers or requires.
type IOParam struct {
	ID   uint32
	Size uint32
}

// Reply is returned by Handler.Dispatch. Err set to api.ErrNotSupported
// marks a message this bridge never originates server-side behavior
// for; Update is non-nil only for messages that produce a port update.
type Reply struct {
	Update *PortUpdate
	Err    error
}
