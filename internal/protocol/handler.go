// File: internal/protocol/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handler answers the node/port protocol messages the graph server
// drives a client connection with (§4.D), resolving port/mix ids
// through the registry mirror and port/mix pools and routing shared
// memory through a shm.Manager.

package protocol

import (
	"fmt"
	"sync"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/activation"
	"github.com/momentics/graphbridge/internal/obslog"
	"github.com/momentics/graphbridge/internal/portpool"
	"github.com/momentics/graphbridge/internal/registry"
	"github.com/momentics/graphbridge/internal/shm"
)

// PortResolver looks a port id up in the direction-appropriate pool.
type PortResolver interface {
	ResolvePort(dir api.Direction, id uint32) *portpool.Port
	ResolveMix(id uint32) *portpool.Mix
}

// Pools is the concrete PortResolver backed by the client's input and
// output port pools and its shared mix pool.
type Pools struct {
	In  *portpool.PortPool
	Out *portpool.PortPool
	Mix *portpool.MixPool
}

func (p *Pools) ResolvePort(dir api.Direction, id uint32) *portpool.Port {
	if dir == api.DirInput {
		return p.In.At(id)
	}
	return p.Out.At(id)
}

func (p *Pools) ResolveMix(id uint32) *portpool.Mix {
	return p.Mix.At(id)
}

// Handler dispatches protocol messages for a single node connection.
type Handler struct {
	mirror     *registry.Mirror
	pools      PortResolver
	shm        *shm.Manager
	selfNodeID uint32
	log        *obslog.Logger

	framesPerCycle uint32
	sampleRate     uint32

	mu          sync.Mutex
	activations map[uint32]*activation.Record
	peers       *activation.Table
	driverID    uint32
	driverRec   *activation.Record
	position    *activation.PositionBlock
}

// NewHandler constructs a Handler for the connection owned by
// selfNodeID.
func NewHandler(mirror *registry.Mirror, pools PortResolver, mgr *shm.Manager, selfNodeID uint32, framesPerCycle, sampleRate uint32) *Handler {
	return &Handler{
		mirror:      mirror,
		pools:       pools,
		shm:         mgr,
		selfNodeID:  selfNodeID,
		log:         obslog.For("protocol.handler"),
		framesPerCycle: framesPerCycle,
		sampleRate:     sampleRate,
		activations: make(map[uint32]*activation.Record),
		peers:       activation.NewTable(),
	}
}

// Peers returns the peer-link table this node's realtime cycle fans
// its signal out to each pass (§4.E step 12).
func (h *Handler) Peers() *activation.Table { return h.peers }

// OwnRecord returns this node's own activation record, creating it on
// first use.
func (h *Handler) OwnRecord() *activation.Record { return h.recordFor(h.selfNodeID) }

// DriverPosition returns the most recently decoded driver position
// block, or nil if set_io(Position) has not yet bound one (§4.H).
// Satisfies timebase.DriverSource.
func (h *Handler) DriverPosition() *activation.PositionBlock {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// DriverRecord returns the activation record of the currently bound
// driver node, or nil if none is bound yet.
func (h *Handler) DriverRecord() *activation.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.driverRec
}

func (h *Handler) recordFor(nodeID uint32) *activation.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.activations[nodeID]
	if !ok {
		r = activation.NewRecord()
		h.activations[nodeID] = r
	}
	return r
}

// Dispatch routes one inbound message to its handling method.
func (h *Handler) Dispatch(msg Message) Reply {
	switch msg.Type {
	case MsgTransport:
		return h.handleTransport(msg)
	case MsgSetIO:
		return h.handleSetIO(msg)
	case MsgPortSetParam:
		return h.handlePortSetParam(msg)
	case MsgPortUseBuffers:
		return h.handlePortUseBuffers(msg)
	case MsgPortSetIO:
		return h.handlePortSetIO(msg)
	case MsgCommand:
		return h.handleCommand(msg)
	case MsgSetActivation:
		return h.handleSetActivation(msg)
	case MsgAddPort, MsgRemovePort, MsgSetParam, MsgEvent:
		return Reply{Err: fmt.Errorf("%w: %s", api.ErrNotSupported, msg.Type)}
	default:
		return Reply{Err: fmt.Errorf("%w: unknown message type", api.ErrInvalidArgument)}
	}
}

// handleTransport answers transport(node_id, readfd, writefd, mem_id,
// offset, size) (§4.D): maps node_id's activation record, remembers
// node_id, and closes the unused writefd. readfd is neither retained nor
// watched: no HUP/ERR registration is made for it.
func (h *Handler) handleTransport(msg Message) Reply {
	tag := shm.IOTag{NodeID: msg.NodeID, IOID: activationIOID}
	if _, err := h.shm.SetIO(tag, shm.MemRegion{MemID: msg.MemID, Offset: msg.Offset, Size: msg.Size}); err != nil {
		return Reply{Err: err}
	}
	rec := h.recordFor(msg.NodeID)
	rec.Status.Store(int32(api.StatusIdle))

	if msg.WriteFD >= 0 {
		closeFD(msg.WriteFD)
	}

	h.mu.Lock()
	if msg.NodeID == h.driverID && h.position != nil {
		rec.SetPosition(h.position)
		h.driverRec = rec
	}
	h.mu.Unlock()

	return Reply{}
}

// handleSetActivation answers set_activation(node_id, signalfd, mem_id,
// offset, size) (§4.D): a null mapping (no signalfd) clears node_id's
// peer link; node_id equal to this node's own id is a self-loop: its
// signalfd is closed, no link is installed, and an empty (successful)
// reply is returned; otherwise node_id's peer link is installed (or
// replaced) in the peer table the realtime cycle fans its signal out
// to (§4.E step 12), and the driver activation is re-bound if node_id
// is the currently known driver.
func (h *Handler) handleSetActivation(msg Message) Reply {
	if msg.NodeID == h.selfNodeID {
		if msg.PeerFD >= 0 {
			closeFD(msg.PeerFD)
		}
		return Reply{}
	}
	if msg.PeerFD < 0 || msg.Size == 0 {
		h.peers.Clear(msg.NodeID)
		return Reply{}
	}

	tag := shm.IOTag{NodeID: msg.NodeID, IOID: activationIOID}
	if _, err := h.shm.SetIO(tag, shm.MemRegion{MemID: msg.MemID, Offset: msg.Offset, Size: msg.Size}); err != nil {
		return Reply{Err: err}
	}

	rec := h.recordFor(msg.NodeID)
	h.peers.Upsert(activation.Link{
		NodeID:     msg.NodeID,
		Activation: rec,
		Mem:        activation.MemRegion{MemID: msg.MemID, Offset: msg.Offset, Size: msg.Size},
		SignalFD:   msg.PeerFD,
	})

	h.mu.Lock()
	if msg.NodeID == h.driverID {
		h.driverRec = rec
		if h.position != nil {
			rec.SetPosition(h.position)
		}
	}
	h.mu.Unlock()

	return Reply{}
}

func (h *Handler) handleSetIO(msg Message) Reply {
	tag := shm.IOTag{NodeID: msg.NodeID, IOID: msg.IOID}
	handle, err := h.shm.SetIO(tag, shm.MemRegion{MemID: msg.MemID, Offset: msg.Offset, Size: msg.Size})
	if err != nil {
		return Reply{Err: err}
	}
	if msg.IOID == PositionIOID {
		h.bindDriverPosition(handle)
	}
	return Reply{}
}

// bindDriverPosition decodes handle as the driver's shared position
// block (§4.H), derives driver_id from its clock, and re-binds the
// driver_activation reference to whichever peer link (or own record)
// already carries that node id — in whichever order set_io(Position)
// and set_activation(driver_id) arrived.
func (h *Handler) bindDriverPosition(handle *shm.Handle) {
	if handle == nil {
		h.mu.Lock()
		h.position = nil
		h.driverRec = nil
		h.mu.Unlock()
		return
	}
	pos, err := activation.DecodePositionBlock(handle.Data)
	if err != nil {
		h.log.Warn("decode driver position block", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = pos
	h.driverID = pos.Clock.ID

	if rec, ok := h.activations[h.driverID]; ok {
		rec.SetPosition(pos)
		h.driverRec = rec
		return
	}
	if link, ok := h.peers.Find(h.driverID); ok {
		link.Activation.SetPosition(pos)
		h.driverRec = link.Activation
	}
}

func (h *Handler) handlePortSetIO(msg Message) Reply {
	port := h.pools.ResolvePort(msg.PortDir, msg.PortID)
	if port == nil {
		return Reply{Err: api.ErrNotFound}
	}
	tag := shm.IOTag{NodeID: msg.NodeID, Dir: port.Dir, PortID: msg.PortID, MixID: msg.MixID, IOID: msg.IOID}
	_, err := h.shm.SetIO(tag, shm.MemRegion{MemID: msg.MemID, Offset: msg.Offset, Size: msg.Size})
	if err != nil {
		return Reply{Err: err}
	}
	return Reply{}
}

func (h *Handler) handlePortSetParam(msg Message) Reply {
	port := h.pools.ResolvePort(msg.PortDir, msg.PortID)
	if port == nil {
		return Reply{Err: api.ErrNotFound}
	}
	if port.Object == nil {
		return Reply{Err: api.ErrNotFound}
	}
	pt := port.Object.Port.Type
	enumerated := DefaultEnumFormat(pt, h.sampleRate)

	switch msg.ParamID {
	case ParamFormat:
		if err := ValidateFormat(pt, msg.Format, enumerated); err != nil {
			return Reply{Err: err}
		}
		if pt == api.PortAudio {
			port.SampleRate = msg.Format.SampleRate
		}
	case ParamEnumFormat, ParamBuffers, ParamIO:
		// read-only tables; a set against them is rejected.
		return Reply{Err: fmt.Errorf("%w: param %d is read-only", api.ErrNotSupported, msg.ParamID)}
	}

	return Reply{Update: h.portUpdate(msg.PortID, pt, enumerated)}
}

func (h *Handler) handlePortUseBuffers(msg Message) Reply {
	port := h.pools.ResolvePort(msg.PortDir, msg.PortID)
	if port == nil {
		return Reply{Err: api.ErrNotFound}
	}
	mix := h.pools.ResolveMix(msg.MixID)
	if mix == nil {
		return Reply{Err: api.ErrNotFound}
	}

	specs := make([]shm.BufferSpec, 0, len(msg.Buffers))
	for _, be := range msg.Buffers {
		planes := make([]shm.PlaneSpec, 0, len(be.Planes))
		for _, pe := range be.Planes {
			if pe.MemID == api.InvalidID {
				planes = append(planes, shm.PlaneSpec{Type: shm.PlaneMemPtr, EmbeddedOffset: pe.Offset, EmbeddedSize: pe.Size})
			} else {
				planes = append(planes, shm.PlaneSpec{Type: shm.PlaneMemID, Region: shm.MemRegion{MemID: pe.MemID, Offset: pe.Offset, Size: pe.Size}})
			}
		}
		specs = append(specs, shm.BufferSpec{
			ID:     be.ID,
			Meta:   shm.MemRegion{MemID: be.MemID, Offset: be.Offset, Size: be.Size},
			Planes: planes,
		})
	}

	// A fresh port_use_buffers supersedes whatever this mix currently
	// holds (§4.C): release the old descriptors before installing new
	// ones.
	old := make([]*shm.BufferDescriptor, 0, mix.NBuffers)
	for i := 0; i < mix.NBuffers; i++ {
		old = append(old, mix.Buffers[i])
	}
	h.shm.ReleaseBuffers(old)

	bds, err := h.shm.UseBuffers(specs, nil)
	if err != nil {
		return Reply{Err: err}
	}
	mix.NBuffers = 0
	for _, bd := range bds {
		if mix.NBuffers >= api.MaxBuffers {
			break
		}
		mix.Buffers[mix.NBuffers] = bd
		mix.NBuffers++
		if !bd.Out {
			mix.PushFree(bd)
		}
	}

	pt := api.PortAudio
	if port.Object != nil {
		pt = port.Object.Port.Type
	}
	return Reply{Update: h.portUpdate(msg.PortID, pt, DefaultEnumFormat(pt, h.sampleRate))}
}

func (h *Handler) handleCommand(msg Message) Reply {
	switch msg.Command {
	case CommandStart, CommandPause, CommandRequestProcess:
		return Reply{}
	default:
		return Reply{Err: fmt.Errorf("%w: unknown command", api.ErrInvalidArgument)}
	}
}

func (h *Handler) portUpdate(portID uint32, pt api.PortType, enumerated []FormatParam) *PortUpdate {
	var format FormatParam
	if len(enumerated) > 0 {
		format = enumerated[0]
	}
	return &PortUpdate{
		PortID:     portID,
		EnumFormat: enumerated,
		Format:     format,
		Buffers:    DefaultBuffers(pt, h.framesPerCycle),
		IO:         []IOParam{{ID: 0, Size: uint32(h.framesPerCycle * 4)}},
	}
}
