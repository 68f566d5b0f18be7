// File: internal/protocol/handler_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/portpool"
	"github.com/momentics/graphbridge/internal/registry"
	"github.com/momentics/graphbridge/internal/shm"
)

type heapMapper struct{}

func (heapMapper) Map(region shm.MemRegion) ([]byte, error) { return make([]byte, region.Size), nil }
func (heapMapper) Unmap([]byte) error                        { return nil }
func (heapMapper) Mlock([]byte) error                        { return nil }

// fixedMapper always returns the same encoded buffer regardless of the
// requested region, so a test can control exactly what a mapping
// decodes to (e.g. a driver position block).
type fixedMapper struct{ data []byte }

func (m fixedMapper) Map(shm.MemRegion) ([]byte, error) { return m.data, nil }
func (fixedMapper) Unmap([]byte) error                  { return nil }
func (fixedMapper) Mlock([]byte) error                  { return nil }

// encodePositionBlock builds a minimal valid position block payload
// naming driverID as its clock id, matching internal/activation's
// decode layout.
func encodePositionBlock(driverID uint32) []byte {
	buf := make([]byte, 92)
	binary.LittleEndian.PutUint32(buf[0:4], driverID)
	binary.LittleEndian.PutUint32(buf[16:20], 48000) // rate.denom
	binary.LittleEndian.PutUint32(buf[88:92], 2)      // SegRunning
	return buf
}

func newTestHandler(t *testing.T) (*Handler, *Pools) {
	t.Helper()
	pools := &Pools{
		In:  portpool.NewPortPool(api.DirInput),
		Out: portpool.NewPortPool(api.DirOutput),
		Mix: portpool.NewMixPool(),
	}
	mirror := registry.NewMirror(0)
	mgr := shm.NewManager(heapMapper{})
	return NewHandler(mirror, pools, mgr, 1, 1024, 48000), pools
}

func newTestHandlerWithMapper(t *testing.T, mapper shm.Mapper) *Handler {
	t.Helper()
	pools := &Pools{
		In:  portpool.NewPortPool(api.DirInput),
		Out: portpool.NewPortPool(api.DirOutput),
		Mix: portpool.NewMixPool(),
	}
	mirror := registry.NewMirror(0)
	mgr := shm.NewManager(mapper)
	return NewHandler(mirror, pools, mgr, 1, 1024, 48000)
}

func TestDispatchUnsupportedMessagesReturnENOTSUP(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, typ := range []Type{MsgAddPort, MsgRemovePort, MsgSetParam, MsgEvent} {
		reply := h.Dispatch(Message{Type: typ})
		require.ErrorIs(t, reply.Err, api.ErrNotSupported, "%s must be rejected", typ)
	}
}

func TestHandlePortSetParamRejectsFormatOutsideEnumeratedSet(t *testing.T) {
	h, pools := newTestHandler(t)
	port := pools.In.Acquire()
	port.Object = &registry.Object{Kind: registry.KindPort, Port: registry.PortInfo{Type: api.PortAudio}}

	reply := h.Dispatch(Message{
		Type:    MsgPortSetParam,
		PortID:  port.Index,
		PortDir: api.DirInput,
		ParamID: ParamFormat,
		Format:  FormatParam{PortType: api.PortAudio, SampleRate: 44100, Channels: 1},
	})
	require.Error(t, reply.Err)
}

func TestHandlePortSetParamAcceptsMatchingFormat(t *testing.T) {
	h, pools := newTestHandler(t)
	port := pools.In.Acquire()
	port.Object = &registry.Object{Kind: registry.KindPort, Port: registry.PortInfo{Type: api.PortAudio}}

	reply := h.Dispatch(Message{
		Type:    MsgPortSetParam,
		PortID:  port.Index,
		PortDir: api.DirInput,
		ParamID: ParamFormat,
		Format:  FormatParam{PortType: api.PortAudio, SampleRate: 48000, Channels: 1},
	})
	require.NoError(t, reply.Err)
	require.NotNil(t, reply.Update)
	require.EqualValues(t, 48000, port.SampleRate)
}

func TestHandlePortUseBuffersPopulatesMixFreeQueue(t *testing.T) {
	h, pools := newTestHandler(t)
	port := pools.Out.Acquire()
	port.Object = &registry.Object{Kind: registry.KindPort, Port: registry.PortInfo{Type: api.PortAudio}}
	mix := pools.Mix.Acquire()
	mix.Port = port

	reply := h.Dispatch(Message{
		Type:    MsgPortUseBuffers,
		PortID:  port.Index,
		PortDir: api.DirOutput,
		MixID:   mix.ID,
		Buffers: []BufferEntry{
			{
				ID:     1,
				MemID:  10,
				Size:   64,
				Planes: []PlaneEntry{{MemID: 11, Size: 4096}},
			},
		},
	})
	require.NoError(t, reply.Err)
	require.NotNil(t, reply.Update)
	require.Equal(t, 1, mix.NBuffers)
	bd := mix.PopFree()
	require.NotNil(t, bd)
	require.EqualValues(t, 1, bd.ID)
}

func TestHandleSetIOReplacesExistingMapping(t *testing.T) {
	h, _ := newTestHandler(t)
	msg := Message{Type: MsgSetIO, NodeID: 1, IOID: 2, MemID: 5, Size: 128}

	reply := h.Dispatch(msg)
	require.NoError(t, reply.Err)

	reply = h.Dispatch(msg)
	require.NoError(t, reply.Err)
}

func TestHandleCommandRejectsUnknownKind(t *testing.T) {
	h, _ := newTestHandler(t)
	reply := h.Dispatch(Message{Type: MsgCommand, Command: CommandKind(99)})
	require.ErrorIs(t, reply.Err, api.ErrInvalidArgument)
}

func TestHandleTransportBindsOwnActivationRecord(t *testing.T) {
	h, _ := newTestHandler(t)
	reply := h.Dispatch(Message{Type: MsgTransport, NodeID: 1, ReadFD: 3, WriteFD: -1, MemID: 10, Size: 64})
	require.NoError(t, reply.Err)
	require.Equal(t, api.StatusIdle, api.ActivationStatus(h.OwnRecord().Status.Load()))
}

func TestHandleSetActivationRejectsSelfLoop(t *testing.T) {
	h, _ := newTestHandler(t)
	reply := h.Dispatch(Message{Type: MsgSetActivation, NodeID: 1, PeerFD: 5, MemID: 1, Size: 64})
	require.NoError(t, reply.Err)
	_, ok := h.Peers().Find(1)
	require.False(t, ok, "a node must never register itself as its own peer")
}

func TestHandleSetActivationInstallsAndClearsPeerLink(t *testing.T) {
	h, _ := newTestHandler(t)
	reply := h.Dispatch(Message{Type: MsgSetActivation, NodeID: 2, PeerFD: 7, MemID: 1, Offset: 0, Size: 64})
	require.NoError(t, reply.Err)

	link, ok := h.Peers().Find(2)
	require.True(t, ok)
	require.EqualValues(t, 7, link.SignalFD)
	require.NotNil(t, link.Activation)

	reply = h.Dispatch(Message{Type: MsgSetActivation, NodeID: 2, PeerFD: -1})
	require.NoError(t, reply.Err)
	_, ok = h.Peers().Find(2)
	require.False(t, ok, "a null mapping must clear the peer link")
}

func TestBindDriverPositionConvergesRegardlessOfMessageOrder(t *testing.T) {
	const driverID = 9

	t.Run("set_io arrives before set_activation", func(t *testing.T) {
		h := newTestHandlerWithMapper(t, fixedMapper{data: encodePositionBlock(driverID)})
		reply := h.Dispatch(Message{Type: MsgSetIO, NodeID: driverID, IOID: PositionIOID, MemID: 20, Size: 92})
		require.NoError(t, reply.Err)
		require.Nil(t, h.DriverRecord(), "no activation record for the driver yet")

		reply = h.Dispatch(Message{Type: MsgSetActivation, NodeID: driverID, PeerFD: 11, MemID: 21, Size: 64})
		require.NoError(t, reply.Err)
		require.NotNil(t, h.DriverRecord())
		require.NotNil(t, h.DriverRecord().Position())
	})

	t.Run("set_activation arrives before set_io", func(t *testing.T) {
		h := newTestHandlerWithMapper(t, fixedMapper{data: encodePositionBlock(driverID)})
		reply := h.Dispatch(Message{Type: MsgSetActivation, NodeID: driverID, PeerFD: 11, MemID: 21, Size: 64})
		require.NoError(t, reply.Err)

		reply = h.Dispatch(Message{Type: MsgSetIO, NodeID: driverID, IOID: PositionIOID, MemID: 20, Size: 92})
		require.NoError(t, reply.Err)
		require.NotNil(t, h.DriverRecord())
		require.NotNil(t, h.DriverRecord().Position())
		require.Equal(t, api.TransportRolling, h.DriverPosition().TransportState())
	})
}
