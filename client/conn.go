// File: client/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ControlConn abstracts the thread loop's control socket (§4.I, §5): a
// duplex channel of protocol.Message exchanges with the graph server.
// Production dials a Unix domain socket; tests can run against an
// in-process fake.

package client

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"net"
	"sync"

	"github.com/momentics/graphbridge/internal/protocol"
)

// ControlConn is the thread loop's view of the control connection: send
// one message, receive the server's reply, or receive an unsolicited
// server-driven message to dispatch through protocol.Handler.
type ControlConn interface {
	// Open performs the client_open handshake (§4.I: connect, wait for
	// CONNECTED, obtain registry, create a client-node factory instance,
	// advertise info, sync) as one opaque exchange, returning the node
	// id the server assigned this client.
	Open(name string, maxPorts uint32, rtCapable bool) (nodeID uint32, err error)

	// Send transmits msg and waits for the server's reply.
	Send(msg protocol.Message) (protocol.Reply, error)

	// Recv blocks for the next server-driven message (registry events,
	// port_set_param, command, ...). Returns an error once the
	// connection is closed.
	Recv() (protocol.Message, error)

	// RequestLink and RequestUnlink ask the server to build or tear down
	// a link between two full port names (§6 connect/disconnect). The
	// bridge only forwards the request; link-graph bookkeeping lives
	// entirely on the server.
	RequestLink(srcPort, dstPort string) error
	RequestUnlink(srcPort, dstPort string) error

	Close() error
}

type openRequest struct {
	Name      string
	MaxPorts  uint32
	RTCapable bool
}

type openReply struct {
	NodeID uint32
	Err    string
}

type linkRequest struct {
	Src, Dst string
	Unlink   bool
}

// unixControlConn implements ControlConn over a net.Conn, framing each
// protocol.Message/Reply with gob (§4.D: the wire-exact native protocol
// is server-defined; this client only needs a stable, self-describing
// encoding across the seam it owns on both ends).
type unixControlConn struct {
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder

	mu sync.Mutex
}

// DialControlSocket dials the graph server's control socket at path.
func DialControlSocket(path string) (ControlConn, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("client: dial control socket %s: %w", path, err)
	}
	return newUnixControlConn(conn), nil
}

func newUnixControlConn(conn net.Conn) *unixControlConn {
	r := bufio.NewReader(conn)
	return &unixControlConn{
		conn: conn,
		enc:  gob.NewEncoder(conn),
		dec:  gob.NewDecoder(r),
	}
}

func (c *unixControlConn) Open(name string, maxPorts uint32, rtCapable bool) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(&openRequest{Name: name, MaxPorts: maxPorts, RTCapable: rtCapable}); err != nil {
		return 0, fmt.Errorf("client: send open handshake: %w", err)
	}
	var reply openReply
	if err := c.dec.Decode(&reply); err != nil {
		return 0, fmt.Errorf("client: read open reply: %w", err)
	}
	if reply.Err != "" {
		return 0, fmt.Errorf("client: server rejected open: %s", reply.Err)
	}
	return reply.NodeID, nil
}

func (c *unixControlConn) RequestLink(srcPort, dstPort string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(&linkRequest{Src: srcPort, Dst: dstPort})
}

func (c *unixControlConn) RequestUnlink(srcPort, dstPort string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(&linkRequest{Src: srcPort, Dst: dstPort, Unlink: true})
}

func (c *unixControlConn) Send(msg protocol.Message) (protocol.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(&msg); err != nil {
		return protocol.Reply{}, fmt.Errorf("client: send control message: %w", err)
	}
	var reply protocol.Reply
	if err := c.dec.Decode(&reply); err != nil {
		return protocol.Reply{}, fmt.Errorf("client: read control reply: %w", err)
	}
	return reply, nil
}

func (c *unixControlConn) Recv() (protocol.Message, error) {
	var msg protocol.Message
	if err := c.dec.Decode(&msg); err != nil {
		return protocol.Message{}, fmt.Errorf("client: read control message: %w", err)
	}
	return msg, nil
}

func (c *unixControlConn) Close() error {
	return c.conn.Close()
}

// LoopbackConn pairs a ControlConn directly to a protocol.Handler
// in-process, for tests that exercise the client package without a
// running graph server.
type LoopbackConn struct {
	handler *protocol.Handler
	nextID  uint32

	inbound chan protocol.Message
	closed  chan struct{}
	once    sync.Once
}

// NewLoopbackConn constructs a LoopbackConn that answers every Send
// immediately via handler.Dispatch and assigns nodeID to Open.
func NewLoopbackConn(handler *protocol.Handler, nodeID uint32) *LoopbackConn {
	return &LoopbackConn{
		handler: handler,
		nextID:  nodeID,
		inbound: make(chan protocol.Message, 16),
		closed:  make(chan struct{}),
	}
}

func (c *LoopbackConn) Open(name string, maxPorts uint32, rtCapable bool) (uint32, error) {
	return c.nextID, nil
}

func (c *LoopbackConn) RequestLink(srcPort, dstPort string) error    { return nil }
func (c *LoopbackConn) RequestUnlink(srcPort, dstPort string) error  { return nil }

func (c *LoopbackConn) Send(msg protocol.Message) (protocol.Reply, error) {
	return c.handler.Dispatch(msg), nil
}

// Deliver injects a server-driven message for the next Recv call, e.g.
// to simulate the server issuing a command or a port_set_param.
func (c *LoopbackConn) Deliver(msg protocol.Message) {
	select {
	case c.inbound <- msg:
	case <-c.closed:
	}
}

func (c *LoopbackConn) Recv() (protocol.Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.closed:
		return protocol.Message{}, fmt.Errorf("client: loopback connection closed")
	}
}

func (c *LoopbackConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
