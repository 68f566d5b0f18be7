// File: client/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client orchestrates one legacy-API connection end to end (§4.I):
// the application-facing entry points, the thread loop that owns the
// control connection and the registry mirror, and the data loop that
// drives the realtime cycle. The thread-loop mutex (§5) is acquired by
// every API entry point that mutates or reads the registry or sends a
// protocol message; the data loop never takes it.

package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/bufferio"
	"github.com/momentics/graphbridge/internal/envcfg"
	"github.com/momentics/graphbridge/internal/midi"
	"github.com/momentics/graphbridge/internal/obslog"
	"github.com/momentics/graphbridge/internal/portpool"
	"github.com/momentics/graphbridge/internal/protocol"
	"github.com/momentics/graphbridge/internal/registry"
	"github.com/momentics/graphbridge/internal/rtcycle"
	"github.com/momentics/graphbridge/internal/shm"
	"github.com/momentics/graphbridge/internal/timebase"
)

// Option customizes how Open constructs a Client, on top of the
// environment-derived envcfg.Config.
type Option func(*openParams)

type openParams struct {
	envOpts []envcfg.Option
	conn    ControlConn
}

// WithEnv forwards envcfg.Option overrides (server socket, latency,
// client name) to the environment-derived configuration.
func WithEnv(opts ...envcfg.Option) Option {
	return func(p *openParams) { p.envOpts = append(p.envOpts, opts...) }
}

// WithControlConn overrides the control connection Open would otherwise
// dial, for tests running against a LoopbackConn.
func WithControlConn(conn ControlConn) Option {
	return func(p *openParams) { p.conn = conn }
}

// Client is one opened legacy-API connection.
type Client struct {
	cfg    envcfg.Config
	nodeID uint32
	log    *obslog.Logger

	conn   ControlConn
	mirror *registry.Mirror

	inPorts  *portpool.PortPool
	outPorts *portpool.PortPool
	mixes    *portpool.MixPool
	pools    *protocol.Pools

	// midiPorts tracks every registered MIDI port so midiTee can refresh
	// their buffers once per cycle (§4.E step 10) without the pool
	// machinery needing to expose slot iteration.
	midiPorts   []*portpool.Port
	midiPortsMu sync.Mutex

	shmMgr  *shm.Manager
	handler *protocol.Handler

	transport *timebase.Transport
	facade    *bufferio.Facade
	midi      *midi.Merger

	callbacks rtcycle.Callbacks
	engine    *rtcycle.Engine
	signaler  rtcycle.Signaler

	graphOrderFn   func()
	portConnectFn  func(a, b uint32, connected bool)
	portRenameFn   func(port uint32, oldName, newName string)
	latencyFn      func(dir api.Direction)
	infoShutdownFn func(code int, reason string)

	threadLoopMu  sync.Mutex
	active        atomic.Bool
	closed        atomic.Bool
	processSet    bool
	threadSet     bool
	threadCreator ThreadCreator

	dataLoopDone chan struct{}
	loops        *errgroup.Group
}

// Open performs client_open (§4.I, §6): resolves environment
// configuration, dials (or reuses) the control connection, and
// constructs every per-connection component. PIPEWIRE_NOJACK set in
// the environment fails immediately with StatusFailure|StatusServerFailed,
// matching the legacy ABI.
func Open(name string, opts ...Option) (*Client, api.ClientStatus, error) {
	var p openParams
	for _, opt := range opts {
		opt(&p)
	}

	cfg, err := envcfg.Load(p.envOpts...)
	if err != nil {
		return nil, api.StatusInvalidOption, fmt.Errorf("client: load config: %w", err)
	}
	if cfg.ClientName == "" {
		cfg.ClientName = name
	}
	if cfg.NoJack {
		return nil, api.StatusFailure | api.StatusServerFailed, fmt.Errorf("client: PIPEWIRE_NOJACK set")
	}

	conn := p.conn
	if conn == nil {
		conn, err = DialControlSocket(cfg.ServerSocket)
		if err != nil {
			return nil, api.StatusFailure | api.StatusServerFailed, err
		}
	}

	nodeID, err := conn.Open(cfg.ClientName, api.MaxPorts, true)
	if err != nil {
		_ = conn.Close()
		return nil, api.StatusServerFailed, err
	}

	mirror := registry.NewMirror(nodeID)
	inPorts := portpool.NewPortPool(api.DirInput)
	outPorts := portpool.NewPortPool(api.DirOutput)
	mixes := portpool.NewMixPool()
	pools := &protocol.Pools{In: inPorts, Out: outPorts, Mix: mixes}

	shmMgr := shm.NewManager(shm.NewMapper())
	handler := protocol.NewHandler(mirror, pools, shmMgr, nodeID, cfg.LatencyFrames, cfg.LatencySampleRate)

	merger := midi.NewMerger()
	facade := bufferio.NewFacade(pools, merger, merger)
	transport := timebase.NewTransport()
	transport.BindDriverSource(handler)

	c := &Client{
		cfg:       cfg,
		nodeID:    nodeID,
		log:       obslog.For(fmt.Sprintf("client[%s]", cfg.ClientName)),
		conn:      conn,
		mirror:    mirror,
		inPorts:   inPorts,
		outPorts:  outPorts,
		mixes:     mixes,
		pools:     pools,
		shmMgr:    shmMgr,
		handler:   handler,
		transport: transport,
		facade:    facade,
		midi:      merger,
	}
	mirror.SetLockHooks(c.unlockThreadLoop, c.relockThreadLoop)

	c.loops = new(errgroup.Group)
	c.loops.Go(c.runThreadLoop)

	return c, 0, nil
}

// GetClientName returns the name this client was opened with.
func (c *Client) GetClientName() string { return c.cfg.ClientName }

// runThreadLoop is the thread loop (§5): a single-threaded event loop
// dispatching server-driven messages through the protocol handler,
// holding threadLoopMu while it does so and releasing it only across
// the registration callbacks the mirror itself may invoke re-entrantly.
func (c *Client) runThreadLoop() error {
	for {
		msg, err := c.conn.Recv()
		if err != nil {
			if !c.closed.Load() {
				if c.callbacks.Shutdown != nil {
					c.callbacks.Shutdown()
				}
				if c.infoShutdownFn != nil {
					c.infoShutdownFn(0, err.Error())
				}
				return err
			}
			return nil
		}
		c.threadLoopMu.Lock()
		reply := c.handler.Dispatch(msg)
		c.threadLoopMu.Unlock()
		_ = reply
	}
}

func (c *Client) unlockThreadLoop() { c.threadLoopMu.Unlock() }
func (c *Client) relockThreadLoop() { c.threadLoopMu.Lock() }

// doSync acquires the thread-loop mutex for the duration of fn, mirroring
// the legacy API's scoped-lock requirement around every server
// interaction (§5).
func (c *Client) doSync(fn func() error) error {
	c.threadLoopMu.Lock()
	defer c.threadLoopMu.Unlock()
	return fn()
}

// Activate performs activate (§4.I): starts the data loop, reports this
// node's own activation eventfd to the server via transport(...), and
// arms pending-new-position/sync. Peer links for the realtime cycle's
// fan-out step (§4.E step 12) come only from genuine server-driven
// set_activation messages naming other nodes, never from this node
// registering itself.
func (c *Client) Activate() error {
	if !c.active.CompareAndSwap(false, true) {
		return nil
	}
	signaler, readFD, err := newActivationSignaler()
	if err != nil {
		c.active.Store(false)
		return fmt.Errorf("client: activate: %w", err)
	}
	c.signaler = signaler

	nowMicros := func() int64 { return time.Now().UnixMicro() }
	c.callbacks.MIDITee = c.midiTee
	c.engine = rtcycle.NewEngine(c.nodeID, signaler, c.transport, c.callbacks, nowMicros)
	c.engine.SetBufferFrames(c.cfg.LatencyFrames)
	c.engine.SetSampleRate(c.cfg.LatencySampleRate)
	c.engine.SetPeers(c.handler.Peers())

	if err := c.doSync(func() error {
		_, err := c.conn.Send(protocol.Message{Type: protocol.MsgTransport, NodeID: c.nodeID, ReadFD: readFD, WriteFD: -1})
		return err
	}); err != nil {
		c.active.Store(false)
		return fmt.Errorf("client: activate: %w", err)
	}

	own := c.handler.OwnRecord()
	own.PendingNewPosition.Store(true)
	own.PendingSync.Store(true)
	c.transport.RequestStart()
	c.dataLoopDone = make(chan struct{})
	c.loops.Go(func() error { return c.engine.Run(c.dataLoopDone) })
	return nil
}

// Deactivate performs deactivate (§4.I): tells the server this client
// is no longer active and stops the data loop.
func (c *Client) Deactivate() error {
	if !c.active.CompareAndSwap(true, false) {
		return nil
	}
	err := c.doSync(func() error {
		_, err := c.conn.Send(protocol.Message{Type: protocol.MsgCommand, NodeID: c.nodeID, Command: protocol.CommandPause})
		return err
	})
	if c.dataLoopDone != nil {
		close(c.dataLoopDone)
	}
	if c.signaler != nil {
		_ = c.signaler.Close()
	}
	c.transport.Stop()
	return err
}

// IsActive reports whether Activate has been called without a matching
// Deactivate.
func (c *Client) IsActive() bool { return c.active.Load() }

// Close performs client_close (§4.I): deactivates the client if it is
// still active (closing its activation eventfd), marks the registry
// mirror closed, closes the control connection, and waits for the thread
// loop and data loop to exit. Memory mappings and per-port io tags held
// by the client's shm.Manager are not released here.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.active.Load() {
		_ = c.Deactivate()
	}
	c.mirror.SetClosed()
	err := c.conn.Close()
	if loopErr := c.loops.Wait(); err == nil {
		err = loopErr
	}
	return err
}
