// File: client/ports.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Port registration, attribute queries, and the connect/disconnect
// passthroughs (§6). Connect/disconnect are treated as minimal external
// collaborators per the bridge's scope: this client only forwards the
// request, the server owns the link graph.

package client

import (
	"fmt"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/portpool"
)

// RegisterPort performs port_register (§6): acquires a pool slot for
// the requested direction and notes it in the registry mirror so the
// server's confirming global event reuses this same object (§4.A).
func (c *Client) RegisterPort(name string, typ api.PortType, dir api.Direction, flags api.PortFlags) (*portpool.Port, error) {
	pool := c.outPorts
	if dir == api.DirInput {
		pool = c.inPorts
	}
	port := pool.Acquire()
	if port == nil {
		return nil, fmt.Errorf("client: register port %q: %w", name, api.ErrResourceExhausted)
	}

	fullName := fmt.Sprintf("%s:%s", c.cfg.ClientName, name)
	err := c.doSync(func() error {
		obj := c.mirror.NoteLocalPort(fullName, dir, typ, port.Index)
		obj.Port.Flags = flags
		port.Object = obj
		if typ == api.PortAudio {
			port.SampleRate = c.cfg.LatencySampleRate
		}
		return nil
	})
	if err != nil {
		pool.Release(port)
		return nil, err
	}
	if typ == api.PortMIDI {
		c.midiPortsMu.Lock()
		c.midiPorts = append(c.midiPorts, port)
		c.midiPortsMu.Unlock()
	}
	return port, nil
}

// UnregisterPort performs port_unregister, dropping the local
// bookkeeping entry and returning the slot to its pool.
func (c *Client) UnregisterPort(port *portpool.Port) error {
	if port == nil || port.Object == nil {
		return fmt.Errorf("%w: nil port", api.ErrInvalidArgument)
	}
	pool := c.outPorts
	if port.Dir == api.DirInput {
		pool = c.inPorts
	}
	err := c.doSync(func() error {
		c.mirror.DropLocalPort(port.Object.FullName)
		pool.Release(port)
		return nil
	})
	c.midiPortsMu.Lock()
	for i, p := range c.midiPorts {
		if p == port {
			c.midiPorts = append(c.midiPorts[:i], c.midiPorts[i+1:]...)
			break
		}
	}
	c.midiPortsMu.Unlock()
	return err
}

// PortGetBuffer performs port_get_buffer (§4.F), returning the audio
// float32 view or the MIDI byte view depending on the port's type.
func (c *Client) PortGetBuffer(port *portpool.Port, nframes uint32) any {
	if port.Object != nil && port.Object.Port.Type == api.PortMIDI {
		return c.facade.GetMIDIBuffer(port, nframes)
	}
	return c.facade.GetAudioBuffer(port, nframes)
}

// PortName returns the port's full name.
func (c *Client) PortName(port *portpool.Port) string {
	if port.Object == nil {
		return ""
	}
	return port.Object.Port.FullName
}

// PortShortName returns the port's name without the owning client prefix.
func (c *Client) PortShortName(port *portpool.Port) string {
	full := c.PortName(port)
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ':' {
			return full[i+1:]
		}
	}
	return full
}

// PortFlags returns the port's registration flags.
func (c *Client) PortFlags(port *portpool.Port) api.PortFlags {
	if port.Object == nil {
		return 0
	}
	return port.Object.Port.Flags
}

// PortType returns the port's content type.
func (c *Client) PortType(port *portpool.Port) api.PortType {
	if port.Object == nil {
		return api.PortOther
	}
	return port.Object.Port.Type
}

// PortTypeID returns the legacy integer identifier for the port's type.
func (c *Client) PortTypeID(port *portpool.Port) int {
	return int(c.PortType(port))
}

// PortConnected reports whether any mix currently feeds or drains port.
func (c *Client) PortConnected(port *portpool.Port) bool {
	return len(port.ActiveMixes) > 0
}

// PortConnectedTo reports whether port and other share any active mix.
func (c *Client) PortConnectedTo(port, other *portpool.Port) bool {
	for _, a := range port.ActiveMixes {
		for _, b := range other.ActiveMixes {
			if a == b {
				return true
			}
		}
	}
	return false
}

// PortGetConnections and PortGetAllConnections both return the full
// names of every port currently linked to port (§6); this bridge does
// not distinguish "connections known locally" from "all connections"
// since the registry mirror already reflects the server's full graph.
func (c *Client) PortGetConnections(port *portpool.Port) []string {
	if port.Object == nil {
		return nil
	}
	var names []string
	for _, link := range c.mirror.Links() {
		var peerID uint32
		switch port.Object.ID {
		case link.Link.SrcPort:
			peerID = link.Link.DstPort
		case link.Link.DstPort:
			peerID = link.Link.SrcPort
		default:
			continue
		}
		if peer, ok := c.mirror.ByID(peerID); ok {
			names = append(names, peer.Port.FullName)
		}
	}
	return names
}

func (c *Client) PortGetAllConnections(port *portpool.Port) []string {
	return c.PortGetConnections(port)
}

// PortSetAlias and PortUnsetAlias manage the port's two alias slots (§6).
func (c *Client) PortSetAlias(port *portpool.Port, slot int, alias string) error {
	if port.Object == nil || slot < 0 || slot >= len(port.Object.Port.Alias) {
		return api.ErrInvalidArgument
	}
	return c.doSync(func() error {
		port.Object.Port.Alias[slot] = alias
		return nil
	})
}

func (c *Client) PortUnsetAlias(port *portpool.Port, slot int) error {
	return c.PortSetAlias(port, slot, "")
}

// PortGetAliases returns both alias slots.
func (c *Client) PortGetAliases(port *portpool.Port) [2]string {
	if port.Object == nil {
		return [2]string{}
	}
	return port.Object.Port.Alias
}

// PortGetLatencyRange and PortSetLatencyRange manage the port's
// advertised capture/playback latency band (§6), notifying the latency
// callback on change.
func (c *Client) PortGetLatencyRange(port *portpool.Port, dir api.Direction) api.LatencyRange {
	if port.Object == nil {
		return api.LatencyRange{}
	}
	if dir == api.DirOutput {
		return port.Object.Port.Playback
	}
	return port.Object.Port.Capture
}

func (c *Client) PortSetLatencyRange(port *portpool.Port, dir api.Direction, r api.LatencyRange) error {
	if port.Object == nil {
		return api.ErrInvalidArgument
	}
	err := c.doSync(func() error {
		if dir == api.DirOutput {
			port.Object.Port.Playback = r
		} else {
			port.Object.Port.Capture = r
		}
		return nil
	})
	if err == nil && c.latencyFn != nil {
		c.latencyFn(dir)
	}
	return err
}

// Connect performs connect(src,dst) (§6): asks the server to build a
// link between two full port names.
func (c *Client) Connect(srcPort, dstPort string) error {
	return c.conn.RequestLink(srcPort, dstPort)
}

// Disconnect performs disconnect(src,dst).
func (c *Client) Disconnect(srcPort, dstPort string) error {
	return c.conn.RequestUnlink(srcPort, dstPort)
}

// PortDisconnect tears down every link currently touching port.
func (c *Client) PortDisconnect(port *portpool.Port) error {
	self := c.PortName(port)
	if self == "" {
		return api.ErrInvalidArgument
	}
	for _, peer := range c.PortGetConnections(port) {
		if err := c.conn.RequestUnlink(self, peer); err != nil {
			return err
		}
	}
	return nil
}
