// File: internal/registry/mirror_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import (
	"testing"

	"github.com/momentics/graphbridge/api"
	"github.com/stretchr/testify/require"
)

func TestNodeNameFallback(t *testing.T) {
	m := NewMirror(1)
	obj := m.HandleNodeGlobal(10, Props{"node.nick": "Mixer", "priority.master": "5"})
	require.Equal(t, "Mixer/10", obj.Node.Name)
	require.Equal(t, int32(5), obj.Node.Priority)

	obj2 := m.HandleNodeGlobal(11, Props{})
	require.Equal(t, "node/11", obj2.Node.Name)
}

func TestPortGlobalReusesLocalRegistration(t *testing.T) {
	m := NewMirror(1)
	m.HandleNodeGlobal(1, Props{"node.name": "myclient"})

	local := m.NoteLocalPort("myclient:out_L", api.DirOutput, api.PortAudio, 0)
	require.Equal(t, api.InvalidID, local.ID)

	obj := m.HandlePortGlobal(42, Props{
		"node.id":   "1",
		"port.name": "out_L",
		"direction": "out",
	})
	require.Equal(t, uint32(42), obj.ID)
	require.Same(t, local, obj)
	require.Equal(t, "myclient:out_L", obj.Port.FullName)

	_, ok := m.localPorts["myclient:out_L"]
	require.False(t, ok)
}

func TestPortGlobalForeignPortAllocatesFresh(t *testing.T) {
	m := NewMirror(1)
	m.HandleNodeGlobal(2, Props{"node.name": "other"})
	obj := m.HandlePortGlobal(99, Props{
		"node.id":   "2",
		"port.name": "in_1",
		"direction": "in",
		"control":   "true",
	})
	require.Equal(t, api.PortMIDI, obj.Port.Type)
	require.Equal(t, "other:in_1", obj.Port.FullName)
}

func TestLinkGlobalParsesPeerPorts(t *testing.T) {
	m := NewMirror(1)
	obj := m.HandleLinkGlobal(7, Props{
		"link.output.port": "42",
		"link.input.port":  "99",
	})
	require.Equal(t, uint32(42), obj.Link.SrcPort)
	require.Equal(t, uint32(99), obj.Link.DstPort)
}

func TestRemovedObjectStaysResolvableUntilReuse(t *testing.T) {
	m := NewMirror(1)
	m.HandleNodeGlobal(5, Props{"node.name": "gone"})
	m.HandleGlobalRemove(5)

	obj, ok := m.ByID(5)
	require.True(t, ok)
	require.True(t, obj.Removed)
	require.Equal(t, "gone/5", obj.Node.Name)

	reused := m.HandleNodeGlobal(5, Props{"node.name": "new-owner"})
	require.False(t, reused.Removed)
	require.Equal(t, "new-owner/5", reused.Node.Name)
	require.Equal(t, uint32(1), reused.Generation)
}

func TestRegistrationCallbackRunsUnlocked(t *testing.T) {
	m := NewMirror(1)
	var order []string
	m.SetLockHooks(
		func() { order = append(order, "unlock") },
		func() { order = append(order, "relock") },
	)
	m.OnNodeRegistration(func(id uint32, removed bool) {
		order = append(order, "callback")
	})
	m.HandleNodeGlobal(1, Props{})
	require.Equal(t, []string{"unlock", "callback", "relock"}, order)
}
