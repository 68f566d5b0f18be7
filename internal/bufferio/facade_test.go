// File: internal/bufferio/facade_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bufferio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/graphbridge/api"
	"github.com/momentics/graphbridge/internal/portpool"
	"github.com/momentics/graphbridge/internal/shm"
)

type mixTable map[uint32]*portpool.Mix

func (m mixTable) ResolveMix(id uint32) *portpool.Mix { return m[id] }

func planeOf(frames int, fill float32) shm.Plane {
	data := make([]byte, frames*4)
	p := shm.Plane{Data: data}
	floats := floatsOf(p.Data)
	for i := range floats {
		floats[i] = fill
	}
	return p
}

func TestGetAudioBufferNoSourcesReturnsEmpty(t *testing.T) {
	pool := portpool.NewPortPool(api.DirInput)
	port := pool.Acquire()
	f := NewFacade(mixTable{}, nil, nil)

	buf := f.GetAudioBuffer(port, 64)
	require.Len(t, buf, 64)
	for _, v := range buf {
		require.Zero(t, v)
	}
}

func TestGetAudioBufferSingleSourceIsZeroCopy(t *testing.T) {
	pool := portpool.NewPortPool(api.DirInput)
	port := pool.Acquire()
	port.ActiveMixes = append(port.ActiveMixes, 1)

	mix := portpool.Mix{ID: 1, IO: &shm.IOBuffers{Status: shm.IOHaveData, BufferID: 7}}
	bd := &shm.BufferDescriptor{ID: 7, NPlanes: 1}
	bd.Planes[0] = planeOf(64, 0.5)
	mix.Buffers[0] = bd
	mix.NBuffers = 1

	f := NewFacade(mixTable{1: &mix}, nil, nil)
	buf := f.GetAudioBuffer(port, 64)
	require.Len(t, buf, 64)
	require.InDelta(t, 0.5, buf[0], 1e-6)

	// Zero-copy: mutating the returned slice mutates the mapped plane.
	buf[0] = 9
	require.InDelta(t, 9, floatsOf(bd.Planes[0].Data)[0], 1e-6)
}

func TestGetAudioBufferMultiSourceSumsIntoScratch(t *testing.T) {
	pool := portpool.NewPortPool(api.DirInput)
	port := pool.Acquire()
	port.ActiveMixes = append(port.ActiveMixes, 1, 2)

	mix1 := portpool.Mix{ID: 1, IO: &shm.IOBuffers{Status: shm.IOHaveData, BufferID: 1}}
	bd1 := &shm.BufferDescriptor{ID: 1, NPlanes: 1}
	bd1.Planes[0] = planeOf(32, 0.25)
	mix1.Buffers[0] = bd1
	mix1.NBuffers = 1

	mix2 := portpool.Mix{ID: 2, IO: &shm.IOBuffers{Status: shm.IOHaveData, BufferID: 2}}
	bd2 := &shm.BufferDescriptor{ID: 2, NPlanes: 1}
	bd2.Planes[0] = planeOf(32, 0.75)
	mix2.Buffers[0] = bd2
	mix2.NBuffers = 1

	f := NewFacade(mixTable{1: &mix1, 2: &mix2}, nil, nil)
	buf := f.GetAudioBuffer(port, 32)
	require.Len(t, buf, 32)
	require.InDelta(t, 1.0, buf[0], 1e-6)
}

func TestGetAudioBufferOutputTeesToAllHeldBuffers(t *testing.T) {
	pool := portpool.NewPortPool(api.DirOutput)
	port := pool.Acquire()
	port.ActiveMixes = append(port.ActiveMixes, 1)

	mix := portpool.Mix{ID: 1}
	bdA := &shm.BufferDescriptor{ID: 1, NPlanes: 1}
	bdA.Planes[0] = planeOf(16, 0)
	bdB := &shm.BufferDescriptor{ID: 2, NPlanes: 1}
	bdB.Planes[0] = planeOf(16, 0)
	mix.Buffers[0] = bdA
	mix.Buffers[1] = bdB
	mix.NBuffers = 2
	mix.PushFree(bdA)

	f := NewFacade(mixTable{1: &mix}, nil, nil)
	buf := f.GetAudioBuffer(port, 16)
	for i := range buf {
		buf[i] = 3
	}
	f.tee(&mix, bdA, buf, 16)

	require.InDelta(t, 3, floatsOf(bdB.Planes[0].Data)[0], 1e-6)
}

type recordingMerger struct{ called bool }

func (r *recordingMerger) Merge(sources [][]byte, out []byte) int { r.called = true; return 0 }

func TestGetMIDIBufferInputDelegatesToMerger(t *testing.T) {
	pool := portpool.NewPortPool(api.DirInput)
	port := pool.Acquire()
	merger := &recordingMerger{}
	f := NewFacade(mixTable{}, merger, nil)

	_ = f.GetMIDIBuffer(port, 32)
	require.True(t, merger.called)
}

type recordingEmptier struct{ called bool }

func (r *recordingEmptier) Empty(out []byte) { r.called = true }

func TestGetMIDIBufferOutputAlwaysEmpty(t *testing.T) {
	pool := portpool.NewPortPool(api.DirOutput)
	port := pool.Acquire()
	emptier := &recordingEmptier{}
	f := NewFacade(mixTable{}, nil, emptier)

	_ = f.GetMIDIBuffer(port, 32)
	require.True(t, emptier.called)
}
