// File: internal/shm/manager_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import (
	"errors"
	"sync"
	"testing"

	"github.com/momentics/graphbridge/api"
	"github.com/stretchr/testify/require"
)

// fakeMapper records every Map/Unmap/Mlock call so tests can assert on
// ordering and arguments without touching real shared memory.
type fakeMapper struct {
	mu       sync.Mutex
	mapped   []MemRegion
	unmapped [][]byte
	mlocked  [][]byte
	mlockErr error
}

func (f *fakeMapper) Map(region MemRegion) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mapped = append(f.mapped, region)
	return make([]byte, region.Size), nil
}

func (f *fakeMapper) Unmap(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmapped = append(f.unmapped, data)
	return nil
}

func (f *fakeMapper) Mlock(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mlocked = append(f.mlocked, data)
	return f.mlockErr
}

func TestSetIOReplacesPriorMapping(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)
	tag := IOTag{NodeID: 1, Dir: api.DirOutput, PortID: 2, IOID: 3}

	h1, err := mgr.SetIO(tag, MemRegion{MemID: 10, Size: 64})
	require.NoError(t, err)
	require.NotNil(t, h1)

	h2, err := mgr.SetIO(tag, MemRegion{MemID: 11, Size: 128})
	require.NoError(t, err)
	require.NotNil(t, h2)

	require.Len(t, fm.unmapped, 1, "replacing a tag must unmap the prior handle")
	require.Same(t, &h1.Data[0], &fm.unmapped[0][0])

	got, ok := mgr.Lookup(tag)
	require.True(t, ok)
	require.Same(t, h2, got)
}

func TestSetIOZeroSizeClears(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)
	tag := IOTag{NodeID: 1, IOID: 1}

	_, err := mgr.SetIO(tag, MemRegion{MemID: 5, Size: 32})
	require.NoError(t, err)

	h, err := mgr.SetIO(tag, MemRegion{})
	require.NoError(t, err)
	require.Nil(t, h)
	require.Len(t, fm.unmapped, 1)

	_, ok := mgr.Lookup(tag)
	require.False(t, ok)
}

func TestClearIOUnmapsTaggedHandle(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)
	tag := IOTag{NodeID: 1, IOID: 1}

	_, err := mgr.SetIO(tag, MemRegion{MemID: 5, Size: 32})
	require.NoError(t, err)

	mgr.ClearIO(tag)
	require.Len(t, fm.unmapped, 1)

	_, ok := mgr.Lookup(tag)
	require.False(t, ok)

	// Clearing an already-clear tag is a no-op.
	mgr.ClearIO(tag)
	require.Len(t, fm.unmapped, 1)
}

func TestUseBuffersMemIDPlaneGetsSeparateMapping(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)

	specs := []BufferSpec{
		{
			ID:   7,
			Meta: MemRegion{MemID: 1, Size: 64},
			Planes: []PlaneSpec{
				{Type: PlaneMemID, Region: MemRegion{MemID: 2, Size: 4096}},
			},
		},
	}

	bds, err := mgr.UseBuffers(specs, nil)
	require.NoError(t, err)
	require.Len(t, bds, 1)

	bd := bds[0]
	require.Equal(t, uint32(7), bd.ID)
	require.Equal(t, 2, bd.NMems, "metadata region plus one MemId plane")
	require.Equal(t, 1, bd.NPlanes)
	require.Len(t, bd.Planes[0].Data, 4096)

	require.Len(t, fm.mapped, 2)
	require.Equal(t, uint32(1), fm.mapped[0].MemID)
	require.Equal(t, uint32(2), fm.mapped[1].MemID)
}

func TestUseBuffersMemPtrPlaneIsEmbeddedInMetadata(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)

	specs := []BufferSpec{
		{
			ID:   9,
			Meta: MemRegion{MemID: 1, Size: 256},
			Planes: []PlaneSpec{
				{Type: PlaneMemPtr, EmbeddedOffset: 16, EmbeddedSize: 32},
			},
		},
	}

	bds, err := mgr.UseBuffers(specs, nil)
	require.NoError(t, err)

	bd := bds[0]
	require.Equal(t, 1, bd.NMems, "embedded plane does not add a mapping")
	require.Equal(t, 1, bd.NPlanes)
	require.Len(t, bd.Planes[0].Data, 32)
	require.Len(t, fm.mapped, 1, "only the metadata region is mapped")
}

func TestUseBuffersMemPtrPlaneOutOfBoundsFails(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)

	specs := []BufferSpec{
		{
			ID:   1,
			Meta: MemRegion{MemID: 1, Size: 16},
			Planes: []PlaneSpec{
				{Type: PlaneMemPtr, EmbeddedOffset: 8, EmbeddedSize: 32},
			},
		},
	}

	_, err := mgr.UseBuffers(specs, nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestUseBuffersMlockFailureIsWarnedNotFatal(t *testing.T) {
	fm := &fakeMapper{mlockErr: errors.New("EPERM")}
	mgr := NewManager(fm)

	specs := []BufferSpec{
		{ID: 1, Meta: MemRegion{MemID: 1, Size: 16}},
	}

	var warnings []error
	bds, err := mgr.UseBuffers(specs, func(e error) { warnings = append(warnings, e) })
	require.NoError(t, err)
	require.Len(t, bds, 1)
	require.Len(t, warnings, 1)
}

func TestReleaseBuffersUnmapsEveryHandle(t *testing.T) {
	fm := &fakeMapper{}
	mgr := NewManager(fm)

	specs := []BufferSpec{
		{
			ID:   1,
			Meta: MemRegion{MemID: 1, Size: 16},
			Planes: []PlaneSpec{
				{Type: PlaneMemID, Region: MemRegion{MemID: 2, Size: 16}},
			},
		},
	}
	bds, err := mgr.UseBuffers(specs, nil)
	require.NoError(t, err)

	mgr.ReleaseBuffers(bds)
	require.Len(t, fm.unmapped, 2)
}
