package pmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/machine"
)

func TestAddRegionAndAlloc(t *testing.T) {
	a := New()
	a.AddRegion(0x1000, 0x9000)
	assert.Equal(t, 8, a.FreeCount())

	seen := make(map[machine.PhysAddr]bool)
	for i := 0; i < 8; i++ {
		frame, err := a.Alloc()
		require.NoError(t, err)
		assert.Zero(t, frame.Addr%FrameSize)
		assert.False(t, seen[frame.Addr], "frame handed out twice")
		seen[frame.Addr] = true
	}

	_, err := a.Alloc()
	assert.Equal(t, errno.NoMemory, err)
}

func TestAddRegionAlignsInward(t *testing.T) {
	a := New()
	a.AddRegion(0x1003, 0x3005)
	assert.Equal(t, 1, a.FreeCount())

	a.AddRegion(0x1003, 0x5005)
	assert.Equal(t, 4, a.FreeCount())
	frame, err := a.Alloc()
	require.NoError(t, err)
	assert.Equal(t, machine.PhysAddr(0x4000), frame.Addr)
}

func TestRegionTooSmallYieldsNothing(t *testing.T) {
	a := New()
	a.AddRegion(0x1000, 0x1800)
	assert.Equal(t, 0, a.FreeCount())
}

func TestAllocFreeCycleNeverExhausts(t *testing.T) {
	a := New()
	a.AddRegion(0x1000, 0x5000)
	initial := a.FreeCount()

	for i := 0; i < 10_000; i++ {
		frame, err := a.Alloc()
		require.NoError(t, err)
		a.Free(frame)
	}
	assert.Equal(t, initial, a.FreeCount())
}
