package vmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/kernel/pmm"
	"github.com/microframe-os/microframe/internal/machine"
	"github.com/microframe-os/microframe/internal/machine/sim"
)

func newManager(t *testing.T) (*Manager, *Space, *sim.Machine) {
	t.Helper()
	m := sim.New(1 << 20)
	mgr := New(m, m)
	space, err := mgr.NewSpace()
	require.NoError(t, err)
	return mgr, space, m
}

func TestMapAndUnmap(t *testing.T) {
	mgr, space, m := newManager(t)

	require.NoError(t, mgr.Map(space, 0x4000, 0x8000, machine.FlagRead|machine.FlagUser, true))
	assert.Equal(t, 1, space.PageCount())

	// The translation is live on the machine.
	pa, _, ok := m.Translate(space.Root, 0x4000)
	require.True(t, ok)
	assert.Equal(t, machine.PhysAddr(0x8000), pa)

	page, err := mgr.Unmap(space, 0x4000)
	require.NoError(t, err)
	assert.True(t, page.Owned)
	assert.Equal(t, 0, space.PageCount())
}

func TestMapCollisionIsError(t *testing.T) {
	mgr, space, _ := newManager(t)
	require.NoError(t, mgr.Map(space, 0x4000, 0x8000, machine.FlagRead|machine.FlagUser, true))
	err := mgr.Map(space, 0x4000, 0x9000, machine.FlagRead|machine.FlagUser, true)
	assert.Equal(t, errno.AlreadyMapped, err)
}

func TestUnmapAbsentIsError(t *testing.T) {
	mgr, space, _ := newManager(t)
	_, err := mgr.Unmap(space, 0x4000)
	assert.Equal(t, errno.NotMapped, err)
}

func TestWriteXorExecuteRejected(t *testing.T) {
	mgr, space, _ := newManager(t)
	err := mgr.Map(space, 0x4000, 0x8000, machine.FlagWrite|machine.FlagExec|machine.FlagUser, true)
	assert.Equal(t, errno.InvalidArgument, err)
}

func TestUserMappingCannotEnterKernelHalf(t *testing.T) {
	mgr, space, _ := newManager(t)
	err := mgr.Map(space, KernelVirtBase, 0x8000, machine.FlagRead|machine.FlagUser, true)
	assert.Equal(t, errno.PermissionDenied, err)
}

func TestDestroyFreesOwnedFramesOnly(t *testing.T) {
	mgr, space, _ := newManager(t)
	alloc := pmm.New()

	require.NoError(t, mgr.Map(space, 0x4000, 0x8000, machine.FlagRead|machine.FlagUser, true))
	require.NoError(t, mgr.Map(space, 0x5000, 0x9000, machine.FlagRead|machine.FlagUser, false))

	mgr.Destroy(space, alloc)
	assert.Equal(t, 1, alloc.FreeCount())
}

func TestFindFreeSkipsMappedRanges(t *testing.T) {
	mgr, space, _ := newManager(t)
	require.NoError(t, mgr.Map(space, 0x10000, 0x8000, machine.FlagRead|machine.FlagUser, true))

	va, err := space.FindFree(0x10000, 2)
	require.NoError(t, err)
	assert.Equal(t, machine.VirtAddr(0x11000), va)

	va, err = space.FindFree(0, 1)
	require.NoError(t, err)
	assert.Equal(t, machine.VirtAddr(PageSize), va)
}

func TestValidateUserBuffer(t *testing.T) {
	assert.NoError(t, ValidateUserBuffer(0x1000, 4))
	assert.Equal(t, errno.InvalidArgument, ValidateUserBuffer(0, 0))
	assert.Equal(t, errno.PermissionDenied, ValidateUserBuffer(KernelVirtBase, 4))
	assert.Equal(t, errno.InvalidArgument, ValidateUserBuffer(^machine.VirtAddr(1), 4))
	// Range ending exactly at the kernel boundary is rejected too.
	assert.Equal(t, errno.PermissionDenied, ValidateUserBuffer(KernelVirtBase-2, 4))
}

func TestCopyInOutRoundTrip(t *testing.T) {
	mgr, space, _ := newManager(t)
	require.NoError(t, mgr.Map(space, 0x4000, 0x8000, machine.FlagRead|machine.FlagWrite|machine.FlagUser, true))
	require.NoError(t, mgr.Map(space, 0x5000, 0xA000, machine.FlagRead|machine.FlagWrite|machine.FlagUser, true))

	// Crosses the page boundary: frames are discontiguous on purpose.
	data := make([]byte, 6000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, mgr.CopyOut(space, 0x4100, data))

	got := make([]byte, len(data))
	require.NoError(t, mgr.CopyIn(space, 0x4100, got))
	assert.Equal(t, data, got)
}

func TestCopyRespectsPermissions(t *testing.T) {
	mgr, space, _ := newManager(t)
	require.NoError(t, mgr.Map(space, 0x4000, 0x8000, machine.FlagRead|machine.FlagUser, true))

	err := mgr.CopyOut(space, 0x4000, []byte{1})
	assert.Equal(t, errno.PermissionDenied, err)

	// Supervisor-only page is unreachable even for reads.
	require.NoError(t, mgr.Map(space, 0x6000, 0x9000, machine.FlagRead, true))
	err = mgr.CopyIn(space, 0x6000, make([]byte, 1))
	assert.Equal(t, errno.PermissionDenied, err)

	err = mgr.CopyIn(space, 0x7000, make([]byte, 1))
	assert.Equal(t, errno.BadAddress, err)
}
