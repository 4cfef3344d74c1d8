package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/errno"
)

func TestCreateAssignsMonotonicPids(t *testing.T) {
	tbl := NewTable()

	a, err := tbl.Create("init", 0)
	require.NoError(t, err)
	b, err := tbl.Create("console", a.PID)
	require.NoError(t, err)

	assert.Equal(t, PID(1), a.PID)
	assert.Equal(t, PID(2), b.PID)
	assert.Equal(t, Ready, a.State)

	// Removal does not recycle the pid.
	tbl.Remove(b.PID)
	c, err := tbl.Create("shell", a.PID)
	require.NoError(t, err)
	assert.Equal(t, PID(3), c.PID)
}

func TestGetUnknownPid(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Get(42)
	assert.Equal(t, errno.NotFound, err)
}

func TestBlockAndReadyTransitions(t *testing.T) {
	tbl := NewTable()
	p, _ := tbl.Create("svc", 0)

	p.State = Running
	p.SetBlocked(BlockRecv)
	p.WaitEndpoint = 3
	assert.Equal(t, Blocked, p.State)
	assert.Equal(t, "recv", p.Block.String())
	assert.False(t, p.Runnable())

	p.SetReady()
	assert.Equal(t, Ready, p.State)
	assert.Equal(t, BlockNone, p.Block)
	assert.Zero(t, p.WaitEndpoint)
	assert.True(t, p.Runnable())
}

func TestZombieLookup(t *testing.T) {
	tbl := NewTable()
	parent, _ := tbl.Create("init", 0)
	child, _ := tbl.Create("worker", parent.PID)
	other, _ := tbl.Create("stranger", 0)

	_, ok := tbl.Zombie(parent.PID, 0)
	assert.False(t, ok)

	child.State = Exited
	child.ExitStatus = 7
	other.State = Exited

	z, ok := tbl.Zombie(parent.PID, 0)
	require.True(t, ok)
	assert.Equal(t, child.PID, z.PID)
	assert.Equal(t, int32(7), z.ExitStatus)

	_, ok = tbl.Zombie(parent.PID, other.PID)
	assert.False(t, ok)
}

func TestHasChildren(t *testing.T) {
	tbl := NewTable()
	parent, _ := tbl.Create("init", 0)
	child, _ := tbl.Create("worker", parent.PID)

	assert.True(t, tbl.HasChildren(parent.PID, 0))
	assert.True(t, tbl.HasChildren(parent.PID, child.PID))
	assert.False(t, tbl.HasChildren(parent.PID, 99))

	tbl.Remove(child.PID)
	assert.False(t, tbl.HasChildren(parent.PID, 0))
}
