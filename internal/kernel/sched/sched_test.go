package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/microframe-os/microframe/internal/kernel/proc"
)

func TestRoundRobinRotation(t *testing.T) {
	s := New()
	s.PushReady(1)
	s.PushReady(2)
	s.PushReady(3)

	assert.Equal(t, proc.PID(1), s.Next())
	assert.Equal(t, proc.PID(1), s.Current())
	assert.Equal(t, 2, s.ReadyCount())

	assert.Equal(t, proc.PID(2), s.Next())
	assert.Equal(t, proc.PID(3), s.Next())
	// Full rotation comes back around in the same order.
	assert.Equal(t, proc.PID(1), s.Next())
}

func TestNextWithEmptyQueue(t *testing.T) {
	s := New()
	assert.Equal(t, proc.PID(0), s.Next())

	s.PushReady(5)
	assert.Equal(t, proc.PID(5), s.Next())
	// Sole process keeps running across ticks.
	assert.Equal(t, proc.PID(5), s.Next())
}

func TestBlockCurrent(t *testing.T) {
	s := New()
	s.PushReady(7)
	s.Next()

	assert.Equal(t, proc.PID(7), s.BlockCurrent())
	assert.Equal(t, proc.PID(0), s.Current())
	assert.Equal(t, proc.PID(0), s.Next())
}

func TestDropRemovesEverywhere(t *testing.T) {
	s := New()
	s.PushReady(1)
	s.PushReady(2)
	s.Next() // 1 running

	s.Sleep(3, 100)
	s.Drop(1)
	s.Drop(3)

	assert.Equal(t, proc.PID(0), s.Current())
	assert.Equal(t, 0, s.SleeperCount())
	assert.Equal(t, proc.PID(2), s.Next())
}

func TestSleepWakesInDeadlineOrder(t *testing.T) {
	s := New()
	s.Sleep(1, 300)
	s.Sleep(2, 100)
	s.Sleep(3, 200)
	s.Sleep(4, 100) // FIFO among equal deadlines

	assert.Empty(t, s.WakeDue(50))
	assert.Equal(t, []proc.PID{2, 4}, s.WakeDue(100))
	assert.Equal(t, []proc.PID{3, 1}, s.WakeDue(1000))
	assert.Equal(t, 0, s.SleeperCount())
}
