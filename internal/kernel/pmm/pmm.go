// Package pmm owns physical page frames. Frames live in exactly one place at
// a time: the free list here, an address space mapping, or a shared-memory
// object. Transfers happen only through Alloc and Free; callers never alias
// a frame they have handed back.
package pmm

import (
	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/machine"
)

// FrameSize is the size of a physical frame in bytes.
const FrameSize = 4096

// Frame is a single physical 4 KiB frame.
type Frame struct {
	Addr machine.PhysAddr
}

// Allocator is a free-list frame allocator. Alloc and Free are O(1); the
// allocator guarantees only its own free-list integrity, not caller misuse.
type Allocator struct {
	free []Frame
}

// New creates an empty allocator.
func New() *Allocator {
	return &Allocator{}
}

// AddRegion adds the whole frames contained in [start, end) to the free pool.
// Partial frames at either edge are discarded.
func (a *Allocator) AddRegion(start, end machine.PhysAddr) {
	addr := alignUp(start, FrameSize)
	end = alignDown(end, FrameSize)
	for addr+FrameSize <= end {
		a.free = append(a.free, Frame{Addr: addr})
		addr += FrameSize
	}
}

// Alloc removes and returns one free frame.
func (a *Allocator) Alloc() (Frame, error) {
	if len(a.free) == 0 {
		return Frame{}, errno.NoMemory
	}
	frame := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	return frame, nil
}

// Free returns a frame to the pool.
func (a *Allocator) Free(frame Frame) {
	a.free = append(a.free, frame)
}

// FreeCount returns the number of frames currently available.
func (a *Allocator) FreeCount() int {
	return len(a.free)
}

func alignUp(v machine.PhysAddr, align machine.PhysAddr) machine.PhysAddr {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func alignDown(v machine.PhysAddr, align machine.PhysAddr) machine.PhysAddr {
	return v - v%align
}
