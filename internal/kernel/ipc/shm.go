package ipc

import (
	"github.com/microframe-os/microframe/internal/kernel/pmm"
)

// ShmObject is a shared-memory object: a set of frames owned by the object
// itself, mapped into zero or more address spaces at possibly different
// virtual addresses. It dies when its handle count reaches zero and the last
// mapping is released.
type ShmObject struct {
	id       uint32
	refs     int
	mappings int
	size     uint64
	frames   []pmm.Frame
}

// ID returns the kernel-global object ID.
func (o *ShmObject) ID() uint32 { return o.id }

// Size returns the requested size in bytes.
func (o *ShmObject) Size() uint64 { return o.size }

// Frames returns the object's backing frames in order.
func (o *ShmObject) Frames() []pmm.Frame { return o.frames }

// PageCount returns the number of backing frames.
func (o *ShmObject) PageCount() int { return len(o.frames) }

// AddMapping records one more live mapping of the object.
func (o *ShmObject) AddMapping() { o.mappings++ }

// DropMapping records the release of one mapping.
func (o *ShmObject) DropMapping() {
	if o.mappings > 0 {
		o.mappings--
	}
}

// Mappings returns the live mapping count.
func (o *ShmObject) Mappings() int { return o.mappings }

func (o *ShmObject) dead() bool {
	return o.refs == 0 && o.mappings == 0
}
