// Package boot defines the normalized boot contract. Platform collaborators
// parse whatever the firmware hands them (DTB, UEFI maps) and produce a
// BootInfo; the trusted core consumes only this structure, so platform
// differences never reach it.
package boot

import (
	"github.com/microframe-os/microframe/internal/machine"
)

// MemoryKind tags a physical region in the boot memory map.
type MemoryKind uint8

const (
	// Usable memory may back frames.
	Usable MemoryKind = iota
	// Reserved memory belongs to firmware or the kernel image.
	Reserved
	// Mmio is device memory, never handed to the allocator.
	Mmio
)

// String returns the lowercase kind name.
func (k MemoryKind) String() string {
	switch k {
	case Usable:
		return "usable"
	case Reserved:
		return "reserved"
	case Mmio:
		return "mmio"
	default:
		return "unknown"
	}
}

// MemoryRegion describes one contiguous physical range.
type MemoryRegion struct {
	Start machine.PhysAddr
	End   machine.PhysAddr
	Kind  MemoryKind
}

// FramebufferInfo describes a linear framebuffer provided by the bootloader.
type FramebufferInfo struct {
	Addr   machine.PhysAddr
	Width  uint32
	Height uint32
	Pitch  uint32
	BPP    uint16
}

// InitramfsRange locates the initramfs image in physical memory.
type InitramfsRange struct {
	Start machine.PhysAddr
	End   machine.PhysAddr
}

// BootInfo is the full boot contract handed to the kernel.
type BootInfo struct {
	MemoryMap   []MemoryRegion
	KernelStart machine.PhysAddr
	KernelEnd   machine.PhysAddr
	Initramfs   *InitramfsRange
	DTB         *machine.PhysAddr
	Framebuffer *FramebufferInfo
}

// UsableBytes sums the usable region sizes.
func (b *BootInfo) UsableBytes() uint64 {
	var total uint64
	for _, r := range b.MemoryMap {
		if r.Kind == Usable && r.End > r.Start {
			total += uint64(r.End - r.Start)
		}
	}
	return total
}
