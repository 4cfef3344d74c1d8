// Package machine defines the architecture contract consumed by the trusted
// core. The core depends only on these interfaces; exactly one concrete
// implementation is selected when the kernel is wired together, so porting
// means writing a new implementation, never touching the core.
package machine

// PhysAddr is a physical memory address.
type PhysAddr uint64

// VirtAddr is a virtual memory address.
type VirtAddr uint64

// Root identifies one address space's page-table root.
type Root uint64

// PageFlags encode the access rights of a mapping.
type PageFlags uint32

const (
	// FlagRead permits loads.
	FlagRead PageFlags = 1 << iota
	// FlagWrite permits stores.
	FlagWrite
	// FlagExec permits instruction fetch.
	FlagExec
	// FlagUser makes the mapping reachable from user mode.
	FlagUser
)

// Has reports whether all bits of other are set.
func (f PageFlags) Has(other PageFlags) bool {
	return f&other == other
}

// PagingOps is the paging half of the architecture contract.
type PagingOps interface {
	// NewRoot creates an empty address space containing only the shared
	// supervisor-only kernel mappings.
	NewRoot() (Root, error)

	// DestroyRoot releases an address space root. User mappings must have
	// been unmapped by the caller.
	DestroyRoot(root Root)

	// Map establishes a single-page translation. Mapping an already-mapped
	// page is an error surfaced to the caller, never an overwrite.
	Map(root Root, va VirtAddr, pa PhysAddr, flags PageFlags) error

	// Unmap removes a single-page translation. Unmapping an absent page is
	// an error.
	Unmap(root Root, va VirtAddr) error

	// Translate walks the table for root and returns the backing frame and
	// flags, or ok=false when the page is absent.
	Translate(root Root, va VirtAddr) (pa PhysAddr, flags PageFlags, ok bool)

	// Switch activates the given root.
	Switch(root Root)
}

// PhysMemory gives the kernel byte access to physical frames, used by the
// copy paths (IPC, ELF segment population, user buffer access).
type PhysMemory interface {
	ReadPhys(pa PhysAddr, buf []byte) error
	WritePhys(pa PhysAddr, data []byte) error
}

// Clock provides the timebase for sleep deadlines and time_now_ns.
type Clock interface {
	NowNanos() int64
}

// Console is the minimal output device hosted by the kernel for debug_log.
type Console interface {
	Write(p []byte) (int, error)
}

// Machine bundles the full architecture surface handed to the kernel at boot.
type Machine interface {
	PagingOps
	PhysMemory
	Clock() Clock
	Console() Console
}
