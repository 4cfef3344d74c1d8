// Package trap normalizes architecture events into one dispatch decision.
// Every trap walks the same state machine: Enter, Classify, Dispatch,
// Return. The policy here is the isolation guarantee: a user-mode fault
// kills the faulting process and nothing else; only a fault taken while
// already in kernel mode may bring the system down.
package trap

import (
	"fmt"

	"github.com/microframe-os/microframe/internal/machine"
)

// Kind classifies a trap.
type Kind uint8

const (
	// PageFault is an access to an unmapped page.
	PageFault Kind = iota
	// PermissionFault is an access violating mapping permissions or
	// reaching into kernel space.
	PermissionFault
	// IllegalInstruction covers undefined and privileged opcodes in user
	// mode.
	IllegalInstruction
	// TimerInterrupt is the preemption tick.
	TimerInterrupt
	// SyscallTrap is a syscall entry.
	SyscallTrap
)

// String returns the trap kind name.
func (k Kind) String() string {
	switch k {
	case PageFault:
		return "page_fault"
	case PermissionFault:
		return "permission_fault"
	case IllegalInstruction:
		return "illegal_instruction"
	case TimerInterrupt:
		return "timer_interrupt"
	case SyscallTrap:
		return "syscall"
	default:
		return "unknown"
	}
}

// Mode says which privilege level the trap was taken from.
type Mode uint8

const (
	// UserMode traps come from user code.
	UserMode Mode = iota
	// KernelMode traps mean the kernel itself faulted.
	KernelMode
)

// Event is one normalized trap, produced by the architecture stub.
type Event struct {
	Kind Kind
	Mode Mode

	// Addr is the faulting address for memory faults.
	Addr machine.VirtAddr

	// Op and Args carry the syscall request for SyscallTrap events.
	Op   uint32
	Args [6]uint64
}

// Disposition is the classified outcome of a trap.
type Disposition uint8

const (
	// Dispatch routes to the syscall dispatcher.
	Dispatch Disposition = iota
	// Preempt routes to the scheduler tick.
	Preempt
	// Terminate kills the offending process; the kernel continues.
	Terminate
	// Panic is reserved for kernel-mode faults, the only system-fatal case.
	Panic
)

// Classify applies the fault policy to an event.
func Classify(e Event) Disposition {
	switch e.Kind {
	case SyscallTrap:
		return Dispatch
	case TimerInterrupt:
		return Preempt
	default:
		if e.Mode == KernelMode {
			return Panic
		}
		return Terminate
	}
}

// PanicMessage renders the fatal diagnostic for a kernel-mode fault.
func PanicMessage(e Event) string {
	return fmt.Sprintf("kernel-mode %s at %#x", e.Kind, uint64(e.Addr))
}
