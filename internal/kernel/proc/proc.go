// Package proc owns the process control block and the process table. A
// process exclusively owns its address space and kernel stack; endpoints and
// shared-memory objects are held through handles and merely unreferenced at
// exit.
package proc

import (
	"github.com/microframe-os/microframe/internal/kernel/cap"
	"github.com/microframe-os/microframe/internal/kernel/vmm"
	"github.com/microframe-os/microframe/internal/machine"
)

// PID identifies a process. PIDs are assigned monotonically and never
// recycled until the old holder's resources are reclaimed.
type PID uint32

// State is the scheduler-visible lifecycle state.
type State uint8

const (
	// Ready means runnable, waiting in the run queue.
	Ready State = iota
	// Running means currently executing.
	Running
	// Blocked means waiting on an event; see BlockReason.
	Blocked
	// Exited is terminal. The PCB lingers as a zombie until waited on.
	Exited
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// BlockReason says what a Blocked process is waiting for.
type BlockReason uint8

const (
	// BlockNone means the process is not blocked.
	BlockNone BlockReason = iota
	// BlockSleep waits for a timer deadline.
	BlockSleep
	// BlockRecv waits for a message on an empty endpoint.
	BlockRecv
	// BlockSend waits for room on a full endpoint.
	BlockSend
	// BlockWait waits for a child to exit.
	BlockWait
)

// String returns the lowercase reason name.
func (r BlockReason) String() string {
	switch r {
	case BlockSleep:
		return "sleep"
	case BlockRecv:
		return "recv"
	case BlockSend:
		return "send"
	case BlockWait:
		return "wait"
	default:
		return "none"
	}
}

// Context is the saved execution context restored on switch-in. Ret is the
// staged syscall return register, written when a blocked syscall completes
// before the process is switched back in.
type Context struct {
	PC  machine.VirtAddr
	SP  machine.VirtAddr
	Ret int64
}

// KernelStack is the per-process supervisor stack: its top address in the
// kernel half and the frame backing it.
type KernelStack struct {
	Top   machine.VirtAddr
	Frame machine.PhysAddr
}

// ShmMapping records one live mapping of a shared-memory object in this
// process, so teardown can release it.
type ShmMapping struct {
	Object uint32
	VA     machine.VirtAddr
	Pages  int
}

// Process is the kernel's record of one user process.
type Process struct {
	PID    PID
	Name   string
	Parent PID

	State  State
	Block  BlockReason
	Caps   cap.Set
	Space  *vmm.Space
	KStack KernelStack
	Ctx    Context

	// Handles maps local handles to endpoint and shm object IDs.
	Handles cap.Table

	// ShmMaps tracks live shared-memory mappings, bounded by the handle
	// table.
	ShmMaps []ShmMapping

	// PendingCap is the capability attached by cap_transfer, consumed by
	// the next send.
	PendingCap *cap.Capability

	// ExitStatus is valid once State is Exited.
	ExitStatus int32

	// WakeAt is the sleep deadline in nanoseconds, valid under BlockSleep.
	WakeAt int64

	// WaitEndpoint, WaitVA, WaitLen describe the suspended send or recv so
	// the transfer completes when the process is woken.
	WaitEndpoint uint32
	WaitVA       machine.VirtAddr
	WaitLen      uint64

	// WaitChild is the pid a BlockWait parent is waiting for, 0 for any.
	WaitChild PID
}

// Runnable reports whether the process can be handed the CPU.
func (p *Process) Runnable() bool {
	return p.State == Ready || p.State == Running
}

// SetBlocked transitions Running→Blocked with the given reason.
func (p *Process) SetBlocked(reason BlockReason) {
	p.State = Blocked
	p.Block = reason
}

// SetReady transitions into Ready and clears any block reason.
func (p *Process) SetReady() {
	p.State = Ready
	p.Block = BlockNone
	p.WaitEndpoint = 0
	p.WaitVA = 0
	p.WaitLen = 0
	p.WaitChild = 0
}
