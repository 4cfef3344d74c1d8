package kernel

import (
	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/kernel/proc"
	"github.com/microframe-os/microframe/internal/kernel/syscall"
	"github.com/microframe-os/microframe/internal/kernel/trap"
)

// FaultExitStatus is the exit status recorded for a fault-terminated
// process, distinguishable from any voluntary exit code.
const FaultExitStatus int32 = -1

// HandleTrap is the single entry from the architecture stub: every
// interrupt, fault, and syscall lands here and follows Enter, Classify,
// Dispatch, Return. A user fault terminates only the offending process; a
// kernel-mode fault is the one condition allowed to take the system down.
func (k *Kernel) HandleTrap(pid proc.PID, e trap.Event) SyscallResult {
	switch trap.Classify(e) {
	case trap.Dispatch:
		return k.Syscall(pid, syscall.Number(e.Op), e.Args)
	case trap.Preempt:
		k.Tick(k.mach.Clock().NowNanos())
		return SyscallResult{}
	case trap.Terminate:
		k.obs.FaultTaken(e.Kind.String())
		k.log.Warn("terminating faulting process",
			zap.Uint32("pid", uint32(pid)),
			zap.String("fault", e.Kind.String()),
			zap.Uint64("addr", uint64(e.Addr)),
		)
		_ = k.Terminate(pid, FaultExitStatus)
		return SyscallResult{Blocked: true}
	default:
		// Fatal-to-kernel: an inconsistency in the core itself.
		panic(trap.PanicMessage(e))
	}
}
