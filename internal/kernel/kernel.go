// Package kernel is the trusted core: it owns the frame allocator, address
// spaces, the process table, the scheduler, and the IPC registry, and it is
// the only code that mutates them. All mutation happens inside trap or
// syscall handling under one lock, the hosted stand-in for an
// interrupt-disable section: short, bounded, never held across a blocking
// point.
package kernel

import (
	"sync"

	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/kernel/boot"
	"github.com/microframe-os/microframe/internal/kernel/ipc"
	"github.com/microframe-os/microframe/internal/kernel/pmm"
	"github.com/microframe-os/microframe/internal/kernel/proc"
	"github.com/microframe-os/microframe/internal/kernel/sched"
	"github.com/microframe-os/microframe/internal/kernel/vmm"
	"github.com/microframe-os/microframe/internal/machine"
)

// DefaultStackTop is the top of the user stack, just below the user half's
// ceiling with a guard gap.
const DefaultStackTop machine.VirtAddr = 0x0000_7FFF_FF00_0000

// DefaultStackPages is the user stack size in pages.
const DefaultStackPages = 4

// Config tunes boot-time constants.
type Config struct {
	// QueueDepth is the per-endpoint message bound; zero means the IPC
	// default of 64.
	QueueDepth int
	// StackPages is the user stack size; zero means DefaultStackPages.
	StackPages int
	// StackTop overrides the user stack top; zero means DefaultStackTop.
	StackTop machine.VirtAddr
}

func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = ipc.DefaultQueueDepth
	}
	if c.StackPages <= 0 {
		c.StackPages = DefaultStackPages
	}
	if c.StackTop == 0 {
		c.StackTop = DefaultStackTop
	}
	return c
}

// Observer receives kernel events for metrics. Implementations must be
// cheap; they run inside the kernel's critical section.
type Observer interface {
	SyscallExecuted(op string, ret int64)
	ContextSwitch()
	FaultTaken(kind string)
	ProcessSpawned()
	ProcessExited()
}

// NopObserver discards all events.
type NopObserver struct{}

// SyscallExecuted implements Observer.
func (NopObserver) SyscallExecuted(string, int64) {}

// ContextSwitch implements Observer.
func (NopObserver) ContextSwitch() {}

// FaultTaken implements Observer.
func (NopObserver) FaultTaken(string) {}

// ProcessSpawned implements Observer.
func (NopObserver) ProcessSpawned() {}

// ProcessExited implements Observer.
func (NopObserver) ProcessExited() {}

// Kernel is the trusted computing base rooted on one machine.
type Kernel struct {
	mu sync.Mutex

	mach    machine.Machine
	cfg     Config
	frames  *pmm.Allocator
	vm      *vmm.Manager
	procs   *proc.Table
	sched   *sched.Scheduler
	reg     *ipc.Registry
	modules map[string][]byte

	totalFrames int

	log *zap.Logger
	obs Observer
}

// New boots a kernel on the given machine. Usable memory regions feed the
// frame allocator with the kernel image carved out; an initramfs range, if
// present, is read from physical memory and indexed as the module library.
func New(mach machine.Machine, info *boot.BootInfo, cfg Config, log *zap.Logger, obs Observer) (*Kernel, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	k := &Kernel{
		mach:    mach,
		cfg:     cfg.withDefaults(),
		frames:  pmm.New(),
		procs:   proc.NewTable(),
		sched:   sched.New(),
		modules: make(map[string][]byte),
		log:     log,
		obs:     obs,
	}
	k.vm = vmm.New(mach, mach)
	k.reg = ipc.NewRegistry(k.cfg.QueueDepth)

	for _, region := range info.MemoryMap {
		if region.Kind != boot.Usable {
			continue
		}
		for _, r := range carve(region.Start, region.End, info.KernelStart, info.KernelEnd) {
			k.frames.AddRegion(r.start, r.end)
		}
	}
	k.totalFrames = k.frames.FreeCount()

	if info.Initramfs != nil {
		if err := k.loadInitramfs(info.Initramfs); err != nil {
			return nil, err
		}
	}

	k.log.Info("kernel up",
		zap.Int("free_frames", k.frames.FreeCount()),
		zap.Int("modules", len(k.modules)),
		zap.Int("queue_depth", k.cfg.QueueDepth),
	)
	return k, nil
}

func (k *Kernel) loadInitramfs(r *boot.InitramfsRange) error {
	if r.End <= r.Start {
		return nil
	}
	image := make([]byte, r.End-r.Start)
	if err := k.mach.ReadPhys(r.Start, image); err != nil {
		return err
	}
	entries, err := boot.ParseInitramfs(image)
	if err != nil {
		return err
	}
	for _, e := range entries {
		k.modules[e.Name] = e.Data
	}
	return nil
}

// RegisterModule adds a named module image to the library, the path used by
// the hosted loader when no initramfs is present.
func (k *Kernel) RegisterModule(name string, image []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	owned := make([]byte, len(image))
	copy(owned, image)
	k.modules[name] = owned
}

// Modules lists the module library names.
func (k *Kernel) Modules() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, 0, len(k.modules))
	for name := range k.modules {
		out = append(out, name)
	}
	return out
}

// Tick is the timer interrupt: wake due sleepers, preempt the running
// process, pick the next one round-robin. Returns the pid now running, or 0
// when the system is idle.
func (k *Kernel) Tick(nowNanos int64) proc.PID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tickLocked(nowNanos)
}

// TickNow ticks at the machine clock's current time.
func (k *Kernel) TickNow() proc.PID {
	return k.Tick(k.mach.Clock().NowNanos())
}

func (k *Kernel) tickLocked(nowNanos int64) proc.PID {
	for _, pid := range k.sched.WakeDue(nowNanos) {
		p, err := k.procs.Get(pid)
		if err != nil || p.State != proc.Blocked || p.Block != proc.BlockSleep {
			continue
		}
		p.Ctx.Ret = 0
		k.wake(p)
	}

	prev := k.sched.Current()
	next := k.sched.Next()
	if prev != 0 && prev != next {
		if p, err := k.procs.Get(prev); err == nil && p.State == proc.Running {
			p.State = proc.Ready
		}
	}
	if next == 0 {
		return 0
	}
	p, err := k.procs.Get(next)
	if err != nil {
		return 0
	}
	p.State = proc.Running
	k.vm.Switch(p.Space)
	if prev != next {
		k.obs.ContextSwitch()
	}
	return next
}

// wake moves a blocked process back to Ready and requeues it. Becoming
// unblocked is an ordinary event; there is no hidden continuation state
// beyond the staged return register.
func (k *Kernel) wake(p *proc.Process) {
	p.SetReady()
	k.sched.PushReady(p.PID)
}

type carved struct {
	start, end machine.PhysAddr
}

// carve subtracts the kernel image range from a usable region.
func carve(start, end, holeStart, holeEnd machine.PhysAddr) []carved {
	if holeEnd <= start || holeStart >= end {
		return []carved{{start, end}}
	}
	var out []carved
	if holeStart > start {
		out = append(out, carved{start, holeStart})
	}
	if holeEnd < end {
		out = append(out, carved{holeEnd, end})
	}
	return out
}
