package kernel

import (
	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/kernel/cap"
	"github.com/microframe-os/microframe/internal/kernel/elf"
	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/kernel/pmm"
	"github.com/microframe-os/microframe/internal/kernel/proc"
	"github.com/microframe-os/microframe/internal/kernel/vmm"
	"github.com/microframe-os/microframe/internal/machine"
)

// Spawn creates a process from a module in the library: parse the image, map
// every PT_LOAD segment with its requested permissions, prepare the user
// stack, and mark the process Ready with the entry point installed. Any
// failure rolls the partial process back completely.
func (k *Kernel) Spawn(name string, caps cap.Set, parent proc.PID) (proc.PID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.spawnLocked(name, caps, parent)
}

func (k *Kernel) spawnLocked(name string, caps cap.Set, parent proc.PID) (proc.PID, error) {
	image, ok := k.modules[name]
	if !ok {
		return 0, errno.NotFound
	}
	parsed, err := elf.Parse(image)
	if err != nil {
		return 0, err
	}

	p, err := k.procs.Create(name, parent)
	if err != nil {
		return 0, err
	}
	space, err := k.vm.NewSpace()
	if err != nil {
		k.procs.Remove(p.PID)
		return 0, err
	}
	p.Space = space
	p.Caps = caps

	undo := func() {
		k.vm.Destroy(space, k.frames)
		if p.KStack.Frame != 0 {
			k.frames.Free(pmm.Frame{Addr: p.KStack.Frame})
		}
		k.procs.Remove(p.PID)
	}

	for _, seg := range parsed.Segments {
		if err := k.mapSegment(space, seg); err != nil {
			undo()
			return 0, err
		}
	}
	if err := k.mapStack(space); err != nil {
		undo()
		return 0, err
	}

	kframe, err := k.frames.Alloc()
	if err != nil {
		undo()
		return 0, err
	}
	p.KStack = proc.KernelStack{
		Top:   vmm.KernelVirtBase + machine.VirtAddr(kframe.Addr) + pmm.FrameSize,
		Frame: kframe.Addr,
	}

	p.Ctx = proc.Context{PC: parsed.Entry, SP: k.cfg.StackTop}
	k.sched.PushReady(p.PID)
	k.obs.ProcessSpawned()
	k.log.Info("spawned process",
		zap.Uint32("pid", uint32(p.PID)),
		zap.String("module", name),
		zap.Uint64("entry", uint64(parsed.Entry)),
	)
	return p.PID, nil
}

// mapSegment backs one PT_LOAD segment with fresh frames. Frames are zeroed
// before the file bytes land, which also covers the bss tail.
func (k *Kernel) mapSegment(space *vmm.Space, seg elf.Segment) error {
	if seg.Vaddr%vmm.PageSize != 0 {
		return errno.BadImage
	}
	pages := int((seg.MemSize + vmm.PageSize - 1) / vmm.PageSize)
	zero := make([]byte, pmm.FrameSize)

	copied := uint64(0)
	for i := 0; i < pages; i++ {
		frame, err := k.frames.Alloc()
		if err != nil {
			return err
		}
		va := seg.Vaddr + machine.VirtAddr(i)*vmm.PageSize
		if err := k.vm.Map(space, va, frame.Addr, seg.Flags, true); err != nil {
			k.frames.Free(frame)
			return err
		}
		if err := k.mach.WritePhys(frame.Addr, zero); err != nil {
			return err
		}
		if copied < seg.FileSize {
			n := seg.FileSize - copied
			if n > pmm.FrameSize {
				n = pmm.FrameSize
			}
			if err := k.mach.WritePhys(frame.Addr, seg.Data[copied:copied+n]); err != nil {
				return err
			}
			copied += n
		}
	}
	return nil
}

// mapStack maps the user stack: readable, writable, never executable.
func (k *Kernel) mapStack(space *vmm.Space) error {
	flags := machine.FlagRead | machine.FlagWrite | machine.FlagUser
	base := k.cfg.StackTop - machine.VirtAddr(k.cfg.StackPages)*vmm.PageSize
	for i := 0; i < k.cfg.StackPages; i++ {
		frame, err := k.frames.Alloc()
		if err != nil {
			return err
		}
		va := base + machine.VirtAddr(i)*vmm.PageSize
		if err := k.vm.Map(space, va, frame.Addr, flags, true); err != nil {
			k.frames.Free(frame)
			return err
		}
	}
	return nil
}

// Terminate ends a process: fatal fault or exit syscall. Resources are
// reclaimed immediately; the PCB lingers as a zombie only while a parent
// remains to wait for it.
func (k *Kernel) Terminate(pid proc.PID, status int32) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.terminateLocked(pid, status)
}

func (k *Kernel) terminateLocked(pid proc.PID, status int32) error {
	p, err := k.procs.Get(pid)
	if err != nil {
		return err
	}
	if p.State == proc.Exited {
		return nil
	}

	// Handles go first: drop waiter records, then references.
	p.Handles.ForEach(func(_ cap.Handle, r cap.Resource) {
		switch r.Kind {
		case cap.KindEndpoint:
			if ep, err := k.reg.Endpoint(r.Object); err == nil {
				ep.DropWaiter(uint32(pid))
			}
			k.reg.UnrefEndpoint(r.Object)
		case cap.KindShm:
			k.reg.UnrefShm(r.Object, k.frames)
		}
	})
	for _, m := range p.ShmMaps {
		k.reg.ReleaseShmMapping(m.Object, k.frames)
	}
	p.ShmMaps = nil

	if p.Space != nil {
		k.vm.Destroy(p.Space, k.frames)
		p.Space = nil
	}
	if p.KStack.Frame != 0 {
		k.frames.Free(pmm.Frame{Addr: p.KStack.Frame})
		p.KStack = proc.KernelStack{}
	}
	k.sched.Drop(pid)

	p.State = proc.Exited
	p.ExitStatus = status
	k.obs.ProcessExited()
	k.log.Info("process exited",
		zap.Uint32("pid", uint32(pid)),
		zap.Int32("status", status),
	)

	// Zombie children of the dead process have nobody left to reap them.
	k.procs.All(func(child *proc.Process) {
		if child.Parent == pid && child.State == proc.Exited {
			k.procs.Remove(child.PID)
		}
	})

	k.notifyParent(p)
	return nil
}

// notifyParent completes a parent blocked in wait, or reaps the zombie
// immediately when no parent can ever wait for it.
func (k *Kernel) notifyParent(child *proc.Process) {
	parent, err := k.procs.Get(child.Parent)
	if err != nil || parent.State == proc.Exited {
		k.procs.Remove(child.PID)
		return
	}
	if parent.State == proc.Blocked && parent.Block == proc.BlockWait &&
		(parent.WaitChild == 0 || parent.WaitChild == child.PID) {
		parent.Ctx.Ret = waitResult(child)
		k.procs.Remove(child.PID)
		k.wake(parent)
	}
}

func waitResult(child *proc.Process) int64 {
	return int64(uint64(child.PID)<<32 | uint64(uint32(child.ExitStatus)))
}
