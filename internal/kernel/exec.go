package kernel

import (
	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/kernel/cap"
	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/kernel/ipc"
	"github.com/microframe-os/microframe/internal/kernel/pmm"
	"github.com/microframe-os/microframe/internal/kernel/proc"
	"github.com/microframe-os/microframe/internal/kernel/syscall"
	"github.com/microframe-os/microframe/internal/kernel/vmm"
	"github.com/microframe-os/microframe/internal/machine"
)

// maxSpawnNameLen bounds the module name argument to spawn.
const maxSpawnNameLen = 256

// SyscallResult is the outcome of one syscall: either a return value, or the
// fact that the caller suspended. A suspended caller gets its value through
// the staged return register when it is woken.
type SyscallResult struct {
	Ret     int64
	Blocked bool
}

// Syscall dispatches one operation for pid. The capability check happens
// here, once, before any effect runs, so no operation can skip enforcement.
func (k *Kernel) Syscall(pid proc.PID, op syscall.Number, args [6]uint64) SyscallResult {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.procs.Get(pid)
	if err != nil || p.State == proc.Exited {
		return k.finish(op, SyscallResult{Ret: errno.Return(errno.NotFound)})
	}
	if !op.Valid() {
		return k.finish(op, SyscallResult{Ret: errno.Return(errno.Unimplemented)})
	}
	if required, ok := syscall.RequiredCap(op); ok {
		if err := cap.Check(p.Caps, required); err != nil {
			return k.finish(op, SyscallResult{Ret: errno.Return(err)})
		}
	}

	res := k.execute(p, op, args)
	return k.finish(op, res)
}

func (k *Kernel) finish(op syscall.Number, res SyscallResult) SyscallResult {
	if !res.Blocked {
		k.obs.SyscallExecuted(op.String(), res.Ret)
	}
	return res
}

func (k *Kernel) execute(p *proc.Process, op syscall.Number, args [6]uint64) SyscallResult {
	switch op {
	case syscall.Spawn:
		return value(k.sysSpawn(p, args))
	case syscall.Exit:
		return k.sysExit(p, args)
	case syscall.Wait:
		return k.sysWait(p, args)
	case syscall.Yield:
		return k.sysYield(p)
	case syscall.Sleep:
		return k.sysSleep(p, args)
	case syscall.Mmap:
		return value(k.sysMmap(p, args))
	case syscall.Munmap:
		return value(0, k.sysMunmap(p, args))
	case syscall.ShmCreate:
		return value(k.sysShmCreate(p, args))
	case syscall.ShmMap:
		return value(k.sysShmMap(p, args))
	case syscall.ShmShare:
		return value(0, k.sysShmShare(p, args))
	case syscall.EndpointCreate:
		return value(k.sysEndpointCreate(p))
	case syscall.EndpointConnect:
		return value(k.sysEndpointConnect(p, args))
	case syscall.Send:
		return k.sysSend(p, args)
	case syscall.Recv:
		return k.sysRecv(p, args)
	case syscall.CapTransfer:
		return value(0, k.sysCapTransfer(p, args))
	case syscall.DebugLog:
		return value(k.sysDebugLog(p, args))
	case syscall.TimeNowNs:
		return SyscallResult{Ret: k.mach.Clock().NowNanos()}
	default:
		return SyscallResult{Ret: errno.Return(errno.Unimplemented)}
	}
}

func value(v int64, err error) SyscallResult {
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}
	return SyscallResult{Ret: v}
}

// sysSpawn: args are (name va, name len, capability mask). The child's set
// is the mask intersected with the caller's own set; spawn can delegate, not
// amplify.
func (k *Kernel) sysSpawn(p *proc.Process, args [6]uint64) (int64, error) {
	nameVA, nameLen := machine.VirtAddr(args[0]), args[1]
	if nameLen == 0 || nameLen > maxSpawnNameLen {
		return 0, errno.InvalidArgument
	}
	buf := make([]byte, nameLen)
	if err := k.vm.CopyIn(p.Space, nameVA, buf); err != nil {
		return 0, err
	}
	caps := cap.Set(args[2]) & p.Caps
	pid, err := k.spawnLocked(string(buf), caps, p.PID)
	if err != nil {
		return 0, err
	}
	return int64(pid), nil
}

func (k *Kernel) sysExit(p *proc.Process, args [6]uint64) SyscallResult {
	_ = k.terminateLocked(p.PID, int32(args[0]))
	// Exit never returns to the caller.
	return SyscallResult{Blocked: true}
}

// sysWait: args are (child pid, 0 for any). The result packs the child pid
// in the high word and its exit status in the low word.
func (k *Kernel) sysWait(p *proc.Process, args [6]uint64) SyscallResult {
	want := proc.PID(args[0])
	if z, ok := k.procs.Zombie(p.PID, want); ok {
		ret := waitResult(z)
		k.procs.Remove(z.PID)
		return SyscallResult{Ret: ret}
	}
	if !k.procs.HasChildren(p.PID, want) {
		return SyscallResult{Ret: errno.Return(errno.NoChild)}
	}
	k.block(p, proc.BlockWait)
	p.WaitChild = want
	return SyscallResult{Blocked: true}
}

func (k *Kernel) sysYield(p *proc.Process) SyscallResult {
	if k.sched.Current() == p.PID {
		p.State = proc.Ready
		next := k.sched.Next()
		if next != 0 && next != p.PID {
			if np, err := k.procs.Get(next); err == nil {
				np.State = proc.Running
				k.vm.Switch(np.Space)
				k.obs.ContextSwitch()
			}
		} else if next == p.PID {
			p.State = proc.Running
		}
	}
	return SyscallResult{Ret: 0}
}

func (k *Kernel) sysSleep(p *proc.Process, args [6]uint64) SyscallResult {
	ms := args[0]
	now := k.mach.Clock().NowNanos()
	k.block(p, proc.BlockSleep)
	p.WakeAt = now + int64(ms)*1_000_000
	k.sched.Sleep(p.PID, p.WakeAt)
	return SyscallResult{Blocked: true}
}

// sysMmap: args are (va hint, length, prot). Prot bits are the page flag
// bits; user access is implied, write+exec is rejected by the mapper.
func (k *Kernel) sysMmap(p *proc.Process, args [6]uint64) (int64, error) {
	length := args[1]
	if length == 0 {
		return 0, errno.InvalidArgument
	}
	pages := int((length + vmm.PageSize - 1) / vmm.PageSize)
	flags := machine.PageFlags(args[2]) | machine.FlagUser

	va, err := p.Space.FindFree(machine.VirtAddr(args[0]), pages)
	if err != nil {
		return 0, err
	}
	for i := 0; i < pages; i++ {
		frame, err := k.frames.Alloc()
		if err != nil {
			k.unmapRange(p, va, i)
			return 0, err
		}
		if err := k.vm.Map(p.Space, va+machine.VirtAddr(i)*vmm.PageSize, frame.Addr, flags, true); err != nil {
			k.frames.Free(frame)
			k.unmapRange(p, va, i)
			return 0, err
		}
	}
	return int64(va), nil
}

func (k *Kernel) sysMunmap(p *proc.Process, args [6]uint64) error {
	va, length := machine.VirtAddr(args[0]), args[1]
	if length == 0 {
		return errno.InvalidArgument
	}
	pages := int((length + vmm.PageSize - 1) / vmm.PageSize)
	for i := 0; i < pages; i++ {
		page, err := k.vm.Unmap(p.Space, va+machine.VirtAddr(i)*vmm.PageSize)
		if err != nil {
			return err
		}
		if page.Owned {
			k.frames.Free(pmm.Frame{Addr: page.PA})
		}
	}
	return nil
}

func (k *Kernel) unmapRange(p *proc.Process, va machine.VirtAddr, pages int) {
	for i := 0; i < pages; i++ {
		if page, err := k.vm.Unmap(p.Space, va+machine.VirtAddr(i)*vmm.PageSize); err == nil && page.Owned {
			k.frames.Free(pmm.Frame{Addr: page.PA})
		}
	}
}

func (k *Kernel) sysShmCreate(p *proc.Process, args [6]uint64) (int64, error) {
	obj, err := k.reg.CreateShm(args[0], k.frames)
	if err != nil {
		return 0, err
	}
	h, err := p.Handles.Insert(cap.Resource{Kind: cap.KindShm, Object: obj.ID()})
	if err != nil {
		k.reg.UnrefShm(obj.ID(), k.frames)
		return 0, err
	}
	return int64(h), nil
}

func (k *Kernel) sysShmMap(p *proc.Process, args [6]uint64) (int64, error) {
	r, err := p.Handles.Get(cap.Handle(args[0]), cap.KindShm)
	if err != nil {
		return 0, err
	}
	obj, err := k.reg.Shm(r.Object)
	if err != nil {
		return 0, err
	}
	frames := obj.Frames()
	va, err := p.Space.FindFree(machine.VirtAddr(args[1]), len(frames))
	if err != nil {
		return 0, err
	}
	flags := machine.FlagRead | machine.FlagWrite | machine.FlagUser
	for i, frame := range frames {
		if err := k.vm.Map(p.Space, va+machine.VirtAddr(i)*vmm.PageSize, frame.Addr, flags, false); err != nil {
			k.unmapRange(p, va, i)
			return 0, err
		}
	}
	obj.AddMapping()
	p.ShmMaps = append(p.ShmMaps, proc.ShmMapping{Object: obj.ID(), VA: va, Pages: len(frames)})
	return int64(va), nil
}

func (k *Kernel) sysShmShare(p *proc.Process, args [6]uint64) error {
	r, err := p.Handles.Get(cap.Handle(args[0]), cap.KindShm)
	if err != nil {
		return err
	}
	target, err := k.procs.Get(proc.PID(args[1]))
	if err != nil || target.State == proc.Exited {
		return errno.NotFound
	}
	obj, err := k.reg.RefShm(r.Object)
	if err != nil {
		return err
	}
	if _, err := target.Handles.Insert(cap.Resource{Kind: cap.KindShm, Object: obj.ID()}); err != nil {
		k.reg.UnrefShm(obj.ID(), k.frames)
		return err
	}
	return nil
}

func (k *Kernel) sysEndpointCreate(p *proc.Process) (int64, error) {
	ep, err := k.reg.CreateEndpoint()
	if err != nil {
		return 0, err
	}
	h, err := p.Handles.Insert(cap.Resource{Kind: cap.KindEndpoint, Object: ep.ID()})
	if err != nil {
		k.reg.UnrefEndpoint(ep.ID())
		return 0, err
	}
	return int64(h), nil
}

// sysEndpointConnect installs a handle to an endpoint whose global ID the
// caller learned through IPC; name resolution itself lives in user space.
func (k *Kernel) sysEndpointConnect(p *proc.Process, args [6]uint64) (int64, error) {
	ep, err := k.reg.RefEndpoint(uint32(args[0]))
	if err != nil {
		return 0, err
	}
	h, err := p.Handles.Insert(cap.Resource{Kind: cap.KindEndpoint, Object: ep.ID()})
	if err != nil {
		k.reg.UnrefEndpoint(ep.ID())
		return 0, err
	}
	return int64(h), nil
}

func (k *Kernel) sysCapTransfer(p *proc.Process, args [6]uint64) error {
	c := cap.Capability(args[0])
	if !c.Valid() {
		return errno.InvalidArgument
	}
	if err := cap.Check(p.Caps, c); err != nil {
		return err
	}
	p.PendingCap = &c
	return nil
}

func (k *Kernel) sysDebugLog(p *proc.Process, args [6]uint64) (int64, error) {
	va, length := machine.VirtAddr(args[0]), args[1]
	if length == 0 {
		return 0, nil
	}
	if length > ipc.MaxMessageSize {
		return 0, errno.TooBig
	}
	buf := make([]byte, length)
	if err := k.vm.CopyIn(p.Space, va, buf); err != nil {
		return 0, err
	}
	if _, err := k.mach.Console().Write(buf); err != nil {
		k.log.Warn("console write failed", zap.Error(err))
	}
	return int64(length), nil
}

// block transitions the caller Running→Blocked and pulls it out of the run
// queue. The scheduler treats the later wake as an ordinary event.
func (k *Kernel) block(p *proc.Process, reason proc.BlockReason) {
	p.SetBlocked(reason)
	if k.sched.Current() == p.PID {
		k.sched.BlockCurrent()
	} else {
		k.sched.Drop(p.PID)
	}
}
