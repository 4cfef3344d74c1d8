package kernel

import (
	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/kernel/cap"
	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/kernel/ipc"
	"github.com/microframe-os/microframe/internal/kernel/proc"
	"github.com/microframe-os/microframe/internal/kernel/syscall"
	"github.com/microframe-os/microframe/internal/machine"
)

// sysSend: args are (handle, buffer va, length, flags). The payload is
// copied once, sender space to kernel slot; no user memory is retained past
// the call. A full queue blocks the caller unless NonBlock is set.
//
// The pending transfer capability is consumed by the send attempt whether or
// not it succeeds, so a failed send cannot leave a stale grant armed.
func (k *Kernel) sysSend(p *proc.Process, args [6]uint64) SyscallResult {
	transfer := p.PendingCap
	p.PendingCap = nil

	h, va, length, flags := cap.Handle(args[0]), machine.VirtAddr(args[1]), args[2], args[3]
	r, err := p.Handles.Get(h, cap.KindEndpoint)
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}
	ep, err := k.reg.Endpoint(r.Object)
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}
	if length > ipc.MaxMessageSize {
		return SyscallResult{Ret: errno.Return(errno.TooBig)}
	}

	if ep.Full() {
		if flags&syscall.NonBlock != 0 {
			return SyscallResult{Ret: errno.Return(errno.WouldBlock)}
		}
		// Re-arm the transfer so completion picks it up on wake.
		p.PendingCap = transfer
		k.block(p, proc.BlockSend)
		p.WaitEndpoint = ep.ID()
		p.WaitVA = va
		p.WaitLen = length
		ep.WaitSend(uint32(p.PID))
		return SyscallResult{Blocked: true}
	}

	ret, err := k.deliver(p, ep, va, length, transfer)
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}
	return SyscallResult{Ret: ret}
}

// deliver copies the payload out of the sender and enqueues it, then hands
// the message straight through to a blocked receiver when one is parked on
// the endpoint.
func (k *Kernel) deliver(sender *proc.Process, ep *ipc.Endpoint, va machine.VirtAddr, length uint64, transfer *cap.Capability) (int64, error) {
	buf := make([]byte, length)
	if length > 0 {
		if err := k.vm.CopyIn(sender.Space, va, buf); err != nil {
			return 0, err
		}
	}
	if err := ep.Push(buf, transfer); err != nil {
		return 0, err
	}
	k.serviceReceivers(ep)
	return int64(length), nil
}

// sysRecv: args are (handle, buffer va, capacity, flags). The oldest queued
// message is copied into the caller's buffer and any attached capability is
// granted in the same step; partial grants cannot happen.
func (k *Kernel) sysRecv(p *proc.Process, args [6]uint64) SyscallResult {
	h, va, capacity, flags := cap.Handle(args[0]), machine.VirtAddr(args[1]), args[2], args[3]
	r, err := p.Handles.Get(h, cap.KindEndpoint)
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}
	ep, err := k.reg.Endpoint(r.Object)
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}

	if ep.Len() == 0 {
		if flags&syscall.NonBlock != 0 {
			return SyscallResult{Ret: errno.Return(errno.WouldBlock)}
		}
		k.block(p, proc.BlockRecv)
		p.WaitEndpoint = ep.ID()
		p.WaitVA = va
		p.WaitLen = capacity
		ep.WaitRecv(uint32(p.PID))
		return SyscallResult{Blocked: true}
	}

	ret, err := k.consume(p, ep, va, capacity)
	if err != nil {
		return SyscallResult{Ret: errno.Return(err)}
	}
	return SyscallResult{Ret: ret}
}

// consume dequeues one message into the receiver. A too-small buffer leaves
// the message queued. Dequeuing frees a slot, so a blocked sender gets its
// suspended transfer completed here.
func (k *Kernel) consume(receiver *proc.Process, ep *ipc.Endpoint, va machine.VirtAddr, capacity uint64) (int64, error) {
	msg, err := ep.Peek()
	if err != nil {
		return 0, err
	}
	if uint64(len(msg.Data)) > capacity {
		return 0, errno.InvalidArgument
	}
	if len(msg.Data) > 0 {
		if err := k.vm.CopyOut(receiver.Space, va, msg.Data); err != nil {
			return 0, err
		}
	}
	// The copy landed; message and capability now leave the queue together.
	if _, err := ep.Pop(); err != nil {
		return 0, err
	}
	if msg.Transfer != nil {
		receiver.Caps = receiver.Caps.With(*msg.Transfer)
		k.log.Debug("capability granted over ipc",
			zap.Uint32("pid", uint32(receiver.PID)),
			zap.String("capability", msg.Transfer.String()),
		)
	}
	k.serviceSenders(ep)
	return int64(len(msg.Data)), nil
}

// serviceReceivers completes suspended recv calls while messages remain.
func (k *Kernel) serviceReceivers(ep *ipc.Endpoint) {
	for ep.Len() > 0 {
		pid, ok := ep.NextReceiver()
		if !ok {
			return
		}
		rp, err := k.procs.Get(proc.PID(pid))
		if err != nil || rp.State != proc.Blocked || rp.Block != proc.BlockRecv || rp.WaitEndpoint != ep.ID() {
			continue
		}
		ret, err := k.consume(rp, ep, rp.WaitVA, rp.WaitLen)
		if err != nil {
			rp.Ctx.Ret = errno.Return(err)
		} else {
			rp.Ctx.Ret = ret
		}
		k.wake(rp)
	}
}

// serviceSenders completes suspended send calls while queue room remains.
func (k *Kernel) serviceSenders(ep *ipc.Endpoint) {
	for !ep.Full() {
		pid, ok := ep.NextSender()
		if !ok {
			return
		}
		sp, err := k.procs.Get(proc.PID(pid))
		if err != nil || sp.State != proc.Blocked || sp.Block != proc.BlockSend || sp.WaitEndpoint != ep.ID() {
			continue
		}
		transfer := sp.PendingCap
		sp.PendingCap = nil
		ret, err := k.deliver(sp, ep, sp.WaitVA, sp.WaitLen, transfer)
		if err != nil {
			sp.Ctx.Ret = errno.Return(err)
		} else {
			sp.Ctx.Ret = ret
		}
		k.wake(sp)
	}
}
