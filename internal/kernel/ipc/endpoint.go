// Package ipc implements the kernel's message endpoints and shared-memory
// objects. Both are arena-allocated kernel objects addressed by stable
// integer IDs with explicit reference counts; processes hold handles, never
// pointers, so destruction order stays determinate.
package ipc

import (
	"github.com/microframe-os/microframe/internal/kernel/cap"
	"github.com/microframe-os/microframe/internal/kernel/errno"
)

// MaxMessageSize is the fixed per-message payload limit in bytes.
const MaxMessageSize = 4096

// DefaultQueueDepth is the per-endpoint queue bound fixed at boot.
const DefaultQueueDepth = 64

// Message is one queued payload with an optional capability rider. The
// capability is granted to the receiver exactly when the message is dequeued;
// a message is never split from its rider.
type Message struct {
	Data     []byte
	Transfer *cap.Capability
}

// Endpoint is a bounded FIFO message queue. Blocking is not implemented
// here: the endpoint reports full/empty and keeps FIFO waiter lists, and the
// scheduler turns those into state transitions.
type Endpoint struct {
	id    uint32
	refs  int
	depth int
	queue []Message

	sendWaiters []uint32
	recvWaiters []uint32
}

// ID returns the kernel-global endpoint ID.
func (e *Endpoint) ID() uint32 { return e.id }

// Len returns the number of queued messages.
func (e *Endpoint) Len() int { return len(e.queue) }

// Full reports whether the queue is at capacity.
func (e *Endpoint) Full() bool { return len(e.queue) >= e.depth }

// Push enqueues a message, copying the payload into a kernel-owned slot.
func (e *Endpoint) Push(data []byte, transfer *cap.Capability) error {
	if len(data) > MaxMessageSize {
		return errno.TooBig
	}
	if e.Full() {
		return errno.WouldBlock
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	e.queue = append(e.queue, Message{Data: owned, Transfer: transfer})
	return nil
}

// Pop dequeues the oldest message.
func (e *Endpoint) Pop() (Message, error) {
	if len(e.queue) == 0 {
		return Message{}, errno.WouldBlock
	}
	msg := e.queue[0]
	e.queue = e.queue[1:]
	return msg, nil
}

// Peek returns the oldest message without dequeuing it, so a receiver with a
// short buffer can fail without losing the message.
func (e *Endpoint) Peek() (Message, error) {
	if len(e.queue) == 0 {
		return Message{}, errno.WouldBlock
	}
	return e.queue[0], nil
}

// WaitSend appends a sender pid blocked on a full queue.
func (e *Endpoint) WaitSend(pid uint32) {
	e.sendWaiters = append(e.sendWaiters, pid)
}

// WaitRecv appends a receiver pid blocked on an empty queue.
func (e *Endpoint) WaitRecv(pid uint32) {
	e.recvWaiters = append(e.recvWaiters, pid)
}

// NextSender pops the oldest blocked sender, if any.
func (e *Endpoint) NextSender() (uint32, bool) {
	return popWaiter(&e.sendWaiters)
}

// NextReceiver pops the oldest blocked receiver, if any.
func (e *Endpoint) NextReceiver() (uint32, bool) {
	return popWaiter(&e.recvWaiters)
}

// DropWaiter removes pid from both waiter lists, used when a process exits
// while blocked.
func (e *Endpoint) DropWaiter(pid uint32) {
	e.sendWaiters = removeWaiter(e.sendWaiters, pid)
	e.recvWaiters = removeWaiter(e.recvWaiters, pid)
}

func popWaiter(list *[]uint32) (uint32, bool) {
	if len(*list) == 0 {
		return 0, false
	}
	pid := (*list)[0]
	*list = (*list)[1:]
	return pid, true
}

func removeWaiter(list []uint32, pid uint32) []uint32 {
	out := list[:0]
	for _, p := range list {
		if p != pid {
			out = append(out, p)
		}
	}
	return out
}
