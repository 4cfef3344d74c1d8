// Package syscall defines the numeric ABI: operation codes, their names,
// and the capability each privileged operation requires. Keeping the
// required-capability table here, consulted once by the dispatcher, means a
// new syscall cannot accidentally skip enforcement.
package syscall

import (
	"github.com/microframe-os/microframe/internal/kernel/cap"
)

// Number is a syscall operation code. The surface is fixed at under twenty
// operations so the trusted core stays auditable.
type Number uint32

const (
	// Spawn creates a process from a named module image.
	Spawn Number = iota + 1
	// Exit terminates the caller.
	Exit
	// Wait blocks until a child exits.
	Wait
	// Yield gives up the remainder of the time slice.
	Yield
	// Sleep blocks the caller for a duration in milliseconds.
	Sleep
	// Mmap maps anonymous user memory.
	Mmap
	// Munmap unmaps user memory.
	Munmap
	// ShmCreate creates a shared-memory object.
	ShmCreate
	// ShmMap maps a shared-memory object into the caller.
	ShmMap
	// ShmShare grants another process the right to map an object.
	ShmShare
	// EndpointCreate creates an IPC endpoint.
	EndpointCreate
	// EndpointConnect installs a handle to an existing endpoint.
	EndpointConnect
	// Send enqueues a message on an endpoint.
	Send
	// Recv dequeues a message from an endpoint.
	Recv
	// CapTransfer attaches a capability to the caller's next send.
	CapTransfer
	// DebugLog writes to the kernel console.
	DebugLog
	// TimeNowNs reads the monotonic clock.
	TimeNowNs

	maxNumber
)

var names = [maxNumber]string{
	Spawn:           "spawn",
	Exit:            "exit",
	Wait:            "wait",
	Yield:           "yield",
	Sleep:           "sleep",
	Mmap:            "mmap",
	Munmap:          "munmap",
	ShmCreate:       "shm_create",
	ShmMap:          "shm_map",
	ShmShare:        "shm_share",
	EndpointCreate:  "endpoint_create",
	EndpointConnect: "endpoint_connect",
	Send:            "send",
	Recv:            "recv",
	CapTransfer:     "cap_transfer",
	DebugLog:        "debug_log",
	TimeNowNs:       "time_now_ns",
}

// String returns the operation name.
func (n Number) String() string {
	if n.Valid() {
		return names[n]
	}
	return "invalid"
}

// Valid reports whether n is a defined operation.
func (n Number) Valid() bool {
	return n > 0 && n < maxNumber
}

// Parse resolves an operation name back to its number.
func Parse(name string) (Number, bool) {
	for n := Number(1); n < maxNumber; n++ {
		if names[n] == name {
			return n, true
		}
	}
	return 0, false
}

// requiredCaps is the single enforcement table. Operations absent from the
// table are unprivileged.
var requiredCaps = map[Number]cap.Capability{
	Spawn:          cap.ProcessSpawn,
	ShmCreate:      cap.ShmCreate,
	EndpointCreate: cap.EndpointCreate,
	Sleep:          cap.Timer,
	TimeNowNs:      cap.Timer,
	DebugLog:       cap.ConsoleWrite,
}

// RequiredCap returns the capability gating n, if any.
func RequiredCap(n Number) (cap.Capability, bool) {
	c, ok := requiredCaps[n]
	return c, ok
}

// NonBlock is the flags-argument bit requesting a non-blocking send or recv.
const NonBlock uint64 = 1
