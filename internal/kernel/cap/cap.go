// Package cap implements the permission model: a compact per-process bitset
// of coarse privilege flags plus an arena-backed handle table for
// resource-scoped rights. Capabilities are kernel state; user code only ever
// sees the effects of holding one, so they cannot be forged or guessed.
package cap

import (
	"fmt"
	"strings"

	"github.com/microframe-os/microframe/internal/kernel/errno"
)

// Capability gates one class of privileged kernel action.
type Capability uint8

const (
	// ConsoleWrite permits debug_log and direct console output.
	ConsoleWrite Capability = iota
	// EndpointCreate permits creating IPC endpoints.
	EndpointCreate
	// ShmCreate permits creating shared-memory objects.
	ShmCreate
	// ProcessSpawn permits spawning new processes.
	ProcessSpawn
	// Timer permits sleep and time_now_ns.
	Timer
	// FsRoot marks the filesystem service.
	FsRoot
	// WindowServer marks the display server.
	WindowServer
	// InputDevice permits claiming input event streams.
	InputDevice
	// GpuDevice permits mapping the framebuffer.
	GpuDevice

	numCapabilities
)

var capNames = [numCapabilities]string{
	"console_write",
	"endpoint_create",
	"shm_create",
	"process_spawn",
	"timer",
	"fs_root",
	"window_server",
	"input_device",
	"gpu_device",
}

// String returns the manifest spelling of the capability.
func (c Capability) String() string {
	if c < numCapabilities {
		return capNames[c]
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// Valid reports whether c names a defined capability.
func (c Capability) Valid() bool {
	return c < numCapabilities
}

// Parse resolves a manifest spelling back to a capability.
func Parse(name string) (Capability, error) {
	for i, n := range capNames {
		if n == strings.ToLower(name) {
			return Capability(i), nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", name)
}

// Set is a bitset of capabilities.
type Set uint32

// EmptySet returns a set with no capabilities.
func EmptySet() Set {
	return 0
}

// AllSet returns a set containing every defined capability.
func AllSet() Set {
	return Set(1<<numCapabilities) - 1
}

// NewSet builds a set from individual capabilities.
func NewSet(caps ...Capability) Set {
	var s Set
	for _, c := range caps {
		s = s.With(c)
	}
	return s
}

// Contains reports whether the capability is present.
func (s Set) Contains(c Capability) bool {
	return s&(1<<c) != 0
}

// With returns the set plus one capability.
func (s Set) With(c Capability) Set {
	return s | 1<<c
}

// Without returns the set minus one capability.
func (s Set) Without(c Capability) Set {
	return s &^ (1 << c)
}

// Empty reports whether no capability is present.
func (s Set) Empty() bool {
	return s == 0
}

// List returns the contained capabilities in definition order.
func (s Set) List() []Capability {
	var out []Capability
	for c := Capability(0); c < numCapabilities; c++ {
		if s.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// Check validates that holder covers required. It is the single enforcement
// point consulted by syscall dispatch before any privileged effect runs.
func Check(holder Set, required Capability) error {
	if !holder.Contains(required) {
		return errno.PermissionDenied
	}
	return nil
}
