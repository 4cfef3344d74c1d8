// Package sim implements the machine contract in software: sparse page
// tables, a flat physical memory, and pluggable clock and console devices.
// It is the concrete architecture wired in by the hosted kernel and by
// tests; the trusted core never imports it directly.
package sim

import (
	"sync"

	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/machine"
)

// PageSize mirrors the frame size assumed by the paging contract.
const PageSize = 4096

type pte struct {
	pa    machine.PhysAddr
	flags machine.PageFlags
}

// Machine is a software machine: one contiguous physical memory and per-root
// sparse page tables. All methods are safe for use under the kernel's single
// logical-core discipline; the internal lock only guards against host-side
// inspection racing the kernel loop.
type Machine struct {
	mu       sync.Mutex
	mem      []byte
	tables   map[machine.Root]map[machine.VirtAddr]pte
	nextRoot machine.Root
	active   machine.Root
	clock    machine.Clock
	console  machine.Console
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the default wall clock.
func WithClock(c machine.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithConsole overrides the default discarding console.
func WithConsole(c machine.Console) Option {
	return func(m *Machine) { m.console = c }
}

// New creates a machine with memBytes of physical memory, rounded down to a
// whole number of pages.
func New(memBytes uint64, opts ...Option) *Machine {
	memBytes -= memBytes % PageSize
	m := &Machine{
		mem:      make([]byte, memBytes),
		tables:   make(map[machine.Root]map[machine.VirtAddr]pte),
		nextRoot: 1,
		clock:    WallClock{},
		console:  discardConsole{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MemBytes returns the physical memory size.
func (m *Machine) MemBytes() uint64 {
	return uint64(len(m.mem))
}

// NewRoot creates an empty address space.
func (m *Machine) NewRoot() (machine.Root, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root := m.nextRoot
	m.nextRoot++
	m.tables[root] = make(map[machine.VirtAddr]pte)
	return root, nil
}

// DestroyRoot drops an address space and its remaining translations.
func (m *Machine) DestroyRoot(root machine.Root) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, root)
}

// Map installs a single-page translation.
func (m *Machine) Map(root machine.Root, va machine.VirtAddr, pa machine.PhysAddr, flags machine.PageFlags) error {
	if va%PageSize != 0 || pa%PageSize != 0 {
		return errno.InvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[root]
	if !ok {
		return errno.NotFound
	}
	if _, exists := table[va]; exists {
		return errno.AlreadyMapped
	}
	table[va] = pte{pa: pa, flags: flags}
	return nil
}

// Unmap removes a translation.
func (m *Machine) Unmap(root machine.Root, va machine.VirtAddr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[root]
	if !ok {
		return errno.NotFound
	}
	if _, exists := table[va]; !exists {
		return errno.NotMapped
	}
	delete(table, va)
	return nil
}

// Translate walks the table for one page.
func (m *Machine) Translate(root machine.Root, va machine.VirtAddr) (machine.PhysAddr, machine.PageFlags, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[root]
	if !ok {
		return 0, 0, false
	}
	entry, ok := table[va-va%PageSize]
	if !ok {
		return 0, 0, false
	}
	return entry.pa + machine.PhysAddr(va%PageSize), entry.flags, true
}

// Switch records the active root.
func (m *Machine) Switch(root machine.Root) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = root
}

// ActiveRoot returns the most recently switched-to root.
func (m *Machine) ActiveRoot() machine.Root {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ReadPhys copies from physical memory into buf.
func (m *Machine) ReadPhys(pa machine.PhysAddr, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := uint64(pa) + uint64(len(buf))
	if end > uint64(len(m.mem)) || end < uint64(pa) {
		return errno.BadAddress
	}
	copy(buf, m.mem[pa:end])
	return nil
}

// WritePhys copies data into physical memory.
func (m *Machine) WritePhys(pa machine.PhysAddr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := uint64(pa) + uint64(len(data))
	if end > uint64(len(m.mem)) || end < uint64(pa) {
		return errno.BadAddress
	}
	copy(m.mem[pa:end], data)
	return nil
}

// Clock returns the machine timebase.
func (m *Machine) Clock() machine.Clock {
	return m.clock
}

// Console returns the machine console device.
func (m *Machine) Console() machine.Console {
	return m.console
}

type discardConsole struct{}

func (discardConsole) Write(p []byte) (int, error) { return len(p), nil }
