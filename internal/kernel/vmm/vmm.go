// Package vmm builds and mutates per-process address spaces over the
// architecture paging contract. It layers policy on top of raw mappings:
// write-xor-execute, the user/kernel split, and explicit errors for mapping
// collisions so callers decide what is fatal.
package vmm

import (
	"github.com/google/btree"

	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/kernel/pmm"
	"github.com/microframe-os/microframe/internal/machine"
)

// KernelVirtBase is the bottom of the kernel half. Kernel mappings are
// supervisor-only and identical in every space; nothing user-accessible may
// live at or above this address.
const KernelVirtBase machine.VirtAddr = 0xFFFF_8000_0000_0000

// PageSize is the mapping granularity.
const PageSize = pmm.FrameSize

// Page is one mapped user page and its bookkeeping.
type Page struct {
	VA    machine.VirtAddr
	PA    machine.PhysAddr
	Flags machine.PageFlags

	// Owned marks frames the address space must free on teardown. Pages
	// backed by a shared-memory object are not owned here.
	Owned bool
}

// Space is one process's address space: the paging root plus an ordered index
// of mapped user pages.
type Space struct {
	Root  machine.Root
	pages *btree.BTreeG[Page]
}

func pageLess(a, b Page) bool { return a.VA < b.VA }

// Manager mutates address spaces through the machine contract.
type Manager struct {
	paging machine.PagingOps
	mem    machine.PhysMemory
}

// New creates a manager over the given machine surfaces.
func New(paging machine.PagingOps, mem machine.PhysMemory) *Manager {
	return &Manager{paging: paging, mem: mem}
}

// NewSpace creates an empty address space.
func (m *Manager) NewSpace() (*Space, error) {
	root, err := m.paging.NewRoot()
	if err != nil {
		return nil, errno.NoMemory
	}
	return &Space{
		Root:  root,
		pages: btree.NewG(8, pageLess),
	}, nil
}

// Map establishes one page mapping with policy checks applied.
func (m *Manager) Map(s *Space, va machine.VirtAddr, pa machine.PhysAddr, flags machine.PageFlags, owned bool) error {
	if va%PageSize != 0 || pa%PageSize != 0 {
		return errno.InvalidArgument
	}
	if flags.Has(machine.FlagWrite) && flags.Has(machine.FlagExec) {
		return errno.InvalidArgument
	}
	if flags.Has(machine.FlagUser) && va >= KernelVirtBase {
		return errno.PermissionDenied
	}
	if _, dup := s.pages.Get(Page{VA: va}); dup {
		return errno.AlreadyMapped
	}
	if err := m.paging.Map(s.Root, va, pa, flags); err != nil {
		return err
	}
	s.pages.ReplaceOrInsert(Page{VA: va, PA: pa, Flags: flags, Owned: owned})
	return nil
}

// Unmap removes one page mapping and returns its bookkeeping so the caller
// can release the frame if it was owned. Unmapping an absent page is an
// error, never a no-op.
func (m *Manager) Unmap(s *Space, va machine.VirtAddr) (Page, error) {
	if va%PageSize != 0 {
		return Page{}, errno.InvalidArgument
	}
	page, ok := s.pages.Get(Page{VA: va})
	if !ok {
		return Page{}, errno.NotMapped
	}
	if err := m.paging.Unmap(s.Root, va); err != nil {
		return Page{}, err
	}
	s.pages.Delete(page)
	return page, nil
}

// Switch activates the space.
func (m *Manager) Switch(s *Space) {
	m.paging.Switch(s.Root)
}

// Destroy unmaps everything, frees owned frames into alloc, and releases the
// root. Used on process exit.
func (m *Manager) Destroy(s *Space, alloc *pmm.Allocator) {
	s.pages.Ascend(func(p Page) bool {
		_ = m.paging.Unmap(s.Root, p.VA)
		if p.Owned {
			alloc.Free(pmm.Frame{Addr: p.PA})
		}
		return true
	})
	s.pages.Clear(false)
	m.paging.DestroyRoot(s.Root)
}

// Pages visits every mapped page in ascending virtual order.
func (s *Space) Pages(fn func(Page) bool) {
	s.pages.Ascend(fn)
}

// PageCount returns the number of mapped pages.
func (s *Space) PageCount() int {
	return s.pages.Len()
}

// Lookup returns the bookkeeping for the page containing va.
func (s *Space) Lookup(va machine.VirtAddr) (Page, bool) {
	return s.pages.Get(Page{VA: va - va%PageSize})
}

// FindFree returns the lowest page-aligned address at or above hint where n
// contiguous pages are unmapped in user space.
func (s *Space) FindFree(hint machine.VirtAddr, n int) (machine.VirtAddr, error) {
	if n <= 0 {
		return 0, errno.InvalidArgument
	}
	if hint == 0 {
		hint = PageSize // never hand out the zero page
	}
	va := hint + (PageSize-hint%PageSize)%PageSize
	for {
		end := va + machine.VirtAddr(n)*PageSize
		if end > KernelVirtBase || end < va {
			return 0, errno.NoMemory
		}
		conflict := machine.VirtAddr(0)
		found := false
		s.pages.AscendGreaterOrEqual(Page{VA: va}, func(p Page) bool {
			if p.VA < end {
				conflict = p.VA
				found = true
			}
			return false
		})
		if !found {
			return va, nil
		}
		va = conflict + PageSize
	}
}
