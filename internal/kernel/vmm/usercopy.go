package vmm

import (
	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/machine"
)

// IsUserAddress reports whether addr lies in the user half.
func IsUserAddress(addr machine.VirtAddr) bool {
	return addr < KernelVirtBase
}

// ValidateUserBuffer rejects empty buffers, address overflow, and any range
// that crosses into kernel space.
func ValidateUserBuffer(addr machine.VirtAddr, length uint64) error {
	if length == 0 {
		return errno.InvalidArgument
	}
	end := uint64(addr) + length - 1
	if end < uint64(addr) {
		return errno.InvalidArgument
	}
	if !IsUserAddress(addr) || !IsUserAddress(machine.VirtAddr(end)) {
		return errno.PermissionDenied
	}
	return nil
}

// CopyIn copies len(buf) bytes from user memory at va into buf, walking the
// page table one page at a time. Every touched page must be user-readable.
func (m *Manager) CopyIn(s *Space, va machine.VirtAddr, buf []byte) error {
	return m.copyUser(s, va, buf, machine.FlagRead, func(pa machine.PhysAddr, chunk []byte) error {
		return m.mem.ReadPhys(pa, chunk)
	})
}

// CopyOut copies data into user memory at va. Every touched page must be
// user-writable.
func (m *Manager) CopyOut(s *Space, va machine.VirtAddr, data []byte) error {
	return m.copyUser(s, va, data, machine.FlagWrite, func(pa machine.PhysAddr, chunk []byte) error {
		return m.mem.WritePhys(pa, chunk)
	})
}

func (m *Manager) copyUser(s *Space, va machine.VirtAddr, buf []byte, need machine.PageFlags, xfer func(machine.PhysAddr, []byte) error) error {
	if err := ValidateUserBuffer(va, uint64(len(buf))); err != nil {
		return err
	}
	offset := 0
	for offset < len(buf) {
		cur := va + machine.VirtAddr(offset)
		page, ok := s.Lookup(cur)
		if !ok {
			return errno.BadAddress
		}
		if !page.Flags.Has(machine.FlagUser | need) {
			return errno.PermissionDenied
		}
		inPage := int(PageSize - cur%PageSize)
		n := len(buf) - offset
		if n > inPage {
			n = inPage
		}
		pa := page.PA + machine.PhysAddr(cur%PageSize)
		if err := xfer(pa, buf[offset:offset+n]); err != nil {
			return err
		}
		offset += n
	}
	return nil
}
