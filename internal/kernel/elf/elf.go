// Package elf parses the module binary contract: ELF64 little-endian static
// executables. Only PT_LOAD segments matter; every other segment type is
// ignored. A malformed image is a load failure reported to the spawner,
// never a kernel fault.
package elf

import (
	"bytes"
	"debug/elf"
	"io"

	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/machine"
)

// MaxImageSize caps module images and any single segment's memory footprint
// so a hostile header cannot make the loader allocate without bound or wrap
// its page arithmetic.
const MaxImageSize = 64 << 20

// Segment is one loadable region of the image.
type Segment struct {
	Vaddr    machine.VirtAddr
	MemSize  uint64
	FileSize uint64
	Flags    machine.PageFlags
	Data     []byte
}

// Image is a parsed module binary.
type Image struct {
	Entry    machine.VirtAddr
	Segments []Segment
}

// Parse validates and decodes a module image.
func Parse(image []byte) (*Image, error) {
	if len(image) > MaxImageSize {
		return nil, errno.BadImage
	}
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, errno.BadImage
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Data != elf.ELFDATA2LSB {
		return nil, errno.BadImage
	}
	if f.Type != elf.ET_EXEC {
		return nil, errno.BadImage
	}
	if f.Machine != elf.EM_X86_64 && f.Machine != elf.EM_AARCH64 {
		return nil, errno.BadImage
	}

	out := &Image{Entry: machine.VirtAddr(f.Entry)}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if p.Filesz > p.Memsz || p.Memsz == 0 || p.Memsz > MaxImageSize {
			return nil, errno.BadImage
		}
		data, err := io.ReadAll(io.LimitReader(p.Open(), int64(p.Filesz)))
		if err != nil || uint64(len(data)) != p.Filesz {
			return nil, errno.BadImage
		}
		out.Segments = append(out.Segments, Segment{
			Vaddr:    machine.VirtAddr(p.Vaddr),
			MemSize:  p.Memsz,
			FileSize: p.Filesz,
			Flags:    segmentFlags(p.Flags),
			Data:     data,
		})
	}
	if len(out.Segments) == 0 {
		return nil, errno.BadImage
	}
	return out, nil
}

func segmentFlags(f elf.ProgFlag) machine.PageFlags {
	flags := machine.FlagUser
	if f&elf.PF_R != 0 {
		flags |= machine.FlagRead
	}
	if f&elf.PF_W != 0 {
		flags |= machine.FlagWrite
	}
	if f&elf.PF_X != 0 {
		flags |= machine.FlagExec
	}
	return flags
}
