package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/microframe-os/microframe/internal/machine"
)

// Builder assembles a minimal static ELF64 executable. It exists for tests
// and for packing synthetic modules into initramfs images; the kernel never
// writes ELF, only reads it.
type Builder struct {
	entry    machine.VirtAddr
	segments []builderSegment
}

type builderSegment struct {
	vaddr   machine.VirtAddr
	memSize uint64
	flags   elf.ProgFlag
	data    []byte
}

// NewBuilder starts an image with the given entry point.
func NewBuilder(entry machine.VirtAddr) *Builder {
	return &Builder{entry: entry}
}

// Segment appends a PT_LOAD segment. memSize of zero means len(data).
func (b *Builder) Segment(vaddr machine.VirtAddr, memSize uint64, flags elf.ProgFlag, data []byte) *Builder {
	if memSize == 0 {
		memSize = uint64(len(data))
	}
	b.segments = append(b.segments, builderSegment{
		vaddr:   vaddr,
		memSize: memSize,
		flags:   flags,
		data:    data,
	})
	return b
}

const (
	ehdrSize = 64
	phdrSize = 56
)

// Bytes serializes the image.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	dataOff := uint64(ehdrSize + phdrSize*len(b.segments))

	// ELF header.
	buf.Write([]byte{0x7F, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), 1, 0})
	buf.Write(make([]byte, 8))
	binary.Write(&buf, le, uint16(elf.ET_EXEC))
	binary.Write(&buf, le, uint16(elf.EM_X86_64))
	binary.Write(&buf, le, uint32(1)) // e_version
	binary.Write(&buf, le, uint64(b.entry))
	binary.Write(&buf, le, uint64(ehdrSize)) // e_phoff
	binary.Write(&buf, le, uint64(0))        // e_shoff
	binary.Write(&buf, le, uint32(0))        // e_flags
	binary.Write(&buf, le, uint16(ehdrSize))
	binary.Write(&buf, le, uint16(phdrSize))
	binary.Write(&buf, le, uint16(len(b.segments)))
	binary.Write(&buf, le, uint16(0)) // e_shentsize
	binary.Write(&buf, le, uint16(0)) // e_shnum
	binary.Write(&buf, le, uint16(0)) // e_shstrndx

	// Program headers.
	off := dataOff
	for _, s := range b.segments {
		binary.Write(&buf, le, uint32(elf.PT_LOAD))
		binary.Write(&buf, le, uint32(s.flags))
		binary.Write(&buf, le, off)
		binary.Write(&buf, le, uint64(s.vaddr))
		binary.Write(&buf, le, uint64(s.vaddr)) // p_paddr
		binary.Write(&buf, le, uint64(len(s.data)))
		binary.Write(&buf, le, s.memSize)
		binary.Write(&buf, le, uint64(4096)) // p_align
		off += uint64(len(s.data))
	}

	for _, s := range b.segments {
		buf.Write(s.data)
	}
	return buf.Bytes()
}
