package elf

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/machine"
)

func TestParseMinimalExecutable(t *testing.T) {
	code := []byte{0x90, 0x90, 0xC3}
	image := NewBuilder(0x401000).
		Segment(0x401000, 4096, elf.PF_R|elf.PF_X, code).
		Segment(0x403000, 8192, elf.PF_R|elf.PF_W, []byte{1, 2, 3, 4}).
		Bytes()

	parsed, err := Parse(image)
	require.NoError(t, err)
	assert.Equal(t, machine.VirtAddr(0x401000), parsed.Entry)
	require.Len(t, parsed.Segments, 2)

	text := parsed.Segments[0]
	assert.Equal(t, machine.VirtAddr(0x401000), text.Vaddr)
	assert.Equal(t, uint64(4096), text.MemSize)
	assert.Equal(t, code, text.Data)
	assert.True(t, text.Flags.Has(machine.FlagRead|machine.FlagExec|machine.FlagUser))
	assert.False(t, text.Flags.Has(machine.FlagWrite))

	data := parsed.Segments[1]
	assert.True(t, data.Flags.Has(machine.FlagRead|machine.FlagWrite|machine.FlagUser))
	assert.Equal(t, uint64(8192), data.MemSize)
	assert.Equal(t, uint64(4), data.FileSize)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not an elf at all"))
	assert.Equal(t, errno.BadImage, err)

	_, err = Parse(nil)
	assert.Equal(t, errno.BadImage, err)
}

func TestParseRejectsTruncatedImage(t *testing.T) {
	image := NewBuilder(0x401000).
		Segment(0x401000, 4096, elf.PF_R|elf.PF_X, []byte{0x90}).
		Bytes()
	_, err := Parse(image[:len(image)-1])
	assert.Equal(t, errno.BadImage, err)
}

func TestParseRejectsWrongType(t *testing.T) {
	image := NewBuilder(0x401000).
		Segment(0x401000, 4096, elf.PF_R|elf.PF_X, []byte{0x90}).
		Bytes()

	// Flip e_type from ET_EXEC to ET_DYN.
	image[16] = 3
	_, err := Parse(image)
	assert.Equal(t, errno.BadImage, err)
}

func TestParseRejectsHugeMemSize(t *testing.T) {
	// A p_memsz near 2^64 would wrap the loader's page-count rounding.
	image := NewBuilder(0x401000).
		Segment(0x401000, ^uint64(0), elf.PF_R|elf.PF_X, []byte{0x90}).
		Bytes()
	_, err := Parse(image)
	assert.Equal(t, errno.BadImage, err)

	image = NewBuilder(0x401000).
		Segment(0x401000, MaxImageSize+1, elf.PF_R|elf.PF_X, []byte{0x90}).
		Bytes()
	_, err = Parse(image)
	assert.Equal(t, errno.BadImage, err)
}

func TestParseRejectsNoLoadSegments(t *testing.T) {
	image := NewBuilder(0x401000).Bytes()
	_, err := Parse(image)
	assert.Equal(t, errno.BadImage, err)
}

func TestParseRejectsMemSizeSmallerThanFile(t *testing.T) {
	image := NewBuilder(0x401000).
		Segment(0x401000, 4096, elf.PF_R|elf.PF_X, []byte{0x90, 0x90}).
		Bytes()

	// p_memsz lives at phdr offset 40; shrink it below p_filesz.
	memszOff := ehdrSize + 40
	for i := 0; i < 8; i++ {
		image[memszOff+i] = 0
	}
	image[memszOff] = 1
	_, err := Parse(image)
	assert.Equal(t, errno.BadImage, err)
}
