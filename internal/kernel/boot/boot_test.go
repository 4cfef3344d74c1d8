package boot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/errno"
)

func TestUsableBytes(t *testing.T) {
	info := BootInfo{
		MemoryMap: []MemoryRegion{
			{Start: 0x0, End: 0x100000, Kind: Reserved},
			{Start: 0x100000, End: 0x300000, Kind: Usable},
			{Start: 0x300000, End: 0x310000, Kind: Mmio},
			{Start: 0x400000, End: 0x500000, Kind: Usable},
		},
	}
	assert.Equal(t, uint64(0x300000), info.UsableBytes())
}

func TestMemoryKindNames(t *testing.T) {
	assert.Equal(t, "usable", Usable.String())
	assert.Equal(t, "reserved", Reserved.String())
	assert.Equal(t, "mmio", Mmio.String())
}

func TestInitramfsRoundTrip(t *testing.T) {
	entries := []InitramfsEntry{
		{Name: "init", Data: []byte{1, 2, 3}},
		{Name: "console_service", Data: make([]byte, 4096)},
		{Name: "empty", Data: nil},
	}

	image := BuildInitramfs(entries)
	parsed, err := ParseInitramfs(image)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	for i := range entries {
		assert.Equal(t, entries[i].Name, parsed[i].Name)
		assert.Equal(t, len(entries[i].Data), len(parsed[i].Data))
	}

	data, err := FindEntry(parsed, "init")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = FindEntry(parsed, "missing")
	assert.Equal(t, errno.NotFound, err)
}

func TestInitramfsRejectsMalformed(t *testing.T) {
	_, err := ParseInitramfs(nil)
	assert.Equal(t, errno.BadImage, err)

	_, err = ParseInitramfs([]byte("WRONGFS!...."))
	assert.Equal(t, errno.BadImage, err)

	image := BuildInitramfs(singleEntry("init", []byte{1, 2, 3}))
	// Corrupt the version field.
	image[8] = 0xFF
	_, err = ParseInitramfs(image)
	assert.Equal(t, errno.BadImage, err)

	// Truncated payload.
	image = BuildInitramfs(singleEntry("init", make([]byte, 100)))
	_, err = ParseInitramfs(image[:len(image)-50])
	assert.Equal(t, errno.BadImage, err)
}

func singleEntry(name string, data []byte) []InitramfsEntry {
	return []InitramfsEntry{{Name: name, Data: data}}
}
