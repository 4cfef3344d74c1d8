package boot

import (
	"bytes"
	"encoding/binary"

	"github.com/microframe-os/microframe/internal/kernel/errno"
)

// Initramfs flat archive: an 8-byte magic, a version, a file count, then
// per-file records of (name length, data length, name, data) with 8-byte
// alignment between records. Little-endian throughout.
var initramfsMagic = []byte("MFRAMEFS")

const (
	initramfsVersion = 1
	headerSize       = 8 + 2 + 2
)

// InitramfsEntry is one named module image in the archive.
type InitramfsEntry struct {
	Name string
	Data []byte
}

// ParseInitramfs decodes an archive into its entries.
func ParseInitramfs(image []byte) ([]InitramfsEntry, error) {
	if len(image) < headerSize {
		return nil, errno.BadImage
	}
	if !bytes.Equal(image[:8], initramfsMagic) {
		return nil, errno.BadImage
	}
	if binary.LittleEndian.Uint16(image[8:10]) != initramfsVersion {
		return nil, errno.BadImage
	}
	count := int(binary.LittleEndian.Uint16(image[10:12]))

	offset := headerSize
	entries := make([]InitramfsEntry, 0, count)
	for i := 0; i < count; i++ {
		if offset+2+8 > len(image) {
			return nil, errno.BadImage
		}
		nameLen := int(binary.LittleEndian.Uint16(image[offset : offset+2]))
		offset += 2
		dataLen64 := binary.LittleEndian.Uint64(image[offset : offset+8])
		offset += 8
		if dataLen64 > uint64(len(image)) {
			return nil, errno.BadImage
		}
		dataLen := int(dataLen64)
		if offset+nameLen+dataLen > len(image) {
			return nil, errno.BadImage
		}
		name := image[offset : offset+nameLen]
		offset += nameLen
		data := make([]byte, dataLen)
		copy(data, image[offset:offset+dataLen])
		offset += dataLen
		offset = alignUp(offset, 8)

		entries = append(entries, InitramfsEntry{Name: string(name), Data: data})
	}
	return entries, nil
}

// BuildInitramfs serializes entries into an archive image.
func BuildInitramfs(entries []InitramfsEntry) []byte {
	var buf bytes.Buffer
	buf.Write(initramfsMagic)
	binary.Write(&buf, binary.LittleEndian, uint16(initramfsVersion))
	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))

	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, uint16(len(e.Name)))
		binary.Write(&buf, binary.LittleEndian, uint64(len(e.Data)))
		buf.WriteString(e.Name)
		buf.Write(e.Data)
		for buf.Len()%8 != 0 {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

// FindEntry looks up an entry by name.
func FindEntry(entries []InitramfsEntry, name string) ([]byte, error) {
	for _, e := range entries {
		if e.Name == name {
			return e.Data, nil
		}
	}
	return nil, errno.NotFound
}

func alignUp(v, align int) int {
	if v%align == 0 {
		return v
	}
	return v + align - v%align
}
