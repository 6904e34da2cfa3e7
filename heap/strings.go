package heap

import (
	"fmt"

	xpbridge "github.com/wippyai/xpcom-bridge"
	"github.com/wippyai/xpcom-bridge/nsid"
)

// maxStringScan bounds NUL scans so a missing terminator cannot walk the
// whole heap byte by byte.
const maxStringScan = 1 << 24

// WriteCString allocates a NUL-terminated narrow string. An empty string
// still gets a buffer holding only the terminator. It returns the pointer
// and the allocation size.
func WriteCString(h xpbridge.Heap, s string) (uint32, uint32, error) {
	size := uint32(len(s)) + 1
	ptr, err := h.Alloc(size, 1)
	if err != nil {
		return 0, 0, err
	}
	buf := make([]byte, size)
	copy(buf, s)
	if err := h.Write(ptr, buf); err != nil {
		h.Free(ptr, size, 1)
		return 0, 0, err
	}
	return ptr, size, nil
}

// WriteWString allocates a NUL-terminated UTF-16LE string.
func WriteWString(h xpbridge.Heap, chars []uint16) (uint32, uint32, error) {
	size := uint32(len(chars)+1) * 2
	ptr, err := h.Alloc(size, 2)
	if err != nil {
		return 0, 0, err
	}
	buf := make([]byte, size)
	for i, c := range chars {
		buf[2*i] = byte(c)
		buf[2*i+1] = byte(c >> 8)
	}
	if err := h.Write(ptr, buf); err != nil {
		h.Free(ptr, size, 2)
		return 0, 0, err
	}
	return ptr, size, nil
}

// ReadCString reads a NUL-terminated narrow string.
func ReadCString(m xpbridge.Memory, ptr uint32) (string, error) {
	var buf []byte
	for i := uint32(0); i < maxStringScan; i++ {
		b, err := m.ReadU8(ptr + i)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
	return "", fmt.Errorf("unterminated string at %d", ptr)
}

// ReadWString reads a NUL-terminated UTF-16LE string.
func ReadWString(m xpbridge.Memory, ptr uint32) ([]uint16, error) {
	var chars []uint16
	for i := uint32(0); i < maxStringScan; i++ {
		c, err := m.ReadU16(ptr + 2*i)
		if err != nil {
			return nil, err
		}
		if c == 0 {
			return chars, nil
		}
		chars = append(chars, c)
	}
	return nil, fmt.Errorf("unterminated wide string at %d", ptr)
}

// ReadCStringN reads exactly n narrow characters.
func ReadCStringN(m xpbridge.Memory, ptr, n uint32) (string, error) {
	b, err := m.Read(ptr, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadWStringN reads exactly n UTF-16LE characters.
func ReadWStringN(m xpbridge.Memory, ptr, n uint32) ([]uint16, error) {
	b, err := m.Read(ptr, 2*n)
	if err != nil {
		return nil, err
	}
	chars := make([]uint16, n)
	for i := range chars {
		chars[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return chars, nil
}

// WriteID allocates and stores an interface identifier.
func WriteID(h xpbridge.Heap, id nsid.ID) (uint32, error) {
	ptr, err := h.Alloc(nsid.Size, 4)
	if err != nil {
		return 0, err
	}
	if err := h.Write(ptr, id[:]); err != nil {
		h.Free(ptr, nsid.Size, 4)
		return 0, err
	}
	return ptr, nil
}

// ReadID reads an interface identifier.
func ReadID(m xpbridge.Memory, ptr uint32) (nsid.ID, error) {
	b, err := m.Read(ptr, nsid.Size)
	if err != nil {
		return nsid.Null, err
	}
	return nsid.FromBytes(b)
}

// FreeID releases an identifier allocated by WriteID.
func FreeID(h xpbridge.Allocator, ptr uint32) {
	h.Free(ptr, nsid.Size, 4)
}
