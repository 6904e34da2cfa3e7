package heap

import (
	"encoding/binary"

	"github.com/wippyai/xpcom-bridge/errors"
)

// view returns the live bytes [offset, offset+n) or an out of bounds
// error. The slice aliases heap memory and is invalid after growth.
func (h *Linear) view(offset, n uint32) ([]byte, error) {
	b, ok := h.mem.Read(offset, n)
	if !ok {
		return nil, errors.OutOfBounds(offset, n, h.mem.Size())
	}
	return b, nil
}

// Read returns a copy of length bytes at offset.
func (h *Linear) Read(offset, length uint32) ([]byte, error) {
	b, err := h.view(offset, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Write copies data to offset.
func (h *Linear) Write(offset uint32, data []byte) error {
	b, err := h.view(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (h *Linear) ReadU8(offset uint32) (uint8, error) {
	b, err := h.view(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (h *Linear) ReadU16(offset uint32) (uint16, error) {
	b, err := h.view(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (h *Linear) ReadU32(offset uint32) (uint32, error) {
	b, err := h.view(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (h *Linear) ReadU64(offset uint32) (uint64, error) {
	b, err := h.view(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (h *Linear) WriteU8(offset uint32, value uint8) error {
	b, err := h.view(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (h *Linear) WriteU16(offset uint32, value uint16) error {
	b, err := h.view(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (h *Linear) WriteU32(offset uint32, value uint32) error {
	b, err := h.view(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (h *Linear) WriteU64(offset uint32, value uint64) error {
	b, err := h.view(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
