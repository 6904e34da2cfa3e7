package marshal

import (
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

func charSize(tag xpt.Tag) uint32 {
	if tag.IsWide() {
		return 2
	}
	return 1
}

// lowerString copies a managed string into a NUL-terminated native buffer.
// A managed null becomes the null pointer.
func (m *Marshaller) lowerString(env managed.Env, path []string, tag xpt.Tag, val managed.Object) (uint32, error) {
	if val == nil {
		return 0, nil
	}
	if tag.IsWide() {
		chars, ok := env.StringChars(val)
		if !ok {
			return 0, errors.PendingException(errors.PhaseMarshalIn, path)
		}
		ptr, _, err := heap.WriteWString(m.heap, chars)
		return ptr, err
	}
	s, ok := env.StringUTF(val)
	if !ok {
		return 0, errors.PendingException(errors.PhaseMarshalIn, path)
	}
	ptr, _, err := heap.WriteCString(m.heap, s)
	return ptr, err
}

func (m *Marshaller) liftString(env managed.Env, path []string, tag xpt.Tag, ptr uint32) (managed.Object, error) {
	if tag.IsWide() {
		chars, err := heap.ReadWString(m.heap, ptr)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseMarshalOut, errors.KindUnexpectedType, err, "read wide string")
		}
		return env.NewStringUTF16(chars), nil
	}
	s, err := heap.ReadCString(m.heap, ptr)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshalOut, errors.KindUnexpectedType, err, "read string")
	}
	return env.NewString(s), nil
}

func (m *Marshaller) freeString(tag xpt.Tag, ptr uint32) {
	if ptr != 0 {
		m.heap.Free(ptr, 0, charSize(tag))
	}
}

// lowerSizedString copies a managed string into a buffer of capacity+1
// characters. The length is checked before anything is allocated. A
// managed null still gets a zeroed buffer of full capacity.
func (m *Marshaller) lowerSizedString(env managed.Env, path []string, tag xpt.Tag, capacity uint32, val managed.Object) (uint32, error) {
	var data []byte
	if val != nil {
		if tag.IsWide() {
			chars, ok := env.StringChars(val)
			if !ok {
				return 0, errors.PendingException(errors.PhaseMarshalIn, path)
			}
			if uint64(len(chars)) > uint64(capacity) {
				return 0, sizedOverflow(path, len(chars), capacity)
			}
			data = make([]byte, 2*len(chars))
			for i, c := range chars {
				data[2*i] = byte(c)
				data[2*i+1] = byte(c >> 8)
			}
		} else {
			s, ok := env.StringUTF(val)
			if !ok {
				return 0, errors.PendingException(errors.PhaseMarshalIn, path)
			}
			if uint64(len(s)) > uint64(capacity) {
				return 0, sizedOverflow(path, len(s), capacity)
			}
			data = []byte(s)
		}
	}

	cs := charSize(tag)
	size := (uint64(capacity) + 1) * uint64(cs)
	if size > 1<<31 {
		return 0, errors.OutOfMemory(errors.PhaseMarshalIn, uint32(min(size, 1<<32-1)))
	}
	ptr, err := m.heap.Alloc(uint32(size), cs)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, size)
	copy(buf, data)
	if err := m.heap.Write(ptr, buf); err != nil {
		m.heap.Free(ptr, uint32(size), cs)
		return 0, errors.Wrap(errors.PhaseMarshalIn, errors.KindOutOfMemory, err, "write sized string")
	}
	return ptr, nil
}

func sizedOverflow(path []string, length int, capacity uint32) error {
	return errors.New(errors.PhaseMarshalIn, errors.KindValueRange).
		Path(path...).
		Value(length).
		Detail("string length %d exceeds capacity %d", length, capacity).
		Build()
}

// liftSizedString reads exactly size characters.
func (m *Marshaller) liftSizedString(env managed.Env, path []string, tag xpt.Tag, size uint32, ptr uint32) (managed.Object, error) {
	if tag.IsWide() {
		chars, err := heap.ReadWStringN(m.heap, ptr, size)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseMarshalOut, errors.KindValueRange, err, "read sized wide string")
		}
		return env.NewStringUTF16(chars), nil
	}
	s, err := heap.ReadCStringN(m.heap, ptr, size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshalOut, errors.KindValueRange, err, "read sized string")
	}
	return env.NewString(s), nil
}

// lowerID parses a managed IID string into a native identifier. A managed
// null becomes the all-zero identifier, not a null pointer.
func (m *Marshaller) lowerID(env managed.Env, path []string, val managed.Object) (uint32, error) {
	id := nsid.Null
	if val != nil {
		s, ok := env.StringUTF(val)
		if !ok {
			return 0, errors.PendingException(errors.PhaseMarshalIn, path)
		}
		parsed, err := nsid.Parse(s)
		if err != nil {
			return 0, errors.New(errors.PhaseMarshalIn, errors.KindValueRange).
				Path(path...).
				Value(s).
				Cause(err).
				Detail("malformed interface identifier").
				Build()
		}
		id = parsed
	}
	return heap.WriteID(m.heap, id)
}

func (m *Marshaller) liftID(env managed.Env, path []string, ptr uint32) (managed.Object, error) {
	id, err := heap.ReadID(m.heap, ptr)
	if err != nil {
		return nil, errors.New(errors.PhaseMarshalOut, errors.KindUnexpectedType).
			Path(path...).
			Cause(err).
			Detail("read interface identifier").
			Build()
	}
	return env.NewString(id.String()), nil
}

func (m *Marshaller) freeID(ptr uint32) {
	if ptr != 0 {
		heap.FreeID(m.heap, ptr)
	}
}

// lowerGenericString wraps a managed string as a native string object. A
// managed null becomes a void string.
func lowerGenericString(env managed.Env, path []string, val managed.Object) (*xpcom.String, error) {
	if val == nil {
		return &xpcom.String{Void: true}, nil
	}
	s, ok := env.StringUTF(val)
	if !ok {
		return nil, errors.PendingException(errors.PhaseMarshalIn, path)
	}
	return &xpcom.String{Data: s}, nil
}
