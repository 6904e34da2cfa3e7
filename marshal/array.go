package marshal

import (
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// maxArrayBytes bounds a single native array buffer.
const maxArrayBytes = 1 << 30

// elementSize returns the native size of one array element stored in the
// heap. Interface arrays are carried as xpcom.Refs and have no heap form.
func elementSize(et xpt.Tag) (uint32, bool) {
	switch {
	case et.IsScalar():
		return et.Size(), true
	case et == xpt.CharStr, et == xpt.WCharStr, et == xpt.IID:
		return xpt.PointerSize, true
	}
	return 0, false
}

// arrayBytes returns the byte size of n elements, failing with out of
// memory past maxArrayBytes.
func arrayBytes(phase errors.Phase, n, size uint32) (uint64, error) {
	total := uint64(n) * uint64(max(size, 1))
	if total > maxArrayBytes {
		return 0, errors.OutOfMemory(phase, uint32(min(total, 1<<32-1)))
	}
	return total, nil
}

func elementTag(path []string, phase errors.Phase, typ xpt.Type) (xpt.Tag, error) {
	if typ.Elem == nil {
		return 0, errors.UnexpectedType(phase, path, "array without element type")
	}
	return xpt.ElementTag(typ.Elem.Tag), nil
}

func (m *Marshaller) lowerArray(env managed.Env, req Request, val managed.Object, v *xpcom.Variant) error {
	et, err := elementTag(req.Path, errors.PhaseMarshalIn, req.Param.Type)
	if err != nil {
		return err
	}
	if et.IsInterface() {
		if val == nil {
			v.Val = xpcom.Refs(nil)
			return nil
		}
		refs, err := m.lowerRefs(env, req, val)
		if err != nil {
			return err
		}
		v.Val, v.Cleanup = refs, true
		return nil
	}

	size, ok := elementSize(et)
	if !ok {
		return errors.UnexpectedType(errors.PhaseMarshalIn, req.Path, "array of "+et.String())
	}
	if val == nil {
		v.Val = xpcom.Pointer(0)
		return nil
	}

	n := req.Size
	total, err := arrayBytes(errors.PhaseMarshalIn, n, size)
	if err != nil {
		return err
	}
	ptr, err := m.heap.Alloc(uint32(total), max(size, 1))
	if err != nil {
		return err
	}
	if err := m.heap.Write(ptr, make([]byte, total)); err != nil {
		m.heap.Free(ptr, uint32(total), size)
		return errors.Wrap(errors.PhaseMarshalIn, errors.KindOutOfMemory, err, "clear array")
	}

	for i := range n {
		el, ok := env.GetElement(val, int(i))
		if !ok {
			m.freeArray(et, ptr, i)
			return errors.PendingException(errors.PhaseMarshalIn, req.Path)
		}
		if err := m.storeElement(env, req, et, ptr+i*size, el); err != nil {
			m.freeArray(et, ptr, i)
			return err
		}
	}
	v.Val, v.Cleanup = xpcom.Pointer(ptr), true
	return nil
}

func (m *Marshaller) lowerRefs(env managed.Env, req Request, val managed.Object) (xpcom.Refs, error) {
	if _, err := arrayBytes(errors.PhaseMarshalIn, req.Size, xpt.PointerSize); err != nil {
		return nil, err
	}
	refs := make(xpcom.Refs, req.Size)
	for i := range refs {
		el, ok := env.GetElement(val, i)
		if !ok {
			releaseRefs(refs[:i])
			return nil, errors.PendingException(errors.PhaseMarshalIn, req.Path)
		}
		obj, err := m.toNative(env, req, el)
		if err != nil {
			releaseRefs(refs[:i])
			return nil, err
		}
		refs[i] = obj
	}
	return refs, nil
}

func releaseRefs(refs xpcom.Refs) {
	for _, obj := range refs {
		if obj != nil {
			obj.Release()
		}
	}
}

func (m *Marshaller) storeElement(env managed.Env, req Request, et xpt.Tag, addr uint32, el managed.Object) error {
	switch {
	case et.IsScalar():
		bits, err := lowerScalar(env, req.Path, et, el)
		if err != nil {
			return err
		}
		return writeScalar(m.heap, addr, et, bits)
	case et == xpt.CharStr || et == xpt.WCharStr:
		p, err := m.lowerString(env, req.Path, et, el)
		if err != nil {
			return err
		}
		return m.writePointer(addr, p, func() { m.freeString(et, p) })
	case et == xpt.IID:
		p, err := m.lowerID(env, req.Path, el)
		if err != nil {
			return err
		}
		return m.writePointer(addr, p, func() { m.freeID(p) })
	}
	return errors.UnexpectedType(errors.PhaseMarshalIn, req.Path, et.String())
}

func (m *Marshaller) writePointer(addr, p uint32, undo func()) error {
	if err := m.heap.WriteU32(addr, p); err != nil {
		undo()
		return errors.Wrap(errors.PhaseMarshalIn, errors.KindOutOfMemory, err, "store array element")
	}
	return nil
}

// freeArray releases the first n elements of a native array and the
// array itself.
func (m *Marshaller) freeArray(et xpt.Tag, ptr, n uint32) {
	if ptr == 0 {
		return
	}
	if et == xpt.CharStr || et == xpt.WCharStr || et == xpt.IID {
		for i := range n {
			p, err := m.heap.ReadU32(ptr + i*xpt.PointerSize)
			if err != nil || p == 0 {
				continue
			}
			if et == xpt.IID {
				m.freeID(p)
			} else {
				m.freeString(et, p)
			}
		}
	}
	size, _ := elementSize(et)
	m.heap.Free(ptr, n*size, size)
}

func (m *Marshaller) liftArray(env managed.Env, req Request, v *xpcom.Variant, produce bool) (managed.Object, error) {
	et, err := elementTag(req.Path, errors.PhaseMarshalOut, req.Param.Type)
	if err != nil {
		return nil, err
	}
	if et.IsInterface() {
		refs := v.Objs()
		defer releaseRefs(refs)
		if !produce || refs == nil {
			return nil, nil
		}
		return m.liftRefs(env, req, refs)
	}

	ptr := v.Ptr()
	defer m.freeArray(et, ptr, req.Size)
	if !produce || ptr == 0 {
		return nil, nil
	}

	n := req.Size
	size, _ := elementSize(et)
	if _, err := arrayBytes(errors.PhaseMarshalOut, n, size); err != nil {
		return nil, err
	}
	arr, ok := env.NewArray(et.ManagedKind(), nil, int(n))
	if !ok {
		return nil, errors.PendingException(errors.PhaseMarshalOut, req.Path)
	}
	for i := range n {
		el, err := m.loadElement(env, req, et, ptr+i*size)
		if err != nil {
			return nil, err
		}
		if !env.SetElement(arr, int(i), el) {
			return nil, errors.PendingException(errors.PhaseMarshalOut, req.Path)
		}
	}
	return arr, nil
}

func (m *Marshaller) liftRefs(env managed.Env, req Request, refs xpcom.Refs) (managed.Object, error) {
	if uint64(len(refs)) < uint64(req.Size) {
		return nil, errors.New(errors.PhaseMarshalOut, errors.KindValueRange).
			Path(req.Path...).
			Detail("callee returned %d interfaces, expected %d", len(refs), req.Size).
			Build()
	}
	class, err := m.interfaceClass(env, req.Path, req.IID)
	if err != nil {
		return nil, err
	}
	arr, ok := env.NewArray(managed.KindObject, class, int(req.Size))
	if !ok {
		return nil, errors.PendingException(errors.PhaseMarshalOut, req.Path)
	}
	for i := range int(req.Size) {
		var el managed.Object
		if refs[i] != nil {
			if el, err = m.objects.GetOrCreateProxy(env, refs[i], req.IID); err != nil {
				return nil, err
			}
		}
		if !env.SetElement(arr, i, el) {
			return nil, errors.PendingException(errors.PhaseMarshalOut, req.Path)
		}
	}
	return arr, nil
}

func (m *Marshaller) loadElement(env managed.Env, req Request, et xpt.Tag, addr uint32) (managed.Object, error) {
	if et.IsScalar() {
		bits, err := readScalar(m.heap, addr, et)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseMarshalOut, errors.KindUnexpectedType, err, "read array element")
		}
		return liftScalar(et, bits), nil
	}
	p, err := m.heap.ReadU32(addr)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshalOut, errors.KindUnexpectedType, err, "read array element")
	}
	if p == 0 {
		return nil, nil
	}
	if et == xpt.IID {
		return m.liftID(env, req.Path, p)
	}
	return m.liftString(env, req.Path, et, p)
}
