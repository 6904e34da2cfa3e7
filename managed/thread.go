package managed

import (
	"fmt"
	"reflect"
	"unicode/utf16"
)

// Thread is an Env attached to one goroutine.
type Thread struct {
	vm      *VM
	pending *Exception
}

var _ Env = (*Thread)(nil)

// VM returns the runtime this thread is attached to.
func (t *Thread) VM() *VM { return t.vm }

func (t *Thread) raise(class, format string, args ...any) {
	if t.pending != nil {
		return
	}
	t.pending = &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

func (t *Thread) Unbox(obj Object, kind Kind) (any, bool) {
	if obj == nil {
		t.raise(ClassCast, "null cannot be unboxed to %s", kind)
		return nil, false
	}
	gt := kind.GoType()
	if gt == nil || reflect.TypeOf(obj) != gt {
		t.raise(ClassCast, "%s cannot be cast to %s", describe(obj), kind)
		return nil, false
	}
	return obj, true
}

func (t *Thread) Box(kind Kind, v any) (Object, bool) {
	gt := kind.GoType()
	if gt == nil {
		t.raise(ClassCast, "%s is not a boxable kind", kind)
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !rv.Type().ConvertibleTo(gt) {
		t.raise(ClassCast, "%s cannot be boxed as %s", describe(v), kind)
		return nil, false
	}
	return rv.Convert(gt).Interface(), true
}

func (t *Thread) NewArray(kind Kind, class *Class, n int) (Object, bool) {
	if n < 0 {
		t.raise("java.lang.NegativeArraySizeException", "%d", n)
		return nil, false
	}
	if limit := t.vm.cfg.MaxArrayLength; limit > 0 && n > limit {
		t.raise(ClassOutOfMemory, "array of %d elements exceeds VM limit", n)
		return nil, false
	}
	switch kind {
	case KindByte:
		return make([]int8, n), true
	case KindShort:
		return make([]int16, n), true
	case KindInt:
		return make([]int32, n), true
	case KindLong:
		return make([]int64, n), true
	case KindFloat:
		return make([]float32, n), true
	case KindDouble:
		return make([]float64, n), true
	case KindBoolean:
		return make([]bool, n), true
	case KindChar:
		return make([]uint16, n), true
	case KindString:
		return &ObjectArray{Class: &Class{Name: kindNames[KindString]}, Elems: make([]Object, n)}, true
	case KindObject:
		if class == nil {
			class = &Class{Name: kindNames[KindObject]}
		}
		return &ObjectArray{Class: class, Elems: make([]Object, n)}, true
	}
	t.raise(ClassCast, "cannot create array of %s", kind)
	return nil, false
}

func (t *Thread) ArrayLength(arr Object) (int, bool) {
	if oa, ok := arr.(*ObjectArray); ok && oa != nil {
		return len(oa.Elems), true
	}
	rv := reflect.ValueOf(arr)
	if rv.Kind() == reflect.Slice {
		return rv.Len(), true
	}
	t.raise(ClassCast, "%s is not an array", describe(arr))
	return 0, false
}

func (t *Thread) GetElement(arr Object, i int) (Object, bool) {
	n, ok := t.ArrayLength(arr)
	if !ok {
		return nil, false
	}
	if i < 0 || i >= n {
		t.raise(ClassIndexOutOfRange, "index %d out of bounds for length %d", i, n)
		return nil, false
	}
	if oa, ok := arr.(*ObjectArray); ok {
		return oa.Elems[i], true
	}
	return reflect.ValueOf(arr).Index(i).Interface(), true
}

func (t *Thread) SetElement(arr Object, i int, v Object) bool {
	n, ok := t.ArrayLength(arr)
	if !ok {
		return false
	}
	if i < 0 || i >= n {
		t.raise(ClassIndexOutOfRange, "index %d out of bounds for length %d", i, n)
		return false
	}
	if oa, ok := arr.(*ObjectArray); ok {
		oa.Elems[i] = v
		return true
	}
	slot := reflect.ValueOf(arr).Index(i)
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != slot.Type() {
		t.raise(ClassArrayStore, "%s cannot be stored in %s[]", describe(v), slot.Type())
		return false
	}
	slot.Set(rv)
	return true
}

func (t *Thread) NewString(s string) Object {
	return s
}

func (t *Thread) NewStringUTF16(chars []uint16) Object {
	return utf16String(chars)
}

func (t *Thread) StringUTF(obj Object) (string, bool) {
	s, ok := obj.(string)
	if !ok {
		t.raise(ClassCast, "%s cannot be cast to java.lang.String", describe(obj))
	}
	return s, ok
}

func (t *Thread) StringChars(obj Object) ([]uint16, bool) {
	s, ok := t.StringUTF(obj)
	if !ok {
		return nil, false
	}
	return utf16.Encode([]rune(s)), true
}

func (t *Thread) FindClass(loader ClassLoader, name string) (*Class, bool) {
	if loader == nil {
		loader = t.vm
	}
	c, ok := loader.LoadClass(name)
	if !ok {
		t.raise(ClassNoClassDef, "%s", name)
	}
	return c, ok
}

func (t *Thread) NewProxy(class *Class, handle uint64) (Object, bool) {
	if class == nil {
		t.raise(ClassNoClassDef, "null proxy class")
		return nil, false
	}
	return t.vm.newProxy(class, handle), true
}

func (t *Thread) ProxyHandle(obj Object) (uint64, bool) {
	p, ok := obj.(*Proxy)
	if !ok || p == nil {
		return 0, false
	}
	return p.handle, true
}

func (t *Thread) Implements(obj Object, iface string) bool {
	impl, ok := obj.(Implementer)
	return ok && impl.Implements(iface)
}

func (t *Thread) Runtime() Runtime {
	return t.vm
}

func (t *Thread) IdentityHash(obj Object) int32 {
	return t.vm.identityHash(obj)
}

func (t *Thread) IsSameObject(a, b Object) bool {
	return sameObject(a, b)
}

func (t *Thread) NewWeakRef(obj Object) WeakRef {
	return newWeakRef(obj)
}

func (t *Thread) Throw(ex *Exception) {
	t.pending = ex
}

func (t *Thread) ExceptionCheck() bool {
	return t.pending != nil
}

func (t *Thread) PendingException() *Exception {
	return t.pending
}

func (t *Thread) ExceptionClear() {
	t.pending = nil
}
