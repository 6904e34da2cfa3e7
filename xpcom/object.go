package xpcom

import (
	xpbridge "github.com/wippyai/xpcom-bridge"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// Object is a native reference-counted object. QueryInterface returns an
// AddRef'd reference which may differ in identity from the receiver.
type Object interface {
	QueryInterface(iid nsid.ID) (Object, Result)
	AddRef() uint32
	Release() uint32
}

// WeakReference is a native weak handle to an Object.
type WeakReference interface {
	Object
	QueryReferent(iid nsid.ID) (Object, Result)
}

// SupportsWeakReference is implemented by the nsISupportsWeakReference
// face of objects that hand out weak references.
type SupportsWeakReference interface {
	Object
	GetWeakReference() (WeakReference, Result)
}

// Invoker is implemented by objects whose methods can be called by index.
type Invoker interface {
	Object
	CallMethod(index int, call *Call) Result
}

// Call is one native method invocation.
type Call struct {
	Heap   xpbridge.Heap
	Method *xpt.Method
	Params []Variant
}

// Param returns the variant for parameter i, or nil.
func (c *Call) Param(i int) *Variant {
	if i < 0 || i >= len(c.Params) {
		return nil
	}
	return &c.Params[i]
}

// Root returns the canonical identity of obj: its nsISupports face.
// The returned reference is AddRef'd.
func Root(obj Object) (Object, Result) {
	if obj == nil {
		return nil, ErrNullPointer
	}
	return obj.QueryInterface(xpt.ISupportsIID)
}

// Query is QueryInterface with nil tolerance.
func Query(obj Object, iid nsid.ID) (Object, Result) {
	if obj == nil {
		return nil, ErrNullPointer
	}
	return obj.QueryInterface(iid)
}
