package xpcom

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// MethodFunc implements one native method.
type MethodFunc func(call *Call) Result

// Methods maps method names to implementations. Attribute getters use the
// attribute name; setters use the name with a trailing "=".
type Methods map[string]MethodFunc

// Component is a native object implemented by Go functions and described
// by interface metadata. It answers QueryInterface for its interface and
// every ancestor, for registered tear-offs, and for
// nsISupportsWeakReference when weak references are enabled.
type Component struct {
	info      *xpt.Interface
	table     []MethodFunc
	tearOffs  map[nsid.ID]*tearOff
	weak      *weakRef
	onDestroy func()
	refs      atomic.Int32
	mu        sync.Mutex
}

var (
	_ Invoker               = (*Component)(nil)
	_ SupportsWeakReference = (*weakSupport)(nil)
	_ WeakReference         = (*weakRef)(nil)
)

// NewComponent creates a component with one reference held by the caller.
func NewComponent(info *xpt.Interface, methods Methods) *Component {
	c := &Component{info: info, table: bindMethods(info, methods)}
	c.refs.Store(1)
	return c
}

func bindMethods(info *xpt.Interface, methods Methods) []MethodFunc {
	table := make([]MethodFunc, info.MethodCount())
	for i := range table {
		m, _ := info.Method(i)
		key := m.Name
		if m.Setter {
			key += "="
		}
		table[i] = methods[key]
	}
	return table
}

// Info returns the component's primary interface.
func (c *Component) Info() *xpt.Interface { return c.info }

// EnableWeakReferences makes the component answer nsISupportsWeakReference.
func (c *Component) EnableWeakReferences() *Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.weak == nil {
		c.weak = &weakRef{target: c}
		c.weak.refs.Store(1)
	}
	return c
}

// OnDestroy registers fn to run when the last reference is released.
func (c *Component) OnDestroy(fn func()) *Component {
	c.onDestroy = fn
	return c
}

// AddTearOff makes the component answer for info through a separate
// object identity whose nsISupports face is the component itself.
func (c *Component) AddTearOff(info *xpt.Interface, methods Methods) *Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tearOffs == nil {
		c.tearOffs = make(map[nsid.ID]*tearOff)
	}
	c.tearOffs[info.IID] = &tearOff{outer: c, info: info, table: bindMethods(info, methods)}
	return c
}

// Refs returns the current reference count.
func (c *Component) Refs() int32 { return c.refs.Load() }

// Alive reports whether the component still holds references.
func (c *Component) Alive() bool { return c.refs.Load() > 0 }

func (c *Component) AddRef() uint32 {
	return uint32(c.refs.Add(1))
}

func (c *Component) Release() uint32 {
	n := c.refs.Add(-1)
	if n == 0 {
		if c.weak != nil {
			c.weak.Release()
		}
		if c.onDestroy != nil {
			c.onDestroy()
		}
	}
	if n < 0 {
		panic("xpcom: component released more times than referenced")
	}
	return uint32(n)
}

func (c *Component) QueryInterface(iid nsid.ID) (Object, Result) {
	if c.info.Inherits(iid) {
		c.AddRef()
		return c, OK
	}

	c.mu.Lock()
	t, hasTearOff := c.tearOffs[iid]
	weak := c.weak
	c.mu.Unlock()

	if hasTearOff {
		c.AddRef()
		return t, OK
	}
	if weak != nil && iid == xpt.ISupportsWeakReferenceIID {
		c.AddRef()
		return &weakSupport{outer: c}, OK
	}
	return nil, ErrNoInterface
}

func (c *Component) CallMethod(index int, call *Call) Result {
	return invokeTable(c.table, index, call)
}

func invokeTable(table []MethodFunc, index int, call *Call) Result {
	if index < 0 || index >= len(table) {
		return ErrIllegalValue
	}
	fn := table[index]
	if fn == nil {
		return ErrNotImplemented
	}
	return fn(call)
}

// tearOff is an aggregated face of a component with its own identity.
type tearOff struct {
	outer *Component
	info  *xpt.Interface
	table []MethodFunc
}

func (t *tearOff) AddRef() uint32  { return t.outer.AddRef() }
func (t *tearOff) Release() uint32 { return t.outer.Release() }

func (t *tearOff) QueryInterface(iid nsid.ID) (Object, Result) {
	if iid != xpt.ISupportsIID && t.info.Inherits(iid) {
		t.outer.AddRef()
		return t, OK
	}
	return t.outer.QueryInterface(iid)
}

func (t *tearOff) CallMethod(index int, call *Call) Result {
	return invokeTable(t.table, index, call)
}

// weakSupport is the nsISupportsWeakReference face of a component.
type weakSupport struct {
	outer *Component
}

func (w *weakSupport) AddRef() uint32  { return w.outer.AddRef() }
func (w *weakSupport) Release() uint32 { return w.outer.Release() }

func (w *weakSupport) QueryInterface(iid nsid.ID) (Object, Result) {
	if iid == xpt.ISupportsWeakReferenceIID {
		w.outer.AddRef()
		return w, OK
	}
	return w.outer.QueryInterface(iid)
}

func (w *weakSupport) GetWeakReference() (WeakReference, Result) {
	ref := w.outer.weak
	ref.AddRef()
	return ref, OK
}

// weakRef is a weak handle with its own reference count. The component
// holds one reference to it while alive.
type weakRef struct {
	target *Component
	refs   atomic.Int32
}

func (r *weakRef) AddRef() uint32  { return uint32(r.refs.Add(1)) }
func (r *weakRef) Release() uint32 { return uint32(r.refs.Add(-1)) }

func (r *weakRef) QueryInterface(iid nsid.ID) (Object, Result) {
	if iid == xpt.ISupportsIID || iid == xpt.IWeakReferenceIID {
		r.AddRef()
		return r, OK
	}
	return nil, ErrNoInterface
}

// QueryReferent resolves the weak handle. It fails once the target has
// been destroyed.
func (r *weakRef) QueryReferent(iid nsid.ID) (Object, Result) {
	for {
		n := r.target.refs.Load()
		if n <= 0 {
			return nil, ErrNullPointer
		}
		if r.target.refs.CompareAndSwap(n, n+1) {
			break
		}
	}
	obj, res := r.target.QueryInterface(iid)
	r.target.Release()
	return obj, res
}
