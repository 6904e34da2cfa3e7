package managed

import (
	"fmt"
	"hash/maphash"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf16"
	"weak"
)

// Config configures a VM.
type Config struct {
	// AutoDefine lists package prefixes whose classes are defined on first
	// lookup through the system loader.
	AutoDefine []string

	// MaxArrayLength bounds array creation; larger requests raise
	// OutOfMemoryError. Zero means unbounded.
	MaxArrayLength int
}

// DefaultConfig returns the configuration used by NewVM.
func DefaultConfig() Config {
	return Config{
		AutoDefine: []string{"org.mozilla.interfaces."},
	}
}

// Proxy is a managed object forwarding to a native object through an
// opaque handle.
type Proxy struct {
	class  *Class
	handle uint64
}

// Class returns the interface class the proxy implements.
func (p *Proxy) Class() *Class { return p.class }

// Handle returns the opaque native handle.
func (p *Proxy) Handle() uint64 { return p.handle }

// Implements reports whether the proxy class is the named interface.
func (p *Proxy) Implements(iface string) bool {
	name := p.class.Name
	return name == iface || strings.HasSuffix(name, "."+iface)
}

// ObjectArray is a managed array of references.
type ObjectArray struct {
	Class *Class
	Elems []Object
}

// VM is an in-process managed runtime.
type VM struct {
	cfg       Config
	classes   map[string]*Class
	finalizer atomic.Pointer[func(uint64)]
	seed      maphash.Seed
	mu        sync.RWMutex
}

// NewVM creates a VM with DefaultConfig.
func NewVM() *VM {
	return NewVMWithConfig(DefaultConfig())
}

// NewVMWithConfig creates a VM.
func NewVMWithConfig(cfg Config) *VM {
	return &VM{
		cfg:     cfg,
		classes: make(map[string]*Class),
		seed:    maphash.MakeSeed(),
	}
}

// Attach returns an Env bound to the calling goroutine.
func (vm *VM) Attach() *Thread {
	return &Thread{vm: vm}
}

// AttachEnv is Attach as a Runtime.
func (vm *VM) AttachEnv() Env {
	return vm.Attach()
}

// DefineClass defines a class in the system loader.
func (vm *VM) DefineClass(name string) *Class {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if c, ok := vm.classes[name]; ok {
		return c
	}
	c := &Class{Name: name}
	vm.classes[name] = c
	return c
}

// LoadClass implements ClassLoader for the system loader.
func (vm *VM) LoadClass(name string) (*Class, bool) {
	vm.mu.RLock()
	c, ok := vm.classes[name]
	vm.mu.RUnlock()
	if ok {
		return c, true
	}
	for _, prefix := range vm.cfg.AutoDefine {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return vm.DefineClass(name), true
		}
	}
	return nil, false
}

// SetProxyFinalizer installs the hook run with a proxy's handle after the
// proxy becomes unreachable. Hooks run on a runtime-owned goroutine.
func (vm *VM) SetProxyFinalizer(fn func(handle uint64)) {
	if fn == nil {
		vm.finalizer.Store(nil)
		return
	}
	vm.finalizer.Store(&fn)
}

func (vm *VM) finalize(handle uint64) {
	if fn := vm.finalizer.Load(); fn != nil {
		(*fn)(handle)
	}
}

func (vm *VM) newProxy(class *Class, handle uint64) *Proxy {
	p := &Proxy{class: class, handle: handle}
	runtime.AddCleanup(p, vm.finalize, handle)
	return p
}

func (vm *VM) identityHash(obj Object) int32 {
	if obj == nil {
		return 0
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		p := uint64(v.Pointer())
		return int32(p ^ p>>32)
	case reflect.Slice:
		p := uint64(v.Pointer())
		return int32(p ^ p>>32 ^ uint64(v.Len()))
	}
	if v.Type().Comparable() {
		return int32(maphash.Comparable(vm.seed, obj))
	}
	return 0
}

func sameObject(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

type weakProxy struct {
	mu  sync.Mutex
	ptr weak.Pointer[Proxy]
	ok  bool
}

func (w *weakProxy) Get() Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ok {
		return nil
	}
	if p := w.ptr.Value(); p != nil {
		return p
	}
	return nil
}

func (w *weakProxy) Clear() {
	w.mu.Lock()
	w.ok = false
	w.mu.Unlock()
}

// strongRef holds referents that are not collectable proxies.
type strongRef struct {
	mu  sync.Mutex
	obj Object
}

func (s *strongRef) Get() Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obj
}

func (s *strongRef) Clear() {
	s.mu.Lock()
	s.obj = nil
	s.mu.Unlock()
}

func newWeakRef(obj Object) WeakRef {
	if p, ok := obj.(*Proxy); ok && p != nil {
		return &weakProxy{ptr: weak.Make(p), ok: true}
	}
	return &strongRef{obj: obj}
}

func utf16String(chars []uint16) string {
	return string(utf16.Decode(chars))
}

func describe(obj Object) string {
	if obj == nil {
		return "null"
	}
	return fmt.Sprintf("%T", obj)
}
