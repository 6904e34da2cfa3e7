// Package registry keeps object identity across the bridge.
//
// Native objects surface on the managed side as proxies: at most one live
// proxy per (native identity, interface) pair, held weakly so the managed
// collector decides their lifetime. Managed objects surface on the native
// side as stubs: at most one stub per managed identity.
//
// A single mutex guards both maps and the initialized flag. Wrapped native
// instances are always destroyed after that mutex is released, because
// releasing a native object may re-enter the registry.
package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/resource"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// DefaultClassPrefix is the package holding managed interface classes.
const DefaultClassPrefix = "org.mozilla.interfaces."

// Config configures a Registry.
type Config struct {
	Oracle      xpt.Oracle
	MainThread  *xpcom.MainThread
	Loader      managed.ClassLoader
	Logger      *zap.Logger
	ClassPrefix string
}

type proxyRef struct {
	weak   managed.WeakRef
	iid    nsid.ID
	handle resource.Handle
}

type proxyEntry struct {
	root xpcom.Object
	refs []proxyRef
}

// Registry is the identity registry. Create one per bridge.
type Registry struct {
	cfg         Config
	log         *zap.Logger
	table       *resource.UnifiedTable
	wrappers    *resource.Typed[*Wrapper]
	pinned      *resource.Typed[xpcom.Object]
	proxies     map[xpcom.Object]int
	entries     []proxyEntry
	freeEntries []int
	stubs       map[int32][]*Stub
	stubCount   int
	create      singleflight.Group
	mu          sync.Mutex
	initialized bool
}

// New creates an initialized registry.
func New(cfg Config) *Registry {
	if cfg.ClassPrefix == "" {
		cfg.ClassPrefix = DefaultClassPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	table := resource.NewTable()
	return &Registry{
		cfg:         cfg,
		log:         cfg.Logger.Named("registry"),
		table:       table,
		wrappers:    resource.NewTyped[*Wrapper](table, TypeWrapper),
		pinned:      resource.NewTyped[xpcom.Object](table, TypePinned),
		proxies:     make(map[xpcom.Object]int),
		stubs:       make(map[int32][]*Stub),
		initialized: true,
	}
}

// Subscribe forwards wrapper and pin lifecycle events to o.
func (r *Registry) Subscribe(o resource.Observer) {
	r.table.Subscribe(o)
}

// Initialized reports whether Teardown has not yet run.
func (r *Registry) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Wrapper returns the wrapper behind a proxy handle.
func (r *Registry) Wrapper(handle uint64) (*Wrapper, bool) {
	return r.wrappers.Get(resource.Handle(handle))
}

// FindProxy returns the live proxy for (root, iid), if any.
func (r *Registry) FindProxy(root xpcom.Object, iid nsid.ID) (managed.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(root, iid)
}

func (r *Registry) findLocked(root xpcom.Object, iid nsid.ID) (managed.Object, bool) {
	idx, ok := r.proxies[root]
	if !ok {
		return nil, false
	}
	for _, ref := range r.entries[idx].refs {
		if ref.iid != iid {
			continue
		}
		if obj := ref.weak.Get(); obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// AddProxy registers a proxy for (root, iid). Entries whose proxies have
// been collected are left for their finalizers to remove.
func (r *Registry) AddProxy(env managed.Env, root xpcom.Object, iid nsid.ID, proxy managed.Object, handle resource.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return errors.NotInitialized(errors.PhaseRegistry, "registry")
	}
	return r.addLocked(env, root, iid, proxy, handle)
}

func (r *Registry) addLocked(env managed.Env, root xpcom.Object, iid nsid.ID, proxy managed.Object, handle resource.Handle) error {
	if _, live := r.findLocked(root, iid); live {
		return errors.Duplicate(errors.PhaseRegistry, "proxy", fmt.Sprintf("%p/%s", root, iid))
	}

	idx, ok := r.proxies[root]
	if !ok {
		if n := len(r.freeEntries); n > 0 {
			idx = r.freeEntries[n-1]
			r.freeEntries = r.freeEntries[:n-1]
			r.entries[idx] = proxyEntry{root: root}
		} else {
			idx = len(r.entries)
			r.entries = append(r.entries, proxyEntry{root: root})
		}
		r.proxies[root] = idx
	}
	r.entries[idx].refs = append(r.entries[idx].refs, proxyRef{
		weak:   env.NewWeakRef(proxy),
		iid:    iid,
		handle: handle,
	})
	return nil
}

// RemoveProxy removes the entry registered with handle for (root, iid).
func (r *Registry) RemoveProxy(root xpcom.Object, iid nsid.ID, handle resource.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(root, iid, handle)
}

func (r *Registry) removeLocked(root xpcom.Object, iid nsid.ID, handle resource.Handle) error {
	idx, ok := r.proxies[root]
	if ok {
		refs := r.entries[idx].refs
		for i, ref := range refs {
			if ref.iid != iid || ref.handle != handle {
				continue
			}
			ref.weak.Clear()
			refs = append(refs[:i], refs[i+1:]...)
			r.entries[idx].refs = refs
			if len(refs) == 0 {
				delete(r.proxies, root)
				r.entries[idx] = proxyEntry{}
				r.freeEntries = append(r.freeEntries, idx)
			}
			return nil
		}
	}
	return errors.NotFound(errors.PhaseRegistry, "proxy entry", fmt.Sprintf("%p/%s", root, iid))
}

// GetOrCreateProxy returns the managed proxy for obj exposed as iid,
// creating it if no live proxy exists. Native stubs unwrap to their
// managed object. Concurrent calls for the same pair share one creation.
func (r *Registry) GetOrCreateProxy(env managed.Env, obj xpcom.Object, iid nsid.ID) (managed.Object, error) {
	if obj == nil {
		return nil, nil
	}
	if stub, ok := obj.(*Stub); ok {
		if m := stub.Managed(); m != nil {
			return m, nil
		}
	}

	root, res := xpcom.Root(obj)
	if res.Failed() {
		return nil, errors.New(errors.PhaseRegistry, errors.KindNoInterface).
			Code(res).
			Detail("object does not answer nsISupports").
			Build()
	}
	// Identity only; the wrapper holds the owning reference.
	root.Release()

	if proxy, ok := r.FindProxy(root, iid); ok {
		return proxy, nil
	}

	key := fmt.Sprintf("%p/%s", root, iid)
	v, err, _ := r.create.Do(key, func() (any, error) {
		return r.createProxy(env, obj, root, iid)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Registry) createProxy(env managed.Env, obj, root xpcom.Object, iid nsid.ID) (managed.Object, error) {
	if proxy, ok := r.FindProxy(root, iid); ok {
		return proxy, nil
	}

	info, ok := r.cfg.Oracle.InterfaceByIID(iid)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, "interface", iid.String())
	}

	inst, res := obj.QueryInterface(iid)
	if res.Failed() {
		return nil, errors.New(errors.PhaseRegistry, errors.KindNoInterface).
			Code(res).
			Type(info.Name).
			Detail("object does not implement %s", info.Name).
			Build()
	}

	w := &Wrapper{instance: inst, Root: root, Info: info}
	w.Handle = r.wrappers.Insert(w)
	if w.Handle == 0 {
		r.releaseWrapper(w)
		return nil, errors.NotInitialized(errors.PhaseRegistry, "registry")
	}

	fail := func(err error) (managed.Object, error) {
		if _, ok := r.wrappers.Remove(w.Handle); ok {
			r.releaseWrapper(w)
		}
		return nil, err
	}

	class, ok := env.FindClass(r.cfg.Loader, r.cfg.ClassPrefix+info.Name)
	if !ok {
		return fail(errors.New(errors.PhaseRegistry, errors.KindPendingException).
			Type(info.Name).
			Detail("managed interface class not found").
			Build())
	}
	proxy, ok := env.NewProxy(class, uint64(w.Handle))
	if !ok {
		return fail(errors.PendingException(errors.PhaseRegistry, []string{info.Name}))
	}

	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return fail(errors.NotInitialized(errors.PhaseRegistry, "registry"))
	}
	err := r.addLocked(env, root, iid, proxy, w.Handle)
	r.mu.Unlock()
	if err != nil {
		return fail(err)
	}

	r.log.Debug("proxy created",
		zap.String("interface", info.Name),
		zap.Uint64("handle", uint64(w.Handle)))
	return proxy, nil
}

// Finalize runs when a managed proxy has been collected. It is a no-op
// after Teardown. The wrapper is destroyed outside the registry lock.
func (r *Registry) Finalize(handle uint64) {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return
	}
	w, ok := r.wrappers.Remove(resource.Handle(handle))
	if !ok {
		r.mu.Unlock()
		r.log.Warn("finalize of unknown proxy handle", zap.Uint64("handle", handle))
		return
	}
	err := r.removeLocked(w.Root, w.IID(), w.Handle)
	inst := w.detachLocked()
	r.mu.Unlock()

	if err != nil {
		r.log.Warn("finalized proxy had no registry entry", zap.Error(err))
	}
	releaseNative(r.cfg.MainThread, inst)
}

// GetNative returns an AddRef'd native object for a managed object
// exposed as iid: the wrapped instance for proxies, a stub otherwise.
func (r *Registry) GetNative(env managed.Env, obj managed.Object, iid nsid.ID) (xpcom.Object, error) {
	if obj == nil {
		return nil, nil
	}
	if handle, ok := env.ProxyHandle(obj); ok {
		b, err := r.Acquire(handle)
		if err != nil {
			return nil, errors.New(errors.PhaseRegistry, errors.KindNotInitialized).
				Cause(err).
				Detail("proxy handle %#x is no longer valid", handle).
				Build()
		}
		defer b.Release()
		inst, res := xpcom.Query(b.Object, iid)
		if res.Failed() {
			return nil, errors.New(errors.PhaseRegistry, errors.KindNoInterface).Code(res).Type(iid.String()).Build()
		}
		return inst, nil
	}
	return r.GetOrCreateStub(env, obj, iid)
}

// GetOrCreateStub returns an AddRef'd stub for a managed object, creating
// it if the object has none.
func (r *Registry) GetOrCreateStub(env managed.Env, obj managed.Object, iid nsid.ID) (xpcom.Object, error) {
	hash := env.IdentityHash(obj)

	if s := r.lookupStub(env, obj, hash); s != nil {
		return queryStub(s, iid)
	}
	if !r.Initialized() {
		return nil, errors.NotInitialized(errors.PhaseRegistry, "registry")
	}

	info, ok := r.cfg.Oracle.InterfaceByIID(iid)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, "interface", iid.String())
	}
	if iid != xpt.ISupportsIID && !env.Implements(obj, info.Name) {
		return nil, errors.NoInterface(errors.PhaseRegistry, info.Name)
	}

	stub := &Stub{
		reg:  r,
		obj:  obj,
		info: info,
		rt:   env.Runtime(),
		hash: hash,
	}
	stub.refs.Store(1)

	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return nil, errors.NotInitialized(errors.PhaseRegistry, "registry")
	}
	if existing := r.findStubLocked(env, obj, hash); existing != nil {
		r.mu.Unlock()
		r.log.Warn("duplicate stub insert", zap.Int32("hash", hash))
		return queryStub(existing, iid)
	}
	r.stubs[hash] = append(r.stubs[hash], stub)
	r.stubCount++
	r.mu.Unlock()
	return stub, nil
}

// lookupStub returns a referenced live stub for obj, or nil.
func (r *Registry) lookupStub(env managed.Env, obj managed.Object, hash int32) *Stub {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil
	}
	return r.findStubLocked(env, obj, hash)
}

func (r *Registry) findStubLocked(env managed.Env, obj managed.Object, hash int32) *Stub {
	for _, s := range r.stubs[hash] {
		if s.obj != nil && env.IsSameObject(s.obj, obj) && s.tryAddRef() {
			return s
		}
	}
	return nil
}

// queryStub converts the lookup reference on s into a reference on iid.
func queryStub(s *Stub, iid nsid.ID) (xpcom.Object, error) {
	defer s.Release()
	inst, res := s.QueryInterface(iid)
	if res.Failed() {
		return nil, errors.New(errors.PhaseRegistry, errors.KindNoInterface).Code(res).Type(iid.String()).Build()
	}
	return inst, nil
}

// FindStub returns the live stub for a managed object without creating one.
func (r *Registry) FindStub(env managed.Env, obj managed.Object) (*Stub, bool) {
	hash := env.IdentityHash(obj)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stubs[hash] {
		if s.obj != nil && env.IsSameObject(s.obj, obj) && s.refs.Load() > 0 {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) removeStub(s *Stub) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.stubs[s.hash]
	for i, cur := range list {
		if cur != s {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.stubs, s.hash)
		} else {
			r.stubs[s.hash] = list
		}
		r.stubCount--
		break
	}
	s.obj = nil
}

// Pin stores an AddRef'd native object under a handle the managed side
// can hold. ReleasePinned gives the reference back.
func (r *Registry) Pin(obj xpcom.Object) uint64 {
	if obj == nil || !r.Initialized() {
		return 0
	}
	obj.AddRef()
	h := r.pinned.Insert(obj)
	if h == 0 {
		obj.Release()
	}
	return uint64(h)
}

// ReleasePinned releases a pinned object on the main thread.
func (r *Registry) ReleasePinned(handle uint64) bool {
	obj, ok := r.pinned.Remove(resource.Handle(handle))
	if !ok {
		return false
	}
	releaseNative(r.cfg.MainThread, obj)
	return true
}

// Stats describes registry contents.
type Stats struct {
	Handles     int
	ProxyRoots  int
	ProxyRefs   int
	Stubs       int
	Initialized bool
}

// Stats returns a snapshot of registry contents.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{
		Handles:     r.table.Len(),
		ProxyRoots:  len(r.proxies),
		Stubs:       r.stubCount,
		Initialized: r.initialized,
	}
	for _, idx := range r.proxies {
		st.ProxyRefs += len(r.entries[idx].refs)
	}
	return st
}

// Teardown shuts the registry down: later finalizers become no-ops,
// every wrapper and pinned object is released, and stubs drop their
// managed references. It returns the number of native objects released.
func (r *Registry) Teardown() int {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return 0
	}
	r.initialized = false

	values := r.table.Drain()
	for _, idx := range r.proxies {
		for _, ref := range r.entries[idx].refs {
			ref.weak.Clear()
		}
	}
	r.proxies = make(map[xpcom.Object]int)
	r.entries = nil
	r.freeEntries = nil

	for _, list := range r.stubs {
		for _, s := range list {
			s.obj = nil
		}
	}
	r.stubs = make(map[int32][]*Stub)
	r.stubCount = 0

	natives := make([]xpcom.Object, 0, len(values))
	for _, v := range values {
		switch v := v.(type) {
		case *Wrapper:
			natives = append(natives, v.detachLocked())
		case xpcom.Object:
			natives = append(natives, v)
		}
	}
	r.mu.Unlock()

	for _, obj := range natives {
		releaseNative(r.cfg.MainThread, obj)
	}

	r.log.Debug("registry torn down", zap.Int("released", len(values)))
	return len(values)
}
