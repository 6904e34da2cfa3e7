package registry

import (
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/resource"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// Handle type IDs in the registry's resource table.
const (
	TypeWrapper uint32 = iota + 1
	TypePinned
)

// Wrapper pairs a native object with the interface a managed proxy
// exposes. It owns one reference to the instance until it is detached.
type Wrapper struct {
	// instance is the native object queried to Info.IID. Guarded by the
	// registry mutex; callers borrow it through Registry.Acquire.
	instance xpcom.Object
	// Root is the canonical identity of the instance. It is used as a map
	// key and holds no reference of its own.
	Root   xpcom.Object
	Info   *xpt.Interface
	Handle resource.Handle
}

// IID returns the interface the wrapper exposes.
func (w *Wrapper) IID() nsid.ID {
	return w.Info.IID
}

// detachLocked clears the instance and hands its reference to the
// caller, who releases it after dropping the registry mutex.
func (w *Wrapper) detachLocked() xpcom.Object {
	inst := w.instance
	w.instance = nil
	return inst
}

// Borrowed is a counted reference to a wrapped native instance, valid
// until Release even if the proxy is finalized or the registry torn down
// meanwhile.
type Borrowed struct {
	Object xpcom.Object
	Info   *xpt.Interface
	mt     *xpcom.MainThread
}

// Release gives the borrowed reference back on the main thread.
func (b Borrowed) Release() {
	releaseNative(b.mt, b.Object)
}

// Acquire borrows the instance behind a proxy handle. It fails once the
// registry is torn down or the handle has been finalized.
func (r *Registry) Acquire(handle uint64) (Borrowed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return Borrowed{}, errors.NotInitialized(errors.PhaseRegistry, "bridge")
	}
	w, ok := r.wrappers.Get(resource.Handle(handle))
	if !ok || w.instance == nil {
		return Borrowed{}, errors.New(errors.PhaseRegistry, errors.KindNotFound).
			Code(errors.CodeFailure).
			Value(handle).
			Detail("Failed to get matching XPCOM object").
			Build()
	}
	w.instance.AddRef()
	return Borrowed{Object: w.instance, Info: w.Info, mt: r.cfg.MainThread}, nil
}

// releaseWrapper detaches w under the registry mutex and releases its
// instance after unlocking.
func (r *Registry) releaseWrapper(w *Wrapper) {
	r.mu.Lock()
	inst := w.detachLocked()
	r.mu.Unlock()
	releaseNative(r.cfg.MainThread, inst)
}

// releaseNative releases obj on the main thread, or inline without one.
func releaseNative(mt *xpcom.MainThread, obj xpcom.Object) {
	if obj == nil {
		return
	}
	if mt == nil {
		obj.Release()
		return
	}
	mt.ProxyRelease(obj)
}
