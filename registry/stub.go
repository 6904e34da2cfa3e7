package registry

import (
	"sync/atomic"

	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// Stub is the native face of a managed object. It holds a strong
// reference to the managed object while its own reference count is
// positive and leaves the registry when the count reaches zero.
type Stub struct {
	reg  *Registry
	obj  managed.Object
	info *xpt.Interface
	rt   managed.Runtime
	hash int32
	refs atomic.Int32
}

var _ xpcom.Object = (*Stub)(nil)

// Managed returns the wrapped managed object, or nil once released.
func (s *Stub) Managed() managed.Object {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	return s.obj
}

// Info returns the interface the stub was created for.
func (s *Stub) Info() *xpt.Interface { return s.info }

func (s *Stub) AddRef() uint32 {
	return uint32(s.refs.Add(1))
}

// tryAddRef takes a reference unless the stub is already dying.
func (s *Stub) tryAddRef() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (s *Stub) Release() uint32 {
	n := s.refs.Add(-1)
	if n == 0 {
		s.reg.removeStub(s)
	}
	return uint32(max(n, 0))
}

func (s *Stub) QueryInterface(iid nsid.ID) (xpcom.Object, xpcom.Result) {
	if s.supports(iid) {
		s.AddRef()
		return s, xpcom.OK
	}
	return nil, xpcom.ErrNoInterface
}

func (s *Stub) supports(iid nsid.ID) bool {
	if iid == xpt.ISupportsIID || s.info.Inherits(iid) {
		return true
	}
	if s.reg.cfg.Oracle == nil || s.rt == nil {
		return false
	}
	info, ok := s.reg.cfg.Oracle.InterfaceByIID(iid)
	if !ok {
		return false
	}
	obj := s.Managed()
	if obj == nil {
		return false
	}
	// QueryInterface may run on any goroutine.
	return s.rt.AttachEnv().Implements(obj, info.Name)
}
