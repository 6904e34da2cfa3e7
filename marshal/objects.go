package marshal

import (
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// toNative returns an AddRef'd native object for a managed interface
// value, or nil for a managed null. A weak reference parameter receives
// the object's weak handle, or nil when the object does not hand them out.
func (m *Marshaller) toNative(env managed.Env, req Request, val managed.Object) (xpcom.Object, error) {
	if val == nil {
		return nil, nil
	}
	if req.IID == xpt.IWeakReferenceIID {
		return m.weakNative(env, req, val)
	}
	return m.native(env, req, val, req.IID)
}

func (m *Marshaller) native(env managed.Env, req Request, val managed.Object, iid nsid.ID) (xpcom.Object, error) {
	obj, err := m.objects.GetNative(env, val, iid)
	if err != nil {
		if env.ExceptionCheck() {
			return nil, errors.PendingException(errors.PhaseMarshalIn, req.Path)
		}
		return nil, errors.New(errors.PhaseMarshalIn, errors.KindNoInterface).
			Path(req.Path...).
			Type(iid.String()).
			Code(errors.CodeOf(err)).
			Cause(err).
			Build()
	}
	return obj, nil
}

func (m *Marshaller) weakNative(env managed.Env, req Request, val managed.Object) (xpcom.Object, error) {
	base, err := m.native(env, req, val, xpt.ISupportsIID)
	if err != nil {
		return nil, err
	}
	sw, res := base.QueryInterface(xpt.ISupportsWeakReferenceIID)
	base.Release()
	if res.Failed() {
		return nil, nil
	}
	defer sw.Release()

	supports, ok := sw.(xpcom.SupportsWeakReference)
	if !ok {
		return nil, nil
	}
	weak, res := supports.GetWeakReference()
	if res.Failed() {
		return nil, nil
	}
	return weak, nil
}

// interfaceClass resolves the managed class of the interface iid.
func (m *Marshaller) interfaceClass(env managed.Env, path []string, iid nsid.ID) (*managed.Class, error) {
	info, ok := m.oracle.InterfaceByIID(iid)
	if !ok {
		return nil, errors.New(errors.PhaseMarshalOut, errors.KindNotFound).
			Path(path...).
			Type(iid.String()).
			Detail("no interface metadata").
			Build()
	}
	class, ok := env.FindClass(m.loader, m.prefix+info.Name)
	if !ok {
		return nil, errors.PendingException(errors.PhaseMarshalOut, path)
	}
	return class, nil
}
