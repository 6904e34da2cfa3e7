package marshal

import (
	xpbridge "github.com/wippyai/xpcom-bridge"
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// DefaultClassPrefix is the package holding managed interface classes.
const DefaultClassPrefix = "org.mozilla.interfaces."

// ObjectMapper converts interface references across the boundary while
// preserving identity.
type ObjectMapper interface {
	// GetNative returns an AddRef'd native object for a managed object.
	GetNative(env managed.Env, obj managed.Object, iid nsid.ID) (xpcom.Object, error)
	// GetOrCreateProxy returns the managed face of a native object. It
	// takes its own references; the caller keeps ownership of obj.
	GetOrCreateProxy(env managed.Env, obj xpcom.Object, iid nsid.ID) (managed.Object, error)
}

// Config configures a Marshaller.
type Config struct {
	Heap        xpbridge.Heap
	Objects     ObjectMapper
	Oracle      xpt.Oracle
	Loader      managed.ClassLoader
	ClassPrefix string
}

// Marshaller converts parameters. It is stateless across calls and safe
// for concurrent use.
type Marshaller struct {
	heap    xpbridge.Heap
	objects ObjectMapper
	oracle  xpt.Oracle
	loader  managed.ClassLoader
	prefix  string
}

// New creates a Marshaller.
func New(cfg Config) *Marshaller {
	if cfg.ClassPrefix == "" {
		cfg.ClassPrefix = DefaultClassPrefix
	}
	return &Marshaller{
		heap:    cfg.Heap,
		objects: cfg.Objects,
		oracle:  cfg.Oracle,
		loader:  cfg.Loader,
		prefix:  cfg.ClassPrefix,
	}
}

// Heap returns the native heap variants point into.
func (m *Marshaller) Heap() xpbridge.Heap { return m.heap }

// Request describes one parameter of one call. Size and IID carry the
// values of dependent parameters, resolved by the caller from sibling
// slots.
type Request struct {
	Param *xpt.Param
	// Path names the parameter in errors: interface, method, parameter.
	Path []string
	// Size is the array length or sized-string capacity.
	Size uint32
	// IID is the interface of an interface value or interface array.
	IID nsid.ID
	// DeferIID leaves IID buffers in place for the caller to free once
	// every parameter has been marshalled out.
	DeferIID bool
}

func (r Request) tag() xpt.Tag { return r.Param.Type.Tag }

// MarshalIn builds the variant for one parameter from its managed
// argument. On error nothing is left allocated.
func (m *Marshaller) MarshalIn(env managed.Env, req Request, src managed.Object) (xpcom.Variant, error) {
	p := req.Param
	v := xpcom.Variant{Type: p.Type.Tag}

	if p.Dir.IsOut() {
		v.Storage = xpcom.StorageIndirect
		if !p.Dir.IsRetval() && src == nil {
			v.Storage = xpcom.StorageNull
		}
	}
	if !p.Dir.IsIn() {
		return v, nil
	}
	if p.Dir.IsDipper() {
		if !p.Type.Tag.IsGenericString() {
			return xpcom.Variant{}, errors.UnexpectedType(errors.PhaseMarshalIn, req.Path, p.Type.Tag.String())
		}
		v.Val = &xpcom.String{}
		v.Cleanup = true
		return v, nil
	}

	val := src
	if p.Dir.IsOut() {
		if src == nil {
			return v, nil
		}
		var ok bool
		if val, ok = env.GetElement(src, 0); !ok {
			return xpcom.Variant{}, errors.PendingException(errors.PhaseMarshalIn, req.Path)
		}
	}

	if val == nil && p.NonNull && !p.Type.Tag.IsScalar() {
		return xpcom.Variant{}, errors.NullPointer(errors.PhaseMarshalIn, req.Path)
	}

	if err := m.lower(env, req, val, &v); err != nil {
		return xpcom.Variant{}, err
	}
	return v, nil
}

func (m *Marshaller) lower(env managed.Env, req Request, val managed.Object, v *xpcom.Variant) error {
	tag := req.tag()
	switch {
	case tag.IsScalar():
		bits, err := lowerScalar(env, req.Path, tag, val)
		if err != nil {
			return err
		}
		v.Val = xpcom.Scalar(bits)

	case tag == xpt.CharStr || tag == xpt.WCharStr:
		ptr, err := m.lowerString(env, req.Path, tag, val)
		if err != nil {
			return err
		}
		v.Val, v.Cleanup = xpcom.Pointer(ptr), ptr != 0

	case tag == xpt.PStringSizeIs || tag == xpt.PWStringSizeIs:
		ptr, err := m.lowerSizedString(env, req.Path, tag, req.Size, val)
		if err != nil {
			return err
		}
		v.Val, v.Cleanup = xpcom.Pointer(ptr), true

	case tag == xpt.IID:
		ptr, err := m.lowerID(env, req.Path, val)
		if err != nil {
			return err
		}
		v.Val, v.Cleanup = xpcom.Pointer(ptr), true

	case tag.IsInterface():
		obj, err := m.toNative(env, req, val)
		if err != nil {
			return err
		}
		v.Val, v.Cleanup = xpcom.Ref{Obj: obj}, obj != nil

	case tag.IsGenericString():
		s, err := lowerGenericString(env, req.Path, val)
		if err != nil {
			return err
		}
		v.Val, v.Cleanup = s, true

	case tag == xpt.Array:
		return m.lowerArray(env, req, val, v)

	default:
		return errors.UnexpectedType(errors.PhaseMarshalIn, req.Path, tag.String())
	}
	return nil
}

// MarshalOut converts the variant of one parameter back to a managed value
// and releases whatever the variant owns. Output is produced only when
// outcome succeeded; cleanup always runs. For out parameters the value is
// also stored at index 0 of dst. The returned object is the converted
// value, used by the caller for retval parameters.
func (m *Marshaller) MarshalOut(env managed.Env, req Request, v *xpcom.Variant, outcome xpcom.Result, dst managed.Object) (managed.Object, error) {
	p := req.Param
	produce := outcome.Succeeded() && v.Storage != xpcom.StorageNull &&
		(p.Dir.IsOut() || p.Dir.IsDipper())

	out, err := m.lift(env, req, v, produce)
	v.Reset()
	if err != nil {
		return nil, err
	}
	if !produce {
		return nil, nil
	}

	if !p.Dir.IsRetval() && dst != nil {
		if !env.SetElement(dst, 0, out) {
			return nil, errors.PendingException(errors.PhaseMarshalOut, req.Path)
		}
	}
	if env.ExceptionCheck() {
		return nil, errors.PendingException(errors.PhaseMarshalOut, req.Path)
	}
	return out, nil
}

// lift converts and releases the variant's value. The first error wins,
// but cleanup still completes.
func (m *Marshaller) lift(env managed.Env, req Request, v *xpcom.Variant, produce bool) (managed.Object, error) {
	tag := req.tag()
	switch {
	case tag.IsScalar():
		if !produce {
			return nil, nil
		}
		return liftScalar(tag, v.Bits()), nil

	case tag == xpt.CharStr || tag == xpt.WCharStr:
		ptr := v.Ptr()
		defer m.freeString(tag, ptr)
		if !produce || ptr == 0 {
			return nil, nil
		}
		return m.liftString(env, req.Path, tag, ptr)

	case tag == xpt.PStringSizeIs || tag == xpt.PWStringSizeIs:
		ptr := v.Ptr()
		defer m.freeString(tag, ptr)
		if !produce || ptr == 0 {
			return nil, nil
		}
		return m.liftSizedString(env, req.Path, tag, req.Size, ptr)

	case tag == xpt.IID:
		ptr := v.Ptr()
		if !req.DeferIID {
			defer m.freeID(ptr)
		}
		if !produce || ptr == 0 {
			return nil, nil
		}
		return m.liftID(env, req.Path, ptr)

	case tag.IsInterface():
		obj := v.Obj()
		if obj != nil {
			defer obj.Release()
		}
		if !produce || obj == nil {
			return nil, nil
		}
		return m.objects.GetOrCreateProxy(env, obj, req.IID)

	case tag.IsGenericString():
		s := v.Str()
		if !produce || s == nil || s.Void {
			return nil, nil
		}
		return env.NewString(s.Data), nil

	case tag == xpt.Array:
		return m.liftArray(env, req, v, produce)
	}
	return nil, errors.UnexpectedType(errors.PhaseMarshalOut, req.Path, tag.String())
}
