package dispatch

import (
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/marshal"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// request builds the marshal request for slot i, reading array lengths,
// string capacities and interface identifiers from sibling slots.
func (c *call) request(i int, phase errors.Phase) (marshal.Request, error) {
	p := &c.method.Params[i]
	req := marshal.Request{Param: p, Path: c.path(p), DeferIID: true}

	t := p.Type
	switch t.Tag {
	case xpt.Array, xpt.PStringSizeIs, xpt.PWStringSizeIs:
		size, err := c.sizeFrom(t.SizeIs, req.Path, phase)
		if err != nil {
			return req, err
		}
		req.Size = size
	}

	it := t
	if t.Tag == xpt.Array && t.Elem != nil {
		it = *t.Elem
	}
	switch it.Tag {
	case xpt.InterfaceTag:
		req.IID = it.IID
		if req.IID.IsNull() {
			req.IID = xpt.ISupportsIID
		}
	case xpt.InterfaceIs:
		arg := t.IIDIs
		if arg == xpt.NoArg {
			arg = it.IIDIs
		}
		id, err := c.iidFrom(arg, req.Path, phase)
		if err != nil {
			return req, err
		}
		req.IID = id
	}
	return req, nil
}

func (c *call) sibling(arg int, path []string, phase errors.Phase) (*xpt.Param, error) {
	if arg < 0 || arg >= len(c.method.Params) {
		return nil, errors.New(phase, errors.KindUnexpectedType).
			Path(path...).
			Code(errors.CodeUnexpected).
			Value(arg).
			Detail("dependent parameter refers to missing sibling %d", arg).
			Build()
	}
	return &c.method.Params[arg], nil
}

// sizeFrom reads a length from the scalar slot arg.
func (c *call) sizeFrom(arg int, path []string, phase errors.Phase) (uint32, error) {
	sp, err := c.sibling(arg, path, phase)
	if err != nil {
		return 0, err
	}
	if !sp.Type.Tag.IsScalar() {
		return 0, errors.New(phase, errors.KindUnexpectedType).
			Path(path...).
			Code(errors.CodeUnexpected).
			Type(sp.Type.Tag.String()).
			Detail("size_is parameter %s is not arithmetic", sp.Name).
			Build()
	}
	return uint32(c.params[arg].Bits()), nil
}

// iidFrom reads an interface identifier from the IID slot arg.
func (c *call) iidFrom(arg int, path []string, phase errors.Phase) (nsid.ID, error) {
	sp, err := c.sibling(arg, path, phase)
	if err != nil {
		return nsid.Null, err
	}
	if sp.Type.Tag != xpt.IID {
		return nsid.Null, errors.New(phase, errors.KindUnexpectedType).
			Path(path...).
			Code(errors.CodeUnexpected).
			Type(sp.Type.Tag.String()).
			Detail("iid_is parameter %s is not an nsIID", sp.Name).
			Build()
	}
	ptr := c.params[arg].Ptr()
	if ptr == 0 {
		return nsid.Null, errors.New(phase, errors.KindUnexpectedType).
			Path(path...).
			Code(errors.CodeUnexpected).
			Detail("iid_is parameter %s is null", sp.Name).
			Build()
	}
	id, err := heap.ReadID(c.d.m.Heap(), ptr)
	if err != nil {
		return nsid.Null, errors.New(phase, errors.KindUnexpectedType).
			Path(path...).
			Code(errors.CodeUnexpected).
			Cause(err).
			Detail("read iid_is parameter %s", sp.Name).
			Build()
	}
	return id, nil
}
