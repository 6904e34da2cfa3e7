package dispatch

import (
	"go.uber.org/zap"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/marshal"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// call is the state of one invocation.
type call struct {
	d      *Dispatcher
	env    managed.Env
	target Target
	name   string
	args   []managed.Object
	log    *zap.Logger

	method *xpt.Method
	index  int

	params []xpcom.Variant
	reqs   []marshal.Request
	// live marks slots marshalled in and not yet marshalled out.
	live []bool
	// ids collects identifier buffers freed after the out pass.
	ids     *heap.DeferredIDs
	outcome xpcom.Result
	state   State
}

func (c *call) enter(s State) {
	c.state = s
	c.log.Debug("call state", zap.Stringer("state", s))
	if c.d.trace != nil {
		c.d.trace(c.target.Info.Name, c.name, s)
	}
}

func (c *call) run() (managed.Object, error) {
	n := len(c.method.Params)
	c.params = make([]xpcom.Variant, n)
	c.reqs = make([]marshal.Request, n)
	c.live = make([]bool, n)
	c.ids = heap.AcquireDeferredIDs()
	defer c.ids.Put()

	c.enter(StateMarshalIndependentIn)
	if err := c.marshalIn(false); err != nil {
		return nil, c.abort(err)
	}
	c.enter(StateMarshalDependentIn)
	if err := c.marshalIn(true); err != nil {
		return nil, c.abort(err)
	}

	c.enter(StateInvoke)
	if err := c.invoke(); err != nil {
		return nil, c.abort(err)
	}

	c.enter(StateMarshalOut)
	result, err := c.marshalOut()

	c.enter(StateCleanup)
	c.cleanup()

	if c.outcome.Failed() {
		c.log.Debug("invocation failed", zap.Stringer("result", c.outcome))
		c.enter(StateFailed)
		return nil, errors.InvocationFailed(c.method.Name, c.outcome)
	}
	if err != nil {
		c.enter(StateFailed)
		return nil, err
	}
	c.enter(StateDone)
	return result, nil
}

// abort releases every slot marshalled so far. The native method is not
// invoked.
func (c *call) abort(err error) error {
	c.log.Debug("call aborted", zap.Stringer("state", c.state), zap.Error(err))
	c.enter(StateFailed)
	c.enter(StateCleanup)
	for i := range c.params {
		if !c.live[i] {
			continue
		}
		c.deferID(i)
		c.d.m.MarshalOut(c.env, c.reqs[i], &c.params[i], xpcom.ErrAbort, nil)
		c.live[i] = false
	}
	c.cleanup()
	return err
}

func (c *call) cleanup() {
	c.ids.FreeAll(c.d.m.Heap())
}

// marshalIn runs one pass over the in-direction slots: the independent
// ones, or the dependent ones whose siblings are now populated.
func (c *call) marshalIn(dependent bool) error {
	for i := range c.method.Params {
		p := &c.method.Params[i]
		if p.Type.IsDependent() != dependent {
			continue
		}

		req := marshal.Request{Param: p, Path: c.path(p), DeferIID: true}
		if p.Dir.IsIn() {
			var err error
			if req, err = c.request(i, errors.PhaseMarshalIn); err != nil {
				return err
			}
		}
		v, err := c.d.m.MarshalIn(c.env, req, c.arg(i))
		if err != nil {
			return err
		}
		c.params[i], c.reqs[i], c.live[i] = v, req, true
	}
	return nil
}

func (c *call) invoke() error {
	obj, res := xpcom.Query(c.target.Object, c.target.Info.IID)
	if res.Failed() {
		return errors.New(errors.PhaseInvoke, errors.KindNoInterface).
			Path(c.target.Info.Name, c.method.Name).
			Code(res).
			Detail("failed to get native object for %s", c.target.Info.Name).
			Build()
	}
	defer obj.Release()

	inv, ok := obj.(xpcom.Invoker)
	if !ok {
		return errors.New(errors.PhaseInvoke, errors.KindNotImplemented).
			Path(c.target.Info.Name, c.method.Name).
			Code(errors.CodeNotImplemented).
			Detail("%T cannot be invoked by index", obj).
			Build()
	}
	c.outcome = inv.CallMethod(c.index, &xpcom.Call{
		Heap:   c.d.m.Heap(),
		Method: c.method,
		Params: c.params,
	})
	return nil
}

// marshalOut converts every slot back in declaration order. Requests are
// computed for all slots first, since marshalling a slot out clears it and
// a later slot may depend on it.
func (c *call) marshalOut() (managed.Object, error) {
	var first error
	for i := range c.method.Params {
		req, err := c.request(i, errors.PhaseMarshalOut)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		c.reqs[i] = req
	}

	outcome := c.outcome
	if first != nil {
		outcome = xpcom.ErrAbort
	}

	var result managed.Object
	for i := range c.method.Params {
		p := &c.method.Params[i]
		c.deferID(i)
		out, err := c.d.m.MarshalOut(c.env, c.reqs[i], &c.params[i], outcome, c.arg(i))
		c.live[i] = false
		if err != nil {
			if first == nil {
				first = err
			}
			outcome = xpcom.ErrAbort
			continue
		}
		if p.Dir.IsRetval() {
			result = out
		}
	}

	if first == nil && c.env.ExceptionCheck() {
		first = errors.PendingException(errors.PhaseMarshalOut, []string{c.target.Info.Name, c.method.Name})
	}
	return result, first
}

// deferID moves the identifier buffer of slot i onto the deferred free
// list.
func (c *call) deferID(i int) {
	if c.method.Params[i].Type.Tag != xpt.IID {
		return
	}
	c.ids.Defer(c.params[i].Ptr())
}

func (c *call) arg(i int) managed.Object {
	if c.method.Params[i].Dir.IsRetval() || i >= len(c.args) {
		return nil
	}
	return c.args[i]
}

func (c *call) path(p *xpt.Param) []string {
	return []string{c.target.Info.Name, c.method.Name, p.Name}
}
