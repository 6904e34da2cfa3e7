package dispatch

import (
	"go.uber.org/zap"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/marshal"
	"github.com/wippyai/xpcom-bridge/resolver"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// TraceFunc observes the state transitions of a call.
type TraceFunc func(iface, method string, s State)

// Config configures a Dispatcher.
type Config struct {
	Marshaller *marshal.Marshaller
	Logger     *zap.Logger
	Trace      TraceFunc
}

// Dispatcher runs calls. It holds no per-call state and is safe for
// concurrent use.
type Dispatcher struct {
	m     *marshal.Marshaller
	log   *zap.Logger
	trace TraceFunc
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{m: cfg.Marshaller, log: log, trace: cfg.Trace}
}

// Target is the native receiver of a call: an object and the interface it
// is called through.
type Target struct {
	Object xpcom.Object
	Info   *xpt.Interface
}

// Call resolves name on the target's interface and invokes it.
//
// args holds one entry per formal parameter, indexed by position; the entry
// of a retval parameter is ignored and may be absent. Inout and out
// parameters take a one-element array which receives the output. The
// returned object is the retval parameter's value, or nil.
func (d *Dispatcher) Call(env managed.Env, t Target, name string, args []managed.Object) (managed.Object, error) {
	if t.Object == nil || t.Info == nil {
		return nil, errors.NullPointer(errors.PhaseResolve, []string{name})
	}
	c := d.newCall(env, t, name, args)
	c.enter(StateResolveMethod)

	match, err := resolver.Resolve(t.Info, name)
	if err != nil {
		c.enter(StateFailed)
		return nil, err
	}
	c.method, c.index = match.Method, match.Index
	c.log = c.log.With(zap.String("method", match.Method.Name), zap.Int("index", match.Index))
	return c.run()
}

// CallIndex invokes the method at index, counting inherited methods.
func (d *Dispatcher) CallIndex(env managed.Env, t Target, index int, args []managed.Object) (managed.Object, error) {
	if t.Object == nil || t.Info == nil {
		return nil, errors.NullPointer(errors.PhaseResolve, nil)
	}
	m, ok := t.Info.Method(index)
	if !ok || m.Hidden {
		return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Path(t.Info.Name).
			Value(index).
			Detail("no callable method at index %d", index).
			Build()
	}
	c := d.newCall(env, t, m.Name, args)
	c.enter(StateResolveMethod)
	c.method, c.index = m, index
	return c.run()
}

func (d *Dispatcher) newCall(env managed.Env, t Target, name string, args []managed.Object) *call {
	return &call{
		d:      d,
		env:    env,
		target: t,
		name:   name,
		args:   args,
		log:    d.log.With(zap.String("interface", t.Info.Name), zap.String("name", name)),
	}
}
