package bridge

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/xpcom-bridge/dispatch"
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/marshal"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/registry"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// Bridge is the context object every entry point runs against.
type Bridge struct {
	log      *zap.Logger
	oracle   xpt.Oracle
	heap     *heap.Linear
	main     *xpcom.MainThread
	reg      *registry.Registry
	m        *marshal.Marshaller
	d        *dispatch.Dispatcher
	shutdown sync.Once

	callMu   sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// New creates a bridge and starts its main thread.
func New(ctx context.Context, opts Options) (*Bridge, error) {
	if opts.Oracle == nil {
		return nil, errors.InvalidInput(errors.PhaseInit, "bridge requires an interface oracle")
	}
	opts = opts.withDefaults()
	log := opts.Logger.Named("bridge")

	h, err := heap.New(ctx, heap.Config{InitialPages: opts.InitialPages, MaxPages: opts.MaxPages})
	if err != nil {
		return nil, err
	}

	main := xpcom.NewMainThread(opts.QueueDepth, func(r any) {
		log.Error("main thread task panicked", zap.Any("panic", r))
	})
	reg := registry.New(registry.Config{
		Oracle:      opts.Oracle,
		MainThread:  main,
		Loader:      opts.Loader,
		Logger:      opts.Logger,
		ClassPrefix: opts.ClassPrefix,
	})
	m := marshal.New(marshal.Config{
		Heap:        h,
		Objects:     reg,
		Oracle:      opts.Oracle,
		Loader:      opts.Loader,
		ClassPrefix: opts.ClassPrefix,
	})
	d := dispatch.New(dispatch.Config{
		Marshaller: m,
		Logger:     opts.Logger.Named("dispatch"),
		Trace:      opts.Trace,
	})

	log.Debug("bridge initialized",
		zap.Uint32("heap_bytes", h.Size()),
		zap.Int("queue_depth", opts.QueueDepth))

	return &Bridge{
		log:    log,
		oracle: opts.Oracle,
		heap:   h,
		main:   main,
		reg:    reg,
		m:      m,
		d:      d,
	}, nil
}

// Shutdown tears the registry down, drains the main thread and releases
// the heap. Finalizers and calls arriving afterwards are rejected or
// ignored. It is safe to call more than once.
func (b *Bridge) Shutdown(ctx context.Context) error {
	var err error
	b.shutdown.Do(func() {
		b.callMu.Lock()
		b.closing = true
		b.callMu.Unlock()

		released := b.reg.Teardown()
		if werr := b.waitCalls(ctx); werr != nil {
			err = werr
		}
		if ferr := b.main.Flush(ctx); ferr != nil && err == nil {
			err = ferr
		}
		if cerr := b.main.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
		if herr := b.heap.Close(ctx); herr != nil && err == nil {
			err = herr
		}
		b.log.Debug("bridge shut down", zap.Int("released", released))
	})
	return err
}

// waitCalls waits for calls that started before Shutdown.
func (b *Bridge) waitCalls(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enterCall registers an in-flight call. It fails once Shutdown has begun.
func (b *Bridge) enterCall() error {
	b.callMu.Lock()
	defer b.callMu.Unlock()
	if b.closing {
		return errors.NotInitialized(errors.PhaseRegistry, "bridge")
	}
	b.inflight.Add(1)
	return nil
}

// Registry returns the identity registry.
func (b *Bridge) Registry() *registry.Registry { return b.reg }

// Heap returns the native heap.
func (b *Bridge) Heap() *heap.Linear { return b.heap }

// MainThread returns the designated main thread.
func (b *Bridge) MainThread() *xpcom.MainThread { return b.main }

// Oracle returns the interface metadata oracle.
func (b *Bridge) Oracle() xpt.Oracle { return b.oracle }

// proxyHandle returns the registry handle behind a managed proxy.
func (b *Bridge) proxyHandle(env managed.Env, proxy managed.Object) (uint64, error) {
	handle, ok := env.ProxyHandle(proxy)
	if !ok {
		return 0, errors.New(errors.PhaseRegistry, errors.KindUnexpectedType).
			Code(errors.CodeUnexpected).
			Detail("%T is not a native proxy", proxy).
			Build()
	}
	return handle, nil
}

// wrapper resolves the native side of a managed proxy for identity
// checks. Its instance must be borrowed through the registry.
func (b *Bridge) wrapper(env managed.Env, proxy managed.Object) (*registry.Wrapper, error) {
	handle, err := b.proxyHandle(env, proxy)
	if err != nil {
		return nil, err
	}
	if !b.reg.Initialized() {
		return nil, errors.NotInitialized(errors.PhaseRegistry, "bridge")
	}
	w, ok := b.reg.Wrapper(handle)
	if !ok {
		return nil, errors.New(errors.PhaseRegistry, errors.KindNotFound).
			Code(errors.CodeFailure).
			Value(handle).
			Detail("Failed to get matching XPCOM object").
			Build()
	}
	return w, nil
}

// Call invokes the method name on the native object behind proxy. The
// instance stays referenced for the whole call, so a concurrent Shutdown
// or finalization cannot release it mid-dispatch.
func (b *Bridge) Call(env managed.Env, proxy managed.Object, name string, args []managed.Object) (managed.Object, error) {
	handle, err := b.proxyHandle(env, proxy)
	if err != nil {
		return nil, err
	}
	if err := b.enterCall(); err != nil {
		return nil, err
	}
	defer b.inflight.Done()

	inst, err := b.reg.Acquire(handle)
	if err != nil {
		return nil, err
	}
	defer inst.Release()
	return b.d.Call(env, dispatch.Target{Object: inst.Object, Info: inst.Info}, name, args)
}

// CallMethod is the invoke-method-by-name entry point. Failures are raised
// on env as managed exceptions and nil is returned.
func (b *Bridge) CallMethod(env managed.Env, proxy managed.Object, name string, args []managed.Object) managed.Object {
	result, err := b.Call(env, proxy, name, args)
	if err != nil {
		b.log.Debug("call failed",
			zap.String("method", name),
			zap.Stringer("result", errors.CodeOf(err)),
			zap.Error(err))
		Throw(env, err)
		return nil
	}
	return result
}

// FinalizeProxy is called by the managed collector for a dead proxy.
func (b *Bridge) FinalizeProxy(handle uint64) {
	b.reg.Finalize(handle)
}

// IsSameObject reports whether two proxies wrap the same native object.
func (b *Bridge) IsSameObject(env managed.Env, a, c managed.Object) bool {
	wa, err := b.wrapper(env, a)
	if err != nil {
		return false
	}
	wc, err := b.wrapper(env, c)
	if err != nil {
		return false
	}
	return wa.Root == wc.Root
}

// Pin hands a native object to the managed side as an opaque handle. The
// handle holds one reference until ReleaseOnMainThread.
func (b *Bridge) Pin(obj xpcom.Object) uint64 {
	return b.reg.Pin(obj)
}

// ReleaseOnMainThread releases a pinned object on the main thread. It does
// not wait for the release to happen.
func (b *Bridge) ReleaseOnMainThread(handle uint64) {
	if !b.reg.ReleasePinned(handle) {
		b.log.Warn("release of unknown handle", zap.String("handle", fmt.Sprintf("%#x", handle)))
	}
}

// WrapNative returns the managed proxy for obj as interface iid.
func (b *Bridge) WrapNative(env managed.Env, obj xpcom.Object, iid nsid.ID) (managed.Object, error) {
	return b.reg.GetOrCreateProxy(env, obj, iid)
}

// UnwrapManaged returns an AddRef'd native object for a managed object:
// the wrapped instance of a proxy, or a stub for anything else.
func (b *Bridge) UnwrapManaged(env managed.Env, obj managed.Object, iid nsid.ID) (xpcom.Object, error) {
	return b.reg.GetNative(env, obj, iid)
}
