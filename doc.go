// Package xpbridge marshals calls between a managed object runtime and a
// native, reference-counted component model described by typed interface
// metadata.
//
// The library converts method calls, parameters and return values across the
// boundary with correct lifetime management, type coercion and identity
// preservation.
//
// # Architecture Overview
//
//	xpbridge/        Root package with the native heap interfaces
//	├── bridge/      Context object and managed-side entry points
//	├── dispatch/    Call dispatcher (resolve, two-pass marshal, invoke, cleanup)
//	├── marshal/     Value marshaller for every parameter kind
//	├── registry/    Identity registry: native→managed proxies, managed→native stubs
//	├── resolver/    Method name resolution (attributes, escapes, case variants)
//	├── xpt/         Type tags, coercion table, interface metadata and typelibs
//	├── xpcom/       Native object model: objects, results, variants, main thread
//	├── managed/     Managed runtime primitives and an in-process implementation
//	├── heap/        Linear-memory native heap backed by wazero
//	├── nsid/        16-byte interface identifiers
//	├── resource/    Handle tables for wrapped instances and pinned objects
//	└── errors/      Structured error types with native result codes
//
// # Quick Start
//
//	vm := managed.NewVM()
//	b, err := bridge.New(ctx, bridge.Options{Oracle: lib})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Shutdown(ctx)
//	vm.SetProxyFinalizer(b.FinalizeProxy)
//
//	env := vm.Attach()
//	proxy, err := b.WrapNative(env, nativeObject, iid)
//	result := b.CallMethod(env, proxy, "add", []managed.Object{int32(1), int32(2)})
//
// # Thread Safety
//
// Bridge is safe for concurrent use. A managed.Env is bound to one goroutine
// at a time, like a thread attachment in the managed runtime.
package xpbridge
