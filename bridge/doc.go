// Package bridge owns the process-side state of one managed/native bridge
// and exposes the entry points the managed runtime calls into.
//
// A Bridge bundles the native heap, the main thread, the identity registry,
// the marshaller and the dispatcher. It is created with New and torn down
// with Shutdown; proxies finalized after Shutdown are ignored.
//
// Entry points ending in managed results (CallMethod) report failures the
// way the managed runtime expects: as a pending exception on the calling
// Env, never replacing one that is already pending. The Go-facing variants
// (Call, WrapNative, UnwrapManaged) return errors instead.
package bridge
