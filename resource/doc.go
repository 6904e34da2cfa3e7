// Package resource provides the handle arena behind opaque proxy handles.
//
// Every managed proxy carries a 64-bit handle naming the native wrapper it
// forwards to. The handle is never a raw pointer: it is an index into a
// slot arena plus a generation counter, so a late finalizer holding a stale
// handle cannot reach a wrapper that has since reused the same slot.
//
//	table := resource.NewTable()
//	h := table.Insert(TypeWrapper, w)
//	v, ok := table.GetTyped(h, TypeWrapper)
//	v, ok = table.Remove(h) // caller owns v from here on
//
// Remove never runs destructors. Callers that need to release values under
// a lock remove them first and destroy them after unlocking. Drain does the
// same for every live entry at teardown.
//
// # Observers
//
// Observers receive EventCreated and EventDropped notifications:
//
//	table.Subscribe(observer)
package resource
