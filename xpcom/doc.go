// Package xpcom models the native, reference-counted component model.
//
// Objects expose QueryInterface, AddRef and Release. Method calls arrive
// through Invoker as a method index plus one Variant per formal parameter;
// string and array payloads live in the native heap carried by the Call.
//
// MainThread is the designated execution context for releases that must
// not happen on arbitrary goroutines. Component is a ready-made native
// object driven by interface metadata and a table of Go functions.
package xpcom
