// Package managed describes the managed object runtime the bridge talks to
// and provides an in-process implementation of it.
//
// Env is the set of primitives the bridge consumes: boxing, arrays, strings,
// class lookup, proxy construction, weak references and exceptions. The VM
// type implements Env on ordinary Go values:
//
//	byte, short, int, long   int8, int16, int32, int64
//	float, double            float32, float64
//	boolean, char            bool, uint16
//	java.lang.String         string
//	primitive arrays         []int8, []int16, ... []uint16
//	object arrays            *ObjectArray
//	interface proxies        *Proxy
//
// A nil Object is the managed null. Exceptions raised by a primitive stay
// pending on the Env until cleared, mirroring a thread attachment.
package managed
