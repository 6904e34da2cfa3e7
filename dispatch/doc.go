// Package dispatch invokes native methods by name on behalf of managed
// callers.
//
// A call moves through a fixed sequence of states:
//
//	ResolveMethod → MarshalIndependentIn → MarshalDependentIn → Invoke → MarshalOut → Cleanup → Done
//
// Any state may fail. Cleanup runs regardless, releasing every parameter
// already marshalled in, and a native failure result is reported only after
// cleanup has finished.
//
// Parameters whose shape depends on a sibling (arrays, sized strings and
// interface_is values) are marshalled in a second pass, once the siblings
// holding their length or interface identifier are populated. The same
// information is recomputed before marshalling out, since the callee may
// have written it.
package dispatch
