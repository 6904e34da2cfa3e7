// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where in a crossing the error occurred) and
// Kind (error category). Every error also maps to a native result Code so it
// can be reported to either side of the bridge.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshalIn, errors.KindValueRange).
//		Path("GetBytes", "buf").
//		Type("byte[]").
//		Detail("length %d exceeds size_is %d", 10, 8).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfMemory(errors.PhaseMarshalIn, 64)
//	err := errors.UnexpectedType(errors.PhaseMarshalIn, path, "Interface")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
