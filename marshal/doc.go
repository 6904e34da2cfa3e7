// Package marshal converts single parameters between managed values and
// native variants.
//
// MarshalIn builds the variant for one formal parameter from the managed
// argument. MarshalOut converts what the callee left in the variant back to
// a managed value and releases everything the variant owns, whether or not
// the call succeeded.
//
// Argument shapes follow the managed calling convention:
//
//	in       the value itself
//	inout    a one-element managed array holding the value
//	out      a one-element managed array receiving the value
//	retval   nothing; the converted value is returned
//
// A nil container for inout or out yields a null out pointer
// (xpcom.StorageNull) that the callee must not write through.
package marshal
