package xpcom

import (
	"math"

	"github.com/wippyai/xpcom-bridge/xpt"
)

// Storage says where a variant's value lives.
type Storage uint8

const (
	// StorageInline holds the value directly (in parameters).
	StorageInline Storage = iota
	// StorageIndirect holds the value behind an out pointer the callee
	// writes through.
	StorageIndirect
	// StorageNull is an out pointer that is itself null.
	StorageNull
)

func (s Storage) String() string {
	switch s {
	case StorageInline:
		return "inline"
	case StorageIndirect:
		return "indirect"
	case StorageNull:
		return "null"
	}
	return "unknown"
}

// Value is the payload of a variant. It is one of Scalar, Pointer, Ref,
// Refs or *String; nil means no value.
type Value interface {
	isValue()
}

// Scalar carries arithmetic, character and opaque pointer values as bits.
type Scalar uint64

// Pointer is a native heap address. Zero is the null pointer.
type Pointer uint32

// Ref is an interface reference. A nil Obj is the null reference.
type Ref struct {
	Obj Object
}

// Refs is an array of interface references.
type Refs []Object

// String is a string object passed by reference; the callee may assign it
// when the parameter is a dipper.
type String struct {
	Data string
	Void bool
}

func (Scalar) isValue()  {}
func (Pointer) isValue() {}
func (Ref) isValue()     {}
func (Refs) isValue()    {}
func (*String) isValue() {}

// Variant is the slot for one formal parameter of one call.
type Variant struct {
	Val     Value
	Type    xpt.Tag
	Storage Storage
	// Cleanup marks values owning heap memory or references that must be
	// released after the call.
	Cleanup bool
}

// Reset zeroes the variant for reuse.
func (v *Variant) Reset() {
	*v = Variant{}
}

// Set stores val through the variant. It reports false when the slot is a
// null out pointer.
func (v *Variant) Set(val Value) bool {
	if v.Storage == StorageNull {
		return false
	}
	v.Val = val
	return true
}

// IsNullOut reports whether the slot is an out pointer the caller passed
// as null. Callees test this before writing results.
func (v *Variant) IsNullOut() bool {
	return v.Storage == StorageNull
}

// IsNull reports whether the slot's value is absent or a null reference.
// An out slot the callee has not written yet is null by this measure;
// use IsNullOut to ask about the out pointer itself.
func (v *Variant) IsNull() bool {
	switch x := v.Val.(type) {
	case nil:
		return true
	case Pointer:
		return x == 0
	case Ref:
		return x.Obj == nil
	case Refs:
		return x == nil
	case *String:
		return x == nil
	}
	return false
}

// Bits returns the scalar bits, or zero.
func (v *Variant) Bits() uint64 {
	if s, ok := v.Val.(Scalar); ok {
		return uint64(s)
	}
	return 0
}

// Ptr returns the heap address, or zero.
func (v *Variant) Ptr() uint32 {
	if p, ok := v.Val.(Pointer); ok {
		return uint32(p)
	}
	return 0
}

// Obj returns the interface reference, or nil.
func (v *Variant) Obj() Object {
	if r, ok := v.Val.(Ref); ok {
		return r.Obj
	}
	return nil
}

// Objs returns the interface array, or nil.
func (v *Variant) Objs() []Object {
	if r, ok := v.Val.(Refs); ok {
		return r
	}
	return nil
}

// Str returns the string object, or nil.
func (v *Variant) Str() *String {
	if s, ok := v.Val.(*String); ok {
		return s
	}
	return nil
}

// Typed accessors for native callees.

func (v *Variant) Int8() int8       { return int8(v.Bits()) }
func (v *Variant) Int16() int16     { return int16(v.Bits()) }
func (v *Variant) Int32() int32     { return int32(v.Bits()) }
func (v *Variant) Int64() int64     { return int64(v.Bits()) }
func (v *Variant) Uint8() uint8     { return uint8(v.Bits()) }
func (v *Variant) Uint16() uint16   { return uint16(v.Bits()) }
func (v *Variant) Uint32() uint32   { return uint32(v.Bits()) }
func (v *Variant) Uint64() uint64   { return v.Bits() }
func (v *Variant) Float32() float32 { return math.Float32frombits(uint32(v.Bits())) }
func (v *Variant) Float64() float64 { return math.Float64frombits(v.Bits()) }
func (v *Variant) Bool() bool       { return v.Bits() != 0 }

func (v *Variant) SetInt32(x int32) bool     { return v.Set(Scalar(uint32(x))) }
func (v *Variant) SetInt64(x int64) bool     { return v.Set(Scalar(x)) }
func (v *Variant) SetUint32(x uint32) bool   { return v.Set(Scalar(x)) }
func (v *Variant) SetUint64(x uint64) bool   { return v.Set(Scalar(x)) }
func (v *Variant) SetFloat64(x float64) bool { return v.Set(Scalar(math.Float64bits(x))) }
func (v *Variant) SetBool(x bool) bool {
	if x {
		return v.Set(Scalar(1))
	}
	return v.Set(Scalar(0))
}

// SetObject stores an interface reference. The callee transfers one
// reference to the caller.
func (v *Variant) SetObject(obj Object) bool { return v.Set(Ref{Obj: obj}) }

// SetPointer stores a heap address. For out strings and arrays the callee
// allocates and the caller frees.
func (v *Variant) SetPointer(p uint32) bool { return v.Set(Pointer(p)) }
