package managed

import "reflect"

// Kind is the managed representation of a value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBoolean
	KindChar
	KindString
	KindObject
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindByte:    "byte",
	KindShort:   "short",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBoolean: "boolean",
	KindChar:    "char",
	KindString:  "java.lang.String",
	KindObject:  "java.lang.Object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Primitive reports whether values of k are unboxed scalars.
func (k Kind) Primitive() bool {
	return k >= KindByte && k <= KindChar
}

var kindGoTypes = [...]reflect.Type{
	KindByte:    reflect.TypeFor[int8](),
	KindShort:   reflect.TypeFor[int16](),
	KindInt:     reflect.TypeFor[int32](),
	KindLong:    reflect.TypeFor[int64](),
	KindFloat:   reflect.TypeFor[float32](),
	KindDouble:  reflect.TypeFor[float64](),
	KindBoolean: reflect.TypeFor[bool](),
	KindChar:    reflect.TypeFor[uint16](),
	KindString:  reflect.TypeFor[string](),
}

// GoType returns the Go type used for boxed values of k, or nil for
// KindVoid and KindObject.
func (k Kind) GoType() reflect.Type {
	if int(k) < len(kindGoTypes) {
		return kindGoTypes[k]
	}
	return nil
}

// KindOf classifies a managed value. Unknown values are KindObject.
func KindOf(obj Object) Kind {
	switch obj.(type) {
	case int8:
		return KindByte
	case int16:
		return KindShort
	case int32:
		return KindInt
	case int64:
		return KindLong
	case float32:
		return KindFloat
	case float64:
		return KindDouble
	case bool:
		return KindBoolean
	case uint16:
		return KindChar
	case string:
		return KindString
	default:
		return KindObject
	}
}
