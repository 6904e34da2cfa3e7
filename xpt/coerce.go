package xpt

import (
	"math"

	"github.com/wippyai/xpcom-bridge/managed"
)

// PointerSize is the size of a native pointer in the heap.
const PointerSize = 4

// Rule is the coercion rule for one tag. For scalar tags Lower converts a
// boxed managed value into native bits and Lift converts native bits back;
// both are nil for reference tags, whose conversion involves allocation
// and is done by the marshaller.
type Rule struct {
	Lower   func(v any) (uint64, bool)
	Lift    func(bits uint64) any
	Managed managed.Kind
	Size    uint32
}

var rules = [tagCount]Rule{
	I8: {
		Managed: managed.KindByte, Size: 1,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int8); return uint64(uint8(x)), ok },
		Lift:  func(b uint64) any { return int8(b) },
	},
	I16: {
		Managed: managed.KindShort, Size: 2,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int16); return uint64(uint16(x)), ok },
		Lift:  func(b uint64) any { return int16(b) },
	},
	I32: {
		Managed: managed.KindInt, Size: 4,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int32); return uint64(uint32(x)), ok },
		Lift:  func(b uint64) any { return int32(b) },
	},
	I64: {
		Managed: managed.KindLong, Size: 8,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int64); return uint64(x), ok },
		Lift:  func(b uint64) any { return int64(b) },
	},
	// Unsigned values widen to the next larger signed managed type.
	U8: {
		Managed: managed.KindShort, Size: 1,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int16); return uint64(uint8(x)), ok },
		Lift:  func(b uint64) any { return int16(uint8(b)) },
	},
	U16: {
		Managed: managed.KindInt, Size: 2,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int32); return uint64(uint16(x)), ok },
		Lift:  func(b uint64) any { return int32(uint16(b)) },
	},
	U32: {
		Managed: managed.KindLong, Size: 4,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int64); return uint64(uint32(x)), ok },
		Lift:  func(b uint64) any { return int64(uint32(b)) },
	},
	// No signed managed type holds every uint64; values above 2^53 lose
	// precision through double.
	U64: {
		Managed: managed.KindDouble, Size: 8,
		Lower: lowerU64,
		Lift:  func(b uint64) any { return float64(b) },
	},
	Float: {
		Managed: managed.KindFloat, Size: 4,
		Lower: func(v any) (uint64, bool) { x, ok := v.(float32); return uint64(math.Float32bits(x)), ok },
		Lift:  func(b uint64) any { return math.Float32frombits(uint32(b)) },
	},
	Double: {
		Managed: managed.KindDouble, Size: 8,
		Lower: func(v any) (uint64, bool) { x, ok := v.(float64); return math.Float64bits(x), ok },
		Lift:  func(b uint64) any { return math.Float64frombits(b) },
	},
	Bool: {
		Managed: managed.KindBoolean, Size: 1,
		Lower: lowerBool,
		Lift:  func(b uint64) any { return b != 0 },
	},
	Char: {
		Managed: managed.KindChar, Size: 1,
		Lower: func(v any) (uint64, bool) { x, ok := v.(uint16); return uint64(uint8(x)), ok },
		Lift:  func(b uint64) any { return uint16(uint8(b)) },
	},
	WChar: {
		Managed: managed.KindChar, Size: 2,
		Lower: func(v any) (uint64, bool) { x, ok := v.(uint16); return uint64(x), ok },
		Lift:  func(b uint64) any { return uint16(b) },
	},
	Void: {
		Managed: managed.KindLong, Size: 8,
		Lower: func(v any) (uint64, bool) { x, ok := v.(int64); return uint64(x), ok },
		Lift:  func(b uint64) any { return int64(b) },
	},

	IID:            {Managed: managed.KindString, Size: PointerSize},
	DOMString:      {Managed: managed.KindString, Size: PointerSize},
	CharStr:        {Managed: managed.KindString, Size: PointerSize},
	WCharStr:       {Managed: managed.KindString, Size: PointerSize},
	PStringSizeIs:  {Managed: managed.KindString, Size: PointerSize},
	PWStringSizeIs: {Managed: managed.KindString, Size: PointerSize},
	UTF8String:     {Managed: managed.KindString, Size: PointerSize},
	CString:        {Managed: managed.KindString, Size: PointerSize},
	AString:        {Managed: managed.KindString, Size: PointerSize},
	InterfaceTag:   {Managed: managed.KindObject, Size: PointerSize},
	InterfaceIs:    {Managed: managed.KindObject, Size: PointerSize},
	Array:          {Managed: managed.KindObject, Size: PointerSize},
}

func lowerU64(v any) (uint64, bool) {
	x, ok := v.(float64)
	if !ok {
		return 0, false
	}
	switch {
	case x <= 0 || math.IsNaN(x):
		return 0, true
	case x >= math.MaxUint64:
		return math.MaxUint64, true
	}
	return uint64(x), true
}

func lowerBool(v any) (uint64, bool) {
	x, ok := v.(bool)
	if x {
		return 1, ok
	}
	return 0, ok
}

// RuleFor returns the coercion rule for t.
func RuleFor(t Tag) (Rule, bool) {
	if !t.Valid() {
		return Rule{}, false
	}
	return rules[t], true
}

// ManagedKind returns the managed representation of values of t.
func (t Tag) ManagedKind() managed.Kind {
	if !t.Valid() {
		return managed.KindVoid
	}
	return rules[t].Managed
}

// Size returns the native size of one value of t.
func (t Tag) Size() uint32 {
	if !t.Valid() {
		return 0
	}
	return rules[t].Size
}

// ElementTag returns the tag used for array elements declared as t.
// Octet arrays surface as managed byte arrays rather than short arrays.
func ElementTag(t Tag) Tag {
	if t == U8 {
		return I8
	}
	return t
}
