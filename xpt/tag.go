package xpt

// Tag identifies a parameter's native shape.
type Tag uint8

const (
	I8 Tag = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	Float
	Double
	Bool
	Char
	WChar
	Void // untyped pointer, opaque to the bridge
	IID
	DOMString
	CharStr
	WCharStr
	InterfaceTag
	InterfaceIs
	Array
	PStringSizeIs
	PWStringSizeIs
	UTF8String
	CString
	AString

	tagCount
)

var tagNames = [...]string{
	I8:             "int8",
	I16:            "int16",
	I32:            "int32",
	I64:            "int64",
	U8:             "uint8",
	U16:            "uint16",
	U32:            "uint32",
	U64:            "uint64",
	Float:          "float",
	Double:         "double",
	Bool:           "bool",
	Char:           "char",
	WChar:          "wchar",
	Void:           "void",
	IID:            "nsIID",
	DOMString:      "DOMString",
	CharStr:        "string",
	WCharStr:       "wstring",
	InterfaceTag:   "interface",
	InterfaceIs:    "interface_is",
	Array:          "array",
	PStringSizeIs:  "string_s",
	PWStringSizeIs: "wstring_s",
	UTF8String:     "AUTF8String",
	CString:        "ACString",
	AString:        "AString",
}

func (t Tag) String() string {
	if t < tagCount {
		return tagNames[t]
	}
	return "unknown"
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t < tagCount
}

// Tags returns every known tag in declaration order.
func Tags() []Tag {
	out := make([]Tag, tagCount)
	for i := range out {
		out[i] = Tag(i)
	}
	return out
}

// IsDependent reports whether the concrete shape of a value with this tag
// is only known from a sibling parameter's runtime value.
func (t Tag) IsDependent() bool {
	switch t {
	case Array, PStringSizeIs, PWStringSizeIs, InterfaceIs:
		return true
	}
	return false
}

// IsScalar reports whether values of t are arithmetic or character values
// carried inline in a variant.
func (t Tag) IsScalar() bool {
	return t <= WChar || t == Void
}

// IsGenericString reports whether t is a string object (as opposed to a
// character pointer).
func (t Tag) IsGenericString() bool {
	switch t {
	case DOMString, UTF8String, CString, AString:
		return true
	}
	return false
}

// IsInterface reports whether t is an interface reference.
func (t Tag) IsInterface() bool {
	return t == InterfaceTag || t == InterfaceIs
}

// IsWide reports whether t uses 16-bit characters.
func (t Tag) IsWide() bool {
	switch t {
	case WChar, WCharStr, PWStringSizeIs, DOMString, AString:
		return true
	}
	return false
}
