package xpt

import (
	"strings"

	"github.com/wippyai/xpcom-bridge/nsid"
)

// Direction flags for a parameter.
type Direction uint8

const (
	DirIn Direction = 1 << iota
	DirOut
	DirRetval
	// DirDipper marks an "in" generic string the callee fills as output.
	DirDipper
)

const DirInOut = DirIn | DirOut

func (d Direction) IsIn() bool     { return d&DirIn != 0 }
func (d Direction) IsOut() bool    { return d&DirOut != 0 }
func (d Direction) IsRetval() bool { return d&DirRetval != 0 }
func (d Direction) IsDipper() bool { return d&DirDipper != 0 }

func (d Direction) String() string {
	var parts []string
	if d.IsIn() {
		parts = append(parts, "in")
	}
	if d.IsOut() {
		parts = append(parts, "out")
	}
	if d.IsRetval() {
		parts = append(parts, "retval")
	}
	if d.IsDipper() {
		parts = append(parts, "dipper")
	}
	return strings.Join(parts, "|")
}

// NoArg marks an unused sibling argument index.
const NoArg = -1

// Type is a parameter type. SizeIs names the sibling holding an array length
// or sized-string capacity; IIDIs names the sibling holding the IID of an
// interface_is value. For Interface, IID and Name identify the interface.
type Type struct {
	Elem   *Type
	Name   string
	SizeIs int
	IIDIs  int
	IID    nsid.ID
	Tag    Tag
}

// Scalar returns a Type for a tag with no sibling dependencies.
func Scalar(tag Tag) Type {
	return Type{Tag: tag, SizeIs: NoArg, IIDIs: NoArg}
}

// IsDependent reports whether the type is shaped by a sibling's value.
func (t Type) IsDependent() bool {
	return t.Tag.IsDependent()
}

func (t Type) String() string {
	switch t.Tag {
	case InterfaceTag:
		if t.Name != "" {
			return t.Name
		}
	case Array:
		if t.Elem != nil {
			return t.Elem.String() + "[]"
		}
	}
	return t.Tag.String()
}

// Param describes one formal parameter.
type Param struct {
	Name    string
	Type    Type
	Dir     Direction
	NonNull bool
}

// Method describes one method or attribute accessor.
type Method struct {
	Name   string
	Params []Param
	Getter bool
	Setter bool
	// Hidden methods are not callable through the bridge.
	Hidden bool
}

// Retval returns the index of the retval parameter, or NoArg.
func (m *Method) Retval() int {
	for i := range m.Params {
		if m.Params[i].Dir.IsRetval() {
			return i
		}
	}
	return NoArg
}

// Interface describes a native interface. Methods are the interface's own
// methods; Method and MethodCount see the inherited ones too.
type Interface struct {
	Parent  *Interface
	Name    string
	Methods []*Method
	IID     nsid.ID
	// Scriptable interfaces are exposed to the managed side.
	Scriptable bool
}

func (i *Interface) base() int {
	if i.Parent == nil {
		return 0
	}
	return i.Parent.MethodCount()
}

// MethodCount returns the number of methods including inherited ones.
func (i *Interface) MethodCount() int {
	return i.base() + len(i.Methods)
}

// Method returns the method at index, counting inherited methods first.
func (i *Interface) Method(index int) (*Method, bool) {
	if index < 0 {
		return nil, false
	}
	base := i.base()
	if index < base {
		return i.Parent.Method(index)
	}
	index -= base
	if index >= len(i.Methods) {
		return nil, false
	}
	return i.Methods[index], true
}

// MethodByName returns the index of the first method named name,
// searching inherited methods first.
func (i *Interface) MethodByName(name string) (int, *Method, bool) {
	if i.Parent != nil {
		if idx, m, ok := i.Parent.MethodByName(name); ok {
			return idx, m, true
		}
	}
	base := i.base()
	for n, m := range i.Methods {
		if m.Name == name {
			return base + n, m, true
		}
	}
	return NoArg, nil, false
}

// Inherits reports whether i is, or derives from, the interface iid.
func (i *Interface) Inherits(iid nsid.ID) bool {
	for it := i; it != nil; it = it.Parent {
		if it.IID == iid {
			return true
		}
	}
	return false
}

// Oracle answers interface metadata queries.
type Oracle interface {
	InterfaceByIID(iid nsid.ID) (*Interface, bool)
	InterfaceByName(name string) (*Interface, bool)
}
