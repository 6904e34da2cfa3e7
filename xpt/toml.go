package xpt

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/nsid"
)

// TOML typelib layout:
//
//	[[interface]]
//	name = "nsICalc"
//	iid = "{...}"
//	parent = "nsISupports"
//
//	  [[interface.method]]
//	  name = "add"
//	  param = [
//	    { name = "a", type = "long" },
//	    { name = "b", type = "long" },
//	    { name = "_retval", type = "long", dir = "retval" },
//	  ]
//
//	  [[interface.method]]
//	  name = "label"
//	  attribute = true
//	  type = "AString"
//
// Attributes expand to a getter followed by a setter unless readonly.
type tomlFile struct {
	Interface []tomlInterface `toml:"interface"`
}

type tomlInterface struct {
	Scriptable *bool        `toml:"scriptable"`
	Name       string       `toml:"name"`
	IID        string       `toml:"iid"`
	Parent     string       `toml:"parent"`
	Method     []tomlMethod `toml:"method"`
}

type tomlMethod struct {
	Name      string      `toml:"name"`
	Type      string      `toml:"type"`
	Param     []tomlParam `toml:"param"`
	Attribute bool        `toml:"attribute"`
	Readonly  bool        `toml:"readonly"`
	NotXPCOM  bool        `toml:"notxpcom"`
}

type tomlParam struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Dir     string `toml:"dir"`
	Elem    string `toml:"elem"`
	SizeIs  string `toml:"size_is"`
	IIDIs   string `toml:"iid_is"`
	NonNull bool   `toml:"nonnull"`
}

var idlTypes = map[string]Tag{
	"int8":               I8,
	"short":              I16,
	"long":               I32,
	"long long":          I64,
	"octet":              U8,
	"unsigned short":     U16,
	"unsigned long":      U32,
	"unsigned long long": U64,
	"float":              Float,
	"double":             Double,
	"boolean":            Bool,
	"char":               Char,
	"wchar":              WChar,
	"voidPtr":            Void,
	"nsIID":              IID,
	"nsIDRef":            IID,
	"nsIIDRef":           IID,
	"nsCIDRef":           IID,
	"nsIDPtr":            IID,
	"nsIIDPtr":           IID,
	"DOMString":          DOMString,
	"string":             CharStr,
	"wstring":            WCharStr,
	"AUTF8String":        UTF8String,
	"ACString":           CString,
	"AString":            AString,
	"nsQIResult":         InterfaceIs,
	"array":              Array,
}

// LoadTOMLFile loads a TOML typelib file into l.
func (l *Typelib) LoadTOMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Load("read typelib "+path, err)
	}
	return l.LoadTOML(string(data))
}

// LoadTOML loads TOML typelib text into l. Interfaces may reference each
// other in any order and may refer to interfaces already in l. Nothing is
// registered unless the whole document loads.
func (l *Typelib) LoadTOML(text string) error {
	var doc tomlFile
	md, err := toml.Decode(text, &doc)
	if err != nil {
		return errors.ParseFailed("typelib", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.Load(fmt.Sprintf("unknown typelib key %q", undecoded[0].String()), nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pending := make(map[string]*Interface, len(doc.Interface))
	iids := make(map[nsid.ID]bool, len(doc.Interface))
	for _, ti := range doc.Interface {
		iid, err := nsid.Parse(ti.IID)
		if err != nil {
			return errors.Load(fmt.Sprintf("interface %s: bad iid %q", ti.Name, ti.IID), err)
		}
		if _, dup := pending[ti.Name]; dup {
			return errors.Duplicate(errors.PhaseLoad, "interface", ti.Name)
		}
		if iids[iid] {
			return errors.Duplicate(errors.PhaseLoad, "interface IID", iid.String())
		}
		iids[iid] = true
		scriptable := ti.Scriptable == nil || *ti.Scriptable
		pending[ti.Name] = &Interface{Name: ti.Name, IID: iid, Scriptable: scriptable}
	}

	for _, iface := range pending {
		if _, ok := l.byName[iface.Name]; ok {
			return errors.Duplicate(errors.PhaseLoad, "interface", iface.Name)
		}
		if _, ok := l.byIID[iface.IID]; ok {
			return errors.Duplicate(errors.PhaseLoad, "interface IID", iface.IID.String())
		}
	}

	lookup := func(name string) (*Interface, bool) {
		if iface, ok := pending[name]; ok {
			return iface, true
		}
		iface, ok := l.byName[name]
		return iface, ok
	}

	for _, ti := range doc.Interface {
		iface := pending[ti.Name]
		parentName := ti.Parent
		if parentName == "" {
			parentName = "nsISupports"
		}
		parent, ok := lookup(parentName)
		if !ok {
			return errors.NotFound(errors.PhaseLoad, "parent interface", parentName)
		}
		iface.Parent = parent

		for _, tm := range ti.Method {
			methods, err := buildMethods(tm, lookup)
			if err != nil {
				return errors.Load("interface "+ti.Name, err)
			}
			iface.Methods = append(iface.Methods, methods...)
		}
	}

	for _, ti := range doc.Interface {
		if err := checkAcyclic(pending[ti.Name]); err != nil {
			return err
		}
	}

	for _, ti := range doc.Interface {
		if err := l.addLocked(pending[ti.Name]); err != nil {
			return err
		}
	}
	return nil
}

func checkAcyclic(iface *Interface) error {
	seen := make(map[*Interface]bool)
	for it := iface; it != nil; it = it.Parent {
		if seen[it] {
			return errors.InvalidInput(errors.PhaseLoad, "inheritance cycle through "+iface.Name)
		}
		seen[it] = true
	}
	return nil
}

type interfaceLookup func(name string) (*Interface, bool)

func buildMethods(tm tomlMethod, lookup interfaceLookup) ([]*Method, error) {
	if tm.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "method without a name")
	}

	if tm.Attribute {
		typ, err := resolveType(tm.Type, "", lookup)
		if err != nil {
			return nil, err
		}
		getter := &Method{
			Name:   tm.Name,
			Getter: true,
			Params: []Param{normalizeParam(Param{Name: "_retval", Type: typ, Dir: DirOut | DirRetval})},
		}
		if tm.Readonly {
			return []*Method{getter}, nil
		}
		setter := &Method{
			Name:   tm.Name,
			Setter: true,
			Params: []Param{{Name: "value", Type: typ, Dir: DirIn}},
		}
		return []*Method{getter, setter}, nil
	}

	m := &Method{Name: tm.Name, Hidden: tm.NotXPCOM}
	index := make(map[string]int, len(tm.Param))
	for i, tp := range tm.Param {
		index[tp.Name] = i
	}
	sibling := func(name string) (int, error) {
		if name == "" {
			return NoArg, nil
		}
		i, ok := index[name]
		if !ok {
			return NoArg, errors.NotFound(errors.PhaseLoad, "sibling parameter", name)
		}
		return i, nil
	}

	for _, tp := range tm.Param {
		typ, err := resolveType(tp.Type, tp.Elem, lookup)
		if err != nil {
			return nil, errors.Load(fmt.Sprintf("method %s param %s", tm.Name, tp.Name), err)
		}
		if typ.SizeIs, err = sibling(tp.SizeIs); err != nil {
			return nil, err
		}
		if typ.IIDIs, err = sibling(tp.IIDIs); err != nil {
			return nil, err
		}

		switch {
		case typ.SizeIs != NoArg && typ.Tag == CharStr:
			typ.Tag = PStringSizeIs
		case typ.SizeIs != NoArg && typ.Tag == WCharStr:
			typ.Tag = PWStringSizeIs
		case typ.IIDIs != NoArg && typ.Tag == InterfaceTag:
			typ.Tag = InterfaceIs
		case typ.IIDIs != NoArg && typ.Tag == Array && typ.Elem.Tag == InterfaceTag:
			typ.Elem.Tag = InterfaceIs
		}
		if typ.Tag == Array && typ.SizeIs == NoArg {
			return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("array param %s without size_is", tp.Name))
		}
		if typ.Tag == InterfaceIs && typ.IIDIs == NoArg {
			return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("interface_is param %s without iid_is", tp.Name))
		}

		dir, err := parseDirection(tp.Dir)
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, normalizeParam(Param{Name: tp.Name, Type: typ, Dir: dir, NonNull: tp.NonNull}))
	}
	return []*Method{m}, nil
}

// normalizeParam turns generic-string outputs into "in" dippers: the caller
// supplies the string object and the callee fills it.
func normalizeParam(p Param) Param {
	if p.Type.Tag.IsGenericString() && p.Dir.IsOut() {
		p.Dir = DirIn | DirDipper | (p.Dir & DirRetval)
	}
	return p
}

func parseDirection(s string) (Direction, error) {
	switch strings.TrimSpace(s) {
	case "", "in":
		return DirIn, nil
	case "out":
		return DirOut, nil
	case "inout":
		return DirInOut, nil
	case "retval":
		return DirOut | DirRetval, nil
	}
	return 0, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("unknown direction %q", s))
}

func resolveType(name, elem string, lookup interfaceLookup) (Type, error) {
	name = strings.TrimSpace(name)
	if tag, ok := idlTypes[name]; ok {
		t := Scalar(tag)
		if tag == Array {
			if elem == "" {
				return Type{}, errors.InvalidInput(errors.PhaseLoad, "array without elem type")
			}
			et, err := resolveType(elem, "", lookup)
			if err != nil {
				return Type{}, err
			}
			if et.Tag == Array {
				return Type{}, errors.InvalidInput(errors.PhaseLoad, "nested arrays are not supported")
			}
			t.Elem = &et
		}
		return t, nil
	}
	if iface, ok := lookup(name); ok {
		t := Scalar(InterfaceTag)
		t.Name = iface.Name
		t.IID = iface.IID
		return t, nil
	}
	return Type{}, errors.NotFound(errors.PhaseLoad, "type", name)
}
