package xpt

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/nsid"
)

const calcTOML = `
[[interface]]
name = "nsICalc"
iid = "{a3c1d1e2-1111-4b3c-9c2a-0123456789ab}"
parent = "nsICalcBase"

  [[interface.method]]
  name = "add"
  param = [
    { name = "a", type = "long" },
    { name = "b", type = "long" },
    { name = "_retval", type = "long", dir = "retval" },
  ]

  [[interface.method]]
  name = "label"
  attribute = true
  type = "AString"

  [[interface.method]]
  name = "sum"
  param = [
    { name = "count", type = "unsigned long" },
    { name = "values", type = "array", elem = "long", size_is = "count" },
    { name = "_retval", type = "long long", dir = "retval" },
  ]

  [[interface.method]]
  name = "fill"
  param = [
    { name = "size", type = "unsigned long" },
    { name = "buf", type = "string", size_is = "size", dir = "inout" },
  ]

  [[interface.method]]
  name = "lookup"
  param = [
    { name = "iid", type = "nsIIDRef" },
    { name = "result", type = "nsQIResult", iid_is = "iid", dir = "retval" },
  ]

  [[interface.method]]
  name = "describe"
  param = [{ name = "text", type = "AString", dir = "out" }]

[[interface]]
name = "nsICalcBase"
iid = "{a3c1d1e2-2222-4b3c-9c2a-0123456789ab}"

  [[interface.method]]
  name = "version"
  attribute = true
  readonly = true
  type = "unsigned short"
`

func loadCalc(t *testing.T) *Typelib {
	t.Helper()
	lib := NewTypelib()
	if err := lib.LoadTOML(calcTOML); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	return lib
}

func TestTypelib_Builtins(t *testing.T) {
	lib := NewTypelib()
	for _, name := range []string{"nsISupports", "nsIWeakReference", "nsISupportsWeakReference"} {
		if _, ok := lib.InterfaceByName(name); !ok {
			t.Errorf("builtin %s missing", name)
		}
	}
	sup, _ := lib.InterfaceByIID(ISupportsIID)
	if sup.MethodCount() != 3 {
		t.Errorf("nsISupports has %d methods", sup.MethodCount())
	}
}

func TestLoadTOML_Layout(t *testing.T) {
	lib := loadCalc(t)

	calc, ok := lib.InterfaceByName("nsICalc")
	if !ok {
		t.Fatal("nsICalc not registered")
	}
	if calc.Parent.Name != "nsICalcBase" || calc.Parent.Parent.Name != "nsISupports" {
		t.Fatalf("unexpected parent chain")
	}

	var names []string
	for i := 0; i < calc.MethodCount(); i++ {
		m, _ := calc.Method(i)
		names = append(names, m.Name)
	}
	want := []string{"QueryInterface", "AddRef", "Release", "version", "add", "label", "label", "sum", "fill", "lookup", "describe"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("method order mismatch (-want +got):\n%s", diff)
	}

	idx, m, ok := calc.MethodByName("label")
	if !ok || idx != 5 || !m.Getter {
		t.Fatalf("MethodByName(label) = %d, %+v", idx, m)
	}
	setter, _ := calc.Method(idx + 1)
	if !setter.Setter || setter.Name != "label" {
		t.Fatalf("setter not adjacent: %+v", setter)
	}
	if got := m.Params[0].Dir; got != DirIn|DirDipper|DirRetval {
		t.Errorf("AString getter dir = %s", got)
	}

	idx, _, _ = calc.MethodByName("version")
	if idx != 3 {
		t.Errorf("inherited method index = %d", idx)
	}
	if _, ok := calc.Method(idx + 1); !ok {
		t.Fatal("method after readonly attribute missing")
	}
}

func TestLoadTOML_DependentTypes(t *testing.T) {
	lib := loadCalc(t)
	calc, _ := lib.InterfaceByName("nsICalc")

	_, sum, _ := calc.MethodByName("sum")
	arr := sum.Params[1].Type
	if arr.Tag != Array || arr.SizeIs != 0 || arr.Elem.Tag != I32 {
		t.Errorf("sum array type = %+v", arr)
	}
	if sum.Retval() != 2 {
		t.Errorf("Retval() = %d", sum.Retval())
	}

	_, fill, _ := calc.MethodByName("fill")
	if fill.Params[1].Type.Tag != PStringSizeIs || fill.Params[1].Dir != DirInOut {
		t.Errorf("fill buf = %+v", fill.Params[1])
	}

	_, lookup, _ := calc.MethodByName("lookup")
	if lookup.Params[1].Type.Tag != InterfaceIs || lookup.Params[1].Type.IIDIs != 0 {
		t.Errorf("lookup result = %+v", lookup.Params[1])
	}

	_, describe, _ := calc.MethodByName("describe")
	if describe.Params[0].Dir != DirIn|DirDipper {
		t.Errorf("describe text dir = %s", describe.Params[0].Dir)
	}
}

func TestLoadTOML_InterfaceParam(t *testing.T) {
	lib := NewTypelib()
	err := lib.LoadTOML(`
[[interface]]
name = "nsIHolder"
iid = "{b4d2e2f3-3333-4c4d-8d3b-123456789abc}"

  [[interface.method]]
  name = "swap"
  param = [
    { name = "other", type = "nsIHolder" },
    { name = "_retval", type = "nsIHolder", dir = "retval" },
  ]
`)
	if err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	var holder *Interface
	holder, ok := lib.InterfaceByName("nsIHolder")
	if !ok {
		t.Fatal("nsIHolder missing")
	}

	_, swap, _ := holder.MethodByName("swap")
	for i, p := range swap.Params {
		if p.Type.Tag != InterfaceTag || !p.Type.Tag.IsInterface() {
			t.Errorf("param %d tag = %s, want %s", i, p.Type.Tag, InterfaceTag)
		}
		if p.Type.IID != holder.IID || p.Type.Name != holder.Name {
			t.Errorf("param %d names %s %s", i, p.Type.Name, p.Type.IID)
		}
	}
	if InterfaceTag.String() != "interface" {
		t.Errorf("InterfaceTag.String() = %q", InterfaceTag.String())
	}
}

func TestLoadTOML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind errors.Kind
	}{
		{
			name: "unknown key",
			doc:  "[[interface]]\nname = \"nsIA\"\niid = \"{a3c1d1e2-3333-4b3c-9c2a-0123456789ab}\"\ncolour = 1\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "bad iid",
			doc:  "[[interface]]\nname = \"nsIA\"\niid = \"nope\"\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "unknown type",
			doc:  "[[interface]]\nname = \"nsIA\"\niid = \"{a3c1d1e2-3333-4b3c-9c2a-0123456789ab}\"\n[[interface.method]]\nname = \"f\"\nparam = [{ name = \"x\", type = \"nsIMissing\" }]\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "array without size",
			doc:  "[[interface]]\nname = \"nsIA\"\niid = \"{a3c1d1e2-3333-4b3c-9c2a-0123456789ab}\"\n[[interface.method]]\nname = \"f\"\nparam = [{ name = \"x\", type = \"array\", elem = \"long\" }]\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "duplicate builtin",
			doc:  "[[interface]]\nname = \"nsISupports\"\niid = \"{a3c1d1e2-3333-4b3c-9c2a-0123456789ab}\"\n",
			kind: errors.KindDuplicate,
		},
		{
			name: "malformed",
			doc:  "[[interface]\n",
			kind: errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := NewTypelib()
			before := lib.Len()
			err := lib.LoadTOML(tt.doc)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
			if lib.Len() != before {
				t.Errorf("failed load registered %d interfaces", lib.Len()-before)
			}
		})
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.toml")
	if err := os.WriteFile(path, []byte(calcTOML), 0o600); err != nil {
		t.Fatal(err)
	}
	lib := NewTypelib()
	if err := lib.LoadTOMLFile(path); err != nil {
		t.Fatal(err)
	}
	if lib.Len() != 5 {
		t.Errorf("Len = %d", lib.Len())
	}
	if err := lib.LoadTOMLFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestImportWIT(t *testing.T) {
	const text = `
interface calc {
    add: func(a: s32, b: s32) -> s32;
    to-upper: func(text: string) -> string;
    sum-all: func(values: list<s64>) -> s64;
    reset: func();
}`
	lib := NewTypelib()
	iid := nsid.MustParse("{a3c1d1e2-4444-4b3c-9c2a-0123456789ab}")
	iface, err := lib.ImportWIT(text, "calc", iid)
	if err != nil {
		t.Fatalf("ImportWIT failed: %v", err)
	}

	idx, add, ok := iface.MethodByName("add")
	if !ok || idx != 3 {
		t.Fatalf("add at %d", idx)
	}
	if len(add.Params) != 3 || add.Params[2].Dir != DirOut|DirRetval || add.Params[2].Type.Tag != I32 {
		t.Errorf("add params = %+v", add.Params)
	}

	if _, _, ok := iface.MethodByName("toUpper"); !ok {
		t.Error("kebab-case name not converted")
	}

	_, sum, _ := iface.MethodByName("sumAll")
	if len(sum.Params) != 3 {
		t.Fatalf("sumAll params = %+v", sum.Params)
	}
	if sum.Params[0].Name != "valuesCount" || sum.Params[1].Type.SizeIs != 0 || sum.Params[1].Type.Elem.Tag != I64 {
		t.Errorf("list lowering wrong: %+v", sum.Params)
	}

	_, reset, _ := iface.MethodByName("reset")
	if len(reset.Params) != 0 {
		t.Errorf("reset params = %+v", reset.Params)
	}

	if got, ok := lib.InterfaceByIID(iid); !ok || got != iface {
		t.Error("imported interface not registered")
	}
}

func TestImportWIT_Errors(t *testing.T) {
	lib := NewTypelib()
	iid := nsid.MustParse("{a3c1d1e2-5555-4b3c-9c2a-0123456789ab}")

	if _, err := lib.ImportWIT("nothing here", "x", iid); err == nil {
		t.Error("expected error for empty WIT")
	}
	if _, err := lib.ImportWIT("f: func(a: invalid-type-xyz);", "x", iid); err == nil {
		t.Error("expected error for bad type")
	}
}

func TestCamelCase(t *testing.T) {
	tests := map[string]string{
		"add":          "add",
		"to-upper":     "toUpper",
		"get-max-size": "getMaxSize",
	}
	for in, want := range tests {
		if got := camelCase(in); got != want {
			t.Errorf("camelCase(%q) = %q, want %q", in, got, want)
		}
	}
}
