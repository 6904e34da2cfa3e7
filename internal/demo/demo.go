// Package demo provides a small native component and its interface
// metadata for exercising the bridge end to end.
package demo

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/xpcom-bridge/bridge"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// InterfaceName is the demo interface.
const InterfaceName = "nsIDemoGreeter"

// TOML is the demo typelib.
const TOML = `
[[interface]]
name = "nsIDemoGreeter"
iid = "{5f0d3a6c-8e21-4b7a-a0c4-3d9e6b1f2a87}"

  [[interface.method]]
  name = "add"
  param = [
    { name = "a", type = "long" },
    { name = "b", type = "long" },
    { name = "_retval", type = "long", dir = "retval" },
  ]

  [[interface.method]]
  name = "greet"
  param = [
    { name = "name", type = "string" },
    { name = "_retval", type = "string", dir = "retval" },
  ]

  [[interface.method]]
  name = "sum"
  param = [
    { name = "count", type = "unsigned long" },
    { name = "values", type = "array", elem = "long", size_is = "count" },
    { name = "_retval", type = "long long", dir = "retval" },
  ]

  [[interface.method]]
  name = "split"
  param = [
    { name = "text", type = "AUTF8String" },
    { name = "count", type = "unsigned long", dir = "out" },
    { name = "words", type = "array", elem = "string", size_is = "count", dir = "out" },
  ]

  [[interface.method]]
  name = "label"
  attribute = true
  type = "AString"
`

// Typelib returns a typelib holding the builtins and the demo interface.
func Typelib() (*xpt.Typelib, error) {
	lib := xpt.NewTypelib()
	if err := lib.LoadTOML(TOML); err != nil {
		return nil, fmt.Errorf("load demo typelib: %w", err)
	}
	return lib, nil
}

// Greeter is the demo component state.
type Greeter struct {
	Label string
	Calls int
}

// Methods returns the native implementation bound to g.
func (g *Greeter) Methods() xpcom.Methods {
	return xpcom.Methods{
		"add": func(call *xpcom.Call) xpcom.Result {
			g.Calls++
			call.Param(2).SetInt32(call.Param(0).Int32() + call.Param(1).Int32())
			return xpcom.OK
		},
		"greet": func(call *xpcom.Call) xpcom.Result {
			g.Calls++
			if call.Param(0).Ptr() == 0 {
				return xpcom.ErrIllegalValue
			}
			name, err := heap.ReadCString(call.Heap, call.Param(0).Ptr())
			if err != nil {
				return xpcom.ErrIllegalValue
			}
			ptr, _, err := heap.WriteCString(call.Heap, "Hello, "+name+"!")
			if err != nil {
				return xpcom.ErrOutOfMemory
			}
			call.Param(1).SetPointer(ptr)
			return xpcom.OK
		},
		"sum": func(call *xpcom.Call) xpcom.Result {
			g.Calls++
			n := call.Param(0).Uint32()
			ptr := call.Param(1).Ptr()
			var total int64
			for i := range n {
				v, err := call.Heap.ReadU32(ptr + 4*i)
				if err != nil {
					return xpcom.ErrIllegalValue
				}
				total += int64(int32(v))
			}
			call.Param(2).SetInt64(total)
			return xpcom.OK
		},
		"split": func(call *xpcom.Call) xpcom.Result {
			g.Calls++
			words := strings.Fields(call.Param(0).Str().Data)
			if call.Param(1).IsNullOut() || call.Param(2).IsNullOut() {
				return xpcom.ErrNullPointer
			}
			if len(words) == 0 {
				call.Param(1).SetUint32(0)
				return xpcom.OK
			}
			arr, err := call.Heap.Alloc(uint32(4*len(words)), 4)
			if err != nil {
				return xpcom.ErrOutOfMemory
			}
			for i, w := range words {
				p, _, err := heap.WriteCString(call.Heap, w)
				if err != nil {
					return xpcom.ErrOutOfMemory
				}
				call.Heap.WriteU32(arr+uint32(4*i), p)
			}
			call.Param(1).SetUint32(uint32(len(words)))
			call.Param(2).SetPointer(arr)
			return xpcom.OK
		},
		"label": func(call *xpcom.Call) xpcom.Result {
			call.Param(0).Str().Data = g.Label
			return xpcom.OK
		},
		"label=": func(call *xpcom.Call) xpcom.Result {
			g.Label = call.Param(0).Str().Data
			return xpcom.OK
		},
	}
}

// Step is one demo call and its outcome.
type Step struct {
	Call   string
	Result string
	Err    error
}

func (s Step) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s -> error: %v", s.Call, s.Err)
	}
	return fmt.Sprintf("%s -> %s", s.Call, s.Result)
}

// Run wraps a fresh Greeter in a proxy and drives every demo method
// through b. A failing call is recorded in its Step; Run only returns an
// error when the demo cannot be set up.
func Run(ctx context.Context, b *bridge.Bridge, env managed.Env) ([]Step, error) {
	info, ok := b.Oracle().InterfaceByName(InterfaceName)
	if !ok {
		return nil, fmt.Errorf("interface %s not loaded", InterfaceName)
	}
	g := &Greeter{Label: "demo"}
	comp := xpcom.NewComponent(info, g.Methods())
	defer comp.Release()

	proxy, err := b.WrapNative(env, comp, info.IID)
	if err != nil {
		return nil, fmt.Errorf("wrap demo component: %w", err)
	}

	count := []int64{0}
	words := &managed.ObjectArray{Elems: make([]managed.Object, 1)}
	calls := []struct {
		desc string
		name string
		args []managed.Object
		show func(managed.Object) string
	}{
		{"add(40, 2)", "add", []managed.Object{int32(40), int32(2)}, nil},
		{`greet("bridge")`, "greet", []managed.Object{"bridge"}, nil},
		{"greet(null)", "greet", []managed.Object{nil}, nil},
		{"sum(3, [1 2 3 4])", "sum", []managed.Object{int64(3), []int32{1, 2, 3, 4}}, nil},
		{`split("native and managed")`, "split", []managed.Object{"native and managed", count, words},
			func(managed.Object) string {
				arr, _ := words.Elems[0].(*managed.ObjectArray)
				if arr == nil {
					return fmt.Sprintf("%d []", count[0])
				}
				return fmt.Sprintf("%d %q", count[0], arr.Elems)
			}},
		{"getLabel()", "getLabel", nil, nil},
		{`setLabel("renamed")`, "setLabel", []managed.Object{"renamed"}, nil},
		{"getLabel()", "getLabel", nil, nil},
	}

	steps := make([]Step, 0, len(calls))
	for _, c := range calls {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		result, err := b.Call(env, proxy, c.name, c.args)
		step := Step{Call: c.desc, Err: err}
		if err == nil {
			if c.show != nil {
				step.Result = c.show(result)
			} else {
				step.Result = fmt.Sprintf("%v", result)
			}
		}
		env.ExceptionClear()
		steps = append(steps, step)
	}

	bridge.Logger().Debug("demo finished",
		zap.Int("native_calls", g.Calls),
		zap.String("label", g.Label))
	return steps, nil
}
