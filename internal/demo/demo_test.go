package demo

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/xpcom-bridge/bridge"
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/xpcom"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	lib, err := Typelib()
	if err != nil {
		t.Fatal(err)
	}
	b, err := bridge.New(ctx, bridge.Options{Oracle: lib})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown(ctx)

	steps, err := Run(ctx, b, managed.NewVM().Attach())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var got []string
	for _, s := range steps {
		if s.Err != nil {
			got = append(got, s.Call+" -> error")
			continue
		}
		got = append(got, s.String())
	}
	want := []string{
		"add(40, 2) -> 42",
		`greet("bridge") -> Hello, bridge!`,
		"greet(null) -> error",
		"sum(3, [1 2 3 4]) -> 6",
		`split("native and managed") -> 3 ["native" "and" "managed"]`,
		"getLabel() -> demo",
		`setLabel("renamed") -> <nil>`,
		"getLabel() -> renamed",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	if st := b.Heap().Stats(); st.LiveBlocks != 0 {
		t.Errorf("heap leaked %d blocks", st.LiveBlocks)
	}
}

func TestSplit_OutContainers(t *testing.T) {
	ctx := context.Background()
	lib, err := Typelib()
	if err != nil {
		t.Fatal(err)
	}
	b, err := bridge.New(ctx, bridge.Options{Oracle: lib})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown(ctx)

	info, _ := lib.InterfaceByName(InterfaceName)
	g := &Greeter{Label: "demo"}
	comp := xpcom.NewComponent(info, g.Methods())
	defer comp.Release()

	env := managed.NewVM().Attach()
	proxy, err := b.WrapNative(env, comp, info.IID)
	if err != nil {
		t.Fatal(err)
	}

	count := []int64{0}
	words := &managed.ObjectArray{Elems: make([]managed.Object, 1)}
	if _, err := b.Call(env, proxy, "split", []managed.Object{"a b", count, words}); err != nil {
		t.Fatalf("split with fresh out containers: %v", err)
	}
	if count[0] != 2 {
		t.Errorf("count = %d, want 2", count[0])
	}

	_, err = b.Call(env, proxy, "split", []managed.Object{"a b", nil, words})
	if got := errors.CodeOf(err); got != errors.CodeNullPointer {
		t.Errorf("split with null count container: code %v, want %v", got, errors.CodeNullPointer)
	}
	env.ExceptionClear()

	if st := b.Heap().Stats(); st.LiveBlocks != 0 {
		t.Errorf("heap leaked %d blocks", st.LiveBlocks)
	}
}

func TestTypelib(t *testing.T) {
	lib, err := Typelib()
	if err != nil {
		t.Fatal(err)
	}
	info, ok := lib.InterfaceByName(InterfaceName)
	if !ok {
		t.Fatal("demo interface missing")
	}
	// nsISupports methods, five declared methods and the label setter.
	if n := info.MethodCount(); n != 3+6 {
		t.Errorf("method count = %d, want 9", n)
	}
}
