package marshal

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/heap"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/nsid"
	"github.com/wippyai/xpcom-bridge/registry"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

const runnableTOML = `
[[interface]]
name = "nsIRunnable"
iid = "{4a2abaf0-6886-11d3-9382-00104ba0fd40}"

  [[interface.method]]
  name = "run"
`

type fixture struct {
	heap     *heap.Linear
	reg      *registry.Registry
	env      *managed.Thread
	m        *Marshaller
	runnable *xpt.Interface
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	h, err := heap.New(ctx, heap.Config{})
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	t.Cleanup(func() { h.Close(ctx) })

	lib := xpt.NewTypelib()
	if err := lib.LoadTOML(runnableTOML); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	runnable, _ := lib.InterfaceByName("nsIRunnable")
	reg := registry.New(registry.Config{Oracle: lib})
	return &fixture{
		heap:     h,
		reg:      reg,
		env:      managed.NewVM().Attach(),
		m:        New(Config{Heap: h, Objects: reg, Oracle: lib}),
		runnable: runnable,
	}
}

func (f *fixture) assertNoLeaks(t *testing.T) {
	t.Helper()
	if st := f.heap.Stats(); st.LiveBlocks != 0 {
		t.Errorf("heap leaked %d blocks (%d bytes)", st.LiveBlocks, st.LiveBytes)
	}
}

// container builds the one-element managed array used for inout and out
// arguments.
func (f *fixture) container(t *testing.T, kind managed.Kind, v managed.Object) managed.Object {
	t.Helper()
	arr, ok := f.env.NewArray(kind, nil, 1)
	if !ok {
		t.Fatalf("NewArray(%s) failed: %v", kind, f.env.PendingException())
	}
	if v != nil && !f.env.SetElement(arr, 0, v) {
		t.Fatalf("SetElement failed: %v", f.env.PendingException())
	}
	return arr
}

func param(tag xpt.Tag, dir xpt.Direction) *xpt.Param {
	return &xpt.Param{Name: "p", Type: xpt.Scalar(tag), Dir: dir}
}

func arrayParam(elem xpt.Tag, dir xpt.Direction) *xpt.Param {
	e := xpt.Scalar(elem)
	typ := xpt.Scalar(xpt.Array)
	typ.Elem = &e
	typ.SizeIs = 0
	return &xpt.Param{Name: "arr", Type: typ, Dir: dir}
}

func errKind(err error) errors.Kind {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func TestScalar_RoundTrip(t *testing.T) {
	tests := []struct {
		tag   xpt.Tag
		value managed.Object
	}{
		{xpt.I8, int8(-5)},
		{xpt.I16, int16(-300)},
		{xpt.I32, int32(-70000)},
		{xpt.I64, int64(-1 << 40)},
		{xpt.U8, int16(200)},
		{xpt.U16, int32(60000)},
		{xpt.U32, int64(4000000000)},
		{xpt.U64, float64(1 << 52)},
		{xpt.Float, float32(1.5)},
		{xpt.Double, float64(-2.25)},
		{xpt.Bool, true},
		{xpt.Char, uint16('A')},
		{xpt.WChar, uint16(0x263A)},
		{xpt.Void, int64(0x1000)},
	}

	f := newFixture(t)
	for _, tc := range tests {
		t.Run(tc.tag.String(), func(t *testing.T) {
			// in: value goes straight through the variant bits.
			req := Request{Param: param(tc.tag, xpt.DirIn)}
			v, err := f.m.MarshalIn(f.env, req, tc.value)
			if err != nil {
				t.Fatalf("MarshalIn failed: %v", err)
			}
			if v.Storage != xpcom.StorageInline {
				t.Errorf("in storage = %s", v.Storage)
			}
			if got := liftScalar(tc.tag, v.Bits()); got != tc.value {
				t.Errorf("lifted %v (%T), want %v", got, got, tc.value)
			}

			// inout: read from and written back to the container.
			kind := tc.tag.ManagedKind()
			box := f.container(t, kind, tc.value)
			req = Request{Param: param(tc.tag, xpt.DirInOut)}
			v, err = f.m.MarshalIn(f.env, req, box)
			if err != nil {
				t.Fatalf("MarshalIn(inout) failed: %v", err)
			}
			if v.Storage != xpcom.StorageIndirect {
				t.Errorf("inout storage = %s", v.Storage)
			}
			out, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, box)
			if err != nil {
				t.Fatalf("MarshalOut failed: %v", err)
			}
			if out != tc.value {
				t.Errorf("out = %v, want %v", out, tc.value)
			}
			if el, _ := f.env.GetElement(box, 0); el != tc.value {
				t.Errorf("container = %v, want %v", el, tc.value)
			}
		})
	}
}

func TestScalar_UnsignedWidening(t *testing.T) {
	if got := liftScalar(xpt.U8, 0xFF); got != int16(255) {
		t.Errorf("u8 0xFF = %v", got)
	}
	if got := liftScalar(xpt.U16, 0xFFFF); got != int32(65535) {
		t.Errorf("u16 0xFFFF = %v", got)
	}
	if got := liftScalar(xpt.U32, 0xFFFFFFFF); got != int64(4294967295) {
		t.Errorf("u32 max = %v", got)
	}
	// uint64 travels as double: values above 2^53 round.
	if got := liftScalar(xpt.U64, 1<<53+1); got != float64(1<<53) {
		t.Errorf("u64 2^53+1 = %v, want rounding to 2^53", got)
	}
	bits, err := lowerScalar(managed.NewVM().Attach(), nil, xpt.U64, float64(math.MaxUint64))
	if err != nil || bits != math.MaxUint64 {
		t.Errorf("u64 max lowered to %d, %v", bits, err)
	}
}

func TestScalar_WrongBox(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.MarshalIn(f.env, Request{Param: param(xpt.I32, xpt.DirIn), Path: []string{"nsIFoo", "bar", "x"}}, "not a number")
	if errKind(err) != errors.KindPendingException {
		t.Fatalf("error = %v, want pending exception", err)
	}
	if ex := f.env.PendingException(); ex == nil || ex.Class != managed.ClassCast {
		t.Errorf("pending = %v", ex)
	}
}

func TestOut_Storage(t *testing.T) {
	f := newFixture(t)

	out := Request{Param: param(xpt.I32, xpt.DirOut)}
	v, err := f.m.MarshalIn(f.env, out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Storage != xpcom.StorageNull {
		t.Fatalf("out without container: storage = %s", v.Storage)
	}
	if v.SetInt32(7) {
		t.Error("callee wrote through a null out pointer")
	}
	if got, err := f.m.MarshalOut(f.env, out, &v, xpcom.OK, nil); got != nil || err != nil {
		t.Errorf("MarshalOut = %v, %v", got, err)
	}

	retval := Request{Param: param(xpt.I32, xpt.DirOut|xpt.DirRetval)}
	v, err = f.m.MarshalIn(f.env, retval, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Storage != xpcom.StorageIndirect {
		t.Fatalf("retval storage = %s", v.Storage)
	}
	v.SetInt32(84)
	got, err := f.m.MarshalOut(f.env, retval, &v, xpcom.OK, nil)
	if err != nil || got != int32(84) {
		t.Errorf("retval = %v, %v", got, err)
	}
}

func TestString_InOut(t *testing.T) {
	f := newFixture(t)

	for _, tag := range []xpt.Tag{xpt.CharStr, xpt.WCharStr} {
		t.Run(tag.String(), func(t *testing.T) {
			req := Request{Param: param(tag, xpt.DirIn)}
			v, err := f.m.MarshalIn(f.env, req, "héllo")
			if err != nil {
				t.Fatal(err)
			}
			if !v.Cleanup || v.Ptr() == 0 {
				t.Fatalf("variant = %+v", v)
			}
			got, err := f.m.liftString(f.env, nil, tag, v.Ptr())
			if err != nil || got != "héllo" {
				t.Errorf("native string = %q, %v", got, err)
			}
			if _, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil); err != nil {
				t.Fatal(err)
			}
			f.assertNoLeaks(t)

			// Empty strings keep a terminator-only buffer; null stays null.
			v, _ = f.m.MarshalIn(f.env, req, "")
			if v.Ptr() == 0 {
				t.Error("empty string marshalled to null")
			}
			f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)
			v, _ = f.m.MarshalIn(f.env, req, nil)
			if v.Ptr() != 0 {
				t.Error("null string marshalled to a buffer")
			}
			f.assertNoLeaks(t)
		})
	}
}

func TestString_OutReplacedByCallee(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: param(xpt.CharStr, xpt.DirInOut)}
	box := f.container(t, managed.KindString, "old")

	v, err := f.m.MarshalIn(f.env, req, box)
	if err != nil {
		t.Fatal(err)
	}
	// The callee frees the old buffer and hands back a new one.
	f.heap.Free(v.Ptr(), 0, 1)
	ptr, _, err := heap.WriteCString(f.heap, "new")
	if err != nil {
		t.Fatal(err)
	}
	v.SetPointer(ptr)

	if _, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, box); err != nil {
		t.Fatal(err)
	}
	if el, _ := f.env.GetElement(box, 0); el != "new" {
		t.Errorf("container = %v", el)
	}
	f.assertNoLeaks(t)
}

func TestString_FailedCallStillFrees(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: param(xpt.WCharStr, xpt.DirInOut)}
	box := f.container(t, managed.KindString, "keep")

	v, err := f.m.MarshalIn(f.env, req, box)
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.m.MarshalOut(f.env, req, &v, xpcom.ErrFailure, box)
	if out != nil || err != nil {
		t.Errorf("MarshalOut = %v, %v", out, err)
	}
	if el, _ := f.env.GetElement(box, 0); el != "keep" {
		t.Errorf("container modified on failure: %v", el)
	}
	f.assertNoLeaks(t)
}

func TestSizedString_Bound(t *testing.T) {
	f := newFixture(t)
	before := f.heap.Stats()

	req := Request{Param: param(xpt.PStringSizeIs, xpt.DirIn), Size: 3, Path: []string{"nsIBuf", "fill", "buf"}}
	_, err := f.m.MarshalIn(f.env, req, "abcd")
	if errKind(err) != errors.KindValueRange {
		t.Fatalf("error = %v, want value range", err)
	}
	if errors.CodeOf(err) != errors.CodeIllegalValue {
		t.Errorf("code = %s", errors.CodeOf(err))
	}
	wide := Request{Param: param(xpt.PWStringSizeIs, xpt.DirIn), Size: 1}
	if _, err := f.m.MarshalIn(f.env, wide, "ab"); errKind(err) != errors.KindValueRange {
		t.Fatalf("wide error = %v, want value range", err)
	}
	if after := f.heap.Stats(); after.Allocs != before.Allocs {
		t.Errorf("rejected sized string allocated %d blocks", after.Allocs-before.Allocs)
	}
}

func TestSizedString_InOut(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: param(xpt.PStringSizeIs, xpt.DirInOut), Size: 5}
	box := f.container(t, managed.KindString, "abc")

	v, err := f.m.MarshalIn(f.env, req, box)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := f.heap.Read(v.Ptr(), 6)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte("abc\x00\x00\x00"), raw); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}

	if err := f.heap.Write(v.Ptr(), []byte("xyzzy")); err != nil {
		t.Fatal(err)
	}
	out, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, box)
	if err != nil || out != "xyzzy" {
		t.Errorf("out = %v, %v", out, err)
	}
	f.assertNoLeaks(t)
}

func TestIID(t *testing.T) {
	f := newFixture(t)
	id := nsid.MustParse("{4a2abaf0-6886-11d3-9382-00104ba0fd40}")

	req := Request{Param: param(xpt.IID, xpt.DirIn)}
	v, err := f.m.MarshalIn(f.env, req, id.String())
	if err != nil {
		t.Fatal(err)
	}
	got, err := heap.ReadID(f.heap, v.Ptr())
	if err != nil || got != id {
		t.Errorf("native id = %s, %v", got, err)
	}
	f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)

	v, err = f.m.MarshalIn(f.env, req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Ptr() == 0 {
		t.Fatal("absent id marshalled to null pointer")
	}
	if got, _ := heap.ReadID(f.heap, v.Ptr()); !got.IsNull() {
		t.Errorf("absent id = %s, want null id", got)
	}

	// Deferred ids stay allocated until the caller frees them.
	req.DeferIID = true
	ptr := v.Ptr()
	f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)
	if f.heap.Stats().LiveBlocks != 1 {
		t.Error("deferred id freed early")
	}
	heap.FreeID(f.heap, ptr)
	f.assertNoLeaks(t)

	if _, err := f.m.MarshalIn(f.env, Request{Param: param(xpt.IID, xpt.DirIn)}, "not-an-iid"); errKind(err) != errors.KindValueRange {
		t.Errorf("malformed id error = %v", err)
	}
}

func TestIID_Retval(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: param(xpt.IID, xpt.DirOut|xpt.DirRetval)}
	v, _ := f.m.MarshalIn(f.env, req, nil)

	ptr, err := heap.WriteID(f.heap, xpt.ISupportsIID)
	if err != nil {
		t.Fatal(err)
	}
	v.SetPointer(ptr)
	out, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)
	if err != nil || out != "{00000000-0000-0000-c000-000000000046}" {
		t.Errorf("retval id = %v, %v", out, err)
	}
	f.assertNoLeaks(t)
}

func TestInterface_NullIn(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: param(xpt.InterfaceTag, xpt.DirIn), IID: f.runnable.IID}

	v, err := f.m.MarshalIn(f.env, req, nil)
	if err != nil {
		t.Fatalf("null interface failed: %v", err)
	}
	if !v.IsNull() || v.Cleanup {
		t.Errorf("variant = %+v", v)
	}

	req.Param.NonNull = true
	if _, err := f.m.MarshalIn(f.env, req, nil); errKind(err) != errors.KindNullPointer {
		t.Errorf("non-null error = %v", err)
	}
}

func TestInterface_RoundTrip(t *testing.T) {
	f := newFixture(t)
	comp := xpcom.NewComponent(f.runnable, nil)

	retval := Request{Param: param(xpt.InterfaceTag, xpt.DirOut|xpt.DirRetval), IID: f.runnable.IID}
	v, _ := f.m.MarshalIn(f.env, retval, nil)
	comp.AddRef()
	v.SetObject(comp)

	proxy, err := f.m.MarshalOut(f.env, retval, &v, xpcom.OK, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := proxy.(*managed.Proxy); !ok {
		t.Fatalf("retval = %T, want proxy", proxy)
	}
	// One reference is the caller's, one belongs to the proxy's wrapper.
	if comp.Refs() != 2 {
		t.Errorf("refs = %d, want 2", comp.Refs())
	}

	in := Request{Param: param(xpt.InterfaceTag, xpt.DirIn), IID: f.runnable.IID}
	v, err = f.m.MarshalIn(f.env, in, proxy)
	if err != nil {
		t.Fatal(err)
	}
	if v.Obj() != comp {
		t.Error("proxy did not unwrap to its native object")
	}
	f.m.MarshalOut(f.env, in, &v, xpcom.OK, nil)
	if comp.Refs() != 2 {
		t.Errorf("refs after in round trip = %d, want 2", comp.Refs())
	}
}

func TestInterface_WeakReference(t *testing.T) {
	f := newFixture(t)
	comp := xpcom.NewComponent(f.runnable, nil).EnableWeakReferences()
	proxy, err := f.reg.GetOrCreateProxy(f.env, comp, f.runnable.IID)
	if err != nil {
		t.Fatal(err)
	}

	req := Request{Param: param(xpt.InterfaceTag, xpt.DirIn), IID: xpt.IWeakReferenceIID}
	v, err := f.m.MarshalIn(f.env, req, proxy)
	if err != nil {
		t.Fatal(err)
	}
	weak, ok := v.Obj().(xpcom.WeakReference)
	if !ok {
		t.Fatalf("slot holds %T, want weak reference", v.Obj())
	}
	obj, res := weak.QueryReferent(f.runnable.IID)
	if res.Failed() || obj != comp {
		t.Errorf("QueryReferent = %v, %s", obj, res)
	}
	obj.Release()
	f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)

	plain := xpcom.NewComponent(f.runnable, nil)
	p2, err := f.reg.GetOrCreateProxy(f.env, plain, f.runnable.IID)
	if err != nil {
		t.Fatal(err)
	}
	v, err = f.m.MarshalIn(f.env, req, p2)
	if err != nil || !v.IsNull() {
		t.Errorf("no weak support: %+v, %v", v, err)
	}
}

func TestArray_Scalars(t *testing.T) {
	f := newFixture(t)

	req := Request{Param: arrayParam(xpt.I32, xpt.DirIn), Size: 3}
	v, err := f.m.MarshalIn(f.env, req, []int32{1, -2, 3})
	if err != nil {
		t.Fatal(err)
	}
	var got []int32
	for i := range uint32(3) {
		x, _ := f.heap.ReadU32(v.Ptr() + 4*i)
		got = append(got, int32(x))
	}
	if diff := cmp.Diff([]int32{1, -2, 3}, got); diff != "" {
		t.Errorf("native array mismatch (-want +got):\n%s", diff)
	}
	f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)
	f.assertNoLeaks(t)

	// Octet arrays surface as byte[].
	octets := Request{Param: arrayParam(xpt.U8, xpt.DirOut|xpt.DirRetval), Size: 4}
	v, _ = f.m.MarshalIn(f.env, octets, nil)
	ptr, err := f.heap.Alloc(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	f.heap.Write(ptr, []byte{0x01, 0x7f, 0x80, 0xff})
	v.SetPointer(ptr)
	out, err := f.m.MarshalOut(f.env, octets, &v, xpcom.OK, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int8{1, 127, -128, -1}, out); diff != "" {
		t.Errorf("octets mismatch (-want +got):\n%s", diff)
	}
	f.assertNoLeaks(t)
}

func TestArray_Strings(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: arrayParam(xpt.CharStr, xpt.DirInOut), Size: 3}

	src := &managed.ObjectArray{Elems: []managed.Object{"a", nil, "ccc"}}
	box := &managed.ObjectArray{Elems: []managed.Object{src}}
	v, err := f.m.MarshalIn(f.env, req, box)
	if err != nil {
		t.Fatal(err)
	}
	if f.heap.Stats().LiveBlocks != 3 {
		t.Errorf("live blocks = %d, want array + 2 strings", f.heap.Stats().LiveBlocks)
	}

	out, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, box)
	if err != nil {
		t.Fatal(err)
	}
	arr, ok := out.(*managed.ObjectArray)
	if !ok {
		t.Fatalf("out = %T", out)
	}
	if diff := cmp.Diff([]managed.Object{"a", nil, "ccc"}, arr.Elems); diff != "" {
		t.Errorf("strings mismatch (-want +got):\n%s", diff)
	}
	if box.Elems[0] != out {
		t.Error("container not updated")
	}
	f.assertNoLeaks(t)
}

func TestArray_ElementFailureFreesPrefix(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: arrayParam(xpt.IID, xpt.DirIn), Size: 3}
	src := &managed.ObjectArray{Elems: []managed.Object{
		"{4a2abaf0-6886-11d3-9382-00104ba0fd40}",
		nil,
		"garbage",
	}}
	if _, err := f.m.MarshalIn(f.env, req, src); errKind(err) != errors.KindValueRange {
		t.Fatalf("error = %v, want value range", err)
	}
	f.assertNoLeaks(t)
}

func TestArray_ShortSource(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: arrayParam(xpt.I16, xpt.DirIn), Size: 4}
	if _, err := f.m.MarshalIn(f.env, req, []int16{1, 2}); errKind(err) != errors.KindPendingException {
		t.Fatalf("error = %v, want pending exception", err)
	}
	if ex := f.env.PendingException(); ex == nil || ex.Class != managed.ClassIndexOutOfRange {
		t.Errorf("pending = %v", ex)
	}
	f.assertNoLeaks(t)
}

func TestArray_OversizedCount(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		src  managed.Object
	}{
		{"interfaces", Request{Param: arrayParam(xpt.InterfaceTag, xpt.DirIn), Size: 0xFFFFFFFF}, &managed.ObjectArray{Elems: []managed.Object{nil}}},
		{"scalars", Request{Param: arrayParam(xpt.I64, xpt.DirIn), Size: 0xFFFFFFFF}, []int64{1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.req.IID = f.runnable.IID
			if _, err := f.m.MarshalIn(f.env, tc.req, tc.src); errKind(err) != errors.KindOutOfMemory {
				t.Fatalf("error = %v, want out of memory", err)
			}
			f.assertNoLeaks(t)
		})
	}
}

func TestArray_OversizedOutCount(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: arrayParam(xpt.I32, xpt.DirOut|xpt.DirRetval), Size: 0xFFFFFFFF}
	v, err := f.m.MarshalIn(f.env, req, nil)
	if err != nil {
		t.Fatal(err)
	}
	ptr, err := f.heap.Alloc(16, 4)
	if err != nil {
		t.Fatal(err)
	}
	v.SetPointer(ptr)

	if _, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil); errKind(err) != errors.KindOutOfMemory {
		t.Fatalf("error = %v, want out of memory", err)
	}
	f.assertNoLeaks(t)
}

func TestArray_Interfaces(t *testing.T) {
	f := newFixture(t)
	a := xpcom.NewComponent(f.runnable, nil)
	b := xpcom.NewComponent(f.runnable, nil)

	req := Request{Param: arrayParam(xpt.InterfaceTag, xpt.DirOut|xpt.DirRetval), Size: 3, IID: f.runnable.IID}
	v, _ := f.m.MarshalIn(f.env, req, nil)
	a.AddRef()
	b.AddRef()
	v.Set(xpcom.Refs{a, nil, b})

	out, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := out.(*managed.ObjectArray)
	if arr.Class.Name != DefaultClassPrefix+"nsIRunnable" {
		t.Errorf("element class = %s", arr.Class.Name)
	}
	if arr.Elems[1] != nil {
		t.Error("null element became non-null")
	}
	pa, _ := f.reg.FindProxy(a, f.runnable.IID)
	if arr.Elems[0] != pa {
		t.Error("element 0 is not the registered proxy of a")
	}
	if a.Refs() != 2 || b.Refs() != 2 {
		t.Errorf("refs = %d, %d, want 2 each", a.Refs(), b.Refs())
	}
}

func TestDipper(t *testing.T) {
	f := newFixture(t)
	p := param(xpt.AString, xpt.DirIn|xpt.DirDipper|xpt.DirRetval)
	req := Request{Param: p}

	v, err := f.m.MarshalIn(f.env, req, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := v.Str()
	if s == nil {
		t.Fatal("dipper has no string object")
	}
	s.Data = "filled"
	out, err := f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil)
	if err != nil || out != "filled" {
		t.Errorf("dipper = %v, %v", out, err)
	}

	v, _ = f.m.MarshalIn(f.env, req, nil)
	v.Str().Void = true
	if out, _ := f.m.MarshalOut(f.env, req, &v, xpcom.OK, nil); out != nil {
		t.Errorf("void dipper = %v, want null", out)
	}

	// A non-retval dipper writes into its container.
	nr := Request{Param: param(xpt.CString, xpt.DirIn|xpt.DirDipper)}
	box := f.container(t, managed.KindString, nil)
	v, _ = f.m.MarshalIn(f.env, nr, box)
	v.Str().Data = "text"
	if _, err := f.m.MarshalOut(f.env, nr, &v, xpcom.OK, box); err != nil {
		t.Fatal(err)
	}
	if el, _ := f.env.GetElement(box, 0); el != "text" {
		t.Errorf("container = %v", el)
	}
}

func TestGenericString_In(t *testing.T) {
	f := newFixture(t)
	req := Request{Param: param(xpt.DOMString, xpt.DirIn)}

	v, err := f.m.MarshalIn(f.env, req, "dom")
	if err != nil || v.Str().Data != "dom" || v.Str().Void {
		t.Errorf("string = %+v, %v", v.Str(), err)
	}
	v, _ = f.m.MarshalIn(f.env, req, nil)
	if !v.Str().Void {
		t.Error("null managed string is not void")
	}
}

func TestUnexpectedDipper(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.MarshalIn(f.env, Request{Param: param(xpt.I32, xpt.DirIn|xpt.DirDipper)}, nil)
	if errKind(err) != errors.KindUnexpectedType {
		t.Errorf("error = %v", err)
	}
}
