package managed

import "fmt"

// Object is a managed reference. nil is the managed null.
type Object = any

// Exception classes raised by the bridge and the VM.
const (
	ClassXPCOMException  = "org.mozilla.xpcom.XPCOMException"
	ClassOutOfMemory     = "java.lang.OutOfMemoryError"
	ClassIndexOutOfRange = "java.lang.ArrayIndexOutOfBoundsException"
	ClassArrayStore      = "java.lang.ArrayStoreException"
	ClassCast            = "java.lang.ClassCastException"
	ClassNoClassDef      = "java.lang.NoClassDefFoundError"
)

// Exception is a managed exception. Code carries a native result code for
// XPCOMException; it is zero for runtime exceptions.
type Exception struct {
	Class   string
	Message string
	Code    uint32
}

func (e *Exception) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (0x%08X)", e.Class, e.Message, e.Code)
	}
	return e.Class + ": " + e.Message
}

// Class is a managed class or interface.
type Class struct {
	Name string
}

func (c *Class) String() string { return c.Name }

// ClassLoader resolves class names within a loading context.
type ClassLoader interface {
	LoadClass(name string) (*Class, bool)
}

// WeakRef is a weak managed reference. Get returns nil once the referent
// has been collected or the reference cleared.
type WeakRef interface {
	Get() Object
	Clear()
}

// Implementer is implemented by managed objects that expose native
// interfaces by name.
type Implementer interface {
	Implements(iface string) bool
}

// Runtime is a managed VM that goroutines attach to. Native code that
// outlives the Env it was created under reattaches through it.
type Runtime interface {
	AttachEnv() Env
}

// Env is the managed runtime as seen from one attached thread.
// Primitives that fail raise a pending exception and report false.
type Env interface {
	// Unbox reads a boxed scalar of the given kind.
	Unbox(obj Object, kind Kind) (any, bool)
	// Box wraps a scalar of the given kind.
	Box(kind Kind, v any) (Object, bool)

	// NewArray creates an array; class names the element class for KindObject.
	NewArray(kind Kind, class *Class, n int) (Object, bool)
	ArrayLength(arr Object) (int, bool)
	GetElement(arr Object, i int) (Object, bool)
	SetElement(arr Object, i int, v Object) bool

	NewString(s string) Object
	NewStringUTF16(chars []uint16) Object
	StringUTF(obj Object) (string, bool)
	StringChars(obj Object) ([]uint16, bool)

	// FindClass resolves a class by name; a nil loader uses the system loader.
	FindClass(loader ClassLoader, name string) (*Class, bool)
	// NewProxy creates a proxy of class forwarding to an opaque native handle.
	NewProxy(class *Class, handle uint64) (Object, bool)
	// ProxyHandle returns the native handle behind a proxy.
	ProxyHandle(obj Object) (uint64, bool)
	Implements(obj Object, iface string) bool

	IdentityHash(obj Object) int32
	IsSameObject(a, b Object) bool
	NewWeakRef(obj Object) WeakRef

	// Runtime returns the VM this thread is attached to.
	Runtime() Runtime

	Throw(ex *Exception)
	ExceptionCheck() bool
	PendingException() *Exception
	ExceptionClear()
}
