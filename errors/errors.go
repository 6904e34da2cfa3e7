package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a crossing the error occurred
type Phase string

const (
	PhaseResolve    Phase = "resolve"     // method lookup by name
	PhaseMarshalIn  Phase = "marshal-in"  // managed to native
	PhaseMarshalOut Phase = "marshal-out" // native to managed, and slot cleanup
	PhaseInvoke     Phase = "invoke"      // native method call
	PhaseRegistry   Phase = "registry"    // proxy/stub identity maps
	PhaseCleanup    Phase = "cleanup"     // deferred frees and teardown
	PhaseHeap       Phase = "heap"        // native heap access
	PhaseInit       Phase = "init"        // bridge startup
	PhaseLoad       Phase = "load"        // typelib loading
	PhaseParse      Phase = "parse"       // TOML/WIT parsing
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfMemory      Kind = "out_of_memory"
	KindUnexpectedType   Kind = "unexpected_type"
	KindValueRange       Kind = "value_range"
	KindNotFound         Kind = "not_found"
	KindInvocation       Kind = "invocation_failed"
	KindPendingException Kind = "pending_exception"
	KindNotInitialized   Kind = "not_initialized"
	KindNotImplemented   Kind = "not_implemented"
	KindNullPointer      Kind = "null_pointer"
	KindNoInterface      Kind = "no_interface"
	KindDuplicate        Kind = "duplicate"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Code   Code
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Code != CodeOK {
		b.WriteString(" [")
		b.WriteString(e.Code.String())
		b.WriteByte(']')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the method/parameter path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the type name involved
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Code sets an explicit native result code
func (b *Builder) Code(c Code) *Builder {
	b.err.Code = c
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfMemory creates a native allocation failure error
func OutOfMemory(phase Phase, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
	}
}

// UnexpectedType creates an error for a type tag the operation cannot handle
func UnexpectedType(phase Phase, path []string, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnexpectedType,
		Path:   path,
		Type:   typeName,
		Detail: "unexpected type",
	}
}

// ValueRange creates an illegal-value error
func ValueRange(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindValueRange,
		Path:   path,
		Detail: detail,
	}
}

// OutOfBounds creates an error for a heap access past the end of memory
func OutOfBounds(offset, length, size uint32) *Error {
	return &Error{
		Phase:  PhaseHeap,
		Kind:   KindValueRange,
		Value:  offset,
		Detail: fmt.Sprintf("access of %d bytes at %#x exceeds heap size %d", length, offset, size),
	}
}

// NullPointer creates an error for a null value where one is not allowed
func NullPointer(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		Path:   path,
		Detail: "null pointer",
	}
}

// NoInterface creates an error for a failed interface query
func NoInterface(phase Phase, iface string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoInterface,
		Type:   iface,
		Detail: "interface not supported",
	}
}

// PendingException creates an error for a managed exception raised during
// a conversion call. The exception itself stays pending in the environment.
func PendingException(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPendingException,
		Path:   path,
		Detail: "managed exception pending",
	}
}

// InvocationFailed creates the error raised when a native method reports failure
func InvocationFailed(method string, code Code) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindInvocation,
		Code:   code,
		Path:   []string{method},
		Detail: fmt.Sprintf("The function %q returned an error condition", method),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Duplicate creates an error for a repeated registration
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already registered", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a typelib loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
