package errors

import (
	"errors"
	"fmt"
)

// Code is a 32-bit native result code. The high bit marks failure.
type Code uint32

const (
	CodeOK              Code = 0x00000000
	CodeNotImplemented  Code = 0x80004001
	CodeNoInterface     Code = 0x80004002
	CodeNullPointer     Code = 0x80004003
	CodeAbort           Code = 0x80004004
	CodeFailure         Code = 0x80004005
	CodeUnexpected      Code = 0x8000FFFF
	CodeOutOfMemory     Code = 0x8007000E
	CodeIllegalValue    Code = 0x80070057
	CodeNotInitialized  Code = 0xC1F30001
	CodeAlreadyInit     Code = 0xC1F30002
	CodeFactoryNotFound Code = 0x80040111
)

var codeNames = map[Code]string{
	CodeOK:              "NS_OK",
	CodeNotImplemented:  "NS_ERROR_NOT_IMPLEMENTED",
	CodeNoInterface:     "NS_ERROR_NO_INTERFACE",
	CodeNullPointer:     "NS_ERROR_NULL_POINTER",
	CodeAbort:           "NS_ERROR_ABORT",
	CodeFailure:         "NS_ERROR_FAILURE",
	CodeUnexpected:      "NS_ERROR_UNEXPECTED",
	CodeOutOfMemory:     "NS_ERROR_OUT_OF_MEMORY",
	CodeIllegalValue:    "NS_ERROR_ILLEGAL_VALUE",
	CodeNotInitialized:  "NS_ERROR_NOT_INITIALIZED",
	CodeAlreadyInit:     "NS_ERROR_ALREADY_INITIALIZED",
	CodeFactoryNotFound: "NS_ERROR_FACTORY_NOT_REGISTERED",
}

// Failed reports whether c denotes failure.
func (c Code) Failed() bool { return c&0x80000000 != 0 }

// Succeeded reports whether c denotes success.
func (c Code) Succeeded() bool { return !c.Failed() }

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(c))
}

var kindCodes = map[Kind]Code{
	KindOutOfMemory:      CodeOutOfMemory,
	KindUnexpectedType:   CodeUnexpected,
	KindValueRange:       CodeIllegalValue,
	KindNullPointer:      CodeNullPointer,
	KindNoInterface:      CodeNoInterface,
	KindNotInitialized:   CodeNotInitialized,
	KindNotImplemented:   CodeNotImplemented,
	KindInvalidInput:     CodeIllegalValue,
	KindPendingException: CodeFailure,
}

// CodeOf returns the native result code carried by err.
// An explicit code wins over the kind default; anything else is CodeFailure.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code != CodeOK {
			return e.Code
		}
		if c, ok := kindCodes[e.Kind]; ok {
			return c
		}
	}
	return CodeFailure
}
