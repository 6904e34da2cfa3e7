package xpcom

import "github.com/wippyai/xpcom-bridge/errors"

// Result is a native result code.
type Result = errors.Code

const (
	OK                 = errors.CodeOK
	ErrNotImplemented  = errors.CodeNotImplemented
	ErrNoInterface     = errors.CodeNoInterface
	ErrNullPointer     = errors.CodeNullPointer
	ErrAbort           = errors.CodeAbort
	ErrFailure         = errors.CodeFailure
	ErrUnexpected      = errors.CodeUnexpected
	ErrOutOfMemory     = errors.CodeOutOfMemory
	ErrIllegalValue    = errors.CodeIllegalValue
	ErrNotInitialized  = errors.CodeNotInitialized
	ErrFactoryNotFound = errors.CodeFactoryNotFound
)
