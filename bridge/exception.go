package bridge

import (
	stderrors "errors"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
)

// Exception converts err to the managed exception raised for it:
// OutOfMemoryError for allocation failures, XPCOMException carrying the
// native result code otherwise.
func Exception(err error) *managed.Exception {
	code := errors.CodeOf(err)
	msg := err.Error()
	var e *errors.Error
	if stderrors.As(err, &e) && e.Detail != "" {
		msg = e.Detail
	}
	if code == errors.CodeOutOfMemory {
		return &managed.Exception{Class: managed.ClassOutOfMemory, Message: msg}
	}
	if code == errors.CodeOK {
		code = errors.CodeFailure
	}
	return &managed.Exception{Class: managed.ClassXPCOMException, Message: msg, Code: uint32(code)}
}

// Throw raises err on env unless an exception is already pending.
func Throw(env managed.Env, err error) {
	if err == nil || env.ExceptionCheck() {
		return
	}
	env.Throw(Exception(err))
}
