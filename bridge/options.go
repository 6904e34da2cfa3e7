package bridge

import (
	"go.uber.org/zap"

	"github.com/wippyai/xpcom-bridge/dispatch"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/marshal"
	"github.com/wippyai/xpcom-bridge/xpcom"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// Options configures a Bridge.
type Options struct {
	// Logger receives bridge, registry and dispatcher logs. Defaults to
	// Logger().
	Logger *zap.Logger

	// Oracle answers interface metadata queries. Required.
	Oracle xpt.Oracle

	// InitialPages and MaxPages size the native heap in 64 KiB pages.
	// Zero selects the heap defaults.
	InitialPages uint32
	MaxPages     uint32

	// ClassPrefix is the package of managed interface classes. Defaults to
	// marshal.DefaultClassPrefix.
	ClassPrefix string

	// Loader resolves managed interface classes. Nil uses the runtime's
	// system loader.
	Loader managed.ClassLoader

	// QueueDepth is the initial main thread queue capacity. Defaults to
	// xpcom.DefaultQueueDepth.
	QueueDepth int

	// Trace observes call state transitions.
	Trace dispatch.TraceFunc
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = Logger()
	}
	if o.ClassPrefix == "" {
		o.ClassPrefix = marshal.DefaultClassPrefix
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = xpcom.DefaultQueueDepth
	}
	return o
}
