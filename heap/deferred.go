package heap

import (
	"sync"

	xpbridge "github.com/wippyai/xpcom-bridge"
)

// DeferredIDs holds identifier buffers whose release must wait until
// every out slot of a call has been converted, since an interface_is
// slot reads its identifier during that pass.
type DeferredIDs struct {
	ptrs []uint32
}

var deferredPool = sync.Pool{
	New: func() any { return &DeferredIDs{ptrs: make([]uint32, 0, 4)} },
}

// maxPooledIDs keeps unusually long lists out of the pool.
const maxPooledIDs = 64

// AcquireDeferredIDs returns an empty list.
func AcquireDeferredIDs() *DeferredIDs {
	return deferredPool.Get().(*DeferredIDs)
}

// Put returns d to the pool. d must not be used afterwards.
func (d *DeferredIDs) Put() {
	if cap(d.ptrs) > maxPooledIDs {
		return
	}
	d.ptrs = d.ptrs[:0]
	deferredPool.Put(d)
}

// Defer records an identifier buffer allocated by WriteID. The null
// pointer is ignored.
func (d *DeferredIDs) Defer(ptr uint32) {
	if ptr != 0 {
		d.ptrs = append(d.ptrs, ptr)
	}
}

// Len returns the number of buffers awaiting release.
func (d *DeferredIDs) Len() int {
	return len(d.ptrs)
}

// FreeAll releases every recorded buffer and empties the list. Calling it
// again frees nothing.
func (d *DeferredIDs) FreeAll(h xpbridge.Allocator) {
	for _, p := range d.ptrs {
		FreeID(h, p)
	}
	d.ptrs = d.ptrs[:0]
}
