package heap

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/xpcom-bridge/errors"
)

// minAlign is the smallest alignment handed out; the first block starts
// at minAlign so that no allocation sits at offset 0.
const minAlign = 8

// GrowFunc extends the heap so at least minBytes more are available and
// returns the new total size.
type GrowFunc func(minBytes uint32) (uint32, bool)

type span struct {
	off  uint32
	size uint32
}

// Stats describes allocator state.
type Stats struct {
	Allocs     uint64
	Frees      uint64
	LiveBlocks int
	LiveBytes  uint32
	FreeBytes  uint32
}

// FreeList is a first-fit allocator with coalescing over a growable range.
type FreeList struct {
	grow  GrowFunc
	free  []span // sorted by offset, never adjacent
	live  map[uint32]uint32
	stats Stats
	end   uint32
	mu    sync.Mutex
}

// NewFreeList manages [minAlign, size). grow may be nil for a fixed range.
func NewFreeList(size uint32, grow GrowFunc) *FreeList {
	fl := &FreeList{
		grow: grow,
		live: make(map[uint32]uint32),
		end:  size,
	}
	if size > minAlign {
		fl.free = []span{{off: minAlign, size: size - minAlign}}
	}
	return fl
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// Alloc returns a block of at least size bytes aligned to align.
func (fl *FreeList) Alloc(size, align uint32) (uint32, error) {
	if align < minAlign {
		align = minAlign
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseMarshalIn, "alignment must be a power of two")
	}
	size = alignUp(max(size, 1), minAlign)

	fl.mu.Lock()
	defer fl.mu.Unlock()

	if ptr, ok := fl.take(size, align); ok {
		return ptr, nil
	}

	if fl.grow != nil {
		need := size + align
		if n := len(fl.free); n > 0 {
			if last := fl.free[n-1]; last.off+last.size == fl.end && last.size < need {
				need -= last.size
			}
		}
		newEnd, ok := fl.grow(need)
		if ok && newEnd > fl.end {
			fl.insert(span{off: fl.end, size: newEnd - fl.end})
			fl.end = newEnd
			if ptr, ok := fl.take(size, align); ok {
				return ptr, nil
			}
		}
	}

	Logger().Warn("heap exhausted", zap.Uint32("size", size), zap.Uint32("heap", fl.end))
	return 0, errors.OutOfMemory(errors.PhaseMarshalIn, size)
}

// take carves size bytes from the first fitting span. Caller holds mu.
func (fl *FreeList) take(size, align uint32) (uint32, bool) {
	for i, s := range fl.free {
		start := alignUp(s.off, align)
		pad := start - s.off
		if pad > s.size || s.size-pad < size {
			continue
		}

		tailOff := start + size
		tailSize := s.size - pad - size

		var repl []span
		if pad > 0 {
			repl = append(repl, span{off: s.off, size: pad})
		}
		if tailSize > 0 {
			repl = append(repl, span{off: tailOff, size: tailSize})
		}
		fl.free = slices.Replace(fl.free, i, i+1, repl...)

		fl.live[start] = size
		fl.stats.Allocs++
		fl.stats.LiveBlocks++
		fl.stats.LiveBytes += size
		return start, true
	}
	return 0, false
}

// Free returns a block to the free list. Unknown or repeated frees are
// logged and ignored.
func (fl *FreeList) Free(ptr, _, _ uint32) {
	if ptr == 0 {
		return
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()

	size, ok := fl.live[ptr]
	if !ok {
		Logger().Error("free of unallocated block", zap.Uint32("ptr", ptr))
		return
	}
	delete(fl.live, ptr)
	fl.stats.Frees++
	fl.stats.LiveBlocks--
	fl.stats.LiveBytes -= size
	fl.insert(span{off: ptr, size: size})
}

// insert adds s to the free list, merging with neighbours. Caller holds mu.
func (fl *FreeList) insert(s span) {
	i, _ := slices.BinarySearchFunc(fl.free, s.off, func(e span, off uint32) int {
		switch {
		case e.off < off:
			return -1
		case e.off > off:
			return 1
		}
		return 0
	})

	if i > 0 && fl.free[i-1].off+fl.free[i-1].size == s.off {
		i--
		fl.free[i].size += s.size
	} else {
		fl.free = slices.Insert(fl.free, i, s)
	}

	if i+1 < len(fl.free) && fl.free[i].off+fl.free[i].size == fl.free[i+1].off {
		fl.free[i].size += fl.free[i+1].size
		fl.free = slices.Delete(fl.free, i+1, i+2)
	}
}

// Stats returns a snapshot of allocator statistics.
func (fl *FreeList) Stats() Stats {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	st := fl.stats
	for _, s := range fl.free {
		st.FreeBytes += s.size
	}
	return st
}
