package heap

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	xpbridge "github.com/wippyai/xpcom-bridge"
	"github.com/wippyai/xpcom-bridge/errors"
)

// PageSize is the size of one linear memory page.
const PageSize = 65536

// Config configures a Linear heap.
type Config struct {
	// InitialPages is the number of pages committed up front. Default 1.
	InitialPages uint32
	// MaxPages bounds growth; allocations beyond it fail with out of
	// memory. Default 256 (16 MiB).
	MaxPages uint32
}

func (c Config) withDefaults() Config {
	if c.InitialPages == 0 {
		c.InitialPages = 1
	}
	if c.MaxPages == 0 {
		c.MaxPages = 256
	}
	if c.MaxPages < c.InitialPages {
		c.MaxPages = c.InitialPages
	}
	return c
}

// Linear is a native heap backed by a wazero linear memory.
type Linear struct {
	mem   api.Memory
	rt    wazero.Runtime
	mod   api.Module
	alloc *FreeList
}

var _ xpbridge.Heap = (*Linear)(nil)

// New instantiates a memory-only module and returns a heap over its memory.
func New(ctx context.Context, cfg Config) (*Linear, error) {
	cfg = cfg.withDefaults()

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(cfg.MaxPages))

	compiled, err := rt.CompileModule(ctx, memoryModule(cfg.InitialPages))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseInit, errors.KindInvalidInput, err, "compile heap module")
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("heap"))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseInit, errors.KindOutOfMemory, err, "instantiate heap module")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseInit, "export", "memory")
	}

	h := &Linear{
		mem: mem,
		rt:  rt,
		mod: mod,
	}
	h.alloc = NewFreeList(mem.Size(), h.grow)
	return h, nil
}

func (h *Linear) grow(minBytes uint32) (uint32, bool) {
	pages := (minBytes + PageSize - 1) / PageSize
	if _, ok := h.mem.Grow(pages); !ok {
		return 0, false
	}
	Logger().Debug("heap grown", zap.Uint32("pages", pages), zap.Uint32("size", h.mem.Size()))
	return h.mem.Size(), true
}

// Alloc allocates size bytes aligned to align.
func (h *Linear) Alloc(size, align uint32) (uint32, error) {
	return h.alloc.Alloc(size, align)
}

// Free releases a block returned by Alloc.
func (h *Linear) Free(ptr, size, align uint32) {
	h.alloc.Free(ptr, size, align)
}

// Stats returns allocator statistics.
func (h *Linear) Stats() Stats {
	return h.alloc.Stats()
}

// Size returns the current memory size in bytes.
func (h *Linear) Size() uint32 {
	return h.mem.Size()
}

// Close releases the underlying runtime.
func (h *Linear) Close(ctx context.Context) error {
	if err := h.rt.Close(ctx); err != nil {
		return fmt.Errorf("close heap runtime: %w", err)
	}
	return nil
}

// memoryModule encodes a module exporting one memory of initialPages.
func memoryModule(initialPages uint32) []byte {
	limits := append([]byte{0x00}, uleb128(initialPages)...)
	memSection := append([]byte{0x01}, limits...)

	mod := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	mod = append(mod, 0x05) // memory section
	mod = append(mod, uleb128(uint32(len(memSection)))...)
	mod = append(mod, memSection...)
	mod = append(mod,
		0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
		0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
		0x02, 0x00, // kind: memory, index 0
	)
	return mod
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
