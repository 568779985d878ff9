package arena

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/joshuapare/segalloc/internal/buf"
)

// wasmPageSize is the WebAssembly page size (64 KiB).
const wasmPageSize = 1 << 16

// memoryModule is a minimal WASM module with 1 page of memory exported as "memory".
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// Wasm is an arena over a WebAssembly linear memory. Linear memory grows in
// whole pages and only at its high end, so the arena keeps its own break
// inside the committed pages and commits more pages on demand.
type Wasm struct {
	rt  wazero.Runtime
	mod api.Module
	mem api.Memory
	brk int
	max int
}

// NewWasm instantiates a wazero runtime hosting a single exported memory that
// can grow to maxSize bytes (rounded up to whole pages for the engine limit,
// enforced exactly by the arena). A non-positive maxSize selects
// DefaultMaxSize.
func NewWasm(ctx context.Context, maxSize int) (*Wasm, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	limit := max(1, (maxSize+wasmPageSize-1)/wasmPageSize)
	if limit > 65536 {
		return nil, fmt.Errorf("arena: wasm memory limit %d pages exceeds 4 GiB", limit)
	}

	cfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(uint32(limit))
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	mod, err := rt.Instantiate(ctx, memoryModule)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("arena: instantiate memory module: %w", err)
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("arena: module exports no memory")
	}
	return &Wasm{rt: rt, mod: mod, mem: mem, max: maxSize}, nil
}

// Grow advances the break by n bytes, committing pages as needed.
func (w *Wasm) Grow(n int) (int, error) {
	if w.mem == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrNegative
	}
	old := w.brk
	if !buf.FitsWithin(old, n, w.max) {
		return 0, fmt.Errorf("%w: grow %d at %d exceeds %d", ErrExhausted, n, old, w.max)
	}
	need := old + n
	if committed := int(w.mem.Size()); need > committed {
		pages := (need - committed + wasmPageSize - 1) / wasmPageSize
		if _, ok := w.mem.Grow(uint32(pages)); !ok {
			return 0, fmt.Errorf("%w: memory.grow by %d pages refused", ErrExhausted, pages)
		}
	}
	w.brk = need
	if view, ok := w.mem.Read(uint32(old), uint32(n)); ok {
		clear(view)
	}
	return old, nil
}

// Low returns the first valid offset.
func (w *Wasm) Low() int { return 0 }

// High returns one past the last valid offset.
func (w *Wasm) High() int { return w.brk }

// Bytes returns a view of linear memory up to the break. Writes through the
// view are visible to the guest; the view is invalidated by Grow.
func (w *Wasm) Bytes() []byte {
	if w.mem == nil {
		return nil
	}
	view, ok := w.mem.Read(0, uint32(w.brk))
	if !ok {
		return nil
	}
	return view
}

// Memory exposes the underlying linear memory, e.g. for sharing the heap
// with guest code.
func (w *Wasm) Memory() api.Memory { return w.mem }

// Committed returns the number of bytes of linear memory currently committed.
func (w *Wasm) Committed() int {
	if w.mem == nil {
		return 0
	}
	return int(w.mem.Size())
}

// Close releases the wazero runtime.
func (w *Wasm) Close(ctx context.Context) error {
	if w.rt == nil {
		return nil
	}
	err := w.rt.Close(ctx)
	w.rt, w.mod, w.mem = nil, nil, nil
	return err
}
