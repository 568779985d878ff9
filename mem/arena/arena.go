// Package arena provides the growable linear memory regions the allocator
// manages. An Arena can only be extended at its high end; it never shrinks
// and never moves offsets, although the byte slice backing it may be
// remapped by a Grow call.
//
// # Implementations
//
//   - Mem: an in-process byte slice with a fixed maximum size
//   - File: a memory-mapped file, grown by truncate + remap
//   - Wasm: a WebAssembly linear memory hosted by wazero
//
// # Thread Safety
//
// Arenas are not thread-safe. They are driven by a single allocator which is
// itself single-threaded.
package arena

import "errors"

// Arena is the sbrk-style collaborator consumed by mem/alloc.
type Arena interface {
	// Grow extends the arena by n bytes and returns the offset of the first
	// new byte. Growth either succeeds completely or fails without changing
	// the arena.
	Grow(n int) (int, error)

	// Low returns the first valid offset.
	Low() int

	// High returns one past the last valid offset.
	High() int

	// Bytes returns a view of [0, High). The view is invalidated by Grow.
	Bytes() []byte
}

var (
	// ErrExhausted indicates the arena cannot grow by the requested amount.
	ErrExhausted = errors.New("arena: out of memory")

	// ErrNegative indicates a negative growth request.
	ErrNegative = errors.New("arena: negative growth")

	// ErrClosed indicates use of an arena after Close.
	ErrClosed = errors.New("arena: closed")
)

// DefaultMaxSize is the default capacity limit for arenas (20 MiB).
const DefaultMaxSize = 20 << 20
