// Package verify provides consistency checks for allocator heaps.
//
// # Overview
//
// The checks operate on a raw heap image plus the free-list bucket heads, so
// they can validate a live allocator, a heap read back from a file-backed
// arena, or a hand-built fixture in a test. Nothing here mutates the heap.
//
// Validation categories:
//   - Prologue / Epilogue: sentinel words at both ends of the heap
//   - Structure: every block decodes, sizes are 8-byte multiples
//   - Coalesce: no two physically adjacent free blocks
//   - PrevAlloc: each block's cached prev-allocated bit matches reality
//   - Footer: a free block's footer equals its header
//   - FreeList*: bucket entries are free, correctly classed, linked once,
//     and every indexable free block is reachable from its bucket
//
// # Quick Start
//
//	r := verify.Check("after-free", verify.Heap{
//	    Data:     data,
//	    Prologue: prologue,
//	    Heads:    heads,
//	})
//	if !r.OK() {
//	    fmt.Println(r)
//	}
//
// # Failure Policy
//
// Check never aborts. It returns every violation it finds so the caller (a
// test, the trace driver, or alloc.MustCheck) decides whether to stop.
package verify
