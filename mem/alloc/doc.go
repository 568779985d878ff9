// Package alloc implements a segregated-fit dynamic memory allocator over a
// single growable arena.
//
// # Overview
//
// The allocator manages one arena.Arena, which can only be extended at its
// high end. Every allocation unit (a block) starts with a 4-byte header
// holding its size and two flag bits; free blocks additionally carry a footer
// and, when at least 16 bytes long, a successor link in their first payload
// bytes. Free blocks of 16 bytes or more are indexed in 26 power-of-two
// buckets searched first-fit.
//
// # Usage Example
//
//	a, err := alloc.New(arena.NewMem(0), nil)
//	if err != nil {
//	    return err
//	}
//
//	p, err := a.Malloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(a.Payload(p), data)
//
//	p, err = a.Realloc(p, 400)
//	// ...
//	_ = a.Free(p)
//
// # Pointers
//
// A Ptr is an arena-relative offset of a payload, never of a header. Nil is
// zero; no payload can start there. Payload returns a slice over the usable
// bytes of a live block. Slices obtained from Payload are invalidated by any
// call that may grow the arena (Malloc, Realloc, Calloc), because some arena
// backends remap on growth.
//
// # Size Classes
//
// Bucket k holds free blocks whose size is at most 2^(k+5) and more than
// half that:
//
//	Bucket 0:       16 -      32 bytes
//	Bucket 1:       33 -      64 bytes
//	Bucket 2:       65 -     128 bytes
//	...
//	Bucket 25:     > 2^29 bytes (saturating)
//
// Free blocks of exactly 8 bytes (header and footer, no room for a link) are
// never indexed; they are absorbed when a neighbour is freed or split.
//
// # Double Free
//
// Freeing a block that is already free is a no-op. As long as the address
// has not been handed out again by a later allocation, a double free is safe
// by construction.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Wrap an instance in Locked to
// share it between goroutines; each independent allocator must own its own
// arena.
//
// # Consistency Checking
//
// Check runs the mem/verify walkers over the heap and returns a report.
// MustCheck additionally logs and hands a failing report to
// Config.OnCorruption, which terminates the process by default. Setting
// Config.CheckEveryOp runs MustCheck after every public call.
package alloc
