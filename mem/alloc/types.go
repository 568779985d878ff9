package alloc

// Ptr is the arena-relative offset of a block payload.
type Ptr uint32

// Nil is the null pointer.
const Nil Ptr = 0

// Block describes one heap block as seen by Walk.
type Block struct {
	Ptr       Ptr  // Payload offset
	Size      int  // Total size including the header
	Free      bool // Allocated bit clear
	PrevAlloc bool // Cached state of the left neighbour
}

// Stats holds allocator counters.
type Stats struct {
	MallocCalls  int // Malloc calls, including those made by Realloc and Calloc
	FreeCalls    int // Free calls, including those made by Realloc
	ReallocCalls int
	CallocCalls  int

	GrowCalls int   // Successful arena extensions
	GrowBytes int64 // Bytes added by arena extensions

	Splits           int // Blocks split with a non-empty remainder
	CoalesceForward  int // Merges with the right neighbour
	CoalesceBackward int // Merges with the left neighbour
	DoubleFrees      int // Free calls on blocks already free

	ReallocPrev   int // Grown by absorbing the left neighbour
	ReallocBoth   int // Grown by absorbing both neighbours
	ReallocShrink int // Satisfied by the block itself
	ReallocNext   int // Grown by absorbing the right neighbour
	ReallocCopy   int // Fell back to free + malloc + copy

	ListMisses int // Removals of blocks missing from their bucket
}
