// Package format holds the byte-level layout of the allocator heap: the
// header/footer word encoding, block geometry constants, and little-endian
// accessors. Algorithmic code in mem/alloc never touches raw bits directly;
// it goes through the helpers here so the packing stays in one place.
package format

// Heap layout (offsets relative to the arena low bound):
//
//	Offset  Size  Description
//	0x00    4     Alignment pad (zero)
//	0x04    4     Prologue header   (size 8, allocated)
//	0x08    4     Prologue footer   (size 8, allocated)
//	0x0C    4     Header of the first real block
//	0x10    ...   Payload of the first real block (8-byte aligned)
//	...
//	hi-4    4     Epilogue header   (size 0, allocated)
//
// Block pointers (bp) always name the payload, never the header. A block's
// header lives at bp-4; a free block's footer lives at bp+size-8.
const (
	// WordSize is the size of a header or footer word.
	WordSize = 4

	// DWordSize is the double-word size; payloads are aligned to it.
	DWordSize = 8

	// Alignment is the payload and block-size alignment.
	Alignment = 8

	// AlignmentMask is Alignment - 1.
	AlignmentMask = Alignment - 1

	// LinkSize is the number of payload bytes a free block borrows for its
	// successor link.
	LinkSize = 8

	// MinBlockSize is the smallest block that can be linked into a free list:
	// header + link + footer.
	MinBlockSize = WordSize + LinkSize + WordSize

	// FragmentSize is the size of a free block too small to carry a link.
	// Such fragments are never indexed; they are absorbed by coalescing.
	FragmentSize = WordSize + WordSize

	// PrologueSize is the size of the prologue sentinel (header + footer).
	PrologueSize = 2 * WordSize

	// PrologueOffset is the block pointer of the prologue sentinel.
	PrologueOffset = 2 * WordSize

	// FirstBlockOffset is the block pointer of the first real block.
	FirstBlockOffset = PrologueOffset + PrologueSize

	// HeapOverhead is the number of arena bytes consumed by the alignment pad,
	// the prologue and the epilogue.
	HeapOverhead = WordSize + PrologueSize + WordSize

	// NumClasses is the number of segregated free-list buckets.
	NumClasses = 26

	// ClassShift anchors bucket 0 at 2^ClassShift bytes.
	ClassShift = 5

	// MaxBlockSize is the largest size representable in a header word.
	MaxBlockSize = SizeMask
)

// Header word bits.
const (
	// AllocBit is set when the block is allocated.
	AllocBit uint32 = 0x1

	// PrevAllocBit is set when the physically preceding block is allocated.
	PrevAllocBit uint32 = 0x2

	// SizeMask selects the size field of a header word.
	SizeMask uint32 = ^uint32(AlignmentMask)
)
