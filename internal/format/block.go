package format

import (
	"fmt"

	"github.com/joshuapare/segalloc/internal/buf"
)

// Block is a decoded view of one heap block (free or allocated).
//
// Block layout (little-endian):
//
//	Offset     Size  Description
//	bp-4       4     Header: size | prevAlloc<<1 | alloc
//	bp         8     Successor link (free blocks of size >= 16 only)
//	bp+size-8  4     Footer, identical to the header (free blocks only)
type Block struct {
	Offset    int    // Block pointer (payload offset)
	Size      int    // Total size including header
	Free      bool   // True when the allocated bit is clear
	PrevAlloc bool   // Cached allocation state of the preceding block
	Header    uint32 // Raw header word
}

// Epilogue reports whether the block is the zero-size terminator.
func (b Block) Epilogue() bool { return b.Size == 0 && !b.Free }

// NextBlock decodes the block at bp and returns it together with the block
// pointer of its successor. The epilogue decodes successfully with next == bp.
func NextBlock(b []byte, bp int) (Block, int, error) {
	hdr := HeaderOffset(bp)
	if hdr < 0 || !buf.Has(b, hdr, WordSize) {
		return Block{}, 0, fmt.Errorf("block %#x: %w", bp, ErrTruncated)
	}
	if bp&AlignmentMask != 0 {
		return Block{}, 0, fmt.Errorf("block %#x: %w", bp, ErrMisaligned)
	}
	w := buf.U32LE(b[hdr:])
	blk := Block{
		Offset:    bp,
		Size:      int(SizeOf(w)),
		Free:      !IsAlloc(w),
		PrevAlloc: IsPrevAlloc(w),
		Header:    w,
	}
	if blk.Size == 0 {
		if blk.Free {
			return Block{}, 0, fmt.Errorf("block %#x: %w", bp, ErrZeroSize)
		}
		return blk, bp, nil
	}
	next, ok := buf.AddOverflowSafe(bp, blk.Size)
	if !ok || !buf.Has(b, HeaderOffset(next), WordSize) {
		return Block{}, 0, fmt.Errorf("block %#x size %d: %w", bp, blk.Size, ErrTruncated)
	}
	return blk, next, nil
}

// Footer returns the raw footer word of a free block.
func Footer(b []byte, blk Block) (uint32, error) {
	off := FooterOffset(blk.Offset, uint32(blk.Size))
	if !buf.Has(b, off, WordSize) {
		return 0, fmt.Errorf("footer of %#x: %w", blk.Offset, ErrTruncated)
	}
	return buf.U32LE(b[off:]), nil
}
