package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshuapare/segalloc/internal/buf"
	"github.com/joshuapare/segalloc/internal/format"
)

// Violation types.
const (
	TypePrologue          = "Prologue"
	TypeEpilogue          = "Epilogue"
	TypeStructure         = "Structure"
	TypeCoalesce          = "Coalesce"
	TypePrevAlloc         = "PrevAlloc"
	TypeFooter            = "Footer"
	TypeFreeListAllocated = "FreeListAllocated"
	TypeFreeListClass     = "FreeListClass"
	TypeFreeListStray     = "FreeListStray"
	TypeFreeListDuplicate = "FreeListDuplicate"
	TypeFreeListMissing   = "FreeListMissing"
)

// ValidationError describes one violated heap invariant.
type ValidationError struct {
	Type    string
	Message string
	Offset  int // Offending block pointer, or -1
	Related int // Second block involved (e.g. the left neighbour), or -1
}

func (e *ValidationError) Error() string {
	switch {
	case e.Offset >= 0 && e.Related >= 0:
		return fmt.Sprintf("%s at 0x%X (with 0x%X): %s", e.Type, e.Offset, e.Related, e.Message)
	case e.Offset >= 0:
		return fmt.Sprintf("%s at 0x%X: %s", e.Type, e.Offset, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Heap is the input to Check.
type Heap struct {
	Data     []byte // Arena contents up to the current high bound
	Prologue int    // Block pointer of the prologue sentinel
	Heads    []int  // Free-list bucket heads (0 = empty)
}

// Report collects the outcome of one Check call.
type Report struct {
	Label      string
	Violations []*ValidationError

	Blocks     int // Real blocks walked (sentinels excluded)
	FreeBlocks int // Free blocks, fragments included
	Fragments  int // Free blocks too small to index
	Indexed    int // Entries reached through the free lists
	FreeBytes  int
	AllocBytes int
}

// OK reports whether no violation was found.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// Err returns all violations joined, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}
	return fmt.Errorf("heap check %q: %w", r.Label, errors.Join(errs...))
}

// Has reports whether a violation of the given type was recorded.
func (r *Report) Has(typ string) bool {
	for _, v := range r.Violations {
		if v.Type == typ {
			return true
		}
	}
	return false
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "heap check %q: %d blocks (%d free, %d fragments), %d indexed",
		r.Label, r.Blocks, r.FreeBlocks, r.Fragments, r.Indexed)
	for _, v := range r.Violations {
		sb.WriteString("\n  ")
		sb.WriteString(v.Error())
	}
	return sb.String()
}

func (r *Report) add(typ string, off, related int, msg string, args ...any) {
	r.Violations = append(r.Violations, &ValidationError{
		Type:    typ,
		Message: fmt.Sprintf(msg, args...),
		Offset:  off,
		Related: related,
	})
}

// Check validates the block chain and the free lists of h.
func Check(label string, h Heap) *Report {
	r := &Report{Label: label}
	indexable, ok := checkBlocks(r, h)
	if !ok {
		// Without a sound block chain the free-list membership checks
		// would only produce noise.
		return r
	}
	checkFreeLists(r, h, indexable)
	return r
}

// checkBlocks walks from the prologue to the epilogue. It returns the set of
// free blocks large enough to be indexed, and false if the walk could not
// reach the epilogue.
func checkBlocks(r *Report, h Heap) (map[int]bool, bool) {
	data := h.Data
	prologue, next, err := format.NextBlock(data, h.Prologue)
	if err != nil {
		r.add(TypePrologue, h.Prologue, -1, "cannot decode prologue: %v", err)
		return nil, false
	}
	if prologue.Free || prologue.Size != format.PrologueSize {
		r.add(TypePrologue, h.Prologue, -1, "unexpected prologue word %#x", prologue.Header)
		return nil, false
	}
	if ftr, _ := format.Footer(data, prologue); ftr != prologue.Header {
		r.add(TypePrologue, h.Prologue, -1, "prologue footer %#x != header %#x", ftr, prologue.Header)
	}

	indexable := make(map[int]bool)
	prev := prologue
	for {
		blk, after, err := format.NextBlock(data, next)
		if err != nil {
			r.add(TypeStructure, next, prev.Offset, "%v", err)
			return indexable, false
		}

		// Consistency with the left neighbour applies to the epilogue too.
		if prev.Free && blk.Free {
			r.add(TypeCoalesce, blk.Offset, prev.Offset, "two adjacent free blocks are not coalesced")
		}
		if !prev.Free && !blk.PrevAlloc {
			r.add(TypePrevAlloc, blk.Offset, prev.Offset,
				"left neighbour is allocated but prev_alloc bit is clear")
		}
		if prev.Free && blk.PrevAlloc {
			r.add(TypePrevAlloc, blk.Offset, prev.Offset,
				"left neighbour is free but prev_alloc bit is set")
		}

		if blk.Epilogue() {
			if blk.Offset != len(data) {
				r.add(TypeEpilogue, blk.Offset, -1,
					"epilogue ends at 0x%X, heap ends at 0x%X", blk.Offset, len(data))
			}
			return indexable, true
		}

		r.Blocks++
		if blk.Size%format.Alignment != 0 || blk.Size < format.FragmentSize {
			r.add(TypeStructure, blk.Offset, -1, "invalid block size %d", blk.Size)
			return indexable, false
		}
		if blk.Free {
			r.FreeBlocks++
			r.FreeBytes += blk.Size
			ftr, err := format.Footer(data, blk)
			if err != nil || ftr != blk.Header {
				r.add(TypeFooter, blk.Offset, -1,
					"free block has different header and footer: header %#o footer %#o", blk.Header, ftr)
			}
			if blk.Size >= format.MinBlockSize {
				indexable[blk.Offset] = true
			} else {
				r.Fragments++
			}
		} else {
			r.AllocBytes += blk.Size
		}

		prev = blk
		next = after
	}
}

// checkFreeLists walks every bucket. Chains are cut off after visiting as
// many entries as there are indexable blocks, which also catches cycles.
func checkFreeLists(r *Report, h Heap, indexable map[int]bool) {
	data := h.Data
	seen := make(map[int]bool, len(indexable))
	limit := len(indexable) + 1

	for k, bp := range h.Heads {
		steps := 0
		for bp != 0 {
			steps++
			if steps > limit {
				r.add(TypeFreeListDuplicate, bp, -1, "bucket %d does not terminate (cycle)", k)
				break
			}
			if !indexable[bp] {
				if w, ok := headerAt(data, bp); ok && format.IsAlloc(w) {
					r.add(TypeFreeListAllocated, bp, -1, "allocated block found on free list %d", k)
				} else {
					r.add(TypeFreeListStray, bp, -1, "bucket %d entry is not an indexable free block", k)
				}
				if !buf.Has(data, bp, format.LinkSize) {
					break
				}
				bp = int(buf.U64LE(data[bp:]))
				continue
			}
			if seen[bp] {
				r.add(TypeFreeListDuplicate, bp, -1, "block linked more than once (bucket %d)", k)
				break
			}
			seen[bp] = true
			r.Indexed++

			w, _ := headerAt(data, bp)
			if c := format.Class(format.SizeOf(w)); c != k {
				r.add(TypeFreeListClass, bp, -1, "block of size %d belongs in bucket %d, found in %d",
					format.SizeOf(w), c, k)
			}
			bp = int(buf.U64LE(data[bp:]))
		}
	}

	for bp := range indexable {
		if !seen[bp] {
			r.add(TypeFreeListMissing, bp, -1, "free block is not reachable from any bucket")
		}
	}
}

func headerAt(data []byte, bp int) (uint32, bool) {
	off := format.HeaderOffset(bp)
	if off < 0 || !buf.Has(data, off, format.WordSize) {
		return 0, false
	}
	return format.ReadU32(data, off), true
}
