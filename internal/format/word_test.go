package format

import "testing"

func TestPackRoundTrip(t *testing.T) {
	sizes := []uint32{0, 8, 16, 24, 1504, 2112, 1 << 20, MaxBlockSize}
	for _, size := range sizes {
		for _, alloc := range []bool{false, true} {
			for _, prev := range []bool{false, true} {
				w := Pack(size, alloc, prev)
				if SizeOf(w) != size {
					t.Fatalf("Pack(%d,%v,%v): size=%d", size, alloc, prev, SizeOf(w))
				}
				if IsAlloc(w) != alloc {
					t.Fatalf("Pack(%d,%v,%v): alloc=%v", size, alloc, prev, IsAlloc(w))
				}
				if IsPrevAlloc(w) != prev {
					t.Fatalf("Pack(%d,%v,%v): prevAlloc=%v", size, alloc, prev, IsPrevAlloc(w))
				}
			}
		}
	}
}

func TestPackSentinelWords(t *testing.T) {
	// Prologue and epilogue words as they appear in a freshly initialised heap.
	if got := Pack(PrologueSize, true, false); got != 9 {
		t.Fatalf("prologue word = %d, want 9", got)
	}
	if got := Pack(0, true, false); got != 1 {
		t.Fatalf("epilogue word = %d, want 1", got)
	}
	if got := Pack(16, false, true); got != 18 {
		t.Fatalf("free block after allocated = %d, want 18", got)
	}
}

func TestWithPrevAllocLeavesSize(t *testing.T) {
	w := Pack(48, true, false)
	w = WithPrevAlloc(w, true)
	if SizeOf(w) != 48 || !IsAlloc(w) || !IsPrevAlloc(w) {
		t.Fatalf("set: unexpected word %#x", w)
	}
	w = WithPrevAlloc(w, false)
	if SizeOf(w) != 48 || !IsAlloc(w) || IsPrevAlloc(w) {
		t.Fatalf("clear: unexpected word %#x", w)
	}
}

func TestHeaderFooterOffsets(t *testing.T) {
	if got := HeaderOffset(FirstBlockOffset); got != 12 {
		t.Fatalf("HeaderOffset = %d", got)
	}
	if got := FooterOffset(16, 32); got != 40 {
		t.Fatalf("FooterOffset = %d", got)
	}
	// A fragment's footer sits directly at its block pointer.
	if got := FooterOffset(64, FragmentSize); got != 64 {
		t.Fatalf("fragment FooterOffset = %d", got)
	}
}
