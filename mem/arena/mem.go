package arena

import (
	"fmt"

	"github.com/joshuapare/segalloc/internal/buf"
)

// Mem is an in-process arena backed by a byte slice whose capacity is
// reserved up front, so growth never moves existing bytes.
type Mem struct {
	data []byte
	max  int
}

// NewMem creates an empty in-memory arena that can grow to maxSize bytes.
// A non-positive maxSize selects DefaultMaxSize.
func NewMem(maxSize int) *Mem {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Mem{data: make([]byte, 0, maxSize), max: maxSize}
}

// Grow extends the arena by n zeroed bytes.
func (m *Mem) Grow(n int) (int, error) {
	if n < 0 {
		return 0, ErrNegative
	}
	old := len(m.data)
	if !buf.FitsWithin(old, n, m.max) {
		return 0, fmt.Errorf("%w: grow %d at %d exceeds %d", ErrExhausted, n, old, m.max)
	}
	m.data = m.data[:old+n]
	clear(m.data[old:])
	return old, nil
}

// Low returns the first valid offset.
func (m *Mem) Low() int { return 0 }

// High returns one past the last valid offset.
func (m *Mem) High() int { return len(m.data) }

// Bytes returns the arena contents.
func (m *Mem) Bytes() []byte { return m.data }

// MaxSize returns the capacity limit.
func (m *Mem) MaxSize() int { return m.max }

// Reset discards all contents, keeping the reserved capacity.
func (m *Mem) Reset() { m.data = m.data[:0] }
