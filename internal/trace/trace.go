// Package trace reads and writes allocation traces in the malloc-lab text
// format.
//
// A trace starts with four header lines (suggested heap size, number of
// ids, number of operations, weight) followed by one operation per line:
//
//	a <id> <size>   allocate size bytes and bind the block to id
//	r <id> <size>   reallocate the block bound to id
//	f <id>          free the block bound to id
package trace

import (
	"errors"
	"fmt"
)

// Kind identifies a trace operation.
type Kind byte

const (
	Alloc   Kind = 'a'
	Realloc Kind = 'r'
	Free    Kind = 'f'
)

func (k Kind) String() string {
	switch k {
	case Alloc:
		return "alloc"
	case Realloc:
		return "realloc"
	case Free:
		return "free"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Op is one trace operation. Size is zero for Free.
type Op struct {
	Kind Kind
	ID   int
	Size int
	Line int // 1-based source line, 0 for generated traces
}

func (o Op) String() string {
	if o.Kind == Free {
		return fmt.Sprintf("%c %d", o.Kind, o.ID)
	}
	return fmt.Sprintf("%c %d %d", o.Kind, o.ID, o.Size)
}

// Trace is a parsed trace file.
type Trace struct {
	Name     string // file name or generator label
	HeapSize int    // suggested heap size (informational)
	NumIDs   int
	Weight   int
	Ops      []Op
}

var (
	// ErrHeader indicates a missing or malformed header line.
	ErrHeader = errors.New("trace: bad header")

	// ErrSyntax indicates a malformed operation line.
	ErrSyntax = errors.New("trace: syntax error")

	// ErrID indicates an id outside [0, NumIDs) or used out of order
	// (allocating a live id, reallocating or freeing a dead one).
	ErrID = errors.New("trace: bad id")

	// ErrCount indicates the number of operations differs from the header.
	ErrCount = errors.New("trace: operation count mismatch")
)

// Validate checks id ranges and liveness in operation order.
func (t *Trace) Validate() error {
	live := make([]bool, t.NumIDs)
	for _, op := range t.Ops {
		if op.ID < 0 || op.ID >= t.NumIDs {
			return opErr(op, ErrID, "id %d outside [0, %d)", op.ID, t.NumIDs)
		}
		switch op.Kind {
		case Alloc:
			if live[op.ID] {
				return opErr(op, ErrID, "id %d allocated twice", op.ID)
			}
			live[op.ID] = true
		case Realloc:
			if !live[op.ID] {
				return opErr(op, ErrID, "realloc of unallocated id %d", op.ID)
			}
		case Free:
			if !live[op.ID] {
				return opErr(op, ErrID, "free of unallocated id %d", op.ID)
			}
			live[op.ID] = false
		default:
			return opErr(op, ErrSyntax, "unknown operation %q", byte(op.Kind))
		}
		if op.Kind != Free && op.Size < 0 {
			return opErr(op, ErrSyntax, "negative size %d", op.Size)
		}
	}
	return nil
}

func opErr(op Op, sentinel error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if op.Line > 0 {
		return fmt.Errorf("%w: line %d: %s", sentinel, op.Line, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
