package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var headerFields = [...]string{"heap size", "number of ids", "number of operations", "weight"}

// Parse reads a trace from r and validates it.
func Parse(r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)
	t := &Trace{}
	var header [len(headerFields)]int
	seen := 0
	numOps := 0
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if seen < len(header) {
			n, err := strconv.Atoi(text)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: line %d: %s %q", ErrHeader, line, headerFields[seen], text)
			}
			header[seen] = n
			seen++
			if seen == len(header) {
				t.HeapSize, t.NumIDs, numOps, t.Weight = header[0], header[1], header[2], header[3]
				t.Ops = make([]Op, 0, numOps)
			}
			continue
		}
		op, err := parseOp(text, line)
		if err != nil {
			return nil, err
		}
		t.Ops = append(t.Ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: scanning: %w", err)
	}
	if seen < len(header) {
		return nil, fmt.Errorf("%w: missing %s", ErrHeader, headerFields[seen])
	}
	if len(t.Ops) != numOps {
		return nil, fmt.Errorf("%w: header says %d, found %d", ErrCount, numOps, len(t.Ops))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseFile parses the trace at path and names it after the file.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Name = filepath.Base(path)
	return t, nil
}

func parseOp(text string, line int) (Op, error) {
	fields := strings.Fields(text)
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("%w: line %d: unknown operation %q", ErrSyntax, line, fields[0])
	}
	op := Op{Kind: Kind(fields[0][0]), Line: line}

	want := 3
	switch op.Kind {
	case Alloc, Realloc:
	case Free:
		want = 2
	default:
		return Op{}, fmt.Errorf("%w: line %d: unknown operation %q", ErrSyntax, line, fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%w: line %d: %s takes %d operands, got %d",
			ErrSyntax, line, op.Kind, want-1, len(fields)-1)
	}

	var err error
	if op.ID, err = strconv.Atoi(fields[1]); err != nil {
		return Op{}, fmt.Errorf("%w: line %d: id %q", ErrSyntax, line, fields[1])
	}
	if want == 3 {
		if op.Size, err = strconv.Atoi(fields[2]); err != nil || op.Size < 0 {
			return Op{}, fmt.Errorf("%w: line %d: size %q", ErrSyntax, line, fields[2])
		}
	}
	return op, nil
}

// Write serialises t in the trace format.
func Write(w io.Writer, t *Trace) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", t.HeapSize, t.NumIDs, len(t.Ops), t.Weight)
	for _, op := range t.Ops {
		bw.WriteString(op.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
