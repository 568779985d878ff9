package alloc

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/mem/arena"
	"github.com/joshuapare/segalloc/mem/verify"
)

// newTestAllocator builds an allocator over a fresh 20 MiB in-memory arena.
// Any checker failure raised through MustCheck fails the test.
func newTestAllocator(t testing.TB, cfg *Config) *Allocator {
	t.Helper()
	c := DefaultConfig
	if cfg != nil {
		c = *cfg
	}
	if c.OnCorruption == nil {
		c.OnCorruption = func(r *verify.Report) {
			t.Fatalf("heap corruption: %s", r)
		}
	}
	a, err := New(arena.NewMem(0), &c)
	require.NoError(t, err)
	return a
}

// captureLogger returns a debug-level logger writing text records to buf.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func requireHeapOK(t testing.TB, a *Allocator, label string) *verify.Report {
	t.Helper()
	r := a.Check(label)
	require.True(t, r.OK(), "%s", r)
	return r
}

func fill(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i*7)
	}
}

func requireFilled(t testing.TB, b []byte, seed byte, n int) {
	t.Helper()
	require.GreaterOrEqual(t, len(b), n)
	for i := range n {
		if b[i] != seed+byte(i*7) {
			t.Fatalf("byte %d = %#x, want %#x", i, b[i], seed+byte(i*7))
		}
	}
}

func mustMalloc(t testing.TB, a *Allocator, n int) Ptr {
	t.Helper()
	p, err := a.Malloc(n)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)
	return p
}
