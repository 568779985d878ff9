package alloc

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/segalloc/internal/format"
	"github.com/joshuapare/segalloc/mem/verify"
)

// Config tunes heap growth and diagnostics.
type Config struct {
	// ChunkSize is the minimum arena extension. Requests of at least this
	// size extend the arena by exactly the request.
	ChunkSize int

	// InitialSize is the size of the free block created when the heap is
	// initialised.
	InitialSize int

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger

	// CheckEveryOp runs MustCheck after every public call.
	CheckEveryOp bool

	// OnCorruption is invoked by MustCheck with a failing report. Nil
	// selects a handler that prints the report and exits with status 1.
	OnCorruption func(*verify.Report)
}

// DefaultConfig holds the tuned growth parameters.
var DefaultConfig = Config{
	ChunkSize:   2112,
	InitialSize: 1504,
}

// withDefaults fills zero fields from DefaultConfig and validates the result.
func (c Config) withDefaults() (Config, error) {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultConfig.ChunkSize
	}
	if c.InitialSize == 0 {
		c.InitialSize = DefaultConfig.InitialSize
	}
	if c.ChunkSize < format.MinBlockSize || c.ChunkSize%format.Alignment != 0 {
		return c, fmt.Errorf("%w: chunk size %d must be a multiple of 8 and >= %d",
			ErrConfig, c.ChunkSize, format.MinBlockSize)
	}
	if c.InitialSize < format.MinBlockSize || c.InitialSize%format.Alignment != 0 {
		return c, fmt.Errorf("%w: initial size %d must be a multiple of 8 and >= %d",
			ErrConfig, c.InitialSize, format.MinBlockSize)
	}
	if uint64(c.ChunkSize) > uint64(format.MaxBlockSize) || uint64(c.InitialSize) > uint64(format.MaxBlockSize) {
		return c, fmt.Errorf("%w: sizes must fit a header word", ErrConfig)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.OnCorruption == nil {
		c.OnCorruption = exitOnCorruption
	}
	return c, nil
}

func exitOnCorruption(r *verify.Report) {
	fmt.Fprintln(os.Stderr, r)
	os.Exit(1)
}
