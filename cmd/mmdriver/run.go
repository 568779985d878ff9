package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/internal/logger"
	"github.com/joshuapare/segalloc/internal/trace"
	"github.com/joshuapare/segalloc/mem/alloc"
	"github.com/joshuapare/segalloc/mem/arena"
	"github.com/joshuapare/segalloc/mem/driver"
)

var (
	runArena     string
	runMaxSize   int
	runCheck     bool
	runHeapDir   string
	runChunkSize int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVar(&runArena, "arena", "mem", "Arena backend: mem, file or wasm")
	cmd.Flags().IntVar(&runMaxSize, "max-size", arena.DefaultMaxSize, "Maximum arena size in bytes")
	cmd.Flags().BoolVar(&runCheck, "check", false, "Run the heap checker after every operation")
	cmd.Flags().StringVar(&runHeapDir, "heap-dir", "", "Directory for file arenas (default: a temporary directory)")
	cmd.Flags().IntVar(&runChunkSize, "chunk-size", 0, "Minimum heap extension in bytes (default 2112)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>...",
		Short: "Replay traces and report utilisation and throughput",
		Long: `The run command replays each trace against a fresh allocator, checking
alignment, bounds, overlap and payload integrity of every block.

Example:
  mmdriver run traces/*.rep
  mmdriver run --arena wasm --check short1.rep
  mmdriver run --json amptjp.rep`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraces(cmd, args)
		},
	}
	return cmd
}

// summary aggregates a run over several traces.
type summary struct {
	Traces     int     `json:"traces"`
	Failed     int     `json:"failed"`
	Ops        int     `json:"ops"`
	MeanUtil   float64 `json:"mean_utilization"`
	Throughput float64 `json:"ops_per_sec"`
}

type runReport struct {
	Results []*driver.Result `json:"results"`
	Summary summary          `json:"summary"`
}

func runTraces(cmd *cobra.Command, paths []string) error {
	ctx := cmd.Context()
	var results []*driver.Result
	failed := 0

	for _, path := range paths {
		printVerbose(cmd, "Replaying %s\n", path)
		tr, err := trace.ParseFile(path)
		if err != nil {
			printError(cmd, "%v\n", err)
			failed++
			continue
		}
		res, err := replayTrace(ctx, tr)
		if err != nil {
			printError(cmd, "%s: %v\n", tr.Name, err)
			failed++
			continue
		}
		results = append(results, res)
	}

	sum := summarize(results)
	sum.Traces, sum.Failed = len(paths), failed

	if jsonOut {
		if err := printJSON(cmd.OutOrStdout(), runReport{Results: results, Summary: sum}); err != nil {
			return err
		}
	} else if len(results) > 0 && !quiet {
		printInfo(cmd, "%s\n", renderResults(results, sum, useColor(cmd.OutOrStdout())))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d traces failed", failed, len(paths))
	}
	return nil
}

func summarize(results []*driver.Result) summary {
	var s summary
	var elapsed time.Duration
	for _, r := range results {
		s.Ops += r.Ops
		s.MeanUtil += r.Util
		elapsed += r.Elapsed
	}
	if len(results) > 0 {
		s.MeanUtil /= float64(len(results))
	}
	if elapsed > 0 {
		s.Throughput = float64(s.Ops) / elapsed.Seconds()
	}
	return s
}

func replayTrace(ctx context.Context, tr *trace.Trace) (*driver.Result, error) {
	ar, release, err := newArena(ctx, tr.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := release(); cerr != nil {
			logger.Warn("releasing arena failed", "trace", tr.Name, "error", cerr)
		}
	}()

	a, err := alloc.New(ar, &alloc.Config{ChunkSize: runChunkSize, Logger: logger.L})
	if err != nil {
		return nil, err
	}
	res, err := driver.Replay(a, tr, &driver.Options{Check: runCheck, Logger: logger.L})
	if err != nil {
		return nil, err
	}
	logger.Info("trace complete",
		"trace", tr.Name, "arena", runArena, "util", res.Util, "ops_per_sec", res.Throughput)
	return res, nil
}

// newArena builds the backend selected by --arena and a function that
// releases it.
func newArena(ctx context.Context, name string) (arena.Arena, func() error, error) {
	switch runArena {
	case "mem":
		return arena.NewMem(runMaxSize), func() error { return nil }, nil

	case "file":
		dir, cleanup := runHeapDir, func() error { return nil }
		if dir == "" {
			tmp, err := os.MkdirTemp("", "mmdriver-")
			if err != nil {
				return nil, nil, err
			}
			dir, cleanup = tmp, func() error { return os.RemoveAll(tmp) }
		}
		f, err := arena.CreateFile(filepath.Join(dir, name+".heap"), runMaxSize)
		if err != nil {
			_ = cleanup()
			return nil, nil, err
		}
		return f, func() error {
			err := f.Close()
			if cerr := cleanup(); err == nil {
				err = cerr
			}
			return err
		}, nil

	case "wasm":
		w, err := arena.NewWasm(ctx, runMaxSize)
		if err != nil {
			return nil, nil, err
		}
		return w, func() error { return w.Close(ctx) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown arena %q (want mem, file or wasm)", runArena)
	}
}
