package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/internal/format"
	"github.com/joshuapare/segalloc/internal/logger"
	"github.com/joshuapare/segalloc/internal/trace"
	"github.com/joshuapare/segalloc/mem/alloc"
	"github.com/joshuapare/segalloc/mem/arena"
	"github.com/joshuapare/segalloc/mem/driver"
)

func init() {
	cmd := newCheckCmd()
	cmd.Flags().StringVar(&runArena, "arena", "mem", "Arena backend: mem, file or wasm")
	cmd.Flags().IntVar(&runMaxSize, "max-size", arena.DefaultMaxSize, "Maximum arena size in bytes")
	cmd.Flags().StringVar(&runHeapDir, "heap-dir", "", "Directory for file arenas (default: a temporary directory)")
	cmd.Flags().IntVar(&runChunkSize, "chunk-size", 0, "Minimum heap extension in bytes (default 2112)")
	rootCmd.AddCommand(cmd)
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <trace>...",
		Short: "Replay traces with the heap checker after every operation",
		Long: `The check command replays each trace with full consistency checking and
prints the final heap census: block counts and the free-list histogram.

Example:
  mmdriver check short1.rep
  mmdriver check --json --arena file realloc.rep`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkTraces(cmd, args)
		},
	}
}

// bucketCount is the population of one free-list bucket.
type bucketCount struct {
	Class  int `json:"class"`
	Limit  int `json:"limit"`
	Blocks int `json:"blocks"`
	Bytes  int `json:"bytes"`
}

type checkResult struct {
	Trace      string        `json:"trace"`
	Ops        int           `json:"ops"`
	Blocks     int           `json:"blocks"`
	FreeBlocks int           `json:"free_blocks"`
	Fragments  int           `json:"fragments"`
	FreeBytes  int           `json:"free_bytes"`
	AllocBytes int           `json:"alloc_bytes"`
	HeapSize   int           `json:"heap_size"`
	Buckets    []bucketCount `json:"buckets"`
	Violations []string      `json:"violations,omitempty"`
}

func checkTraces(cmd *cobra.Command, paths []string) error {
	ctx := cmd.Context()
	var results []*checkResult
	failed := 0

	for _, path := range paths {
		tr, err := trace.ParseFile(path)
		if err != nil {
			printError(cmd, "%v\n", err)
			failed++
			continue
		}
		res, err := checkTrace(ctx, tr)
		if err != nil {
			printError(cmd, "%s: %v\n", tr.Name, err)
			failed++
			continue
		}
		if len(res.Violations) > 0 {
			failed++
		}
		results = append(results, res)
	}

	if jsonOut {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		color := useColor(cmd.OutOrStdout())
		for _, r := range results {
			printInfo(cmd, "%s\n", renderCheck(r, color))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d traces failed", failed, len(paths))
	}
	return nil
}

func checkTrace(ctx context.Context, tr *trace.Trace) (*checkResult, error) {
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
	res, err := driver.Replay(a, tr, &driver.Options{Check: true, Logger: logger.L})
	if err != nil {
		return nil, err
	}

	rep := a.Check(tr.Name)
	out := &checkResult{
		Trace:      tr.Name,
		Ops:        res.Ops,
		Blocks:     rep.Blocks,
		FreeBlocks: rep.FreeBlocks,
		Fragments:  rep.Fragments,
		FreeBytes:  rep.FreeBytes,
		AllocBytes: rep.AllocBytes,
		HeapSize:   a.HeapSize(),
		Buckets:    bucketCounts(a),
	}
	for _, v := range rep.Violations {
		out.Violations = append(out.Violations, v.Error())
	}
	logger.Info("heap check complete", "trace", tr.Name, "blocks", rep.Blocks, "violations", len(rep.Violations))
	return out, nil
}

// bucketCounts lists the non-empty free-list buckets of a.
func bucketCounts(a *alloc.Allocator) []bucketCount {
	sizes := make(map[alloc.Ptr]int)
	a.Walk(func(b alloc.Block) bool {
		if b.Free {
			sizes[b.Ptr] = b.Size
		}
		return true
	})

	var out []bucketCount
	for k, ptrs := range a.FreeBlocks() {
		if len(ptrs) == 0 {
			continue
		}
		bc := bucketCount{Class: k, Limit: classLimit(k), Blocks: len(ptrs)}
		for _, p := range ptrs {
			bc.Bytes += sizes[p]
		}
		out = append(out, bc)
	}
	return out
}

// classLimit returns the largest size held by bucket k, or 0 for the
// unbounded last bucket.
func classLimit(k int) int {
	if k == format.NumClasses-1 {
		return 0
	}
	return 1 << (k + format.ClassShift)
}

var bucketHeaders = []string{"Class", "Sizes", "Blocks", "Bytes"}

func renderCheck(r *checkResult, color bool) string {
	status := "ok"
	if len(r.Violations) > 0 {
		status = fmt.Sprintf("%d violations", len(r.Violations))
	}
	head := fmt.Sprintf("%s: %s, %s blocks (%s free, %s fragments), heap %s bytes",
		r.Trace, status, formatCount(r.Blocks), formatCount(r.FreeBlocks),
		formatCount(r.Fragments), formatCount(r.HeapSize))
	if color {
		st := lipgloss.NewStyle().Bold(true).Foreground(successColor)
		if len(r.Violations) > 0 {
			st = st.Foreground(warningColor)
		}
		head = st.Render(head)
	}
	for _, v := range r.Violations {
		head += "\n  " + v
	}
	if len(r.Buckets) == 0 {
		return head
	}

	rows := make([][]string, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		sizes := "<= " + formatCount(b.Limit)
		if b.Limit == 0 {
			sizes = "> " + formatCount(1<<(b.Class+format.ClassShift-1))
		}
		rows = append(rows, []string{strconv.Itoa(b.Class), sizes, formatCount(b.Blocks), formatCount(b.Bytes)})
	}
	t := table.New().Headers(bucketHeaders...).Rows(rows...)
	if !color {
		t = t.Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	} else {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tableHeaderStyle
				}
				return cellStyle
			})
	}
	return head + "\n" + t.String()
}
