package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/internal/trace"
)

var genProfile trace.Profile

func init() {
	cmd := newGenCmd()
	cmd.Flags().IntVar(&genProfile.NumOps, "ops", 1000, "Number of operations")
	cmd.Flags().IntVar(&genProfile.MinSize, "min-size", 1, "Smallest request size")
	cmd.Flags().IntVar(&genProfile.MaxSize, "max-size", 4096, "Largest request size")
	cmd.Flags().Float64Var(&genProfile.FreePct, "free-pct", 0.35, "Probability of freeing a live block")
	cmd.Flags().Float64Var(&genProfile.ReallocPct, "realloc-pct", 0.15, "Probability of reallocating a live block")
	cmd.Flags().Int64Var(&genProfile.Seed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen <out>",
		Short: "Generate a random trace",
		Long: `The gen command writes a random, valid trace in which every allocated
block is eventually freed. Use "-" to write to standard output.

Example:
  mmdriver gen --ops 5000 --seed 7 random7.rep
  mmdriver gen --max-size 64 - | head`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd, args[0])
		},
	}
}

func runGen(cmd *cobra.Command, out string) error {
	tr := trace.Generate(genProfile)
	if out == "-" {
		return trace.Write(cmd.OutOrStdout(), tr)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := trace.Write(f, tr); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printInfo(cmd, "Wrote %s operations on %s ids to %s\n",
		formatCount(len(tr.Ops)), formatCount(tr.NumIDs), out)
	return nil
}
