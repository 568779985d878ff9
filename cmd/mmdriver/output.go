package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numbers formats counts with grouped thousands.
var numbers = message.NewPrinter(language.English)

// printInfo prints an info message if not in quiet mode
func printInfo(cmd *cobra.Command, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

// printError prints an error message
func printError(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(cmd *cobra.Command, format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// useColor reports whether styled output should be emitted to w.
func useColor(w io.Writer) bool {
	if noColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func formatCount(n int) string {
	return numbers.Sprintf("%d", n)
}

func formatRate(opsPerSec float64) string {
	return numbers.Sprintf("%.0f", opsPerSec)
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", 100*f)
}
