// Command asm86lift reads the fixed input assembly file and writes the
// annotated pseudo-C transcription to the fixed output path in the
// working directory, per spec.md §6: no flags, no environment
// variables, exit code zero on success and nonzero on I/O or parse
// error.
package main

import (
	"fmt"
	"os"

	"github.com/oisee/asm86lift/pkg/diag"
	"github.com/oisee/asm86lift/pkg/lift"
	"github.com/spf13/cobra"
)

const (
	inputPath  = "input.asm"
	outputPath = "output.c"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "asm86lift",
		Short:   "Lift an 8086 assembly source file into annotated pseudo-C",
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "asm86lift: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	out := lift.Run(src, diag.Stderr("asm86lift"))

	if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return nil
}
