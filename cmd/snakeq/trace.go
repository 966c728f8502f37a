package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeq/internal/export"
	"github.com/vovakirdan/snakeq/internal/qlearn"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Summarize a parquet trace",
	Long: `Read a trace written by 'snakeq train --trace' and print its totals.

Examples:
  snakeq trace ./trace.parquet`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func runTrace(_ *cobra.Command, args []string) error {
	rows, err := export.ReadTrace(args[0])
	if err != nil {
		return err
	}
	s := export.Summarize(rows)

	fmt.Printf("Trace - %s\n", args[0])
	fmt.Println()
	fmt.Printf("  Ticks:       %d\n", s.Rows)
	fmt.Printf("  Episodes:    %d\n", s.Episodes)
	fmt.Printf("  Deaths:      %d\n", s.Deaths)
	fmt.Printf("  Meals:       %d\n", s.Meals)
	fmt.Printf("  Best score:  %d\n", s.BestScore)
	fmt.Printf("  Mean reward: %.3f\n", s.MeanReward)
	fmt.Println()
	fmt.Println("  Actions")
	for i, n := range s.Actions {
		fmt.Printf("    %-9s %d\n", qlearn.ActionAt(i), n)
	}
	return nil
}
