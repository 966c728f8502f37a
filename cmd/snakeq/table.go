package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeq/internal/qlearn"
)

var flagTableDump bool

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Inspect the value table",
	Long: `Print statistics about the learned value table: the number of visited
states, how often each action is the greedy choice and how many states
were never updated. With --dump every state is printed with its values.

Examples:
  snakeq table
  snakeq table --table ./runs/q.txt --dump`,
	Args: cobra.NoArgs,
	RunE: runTable,
}

func init() {
	tableCmd.Flags().BoolVar(&flagTableDump, "dump", false, "Print every state and its values")
}

func runTable(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := qlearn.ReadTableFile(cfg.Persistence.TablePath)
	if err != nil {
		return err
	}

	fmt.Printf("Value table - %s\n", cfg.Persistence.TablePath)
	fmt.Println()

	if table.Len() == 0 {
		fmt.Println("The table is empty.")
		fmt.Println()
		fmt.Println("Run 'snakeq train' to fill it.")
		return nil
	}

	var greedy [qlearn.NumActions]int
	untouched := 0
	for _, s := range table.States() {
		v, _ := table.Lookup(s)
		if v == (qlearn.Values{}) {
			untouched++
			continue
		}
		greedy[v.Best()]++
	}

	fmt.Printf("  States:     %d (of %d possible)\n", table.Len(), 1<<12)
	fmt.Printf("  Untouched:  %d\n", untouched)
	fmt.Println()
	fmt.Println("  Greedy action")
	for i, n := range greedy {
		fmt.Printf("    %-9s %d\n", qlearn.ActionAt(i), n)
	}

	if flagTableDump {
		fmt.Println()
		for _, s := range table.States() {
			v, _ := table.Lookup(s)
			fmt.Printf("  %s  %v  -> %s\n", s, v, qlearn.ActionAt(v.Best()))
		}
	}

	return nil
}
