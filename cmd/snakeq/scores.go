package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/snakeq/internal/platform/tui"
	"github.com/vovakirdan/snakeq/internal/storage"
)

var (
	flagScoresSource string
	flagScoresLimit  int
	flagScoresClear  bool
	flagScoresPlain  bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the best episodes and recent runs",
	Long: `Display the best recorded episodes, per-source totals and the most
recent runs. On a terminal an interactive scoreboard opens unless --plain
is given.

Examples:
  snakeq scores
  snakeq scores --plain --source agent --limit 20
  snakeq scores --clear`,
	Args: cobra.NoArgs,
	RunE: runScores,
}

func init() {
	scoresCmd.Flags().StringVar(&flagScoresSource, "source", "", "Only show episodes of this source")
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 10, "Number of episodes and runs to show")
	scoresCmd.Flags().BoolVar(&flagScoresClear, "clear", false, "Delete every recorded run and episode")
	scoresCmd.Flags().BoolVar(&flagScoresPlain, "plain", false, "Print tables instead of opening the scoreboard")
}

func runScores(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Persistence.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if flagScoresClear {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("Run history cleared.")
		return nil
	}

	fd := int(os.Stdout.Fd())
	if !flagScoresPlain && term.IsTerminal(fd) {
		width, height := 80, 24
		if w, h, termErr := term.GetSize(fd); termErr == nil {
			width, height = w, h
		}
		return tui.RunScoreboard(store, width, height)
	}

	return printScores(store)
}

func printScores(store *storage.Store) error {
	episodes, err := store.TopEpisodes(flagScoresSource, flagScoresLimit)
	if err != nil {
		return err
	}

	title := "all sources"
	if flagScoresSource != "" {
		title = flagScoresSource
	}
	fmt.Printf("Best Episodes - %s\n", title)
	fmt.Println()

	if len(episodes) == 0 {
		fmt.Println("No episodes recorded yet.")
		fmt.Println()
		fmt.Println("Run 'snakeq train' or 'snakeq play' to record some!")
		return nil
	}

	fmt.Printf("  %-4s  %-6s  %-6s  %-6s  %-6s  %-10s  %s\n", "Rank", "Score", "Length", "Ticks", "Death", "Source", "Date")
	fmt.Printf("  %-4s  %-6s  %-6s  %-6s  %-6s  %-10s  %s\n", "----", "-----", "------", "-----", "-----", "------", "----")
	for i, e := range episodes {
		fmt.Printf("  %-4d  %-6d  %-6d  %-6d  %-6s  %-10s  %s\n",
			i+1, e.Score, e.Length, e.Ticks, e.Cause, e.Source, e.CreatedAt.Format("2006-01-02 15:04"))
	}

	stats, err := store.AllSourcesStats()
	if err != nil {
		return err
	}
	sources := make([]string, 0, len(stats))
	for s := range stats {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	fmt.Println()
	fmt.Println("Sources")
	fmt.Println()
	fmt.Printf("  %-10s  %-5s  %-8s  %-5s  %s\n", "Source", "Runs", "Episodes", "Best", "Mean")
	for _, s := range sources {
		st := stats[s]
		fmt.Printf("  %-10s  %-5d  %-8d  %-5d  %.2f\n", st.Source, st.Runs, st.Episodes, st.HighScore, st.AvgScore)
	}

	runs, err := store.RecentRuns(flagScoresLimit)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Recent Runs")
	fmt.Println()
	fmt.Printf("  %-5s  %-10s  %-5s  %-8s  %-8s  %-5s  %s\n", "Run", "Source", "Grid", "Training", "Episodes", "Best", "Started")
	for _, r := range runs {
		fmt.Printf("  %-5d  %-10s  %-5d  %-8t  %-8d  %-5d  %s\n",
			r.ID, r.Source, r.GridSize, r.Training, r.Episodes, r.HighScore, r.StartedAt.Format("2006-01-02 15:04"))
	}

	return nil
}
