// snakeq trains and watches a tabular Q-learning agent playing snake in the
// terminal.
//
// Usage:
//
//	snakeq list              - List available action sources
//	snakeq train             - Train the agent headless
//	snakeq play [source]     - Watch the agent or play yourself
//	snakeq scores            - Show the best episodes and recent runs
//	snakeq table             - Inspect the value table
//	snakeq trace <file>      - Summarize a parquet trace
//	snakeq serve             - Start SSH server for remote viewing
//
// Global flags:
//
//	--config <path> - YAML configuration file
//	--seed <value>  - Set RNG seed for reproducible runs
//	--db <path>     - Set database path (default: ~/.snakeq/runs.db)
//	--table <path>  - Set value table path (default: q_values.txt)
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeq/internal/config"

	// Import the agent to register it
	_ "github.com/vovakirdan/snakeq/internal/qlearn"
)

var (
	// Global flags
	flagConfig    string
	flagSeed      int64
	flagDBPath    string
	flagTablePath string
	flagVerbose   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snakeq",
	Short: "snakeq - Q-learning snake in your terminal",
	Long: `snakeq trains a tabular Q-learning agent to play snake and lets you
watch it, or take over the keyboard yourself.

Available commands:
  list     - Show all action sources
  train    - Train the agent without a UI
  play     - Watch the agent or play in the terminal
  scores   - View the best episodes and recent runs
  table    - Inspect the learned value table
  trace    - Summarize a parquet trace written by train
  serve    - Start SSH server for remote viewing

Examples:
  snakeq train --episodes 5000
  snakeq play
  snakeq play human
  snakeq scores
  snakeq serve --ssh :2222`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config (default: search ~/.snakeq, ./configs, embedded)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = config value, or random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to run database (default: from config)")
	rootCmd.PersistentFlags().StringVar(&flagTablePath, "table", "", "Path to value table (default: from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log every episode")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagSeed != 0 {
		cfg.Runtime.Seed = flagSeed
	}
	if flagDBPath != "" {
		cfg.Persistence.DBPath = flagDBPath
	}
	if flagTablePath != "" {
		cfg.Persistence.TablePath = flagTablePath
	}
	if cfg.Persistence.TablePath, err = config.ExpandPath(cfg.Persistence.TablePath); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newRand returns the two generators of a session: one for the action
// source and one for the environment.
func newRand(cfg config.Config) (source, env *rand.Rand) {
	seed := cfg.Runtime.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), rand.New(rand.NewSource(seed + 1))
}

// newLogger returns the CLI logger.
func newLogger(prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
