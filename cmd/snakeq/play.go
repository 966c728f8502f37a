package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/snakeq/internal/core"
	"github.com/vovakirdan/snakeq/internal/platform/tui"
	"github.com/vovakirdan/snakeq/internal/registry"
	"github.com/vovakirdan/snakeq/internal/snake"
	"github.com/vovakirdan/snakeq/internal/storage"
)

var (
	flagGreedy  bool
	flagLogFile string
)

var playCmd = &cobra.Command{
	Use:   "play [source]",
	Short: "Watch the agent or play yourself",
	Long: `Start an interactive session steered by the given source
(default: agent). The agent keeps learning unless --greedy is set or
training is toggled off with T; its table is saved when you quit.

Controls:
  Arrows/WASD - Steer (human source)
  T           - Toggle training (agent source)
  +/-         - Faster / slower
  P/Esc       - Pause
  Ctrl+S      - Save a text screenshot
  Q/Ctrl+C    - Quit

Examples:
  snakeq play
  snakeq play agent --greedy
  snakeq play human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagGreedy, "greedy", false, "Start with training off")
	playCmd.Flags().StringVar(&flagLogFile, "log", "", "Write session logs to a file")
}

func runPlay(_ *cobra.Command, args []string) error {
	sourceID := "agent"
	if len(args) > 0 {
		sourceID = args[0]
	}

	if !registry.Exists(sourceID) {
		return fmt.Errorf("unknown source %q, run 'snakeq list' to see available sources", sourceID)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagGreedy {
		cfg.Learner.Training = false
	}

	srcRand, envRand := newRand(cfg)
	source, err := registry.Create(sourceID, registry.Deps{Config: cfg, Rand: srcRand})
	if err != nil {
		return err
	}

	env, err := snake.New(cfg.Grid, envRand, source)
	if err != nil {
		return err
	}

	// Get terminal size
	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	var logger *log.Logger
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		defer f.Close()
		logger = log.NewWithOptions(f, log.Options{ReportTimestamp: true, Prefix: "snakeq-play"})
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}
	}

	// Open run storage
	var runID int64
	store, err := storage.Open(cfg.Persistence.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open run database: %v\n", err)
		// Continue without storage - the session still works
		store = nil
	}
	if store != nil {
		defer store.Close()
		if runID, err = store.StartRun(sourceID, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not start run: %v\n", err)
		}
	}

	return tui.Run(env, tui.Options{
		SourceID: sourceID,
		Store:    store,
		RunID:    runID,
		Logger:   logger,
		Runtime: core.RuntimeConfig{
			ScreenW:      width,
			ScreenH:      height,
			TickInterval: cfg.TickInterval(),
			Seed:         cfg.Runtime.Seed,
		},
	})
}
