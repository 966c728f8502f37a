package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeq/internal/export"
	"github.com/vovakirdan/snakeq/internal/qlearn"
	"github.com/vovakirdan/snakeq/internal/snake"
	"github.com/vovakirdan/snakeq/internal/storage"
	"github.com/vovakirdan/snakeq/internal/train"
)

var (
	flagEpisodes int
	flagTrace    string
	flagNoStore  bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the agent without a UI",
	Long: `Run the Q-learning agent headless for a number of episodes, or until
Ctrl+C. The value table is saved every persistence.save_every episodes and
once more on exit; every episode is recorded in the run database.

Examples:
  snakeq train --episodes 10000
  snakeq train --table ./runs/q.txt --seed 42
  snakeq train --episodes 500 --trace ./trace.parquet`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().IntVarP(&flagEpisodes, "episodes", "n", 0, "Episodes to train (0 = until interrupted)")
	trainCmd.Flags().StringVar(&flagTrace, "trace", "", "Write every tick to a parquet file")
	trainCmd.Flags().BoolVar(&flagNoStore, "no-db", false, "Do not record episodes in the run database")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger("snakeq-train")
	cfg.Learner.Training = true

	srcRand, envRand := newRand(cfg)
	learner := qlearn.New(cfg.Learner, cfg.Rewards, srcRand)
	if err := learner.Load(cfg.Persistence.TablePath); err != nil {
		var fe *qlearn.FormatError
		if errors.As(err, &fe) {
			return fmt.Errorf("%w (move the file away to start from an empty table)", err)
		}
		return err
	}
	logger.Info("table loaded", "path", cfg.Persistence.TablePath, "states", learner.Table().Len())

	env, err := snake.New(cfg.Grid, envRand, learner)
	if err != nil {
		return err
	}

	opts := []train.Option{
		train.WithEpisodes(flagEpisodes),
		train.WithSaveEvery(cfg.Persistence.SaveEvery),
		train.WithLogger(logger),
	}

	var (
		store *storage.Store
		runID int64
	)
	if !flagNoStore {
		store, err = storage.Open(cfg.Persistence.DBPath)
		if err != nil {
			logger.Warn("could not open run database", "error", err)
			store = nil
		}
	}
	if store != nil {
		defer store.Close()
		if runID, err = store.StartRun("agent", cfg); err != nil {
			return err
		}
		opts = append(opts, train.WithRecorder(store, runID))
	}

	var trace *export.TraceWriter
	if flagTrace != "" {
		if trace, err = export.NewTraceWriter(flagTrace); err != nil {
			return err
		}
		opts = append(opts, train.WithTrace(trace))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trainer := train.NewTrainer(env, learner, opts...)
	logger.Info("training", "episodes", flagEpisodes, "grid", cfg.Grid.Size, "run", runID)

	var last train.Snapshot
	for snap := range trainer.Run(ctx) {
		last = snap
	}

	var errs []error
	if err := trainer.Err(); err != nil {
		errs = append(errs, err)
	}
	if trace != nil {
		if err := trace.Close(); err != nil {
			errs = append(errs, err)
		} else if trace.Rows() > 0 {
			logger.Info("trace written", "path", trace.OutPath(), "rows", trace.Rows())
		}
	}
	if store != nil {
		if err := store.FinishRun(runID, last.Episode, last.HighScore); err != nil {
			errs = append(errs, err)
		}
	}

	printSummary(last)
	return errors.Join(errs...)
}

func printSummary(s train.Snapshot) {
	fmt.Println()
	fmt.Printf("Run %s\n", s.Status)
	fmt.Printf("  Episodes:    %d\n", s.Episode)
	fmt.Printf("  Ticks:       %d\n", s.TotalTicks)
	fmt.Printf("  High score:  %d\n", s.HighScore)
	fmt.Printf("  Mean score:  %.2f\n", s.MeanScore)
	fmt.Printf("  States:      %d\n", s.States)
}
