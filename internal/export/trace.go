// Package export writes learner transitions to parquet files for offline
// analysis.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// TraceRow is one tick of a training run.
type TraceRow struct {
	Run     int64   `parquet:"run"`
	Episode int32   `parquet:"episode"`
	Tick    int64   `parquet:"tick"`
	State   string  `parquet:"state,dict"`
	Action  int32   `parquet:"action"` // -1 left, 0 straight, 1 right
	Reward  float64 `parquet:"reward"` // Outcome of the move
	Died    bool    `parquet:"died"`
	Ate     bool    `parquet:"ate"`
	Score   int32   `parquet:"score"`
}

const flushRows = 4096

// TraceWriter buffers rows and writes them to a temporary file that is moved
// into place on Close.
type TraceWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TraceRow]

	buf  []TraceRow
	rows int
}

// NewTraceWriter opens a trace file at outPath.
func NewTraceWriter(outPath string) (*TraceWriter, error) {
	if outPath == "" {
		return nil, fmt.Errorf("export: output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("export: create dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("export: open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TraceRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "trace_row_v1")

	return &TraceWriter{
		tmpPath: tmpPath,
		outPath: outPath,
		file:    f,
		writer:  w,
		buf:     make([]TraceRow, 0, flushRows),
	}, nil
}

func (t *TraceWriter) OutPath() string { return t.outPath }
func (t *TraceWriter) Rows() int       { return t.rows + len(t.buf) }

// WriteTrace appends one row.
func (t *TraceWriter) WriteTrace(row TraceRow) error {
	if t.writer == nil {
		return fmt.Errorf("export: trace writer is closed")
	}
	t.buf = append(t.buf, row)
	if len(t.buf) >= flushRows {
		return t.flush()
	}
	return nil
}

func (t *TraceWriter) flush() error {
	if len(t.buf) == 0 {
		return nil
	}
	if _, err := t.writer.Write(t.buf); err != nil {
		return fmt.Errorf("export: write rows: %w", err)
	}
	t.rows += len(t.buf)
	t.buf = t.buf[:0]
	return nil
}

// Close flushes the buffered rows and moves the file into place. A trace
// without rows leaves no file behind.
func (t *TraceWriter) Close() error {
	if t.writer == nil {
		return nil
	}

	flushErr := t.flush()
	closeErr := t.writer.Close()
	t.writer = nil
	_ = t.file.Sync()
	fileErr := t.file.Close()
	t.file = nil

	if err := errors.Join(flushErr, closeErr, fileErr); err != nil {
		_ = os.Remove(t.tmpPath)
		return fmt.Errorf("export: close trace: %w", err)
	}

	if t.rows == 0 {
		_ = os.Remove(t.tmpPath)
		return nil
	}
	if err := os.Rename(t.tmpPath, t.outPath); err != nil {
		return fmt.Errorf("export: rename parquet: %w", err)
	}
	return nil
}

// ReadTrace loads every row of a trace file.
func ReadTrace(path string) ([]TraceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open trace: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[TraceRow](f)
	defer reader.Close()

	rows := make([]TraceRow, 0, reader.NumRows())
	buf := make([]TraceRow, 256)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: read trace: %w", err)
		}
	}
	return rows, nil
}

// Summary aggregates a trace.
type Summary struct {
	Rows       int
	Episodes   int
	Deaths     int
	Meals      int
	BestScore  int
	MeanReward float64
	Actions    [3]int // Counts per action, indexed by action+1
}

// Summarize computes a Summary over rows.
func Summarize(rows []TraceRow) Summary {
	s := Summary{Rows: len(rows)}
	episodes := make(map[[2]int64]bool)
	var total float64
	for _, r := range rows {
		episodes[[2]int64{r.Run, int64(r.Episode)}] = true
		if r.Died {
			s.Deaths++
		}
		if r.Ate {
			s.Meals++
		}
		s.BestScore = max(s.BestScore, int(r.Score))
		total += r.Reward
		if idx := int(r.Action) + 1; idx >= 0 && idx < len(s.Actions) {
			s.Actions[idx]++
		}
	}
	s.Episodes = len(episodes)
	if len(rows) > 0 {
		s.MeanReward = total / float64(len(rows))
	}
	return s
}
