package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"lps/internal/position"
)

// PositionSource yields the current probe fix.
type PositionSource interface {
	GetCurrentPosition() (position.Fix, error)
}

// Recorder appends solved fixes to a CSV file.
type Recorder struct {
	source PositionSource
	file   *os.File
	writer *csv.Writer
	log    *slog.Logger
}

var header = []string{"timestamp", "x", "y", "z"}

func NewRecorder(source PositionSource, filename string, log *slog.Logger) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	writer.Flush()

	return &Recorder{
		source: source,
		file:   file,
		writer: writer,
		log:    log,
	}, nil
}

// Start records one fix per interval until ctx is done.
func (r *Recorder) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RecordOnce(); err != nil {
				r.log.Warn("fix not recorded", "err", err)
			}
		}
	}
}

// RecordOnce solves the current position and writes it as one row.
func (r *Recorder) RecordOnce() error {
	fix, err := r.source.GetCurrentPosition()
	if err != nil {
		return err
	}

	record := []string{
		fix.SolvedAt.UTC().Format(time.RFC3339Nano),
		strconv.FormatFloat(fix.Position.X, 'f', 6, 64),
		strconv.FormatFloat(fix.Position.Y, 'f', 6, 64),
		strconv.FormatFloat(fix.Position.Z, 'f', 6, 64),
	}
	if err := r.writer.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}

	r.log.Debug("fix recorded", "x", fix.Position.X, "y", fix.Position.Y, "z", fix.Position.Z)
	return nil
}

func (r *Recorder) Close() error {
	r.writer.Flush()
	return r.file.Close()
}
