package seed

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

const logFilePermission = 0o600

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging initializes the global logger to write to stdout and, when
// logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithLevel(level)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return closer, nil
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Client Ranking Seed Tool
========================

Generates sales for a set of clients (spelled with random case and spacing),
submits them concurrently, waits for the leaderboard to catch up and checks it
against a ranking computed locally over the same sales.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -sales int          Number of sales to submit (default 1000)
  -clients int        Number of distinct clients (default 40)
  -duplicates int     Sales replayed with their Idempotency-Key (default 0)
  -workers int        Concurrent submitters (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 10s)
  -settle duration    Time allowed for the board to catch up (default 30s)
  -seed int           Generator seed (default: current time)
  -output string      Write the generated sales to this JSON file
  -log string         Also write logs to this file
  -verbose            Enable verbose logging
  -help               Show this help message

Verification only runs against a service that held no sales beforehand.
`)
}
