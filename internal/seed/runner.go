package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// ErrNotSettled reports a board that did not reflect every accepted sale in time.
var ErrNotSettled = errors.New("leaderboard did not settle")

// Run executes a complete seed and verify cycle.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sales", cfg.Sales),
		logger.Int("clients", cfg.Clients),
		logger.Int("duplicates", cfg.Duplicates),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", cfg.Seed))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: the service must be up with a computed board
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	baseline, err := client.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("baseline leaderboard: %w", err)
	}

	// Step 2: generate and submit
	sales := Generate(cfg)
	stats.Generated = len(sales)
	results := submit(ctx, cfg, client, sales, stats)

	accepted := make([]Sale, 0, len(sales))
	for i, r := range results {
		if r == resultCreated {
			accepted = append(accepted, sales[i])
		}
	}

	// Step 3: replay some sales with their keys; none may be stored twice
	if n := min(cfg.Duplicates, len(accepted)); n > 0 {
		replay := submit(ctx, cfg, client, accepted[:n], stats)
		for i, r := range replay {
			if r != resultDuplicate {
				return stats, fmt.Errorf("replayed sale %d was not recognised as a duplicate", i)
			}
		}
	}

	// Step 4: wait for the board to include every accepted sale
	want := baseline.Records + len(accepted)
	board, err := waitForRecords(ctx, client, want, cfg.Settle)
	if err != nil {
		return stats, err
	}
	stats.BoardRows = len(board.Entries)

	// Step 5: verify, unless other data was already present
	if baseline.Records > 0 {
		stats.SkipReason = fmt.Sprintf("service already held %d sales", baseline.Records)
		log.Warn(ctx, "skipping verification", logger.String("reason", stats.SkipReason))
	} else {
		if err := Verify(records(accepted), board); err != nil {
			return stats, err
		}
		stats.Verified = true
		log.Info(ctx, "leaderboard verified", logger.Int("rows", len(board.Entries)), logger.Int("clients", board.Clients))
	}

	if cfg.OutputFile != "" {
		if err := saveSales(cfg.OutputFile, sales); err != nil {
			log.Warn(ctx, "failed to save sales to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, board)
	return stats, nil
}

// waitForRecords polls the leaderboard until it was computed over at least
// want records.
func waitForRecords(ctx context.Context, client *Client, want int, settle time.Duration) (types.Board, error) {
	ctx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	var last types.Board
	for {
		board, err := client.Leaderboard(ctx)
		if err == nil {
			last = board
			if board.Records >= want {
				return board, nil
			}
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%w: board holds %d records, want %d", ErrNotSettled, last.Records, want)
		case <-ticker.C:
		}
	}
}

// saveSales writes the generated sales as a JSON array.
func saveSales(filename string, sales []Sale) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(sales, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sales: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}

// displayFinalStats logs the run statistics and the top of the board.
func displayFinalStats(ctx context.Context, stats *Stats, board types.Board) {
	var successRate, salesPerSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Created+stats.Duplicate) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		salesPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log := logger.Get()
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("boardRows", stats.BoardRows),
		logger.Bool("verified", stats.Verified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("salesPerSecond", salesPerSecond))

	for _, e := range board.Entries {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("client", e.FirstName+" "+e.LastName),
			logger.String("handle", e.Handle),
			logger.String("total", e.DisplayTotal()))
	}
}
