package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/http/api"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

type result int

const (
	resultFailed result = iota
	resultCreated
	resultDuplicate
)

// Client talks to the ranking service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Health returns nil once the service reports a computed board.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	_, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", status)
	}
	return nil
}

// Leaderboard fetches the whole current board.
func (c *Client) Leaderboard(ctx context.Context) (types.Board, error) {
	var board types.Board
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/leaderboard", http.NoBody)
	if err != nil {
		return board, err
	}
	body, status, err := c.do(req)
	if err != nil {
		return board, err
	}
	if status != http.StatusOK {
		return board, fmt.Errorf("leaderboard: status %d: %s", status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &board); err != nil {
		return board, fmt.Errorf("decode leaderboard: %w", err)
	}
	return board, nil
}

// PostSale submits one sale with its idempotency key.
func (c *Client) PostSale(ctx context.Context, s Sale) (result, error) {
	payload, err := json.Marshal(s.Input)
	if err != nil {
		return resultFailed, fmt.Errorf("marshal sale: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sales", bytes.NewReader(payload))
	if err != nil {
		return resultFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.IdempotencyHeader, s.Key)

	body, status, err := c.do(req)
	if err != nil {
		return resultFailed, err
	}
	switch status {
	case http.StatusCreated:
		return resultCreated, nil
	case http.StatusOK:
		return resultDuplicate, nil
	default:
		return resultFailed, fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
	}
}

// submit posts sales with cfg.Workers concurrent submitters and returns the
// result of each one by index.
func submit(ctx context.Context, cfg *Config, client *Client, sales []Sale, stats *Stats) []result {
	log := logger.Get()
	log.Info(ctx, "submitting sales", logger.Int("sales", len(sales)), logger.Int("workers", cfg.Workers))

	results := make([]result, len(sales))
	var created, duplicate, failed atomic.Int64

	indexes := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				res, err := client.PostSale(ctx, sales[i])
				results[i] = res
				switch res {
				case resultCreated:
					created.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "sale rejected", logger.Int("index", i), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range sales {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()
	wg.Wait()

	stats.Submitted += len(sales)
	stats.Created += int(created.Load())
	stats.Duplicate += int(duplicate.Load())
	stats.Failed += int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int64("created", created.Load()),
		logger.Int64("duplicate", duplicate.Load()),
		logger.Int64("failed", failed.Load()))
	return results
}
