// Package ranking turns a snapshot of sale records into the client leaderboard.
//
// Records are grouped by a case-insensitive client identity, their amounts are
// summed, clients are ordered by total (descending, first-seen order on ties),
// truncated to the top N and redacted past the visible ranks. Every function
// here is pure: the same snapshot always yields the same leaderboard.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Contract defaults for the public leaderboard.
const (
	DefaultTopN         = 10
	DefaultVisibleCount = 3
)

// Identity is the derived key of a client. It is a struct rather than a joined
// string so no field value can collide with a separator.
type Identity struct {
	First  string
	Last   string
	Handle string
}

// IdentityOf derives the client identity of a record.
func IdentityOf(rec *model.SaleRecord) Identity {
	return Identity{
		First:  fold(rec.FirstName),
		Last:   fold(rec.LastName),
		Handle: fold(rec.Handle),
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Valid reports whether rec takes part in aggregation: both names non-blank
// and a non-negative amount.
func Valid(rec *model.SaleRecord) bool {
	return rec.Validate() == nil
}

// RankedClient is the aggregate of every sale sharing one identity.
type RankedClient struct {
	Identity  Identity
	FirstName string
	LastName  string
	Handle    string
	Total     decimal.Decimal
	Sales     int
	Rank      int
}

// Aggregate groups, sums and orders every valid record. The result is not
// truncated or redacted; ranks run from 1 to the number of clients.
func Aggregate(records []model.SaleRecord) []RankedClient {
	clients, _ := aggregate(records)
	return clients
}

// aggregate returns the ordered clients and how many records were skipped.
func aggregate(records []model.SaleRecord) ([]RankedClient, int) {
	index := make(map[Identity]int, len(records))
	clients := make([]RankedClient, 0, len(records))
	excluded := 0

	for i := range records {
		rec := &records[i]
		if !Valid(rec) {
			excluded++
			continue
		}
		id := IdentityOf(rec)
		pos, ok := index[id]
		if !ok {
			pos = len(clients)
			index[id] = pos
			clients = append(clients, RankedClient{Identity: id, Total: decimal.Zero})
		}
		c := &clients[pos]
		c.Total = c.Total.Add(rec.Amount)
		c.Sales++
		// display fields follow the last record seen for the identity
		c.FirstName = strings.TrimSpace(rec.FirstName)
		c.LastName = strings.TrimSpace(rec.LastName)
		c.Handle = strings.TrimSpace(rec.Handle)
	}

	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].Total.GreaterThan(clients[j].Total)
	})
	for i := range clients {
		clients[i].Rank = i + 1
	}
	return clients, excluded
}

// Redact truncates ordered clients to topN and hides the totals of every rank
// past visibleCount.
func Redact(clients []RankedClient, topN, visibleCount int) ([]types.Entry, error) {
	if err := checkLimits(topN, visibleCount); err != nil {
		return nil, err
	}
	n := min(topN, len(clients))
	entries := make([]types.Entry, n)
	for i := 0; i < n; i++ {
		c := &clients[i]
		e := types.Entry{
			Rank:      i + 1,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Handle:    c.Handle,
		}
		if e.Rank <= visibleCount {
			e.Total = c.Total
			e.Disclosed = true
		}
		entries[i] = e
	}
	return entries, nil
}

// ComputeRanking builds the public leaderboard for a snapshot of records.
// Malformed records are skipped; only negative limits produce an error.
func ComputeRanking(records []model.SaleRecord, topN, visibleCount int) ([]types.Entry, error) {
	if err := checkLimits(topN, visibleCount); err != nil {
		return nil, err
	}
	return Redact(Aggregate(records), topN, visibleCount)
}

func checkLimits(topN, visibleCount int) error {
	if topN < 0 {
		return fmt.Errorf("%w: top_n=%d", ErrInvalidLimit, topN)
	}
	if visibleCount < 0 {
		return fmt.Errorf("%w: visible_count=%d", ErrInvalidLimit, visibleCount)
	}
	return nil
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTopN sets how many clients the board keeps.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.topN = n
		}
	}
}

// WithVisibleCount sets how many leading ranks disclose their totals.
func WithVisibleCount(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.visibleCount = n
		}
	}
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source stamped on boards.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine binds the leaderboard limits and records metrics for each pass. It
// holds no state between calls and is safe for concurrent use.
type Engine struct {
	topN         int
	visibleCount int
	logger       logger.Logger
	now          func() time.Time
}

// NewEngine creates an engine with the contract defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		topN:         DefaultTopN,
		visibleCount: DefaultVisibleCount,
		logger:       logger.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TopN returns the configured board size.
func (e *Engine) TopN() int { return e.topN }

// VisibleCount returns the configured number of disclosed ranks.
func (e *Engine) VisibleCount() int { return e.visibleCount }

// Compute aggregates a snapshot into a board stamped with version.
func (e *Engine) Compute(ctx context.Context, records []model.SaleRecord, version uint64) types.Board {
	start := time.Now()
	clients, excluded := aggregate(records)
	// limits were validated by the options, Redact cannot fail here
	entries, _ := Redact(clients, e.topN, e.visibleCount)

	if excluded > 0 {
		e.logger.Debug(ctx, "skipped malformed sale records",
			logger.Int("excluded", excluded),
			logger.Int("records", len(records)),
		)
	}
	metrics.RecordRankingComputed(float64(time.Since(start).Microseconds())/1000, len(records), len(clients), excluded)

	return types.Board{
		Entries:      entries,
		Clients:      len(clients),
		Records:      len(records),
		Excluded:     excluded,
		TopN:         e.topN,
		VisibleCount: e.visibleCount,
		Version:      version,
		ComputedAt:   e.now(),
	}
}
