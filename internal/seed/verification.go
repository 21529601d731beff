package seed

import (
	"errors"
	"fmt"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/ranking"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
)

// ErrMismatch reports a served board that disagrees with the local ranking.
var ErrMismatch = errors.New("leaderboard mismatch")

// Verify checks a served board against the ranking computed locally over
// the accepted records, using the board's own limits. Clients tied on total
// may legitimately appear in another order, and display spelling follows
// the server's record order, so entries are matched by identity and by the
// total expected at their rank.
func Verify(accepted []model.SaleRecord, board types.Board) error {
	expected, err := ranking.ComputeRanking(accepted, board.TopN, board.VisibleCount)
	if err != nil {
		return fmt.Errorf("local ranking: %w", err)
	}
	all := ranking.Aggregate(accepted)

	if board.Clients != len(all) {
		return fmt.Errorf("%w: %d clients served, %d expected", ErrMismatch, board.Clients, len(all))
	}
	if len(board.Entries) != len(expected) {
		return fmt.Errorf("%w: %d entries served, %d expected", ErrMismatch, len(board.Entries), len(expected))
	}

	totals := make(map[ranking.Identity]int, len(all))
	for i := range all {
		totals[all[i].Identity] = i
	}
	seen := make(map[ranking.Identity]bool, len(board.Entries))

	for i, e := range board.Entries {
		id := ranking.IdentityOf(&model.SaleRecord{FirstName: e.FirstName, LastName: e.LastName, Handle: e.Handle})
		pos, ok := totals[id]
		switch {
		case e.Rank != i+1:
			return fmt.Errorf("%w: entry %d has rank %d", ErrMismatch, i, e.Rank)
		case !ok:
			return fmt.Errorf("%w: rank %d is unknown client %s %s", ErrMismatch, e.Rank, e.FirstName, e.LastName)
		case seen[id]:
			return fmt.Errorf("%w: client %s %s listed twice", ErrMismatch, e.FirstName, e.LastName)
		case !all[pos].Total.Equal(all[i].Total):
			return fmt.Errorf("%w: rank %d holds a client with total %s, want %s",
				ErrMismatch, e.Rank, all[pos].Total.StringFixed(2), all[i].Total.StringFixed(2))
		case e.Disclosed != expected[i].Disclosed:
			return fmt.Errorf("%w: rank %d disclosed=%t, want %t", ErrMismatch, e.Rank, e.Disclosed, expected[i].Disclosed)
		case e.Disclosed && !e.Total.Equal(all[pos].Total):
			return fmt.Errorf("%w: rank %d total %s, want %s",
				ErrMismatch, e.Rank, e.Total.StringFixed(2), all[pos].Total.StringFixed(2))
		case !e.Disclosed && !e.Total.IsZero():
			return fmt.Errorf("%w: rank %d leaks a redacted total", ErrMismatch, e.Rank)
		}
		seen[id] = true
	}
	return nil
}
