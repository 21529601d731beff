// Package types contains the leaderboard view types shared by the engine,
// the HTTP API and the live feed.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoBoard reports that no leaderboard has been computed yet.
var ErrNoBoard = errors.New("leaderboard not computed yet")

// PrivateTotal is the sentinel served instead of a redacted total.
const PrivateTotal = "private"

// Entry is one leaderboard row. When Disclosed is false Total is always zero
// and the JSON form carries PrivateTotal instead of a number.
type Entry struct {
	Rank      int
	FirstName string
	LastName  string
	Handle    string
	Total     decimal.Decimal
	Disclosed bool
}

type entryJSON struct {
	Rank      int    `json:"rank"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Handle    string `json:"handle,omitempty"`
	Total     string `json:"total"`
	Disclosed bool   `json:"disclosed"`
}

// DisplayTotal renders the total the way clients see it.
func (e Entry) DisplayTotal() string {
	if !e.Disclosed {
		return PrivateTotal
	}
	return e.Total.StringFixed(2)
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Rank:      e.Rank,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Handle:    e.Handle,
		Total:     e.DisplayTotal(),
		Disclosed: e.Disclosed,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Entry{
		Rank:      raw.Rank,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Handle:    raw.Handle,
		Disclosed: raw.Disclosed,
	}
	if !raw.Disclosed {
		return nil
	}
	total, err := decimal.NewFromString(raw.Total)
	if err != nil {
		return fmt.Errorf("entry total: %w", err)
	}
	e.Total = total
	return nil
}

// Board is a computed leaderboard together with the facts it was built from.
type Board struct {
	Entries      []Entry   `json:"entries"`
	Clients      int       `json:"clients"`
	Records      int       `json:"records"`
	Excluded     int       `json:"excluded"`
	TopN         int       `json:"top_n"`
	VisibleCount int       `json:"visible_count"`
	Version      uint64    `json:"version"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Empty reports whether the leaderboard has no rows.
func (b *Board) Empty() bool {
	return len(b.Entries) == 0
}

// Limit returns a copy of b holding at most n entries. The entry slice is
// copied so callers may not alias the board held by the service.
func (b *Board) Limit(n int) Board {
	out := *b
	if n < 0 || n > len(b.Entries) {
		n = len(b.Entries)
	}
	out.Entries = make([]Entry, n)
	copy(out.Entries, b.Entries[:n])
	return out
}
