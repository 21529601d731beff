// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel kinds for invalid domain values.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidRecord  = errors.New("invalid sale record")
	ErrInvalidContact = errors.New("invalid contact link")
	ErrInvalidNotice  = errors.New("invalid notice")
)

// SaleRecord is one contribution registered against a client.
type SaleRecord struct {
	ID        string          `json:"id"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Handle    string          `json:"handle,omitempty"` // optional social handle
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate reports whether the record can take part in aggregation.
func (s *SaleRecord) Validate() error {
	switch {
	case strings.TrimSpace(s.FirstName) == "":
		return fmt.Errorf("%w: missing first_name", ErrInvalidRecord)
	case strings.TrimSpace(s.LastName) == "":
		return fmt.Errorf("%w: missing last_name", ErrInvalidRecord)
	case s.Amount.IsNegative():
		return fmt.Errorf("%w: negative amount", ErrInvalidRecord)
	}
	return nil
}

// SaleInput carries the client-editable fields of a sale.
type SaleInput struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Handle    string          `json:"handle,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// Normalize trims surrounding whitespace from the text fields.
func (in SaleInput) Normalize() SaleInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Handle = strings.TrimSpace(in.Handle)
	return in
}

// Apply copies the input onto rec, stamping UpdatedAt.
func (in SaleInput) Apply(rec *SaleRecord, now time.Time) {
	n := in.Normalize()
	rec.FirstName = n.FirstName
	rec.LastName = n.LastName
	rec.Handle = n.Handle
	rec.Amount = n.Amount
	rec.UpdatedAt = now
}

// Notice is the single broadcast message shown above the leaderboard.
// Version increases on every change so a dismissal only hides the text it saw.
type Notice struct {
	Message   string    `json:"message"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate rejects blank messages.
func (n *Notice) Validate() error {
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidNotice)
	}
	return nil
}

// ContactLink is one entry of the public contact list.
type ContactLink struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// Validate requires a label and an http(s) or mailto/tel URL.
func (c *ContactLink) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("%w: missing label", ErrInvalidContact)
	}
	u := strings.ToLower(strings.TrimSpace(c.URL))
	for _, p := range []string{"https://", "http://", "mailto:", "tel:"} {
		if strings.HasPrefix(u, p) && len(u) > len(p) {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported url %q", ErrInvalidContact, c.URL)
}

// ChangeKind names a sale mutation.
type ChangeKind string

// Mutation kinds carried by ChangeEvent.
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
	ChangeReload  ChangeKind = "reload"
)

// ChangeEvent signals that the sale collection changed. Seq is strictly
// increasing per process and becomes the version of the board computed for it.
type ChangeEvent struct {
	Seq    uint64
	Kind   ChangeKind
	SaleID string
	At     time.Time
}
