// Package repository persists sale records, the notice and contact links.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
)

// SaleStore provides read/write access to sale records.
type SaleStore interface {
	// Create stores a new record. An empty ID is filled with a fresh one and a
	// zero CreatedAt is stamped. Returns ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, rec model.SaleRecord) (model.SaleRecord, error)
	// Update replaces an existing record. Returns ErrNotFound if it is unknown.
	Update(ctx context.Context, rec model.SaleRecord) error
	// Delete removes a record. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error
	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, id string) (model.SaleRecord, error)
	// List returns the full snapshot ordered by CreatedAt, then ID.
	List(ctx context.Context) ([]model.SaleRecord, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// NoticeStore holds the single broadcast notice.
type NoticeStore interface {
	// GetNotice returns the current notice. A cleared or never-set notice has an
	// empty message.
	GetNotice(ctx context.Context) (model.Notice, error)
	// SetNotice replaces the message and bumps the version.
	SetNotice(ctx context.Context, message string) (model.Notice, error)
	// ClearNotice empties the message and bumps the version.
	ClearNotice(ctx context.Context) (model.Notice, error)
}

// ContactStore manages the public contact links.
type ContactStore interface {
	// ListContacts returns links ordered by Position, then ID.
	ListContacts(ctx context.Context) ([]model.ContactLink, error)
	AddContact(ctx context.Context, c model.ContactLink) (model.ContactLink, error)
	UpdateContact(ctx context.Context, c model.ContactLink) error
	DeleteContact(ctx context.Context, id string) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	SaleStore
	NoticeStore
	ContactStore
}

func sortSales(recs []model.SaleRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

func sortContacts(cs []model.ContactLink) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Position != cs[j].Position {
			return cs[i].Position < cs[j].Position
		}
		return cs[i].ID < cs[j].ID
	})
}

// prepareCreate fills the generated fields of a new record.
func (o *options) prepareCreate(rec *model.SaleRecord) {
	if rec.ID == "" {
		rec.ID = o.newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = o.now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
}

// observe records latency for op and counts unexpected failures.
func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyExists) {
		metrics.RecordStoreError(backend, op)
	}
}
