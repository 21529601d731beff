package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
)

const backendMemory = "memory"

// MemoryStore keeps everything in process memory. It is safe for concurrent use.
type MemoryStore struct {
	opts options

	mu       sync.RWMutex
	sales    map[string]model.SaleRecord
	contacts map[string]model.ContactLink
	notice   model.Notice
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		opts:     o,
		sales:    make(map[string]model.SaleRecord),
		contacts: make(map[string]model.ContactLink),
	}
}

// Create implements SaleStore.
func (s *MemoryStore) Create(_ context.Context, rec model.SaleRecord) (out model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendMemory, "create", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.SaleRecord{}, ErrClosed
	}
	s.opts.prepareCreate(&rec)
	if _, ok := s.sales[rec.ID]; ok {
		return model.SaleRecord{}, ErrAlreadyExists
	}
	s.sales[rec.ID] = rec
	return rec, nil
}

// Update implements SaleStore.
func (s *MemoryStore) Update(_ context.Context, rec model.SaleRecord) (err error) {
	defer func(start time.Time) { observe(backendMemory, "update", start, err) }(time.Now())
	if rec.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.sales[rec.ID]; !ok {
		return ErrNotFound
	}
	s.sales[rec.ID] = rec
	return nil
}

// Delete implements SaleStore.
func (s *MemoryStore) Delete(_ context.Context, id string) (err error) {
	defer func(start time.Time) { observe(backendMemory, "delete", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.sales[id]; !ok {
		return ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

// Get implements SaleStore.
func (s *MemoryStore) Get(_ context.Context, id string) (model.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sales[id]
	if !ok {
		return model.SaleRecord{}, ErrNotFound
	}
	return rec, nil
}

// List implements SaleStore.
func (s *MemoryStore) List(_ context.Context) (out []model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendMemory, "list", start, err) }(time.Now())

	s.mu.RLock()
	out = make([]model.SaleRecord, 0, len(s.sales))
	for _, rec := range s.sales {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sortSales(out)
	return out, nil
}

// Count implements SaleStore.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sales), nil
}

// Close marks the store closed; later writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// GetNotice implements NoticeStore.
func (s *MemoryStore) GetNotice(_ context.Context) (model.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notice, nil
}

// SetNotice implements NoticeStore.
func (s *MemoryStore) SetNotice(_ context.Context, message string) (model.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = model.Notice{Message: message, Version: s.notice.Version + 1, UpdatedAt: s.opts.now().UTC()}
	return s.notice, nil
}

// ClearNotice implements NoticeStore.
func (s *MemoryStore) ClearNotice(ctx context.Context) (model.Notice, error) {
	return s.SetNotice(ctx, "")
}

// ListContacts implements ContactStore.
func (s *MemoryStore) ListContacts(_ context.Context) ([]model.ContactLink, error) {
	s.mu.RLock()
	out := make([]model.ContactLink, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sortContacts(out)
	return out, nil
}

// AddContact implements ContactStore.
func (s *MemoryStore) AddContact(_ context.Context, c model.ContactLink) (model.ContactLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.opts.newID()
	}
	if _, ok := s.contacts[c.ID]; ok {
		return model.ContactLink{}, ErrAlreadyExists
	}
	s.contacts[c.ID] = c
	return c, nil
}

// UpdateContact implements ContactStore.
func (s *MemoryStore) UpdateContact(_ context.Context, c model.ContactLink) error {
	if c.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[c.ID]; !ok {
		return ErrNotFound
	}
	s.contacts[c.ID] = c
	return nil
}

// DeleteContact implements ContactStore.
func (s *MemoryStore) DeleteContact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}
