package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/cockroachdb/pebble"
)

const backendPebble = "pebble"

// Key layout. Each prefix ends in '/', so prefix+"\xff" bounds its range.
const (
	salePrefix    = "sale/"
	contactPrefix = "contact/"
	noticeKey     = "notice"
)

// PebbleStore persists records as JSON values in a local Pebble database.
type PebbleStore struct {
	opts options
	db   *pebble.DB
	wo   *pebble.WriteOptions
	// mu serialises read-modify-write sequences; Pebble itself is concurrent.
	mu sync.Mutex
}

var _ Store = (*PebbleStore)(nil)

// NewPebbleStore opens (or creates) a Pebble database under dir.
func NewPebbleStore(dir string, opts ...Option) (*PebbleStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 8,
		WALBytesPerSync:       1 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	wo := pebble.NoSync
	if o.sync {
		wo = pebble.Sync
	}
	return &PebbleStore{opts: o, db: db, wo: wo}, nil
}

// Close flushes and closes the database.
func (p *PebbleStore) Close() error { return p.db.Close() }

func saleKey(id string) []byte    { return []byte(salePrefix + id) }
func contactKey(id string) []byte { return []byte(contactPrefix + id) }

// getJSON decodes the value at key into v. Missing keys map to ErrNotFound.
func (p *PebbleStore) getJSON(key []byte, v any) error {
	val, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	return json.Unmarshal(val, v)
}

func (p *PebbleStore) putJSON(key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.db.Set(key, b, p.wo)
}

func (p *PebbleStore) exists(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

// scan calls fn with every value under prefix, in key order.
func (p *PebbleStore) scan(prefix string, fn func(val []byte) error) error {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "\xff"),
	})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// Create implements SaleStore.
func (p *PebbleStore) Create(_ context.Context, rec model.SaleRecord) (out model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendPebble, "create", start, err) }(time.Now())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.prepareCreate(&rec)
	ok, err := p.exists(saleKey(rec.ID))
	if err != nil {
		return model.SaleRecord{}, err
	}
	if ok {
		return model.SaleRecord{}, ErrAlreadyExists
	}
	if err := p.putJSON(saleKey(rec.ID), rec); err != nil {
		return model.SaleRecord{}, err
	}
	return rec, nil
}

// Update implements SaleStore.
func (p *PebbleStore) Update(_ context.Context, rec model.SaleRecord) (err error) {
	defer func(start time.Time) { observe(backendPebble, "update", start, err) }(time.Now())
	if rec.ID == "" {
		return ErrEmptyID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := p.exists(saleKey(rec.ID))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return p.putJSON(saleKey(rec.ID), rec)
}

// Delete implements SaleStore.
func (p *PebbleStore) Delete(_ context.Context, id string) (err error) {
	defer func(start time.Time) { observe(backendPebble, "delete", start, err) }(time.Now())

	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := p.exists(saleKey(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return p.db.Delete(saleKey(id), p.wo)
}

// Get implements SaleStore.
func (p *PebbleStore) Get(_ context.Context, id string) (rec model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendPebble, "get", start, err) }(time.Now())
	err = p.getJSON(saleKey(id), &rec)
	return rec, err
}

// List implements SaleStore.
func (p *PebbleStore) List(_ context.Context) (out []model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendPebble, "list", start, err) }(time.Now())

	out = []model.SaleRecord{}
	err = p.scan(salePrefix, func(val []byte) error {
		var rec model.SaleRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("decode sale: %w", err)
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSales(out)
	return out, nil
}

// Count implements SaleStore.
func (p *PebbleStore) Count(_ context.Context) (n int, err error) {
	defer func(start time.Time) { observe(backendPebble, "count", start, err) }(time.Now())
	err = p.scan(salePrefix, func([]byte) error {
		n++
		return nil
	})
	return n, err
}

// GetNotice implements NoticeStore.
func (p *PebbleStore) GetNotice(_ context.Context) (_ model.Notice, err error) {
	defer func(start time.Time) { observe(backendPebble, "get_notice", start, err) }(time.Now())
	return p.getNotice()
}

func (p *PebbleStore) getNotice() (model.Notice, error) {
	var n model.Notice
	if err := p.getJSON([]byte(noticeKey), &n); err != nil && !errors.Is(err, ErrNotFound) {
		return model.Notice{}, err
	}
	return n, nil
}

// SetNotice implements NoticeStore.
func (p *PebbleStore) SetNotice(_ context.Context, message string) (_ model.Notice, err error) {
	defer func(start time.Time) { observe(backendPebble, "set_notice", start, err) }(time.Now())
	return p.setNotice(message)
}

// ClearNotice implements NoticeStore.
func (p *PebbleStore) ClearNotice(_ context.Context) (_ model.Notice, err error) {
	defer func(start time.Time) { observe(backendPebble, "clear_notice", start, err) }(time.Now())
	return p.setNotice("")
}

func (p *PebbleStore) setNotice(message string) (model.Notice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, err := p.getNotice()
	if err != nil {
		return model.Notice{}, err
	}
	n := model.Notice{Message: message, Version: cur.Version + 1, UpdatedAt: p.opts.now().UTC()}
	if err := p.putJSON([]byte(noticeKey), n); err != nil {
		return model.Notice{}, err
	}
	return n, nil
}

// ListContacts implements ContactStore.
func (p *PebbleStore) ListContacts(_ context.Context) (_ []model.ContactLink, err error) {
	defer func(start time.Time) { observe(backendPebble, "list_contacts", start, err) }(time.Now())
	out := []model.ContactLink{}
	err = p.scan(contactPrefix, func(val []byte) error {
		var c model.ContactLink
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("decode contact: %w", err)
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortContacts(out)
	return out, nil
}

// AddContact implements ContactStore.
func (p *PebbleStore) AddContact(_ context.Context, c model.ContactLink) (_ model.ContactLink, err error) {
	defer func(start time.Time) { observe(backendPebble, "add_contact", start, err) }(time.Now())
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.ID == "" {
		c.ID = p.opts.newID()
	}
	ok, err := p.exists(contactKey(c.ID))
	if err != nil {
		return model.ContactLink{}, err
	}
	if ok {
		return model.ContactLink{}, ErrAlreadyExists
	}
	if err := p.putJSON(contactKey(c.ID), c); err != nil {
		return model.ContactLink{}, err
	}
	return c, nil
}

// UpdateContact implements ContactStore.
func (p *PebbleStore) UpdateContact(_ context.Context, c model.ContactLink) (err error) {
	defer func(start time.Time) { observe(backendPebble, "update_contact", start, err) }(time.Now())
	if c.ID == "" {
		return ErrEmptyID
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := p.exists(contactKey(c.ID))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return p.putJSON(contactKey(c.ID), c)
}

// DeleteContact implements ContactStore.
func (p *PebbleStore) DeleteContact(_ context.Context, id string) (err error) {
	defer func(start time.Time) { observe(backendPebble, "delete_contact", start, err) }(time.Now())
	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := p.exists(contactKey(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return p.db.Delete(contactKey(id), p.wo)
}
