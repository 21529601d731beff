// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/Clinico01/ranking-de-clientes3/internal/adapters/mq/queue"
	workerpool "github.com/Clinico01/ranking-de-clientes3/internal/adapters/mq/worker"
	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/repository"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/dedupe"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/ranking"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/session"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// Service implements the API dependencies for the client leaderboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	engine     *ranking.Engine
	workerPool *workerpool.Pool
	sessions   *session.Manager
	board      boardHolder

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	topN            int
	visibleCount    int
	refreshInterval time.Duration
	listeners       []func(types.Board)

	// State
	seq     atomic.Uint64
	started bool
	stopCh  chan struct{}
	now     func() time.Time

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1_024,
		dedupeSize:   10_000,
		topN:         ranking.DefaultTopN,
		visibleCount: ranking.DefaultVisibleCount,
		stopCh:       make(chan struct{}),
		now:          time.Now,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(session.WithLogger(s.logger.Named("session")))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.engine = ranking.NewEngine(
		ranking.WithTopN(s.topN),
		ranking.WithVisibleCount(s.visibleCount),
		ranking.WithLogger(s.logger.Named("ranking")),
	)
	for _, fn := range s.listeners {
		s.board.subscribe(fn)
	}
	return s
}

// Start computes the initial board and starts the recompute workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	records, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	s.board.Publish(ctx, s.engine.Compute(ctx, records, s.seq.Add(1)))

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store, s.engine, &s.board,
		workerpool.WithLogger(s.logger),
	)
	s.workerPool.Start(ctx)

	if s.refreshInterval > 0 {
		go s.refreshLoop(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("records", len(records)),
	)
	return nil
}

func (s *Service) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Stop drains pending recomputes and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping leaderboard service...")

	close(s.stopCh)
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// Subscribe registers fn to receive every accepted board.
func (s *Service) Subscribe(fn func(types.Board)) {
	s.board.subscribe(fn)
}

// notify enqueues a change event for the mutation that just committed. A full
// queue drops the event: the events already queued recompute from a fresh
// snapshot that includes this mutation.
func (s *Service) notify(ctx context.Context, kind model.ChangeKind, id string) {
	s.mu.RLock()
	q := s.eventQueue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	e := model.ChangeEvent{Seq: s.seq.Add(1), Kind: kind, SaleID: id, At: s.now()}
	if !q.Enqueue(context.WithoutCancel(ctx), e) {
		s.logger.Warn(ctx, "change event dropped",
			logger.Uint64("seq", e.Seq),
			logger.String("kind", string(kind)),
		)
	}
}

// Refresh schedules a recompute without a mutation.
func (s *Service) Refresh(ctx context.Context) {
	s.notify(ctx, model.ChangeReload, "")
}

// Leaderboard returns the current board cut to limit entries. A limit <= 0
// returns the whole board.
func (s *Service) Leaderboard(_ context.Context, limit int) (types.Board, error) {
	b, ok := s.board.current()
	if !ok {
		return types.Board{}, ErrNotStarted
	}
	if limit > 0 {
		b = b.Limit(limit)
	}
	return b, nil
}

// Board returns the current board, used by the live feed on connect.
func (s *Service) Board() (types.Board, bool) {
	return s.board.current()
}

// ClientCount returns the number of distinct valid clients on the current board.
func (s *Service) ClientCount(_ context.Context) (int, error) {
	b, ok := s.board.current()
	if !ok {
		return 0, ErrNotStarted
	}
	return b.Clients, nil
}

// CreateSale validates and stores a sale. With a non-empty idempotencyKey a
// repeated submission returns duplicate=true and a record carrying only the
// id of the first sale; the key is not a credential for reading it.
func (s *Service) CreateSale(ctx context.Context, in model.SaleInput, idempotencyKey string) (model.SaleRecord, bool, error) {
	now := s.now().UTC()
	rec := model.SaleRecord{CreatedAt: now}
	in.Apply(&rec, now)
	if err := rec.Validate(); err != nil {
		metrics.RecordSaleRejected("invalid")
		return model.SaleRecord{}, false, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if key != "" {
		if id, seen := s.deduper.SeenAndRecord(ctx, key); seen {
			metrics.RecordDuplicateSale()
			if id == "" {
				return model.SaleRecord{}, true, ErrInFlight
			}
			return model.SaleRecord{ID: id}, true, nil
		}
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		metrics.RecordSaleRejected("store")
		return model.SaleRecord{}, false, fmt.Errorf("create sale: %w", err)
	}
	if key != "" {
		s.deduper.Bind(ctx, key, created.ID)
	}

	metrics.RecordSaleMutation(string(model.ChangeCreated))
	s.logger.Debug(ctx, "sale created", logger.String("id", created.ID))
	s.notify(ctx, model.ChangeCreated, created.ID)
	return created, false, nil
}

// ListSales returns every stored sale in snapshot order.
func (s *Service) ListSales(ctx context.Context) ([]model.SaleRecord, error) {
	return s.store.List(ctx)
}

// GetSale returns one sale.
func (s *Service) GetSale(ctx context.Context, id string) (model.SaleRecord, error) {
	return s.store.Get(ctx, id)
}

// UpdateSale replaces the editable fields of a sale.
func (s *Service) UpdateSale(ctx context.Context, id string, in model.SaleInput) (model.SaleRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return model.SaleRecord{}, err
	}
	in.Apply(&rec, s.now().UTC())
	if err := rec.Validate(); err != nil {
		metrics.RecordSaleRejected("invalid")
		return model.SaleRecord{}, err
	}
	if err := s.store.Update(ctx, rec); err != nil {
		return model.SaleRecord{}, fmt.Errorf("update sale %s: %w", id, err)
	}
	metrics.RecordSaleMutation(string(model.ChangeUpdated))
	s.notify(ctx, model.ChangeUpdated, id)
	return rec, nil
}

// DeleteSale removes a sale.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	metrics.RecordSaleMutation(string(model.ChangeDeleted))
	s.notify(ctx, model.ChangeDeleted, id)
	return nil
}

// Notice returns the current notice.
func (s *Service) Notice(ctx context.Context) (model.Notice, error) {
	return s.store.GetNotice(ctx)
}

// SetNotice publishes a new notice message.
func (s *Service) SetNotice(ctx context.Context, message string) (model.Notice, error) {
	n := model.Notice{Message: strings.TrimSpace(message)}
	if err := n.Validate(); err != nil {
		return model.Notice{}, err
	}
	return s.store.SetNotice(ctx, n.Message)
}

// ClearNotice hides the notice for everyone.
func (s *Service) ClearNotice(ctx context.Context) (model.Notice, error) {
	return s.store.ClearNotice(ctx)
}

// Contacts returns the public contact links.
func (s *Service) Contacts(ctx context.Context) ([]model.ContactLink, error) {
	return s.store.ListContacts(ctx)
}

// AddContact validates and stores a contact link.
func (s *Service) AddContact(ctx context.Context, c model.ContactLink) (model.ContactLink, error) {
	c.ID = ""
	c.Label = strings.TrimSpace(c.Label)
	c.URL = strings.TrimSpace(c.URL)
	if err := c.Validate(); err != nil {
		return model.ContactLink{}, err
	}
	return s.store.AddContact(ctx, c)
}

// UpdateContact replaces a contact link.
func (s *Service) UpdateContact(ctx context.Context, id string, c model.ContactLink) (model.ContactLink, error) {
	c.ID = id
	c.Label = strings.TrimSpace(c.Label)
	c.URL = strings.TrimSpace(c.URL)
	if err := c.Validate(); err != nil {
		return model.ContactLink{}, err
	}
	if err := s.store.UpdateContact(ctx, c); err != nil {
		return model.ContactLink{}, err
	}
	return c, nil
}

// DeleteContact removes a contact link.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	return s.store.DeleteContact(ctx, id)
}

// CreateSession issues an anonymous session.
func (s *Service) CreateSession(ctx context.Context) session.Session {
	return s.sessions.Create(ctx)
}

// GetSession resolves a session token.
func (s *Service) GetSession(ctx context.Context, token string) (session.Session, error) {
	return s.sessions.Get(ctx, token)
}

// UnlockSession grants admin rights when key is correct.
func (s *Service) UnlockSession(ctx context.Context, token, key string) (session.Session, error) {
	return s.sessions.Unlock(ctx, token, key)
}

// DismissNotice hides the notice at version for the session.
func (s *Service) DismissNotice(ctx context.Context, token string, version uint64) (session.Session, error) {
	return s.sessions.DismissNotice(ctx, token, version)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"topN":         s.topN,
		"visibleCount": s.visibleCount,
		"sessions":     s.sessions.Count(),
		"dedupeKeys":   s.deduper.Size(),
	}

	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		if n, err := s.store.Count(ctx); err == nil {
			stats["sales"] = n
		} else {
			s.logger.Warn(ctx, "stats: count failed", logger.Error(err))
		}
	}
	if b, ok := s.board.current(); ok {
		stats["clients"] = b.Clients
		stats["excluded"] = b.Excluded
		stats["boardVersion"] = b.Version
		stats["boardComputedAt"] = b.ComputedAt
	}
	return stats
}
