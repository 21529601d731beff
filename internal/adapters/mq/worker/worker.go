// Package worker recomputes the leaderboard when sale change events arrive.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/mq/queue"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Snapshotter reads the full sale collection.
type Snapshotter interface {
	List(ctx context.Context) ([]model.SaleRecord, error)
}

// Computer turns a snapshot into a versioned board.
type Computer interface {
	Compute(ctx context.Context, records []model.SaleRecord, version uint64) types.Board
}

// Publisher receives computed boards. It reports whether the board replaced
// the current one; stale boards are refused.
type Publisher interface {
	Publish(ctx context.Context, board types.Board) bool
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan Event
}

// Worker processes change events.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker recomputes the board from a full snapshot for each event.
type InMemoryWorker struct {
	queue     Queue
	source    Snapshotter
	computer  Computer
	publisher Publisher
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, src Snapshotter, c Computer, pub Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		source:    src,
		computer:  c,
		publisher: pub,
		name:      "recompute",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			event = coalesce(events, event)
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing change event",
					logger.Uint64("seq", event.Seq),
					logger.Error(err),
				)
			}
		}
	}
}

// coalesce drains events that are already waiting and keeps the newest. A
// snapshot read afterwards covers every drained mutation.
func coalesce(events <-chan Event, latest Event) Event {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return latest
			}
			if e.Seq > latest.Seq {
				latest = e
			}
		default:
			return latest
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	records, err := w.source.List(ctx)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("snapshot for seq %d: %w", event.Seq, err)
	}

	board := w.computer.Compute(ctx, records, event.Seq)
	if !w.publisher.Publish(ctx, board) {
		w.logger.Debug(ctx, "stale board dropped", logger.Uint64("seq", event.Seq))
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, q Queue, src Snapshotter, c Computer, pub Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	base := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(base)
	}
	pool.logger = base.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("recompute-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, src, c, pub, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers still
// running when ctx (or the pool timeout) expires are stopped without draining.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
