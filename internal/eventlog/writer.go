package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WriterConfig controls batching for a Writer.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// WriterMetrics tracks a Writer's lifetime counters.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

// insertFunc writes a batch of rows to Postgres and reports how many
// were skipped by an ON CONFLICT clause.
type insertFunc[T any] func(ctx context.Context, db *pgxpool.Pool, rows []T) (conflicts int, err error)

// Writer is a generic batched event-log sink: it buffers records of
// type T off a channel and flushes them to Postgres either when a
// batch fills up or on a fixed interval, whichever comes first. The
// price and order event logs are two instantiations of it.
type Writer[T any] struct {
	cfg    WriterConfig
	logger *slog.Logger
	db     *pgxpool.Pool
	insert insertFunc[T]

	input chan T

	batchMu sync.Mutex
	batch   []T
	metrics WriterMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter builds a Writer that inserts batches via insert.
func NewWriter[T any](cfg WriterConfig, db *pgxpool.Pool, insert insertFunc[T], logger *slog.Logger) *Writer[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer[T]{
		cfg:    cfg,
		db:     db,
		insert: insert,
		logger: logger,
		input:  make(chan T, cfg.BufferSize),
		batch:  make([]T, 0, cfg.BatchSize),
	}
}

// Record enqueues a row for writing. It never blocks: if the buffer
// is full, the record is dropped and counted in Dropped, since the
// event log is a best-effort audit trail, not a delivery guarantee.
func (w *Writer[T]) Record(row T) {
	select {
	case w.input <- row:
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
	}
}

// Start begins consuming and flushing in the background.
func (w *Writer[T]) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("event log writer started", "batch_size", w.cfg.BatchSize, "flush_interval", w.cfg.FlushInterval)
}

// Stop flushes any remaining buffered rows and shuts the writer down.
func (w *Writer[T]) Stop(ctx context.Context) {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("event log writer stop timed out")
	}

	// Rows still queued in the input channel were accepted by Record
	// but never reached the batch; move them over before the final flush.
	for drained := false; !drained; {
		select {
		case row := <-w.input:
			w.batchMu.Lock()
			w.batch = append(w.batch, row)
			w.batchMu.Unlock()
		default:
			drained = true
		}
	}

	// The writer's own context is already cancelled at this point;
	// use the caller's shutdown context for the final flush so it
	// isn't rejected before it starts.
	w.flush(ctx)
}

// Stats returns a snapshot of the writer's counters.
func (w *Writer[T]) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *Writer[T]) consumeLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case row := <-w.input:
			w.append(row)
		}
	}
}

func (w *Writer[T]) flushLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *Writer[T]) append(row T) {
	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

func (w *Writer[T]) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]T, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	conflicts, err := w.insert(ctx, w.db, batch)
	if err != nil {
		w.logger.Error("event log batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed event log batch", "count", len(batch), "conflicts", conflicts, "duration", time.Since(start))
}
