package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"docanalyzer/internal/shared/metrics"
	"docanalyzer/internal/shared/telemetry"
)

// ErrQueueClosed is returned by Send after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// HandlerFunc consumes one message.
type HandlerFunc func(ctx context.Context, msg Message) error

// LocalQueue runs messages on a fixed pool of in-process workers.
type LocalQueue struct {
	handle  HandlerFunc
	workers int
	timeout time.Duration

	ch   chan Message
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type LocalOption func(*LocalQueue)

func WithWorkers(n int) LocalOption {
	return func(q *LocalQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) LocalOption {
	return func(q *LocalQueue) {
		if n > 0 {
			q.ch = make(chan Message, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) LocalOption {
	return func(q *LocalQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewLocalQueue starts the workers immediately.
func NewLocalQueue(handle HandlerFunc, opts ...LocalOption) *LocalQueue {
	q := &LocalQueue{
		handle:  handle,
		workers: 2,
		timeout: 5 * time.Minute,
		ch:      make(chan Message, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *LocalQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				telemetry.Debug("queue.worker.started", map[string]any{"worker_id": workerID})

				for msg := range q.ch {
					q.run(workerID, msg)
				}

				telemetry.Debug("queue.worker.stopped", map[string]any{"worker_id": workerID})
			}(i + 1)
		}
	})
}

func (q *LocalQueue) run(workerID int, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)

	fields := map[string]any{
		"worker_id":   workerID,
		"document_id": msg.DocumentID,
		"request_id":  msg.RequestID,
	}
	defer func() {
		if rec := recover(); rec != nil {
			fields["panic"] = rec
			telemetry.Error("queue.job.panic", fields)
			metrics.IncWorkerJob(true)
		}
	}()

	if err := q.handle(ctx, msg); err != nil {
		fields["err"] = err
		telemetry.Error("queue.job.failed", fields)
		metrics.IncWorkerJob(true)
		return
	}
	telemetry.Info("queue.job.completed", fields)
	metrics.IncWorkerJob(false)
}

// Send enqueues msg. When the buffer is full it blocks until a slot frees up
// or ctx is done.
func (q *LocalQueue) Send(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	default:
	}
	telemetry.Warn("queue.full", map[string]any{"document_id": msg.DocumentID})
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting messages and waits for queued ones to drain or for
// ctx to end.
func (q *LocalQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		telemetry.Warn("queue.shutdown.interrupted", nil)
		return ctx.Err()
	case <-done:
		telemetry.Info("queue.shutdown.complete", nil)
		return nil
	}
}

var _ Client = (*LocalQueue)(nil)
