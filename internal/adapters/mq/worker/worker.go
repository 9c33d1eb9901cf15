// Package worker drains the acknowledgement queue with a pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/hotpath/internal/domain/model"
	"github.com/okian/hotpath/pkg/logger"
	"github.com/okian/hotpath/pkg/metrics"
)

const defaultPoolShutdownTimeout = 30 * time.Second

// Sink acknowledges a task. Returning an error only logs and counts it; the
// task is not retried.
type Sink interface {
	Acknowledge(ctx context.Context, t model.Task) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, t model.Task) error

// Acknowledge calls f.
func (f SinkFunc) Acknowledge(ctx context.Context, t model.Task) error { //nolint:gocritic // hugeParam: Task is passed by value through the queue
	return f(ctx, t)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Task
}

// observer is implemented by queues that track dequeue metrics.
type observer interface {
	Observe()
}

// InMemoryWorker reads tasks off the queue and hands them to the sink.
type InMemoryWorker struct {
	queue Queue
	sink  Sink
	name  string

	stop <-chan struct{}
	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue: queue,
		sink:  sink,
		name:  "worker",
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes tasks until the queue channel closes, ctx is done, or the
// worker is stopped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			if o, isObserver := w.queue.(observer); isObserver {
				o.Observe()
			}
			if err := w.process(ctx, task); err != nil {
				w.logger.Error(ctx, "error acknowledging task", logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, task model.Task) (err error) { //nolint:gocritic // hugeParam: Task must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic on %s task: %v", task.Kind, r)
		}
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordWorkerProcessingLatency(elapsed)
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "sink_error")
			metrics.RecordErrorLatency("worker", "sink_error", elapsed)
		}
	}()

	if err := w.sink.Acknowledge(ctx, task); err != nil {
		return fmt.Errorf("acknowledge %s task: %w", task.Kind, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	stop     chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 defaults to runtime.NumCPU().
func NewPool(workerCount int, queue Queue, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		stop:    make(chan struct{}),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, sink,
			WithName("worker-"+strconv.Itoa(i)),
			withStop(pool.stop),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain what was already
// queued. Workers still busy when ctx expires (or after
// defaultPoolShutdownTimeout) are stopped without draining.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, defaultPoolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-waitCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("%w: %w", ErrShutdownTimeout, waitCtx.Err())
		}
		if err != nil {
			break
		}
	}

	p.stopOnce.Do(func() { close(p.stop) })
	metrics.UpdateWorkerCount(0)
	return err
}
