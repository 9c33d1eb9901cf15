// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	taskqueue "github.com/okian/hotpath/internal/adapters/mq/queue"
	workerpool "github.com/okian/hotpath/internal/adapters/mq/worker"
	"github.com/okian/hotpath/internal/domain/dedupe"
	"github.com/okian/hotpath/internal/domain/model"
	"github.com/okian/hotpath/internal/domain/ranking"
	"github.com/okian/hotpath/pkg/logger"
	"github.com/okian/hotpath/pkg/metrics"
)

const defaultStopTimeout = 10 * time.Second

// Ack is the outcome of an accepted collaborator request.
type Ack struct {
	Accepted  bool
	Duplicate bool
}

// Service ranks feeds and acknowledges collaborator requests.
type Service struct {
	mu sync.RWMutex

	// Core components
	deduper dedupe.Deduper
	queue   *taskqueue.InMemoryQueue
	pool    *workerpool.Pool
	sink    workerpool.Sink

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	stopTimeout time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	// Counters
	rankCalls       atomic.Int64
	rankedTotal     atomic.Int64
	engineFaults    atomic.Int64
	acksAccepted    atomic.Int64
	acksDuplicate   atomic.Int64
	acksBackpressed atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of acknowledgement workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the acknowledgement queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of fan-out idempotency keys kept.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithStopTimeout bounds how long Stop waits for queued tasks to drain.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithSink replaces the default acknowledging sink.
func WithSink(sink workerpool.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  50_000,
		stopTimeout: defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the acknowledgement pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.sink == nil {
		s.sink = newAckSink(s.logger.Named("ack"))
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = taskqueue.NewInMemoryQueue(taskqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.sink)

	// Workers outlive the caller's context so Stop can drain them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "hotpath service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued tasks and shuts the pipeline down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping hotpath service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "hotpath service stopped")
}

// RankFeed ranks candidates and verifies the result before returning it.
// The only error is ErrEngineFault, which signals a defect, not bad input.
func (s *Service) RankFeed(_ context.Context, candidates []ranking.Candidate) ([]string, error) {
	start := time.Now()
	ids := ranking.Rank(candidates)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	s.rankCalls.Add(1)
	metrics.RecordRank(len(candidates), elapsed)
	metrics.RecordNaNScores(countNaN(candidates))

	if err := ranking.IsRanked(candidates, ids); err != nil {
		s.engineFaults.Add(1)
		metrics.RecordEngineFault()
		return nil, fmt.Errorf("%w: %w", ErrEngineFault, err)
	}
	s.rankedTotal.Add(int64(len(ids)))
	return ids, nil
}

func countNaN(candidates []ranking.Candidate) int {
	n := 0
	for _, c := range candidates {
		if math.IsNaN(c.Score) {
			n++
		}
	}
	return n
}

// Acknowledge accepts a collaborator task for asynchronous acknowledgement.
// Fan-out tasks carrying an idempotency key are accepted at most once.
func (s *Service) Acknowledge(ctx context.Context, t model.Task) (Ack, error) { //nolint:gocritic // hugeParam: Task is passed by value through the queue
	if err := t.Validate(); err != nil {
		return Ack{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Ack{}, ErrNotStarted
	}

	dedupeKey := ""
	if t.Kind == model.KindFanoutNotification && t.IdempotencyKey != "" {
		dedupeKey = t.IdempotencyKey
		if s.deduper.SeenAndRecord(ctx, dedupeKey) {
			s.acksDuplicate.Add(1)
			s.logger.Debug(ctx, "duplicate fan-out request",
				logger.String("notificationID", dedupeKey),
			)
			return Ack{Accepted: true, Duplicate: true}, nil
		}
	}

	if !s.queue.Enqueue(ctx, t) {
		if dedupeKey != "" {
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		s.acksBackpressed.Add(1)
		return Ack{}, ErrBackpressure
	}
	s.acksAccepted.Add(1)
	return Ack{Accepted: true}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"rankCalls":       s.rankCalls.Load(),
		"rankedTotal":     s.rankedTotal.Load(),
		"engineFaults":    s.engineFaults.Load(),
		"acksAccepted":    s.acksAccepted.Load(),
		"acksDuplicate":   s.acksDuplicate.Load(),
		"acksBackpressed": s.acksBackpressed.Load(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}
