package loadgen

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/okian/hotpath/internal/domain/ranking"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Ranker is anything that ranks candidates remotely, such as Client.
type Ranker interface {
	RankFeed(ctx context.Context, candidates []ranking.Candidate) ([]string, error)
}

// VerifyConfig controls a verification run.
type VerifyConfig struct {
	Requests    int
	Posts       int
	Concurrency int
	// RPS caps request rate; zero or less means unlimited.
	RPS     float64
	Seed    int64
	Options Options
}

// Report summarizes a verification run. Failed counts responses that were
// not the correct ordering; Errors counts requests that got no ordering.
type Report struct {
	Succeeded int
	Failed    int
	Errors    int
	Latencies []time.Duration
	// FirstFailure describes the first mismatch seen, if any.
	FirstFailure error
}

// Percentile returns the p-th latency percentile, p in [0, 100].
func (r Report) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(r.Latencies)
	slices.Sort(sorted)
	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[idx]
}

// Verify sends generated candidate sets to r and checks every ordering
// with ranking.IsRanked. Request i uses the seed Seed+i, so a failing set
// can be regenerated. NaN scores are never sent.
func Verify(ctx context.Context, r Ranker, cfg VerifyConfig) (Report, error) {
	if cfg.Requests <= 0 || cfg.Posts < 0 {
		return Report{}, fmt.Errorf("%w: requests=%d posts=%d", ErrInvalidConfig, cfg.Requests, cfg.Posts)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	opts := cfg.Options
	opts.NaNRate = 0

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	var (
		mu  sync.Mutex
		rep = Report{Latencies: make([]time.Duration, 0, cfg.Requests)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i := 0; i < cfg.Requests; i++ {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		seed := cfg.Seed + int64(i)
		g.Go(func() error {
			in := Generate(rand.New(rand.NewSource(seed)), cfg.Posts, opts)

			start := time.Now()
			ids, err := r.RankFeed(gctx, in)
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Errors++
				return nil
			}
			rep.Latencies = append(rep.Latencies, elapsed)
			if err := ranking.IsRanked(in, ids); err != nil {
				rep.Failed++
				if rep.FirstFailure == nil {
					rep.FirstFailure = fmt.Errorf("seed %d: %w", seed, err)
				}
				return nil
			}
			rep.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled run still reports what completed.
	return rep, ctx.Err()
}
