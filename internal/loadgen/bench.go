package loadgen

import (
	"math/rand"
	"time"

	"github.com/okian/hotpath/internal/domain/ranking"
)

// BenchResult holds per-batch ranking durations.
type BenchResult struct {
	Posts     int
	Durations []time.Duration
}

// Average returns the mean batch duration.
func (r BenchResult) Average() time.Duration {
	if len(r.Durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range r.Durations {
		total += d
	}
	return total / time.Duration(len(r.Durations))
}

// Bench ranks batches of generated candidates in process and times each
// batch. Generation is excluded from the timings.
func Bench(rng *rand.Rand, posts, batches int, opts Options) (BenchResult, error) {
	res := BenchResult{Posts: posts, Durations: make([]time.Duration, 0, batches)}
	for b := 0; b < batches; b++ {
		in := Generate(rng, posts, opts)

		start := time.Now()
		ids := ranking.Rank(in)
		res.Durations = append(res.Durations, time.Since(start))

		if err := ranking.IsRanked(in, ids); err != nil {
			return res, err
		}
	}
	return res, nil
}
