// Package loadgen synthesizes feed candidate sets and drives them through
// the ranking engine, either in process or against a running server.
package loadgen

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hotpath/internal/domain/ranking"
)

// Options tunes the share of tie and edge cases in generated sets.
// Rates are probabilities in [0, 1].
type Options struct {
	// ScoreTieRate is the chance a candidate reuses the previous score.
	ScoreTieRate float64
	// TimestampTieRate is the chance a candidate reuses the previous timestamp.
	TimestampTieRate float64
	// MissingTimestampRate is the chance a candidate has no timestamp.
	MissingTimestampRate float64
	// NaNRate is the chance a candidate scores NaN.
	NaNRate float64
	// Now anchors generated timestamps. Zero means time.Now.
	Now time.Time
}

// DefaultOptions returns a mix with frequent ties and a few missing timestamps.
func DefaultOptions() Options {
	return Options{
		ScoreTieRate:         0.2,
		TimestampTieRate:     0.1,
		MissingTimestampRate: 0.05,
	}
}

// Generate returns n candidates drawn from rng. The same rng state always
// yields the same set.
func Generate(rng *rand.Rand, n int, opts Options) []ranking.Candidate {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	out := make([]ranking.Candidate, n)
	for i := range out {
		c := ranking.Candidate{ID: postID(rng, i)}

		switch {
		case rng.Float64() < opts.NaNRate:
			c.Score = math.NaN()
		case i > 0 && rng.Float64() < opts.ScoreTieRate:
			c.Score = out[i-1].Score
		default:
			c.Score = math.Round(rng.Float64()*10_000) / 100
		}

		switch {
		case rng.Float64() < opts.MissingTimestampRate:
		case i > 0 && out[i-1].Timestamp != "" && rng.Float64() < opts.TimestampTieRate:
			c.Timestamp = out[i-1].Timestamp
		default:
			age := time.Duration(rng.Int63n(int64(72 * time.Hour)))
			c.Timestamp = now.Add(-age).UTC().Format(time.RFC3339)
		}
		out[i] = c
	}
	return out
}

func postID(rng *rand.Rand, i int) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return "post-" + strconv.Itoa(i)
	}
	return "post-" + id.String()
}
