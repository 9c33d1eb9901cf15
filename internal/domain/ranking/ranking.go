// Package ranking orders scored feed candidates into a deterministic total order.
//
// The engine is a pure function: it keeps no state between calls, performs no
// I/O and never mutates the slice it is given, so it is safe to call from any
// number of goroutines.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Candidate is one item eligible for ranking.
type Candidate struct {
	// ID identifies the candidate. Callers are expected to keep it unique
	// within one request; duplicates are passed through unchanged.
	ID string
	// Score is the primary sort key, highest first. NaN is allowed.
	Score float64
	// Timestamp is an opaque recency token compared lexicographically,
	// latest first. Empty means missing.
	Timestamp string
}

// Compare reports the relative order of a and b in ranked output.
// It returns a negative number when a ranks before b, a positive number when
// b ranks before a and zero only when every key is equal.
//
// Keys, in order: score descending, timestamp descending (missing sorts as
// the empty string), ID ascending. A NaN score ranks below every other score
// and two NaN scores tie.
func Compare(a, b Candidate) int {
	if c := compareScore(a.Score, b.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// compareScore orders scores descending with NaN last.
func compareScore(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// Sort returns a ranked copy of candidates. The input slice is not modified.
func Sort(candidates []Candidate) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	slices.SortStableFunc(sorted, Compare)
	return sorted
}

// Rank returns the candidate IDs ordered highest priority first.
// The result is always a permutation of the input IDs; an empty input yields
// an empty, non-nil slice.
func Rank(candidates []Candidate) []string {
	sorted := Sort(candidates)
	ids := make([]string, len(sorted))
	for i, c := range sorted {
		ids[i] = c.ID
	}
	return ids
}

// IsRanked checks that ids is exactly the ranked order of candidates.
// It returns an error wrapping ErrNotPermutation or ErrOutOfOrder.
// It runs in linear time when IDs are unique; only groups sharing an ID are
// sorted.
func IsRanked(candidates []Candidate, ids []string) error {
	if len(ids) != len(candidates) {
		return fmt.Errorf("%w: got %d ids for %d candidates", ErrNotPermutation, len(ids), len(candidates))
	}

	// Multiset of candidates keyed by ID. A sorted sequence lists candidates
	// sharing an ID in Compare order, so each ID is consumed best first.
	byID := make(map[string][]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = append(byID[c.ID], c)
	}
	for _, group := range byID {
		if len(group) > 1 {
			slices.SortFunc(group, Compare)
		}
	}

	var prev Candidate
	for i, id := range ids {
		pending := byID[id]
		if len(pending) == 0 {
			return fmt.Errorf("%w: unexpected id %q at position %d", ErrNotPermutation, id, i)
		}
		cur := pending[0]
		byID[id] = pending[1:]

		if i > 0 && Compare(prev, cur) > 0 {
			return fmt.Errorf("%w: %q ranked after %q at position %d", ErrOutOfOrder, cur.ID, prev.ID, i)
		}
		prev = cur
	}
	return nil
}
