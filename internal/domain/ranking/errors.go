package ranking

import "errors"

// Sentinel kinds for ranking verification errors.
var (
	ErrNotPermutation = errors.New("ranked ids are not a permutation of the candidates")
	ErrOutOfOrder     = errors.New("ranked ids are out of order")
)
