package loadgen

import "errors"

// Sentinel kinds for load generation errors.
var (
	ErrUnencodableScore = errors.New("score cannot be encoded as JSON")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrInvalidConfig    = errors.New("invalid verify config")
)
