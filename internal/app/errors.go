package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrEngineFault  = errors.New("ranking engine fault")
	ErrBackpressure = errors.New("acknowledgement queue is full")
	ErrNotStarted   = errors.New("service not started")
)
