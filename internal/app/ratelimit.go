package service

import "context"

// RateLimitRequest mirrors the rate-limit route body.
type RateLimitRequest struct {
	Key           string
	Limit         uint32
	WindowSeconds uint32
}

// RateLimitResult is the rate-limit route response.
type RateLimitResult struct {
	Success   bool
	Limit     uint32
	Remaining uint32
}

// CheckRateLimit always approves. It keeps no counters and no window; the
// route exists so callers have a stable contract to code against.
func (s *Service) CheckRateLimit(_ context.Context, req RateLimitRequest) RateLimitResult {
	remaining := uint32(0)
	if req.Limit > 0 {
		remaining = req.Limit - 1
	}
	return RateLimitResult{
		Success:   true,
		Limit:     req.Limit,
		Remaining: remaining,
	}
}
