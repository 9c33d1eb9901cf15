package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/hotpath/internal/app"
)

type rateLimitRequest struct {
	Key           *string `json:"key"`
	Limit         *uint32 `json:"limit"`
	WindowSeconds *uint32 `json:"window_seconds"`
}

func (r rateLimitRequest) validate() error {
	switch {
	case r.Key == nil || strings.TrimSpace(*r.Key) == "":
		return errors.New("missing key")
	case r.Limit == nil:
		return errors.New("missing limit")
	case r.WindowSeconds == nil:
		return errors.New("missing window_seconds")
	}
	return nil
}

type rateLimitResponse struct {
	Success   bool   `json:"success"`
	Limit     uint32 `json:"limit"`
	Remaining uint32 `json:"remaining"`
}

// RateLimitHandler handles rate-limit checks.
type RateLimitHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewRateLimitHandler creates a new rate-limit handler.
func NewRateLimitHandler(deps Dependencies, maxBodyBytes int64) *RateLimitHandler {
	return &RateLimitHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleRateLimit handles POST /rate-limit requests.
func (h *RateLimitHandler) HandleRateLimit(w http.ResponseWriter, r *http.Request) {
	const op = "api.rate_limit"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req rateLimitRequest
	if err := decodeBody(w, r, op, h.maxBodyBytes, &req); err != nil {
		writeKindError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res := h.deps.CheckRateLimit(r.Context(), service.RateLimitRequest{
		Key:           *req.Key,
		Limit:         *req.Limit,
		WindowSeconds: *req.WindowSeconds,
	})
	writeJSON(w, http.StatusOK, rateLimitResponse{
		Success:   res.Success,
		Limit:     res.Limit,
		Remaining: res.Remaining,
	})
}
