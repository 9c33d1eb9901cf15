// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/hotpath/internal/app"
	"github.com/okian/hotpath/internal/domain/model"
	"github.com/okian/hotpath/internal/domain/ranking"
	"github.com/okian/hotpath/pkg/logger"
)

const (
	defaultMaxCandidates = 10_000
	defaultMaxBodyBytes  = 4 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RankFeed orders candidates. An error means the engine misbehaved.
	RankFeed(ctx context.Context, candidates []ranking.Candidate) ([]string, error)

	// Acknowledge accepts a collaborator task for async acknowledgement.
	Acknowledge(ctx context.Context, t model.Task) (service.Ack, error)

	// CheckRateLimit answers the rate-limit route.
	CheckRateLimit(ctx context.Context, req service.RateLimitRequest) service.RateLimitResult
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	rankFeedHandler  *RankFeedHandler
	taskHandler      *TaskHandler
	rateLimitHandler *RateLimitHandler

	maxCandidates int
	maxBodyBytes  int64
	logger        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxCandidates caps the number of candidates accepted per rank request.
func WithMaxCandidates(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithMaxBodyBytes caps request body size for every JSON route.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for request logs and recovered panics.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxCandidates: defaultMaxCandidates,
		maxBodyBytes:  defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.rankFeedHandler = NewRankFeedHandler(deps, s.maxCandidates, s.maxBodyBytes)
	s.taskHandler = NewTaskHandler(deps, s.maxBodyBytes)
	s.rateLimitHandler = NewRateLimitHandler(deps, s.maxBodyBytes)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	s.route(mux, "/rank-feed", "rank_feed", s.rankFeedHandler.HandleRankFeed)
	s.route(mux, "/fanout-notification", "fanout_notification", s.taskHandler.HandleFanoutNotification)
	s.route(mux, "/index-search", "index_search", s.taskHandler.HandleIndexSearch)
	s.route(mux, "/process-media", "process_media", s.taskHandler.HandleProcessMedia)
	s.route(mux, "/rate-limit", "rate_limit", s.rateLimitHandler.HandleRateLimit)
	s.route(mux, "/health", "health", s.healthHandler.HandleLiveness)
	s.route(mux, "/healthz", "healthz", s.healthHandler.HandleHealth)
	s.route(mux, "/stats", "stats", s.statsHandler.HandleStats)
}

func (s *Server) route(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	chain := RecoverMiddleware(h, endpoint, s.logger)
	chain = MetricsMiddleware(chain, endpoint)
	chain = LoggingMiddleware(chain, endpoint, s.logger)
	chain = RequestIDMiddleware(chain)
	mux.HandleFunc(pattern, chain)
}

type ackResponse struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeKindError writes err with the status its kind maps to.
func writeKindError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// decodeBody reads exactly one JSON value from a size-limited body.
// Trailing data after the value is rejected. Oversized bodies are reported
// as ErrLimitExceeded, anything else as ErrBadRequest.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return NewKind(op, ErrEmptyBody)
		}
		return decodeError(op, err)
	}
	switch err := dec.Decode(&struct{}{}); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return WrapKind(op, ErrBadRequest, errors.New("trailing data after JSON body"))
	default:
		return decodeError(op, err)
	}
}

func decodeError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return WrapKind(op, ErrLimitExceeded, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
	}
	return WrapKind(op, ErrBadRequest, err)
}

// methodNotAllowed writes 405 with the Allow header set.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
