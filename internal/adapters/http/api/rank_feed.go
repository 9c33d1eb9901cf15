package api

import (
	"fmt"
	"net/http"

	"github.com/okian/hotpath/internal/domain/ranking"
)

// rankFeedRequest mirrors the OpenAPI schema for POST /rank-feed.
// Pointers distinguish absent fields from zero values.
type rankFeedRequest struct {
	Candidates *[]candidateRequest `json:"candidates"`
}

type candidateRequest struct {
	PostID    *string  `json:"post_id"`
	Score     *float64 `json:"score"`
	CreatedAt *string  `json:"created_at"`
}

type rankFeedResponse struct {
	OrderedPostIDs []string `json:"ordered_post_ids"`
}

func toCandidates(in []candidateRequest) ([]ranking.Candidate, error) {
	out := make([]ranking.Candidate, len(in))
	for i, c := range in {
		switch {
		case c.PostID == nil || *c.PostID == "":
			return nil, fmt.Errorf("candidate %d: missing post_id", i)
		case c.Score == nil:
			return nil, fmt.Errorf("candidate %d: missing score", i)
		}
		out[i] = ranking.Candidate{ID: *c.PostID, Score: *c.Score}
		if c.CreatedAt != nil {
			out[i].Timestamp = *c.CreatedAt
		}
	}
	return out, nil
}

// RankFeedHandler handles feed ranking requests.
type RankFeedHandler struct {
	deps          Dependencies
	maxCandidates int
	maxBodyBytes  int64
}

// NewRankFeedHandler creates a new rank feed handler.
func NewRankFeedHandler(deps Dependencies, maxCandidates int, maxBodyBytes int64) *RankFeedHandler {
	return &RankFeedHandler{deps: deps, maxCandidates: maxCandidates, maxBodyBytes: maxBodyBytes}
}

// HandleRankFeed handles POST /rank-feed requests.
func (h *RankFeedHandler) HandleRankFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank_feed"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req rankFeedRequest
	if err := decodeBody(w, r, op, h.maxBodyBytes, &req); err != nil {
		writeKindError(w, err)
		return
	}
	if req.Candidates == nil {
		writeKindError(w, NewKind(op, ErrMissingCandidates))
		return
	}
	if n := len(*req.Candidates); n > h.maxCandidates {
		writeKindError(w, WrapKind(op, ErrLimitExceeded,
			fmt.Errorf("%d candidates exceeds limit of %d", n, h.maxCandidates)))
		return
	}
	candidates, err := toCandidates(*req.Candidates)
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	ids, err := h.deps.RankFeed(r.Context(), candidates)
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rankFeedResponse{OrderedPostIDs: ids})
}
