package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/hotpath/internal/domain/ranking"
)

const defaultClientTimeout = 10 * time.Second

type candidateJSON struct {
	PostID    string  `json:"post_id"`
	Score     float64 `json:"score"`
	CreatedAt *string `json:"created_at,omitempty"`
}

type rankFeedBody struct {
	Candidates []candidateJSON `json:"candidates"`
}

type rankFeedReply struct {
	OrderedPostIDs []string `json:"ordered_post_ids"`
}

// Client calls the rank-feed route of a running server.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RankFeed posts candidates and returns the server's ordering.
// JSON has no NaN, so NaN scores are rejected before sending.
func (c *Client) RankFeed(ctx context.Context, candidates []ranking.Candidate) ([]string, error) {
	body := rankFeedBody{Candidates: make([]candidateJSON, len(candidates))}
	for i, cand := range candidates {
		if math.IsNaN(cand.Score) || math.IsInf(cand.Score, 0) {
			return nil, fmt.Errorf("%w: candidate %q", ErrUnencodableScore, cand.ID)
		}
		body.Candidates[i] = candidateJSON{PostID: cand.ID, Score: cand.Score}
		if cand.Timestamp != "" {
			ts := cand.Timestamp
			body.Candidates[i].CreatedAt = &ts
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rank-feed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post rank-feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var reply rankFeedReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return reply.OrderedPostIDs, nil
}
