package api

import (
	"net/http"

	"github.com/okian/hotpath/internal/domain/model"
)

// fanoutRequest mirrors the OpenAPI schema for POST /fanout-notification.
type fanoutRequest struct {
	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
	ActorID        string `json:"actor_id"`
	Kind           string `json:"kind"`
}

func (f fanoutRequest) task() model.Task {
	return model.Task{
		Kind:           model.KindFanoutNotification,
		IdempotencyKey: f.NotificationID,
		RecipientID:    f.RecipientID,
		ActorID:        f.ActorID,
		Type:           f.Kind,
	}
}

type indexSearchRequest struct {
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
}

func (i indexSearchRequest) task() model.Task {
	return model.Task{Kind: model.KindIndexSearch, Entity: i.Entity, EntityID: i.EntityID}
}

type processMediaRequest struct {
	MediaID   string `json:"media_id"`
	MediaType string `json:"media_type"`
	URL       string `json:"url"`
}

func (p processMediaRequest) task() model.Task {
	return model.Task{Kind: model.KindProcessMedia, MediaID: p.MediaID, MediaType: p.MediaType, URL: p.URL}
}

// TaskHandler accepts collaborator requests and hands them off for
// acknowledgement. None of them is performed here.
type TaskHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(deps Dependencies, maxBodyBytes int64) *TaskHandler {
	return &TaskHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleFanoutNotification handles POST /fanout-notification requests.
func (h *TaskHandler) HandleFanoutNotification(w http.ResponseWriter, r *http.Request) {
	var req fanoutRequest
	h.accept(w, r, "api.fanout_notification", &req, func() model.Task { return req.task() })
}

// HandleIndexSearch handles POST /index-search requests.
func (h *TaskHandler) HandleIndexSearch(w http.ResponseWriter, r *http.Request) {
	var req indexSearchRequest
	h.accept(w, r, "api.index_search", &req, func() model.Task { return req.task() })
}

// HandleProcessMedia handles POST /process-media requests.
func (h *TaskHandler) HandleProcessMedia(w http.ResponseWriter, r *http.Request) {
	var req processMediaRequest
	h.accept(w, r, "api.process_media", &req, func() model.Task { return req.task() })
}

func (h *TaskHandler) accept(w http.ResponseWriter, r *http.Request, op string, req any, build func() model.Task) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := decodeBody(w, r, op, h.maxBodyBytes, req); err != nil {
		writeKindError(w, err)
		return
	}

	ack, err := h.deps.Acknowledge(r.Context(), build())
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Accepted: true, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Accepted: true})
}
