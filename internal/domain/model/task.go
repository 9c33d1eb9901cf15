// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
)

// Kind names a collaborator route whose requests are acknowledged
// asynchronously.
type Kind string

// Known task kinds.
const (
	KindFanoutNotification Kind = "fanout_notification"
	KindIndexSearch        Kind = "index_search"
	KindProcessMedia       Kind = "process_media"
)

// Kinds lists every task kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindFanoutNotification, KindIndexSearch, KindProcessMedia}
}

// ErrInvalidTask is returned by Validate for incomplete tasks.
var ErrInvalidTask = errors.New("invalid task")

// Task is an accepted collaborator request waiting to be acknowledged.
// Fields mirror the request bodies of the collaborator routes; unused
// fields stay empty for a given kind.
type Task struct {
	Kind Kind

	// IdempotencyKey deduplicates fan-out requests. Optional.
	IdempotencyKey string

	// fanout_notification
	RecipientID string
	ActorID     string
	Type        string

	// index_search
	Entity   string
	EntityID string

	// process_media
	MediaID   string
	MediaType string
	URL       string
}

// Validate checks the required fields for the task's kind.
func (t Task) Validate() error { //nolint:gocritic // hugeParam: Task is passed by value through the queue
	var missing string
	switch t.Kind {
	case KindFanoutNotification:
		missing = firstEmpty(
			field{"recipient_id", t.RecipientID},
			field{"actor_id", t.ActorID},
			field{"kind", t.Type},
		)
	case KindIndexSearch:
		missing = firstEmpty(
			field{"entity", t.Entity},
			field{"entity_id", t.EntityID},
		)
	case KindProcessMedia:
		missing = firstEmpty(
			field{"media_id", t.MediaID},
			field{"media_type", t.MediaType},
			field{"url", t.URL},
		)
	default:
		return errors.Join(ErrInvalidTask, errors.New("unknown kind "+string(t.Kind)))
	}
	if missing != "" {
		return errors.Join(ErrInvalidTask, errors.New("missing "+missing))
	}
	return nil
}

type field struct {
	name  string
	value string
}

func firstEmpty(fields ...field) string {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}
