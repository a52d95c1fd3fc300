package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// ActorRef identifies who issued the command that produced the event.
type ActorRef struct {
	ActorID string `json:"actorId"`
	Source  string `json:"source,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events and
// shipped verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

type actorKey struct{}

// WithActor records the operator issuing the current command. Emit stamps it
// onto events that carry no explicit actor.
func WithActor(ctx context.Context, actorID, source string) context.Context {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, &ActorRef{ActorID: actorID, Source: source})
}

// ActorFromContext returns the actor stored by WithActor, or nil.
func ActorFromContext(ctx context.Context) *ActorRef {
	if ctx == nil {
		return nil
	}
	actor, _ := ctx.Value(actorKey{}).(*ActorRef)
	return actor
}

// ActorID returns the stored actor id, or "" when none was recorded.
func ActorID(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil {
		return actor.ActorID
	}
	return ""
}
