package audit

import (
	"context"
	"time"
)

// Event is one audit record: who did what to which resource, with
// optional before/after snapshots.
type Event struct {
	ActorID        string
	ResourceType   string
	ResourceID     string
	Action         string
	Status         string
	ErrorMessage   string
	Before         interface{}
	After          interface{}
	RequestID      string
	IdempotencyKey string
	OccurredAt     time.Time
}

// Outcome values for Event.Status.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder accepts audit events. Recording is fire-and-forget: it must
// never block or fail the operation being audited.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// NopRecorder discards events. Used when no audit store is configured.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, event Event) {}
