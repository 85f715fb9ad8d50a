// Package audit persists every pipeline artifact to an append-only
// trail. The trail is the sole durable state surface of the engine:
// records are never updated or deleted once written.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordKind tags which pipeline artifact a record carries.
type RecordKind string

const (
	KindIntent RecordKind = "intent"
	KindPlan   RecordKind = "plan"
	KindReport RecordKind = "report"
	KindResult RecordKind = "result"
)

// Kinds lists all record kinds in pipeline order.
func Kinds() []RecordKind {
	return []RecordKind{KindIntent, KindPlan, KindReport, KindResult}
}

// ErrDuplicate is returned when a (plan_id, kind) pair is appended a
// second time. Each plan gets at most one record of each kind.
var ErrDuplicate = errors.New("audit record already exists for this plan")

// Record is the envelope stored in the trail. Payload holds the JSON
// serialization of the artifact itself.
type Record struct {
	ID        string          `json:"id"`
	PlanID    string          `json:"plan_id"`
	Kind      RecordKind      `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord wraps an artifact for appending.
func NewRecord(planID string, kind RecordKind, artifact any) (Record, error) {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s record: %w", kind, err)
	}
	return Record{
		ID:        uuid.NewString(),
		PlanID:    planID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Filter narrows a trail query. Zero values match everything.
type Filter struct {
	PlanID string
	Kind   RecordKind
	Since  time.Time
	Limit  int
}

// Trail is the append-only audit store.
type Trail interface {
	// Append writes one record. It fails with ErrDuplicate if the plan
	// already has a record of the same kind.
	Append(ctx context.Context, rec Record) error

	// Query returns matching records in append order.
	Query(ctx context.Context, f Filter) ([]Record, error)

	// HasResult reports whether an execution result exists for planID.
	// The admission gates use this for the idempotency check.
	HasResult(ctx context.Context, planID string) (bool, error)

	// Watch delivers records appended after the call. The returned stop
	// function releases the subscription; slow consumers miss records
	// rather than blocking appends.
	Watch() (<-chan Record, func())

	Close() error
}
