// Package simulate evaluates an execution plan against the current real
// system without mutating anything. Predicted effects of earlier steps are
// tracked in a shadow overlay so later steps in the same plan are judged
// against the state they would actually see.
package simulate

import (
	"time"

	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/target"
)

// Status is the aggregate verdict of a simulation.
type Status string

const (
	// StatusSuccess means every precondition holds and no step exceeds
	// the risk threshold; the plan is eligible for gating.
	StatusSuccess Status = "SUCCESS"

	// StatusBlocked means a precondition failed; the report records the
	// blocking step and the remaining steps are not evaluated.
	StatusBlocked Status = "BLOCKED"

	// StatusUnsafe means a step's effective risk exceeds the threshold
	// and the intent carries no override.
	StatusUnsafe Status = "UNSAFE"
)

// StepOutcome is the simulated result for one step.
type StepOutcome struct {
	StepID    string `json:"step_id"`
	Evaluated bool   `json:"evaluated"`

	// Holds is meaningful only when Evaluated is true.
	Holds bool `json:"holds"`

	// EffectiveRisk is the plan risk after real-state escalations
	// (overwriting an existing file, mutating a non-restorable one).
	EffectiveRisk plan.Risk `json:"effective_risk,omitempty"`

	// Predicted describes the diff the step would cause.
	Predicted string `json:"predicted,omitempty"`

	// FailedCheck carries the first precondition that did not hold.
	FailedCheck *target.CheckResult `json:"failed_check,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// Report is the immutable result of simulating one plan.
type Report struct {
	ID        string        `json:"id"`
	PlanID    string        `json:"plan_id"`
	Status    Status        `json:"status"`
	Steps     []StepOutcome `json:"steps"`
	Risk      plan.Risk     `json:"risk"`
	CreatedAt time.Time     `json:"created_at"`
}

// Succeeded reports whether the plan is eligible for gating
func (r Report) Succeeded() bool {
	return r.Status == StatusSuccess
}
