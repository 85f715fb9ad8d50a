package execute

import (
	"time"

	"github.com/airlock-sh/airlock/internal/engine/target"
)

// StepStatus records what happened to one step during execution.
type StepStatus string

const (
	// StepApplied means the operation ran and its postcondition held.
	StepApplied StepStatus = "applied"

	// StepDiverged means the real system no longer matched the state
	// the simulation saw; the operation was not applied.
	StepDiverged StepStatus = "diverged"

	// StepApplyFailed means the operation itself returned an error.
	StepApplyFailed StepStatus = "apply_failed"

	// StepPostconditionFailed means the operation ran but the declared
	// postcondition did not hold afterwards.
	StepPostconditionFailed StepStatus = "postcondition_failed"
)

// Failure kinds carried on a non-succeeded Result.
const (
	FailurePreconditionDivergence = "precondition_divergence"
	FailureApply                  = "apply_failed"
	FailurePostcondition          = "postcondition_verification_failed"
	FailureCancelled              = "cancelled"
	FailureRollback               = "rollback_failed"
)

// StepResult is the durable record of one executed (or attempted) step,
// including the snapshots needed to audit what changed.
type StepResult struct {
	StepID     string          `json:"step_id"`
	Op         target.Op       `json:"op"`
	Path       string          `json:"path"`
	Status     StepStatus      `json:"status"`
	Before     target.Snapshot `json:"before"`
	After      target.Snapshot `json:"after"`
	Output     string          `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// RollbackEntry records one compensating action, in the order it was
// attempted (reverse of execution order).
type RollbackEntry struct {
	StepID string        `json:"step_id"`
	Revert target.Revert `json:"revert"`
	OK     bool          `json:"ok"`
	Error  string        `json:"error,omitempty"`
}

// Result is the single, immutable outcome of executing one plan.
type Result struct {
	ID              string          `json:"id"`
	PlanID          string          `json:"plan_id"`
	ReportID        string          `json:"report_id"`
	IntentID        string          `json:"intent_id"`
	Status          State           `json:"status"`
	Steps           []StepResult    `json:"steps"`
	RollbackInvoked bool            `json:"rollback_invoked"`
	Rollbacks       []RollbackEntry `json:"rollbacks,omitempty"`
	FailureKind     string          `json:"failure_kind,omitempty"`
	Error           string          `json:"error,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

// Succeeded reports whether every step applied cleanly.
func (r Result) Succeeded() bool { return r.Status == StateSucceeded }
