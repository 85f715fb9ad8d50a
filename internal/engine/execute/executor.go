package execute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/simulate"
	"github.com/airlock-sh/airlock/internal/engine/target"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// ErrNotAdmitted means the plan/report pair handed to the executor is
// not in an executable condition. Admission normally catches this; the
// executor re-checks because it is the last line before real mutation.
var ErrNotAdmitted = errors.New("plan not admitted for execution")

// Executor applies one plan at a time. Steps run strictly in order;
// cancellation is honored only between steps, never mid-step, and
// rollback runs to completion even under a cancelled context.
type Executor struct {
	sys         target.System
	stepTimeout time.Duration
	logger      *logging.Logger
}

// NewExecutor builds an executor over sys. stepTimeout bounds the
// per-step apply call; zero means no bound.
func NewExecutor(sys target.System, stepTimeout time.Duration, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{sys: sys, stepTimeout: stepTimeout, logger: logger}
}

type completedStep struct {
	step   plan.Step
	before target.Snapshot
}

// Execute runs every step of p, re-verifying preconditions against the
// live system first. Any failure triggers rollback of all completed
// steps in reverse order before Execute returns. The returned Result is
// valid (and must be audited) even when err is nil and the status is a
// failure state; err is reserved for refusals and internal faults that
// prevented execution from starting.
func (e *Executor) Execute(ctx context.Context, p plan.Plan, rep simulate.Report) (Result, error) {
	if rep.PlanID != p.ID {
		return Result{}, fmt.Errorf("%w: report %s does not cover plan %s", ErrNotAdmitted, rep.ID, p.ID)
	}
	if rep.Status != simulate.StatusSuccess {
		return Result{}, fmt.Errorf("%w: simulation status is %s", ErrNotAdmitted, rep.Status)
	}

	res := Result{
		ID:        uuid.NewString(),
		PlanID:    p.ID,
		ReportID:  rep.ID,
		IntentID:  p.IntentID,
		Status:    StateExecuting,
		Steps:     make([]StepResult, 0, len(p.Steps)),
		StartedAt: time.Now().UTC(),
	}
	e.logger.Info("execution started", "plan_id", p.ID, "steps", len(p.Steps))

	var completed []completedStep
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, res, completed, FailureCancelled,
				fmt.Sprintf("cancelled before step %d (%s)", i+1, step.ID)), nil
		}

		sr, before, failure := e.runStep(ctx, step)
		res.Steps = append(res.Steps, sr)
		if failure != "" {
			return e.fail(ctx, res, completed, failure, sr.Error), nil
		}
		completed = append(completed, completedStep{step: step, before: before})
	}

	res.Status = StateSucceeded
	res.FinishedAt = time.Now().UTC()
	e.logger.Info("execution succeeded", "plan_id", p.ID, "result_id", res.ID)
	return res, nil
}

// runStep re-verifies, applies, and post-verifies a single step. The
// returned failure kind is empty on success.
//
// A step in flight is never interrupted: caller cancellation is honored
// only at the loop boundary in Execute. Letting a cancellation abort the
// post-verification of an already-applied step would misclassify it as a
// postcondition failure and drop it from the rollback set while its
// mutation persists.
func (e *Executor) runStep(ctx context.Context, step plan.Step) (StepResult, target.Snapshot, string) {
	ctx = context.WithoutCancel(ctx)
	sr := StepResult{
		StepID:    step.ID,
		Op:        step.Op,
		Path:      step.Path,
		StartedAt: time.Now().UTC(),
	}
	finish := func(status StepStatus, errText string) StepResult {
		sr.Status = status
		sr.Error = errText
		sr.FinishedAt = time.Now().UTC()
		return sr
	}

	before, err := e.sys.Snapshot(ctx, step.Path)
	if err != nil {
		return finish(StepApplyFailed, fmt.Sprintf("snapshot: %v", err)), before, FailureApply
	}
	sr.Before = before

	// The simulation verdict may be stale; the system can have changed
	// between dry run and execution.
	if check, err := target.CheckAll(ctx, e.sys, step.Pre); err != nil {
		return finish(StepApplyFailed, fmt.Sprintf("precondition check: %v", err)), before, FailureApply
	} else if check != nil {
		return finish(StepDiverged, fmt.Sprintf("precondition diverged: %s", check.Detail)), before, FailurePreconditionDivergence
	}

	stepCtx := ctx
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}
	out, err := e.sys.Apply(stepCtx, step.Op, step.Path, step.Params)
	if err != nil {
		return finish(StepApplyFailed, fmt.Sprintf("apply %s: %v", step.Op, err)), before, FailureApply
	}
	sr.Output = out

	if check, err := target.CheckAll(ctx, e.sys, step.Post); err != nil {
		return finish(StepPostconditionFailed, fmt.Sprintf("postcondition check: %v", err)), before, FailurePostcondition
	} else if check != nil {
		return finish(StepPostconditionFailed, fmt.Sprintf("postcondition not met: %s", check.Detail)), before, FailurePostcondition
	}

	after, err := e.sys.Snapshot(ctx, step.Path)
	if err != nil {
		return finish(StepPostconditionFailed, fmt.Sprintf("after snapshot: %v", err)), before, FailurePostcondition
	}
	sr.After = after
	return finish(StepApplied, ""), before, ""
}

// fail rolls back every completed step in reverse order and settles the
// result in a terminal failure state.
func (e *Executor) fail(ctx context.Context, res Result, completed []completedStep, kind, detail string) Result {
	res.FailureKind = kind
	res.Error = detail
	res.RollbackInvoked = len(completed) > 0
	e.logger.Warn("execution failed, rolling back",
		"plan_id", res.PlanID,
		"failure", kind,
		"completed_steps", len(completed),
	)

	// Rollback must finish even when the surrounding context is the
	// reason we are here.
	rbCtx := context.WithoutCancel(ctx)

	rolledBack := true
	for i := len(completed) - 1; i >= 0; i-- {
		c := completed[i]
		entry := RollbackEntry{StepID: c.step.ID, Revert: c.step.Rollback}
		if c.step.Rollback.Kind == target.RevertNone {
			entry.OK = true
			res.Rollbacks = append(res.Rollbacks, entry)
			continue
		}
		if err := e.sys.Revert(rbCtx, c.step.Rollback, c.before); err != nil {
			entry.Error = err.Error()
			res.Rollbacks = append(res.Rollbacks, entry)
			rolledBack = false
			// Fatal: never retried, never continued past.
			e.logger.Error("rollback failed", "plan_id", res.PlanID, "step_id", c.step.ID, "error", err.Error())
			break
		}
		entry.OK = true
		res.Rollbacks = append(res.Rollbacks, entry)
	}

	if rolledBack {
		res.Status = StateFailedRolledBack
	} else {
		// The original failure kind stays on the result; the status and
		// the failing rollback entry carry the fatal condition.
		res.Status = StateFailedNoRollback
	}
	res.FinishedAt = time.Now().UTC()
	return res
}
