package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/target"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// ReasonNotEvaluated marks steps after the first blocking one.
const ReasonNotEvaluated = "not evaluated"

// Simulator produces dry-run reports. It only ever reads from the
// system, so simulating the same plan twice against an unchanged tree
// yields the same verdict.
type Simulator struct {
	insp      target.Inspector
	threshold plan.Risk
	logger    *logging.Logger
}

// NewSimulator builds a simulator over insp. Steps whose effective risk
// exceeds RiskHigh are refused unless the intent carries an override.
func NewSimulator(insp target.Inspector, logger *logging.Logger) *Simulator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Simulator{insp: insp, threshold: plan.RiskHigh, logger: logger}
}

// Simulate evaluates every step of p in order against the shadowed
// state. It halts at the first failing precondition and marks the rest
// of the steps as not evaluated.
func (s *Simulator) Simulate(ctx context.Context, in intent.Intent, p plan.Plan) (Report, error) {
	if p.IntentID != in.ID {
		return Report{}, fmt.Errorf("plan %s was not generated from intent %s", p.ID, in.ID)
	}

	rep := Report{
		ID:        uuid.NewString(),
		PlanID:    p.ID,
		Status:    StatusSuccess,
		Steps:     make([]StepOutcome, 0, len(p.Steps)),
		Risk:      plan.RiskLow,
		CreatedAt: time.Now().UTC(),
	}

	sh := newShadow(s.insp)
	blocked := false
	for _, step := range p.Steps {
		if blocked {
			rep.Steps = append(rep.Steps, StepOutcome{StepID: step.ID, Reason: ReasonNotEvaluated})
			continue
		}
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		out, err := s.simulateStep(ctx, sh, step)
		if err != nil {
			return Report{}, fmt.Errorf("simulate step %s: %w", step.ID, err)
		}
		rep.Steps = append(rep.Steps, out)
		rep.Risk = plan.MaxRisk(rep.Risk, out.EffectiveRisk)
		if !out.Holds {
			rep.Status = StatusBlocked
			blocked = true
		}
	}

	if rep.Status == StatusSuccess && rep.Risk.Exceeds(s.threshold) && in.SafetyLevel != intent.SafetyOverride {
		rep.Status = StatusUnsafe
	}

	s.logger.Debug("simulated plan",
		"plan_id", p.ID,
		"report_id", rep.ID,
		"status", string(rep.Status),
		"risk", string(rep.Risk),
	)
	return rep, nil
}

func (s *Simulator) simulateStep(ctx context.Context, sh *shadow, step plan.Step) (StepOutcome, error) {
	out := StepOutcome{StepID: step.ID, Evaluated: true, EffectiveRisk: step.Risk}

	res, err := target.CheckAll(ctx, sh, step.Pre)
	if err != nil {
		return StepOutcome{}, err
	}
	if res != nil {
		out.FailedCheck = res
		out.Reason = fmt.Sprintf("precondition failed: %s", res.Detail)
		return out, nil
	}
	out.Holds = true

	cur, err := sh.current(ctx, step.Path)
	if err != nil {
		return StepOutcome{}, err
	}

	// A restore rollback on a file whose content cannot be captured is
	// beyond the declared rollback capability.
	if step.Rollback.Kind == target.RevertRestore && cur.exists && !cur.restorable {
		out.EffectiveRisk = plan.RiskUnsafe
	}

	content := []byte(step.Params["content"])
	switch step.Op {
	case target.OpRead:
		out.Predicted = fmt.Sprintf("would read %d bytes from %s", cur.size, step.Path)
	case target.OpList:
		out.Predicted = fmt.Sprintf("would list %s", step.Path)
	case target.OpCreate:
		out.Predicted = fmt.Sprintf("would create %s (%d bytes)", step.Path, len(content))
		sh.record(step.Path, entry{exists: true, size: int64(len(content)), sha256: target.HashContent(content), restorable: true})
	case target.OpWrite:
		if cur.exists {
			out.EffectiveRisk = plan.MaxRisk(out.EffectiveRisk, plan.RiskHigh)
			out.Predicted = fmt.Sprintf("would overwrite %s (%d -> %d bytes)", step.Path, cur.size, len(content))
		} else {
			out.Predicted = fmt.Sprintf("would write %s (%d bytes)", step.Path, len(content))
		}
		sh.record(step.Path, entry{exists: true, size: int64(len(content)), sha256: target.HashContent(content), restorable: true})
	case target.OpDelete:
		out.Predicted = fmt.Sprintf("would delete %s (%d bytes)", step.Path, cur.size)
		sh.record(step.Path, entry{exists: false})
	default:
		return StepOutcome{}, fmt.Errorf("%w: %q", target.ErrUnknownOp, step.Op)
	}
	return out, nil
}
