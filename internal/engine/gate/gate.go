package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/simulate"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// Gate names one of the admission checks, in evaluation order.
type Gate string

const (
	GateReportBinding    Gate = "report_binding"
	GateSimulationStatus Gate = "simulation_status"
	GateApproval         Gate = "approval"
	GateIdempotency      Gate = "idempotency"
	GateArtifactChain    Gate = "artifact_chain"
)

// gateOrder fixes the evaluation sequence; Admit short-circuits on the
// first failure.
var gateOrder = []Gate{
	GateReportBinding,
	GateSimulationStatus,
	GateApproval,
	GateIdempotency,
	GateArtifactChain,
}

// ErrRejected is matched by errors.Is for any gate rejection.
var ErrRejected = errors.New("gate rejected")

// Rejection identifies which gate failed and why. Nothing has been
// mutated when a Rejection is returned.
type Rejection struct {
	Gate   Gate
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("gate %s rejected: %s", r.Gate, r.Reason)
}

func (r *Rejection) Is(target error) bool { return target == ErrRejected }

func reject(g Gate, format string, args ...any) *Rejection {
	return &Rejection{Gate: g, Reason: fmt.Sprintf(format, args...)}
}

// ResultChecker answers whether a plan already has a recorded execution
// result. The audit trail implements this.
type ResultChecker interface {
	HasResult(ctx context.Context, planID string) (bool, error)
}

// Gatekeeper validates admission for one (plan, report, token) triple.
type Gatekeeper struct {
	results ResultChecker
	logger  *logging.Logger
}

func NewGatekeeper(results ResultChecker, logger *logging.Logger) *Gatekeeper {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gatekeeper{results: results, logger: logger}
}

// Admit runs all gates in order and returns nil only if every one
// passes. The returned error is always a *Rejection (or a storage
// error from the idempotency lookup).
func (g *Gatekeeper) Admit(ctx context.Context, in intent.Intent, p plan.Plan, rep simulate.Report, tok Token) error {
	for _, name := range gateOrder {
		var err error
		switch name {
		case GateReportBinding:
			err = checkReportBinding(p, rep)
		case GateSimulationStatus:
			err = checkSimulationStatus(rep)
		case GateApproval:
			err = checkApproval(p, rep, tok)
		case GateIdempotency:
			err = g.checkIdempotency(ctx, p)
		case GateArtifactChain:
			err = checkArtifactChain(in, p, rep)
		}
		if err != nil {
			g.logger.Warn("admission refused", "plan_id", p.ID, "gate", string(name), "error", err.Error())
			return err
		}
	}
	g.logger.Info("plan admitted for execution", "plan_id", p.ID, "report_id", rep.ID)
	return nil
}

func checkReportBinding(p plan.Plan, rep simulate.Report) error {
	if rep.ID == "" {
		return reject(GateReportBinding, "no simulation report for plan %s", p.ID)
	}
	if rep.PlanID != p.ID {
		return reject(GateReportBinding, "report %s belongs to plan %s, not %s", rep.ID, rep.PlanID, p.ID)
	}
	return nil
}

func checkSimulationStatus(rep simulate.Report) error {
	if rep.Status != simulate.StatusSuccess {
		return reject(GateSimulationStatus, "simulation status is %s", rep.Status)
	}
	return nil
}

func checkApproval(p plan.Plan, rep simulate.Report, tok Token) error {
	if tok.Value == "" {
		return reject(GateApproval, "approval token missing")
	}
	if !tok.Binds(p.ID, rep.ID) {
		return reject(GateApproval, "approval mismatch: token bound to plan %s / report %s", tok.PlanID, tok.ReportID)
	}
	return nil
}

func (g *Gatekeeper) checkIdempotency(ctx context.Context, p plan.Plan) error {
	if g.results == nil {
		return nil
	}
	done, err := g.results.HasResult(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("idempotency lookup for plan %s: %w", p.ID, err)
	}
	if done {
		return reject(GateIdempotency, "plan %s has already been executed", p.ID)
	}
	return nil
}

func checkArtifactChain(in intent.Intent, p plan.Plan, rep simulate.Report) error {
	if p.IntentID != in.ID {
		return reject(GateArtifactChain, "plan %s derives from intent %s, not %s", p.ID, p.IntentID, in.ID)
	}
	if err := p.Validate(); err != nil {
		return reject(GateArtifactChain, "plan %s is not internally consistent: %v", p.ID, err)
	}
	if len(rep.Steps) != len(p.Steps) {
		return reject(GateArtifactChain, "report covers %d steps, plan has %d", len(rep.Steps), len(p.Steps))
	}
	for i, out := range rep.Steps {
		if out.StepID != p.Steps[i].ID {
			return reject(GateArtifactChain, "report step %d refers to %s, plan has %s", i, out.StepID, p.Steps[i].ID)
		}
	}
	return nil
}
