// Package service drives intents through the full pipeline: plan
// generation, dry-run simulation, admission, execution, and audit.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/execute"
	"github.com/airlock-sh/airlock/internal/engine/gate"
	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/simulate"
	"github.com/airlock-sh/airlock/internal/engine/target"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// ErrUnknownPlan means the plan id is not tracked by this service
// instance.
var ErrUnknownPlan = errors.New("unknown plan")

// ErrPlanBusy means the plan is currently executing.
var ErrPlanBusy = errors.New("plan is currently executing")

// Options configures a Service. Zero-value fields fall back to
// defaults: the bundled policy table, the real filesystem, and an
// in-memory trail.
type Options struct {
	Policy      *plan.Policy
	System      target.System
	Trail       audit.Trail
	StepTimeout time.Duration
	Logger      *logging.Logger
}

// Submission bundles the artifacts produced before execution.
type Submission struct {
	Intent intent.Intent   `json:"intent"`
	Plan   plan.Plan       `json:"plan"`
	Report simulate.Report `json:"report"`
}

type tracked struct {
	intent intent.Intent
	plan   plan.Plan
	report simulate.Report
	state  execute.State
}

// Service owns one pipeline instance. Distinct plans may move through
// it concurrently; per-plan processing is strictly sequential.
type Service struct {
	gen    *plan.Generator
	sim    *simulate.Simulator
	gk     *gate.Gatekeeper
	exec   *execute.Executor
	trail  audit.Trail
	logger *logging.Logger

	mu    sync.Mutex
	plans map[string]*tracked
}

// New assembles the pipeline from opts.
func New(opts Options) *Service {
	if opts.System == nil {
		opts.System = target.NewFS()
	}
	if opts.Trail == nil {
		opts.Trail = audit.NewMemoryTrail()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("engine")
	}
	return &Service{
		gen:    plan.NewGenerator(opts.Policy, opts.Logger.With("stage", "plan")),
		sim:    simulate.NewSimulator(opts.System, opts.Logger.With("stage", "simulate")),
		gk:     gate.NewGatekeeper(opts.Trail, opts.Logger.With("stage", "gate")),
		exec:   execute.NewExecutor(opts.System, opts.StepTimeout, opts.Logger.With("stage", "execute")),
		trail:  opts.Trail,
		logger: opts.Logger,
		plans:  make(map[string]*tracked),
	}
}

// Trail exposes the audit trail for read-side consumers.
func (s *Service) Trail() audit.Trail { return s.trail }

// Submit creates an intent, generates its plan, and simulates it. All
// three artifacts are audited and returned; nothing has been mutated
// when Submit returns.
func (s *Service) Submit(ctx context.Context, verb intent.Verb, targetPath string, params map[string]string, safety intent.SafetyLevel) (Submission, error) {
	in, err := intent.New(verb, targetPath, params, safety)
	if err != nil {
		return Submission{}, err
	}

	p, err := s.gen.Generate(in)
	if err != nil {
		return Submission{}, err
	}

	rep, err := s.sim.Simulate(ctx, in, p)
	if err != nil {
		return Submission{}, fmt.Errorf("simulate plan %s: %w", p.ID, err)
	}

	sub := Submission{Intent: in, Plan: p, Report: rep}
	if err := s.record(ctx, p.ID, audit.KindIntent, in); err != nil {
		return Submission{}, err
	}
	if err := s.record(ctx, p.ID, audit.KindPlan, p); err != nil {
		return Submission{}, err
	}
	if err := s.record(ctx, p.ID, audit.KindReport, rep); err != nil {
		return Submission{}, err
	}

	s.mu.Lock()
	s.plans[p.ID] = &tracked{intent: in, plan: p, report: rep, state: execute.StateSimulated}
	s.mu.Unlock()

	s.logger.Info("intent submitted",
		"intent_id", in.ID,
		"plan_id", p.ID,
		"verb", verb.String(),
		"simulation", string(rep.Status),
		"risk", rep.Risk.String(),
	)
	return sub, nil
}

// Approve issues a token bound to the plan's simulation report. In a
// deployment with an external approval authority this is bypassed;
// here it backs the CLI and gateway confirmation step.
func (s *Service) Approve(planID string) (gate.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.plans[planID]
	if !ok {
		return gate.Token{}, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	return gate.Issue(tr.plan.ID, tr.report.ID), nil
}

// Lookup returns the tracked artifacts for a plan.
func (s *Service) Lookup(planID string) (Submission, execute.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.plans[planID]
	if !ok {
		return Submission{}, "", fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	return Submission{Intent: tr.intent, Plan: tr.plan, Report: tr.report}, tr.state, nil
}

// Execute admits the plan through the gates and, if admitted, applies
// it. The result is audited before it is returned, whatever its status.
func (s *Service) Execute(ctx context.Context, planID string, tok gate.Token) (execute.Result, error) {
	s.mu.Lock()
	tr, ok := s.plans[planID]
	if !ok {
		s.mu.Unlock()
		return execute.Result{}, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	if tr.state == execute.StateExecuting {
		s.mu.Unlock()
		return execute.Result{}, fmt.Errorf("%w: %s", ErrPlanBusy, planID)
	}
	in, p, rep := tr.intent, tr.plan, tr.report
	s.mu.Unlock()

	if err := s.gk.Admit(ctx, in, p, rep, tok); err != nil {
		return execute.Result{}, err
	}
	if err := s.advance(tr, execute.StateGated); err != nil {
		return execute.Result{}, err
	}
	if err := s.advance(tr, execute.StateExecuting); err != nil {
		return execute.Result{}, err
	}

	res, err := s.exec.Execute(ctx, p, rep)
	if err != nil {
		// Execution never started; the plan stays re-admittable.
		s.mu.Lock()
		tr.state = execute.StateSimulated
		s.mu.Unlock()
		return execute.Result{}, err
	}

	if err := s.advance(tr, res.Status); err != nil {
		return execute.Result{}, err
	}
	if err := s.record(ctx, p.ID, audit.KindResult, res); err != nil {
		return execute.Result{}, err
	}
	return res, nil
}

// advance moves the tracked plan to next, enforcing the lifecycle.
func (s *Service) advance(tr *tracked, next execute.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !tr.state.CanTransition(next) {
		return fmt.Errorf("plan %s: illegal transition %s -> %s", tr.plan.ID, tr.state, next)
	}
	tr.state = next
	return nil
}

func (s *Service) record(ctx context.Context, planID string, kind audit.RecordKind, artifact any) error {
	rec, err := audit.NewRecord(planID, kind, artifact)
	if err != nil {
		return err
	}
	if err := s.trail.Append(ctx, rec); err != nil {
		return fmt.Errorf("audit %s for plan %s: %w", kind, planID, err)
	}
	return nil
}
