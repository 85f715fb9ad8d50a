package gate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/simulate"
	"github.com/airlock-sh/airlock/internal/engine/target"
)

type fakeResults struct {
	done map[string]bool
	err  error
}

func (f *fakeResults) HasResult(_ context.Context, planID string) (bool, error) {
	return f.done[planID], f.err
}

func admittable(t *testing.T) (intent.Intent, plan.Plan, simulate.Report) {
	t.Helper()
	in, err := intent.New(intent.VerbWrite, filepath.Join(t.TempDir(), "out.txt"),
		map[string]string{"content": "hi"}, intent.SafetyStandard)
	if err != nil {
		t.Fatalf("intent.New: %v", err)
	}
	p, err := plan.NewGenerator(nil, nil).Generate(in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rep, err := simulate.NewSimulator(target.NewFS(), nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if rep.Status != simulate.StatusSuccess {
		t.Fatalf("fixture simulation status = %s", rep.Status)
	}
	return in, p, rep
}

func wantGate(t *testing.T, err error, g Gate) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection at gate %s, got nil", g)
	}
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("error is not a gate rejection: %v", err)
	}
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("error is not *Rejection: %v", err)
	}
	if rej.Gate != g {
		t.Fatalf("rejected at gate %s, want %s (reason: %s)", rej.Gate, g, rej.Reason)
	}
}

func TestAdmitHappyPath(t *testing.T) {
	in, p, rep := admittable(t)
	gk := NewGatekeeper(&fakeResults{done: map[string]bool{}}, nil)

	if err := gk.Admit(context.Background(), in, p, rep, Issue(p.ID, rep.ID)); err != nil {
		t.Fatalf("Admit: %v", err)
	}
}

func TestAdmitRejectsMissingReport(t *testing.T) {
	in, p, _ := admittable(t)
	gk := NewGatekeeper(nil, nil)

	err := gk.Admit(context.Background(), in, p, simulate.Report{}, Issue(p.ID, ""))
	wantGate(t, err, GateReportBinding)
}

func TestAdmitRejectsUnsuccessfulSimulation(t *testing.T) {
	in, p, rep := admittable(t)
	rep.Status = simulate.StatusBlocked
	gk := NewGatekeeper(nil, nil)

	err := gk.Admit(context.Background(), in, p, rep, Issue(p.ID, rep.ID))
	wantGate(t, err, GateSimulationStatus)
}

func TestAdmitRejectsMissingToken(t *testing.T) {
	in, p, rep := admittable(t)
	gk := NewGatekeeper(nil, nil)

	err := gk.Admit(context.Background(), in, p, rep, Token{})
	wantGate(t, err, GateApproval)
}

func TestAdmitRejectsCrossPlanToken(t *testing.T) {
	inA, pA, repA := admittable(t)
	_, pB, repB := admittable(t)

	// Token approved for plan B presented against plan A's report.
	gk := NewGatekeeper(nil, nil)
	err := gk.Admit(context.Background(), inA, pA, repA, Issue(pB.ID, repB.ID))
	wantGate(t, err, GateApproval)

	// Same plan, different report binding.
	err = gk.Admit(context.Background(), inA, pA, repA, Issue(pA.ID, repB.ID))
	wantGate(t, err, GateApproval)
}

func TestAdmitRejectsAlreadyExecutedPlan(t *testing.T) {
	in, p, rep := admittable(t)
	gk := NewGatekeeper(&fakeResults{done: map[string]bool{p.ID: true}}, nil)

	err := gk.Admit(context.Background(), in, p, rep, Issue(p.ID, rep.ID))
	wantGate(t, err, GateIdempotency)
}

func TestAdmitSurfacesIdempotencyLookupError(t *testing.T) {
	in, p, rep := admittable(t)
	gk := NewGatekeeper(&fakeResults{err: errors.New("store offline")}, nil)

	err := gk.Admit(context.Background(), in, p, rep, Issue(p.ID, rep.ID))
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("lookup failure should be a plain error, got %v", err)
	}
}

func TestAdmitRejectsBrokenArtifactChain(t *testing.T) {
	in, p, rep := admittable(t)
	gk := NewGatekeeper(nil, nil)

	substituted := p
	substituted.IntentID = "someone-else"
	// Keep report binding intact so the failure lands on the chain gate.
	err := gk.Admit(context.Background(), in, substituted, rep, Issue(p.ID, rep.ID))
	wantGate(t, err, GateArtifactChain)

	truncated := rep
	truncated.Steps = nil
	err = gk.Admit(context.Background(), in, p, truncated, Issue(p.ID, rep.ID))
	wantGate(t, err, GateArtifactChain)
}
