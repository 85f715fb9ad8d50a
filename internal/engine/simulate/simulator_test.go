package simulate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/target"
)

func makePlan(t *testing.T, verb intent.Verb, path string, params map[string]string, safety intent.SafetyLevel) (intent.Intent, plan.Plan) {
	t.Helper()
	in, err := intent.New(verb, path, params, safety)
	if err != nil {
		t.Fatalf("intent.New: %v", err)
	}
	p, err := plan.NewGenerator(nil, nil).Generate(in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return in, p
}

func TestSimulateWriteNewFile(t *testing.T) {
	dir := t.TempDir()
	in, p := makePlan(t, intent.VerbWrite, filepath.Join(dir, "new.txt"),
		map[string]string{"content": "hello"}, intent.SafetyStandard)

	rep, err := NewSimulator(target.NewFS(), nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if rep.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", rep.Status)
	}
	if rep.PlanID != p.ID {
		t.Errorf("report plan id = %s, want %s", rep.PlanID, p.ID)
	}
	if rep.Risk != plan.RiskMedium {
		t.Errorf("risk = %s, want MEDIUM", rep.Risk)
	}
	if len(rep.Steps) != 1 || !rep.Steps[0].Evaluated || !rep.Steps[0].Holds {
		t.Errorf("unexpected step outcomes: %+v", rep.Steps)
	}
}

func TestSimulateOverwriteEscalatesRisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, p := makePlan(t, intent.VerbWrite, path,
		map[string]string{"content": "new"}, intent.SafetyStandard)

	rep, err := NewSimulator(target.NewFS(), nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if rep.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", rep.Status)
	}
	if rep.Risk != plan.RiskHigh {
		t.Errorf("risk = %s, want HIGH for overwrite", rep.Risk)
	}
}

func TestSimulateBlockedLeavesTailUnevaluated(t *testing.T) {
	dir := t.TempDir()
	// Parent directory of the target does not exist, so the first step
	// of the staged write fails its precondition.
	path := filepath.Join(dir, "missing", "file.txt")
	in, p := makePlan(t, intent.VerbWrite, path,
		map[string]string{"content": "x", "mode": "staged"}, intent.SafetyStandard)
	if len(p.Steps) != 3 {
		t.Fatalf("staged write produced %d steps, want 3", len(p.Steps))
	}

	rep, err := NewSimulator(target.NewFS(), nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if rep.Status != StatusBlocked {
		t.Fatalf("status = %s, want BLOCKED", rep.Status)
	}
	if !rep.Steps[0].Evaluated || rep.Steps[0].Holds {
		t.Errorf("first step should be evaluated and failing: %+v", rep.Steps[0])
	}
	if rep.Steps[0].FailedCheck == nil {
		t.Error("blocking step missing failed check detail")
	}
	for _, out := range rep.Steps[1:] {
		if out.Evaluated || out.Reason != ReasonNotEvaluated {
			t.Errorf("tail step %s should be unevaluated: %+v", out.StepID, out)
		}
	}
}

func TestSimulateStagedWriteSeesShadowState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, p := makePlan(t, intent.VerbWrite, path,
		map[string]string{"content": "new", "mode": "staged"}, intent.SafetyStandard)

	rep, err := NewSimulator(target.NewFS(), nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	// The sidecar delete's precondition only holds because the create
	// two steps earlier was recorded in the shadow overlay.
	if rep.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS, steps: %+v", rep.Status, rep.Steps)
	}
	for _, out := range rep.Steps {
		if !out.Holds {
			t.Errorf("step %s did not hold: %+v", out.StepID, out)
		}
	}
}

func TestSimulateNonRestorableRequiresOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := &target.FS{MaxRestoreBytes: 4}

	in, p := makePlan(t, intent.VerbDelete, path, nil, intent.SafetyStandard)
	rep, err := NewSimulator(fs, nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if rep.Status != StatusUnsafe {
		t.Fatalf("status = %s, want UNSAFE", rep.Status)
	}
	if rep.Risk != plan.RiskUnsafe {
		t.Errorf("risk = %s, want UNSAFE", rep.Risk)
	}

	in, p = makePlan(t, intent.VerbDelete, path, nil, intent.SafetyOverride)
	rep, err = NewSimulator(fs, nil).Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("Simulate with override: %v", err)
	}
	if rep.Status != StatusSuccess {
		t.Errorf("status with override = %s, want SUCCESS", rep.Status)
	}
}

func TestSimulateIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repeat.txt")
	if err := os.WriteFile(path, []byte("stable"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, p := makePlan(t, intent.VerbWrite, path,
		map[string]string{"content": "next", "mode": "staged"}, intent.SafetyStandard)

	sim := NewSimulator(target.NewFS(), nil)
	first, err := sim.Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("first Simulate: %v", err)
	}
	second, err := sim.Simulate(context.Background(), in, p)
	if err != nil {
		t.Fatalf("second Simulate: %v", err)
	}
	if first.Status != second.Status || first.Risk != second.Risk {
		t.Errorf("verdict changed between runs: %s/%s vs %s/%s",
			first.Status, first.Risk, second.Status, second.Risk)
	}
	if got, err := os.ReadFile(path); err != nil || string(got) != "stable" {
		t.Errorf("simulation mutated the target: %q, %v", got, err)
	}
	if _, err := os.Stat(path + ".staged"); !os.IsNotExist(err) {
		t.Error("simulation left a sidecar behind")
	}
}

func TestSimulateRejectsForeignPlan(t *testing.T) {
	dir := t.TempDir()
	_, p := makePlan(t, intent.VerbRead, filepath.Join(dir, "a"), nil, intent.SafetyStandard)
	other, _ := makePlan(t, intent.VerbRead, filepath.Join(dir, "a"), nil, intent.SafetyStandard)

	if _, err := NewSimulator(target.NewFS(), nil).Simulate(context.Background(), other, p); err == nil {
		t.Error("expected error for plan simulated under a different intent")
	}
}
