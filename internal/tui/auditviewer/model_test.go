package auditviewer

import (
	"testing"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/execute"
)

func TestRowForResultRecord(t *testing.T) {
	res := execute.Result{
		Status:          execute.StateFailedRolledBack,
		RollbackInvoked: true,
		Rollbacks:       []execute.RollbackEntry{{StepID: "s1", OK: true}},
	}
	rec, err := audit.NewRecord("plan-1", audit.KindResult, res)
	if err != nil {
		t.Fatal(err)
	}

	row := rowFor(rec)
	if row.Status != string(execute.StateFailedRolledBack) {
		t.Errorf("status = %s", row.Status)
	}
	if row.PlanID != "plan-1" || row.Kind != "result" {
		t.Errorf("row = %+v", row)
	}
}

func TestRowForUnreadablePayload(t *testing.T) {
	rec := audit.Record{PlanID: "p", Kind: audit.KindPlan, Payload: []byte("{not json")}
	row := rowFor(rec)
	if row.Summary != "(unreadable payload)" {
		t.Errorf("summary = %q", row.Summary)
	}
}

func TestApplyFilter(t *testing.T) {
	m := New(audit.NewMemoryTrail(), DefaultConfig())
	m.allRows = []Row{
		{Kind: "intent"},
		{Kind: "result", Status: string(execute.StateSucceeded)},
		{Kind: "result", Status: string(execute.StateFailedRolledBack)},
	}

	m.statusFilter = ""
	m.applyFilter()
	if len(m.filteredRows) != 3 {
		t.Errorf("all filter rows = %d", len(m.filteredRows))
	}

	m.statusFilter = string(execute.StateSucceeded)
	m.applyFilter()
	if len(m.filteredRows) != 1 || m.filteredRows[0].Status != string(execute.StateSucceeded) {
		t.Errorf("succeeded filter rows = %+v", m.filteredRows)
	}
}
