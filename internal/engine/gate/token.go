// Package gate enforces the fixed sequence of admission checks that
// stand between a simulated plan and real execution.
package gate

import (
	"time"

	"github.com/google/uuid"
)

// Token is an opaque approval bound to exactly one plan/report pair.
// The engine never inspects Value beyond checking that it is present;
// who issued it and on what basis is the approval authority's concern.
type Token struct {
	Value    string    `json:"value"`
	PlanID   string    `json:"plan_id"`
	ReportID string    `json:"report_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// Issue mints a token for the given pair. Callers outside tests should
// only do this after an explicit confirmation step.
func Issue(planID, reportID string) Token {
	return Token{
		Value:    uuid.NewString(),
		PlanID:   planID,
		ReportID: reportID,
		IssuedAt: time.Now().UTC(),
	}
}

// Binds reports whether the token is present and bound to exactly the
// given pair.
func (t Token) Binds(planID, reportID string) bool {
	return t.Value != "" && t.PlanID == planID && t.ReportID == reportID
}
