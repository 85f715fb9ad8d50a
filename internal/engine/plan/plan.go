// Package plan turns a validated intent into an immutable execution plan:
// ordered steps with declared pre/postconditions, a risk classification
// from the policy table, and a mandatory rollback procedure on every
// mutating step.
package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/airlock-sh/airlock/internal/engine/target"
)

// ErrMissingRollback is returned when a mutating step lacks a rollback
// procedure. Generation fails rather than producing such a plan.
var ErrMissingRollback = errors.New("mutating step missing rollback procedure")

// Step is one ordered unit of work within a plan.
type Step struct {
	ID       string             `json:"id"`
	Op       target.Op          `json:"op"`
	Path     string             `json:"path"`
	Params   map[string]string  `json:"params,omitempty"`
	Risk     Risk               `json:"risk"`
	Pre      []target.Condition `json:"pre,omitempty"`
	Post     []target.Condition `json:"post,omitempty"`
	Rollback target.Revert      `json:"rollback"`
}

// Mutating reports whether the step changes real system state
func (s Step) Mutating() bool {
	return s.Op.Mutating()
}

// Plan is an immutable, ordered sequence of steps derived from one intent.
// Callers receive plans by value and nothing in the engine mutates a plan
// after generation.
type Plan struct {
	ID        string    `json:"id"`
	IntentID  string    `json:"intent_id"`
	Steps     []Step    `json:"steps"`
	Risk      Risk      `json:"risk"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the structural invariants of a plan: at least one step,
// valid ops and risks, and a rollback procedure on every mutating step.
func (p Plan) Validate() error {
	if p.ID == "" {
		return errors.New("plan id is required")
	}
	if p.IntentID == "" {
		return errors.New("plan intent id is required")
	}
	if len(p.Steps) == 0 {
		return errors.New("plan has no steps")
	}
	if !p.Risk.Valid() {
		return fmt.Errorf("invalid plan risk %q", p.Risk)
	}

	for i, s := range p.Steps {
		if s.ID == "" {
			return fmt.Errorf("step %d: id is required", i)
		}
		if !s.Op.Valid() {
			return fmt.Errorf("step %d: %w: %q", i, target.ErrUnknownOp, s.Op)
		}
		if !s.Risk.Valid() {
			return fmt.Errorf("step %d: invalid risk %q", i, s.Risk)
		}
		if s.Mutating() && (s.Rollback.Kind == "" || s.Rollback.Kind == target.RevertNone) {
			return fmt.Errorf("step %d (%s %s): %w", i, s.Op, s.Path, ErrMissingRollback)
		}
		if !s.Rollback.Kind.Valid() && s.Rollback.Kind != "" {
			return fmt.Errorf("step %d: %w: %q", i, target.ErrUnknownRevert, s.Rollback.Kind)
		}
	}

	return nil
}
