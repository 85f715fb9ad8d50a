// Package intent defines the validated command shape the execution engine
// accepts as input. Intents are produced by upstream collaborators (speech,
// NLU); this package only validates shape and verb membership.
package intent

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Verb is one of the closed set of operations the engine supports.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbList   Verb = "list"
	VerbCreate Verb = "create"
	VerbWrite  Verb = "write"
	VerbDelete Verb = "delete"
)

// Verbs returns the frozen verb set in declaration order.
func Verbs() []Verb {
	return []Verb{VerbRead, VerbList, VerbCreate, VerbWrite, VerbDelete}
}

// Valid reports whether the verb belongs to the supported set
func (v Verb) Valid() bool {
	switch v {
	case VerbRead, VerbList, VerbCreate, VerbWrite, VerbDelete:
		return true
	default:
		return false
	}
}

// Mutating reports whether the verb changes real system state
func (v Verb) Mutating() bool {
	switch v {
	case VerbCreate, VerbWrite, VerbDelete:
		return true
	default:
		return false
	}
}

func (v Verb) String() string { return string(v) }

// SafetyLevel expresses how much risk the intent producer has cleared
// with the user. It is the only channel for the unsafe-override flag:
// there is no ambient confirmation state anywhere in the engine.
type SafetyLevel string

const (
	// SafetyStandard admits plans up to HIGH risk.
	SafetyStandard SafetyLevel = "standard"

	// SafetyOverride additionally admits UNSAFE-classified plans. The
	// upstream producer sets this only after an explicit user confirmation.
	SafetyOverride SafetyLevel = "override"
)

// Valid reports whether the safety level is a recognized value
func (s SafetyLevel) Valid() bool {
	return s == SafetyStandard || s == SafetyOverride
}

// ErrUnsupportedVerb is returned when an intent carries a verb outside the
// supported set. No plan artifact is created in that case.
var ErrUnsupportedVerb = errors.New("unsupported verb")

// ErrEmptyTarget is returned when an intent has no target.
var ErrEmptyTarget = errors.New("intent target is required")

// Intent is a validated, structured command. It is immutable after
// creation and consumed exactly once by the plan generator.
type Intent struct {
	ID          string            `json:"id"`
	Verb        Verb              `json:"verb"`
	Target      string            `json:"target"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	SafetyLevel SafetyLevel       `json:"safety_level"`
	CreatedAt   time.Time         `json:"created_at"`
}

// New creates a validated Intent. Unsupported verbs are rejected here,
// before any downstream artifact exists.
func New(verb Verb, target string, params map[string]string, safety SafetyLevel) (Intent, error) {
	if !verb.Valid() {
		return Intent{}, fmt.Errorf("%w: %q", ErrUnsupportedVerb, verb)
	}
	if target == "" {
		return Intent{}, ErrEmptyTarget
	}
	if safety == "" {
		safety = SafetyStandard
	}
	if !safety.Valid() {
		return Intent{}, fmt.Errorf("invalid safety level %q", safety)
	}

	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}

	return Intent{
		ID:          uuid.New().String(),
		Verb:        verb,
		Target:      target,
		Parameters:  p,
		SafetyLevel: safety,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Param returns a named parameter or the empty string
func (i Intent) Param(key string) string {
	return i.Parameters[key]
}

// Validate re-checks the invariants of an intent that crossed a process
// boundary (e.g. arrived as JSON through the gateway).
func (i Intent) Validate() error {
	if i.ID == "" {
		return errors.New("intent id is required")
	}
	if !i.Verb.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedVerb, i.Verb)
	}
	if i.Target == "" {
		return ErrEmptyTarget
	}
	if !i.SafetyLevel.Valid() {
		return fmt.Errorf("invalid safety level %q", i.SafetyLevel)
	}
	return nil
}
