// Package execute applies admitted plans to the real system, with
// precondition re-verification per step and reverse-order rollback on
// any failure.
package execute

// State is the lifecycle of one plan from creation to its terminal
// outcome. Transitions only ever move forward.
type State string

const (
	StateCreated          State = "CREATED"
	StateSimulated        State = "SIMULATED"
	StateGated            State = "GATED"
	StateExecuting        State = "EXECUTING"
	StateSucceeded        State = "SUCCEEDED"
	StateFailedRolledBack State = "FAILED_ROLLED_BACK"
	StateFailedNoRollback State = "FAILED_NO_ROLLBACK"
)

var transitions = map[State][]State{
	StateCreated:   {StateSimulated},
	StateSimulated: {StateGated},
	StateGated:     {StateExecuting},
	StateExecuting: {StateSucceeded, StateFailedRolledBack, StateFailedNoRollback},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is one of the three execution outcomes.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailedRolledBack || s == StateFailedNoRollback
}
