package bootstrap

import "fmt"

// State is a state of the bootstrap sequencer.
type State int

const (
	Checking State = iota
	RemediatingInterpreter
	RemediatingScript
	Succeeded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case RemediatingInterpreter:
		return "remediating_interpreter"
	case RemediatingScript:
		return "remediating_script"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves 's'.
func (s State) Terminal() bool {
	return s == Succeeded || s == Exhausted
}

// Transition records one state change.
type Transition struct {
	From, To State
	// Iteration is the 1-based loop iteration the transition happened in.
	Iteration int
}

// Report describes how a sequencer run went.
type Report struct {
	Final State
	// Checks is the number of check commands run.
	Checks int
	// InterpreterRemediations and ScriptRemediations count remediation
	// attempts, successful or not.
	InterpreterRemediations int
	ScriptRemediations      int
	// Last is the result of the last check.
	Last        CheckResult
	Transitions []Transition
}
