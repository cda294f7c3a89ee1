package bootstrap

import "fmt"

// Outcome is the kind of result a check produced.
type Outcome int

const (
	Success Outcome = iota
	MissingInterpreter
	MissingScript
	OtherFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case MissingInterpreter:
		return "missing_interpreter"
	case MissingScript:
		return "missing_script"
	case OtherFailure:
		return "other_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Well-known exit statuses of the check command.
const (
	// StatusCommandNotFound is what POSIX shells exit with when the command
	// (here, the interpreter) does not exist.
	StatusCommandNotFound = 127
	// StatusNoSuchFile is what Python exits with when the script to run does
	// not exist.
	StatusNoSuchFile = 2
)

// CheckResult is the classified result of one check. 'Code' carries the raw
// exit status for 'OtherFailure' (-1 when the check could not run at all).
type CheckResult struct {
	Outcome Outcome
	Code    int
}

// Classify maps a check command's exit status to a 'CheckResult'.
func Classify(status int) CheckResult {
	switch status {
	case 0:
		return CheckResult{Outcome: Success}
	case StatusCommandNotFound:
		return CheckResult{Outcome: MissingInterpreter, Code: status}
	case StatusNoSuchFile:
		return CheckResult{Outcome: MissingScript, Code: status}
	default:
		return CheckResult{Outcome: OtherFailure, Code: status}
	}
}

func (r CheckResult) String() string {
	if r.Outcome == OtherFailure {
		return fmt.Sprintf("%s(%d)", r.Outcome, r.Code)
	}
	return r.Outcome.String()
}
