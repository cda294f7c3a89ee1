package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/errs"
	"github.com/chainguard-dev/webctl/internal/remote"
)

const (
	DefaultBudget             = 3
	DefaultInterpreter        = "python3"
	DefaultInterpreterPackage = "python3"
	DefaultScript             = "check_webserver.py"
)

// Config configures a 'Sequencer'.
type Config struct {
	// Script is the local path of the check script. It is run (and, when
	// missing, copied) by base name in the remote home directory.
	Script string

	// Interpreter runs the script, e.g. 'python3'.
	Interpreter string

	// InterpreterPackage is the yum package providing 'Interpreter'.
	InterpreterPackage string

	// Budget is the number of loop iterations allowed before giving up.
	Budget int
}

func (c *Config) applyDefaults() {
	if c.Script == "" {
		c.Script = DefaultScript
	}
	if c.Interpreter == "" {
		c.Interpreter = DefaultInterpreter
	}
	if c.InterpreterPackage == "" {
		c.InterpreterPackage = DefaultInterpreterPackage
	}
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
}

// Sequencer drives the check/remediate loop against one host.
type Sequencer struct {
	runner remote.Runner
	cfg    Config
}

func New(runner remote.Runner, cfg Config) *Sequencer {
	cfg.applyDefaults()
	return &Sequencer{runner: runner, cfg: cfg}
}

func (s *Sequencer) remoteScript() string {
	return filepath.Base(s.cfg.Script)
}

// CheckCommand is the command run in the Checking state.
func (s *Sequencer) CheckCommand() remote.Command {
	return remote.Command{s.cfg.Interpreter, s.remoteScript()}
}

// InterpreterCommands are the commands run in the RemediatingInterpreter
// state, in order.
func (s *Sequencer) InterpreterCommands() []remote.Command {
	return []remote.Command{
		{"sudo", "yum", "update", "-y"},
		{"sudo", "yum", "install", "-y", s.cfg.InterpreterPackage},
	}
}

// Run drives the sequencer to a terminal state.
//
// The returned error is nil in Succeeded and wraps 'errs.ErrExhausted' in
// Exhausted. A cancelled context stops the loop between steps and returns the
// context's error; a step already running is not interrupted.
func (s *Sequencer) Run(ctx context.Context) (Report, error) {
	log := clog.FromContext(ctx).With("script", s.remoteScript())
	var (
		report    Report
		state     = Checking
		budget    = s.cfg.Budget
		iteration = 1
	)
	// spend consumes one iteration of the budget, picking the state the loop
	// continues in.
	spend := func() State {
		budget--
		iteration++
		if budget <= 0 {
			return Exhausted
		}
		return Checking
	}
	for {
		var (
			next State
			iter = iteration
		)
		switch state {
		case Checking:
			if err := ctx.Err(); err != nil {
				report.Final = state
				return report, err
			}
			report.Checks++
			report.Last = s.check(ctx)
			log.Info("web server check", "attempt", report.Checks, "result", report.Last.String(), "budget", budget)
			switch report.Last.Outcome {
			case Success:
				next = Succeeded
			case MissingInterpreter:
				next = RemediatingInterpreter
			case MissingScript:
				next = RemediatingScript
			default:
				next = spend()
			}
		case RemediatingInterpreter:
			report.InterpreterRemediations++
			s.installInterpreter(ctx)
			next = spend()
		case RemediatingScript:
			report.ScriptRemediations++
			s.copyScript(ctx)
			next = spend()
		case Succeeded:
			report.Final = state
			log.Info("web server check passed", "checks", report.Checks)
			return report, nil
		case Exhausted:
			report.Final = state
			log.Error("web server check failed for an unknown reason", "checks", report.Checks, "last", report.Last.String())
			return report, fmt.Errorf("%w: web server check still failing after %d attempts (last: %s)",
				errs.ErrExhausted, report.Checks, report.Last)
		default:
			panic(fmt.Sprintf("bootstrap: unknown state %d", state))
		}
		report.Transitions = append(report.Transitions, Transition{From: state, To: next, Iteration: iter})
		log.Debug("bootstrap transition", "from", state.String(), "to", next.String())
		state = next
	}
}

// check runs the check command. A check which could not run at all (an SSH
// failure) is an unrecognized failure with code -1.
func (s *Sequencer) check(ctx context.Context) CheckResult {
	res, err := s.runner.Run(ctx, s.CheckCommand())
	if err != nil {
		clog.FromContext(ctx).Warn("web server check could not run", "error", err)
		return CheckResult{Outcome: OtherFailure, Code: -1}
	}
	return Classify(res.ExitStatus)
}

func (s *Sequencer) installInterpreter(ctx context.Context) {
	log := clog.FromContext(ctx)
	log.Info("installing interpreter", "package", s.cfg.InterpreterPackage)
	res, err := s.runner.RunAll(ctx, s.InterpreterCommands()...)
	switch {
	case err != nil:
		log.Error("failed to install interpreter", "error", err)
	case !res.OK():
		log.Error("failed to install interpreter", "status", res.ExitStatus, "stderr", res.Stderr)
	}
}

func (s *Sequencer) copyScript(ctx context.Context) {
	log := clog.FromContext(ctx)
	log.Info("copying check script", "local", s.cfg.Script, "remote", s.remoteScript())
	if err := s.runner.Copy(ctx, s.cfg.Script, s.remoteScript()); err != nil {
		log.Error("failed to copy check script", "error", err)
	}
}
