package bootstrap

import (
	"context"
	"fmt"
	"testing"

	"github.com/chainguard-dev/webctl/internal/errs"
	"github.com/chainguard-dev/webctl/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner is a 'remote.Runner' answering check commands from a script of
// exit statuses and recording every call.
type fakeRunner struct {
	// statuses are returned, in order, for 'Run' calls. Once exhausted, the
	// last status repeats.
	statuses []int
	// runErr, when set, is returned by every 'Run' call.
	runErr error
	// runAllStatus is returned by 'RunAll'.
	runAllStatus int
	copyErr      error

	runs   []string
	runAll [][]string
	copies [][2]string
}

var _ remote.Runner = (*fakeRunner)(nil)

func (f *fakeRunner) Run(_ context.Context, cmd remote.Command) (remote.Result, error) {
	f.runs = append(f.runs, cmd.String())
	if f.runErr != nil {
		return remote.Result{ExitStatus: -1}, f.runErr
	}
	if len(f.statuses) == 0 {
		return remote.Result{}, nil
	}
	i := min(len(f.runs)-1, len(f.statuses)-1)
	return remote.Result{ExitStatus: f.statuses[i]}, nil
}

func (f *fakeRunner) RunAll(_ context.Context, cmds ...remote.Command) (remote.Result, error) {
	var rendered []string
	for _, cmd := range cmds {
		rendered = append(rendered, cmd.String())
	}
	f.runAll = append(f.runAll, rendered)
	return remote.Result{ExitStatus: f.runAllStatus}, nil
}

func (f *fakeRunner) Copy(_ context.Context, localPath, remotePath string) error {
	f.copies = append(f.copies, [2]string{localPath, remotePath})
	return f.copyErr
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CheckResult{Outcome: Success}, Classify(0))
	assert.Equal(t, CheckResult{Outcome: MissingInterpreter, Code: 127}, Classify(127))
	assert.Equal(t, CheckResult{Outcome: MissingScript, Code: 2}, Classify(2))
	assert.Equal(t, CheckResult{Outcome: OtherFailure, Code: 1}, Classify(1))
	assert.Equal(t, CheckResult{Outcome: OtherFailure, Code: 255}, Classify(255))
	assert.Equal(t, "other_failure(1)", Classify(1).String())
	assert.Equal(t, "missing_script", Classify(2).String())
}

func TestSequencer(t *testing.T) {
	t.Run("remediates-both-then-succeeds", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{127, 2, 0}}
		report, err := New(runner, Config{Script: "scripts/check_webserver.py"}).Run(t.Context())
		require.NoError(t, err)
		assert.Equal(t, Succeeded, report.Final)
		assert.Equal(t, 3, report.Checks)
		assert.Equal(t, 1, report.InterpreterRemediations)
		assert.Equal(t, 1, report.ScriptRemediations)

		assert.Equal(t, []string{
			"python3 check_webserver.py",
			"python3 check_webserver.py",
			"python3 check_webserver.py",
		}, runner.runs)
		assert.Equal(t, [][]string{{"sudo yum update -y", "sudo yum install -y python3"}}, runner.runAll)
		assert.Equal(t, [][2]string{{"scripts/check_webserver.py", "check_webserver.py"}}, runner.copies)

		assert.Equal(t, []Transition{
			{From: Checking, To: RemediatingInterpreter, Iteration: 1},
			{From: RemediatingInterpreter, To: Checking, Iteration: 1},
			{From: Checking, To: RemediatingScript, Iteration: 2},
			{From: RemediatingScript, To: Checking, Iteration: 2},
			{From: Checking, To: Succeeded, Iteration: 3},
		}, report.Transitions)
	})

	t.Run("unrecognized-failure-exhausts", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{1}}
		report, err := New(runner, Config{}).Run(t.Context())
		require.ErrorIs(t, err, errs.ErrExhausted)
		assert.Equal(t, Exhausted, report.Final)
		assert.Equal(t, 3, report.Checks)
		assert.Len(t, runner.runs, 3)
		assert.Zero(t, report.InterpreterRemediations)
		assert.Zero(t, report.ScriptRemediations)
		assert.Empty(t, runner.runAll)
		assert.Empty(t, runner.copies)
		assert.Equal(t, CheckResult{Outcome: OtherFailure, Code: 1}, report.Last)
	})

	t.Run("immediate-success", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{0}}
		report, err := New(runner, Config{}).Run(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Checks)
		assert.Equal(t, []Transition{{From: Checking, To: Succeeded, Iteration: 1}}, report.Transitions)
	})

	t.Run("shared-budget-exhausts-after-remediations", func(t *testing.T) {
		// Interpreter missing twice, then the script: the shared budget runs
		// out before the script copy is ever checked.
		runner := &fakeRunner{statuses: []int{127, 127, 2, 0}}
		report, err := New(runner, Config{}).Run(t.Context())
		require.ErrorIs(t, err, errs.ErrExhausted)
		assert.Equal(t, 3, report.Checks)
		assert.Equal(t, 2, report.InterpreterRemediations)
		assert.Equal(t, 1, report.ScriptRemediations)
		assert.Equal(t, Exhausted, report.Final)
	})

	t.Run("larger-budget", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{127, 127, 2, 0}}
		report, err := New(runner, Config{Budget: 5}).Run(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 4, report.Checks)
	})

	t.Run("transport-errors-spend-budget", func(t *testing.T) {
		runner := &fakeRunner{runErr: fmt.Errorf("%w: connection refused", errs.ErrTransport)}
		report, err := New(runner, Config{}).Run(t.Context())
		require.ErrorIs(t, err, errs.ErrExhausted)
		assert.Equal(t, 3, report.Checks)
		assert.Equal(t, CheckResult{Outcome: OtherFailure, Code: -1}, report.Last)
	})

	t.Run("failed-remediation-still-spends", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{2}, copyErr: fmt.Errorf("%w: scp", errs.ErrTransport)}
		report, err := New(runner, Config{}).Run(t.Context())
		require.ErrorIs(t, err, errs.ErrExhausted)
		assert.Equal(t, 3, report.Checks)
		assert.Equal(t, 3, report.ScriptRemediations)
	})

	t.Run("cancelled-context", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{1}}
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		report, err := New(runner, Config{}).Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, report.Checks)
		assert.Empty(t, runner.runs)
	})
}

func TestSequencerCommands(t *testing.T) {
	s := New(&fakeRunner{}, Config{Interpreter: "python3.11", InterpreterPackage: "python3.11", Script: "/tmp/my check.py"})
	assert.Equal(t, "python3.11 'my check.py'", s.CheckCommand().String())
	assert.Equal(t, "sudo yum install -y python3.11", s.InterpreterCommands()[1].String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checking", Checking.String())
	assert.Equal(t, "remediating_interpreter", RemediatingInterpreter.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.True(t, Succeeded.Terminal())
	assert.True(t, Exhausted.Terminal())
	assert.False(t, Checking.Terminal())
}

func TestDeploy(t *testing.T) {
	t.Run("copies-then-moves", func(t *testing.T) {
		runner := &fakeRunner{}
		dest, err := Deploy(t.Context(), runner, "site/index.html", "")
		require.NoError(t, err)
		assert.Equal(t, "/var/www/html/index.html", dest)
		assert.Equal(t, [][2]string{{"site/index.html", "index.html"}}, runner.copies)
		assert.Equal(t, []string{
			"sudo mv index.html /var/www/html/index.html",
			"sudo chmod 0644 /var/www/html/index.html",
		}, runner.runs)
	})

	t.Run("step-fails", func(t *testing.T) {
		runner := &fakeRunner{statuses: []int{1}}
		_, err := Deploy(t.Context(), runner, "index.html", "/srv/www")
		require.ErrorIs(t, err, ErrDeployStep)
		assert.Len(t, runner.runs, 1)
	})

	t.Run("copy-fails", func(t *testing.T) {
		runner := &fakeRunner{copyErr: fmt.Errorf("%w: index.html", errs.ErrNotFound)}
		_, err := Deploy(t.Context(), runner, "index.html", "")
		require.ErrorIs(t, err, errs.ErrNotFound)
		assert.Empty(t, runner.runs)
	})
}
