// remote runs commands on, and copies files to, a single remote host.
//
// Commands are argument vectors, never pre-formatted strings: every argument
// is shell-quoted when the command is rendered for the remote shell, so an
// instance name, file name or path can never inject extra shell syntax.
//
// Commands run to completion; no timeout is applied to a command once it has
// started.
package remote

import (
	"context"

	"github.com/kballard/go-shellquote"
)

// Command is an argument vector, e.g. {"sudo", "yum", "install", "-y", "python3"}.
type Command []string

// String renders the command for a POSIX shell with every argument quoted.
func (c Command) String() string {
	return shellquote.Join(c...)
}

// Result is the outcome of a command which ran on the remote host.
type Result struct {
	// ExitStatus is the remote process' exit status.
	ExitStatus int
	Stdout     string
	Stderr     string
}

// OK reports whether the command exited 0.
func (r Result) OK() bool {
	return r.ExitStatus == 0
}

// Runner executes commands on a remote host.
//
// A command that ran and exited non-zero is NOT an error: its status is in
// 'Result'. Errors are reserved for failing to run the command at all, and
// wrap 'errs.ErrTransport' (or 'errs.ErrNotFound' for a missing local file).
type Runner interface {
	// Run executes a single command.
	Run(ctx context.Context, cmd Command) (Result, error)
	// RunAll executes 'cmds' in order within one shell session. The result is
	// the shell's, i.e. the status of the last command.
	RunAll(ctx context.Context, cmds ...Command) (Result, error)
	// Copy copies the local file at 'localPath' to 'remotePath'. A relative
	// 'remotePath' is relative to the remote user's home directory.
	Copy(ctx context.Context, localPath, remotePath string) error
}
