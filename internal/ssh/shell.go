package ssh

// Shell names a shell on the remote host. 'ExecIn' starts it via
// '/usr/bin/env' and feeds it commands over stdin.
type Shell = string

const (
	ShellSh   Shell = "sh"
	ShellBash Shell = "bash"
)
