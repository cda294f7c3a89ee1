package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/errs"
	"github.com/chainguard-dev/webctl/internal/ssh"
	xssh "golang.org/x/crypto/ssh"
)

// DefaultUser is the login user of Amazon Linux AMIs.
const DefaultUser = "ec2-user"

// Target identifies the host and credentials to run commands with.
type Target struct {
	Host string
	Port uint16
	User string

	// KeyDir holds one '<KeyName>.pem' private key file per EC2 key pair.
	KeyDir  string
	KeyName string

	// HostKeys, if set, pins the accepted host keys. Empty accepts any host
	// key, which is the norm for instances we just launched.
	HostKeys []xssh.PublicKey
}

var _ Runner = (*SSHRunner)(nil)

// SSHRunner is a 'Runner' over SSH. Every operation opens its own connection.
type SSHRunner struct {
	target Target
	signer xssh.Signer
}

// NewSSHRunner loads the target's private key and returns a runner for it.
func NewSSHRunner(target Target) (*SSHRunner, error) {
	if target.User == "" {
		target.User = DefaultUser
	}
	signer, err := ssh.LoadKey(target.KeyDir, target.KeyName)
	if errors.Is(err, ssh.ErrKeyFileMissing) {
		return nil, fmt.Errorf("%w: %w", errs.ErrNotFound, err)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	return NewSSHRunnerWithSigner(target, signer), nil
}

// NewSSHRunnerWithSigner returns a runner authenticating with 'signer'.
func NewSSHRunnerWithSigner(target Target, signer xssh.Signer) *SSHRunner {
	if target.User == "" {
		target.User = DefaultUser
	}
	return &SSHRunner{target: target, signer: signer}
}

func (r *SSHRunner) connect(ctx context.Context) (*xssh.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	client, err := ssh.Connect(r.target.Host, r.target.Port, r.target.User, r.signer, r.target.HostKeys...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	return client, nil
}

// result converts an 'ssh' package error into a 'Result', or an error if the
// command never ran to an exit status.
func result(stdout, stderr string, err error) (Result, error) {
	status, ok := ssh.ExitStatus(err)
	if !ok {
		return Result{ExitStatus: status, Stdout: stdout, Stderr: stderr}, fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	return Result{ExitStatus: status, Stdout: stdout, Stderr: stderr}, nil
}

func (r *SSHRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	log := clog.FromContext(ctx)
	client, err := r.connect(ctx)
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	defer client.Close()
	log.Debug("running remote command", "host", r.target.Host, "command", cmd.String())
	res, err := result(ssh.Exec(client, cmd.String()))
	if err != nil {
		return res, err
	}
	log.Debug("remote command finished", "host", r.target.Host, "command", cmd.String(), "status", res.ExitStatus)
	return res, nil
}

func (r *SSHRunner) RunAll(ctx context.Context, cmds ...Command) (Result, error) {
	log := clog.FromContext(ctx)
	client, err := r.connect(ctx)
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	defer client.Close()
	lines := make([]string, 0, len(cmds)+1)
	// Stop at the first failing command, like a script would.
	lines = append(lines, "set -e")
	for _, cmd := range cmds {
		lines = append(lines, cmd.String())
	}
	log.Debug("running remote commands", "host", r.target.Host, "commands", strings.Join(lines[1:], "; "))
	return result(ssh.ExecIn(client, ssh.ShellBash, lines...))
}

func (r *SSHRunner) Copy(ctx context.Context, localPath, remotePath string) error {
	log := clog.FromContext(ctx)
	f, err := os.Open(localPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", errs.ErrNotFound, localPath, err)
	} else if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	defer f.Close()
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	cmd := "cat > " + quoteArg(remotePath)
	log.Debug("copying file to remote host", "host", r.target.Host, "local", localPath, "remote", remotePath)
	if err := ssh.Upload(client, f, cmd); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	log.Info("copied file to remote host", "host", r.target.Host, "local", localPath, "remote", remotePath)
	return nil
}

func quoteArg(arg string) string {
	return Command{arg}.String()
}
