package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	// dialTimeout bounds the TCP connect and SSH handshake. Nothing bounds a
	// command once it runs.
	dialTimeout    = 10 * time.Second
	resolveTimeout = 5 * time.Second
)

var (
	ErrDial            = fmt.Errorf("failed to establish SSH connection")
	ErrResolve         = fmt.Errorf("failed to resolve host")
	ErrHostKeyMismatch = fmt.Errorf("host key does not match any expected key")
	ErrSession         = fmt.Errorf("failed to open SSH session")
	ErrCommand         = fmt.Errorf("remote command failed")
	ErrUpload          = fmt.Errorf("failed to stream file to remote host")
)

// Connect opens an SSH connection to 'host' as 'user', authenticating with
// 'signer'. An empty 'host' means loopback and a zero 'port' means 22.
//
// EC2 instances come up with host keys nobody has seen yet, so when no
// 'hostKeys' are given any key is accepted. Otherwise the host must offer one
// of them.
func Connect(host string, port uint16, user string, signer ssh.Signer, hostKeys ...ssh.PublicKey) (*ssh.Client, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = 22
	}
	addr, err := dialAddr(host, port)
	if err != nil {
		return nil, err
	}
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: expectHostKeys(hostKeys),
		Timeout:         dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDial, addr, err)
	}
	return client, nil
}

func expectHostKeys(keys []ssh.PublicKey) ssh.HostKeyCallback {
	if len(keys) == 0 {
		return ssh.InsecureIgnoreHostKey()
	}
	return func(_ string, _ net.Addr, offered ssh.PublicKey) error {
		for _, k := range keys {
			if bytes.Equal(k.Marshal(), offered.Marshal()) {
				return nil
			}
		}
		return fmt.Errorf("%w: offered %s", ErrHostKeyMismatch, ssh.FingerprintSHA256(offered))
	}
}

// dialAddr turns 'host' into an 'ip:port' dial address. Names, such as an
// instance's public DNS name, resolve to their first address.
func dialAddr(host string, port uint16) (string, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()
		addrs, err := net.DefaultResolver.LookupHost(ctx, host)
		if err != nil || len(addrs) == 0 {
			return "", fmt.Errorf("%w: %s", ErrResolve, host)
		}
		if ip = net.ParseIP(addrs[0]); ip == nil {
			return "", fmt.Errorf("%w: %s resolved to %q", ErrResolve, host, addrs[0])
		}
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(int(port))), nil
}

// session is one remote process with its output captured.
type session struct {
	*ssh.Session
	stdout, stderr bytes.Buffer
}

func open(client *ssh.Client) (*session, error) {
	raw, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	s := &session{Session: raw}
	s.Stdout = &s.stdout
	s.Stderr = &s.stderr
	return s, nil
}

// Exec runs 'cmd' and returns its stdout and stderr.
//
// A command which ran but exited non-zero returns an error wrapping both
// 'ErrCommand' and an '*ssh.ExitError'; 'ExitStatus' recovers the code.
func Exec(client *ssh.Client, cmd string) (string, string, error) {
	s, err := open(client)
	if err != nil {
		return "", "", err
	}
	defer s.Close()
	if err := s.Run(cmd); err != nil {
		return s.stdout.String(), s.stderr.String(), fmt.Errorf("%w: %w", ErrCommand, err)
	}
	return s.stdout.String(), s.stderr.String(), nil
}

// ExecIn runs 'cmds' in order, one per line, through a single 'shell'
// process reading them from stdin. The exit status is the shell's.
func ExecIn(client *ssh.Client, shell Shell, cmds ...string) (string, string, error) {
	s, err := open(client)
	if err != nil {
		return "", "", err
	}
	defer s.Close()
	s.Stdin = strings.NewReader(strings.Join(cmds, "\n") + "\n")
	if err := s.Run("/usr/bin/env " + shell); err != nil {
		return s.stdout.String(), s.stderr.String(), fmt.Errorf("%w: %s: %w", ErrCommand, shell, err)
	}
	return s.stdout.String(), s.stderr.String(), nil
}

// Upload runs 'cmd' on the remote host with 'r' connected to its stdin. 'cmd'
// is expected to consume stdin into a file, e.g. 'cat > index.html'.
func Upload(client *ssh.Client, r io.Reader, cmd string) error {
	s, err := open(client)
	if err != nil {
		return err
	}
	defer s.Close()
	s.Stdin = r
	if err := s.Run(cmd); err != nil {
		return fmt.Errorf("%w: %w (stderr: %q)", ErrUpload, err, s.stderr.String())
	}
	return nil
}

// ExitStatus extracts the remote process exit status from an error returned by
// 'Exec', 'ExecIn' or 'Upload'. A nil error is status 0.
//
// The second return value is false when 'err' did not come from a remote
// process exiting (a dial, session or stream failure), in which case the
// status is -1.
func ExitStatus(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), true
	}
	return -1, false
}
